// Package main is a hook plugin that shows a desktop notification for jutsu
// events. It uses AppleScript on macOS and notify-send elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// Request is the event sent by the plugin dispatcher.
type Request struct {
	Event      string          `json:"event"`
	At         time.Time       `json:"at"`
	JutsuID    string          `json:"jutsu_id"`
	Actor      int             `json:"actor"`
	Confidence float64         `json:"confidence"`
	Config     json.RawMessage `json:"config"`
}

// Response is written back to the dispatcher.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type config struct {
	Title string `json:"title"`
}

// messageBuilders maps event names to notification bodies.
var messageBuilders = map[string]func(Request) string{
	"triggered": func(r Request) string {
		return fmt.Sprintf("Clone seal recognised (%.2f%%)", r.Confidence)
	},
	"actor": func(r Request) string {
		return fmt.Sprintf("Clone %d joined", r.Actor+1)
	},
	"reset": func(Request) string {
		return "Clones dispelled"
	},
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	build, ok := messageBuilders[req.Event]
	if !ok {
		writeErrorResponse(fmt.Sprintf("unsupported event: %s", req.Event))
		return
	}

	cfg := config{Title: "Kage Bunshin"}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("failed to parse config: %v", err))
			return
		}
	}

	if err := notify(cfg.Title, build(req)); err != nil {
		writeErrorResponse(fmt.Sprintf("notification failed: %v", err))
		return
	}

	writeSuccessResponse()
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}

func notify(title, body string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", body, title)
		cmd = exec.Command("osascript", "-e", script)
	case "linux":
		cmd = exec.Command("notify-send", title, body)
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
