package main

import (
	"context"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ayusman/kagebunshin/internal/app"
	"github.com/ayusman/kagebunshin/internal/logging"
	"github.com/ayusman/kagebunshin/internal/tray"
)

// runFlags maps run flags to config keys.
var runFlags = map[string]string{
	"camera.device_id":   "camera",
	"camera.file":        "video",
	"detector.mock":      "mock",
	"render.window":      "window",
	"server.enabled":     "server",
	"server.addr":        "addr",
	"server.static_dir":  "web",
	"tray.enabled":       "tray",
	"gesture.model_path": "model",
	"log.level":          "log-level",
}

func (c *cli) runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the clone effect on the camera",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd, runFlags); err != nil {
				return err
			}
			return c.run(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.Int("camera", 0, "camera device id")
	f.String("video", "", "play this video file instead of the camera")
	f.Bool("mock", false, "use the mock detector instead of MediaPipe")
	f.Bool("window", true, "show the preview window")
	f.Bool("server", true, "serve the HTTP control API")
	f.String("addr", "127.0.0.1:8080", "HTTP listen address")
	f.String("web", "", "directory with the trainer web UI")
	f.Bool("tray", false, "show the system tray menu")
	f.String("model", "", "load the classifier from this model file instead of the store")
	f.String("log-level", "info", "log level")
	return cmd
}

func (c *cli) run(ctx context.Context) error {
	s, err := c.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	var t *tray.Tray
	if c.settings.Tray.Enabled {
		formation, err := c.settings.Formation()
		if err != nil {
			return err
		}
		t = tray.New(len(formation))
	}

	a, err := app.New(app.Config{
		Settings: c.settings,
		Store:    s,
		Tray:     t,
	})
	if err != nil {
		return err
	}

	if t == nil {
		return a.Run(ctx)
	}

	// The tray needs the main goroutine; the pipeline runs beside it.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	t.OnQuit(cancel)
	if c.settings.Server.Enabled {
		url := "http://" + c.settings.Server.Addr
		t.OnDashboard(func() { openBrowser(url) })
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
		t.Quit()
	}()
	t.Run()
	cancel()
	return <-errCh
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		logging.Warn(logging.Fields{"url": url, "error": err}, "failed to open browser")
		return
	}
	go cmd.Wait()
}
