package plugin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/kagebunshin/internal/session"
)

// writeScript creates an executable shell plugin in a temp dir.
func writeScript(t *testing.T, name, body string) *Plugin {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	return &Plugin{
		Manifest:   Manifest{Name: name, Version: "1.0.0", Executable: name},
		Path:       dir,
		Executable: path,
	}
}

func TestExecutor_Execute(t *testing.T) {
	plugin := writeScript(t, "ok.sh", `cat <<'EOF'
{"success":true,"data":{"message":"hello world"}}
EOF
`)

	executor := NewExecutor(5 * time.Second)
	response, err := executor.Execute(context.Background(), plugin, &Request{Event: session.EventTriggered})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if !response.Success {
		t.Errorf("expected success=true, got false")
	}
	if response.Error != "" {
		t.Errorf("expected empty error, got %q", response.Error)
	}

	var data map[string]interface{}
	if err := json.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}
	if data["message"] != "hello world" {
		t.Errorf("expected message 'hello world', got %v", data["message"])
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	plugin := writeScript(t, "echo.sh", `INPUT=$(cat)
echo "{\"success\":true,\"data\":{\"received\":$INPUT}}"
`)
	plugin.Manifest.Config = []byte(`{"sound":"poof"}`)

	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	req := NewRequest(plugin, session.Event{
		Type:    session.EventActor,
		At:      at,
		JutsuID: "abc",
		Actor:   7,
	})

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, req)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	var data struct {
		Received Request `json:"received"`
	}
	if err := json.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}

	got := data.Received
	if got.Event != session.EventActor {
		t.Errorf("expected event 'actor', got %v", got.Event)
	}
	if got.JutsuID != "abc" || got.Actor != 7 {
		t.Errorf("unexpected request payload: %+v", got)
	}
	if !got.At.Equal(at) {
		t.Errorf("expected at %v, got %v", at, got.At)
	}
	if string(got.Config) != `{"sound":"poof"}` {
		t.Errorf("expected plugin config to be forwarded, got %s", got.Config)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	plugin := writeScript(t, "slow.sh", `sleep 10
echo '{"success":true}'
`)

	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), plugin, &Request{})
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got: %v", err)
	}
}

func TestExecutor_Execute_Failures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
		wantMsg string
	}{
		{
			name:    "error response",
			body:    `echo '{"success":false,"error":"something went wrong"}'` + "\n",
			wantMsg: "something went wrong",
		},
		{
			name:    "invalid json",
			body:    "echo 'not valid json'\n",
			wantErr: true,
		},
		{
			name:    "non-zero exit",
			body:    "echo 'Error: something failed' >&2\nexit 1\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plugin := writeScript(t, "plugin.sh", tt.body)

			response, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, &Request{})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute() failed: %v", err)
			}
			if response.Success {
				t.Errorf("expected success=false, got true")
			}
			if response.Error != tt.wantMsg {
				t.Errorf("expected error %q, got %q", tt.wantMsg, response.Error)
			}
		})
	}
}

func TestNewExecutor(t *testing.T) {
	if got := NewExecutor(3 * time.Second).Timeout(); got != 3*time.Second {
		t.Errorf("expected timeout 3s, got %v", got)
	}
	if got := NewExecutor(0).Timeout(); got != 5*time.Second {
		t.Errorf("expected default timeout 5s, got %v", got)
	}
}

func TestNewRequest_FirstActorIsSent(t *testing.T) {
	p := &Plugin{Manifest: Manifest{Name: "notify"}}
	data, err := json.Marshal(NewRequest(p, session.Event{Type: session.EventActor, JutsuID: "abc", Actor: 0}))
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	if !strings.Contains(string(data), `"actor":0`) {
		t.Errorf("expected actor 0 in request, got %s", data)
	}
}
