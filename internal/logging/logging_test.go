package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestNew_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "quaderno.log")

	logger, closer, err := New(Config{Level: "warn", File: path, Service: "quaderno-cli", Quiet: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("save conflict", "page", "Groceries")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1:\n%s", len(lines), data)
	}

	var rec map[string]any
	if err := json.Unmarshal(lines[0], &rec); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	for k, want := range map[string]string{"msg": "save conflict", "page": "Groceries", "service": "quaderno-cli", "level": "WARN"} {
		if rec[k] != want {
			t.Errorf("%s = %v, want %q", k, rec[k], want)
		}
	}
}

func TestNew_QuietWithoutFile(t *testing.T) {
	logger, closer, err := New(Config{Quiet: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closer.Close()
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be filtered at the default level")
	}
	logger.Error("nowhere")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "", want: slog.LevelInfo},
		{in: "info", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "trace", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFanout(t *testing.T) {
	var debug, errs bytes.Buffer
	h := fanout{
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&errs, &slog.HandlerOptions{Level: slog.LevelError}),
	}
	logger := slog.New(h).With("page", "P")

	logger.Debug("cycle")
	logger.Error("collision")

	if !bytes.Contains(debug.Bytes(), []byte("msg=cycle page=P")) || !bytes.Contains(debug.Bytes(), []byte("msg=collision")) {
		t.Errorf("debug sink missing records:\n%s", debug.String())
	}
	if bytes.Contains(errs.Bytes(), []byte("cycle")) || !bytes.Contains(errs.Bytes(), []byte("msg=collision page=P")) {
		t.Errorf("error sink got wrong records:\n%s", errs.String())
	}
}
