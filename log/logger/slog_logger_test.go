package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hatlonely/rooster/log/writer"
)

func TestNewSLogWithOptions(t *testing.T) {
	tests := []struct {
		name    string
		options *SLogOptions
		wantErr bool
	}{
		{
			name:    "nil options",
			options: nil,
			wantErr: true,
		},
		{
			name: "default console output",
			options: &SLogOptions{
				Level: "info",
			},
			wantErr: false,
		},
		{
			name: "json to stderr",
			options: &SLogOptions{
				Level:  "debug",
				Format: "json",
				Output: writer.Options{
					Type:    "console",
					Console: writer.ConsoleWriterOptions{Target: "stderr"},
				},
			},
			wantErr: false,
		},
		{
			name: "invalid level",
			options: &SLogOptions{
				Level: "invalid",
			},
			wantErr: true,
		},
		{
			name: "invalid format",
			options: &SLogOptions{
				Level:  "info",
				Format: "invalid",
			},
			wantErr: true,
		},
		{
			name: "invalid writer",
			options: &SLogOptions{
				Output: writer.Options{Type: "kafka"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewSLogWithOptions(tt.options)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewSLogWithOptions() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("NewSLogWithOptions() returned nil logger without error")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"DEBUG", slog.LevelDebug, false}, // 大小写不敏感
		{"", slog.LevelInfo, false},
		{"invalid", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			got, err := parseLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLevel(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestSLogFileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "rooster.log")

	l, err := NewSLogWithOptions(&SLogOptions{
		Level:  "warn",
		Format: "json",
		Output: writer.Options{
			Type: "file",
			File: writer.FileWriterOptions{Path: logFile},
		},
		Fields: map[string]any{"service": "rooster"},
	})
	if err != nil {
		t.Fatalf("NewSLogWithOptions() error = %v", err)
	}

	l.Info("ignored")
	l.With("table", "event").Warn("dynamic column ignored", "columns", 2)
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %s", len(lines), content)
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("invalid json log: %v", err)
	}
	if record["msg"] != "dynamic column ignored" || record["table"] != "event" || record["service"] != "rooster" {
		t.Errorf("unexpected record: %v", record)
	}
}

func TestNewSLog(t *testing.T) {
	var buf bytes.Buffer
	l := NewSLog(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	l.WithGroup("sql").Debug("select", "args", 3)
	if !strings.Contains(buf.String(), "sql.args=3") {
		t.Errorf("unexpected output: %s", buf.String())
	}

	buf.Reset()
	Discard().Error("nothing")
	if buf.Len() != 0 {
		t.Errorf("Discard() should not write to other handlers")
	}
}
