package writer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWriterWithOptions(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name    string
		options *Options
		wantErr bool
	}{
		{"nil options", nil, false},
		{"console", &Options{Type: "console"}, false},
		{"console stderr", &Options{Type: "console", Console: ConsoleWriterOptions{Target: "stderr"}}, false},
		{"invalid target", &Options{Type: "console", Console: ConsoleWriterOptions{Target: "tty"}}, true},
		{"file", &Options{Type: "file", File: FileWriterOptions{Path: filepath.Join(tempDir, "a.log")}}, false},
		{"file without path", &Options{Type: "file"}, true},
		{"multi", &Options{Type: "multi", Writers: []*Options{
			{Type: "console"},
			{Type: "file", File: FileWriterOptions{Path: filepath.Join(tempDir, "b.log")}},
		}}, false},
		{"empty multi", &Options{Type: "multi"}, true},
		{"unknown", &Options{Type: "syslog"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWriterWithOptions(tt.options)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewWriterWithOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if err := w.Close(); err != nil {
					t.Errorf("Close() error = %v", err)
				}
			}
		})
	}
}

func TestFileWriter(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "nested", "test.log")

	w, err := NewFileWriterWithOptions(&FileWriterOptions{Path: logFile})
	if err != nil {
		t.Fatalf("NewFileWriterWithOptions() error = %v", err)
	}

	testData := []byte("test log message\n")
	n, err := w.Write(testData)
	if err != nil || n != len(testData) {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// 关闭之后写入失败，重复关闭无副作用
	if _, err := w.Write(testData); err == nil {
		t.Errorf("Write() after Close() should fail")
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "test log message") {
		t.Errorf("Log file doesn't contain expected message")
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }
func (failingWriter) Close() error                { return errors.New("already closed") }

func TestMultiWriter(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "multi.log")
	file, err := NewFileWriterWithOptions(&FileWriterOptions{Path: logFile})
	if err != nil {
		t.Fatalf("NewFileWriterWithOptions() error = %v", err)
	}
	console, _ := NewConsoleWriterWithOptions(nil)

	w := NewMultiWriter(console, file)
	testData := []byte("multi writer test\n")
	if n, err := w.Write(testData); err != nil || n != len(testData) {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	content, _ := os.ReadFile(logFile)
	if !strings.Contains(string(content), "multi writer test") {
		t.Errorf("Log file doesn't contain expected message")
	}

	w = NewMultiWriter(failingWriter{})
	if _, err := w.Write(testData); err == nil {
		t.Errorf("Write() should fail")
	}
	if err := w.Close(); err == nil {
		t.Errorf("Close() should fail")
	}
}
