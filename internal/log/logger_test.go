package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"firestige.xyz/vbridge/internal/config"
)

func TestNewTextPattern(t *testing.T) {
	var buf bytes.Buffer
	cfg := defaultConfig()
	cfg.Pattern = "[%level] %field %msg\n"

	l, err := New(cfg, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.WithFields(map[string]interface{}{"vlan": 10, "port": 2}).Info("learned")

	got := buf.String()
	want := "[info] port=2,vlan=10 learned\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := defaultConfig()
	cfg.Format = "json"

	l, err := New(cfg, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.WithError(errors.New("boom")).Warn("send failed")

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if record["msg"] != "send failed" {
		t.Errorf("msg = %v", record["msg"])
	}
	if record["level"] != "warning" {
		t.Errorf("level = %v", record["level"])
	}
	if record["error"] != "boom" {
		t.Errorf("error = %v", record["error"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	cfg := defaultConfig()
	cfg.Level = "warn"

	l, err := New(cfg, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.Info("hidden")
	l.Debug("hidden")
	l.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("records below warn were written: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn record missing: %q", buf.String())
	}
	if l.IsDebugEnabled() || l.IsTraceEnabled() {
		t.Error("debug/trace should be disabled at warn level")
	}
}

func TestNewWithInvalidLevel(t *testing.T) {
	cfg := defaultConfig()
	cfg.Level = "verbose"
	if _, err := New(cfg, &bytes.Buffer{}); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestNewWithInvalidFormat(t *testing.T) {
	cfg := defaultConfig()
	cfg.Format = "xml"
	if _, err := New(cfg, &bytes.Buffer{}); err == nil {
		t.Error("expected error for invalid format")
	}
}

func TestInitWithFileOutput(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "test.log")

	cfg := defaultConfig()
	cfg.Format = "json"
	cfg.Outputs.File = config.FileOutputConfig{
		Enabled: true,
		Path:    logFile,
		Rotation: config.RotationConfig{
			MaxSizeMB:  10,
			MaxAgeDays: 7,
			MaxBackups: 3,
		},
	}

	if err := Init(cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() {
		if err := Init(defaultConfig()); err != nil {
			t.Errorf("restore default logger: %v", err)
		}
	})

	GetLogger().Info("test message")

	// lumberjack opens the file on first write
	time.Sleep(10 * time.Millisecond)

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "test message") {
		t.Errorf("log file does not contain record: %q", string(data))
	}
}

func TestInitWithMissingFilePath(t *testing.T) {
	cfg := defaultConfig()
	cfg.Outputs.File.Enabled = true

	if err := Init(cfg); err == nil {
		t.Error("expected error for missing file path")
	}
}

func TestInitKeepsLoggerOnError(t *testing.T) {
	before := GetLogger()
	cfg := defaultConfig()
	cfg.Level = "loud"

	if err := Init(cfg); err == nil {
		t.Fatal("expected error for invalid level")
	}
	if GetLogger() != before {
		t.Error("failed Init replaced the process logger")
	}
}

func TestCreateFileWriter(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		fc      config.FileOutputConfig
		wantErr bool
	}{
		{
			name: "valid config",
			fc: config.FileOutputConfig{
				Path:     filepath.Join(tmpDir, "test.log"),
				Rotation: config.RotationConfig{MaxSizeMB: 100, MaxAgeDays: 30, MaxBackups: 5, Compress: true},
			},
		},
		{
			name:    "missing path",
			fc:      config.FileOutputConfig{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer, err := createFileWriter(tt.fc)
			if (err != nil) != tt.wantErr {
				t.Errorf("createFileWriter() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && writer == nil {
				t.Error("createFileWriter() returned nil writer")
			}
		})
	}
}

func TestMultiWriter(t *testing.T) {
	var a, b bytes.Buffer
	w := NewMultiWriter().Add(&a).Add(&b)

	n, err := w.Write([]byte("frame"))
	if err != nil || n != 5 {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	if a.String() != "frame" || b.String() != "frame" {
		t.Errorf("writers got %q and %q", a.String(), b.String())
	}
}

func TestFormatterTime(t *testing.T) {
	f := &formatter{pattern: "%time %msg", time: "2006-01-02"}
	entry := &logrus.Entry{
		Time:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Message: "hello",
		Data:    logrus.Fields{},
	}
	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if string(out) != "2024-03-01 hello" {
		t.Errorf("Format() = %q", string(out))
	}
}
