package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestPrettyFormatter(t *testing.T) {
	f := &PrettyFormatter{}
	entry := &logrus.Entry{
		Time:    time.Date(2024, 1, 2, 13, 4, 5, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "channel closed",
		Data:    logrus.Fields{"peer": "b", "attempt": "a"},
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	expected := "13:04:05 WARN  channel closed attempt=a peer=b\n"
	if string(out) != expected {
		t.Errorf("expected %q, got %q", expected, out)
	}
}

func TestPrettyFormatterColors(t *testing.T) {
	f := &PrettyFormatter{Colors: true}
	out, _ := f.Format(&logrus.Entry{Level: logrus.ErrorLevel, Message: "boom", Data: logrus.Fields{}})

	if !strings.Contains(string(out), colorRed+"ERROR") {
		t.Errorf("expected red ERROR, got %q", out)
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, logrus.WarnLevel)

	l.Info("hidden")
	l.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn should be logged")
	}
	if strings.Contains(buf.String(), "\033[") {
		t.Error("a buffer is not a terminal, expected no colours")
	}
}
