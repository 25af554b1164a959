package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerFiltersByLevel(t *testing.T) {
	tests := []struct {
		level log.Level
		emit  func(*log.Logger)
		want  bool
	}{
		{log.InfoLevel, func(l *log.Logger) { l.Info("tracks read") }, true},
		{log.InfoLevel, func(l *log.Logger) { l.Debug("tracks read") }, false},
		{log.DebugLevel, func(l *log.Logger) { l.Debug("tracks read") }, true},
		{log.WarnLevel, func(l *log.Logger) { l.Info("tracks read") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			var buf bytes.Buffer
			tt.emit(newLogger(&buf, tt.level))
			if got := strings.Contains(buf.String(), "tracks read"); got != tt.want {
				t.Errorf("logged = %v, want %v (output %q)", got, tt.want, buf.String())
			}
		})
	}
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(newLogger(&buf, log.InfoLevel))
	p.done("Imported station.railml.json")

	out := buf.String()
	if !strings.Contains(out, "Imported station.railml.json (") {
		t.Errorf("output %q lacks message with elapsed time", out)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "s)") {
		t.Errorf("output %q lacks duration unit", out)
	}
}

func TestLoggerFromContext(t *testing.T) {
	if got := loggerFromContext(context.Background()); got != log.Default() {
		t.Error("bare context should yield log.Default()")
	}

	l := newLogger(&bytes.Buffer{}, log.DebugLevel)
	if got := loggerFromContext(withLogger(context.Background(), l)); got != l {
		t.Error("attached logger not returned")
	}
}
