package cloudqueue

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerRoutesLevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLogger(zap.New(core))

	l.Debug("debugging", "queue", "Q")
	l.Info("informing", "queue", "Q")
	l.Warn("warning", "queue", "Q")
	l.Error("erroring", "queue", "Q")

	entries := logs.All()
	if len(entries) != 4 {
		t.Fatalf("expected 4 log entries, got %d", len(entries))
	}

	wantLevels := []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, e := range entries {
		if e.Level != wantLevels[i] {
			t.Fatalf("entry %d: expected level %v, got %v", i, wantLevels[i], e.Level)
		}
		if got := e.ContextMap()["queue"]; got != "Q" {
			t.Fatalf("entry %d: expected queue field %q, got %v", i, "Q", got)
		}
	}
}
