package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerFormatsAndLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := New(zap.New(core))

	logger.Debug("seat %d", 1)
	logger.Info("room %s", "alpha")
	logger.Warn("late")
	logger.Error("failed: %v", "boom")

	entries := logs.AllUntimed()
	if len(entries) != 4 {
		t.Fatalf("entries = %d, want 4", len(entries))
	}
	tests := []struct {
		level   zapcore.Level
		message string
	}{
		{zapcore.DebugLevel, "seat 1"},
		{zapcore.InfoLevel, "room alpha"},
		{zapcore.WarnLevel, "late"},
		{zapcore.ErrorLevel, "failed: boom"},
	}
	for i, test := range tests {
		if entries[i].Level != test.level || entries[i].Message != test.message {
			t.Fatalf("entry %d = %s %q, want %s %q", i, entries[i].Level, entries[i].Message, test.level, test.message)
		}
	}
}

func TestZapLoggerWithFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := New(zap.New(core))

	child := base.WithField("room", "alpha").WithFields(map[string]interface{}{"seat": 2})
	child.Info("joined")

	fields := child.Fields()
	if fields["room"] != "alpha" || fields["seat"] != 2 {
		t.Fatalf("Fields() = %v, want room and seat", fields)
	}
	if len(base.Fields()) != 0 {
		t.Fatalf("parent fields = %v, want none", base.Fields())
	}

	ctx := logs.AllUntimed()[0].ContextMap()
	if ctx["room"] != "alpha" {
		t.Fatalf("logged context = %v, want room=alpha", ctx)
	}
}

func TestNilBaseIsNoop(t *testing.T) {
	New(nil).Info("dropped %d", 1)
}
