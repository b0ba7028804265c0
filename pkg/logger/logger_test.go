package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved() (*Trace, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewTrace(zap.New(core)), logs
}

func TestTraceSuccessDropsDetails(t *testing.T) {
	tr, logs := newObserved()
	tr.Begin("catalog")
	tr.Append("catalog", "opening file")
	tr.Logf("catalog")("read %d records", 3)
	tr.Success("catalog", "catalog loaded")
	tr.Sync()

	entries := logs.All()
	if len(entries) != 1 || entries[0].Message != "catalog loaded" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestTraceFailureReplaysDetails(t *testing.T) {
	tr, logs := newObserved()
	tr.Begin("seed")
	tr.Append("seed", "step one")
	tr.Append("seed", "step two")
	tr.FlushError("seed", errors.New("boom"))
	tr.Sync()

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Message != "step one" || entries[1].Message != "step two" {
		t.Fatalf("details not replayed in order: %+v", entries)
	}
	if entries[2].Level != zapcore.ErrorLevel {
		t.Fatalf("last entry level = %v", entries[2].Level)
	}
}

func TestTraceAppendWithoutBeginLogsImmediately(t *testing.T) {
	tr, logs := newObserved()
	tr.Append("loose", "hello")
	tr.Sync()
	if logs.Len() != 1 {
		t.Fatalf("got %d entries, want 1", logs.Len())
	}
}
