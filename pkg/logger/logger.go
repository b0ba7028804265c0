// Package logger builds the process logger and a per-job trace buffer.
//
// A Trace collects detail lines for a job (loading a catalog, seeding a
// database). If the job succeeds the details are dropped and one short line is
// written; if it fails the buffered lines are replayed before the error. A
// single goroutine owns the buffers, so callers never lock.
package logger

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// New returns a production logger, or a development one when debug is set.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	return cfg.Build()
}

type action int

const (
	actBegin action = iota
	actAppend
	actSuccess
	actFlushErr
	actSync
)

type cmd struct {
	act     action
	jobID   string
	message string
	err     error
	when    time.Time
	done    chan struct{}
}

// Trace buffers detail lines per job id.
type Trace struct {
	log *zap.Logger
	ch  chan cmd
}

// NewTrace starts the buffer goroutine writing to log.
func NewTrace(log *zap.Logger) *Trace {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Trace{log: log, ch: make(chan cmd, 128)}
	go t.runloop()
	return t
}

// Begin starts buffering for jobID.
func (t *Trace) Begin(jobID string) { t.ch <- cmd{act: actBegin, jobID: jobID, when: time.Now()} }

// Append adds a detail line. Without a Begin the line is logged at once.
func (t *Trace) Append(jobID, msg string) {
	t.ch <- cmd{act: actAppend, jobID: jobID, message: msg, when: time.Now()}
}

// Logf adapts Append to printf-style callers.
func (t *Trace) Logf(jobID string) func(string, ...any) {
	return func(format string, args ...any) {
		t.Append(jobID, fmt.Sprintf(format, args...))
	}
}

// Success drops the buffer and writes one summary line.
func (t *Trace) Success(jobID, summary string) {
	t.ch <- cmd{act: actSuccess, jobID: jobID, message: summary, when: time.Now()}
}

// FlushError replays the buffer and logs err.
func (t *Trace) FlushError(jobID string, err error) {
	t.ch <- cmd{act: actFlushErr, jobID: jobID, err: err, when: time.Now()}
}

// Sync blocks until every command sent before it has been written.
func (t *Trace) Sync() {
	done := make(chan struct{})
	t.ch <- cmd{act: actSync, done: done}
	<-done
}

type line struct {
	msg  string
	when time.Time
}

func (t *Trace) runloop() {
	buffers := make(map[string][]line)

	for c := range t.ch {
		switch c.act {
		case actBegin:
			buffers[c.jobID] = nil

		case actAppend:
			if b, ok := buffers[c.jobID]; ok {
				buffers[c.jobID] = append(b, line{msg: c.message, when: c.when})
			} else {
				t.log.Info(c.message, zap.String("job", c.jobID))
			}

		case actSuccess:
			delete(buffers, c.jobID)
			t.log.Info(c.message, zap.String("job", c.jobID))

		case actFlushErr:
			for _, ln := range buffers[c.jobID] {
				t.log.Warn(ln.msg, zap.String("job", c.jobID), zap.Time("at", ln.when))
			}
			delete(buffers, c.jobID)
			t.log.Error("job failed", zap.String("job", c.jobID), zap.Error(c.err))

		case actSync:
			close(c.done)
		}
	}
}
