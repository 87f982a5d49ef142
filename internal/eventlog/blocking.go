package eventlog

import (
	"context"
	"time"
)

// AppendSignal returns a channel closed by the next successful append. A
// reader that takes the signal before walking the log and then waits on it
// with WaitSignal cannot miss an append that lands between the two.
func (l *Log) AppendSignal() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.notifyCh
}

// WaitForAppend blocks until either a new append occurs or timeout elapses.
// It returns true if woken by an append, false on timeout. A non-positive
// timeout waits indefinitely.
func (l *Log) WaitForAppend(timeout time.Duration) bool {
	ch := l.AppendSignal()
	if timeout <= 0 {
		<-ch
		return true
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-ch:
		return true
	case <-t.C:
		return false
	}
}

// Wait blocks until the next successful append or until ctx is done, in
// which case ctx.Err() is returned.
func (l *Log) Wait(ctx context.Context) error {
	return WaitSignal(ctx, l.AppendSignal())
}

// WaitSignal blocks until ch, taken from AppendSignal, is closed or ctx is
// done.
func WaitSignal(ctx context.Context, ch <-chan struct{}) error {
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
