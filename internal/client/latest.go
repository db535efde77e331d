package client

import (
	"context"
	"sync"
)

// Latest guards a slot of form state that is filled by asynchronous calls,
// such as a suggested title. Each Begin supersedes the previous call:
// its context is cancelled and its result is ignored by Commit.
type Latest struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// Token identifies one call started with Begin.
type Token struct {
	gen uint64
}

// Begin starts a new generation and returns a context for the call.
func (l *Latest) Begin(ctx context.Context) (context.Context, Token) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	l.gen++
	l.cancel = cancel
	return ctx, Token{gen: l.gen}
}

// Commit runs apply only if tok is still the newest generation and reports
// whether it did. apply runs under the guard's lock.
func (l *Latest) Commit(tok Token, apply func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if tok.gen != l.gen {
		return false
	}
	apply()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	return true
}

// Current reports whether tok has not been superseded.
func (l *Latest) Current(tok Token) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return tok.gen == l.gen
}

// Stop cancels any in-flight call and invalidates outstanding tokens.
func (l *Latest) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
}
