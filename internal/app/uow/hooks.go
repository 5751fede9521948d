package uow

import (
	"context"
	"sync"
)

// AbortHooks implements Compensator for embedding in units of work.
type AbortHooks struct {
	mu  sync.Mutex
	fns []func(ctx context.Context)
}

func (h *AbortHooks) OnAbort(fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fns = append(h.fns, fn)
}

// RunAbort runs the registered callbacks in reverse order, once.
func (h *AbortHooks) RunAbort(ctx context.Context) {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i](context.WithoutCancel(ctx))
	}
}

// Discard drops the callbacks after a successful commit.
func (h *AbortHooks) Discard() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fns = nil
}

// CommitHooks implements Committer for embedding in units of work.
type CommitHooks struct {
	mu  sync.Mutex
	fns []func(ctx context.Context)
}

func (h *CommitHooks) OnCommit(fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fns = append(h.fns, fn)
}

// RunCommit runs the registered callbacks in registration order, once.
func (h *CommitHooks) RunCommit(ctx context.Context) {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn(context.WithoutCancel(ctx))
	}
}

// DropCommit forgets the callbacks when the unit is aborted.
func (h *CommitHooks) DropCommit() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fns = nil
}
