package runner

import (
	"context"
	"sync"
)

// Recorder is an in-memory Runner that records invocations instead of spawning processes.
type Recorder struct {
	mu    sync.Mutex
	calls []Command

	// Handler decides the outcome of each call. When nil every call succeeds.
	Handler func(ctx context.Context, cmd Command) (Result, error)
}

var _ Runner = (*Recorder)(nil)

// Run records cmd and delegates to Handler.
func (r *Recorder) Run(ctx context.Context, cmd Command) (Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, cloneCommand(cmd))
	r.mu.Unlock()

	if r.Handler == nil {
		return Result{}, nil
	}
	return r.Handler(ctx, cmd)
}

// Calls returns the recorded commands in invocation order.
func (r *Recorder) Calls() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.calls))
	copy(out, r.calls)
	return out
}

// Programs returns the first argument of every recorded command.
func (r *Recorder) Programs() []string {
	calls := r.Calls()
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		if len(c.Args) > 0 {
			out = append(out, c.Args[0])
		}
	}
	return out
}

func cloneCommand(cmd Command) Command {
	cloned := cmd
	cloned.Args = append([]string(nil), cmd.Args...)
	if cmd.Env != nil {
		cloned.Env = make(map[string]string, len(cmd.Env))
		for k, v := range cmd.Env {
			cloned.Env[k] = v
		}
	}
	return cloned
}
