package audit

import (
	"context"
	"sync"
)

// MemoryRepo keeps import/export events in process for the CLI and tests.
type MemoryRepo struct {
	mu     sync.Mutex
	events []Event

	// Err forces Append to fail, leaving the log untouched.
	Err error
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, e)
	return nil
}

// Events returns a snapshot in append order.
func (r *MemoryRepo) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
