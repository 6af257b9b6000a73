package audit

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryRepo_EventsIsSnapshotInAppendOrder(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	_ = repo.Append(ctx, Event{ID: "e1", TenantID: "t1", Type: EventTypeImport})
	_ = repo.Append(ctx, Event{ID: "e2", TenantID: "t1", Type: EventTypeExport})

	evs := repo.Events()
	if len(evs) != 2 || evs[0].ID != "e1" || evs[1].ID != "e2" {
		t.Fatalf("expected events in append order, got %+v", evs)
	}
	evs[0].ID = "mutated"
	if repo.Events()[0].ID != "e1" {
		t.Fatalf("expected Events to return a copy")
	}
}

func TestMemoryRepo_ErrLeavesLogUntouched(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Err = errors.New("db down")

	if err := repo.Append(context.Background(), Event{ID: "e1", TenantID: "t1", Type: EventTypeImport}); err == nil {
		t.Fatalf("expected forced error")
	}
	if n := len(repo.Events()); n != 0 {
		t.Fatalf("expected empty log, got %d events", n)
	}
}
