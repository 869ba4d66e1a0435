package audit

import (
	"context"
	"fmt"
	"testing"
)

func seedEntries(t *testing.T, store *MemoryStore) {
	t.Helper()
	ctx := context.Background()
	entries := []Entry{
		{SessionID: "s1", Operation: "create", Model: "res.partner", RecordID: 1, Success: true},
		{SessionID: "s1", Operation: "update", Model: "sale.order", RecordID: 2, Success: true},
		{SessionID: "s2", Operation: "delete", Model: "sale.order", RecordID: 3, Success: false},
		{SessionID: "s2", Operation: "update", Model: "sale.order", RecordID: 4, Success: true},
	}
	for _, e := range entries {
		if err := store.Append(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
}

func TestMemoryStoreAppendAssignsIDAndTimestamp(t *testing.T) {
	store := NewMemoryStore(100)
	ctx := context.Background()

	store.Append(ctx, Entry{Operation: "create", Model: "res.partner"})
	store.Append(ctx, Entry{Operation: "update", Model: "res.partner"})

	got, err := store.List(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("entries = %d", len(got))
	}
	// Newest first.
	if got[0].ID != 2 || got[1].ID != 1 {
		t.Errorf("ids = %d, %d", got[0].ID, got[1].ID)
	}
	if got[0].OccurredAt.IsZero() {
		t.Error("timestamp should be assigned on append")
	}
}

func TestMemoryStoreListFilters(t *testing.T) {
	store := NewMemoryStore(100)
	seedEntries(t, store)
	ctx := context.Background()

	bySession, _ := store.List(ctx, Filter{SessionID: "s1"})
	if len(bySession) != 2 {
		t.Errorf("session filter = %d entries, want 2", len(bySession))
	}

	byModel, _ := store.List(ctx, Filter{Model: "sale.order"})
	if len(byModel) != 3 {
		t.Errorf("model filter = %d entries, want 3", len(byModel))
	}

	combined, _ := store.List(ctx, Filter{Model: "sale.order", Operation: "update"})
	if len(combined) != 2 {
		t.Errorf("combined filter = %d entries, want 2", len(combined))
	}
	if combined[0].RecordID != 4 {
		t.Errorf("newest first expected, got record %d", combined[0].RecordID)
	}

	none, _ := store.List(ctx, Filter{SessionID: "missing"})
	if len(none) != 0 {
		t.Errorf("unmatched filter = %v", none)
	}
}

func TestMemoryStoreListLimit(t *testing.T) {
	store := NewMemoryStore(100)
	seedEntries(t, store)

	got, _ := store.List(context.Background(), Filter{Limit: 2})
	if len(got) != 2 {
		t.Errorf("limited list = %d entries", len(got))
	}
	if got[0].RecordID != 4 || got[1].RecordID != 3 {
		t.Errorf("records = %d, %d, want the two newest", got[0].RecordID, got[1].RecordID)
	}
}

func TestMemoryStoreCapDiscardsOldest(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		store.Append(ctx, Entry{Operation: "create", Detail: fmt.Sprintf("n%d", i)})
	}

	got, _ := store.List(ctx, Filter{})
	if len(got) != 3 {
		t.Fatalf("entries = %d, want cap", len(got))
	}
	if got[len(got)-1].Detail != "n3" {
		t.Errorf("oldest kept = %q, want the early entries discarded", got[len(got)-1].Detail)
	}
}
