package index

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/gitgovernance/core/internal/eventbus"
	"github.com/gitgovernance/core/internal/record"
	"github.com/gitgovernance/core/internal/validate"
)

// fakeChangelogStore is a minimal in-memory record.Store[validate.ChangelogPayload]
// used to exercise Subscribe/Rebuild without a real signer or file store.
type fakeChangelogStore struct {
	records map[string]validate.ChangelogPayload
}

func (f *fakeChangelogStore) Put(ctx context.Context, id string, rec record.Record[validate.ChangelogPayload], resolver record.KeyResolver) error {
	f.records[id] = rec.Payload
	return nil
}

func (f *fakeChangelogStore) Get(ctx context.Context, id string, resolver record.KeyResolver) (record.Record[validate.ChangelogPayload], error) {
	p, ok := f.records[id]
	if !ok {
		return record.Record[validate.ChangelogPayload]{}, fmt.Errorf("fakeChangelogStore: %s not found", id)
	}
	return record.Record[validate.ChangelogPayload]{Payload: p}, nil
}

func (f *fakeChangelogStore) List(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.records))
	for id := range f.records {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeChangelogStore) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := f.records[id]
	return ok, nil
}

func (f *fakeChangelogStore) Delete(ctx context.Context, id string) error {
	delete(f.records, id)
	return nil
}

func newTestIndex(t *testing.T) *ChangelogIndex {
	t.Helper()
	idx, err := NewSQLiteChangelogIndex(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("NewSQLiteChangelogIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestUpsertAndQuery(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Upsert(ctx, validate.ChangelogPayload{
		ID:           "1-changelog-first",
		Title:        "First release",
		CompletedAt:  "2026-01-01T00:00:00Z",
		RelatedTasks: []string{"1-task-a"},
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := idx.Upsert(ctx, validate.ChangelogPayload{
		ID:           "1-changelog-second",
		Title:        "Second release",
		CompletedAt:  "2026-02-01T00:00:00Z",
		RelatedTasks: []string{"1-task-b"},
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	t.Run("unfiltered query returns both, most recent first", func(t *testing.T) {
		ids, err := idx.Query(ctx, ChangelogQuery{})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(ids) != 2 || ids[0] != "1-changelog-second" {
			t.Fatalf("expected [second, first], got %v", ids)
		}
	})

	t.Run("filtered query returns only the matching task", func(t *testing.T) {
		ids, err := idx.Query(ctx, ChangelogQuery{TaskID: "1-task-a"})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(ids) != 1 || ids[0] != "1-changelog-first" {
			t.Fatalf("expected [first], got %v", ids)
		}
	})

	t.Run("upsert with the same id replaces the row", func(t *testing.T) {
		if err := idx.Upsert(ctx, validate.ChangelogPayload{
			ID:           "1-changelog-first",
			Title:        "First release (amended)",
			CompletedAt:  "2026-01-02T00:00:00Z",
			RelatedTasks: []string{"1-task-a", "1-task-c"},
		}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
		ids, err := idx.Query(ctx, ChangelogQuery{TaskID: "1-task-c"})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(ids) != 1 || ids[0] != "1-changelog-first" {
			t.Fatalf("expected the amended row to match 1-task-c, got %v", ids)
		}
	})

	t.Run("sortBy title ascending", func(t *testing.T) {
		ids, err := idx.Query(ctx, ChangelogQuery{SortBy: "title", SortOrder: "asc"})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(ids) != 2 || ids[0] != "1-changelog-first" || ids[1] != "1-changelog-second" {
			t.Fatalf("expected [first, second] sorted by title asc, got %v", ids)
		}
	})

	t.Run("limit caps the result set", func(t *testing.T) {
		ids, err := idx.Query(ctx, ChangelogQuery{Limit: 1})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(ids) != 1 {
			t.Fatalf("expected 1 id, got %v", ids)
		}
	})

	t.Run("tags filter requires every listed tag", func(t *testing.T) {
		if err := idx.Upsert(ctx, validate.ChangelogPayload{
			ID:           "1-changelog-tagged",
			Title:        "Tagged release",
			CompletedAt:  "2026-03-01T00:00:00Z",
			RelatedTasks: []string{"1-task-tagged"},
			Tags:         []string{"backend", "urgent"},
		}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
		ids, err := idx.Query(ctx, ChangelogQuery{Tags: []string{"backend", "urgent"}})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(ids) != 1 || ids[0] != "1-changelog-tagged" {
			t.Fatalf("expected [tagged], got %v", ids)
		}
		ids, err = idx.Query(ctx, ChangelogQuery{Tags: []string{"backend", "missing"}})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(ids) != 0 {
			t.Fatalf("expected no matches for a tag combination that isn't fully present, got %v", ids)
		}
	})

	t.Run("version filters exactly", func(t *testing.T) {
		if err := idx.Upsert(ctx, validate.ChangelogPayload{
			ID:          "1-changelog-v2",
			Title:       "v2 release",
			CompletedAt: "2026-04-01T00:00:00Z",
			Version:     "2.0.0",
		}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
		ids, err := idx.Query(ctx, ChangelogQuery{Version: "2.0.0"})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(ids) != 1 || ids[0] != "1-changelog-v2" {
			t.Fatalf("expected [v2], got %v", ids)
		}
	})
}

func TestGetRecentChangelogs(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	for i, id := range []string{"1-changelog-a", "1-changelog-b", "1-changelog-c"} {
		if err := idx.Upsert(ctx, validate.ChangelogPayload{
			ID:          id,
			Title:       id,
			CompletedAt: fmt.Sprintf("2026-0%d-01T00:00:00Z", i+1),
		}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	ids, err := idx.GetRecentChangelogs(ctx, 2)
	if err != nil {
		t.Fatalf("GetRecentChangelogs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "1-changelog-c" || ids[1] != "1-changelog-b" {
		t.Fatalf("expected the 2 most recent in descending order, got %v", ids)
	}
}

func TestDelete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Upsert(ctx, validate.ChangelogPayload{ID: "1-changelog-x", Title: "X", CompletedAt: "2026-01-01T00:00:00Z"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := idx.Delete(ctx, "1-changelog-x"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ids, err := idx.Query(ctx, ChangelogQuery{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no rows after delete, got %v", ids)
	}
}

func TestSubscribe_KeepsIndexCurrent(t *testing.T) {
	idx := newTestIndex(t)
	bus := eventbus.New()

	store := &fakeChangelogStore{
		records: map[string]validate.ChangelogPayload{
			"1-changelog-live": {ID: "1-changelog-live", Title: "Live update", CompletedAt: "2026-03-01T00:00:00Z", RelatedTasks: []string{"1-task-live"}},
		},
	}

	sub := idx.Subscribe(context.Background(), bus, store, nil)
	defer bus.Unsubscribe(sub.ID)

	bus.Publish(eventbus.ChangelogCreated("changelog", "1-changelog-live", []string{"1-task-live"}, "Live update", ""))

	ids, err := idx.Query(context.Background(), ChangelogQuery{TaskID: "1-task-live"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(ids) != 1 || ids[0] != "1-changelog-live" {
		t.Fatalf("expected the index to pick up the published record, got %v", ids)
	}
}
