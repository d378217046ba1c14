// Package index implements the query index: a non-authoritative, fully
// rebuildable secondary store used only for filtered/sorted list queries
// (getAllChangelogs) that the one-file-per-record content store has no
// efficient way to answer. The file store always wins on any
// inconsistency; the index exists purely to make reads fast.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/gitgovernance/core/internal/eventbus"
	"github.com/gitgovernance/core/internal/record"
	"github.com/gitgovernance/core/internal/validate"
)

// ChangelogIndex answers getAllChangelogs-style queries (filter by task,
// order by completion date) without scanning every changelog file.
type ChangelogIndex struct {
	db *sql.DB
}

// NewSQLiteChangelogIndex opens (creating if absent) a SQLite-backed
// ChangelogIndex at path, enabling WAL mode for safe concurrent reads
// alongside the single writer.
func NewSQLiteChangelogIndex(path string) (*ChangelogIndex, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("index: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("index: %s: %w", pragma, err)
		}
	}

	idx := &ChangelogIndex{db: db}
	if err := idx.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *ChangelogIndex) createTables(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS changelog_index (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			version TEXT,
			completed_at TEXT NOT NULL,
			related_tasks TEXT NOT NULL,
			related_cycles TEXT NOT NULL,
			tags TEXT NOT NULL
		)
	`
	if _, err := idx.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("index: create changelog_index: %w", err)
	}
	if _, err := idx.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_changelog_completed_at ON changelog_index(completed_at)"); err != nil {
		return fmt.Errorf("index: create idx_changelog_completed_at: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (idx *ChangelogIndex) Close() error {
	return idx.db.Close()
}

// Upsert inserts or replaces id's row from payload.
func (idx *ChangelogIndex) Upsert(ctx context.Context, payload validate.ChangelogPayload) error {
	relatedTasks, err := json.Marshal(payload.RelatedTasks)
	if err != nil {
		return err
	}
	relatedCycles, err := json.Marshal(payload.RelatedCycles)
	if err != nil {
		return err
	}
	tags, err := json.Marshal(payload.Tags)
	if err != nil {
		return err
	}
	_, err = idx.db.ExecContext(ctx, `
		INSERT INTO changelog_index (id, title, version, completed_at, related_tasks, related_cycles, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, version=excluded.version, completed_at=excluded.completed_at,
			related_tasks=excluded.related_tasks, related_cycles=excluded.related_cycles, tags=excluded.tags
	`, payload.ID, payload.Title, payload.Version, payload.CompletedAt, string(relatedTasks), string(relatedCycles), string(tags))
	return err
}

// Delete removes id's row, if present.
func (idx *ChangelogIndex) Delete(ctx context.Context, id string) error {
	_, err := idx.db.ExecContext(ctx, "DELETE FROM changelog_index WHERE id = ?", id)
	return err
}

// Query lists changelog ids matching q, filtered by TaskID/Tags/Version
// (each skipped when zero-valued), ordered and limited per q.SortBy/
// q.SortOrder/q.Limit. TaskID and Tags are matched in Go since they're
// stored as JSON arrays; Version is pushed into the SQL WHERE clause.
func (idx *ChangelogIndex) Query(ctx context.Context, q ChangelogQuery) ([]string, error) {
	query := "SELECT id, related_tasks, tags FROM changelog_index"
	var args []any
	if q.Version != "" {
		query += " WHERE version = ?"
		args = append(args, q.Version)
	}
	query += " ORDER BY " + q.orderBy()

	rows, err := idx.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id, relatedTasksJSON, tagsJSON string
		if err := rows.Scan(&id, &relatedTasksJSON, &tagsJSON); err != nil {
			return nil, err
		}
		if q.TaskID != "" {
			var relatedTasks []string
			if err := json.Unmarshal([]byte(relatedTasksJSON), &relatedTasks); err != nil {
				return nil, err
			}
			matched := false
			for _, t := range relatedTasks {
				if t == q.TaskID {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		if len(q.Tags) > 0 {
			var tags []string
			if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
				return nil, err
			}
			if !containsAll(tags, q.Tags) {
				continue
			}
		}
		out = append(out, id)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, rows.Err()
}

// GetRecentChangelogs lists up to limit changelog ids ordered by
// completedAt descending.
func (idx *ChangelogIndex) GetRecentChangelogs(ctx context.Context, limit int) ([]string, error) {
	return idx.Query(ctx, ChangelogQuery{Limit: limit, SortBy: "completedAt", SortOrder: "desc"})
}

// Rebuild repopulates the index from every record in store, discarding any
// prior contents. Use this after a manual edit to the file store, or at
// startup if the index file was deleted.
func (idx *ChangelogIndex) Rebuild(ctx context.Context, store record.Store[validate.ChangelogPayload], resolver record.KeyResolver) error {
	if _, err := idx.db.ExecContext(ctx, "DELETE FROM changelog_index"); err != nil {
		return err
	}
	ids, err := store.List(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		rec, err := store.Get(ctx, id, resolver)
		if err != nil {
			return fmt.Errorf("index: rebuild: %s: %w", id, err)
		}
		if err := idx.Upsert(ctx, rec.Payload); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe registers idx as a changelog.created handler on bus, keeping
// the index current as new records are written. It does not handle
// updates or deletes: changelog records are append-only, so created is the
// only event that ever changes the index's contents.
func (idx *ChangelogIndex) Subscribe(ctx context.Context, bus *eventbus.Bus, store record.Store[validate.ChangelogPayload], resolver record.KeyResolver) eventbus.Subscription {
	return bus.Subscribe(eventbus.TypeChangelogCreated, func(e eventbus.Event) {
		id, _ := e.Payload["changelogId"].(string)
		if id == "" {
			return
		}
		rec, err := store.Get(ctx, id, resolver)
		if err != nil {
			return
		}
		_ = idx.Upsert(ctx, rec.Payload)
	})
}
