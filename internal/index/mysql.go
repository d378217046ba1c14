package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/gitgovernance/core/internal/eventbus"
	"github.com/gitgovernance/core/internal/record"
	"github.com/gitgovernance/core/internal/validate"
)

// MySQLChangelogIndex is the same query index as ChangelogIndex, backed by
// MySQL for deployments that already run a shared MySQL instance instead of
// per-checkout SQLite files.
type MySQLChangelogIndex struct {
	db *sql.DB
}

// NewMySQLChangelogIndex opens a connection to dsn and ensures its schema
// exists.
func NewMySQLChangelogIndex(dsn string) (*MySQLChangelogIndex, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("index: open mysql: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("index: ping mysql: %w", err)
	}

	idx := &MySQLChangelogIndex{db: db}
	if err := idx.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *MySQLChangelogIndex) createTables(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS changelog_index (
			id VARCHAR(255) PRIMARY KEY,
			title TEXT NOT NULL,
			version VARCHAR(64),
			completed_at VARCHAR(64) NOT NULL,
			related_tasks TEXT NOT NULL,
			related_cycles TEXT NOT NULL,
			tags TEXT NOT NULL,
			INDEX idx_changelog_completed_at (completed_at)
		)
	`
	_, err := idx.db.ExecContext(ctx, schema)
	return err
}

// Close closes the underlying database connection.
func (idx *MySQLChangelogIndex) Close() error {
	return idx.db.Close()
}

// Upsert inserts or replaces id's row from payload.
func (idx *MySQLChangelogIndex) Upsert(ctx context.Context, payload validate.ChangelogPayload) error {
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
		ON DUPLICATE KEY UPDATE
			title=VALUES(title), version=VALUES(version), completed_at=VALUES(completed_at),
			related_tasks=VALUES(related_tasks), related_cycles=VALUES(related_cycles), tags=VALUES(tags)
	`, payload.ID, payload.Title, payload.Version, payload.CompletedAt, string(relatedTasks), string(relatedCycles), string(tags))
	return err
}

// Delete removes id's row, if present.
func (idx *MySQLChangelogIndex) Delete(ctx context.Context, id string) error {
	_, err := idx.db.ExecContext(ctx, "DELETE FROM changelog_index WHERE id = ?", id)
	return err
}

// Query lists changelog ids matching q, filtered by TaskID/Tags/Version
// (each skipped when zero-valued), ordered and limited per q.SortBy/
// q.SortOrder/q.Limit. TaskID and Tags are matched in Go since they're
// stored as JSON arrays; Version is pushed into the SQL WHERE clause.
func (idx *MySQLChangelogIndex) Query(ctx context.Context, q ChangelogQuery) ([]string, error) {
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
func (idx *MySQLChangelogIndex) GetRecentChangelogs(ctx context.Context, limit int) ([]string, error) {
	return idx.Query(ctx, ChangelogQuery{Limit: limit, SortBy: "completedAt", SortOrder: "desc"})
}

// Rebuild repopulates the index from every record in store.
func (idx *MySQLChangelogIndex) Rebuild(ctx context.Context, store record.Store[validate.ChangelogPayload], resolver record.KeyResolver) error {
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

// Subscribe registers idx as a changelog.created handler on bus.
func (idx *MySQLChangelogIndex) Subscribe(ctx context.Context, bus *eventbus.Bus, store record.Store[validate.ChangelogPayload], resolver record.KeyResolver) eventbus.Subscription {
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
