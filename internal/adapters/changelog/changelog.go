// Package changelog implements the changelog adapter: append-only
// ChangelogRecords summarizing a set of completed tasks.
package changelog

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gitgovernance/core/internal/adapters/common"
	"github.com/gitgovernance/core/internal/eventbus"
	"github.com/gitgovernance/core/internal/index"
	"github.com/gitgovernance/core/internal/record"
	"github.com/gitgovernance/core/internal/validate"
)

// ChangelogIndex is satisfied by index.ChangelogIndex and
// index.MySQLChangelogIndex. Wiring one into Adapter.Index lets
// GetAllChangelogs and GetRecentChangelogs answer filtered, sorted
// queries without scanning every record; it is optional, since the file
// store alone is always sufficient to answer them correctly, just slower.
type ChangelogIndex interface {
	Query(ctx context.Context, q index.ChangelogQuery) ([]string, error)
	GetRecentChangelogs(ctx context.Context, limit int) ([]string, error)
}

// TaskExistence is satisfied by the backlog adapter; the changelog adapter
// depends on it only to confirm relatedTasks/relatedCycles reference real
// records, never to read or mutate task/cycle state.
type TaskExistence interface {
	TaskExists(ctx context.Context, id string) (bool, error)
	CycleExists(ctx context.Context, id string) (bool, error)
}

// Adapter creates and queries ChangelogRecords.
type Adapter struct {
	Store    record.Store[validate.ChangelogPayload]
	Signer   common.Signer
	Resolver record.KeyResolver
	Bus      *eventbus.Bus
	Backlog  TaskExistence
	Now      func() time.Time

	// Index, if set, answers GetAllChangelogs/GetRecentChangelogs from a
	// query index instead of a full store scan.
	Index ChangelogIndex
}

// New creates a changelog Adapter.
func New(store record.Store[validate.ChangelogPayload], signer common.Signer, resolver record.KeyResolver, bus *eventbus.Bus, backlog TaskExistence) *Adapter {
	return &Adapter{Store: store, Signer: signer, Resolver: resolver, Bus: bus, Backlog: backlog, Now: time.Now}
}

// CreateChangelog validates that every referenced task/cycle exists, fills
// defaults, signs, persists, and publishes changelog.created.
func (a *Adapter) CreateChangelog(ctx context.Context, partial validate.ChangelogPayload, actorID string) (record.Record[validate.ChangelogPayload], error) {
	var rec record.Record[validate.ChangelogPayload]

	payload, err := validate.CreateChangelogPayload(partial, a.Now())
	if err != nil {
		return rec, err
	}

	for _, taskID := range payload.RelatedTasks {
		ok, err := a.Backlog.TaskExists(ctx, taskID)
		if err != nil {
			return rec, err
		}
		if !ok {
			return rec, fmt.Errorf("changelog: relatedTasks references unknown task %q", taskID)
		}
	}
	for _, cycleID := range payload.RelatedCycles {
		ok, err := a.Backlog.CycleExists(ctx, cycleID)
		if err != nil {
			return rec, err
		}
		if !ok {
			return rec, fmt.Errorf("changelog: relatedCycles references unknown cycle %q", cycleID)
		}
	}

	rec, err = common.NewRecord(payload, record.KindChangelog, a.Signer, actorID, "author", "")
	if err != nil {
		return rec, err
	}
	if err := a.Store.Put(ctx, payload.ID, rec, a.Resolver); err != nil {
		return rec, err
	}

	a.Bus.Publish(eventbus.ChangelogCreated("changelog", payload.ID, payload.RelatedTasks, payload.Title, payload.Version))
	return rec, nil
}

// GetChangelog fetches the ChangelogRecord for id.
func (a *Adapter) GetChangelog(ctx context.Context, id string) (record.Record[validate.ChangelogPayload], error) {
	return a.Store.Get(ctx, id, a.Resolver)
}

// GetChangelogsByTask lists every ChangelogRecord naming taskID in
// RelatedTasks.
func (a *Adapter) GetChangelogsByTask(ctx context.Context, taskID string) ([]record.Record[validate.ChangelogPayload], error) {
	ids, err := a.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []record.Record[validate.ChangelogPayload]
	for _, id := range ids {
		rec, err := a.GetChangelog(ctx, id)
		if err != nil {
			return nil, err
		}
		if contains(rec.Payload.RelatedTasks, taskID) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// GetAllChangelogs lists every ChangelogRecord, filtered by q.Tags (every
// listed tag must be present) and q.Version (exact match, skipped when
// empty), sorted by q.SortBy/q.SortOrder (defaulting to completedAt
// desc), and capped at q.Limit (zero skips the cap). When a.Index is
// wired the listing and sort are delegated to it; otherwise this scans
// the store directly, which is always correct since the index is only
// ever an optimization over the store.
func (a *Adapter) GetAllChangelogs(ctx context.Context, q index.ChangelogQuery) ([]record.Record[validate.ChangelogPayload], error) {
	if a.Index != nil {
		ids, err := a.Index.Query(ctx, q)
		if err != nil {
			return nil, err
		}
		return a.hydrate(ctx, ids)
	}

	ids, err := a.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []record.Record[validate.ChangelogPayload]
	for _, id := range ids {
		rec, err := a.GetChangelog(ctx, id)
		if err != nil {
			return nil, err
		}
		if q.Version != "" && rec.Payload.Version != q.Version {
			continue
		}
		if len(q.Tags) > 0 && !containsAllTags(rec.Payload.Tags, q.Tags) {
			continue
		}
		out = append(out, rec)
	}
	sortChangelogs(out, q.SortBy, q.SortOrder)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// GetRecentChangelogs lists the limit most recently completed
// ChangelogRecords, newest first.
func (a *Adapter) GetRecentChangelogs(ctx context.Context, limit int) ([]record.Record[validate.ChangelogPayload], error) {
	if a.Index != nil {
		ids, err := a.Index.GetRecentChangelogs(ctx, limit)
		if err != nil {
			return nil, err
		}
		return a.hydrate(ctx, ids)
	}
	return a.GetAllChangelogs(ctx, index.ChangelogQuery{Limit: limit, SortBy: "completedAt", SortOrder: "desc"})
}

func (a *Adapter) hydrate(ctx context.Context, ids []string) ([]record.Record[validate.ChangelogPayload], error) {
	out := make([]record.Record[validate.ChangelogPayload], 0, len(ids))
	for _, id := range ids {
		rec, err := a.GetChangelog(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func sortChangelogs(recs []record.Record[validate.ChangelogPayload], sortBy, sortOrder string) {
	asc := sortOrder == "asc"
	less := func(i, j int) bool {
		var a, b string
		if sortBy == "title" {
			a, b = recs[i].Payload.Title, recs[j].Payload.Title
		} else {
			a, b = recs[i].Payload.CompletedAt, recs[j].Payload.CompletedAt
		}
		if asc {
			return a < b
		}
		return a > b
	}
	sort.SliceStable(recs, less)
}

func contains(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}

func containsAllTags(haystack, needles []string) bool {
	for _, needle := range needles {
		if !contains(haystack, needle) {
			return false
		}
	}
	return true
}
