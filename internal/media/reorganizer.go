// Package media migrates assets uploaded under a session-scoped placeholder
// into permanent, record-scoped locations once the owning record has its
// real identifier.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brickworks/listings/internal/model"
	"github.com/brickworks/listings/internal/storage"
)

// Mapping records one migrated asset: the temporary URL a record still
// references and the permanent URL that replaces it.
type Mapping struct {
	OldURL string
	NewURL string
}

type Reorganizer struct {
	assets     storage.AssetStore
	tempPrefix string

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per record id
}

func NewReorganizer(assets storage.AssetStore, tempPrefix string) *Reorganizer {
	return &Reorganizer{
		assets:     assets,
		tempPrefix: tempPrefix,
		locks:      map[string]*sync.Mutex{},
	}
}

// IsTemporary reports whether a reference value points at a session-scoped
// upload, i.e. one that should be migrated once the record has its id.
func (r *Reorganizer) IsTemporary(url string) bool {
	return url != "" && strings.Contains(url, r.tempPrefix)
}

// Reorganize migrates each temporary asset to a location scoped by recordID
// and its role, and returns the old→new URL mapping for the ones that made
// it. Assets are processed independently: one failed fetch or upload drops
// that asset from the mapping and nothing else. The whole call never fails
// short of context cancellation.
//
// A temporary URL referenced by several fields (a gallery entry doubling as
// the banner, say) is migrated once; the single mapping entry rewrites every
// field that carried it.
//
// Re-running with an already-migrated URL is safe: the temporary asset no
// longer resolves, the fetch fails, and the asset is skipped without
// creating a second permanent copy.
//
// Overlapping calls for the same record are serialized so two callers can
// not both migrate the same temporary asset.
func (r *Reorganizer) Reorganize(ctx context.Context, recordID string, refs []model.MediaRef) ([]Mapping, error) {
	unlock := r.lockRecord(recordID)
	defer unlock()

	// One migration per distinct URL, first occurrence wins the role.
	seen := make(map[string]bool, len(refs))
	distinct := make([]model.MediaRef, 0, len(refs))
	for _, ref := range refs {
		if !r.IsTemporary(ref.URL) || seen[ref.URL] {
			continue
		}
		seen[ref.URL] = true
		distinct = append(distinct, ref)
	}

	results := make([]*Mapping, len(distinct))
	var wg sync.WaitGroup
	for i, ref := range distinct {
		wg.Add(1)
		go func(i int, ref model.MediaRef) {
			defer wg.Done()
			results[i] = r.migrate(ctx, recordID, ref)
		}(i, ref)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// Compact in input order so the mapping is deterministic regardless of
	// which goroutine finished first.
	mappings := make([]Mapping, 0, len(distinct))
	for _, m := range results {
		if m != nil {
			mappings = append(mappings, *m)
		}
	}
	return mappings, nil
}

// migrate moves one asset. Returns nil when the asset is skipped.
func (r *Reorganizer) migrate(ctx context.Context, recordID string, ref model.MediaRef) *Mapping {
	data, err := r.assets.Fetch(ctx, ref.URL)
	if err != nil {
		// Already consumed by an earlier run, or genuinely gone. The record
		// keeps its current reference, degraded but valid.
		slog.Warn("skipping media asset, fetch failed", "url", ref.URL, "record_id", recordID, "error", err)
		return nil
	}

	name := PermanentName(recordID, ref.Role)
	contentType := http.DetectContentType(data)

	newURL, err := r.assets.Upload(ctx, name, data, contentType)
	if err != nil {
		slog.Error("skipping media asset, upload failed", "url", ref.URL, "name", name, "record_id", recordID, "error", err)
		return nil
	}

	// Cleanup is best-effort: a leaked temporary asset costs storage, a
	// propagated error would fail an otherwise successful migration.
	err = r.assets.Delete(ctx, ref.URL)
	if err != nil {
		slog.Warn("failed to delete temporary asset", "url", ref.URL, "error", err)
	}

	slog.Info("media asset reorganized", "record_id", recordID, "role", ref.Role, "from", ref.URL, "to", newURL)
	return &Mapping{OldURL: ref.URL, NewURL: newURL}
}

// PermanentName derives the record-scoped storage name for an asset. The
// timestamp keeps names sortable; the uuid fragment keeps parallel workers
// in one batch from colliding.
func PermanentName(recordID string, role model.MediaRole) string {
	return fmt.Sprintf("records/%s/%s-%d-%s", recordID, role, time.Now().UnixNano(), uuid.New().String()[:8])
}

func (r *Reorganizer) lockRecord(id string) func() {
	r.mu.Lock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	r.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// AsMap converts a mapping slice to the lookup form used for reference
// rewriting.
func AsMap(mappings []Mapping) map[string]string {
	m := make(map[string]string, len(mappings))
	for _, entry := range mappings {
		m[entry.OldURL] = entry.NewURL
	}
	return m
}
