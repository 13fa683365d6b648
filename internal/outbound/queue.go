package outbound

import (
	"context"
	"sync"
	"time"

	"murmur/internal/config"
	"murmur/internal/logging"
	"murmur/internal/store"
	"murmur/internal/types"
)

// DedupEntry is one recorded fingerprint with minimal metadata.
type DedupEntry struct {
	Fingerprint string    `json:"fingerprint"`
	FirstSeen   time.Time `json:"first_seen"`
	OriginRef   string    `json:"origin_ref,omitempty"`
	FromFeed    bool      `json:"from_feed"` // seeded from the live feed, not this runtime
}

// Result is the enqueue verdict.
type Result struct {
	Allowed bool
	Reason  string
}

// FeedItem is one item of the platform's recent output used to warm up the
// dedup set.
type FeedItem struct {
	Ref       string
	AuthorID  string
	Text      string
	IsRepost  bool // boosted content authored by someone else
	CreatedAt time.Time
}

// queueState is the on-disk document: the rolling fingerprint window.
type queueState struct {
	Entries []DedupEntry `json:"entries"`
}

// Queue is the outbound dedup and pacing gate.
type Queue struct {
	mu      sync.Mutex
	path    string
	agentID string
	cfg     config.OutboundConfig
	pacer   Pacer
	index   map[string]DedupEntry
	state   queueState
	now     func() time.Time
}

// NewQueue loads (or freshly creates) the outbound queue.
func NewQueue(path, agentID string, cfg config.OutboundConfig, pacer Pacer) *Queue {
	q := &Queue{
		path:    path,
		agentID: agentID,
		cfg:     cfg,
		pacer:   pacer,
		index:   make(map[string]DedupEntry),
		now:     time.Now,
	}
	if store.LoadJSON(path, &q.state) {
		for _, e := range q.state.Entries {
			q.index[e.Fingerprint] = e
		}
		logging.Outbound("outbound queue loaded: %d fingerprints", len(q.state.Entries))
	}
	return q
}

// Save persists the fingerprint window. Best-effort.
func (q *Queue) Save() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := store.SaveJSON(q.path, &q.state); err != nil {
		logging.StoreWarn("outbound queue save failed: %v", err)
		return err
	}
	return nil
}

// WarmupFromFeed seeds the dedup set from the platform's recent output so a
// cold-started process does not re-post something already live. Reposts of
// other authors' content are excluded: only our own organic content should
// suppress future duplicates of itself.
func (q *Queue) WarmupFromFeed(items []FeedItem) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	seeded := 0
	for _, item := range items {
		if item.IsRepost {
			continue // boosts carry someone else's text, ours included
		}
		fp := Fingerprint(item.Text, q.cfg.FingerprintPrefixLen)
		if _, exists := q.index[fp]; exists {
			continue
		}
		q.insert(DedupEntry{
			Fingerprint: fp,
			FirstSeen:   item.CreatedAt,
			OriginRef:   item.Ref,
			FromFeed:    true,
		})
		seeded++
	}
	logging.Outbound("warmed up %d fingerprints from feed (%d items)", seeded, len(items))
	return seeded
}

// Enqueue is the gate for one piece of generated content. On success the
// pacing cooldown has been awaited and the fingerprint recorded; on
// rejection there are no side effects at all.
func (q *Queue) Enqueue(ctx context.Context, kind types.OutboundKind, text, originRef string) (Result, error) {
	fp := Fingerprint(text, q.cfg.FingerprintPrefixLen)

	q.mu.Lock()
	if entry, exists := q.index[fp]; exists {
		q.mu.Unlock()
		reason := "near-duplicate of content already sent this session"
		if entry.FromFeed {
			reason = "duplicate of post already in feed"
		}
		logging.Outbound("blocked %s: %s (fp=%s)", kind, reason, fp[:8])
		return Result{Allowed: false, Reason: reason}, nil
	}
	q.mu.Unlock()

	// The cooldown gate may block; the dedup set is only appended to after
	// it clears, so the await cannot interleave with a conflicting insert
	// from this single-flight pipeline.
	if err := q.pacer.Wait(ctx, kind); err != nil {
		return Result{}, err
	}

	q.mu.Lock()
	q.insert(DedupEntry{
		Fingerprint: fp,
		FirstSeen:   q.now(),
		OriginRef:   originRef,
	})
	q.mu.Unlock()

	q.pacer.Record(kind)
	logging.OutboundDebug("allowed %s (fp=%s)", kind, fp[:8])
	return Result{Allowed: true}, nil
}

// insert adds an entry, evicting the oldest when the window is full.
// Callers hold the lock.
func (q *Queue) insert(e DedupEntry) {
	if len(q.state.Entries) >= q.cfg.WindowSize {
		evicted := q.state.Entries[0]
		q.state.Entries = q.state.Entries[1:]
		delete(q.index, evicted.Fingerprint)
	}
	q.state.Entries = append(q.state.Entries, e)
	q.index[e.Fingerprint] = e
}

// Len returns the number of recorded fingerprints.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.state.Entries)
}
