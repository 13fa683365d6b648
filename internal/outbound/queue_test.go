package outbound

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"murmur/internal/config"
	"murmur/internal/types"
)

// nopPacer records calls without ever blocking.
type nopPacer struct {
	waits   int
	records int
	waitErr error
}

func (p *nopPacer) Wait(ctx context.Context, kind types.OutboundKind) error {
	p.waits++
	return p.waitErr
}

func (p *nopPacer) Record(kind types.OutboundKind) { p.records++ }

func newTestQueue(t *testing.T, pacer Pacer) *Queue {
	t.Helper()
	cfg := config.DefaultOutboundConfig()
	return NewQueue(filepath.Join(t.TempDir(), "outbound.json"), "did:agent", cfg, pacer)
}

func TestEnqueueBlocksSessionDuplicates(t *testing.T) {
	pacer := &nopPacer{}
	q := newTestQueue(t, pacer)
	ctx := context.Background()

	res, err := q.Enqueue(ctx, types.OutboundPost, "An original thought", "")
	if err != nil || !res.Allowed {
		t.Fatalf("first enqueue = (%+v, %v)", res, err)
	}

	// Near-duplicate: same text modulo case and whitespace.
	res, err = q.Enqueue(ctx, types.OutboundPost, "an  ORIGINAL thought", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatal("near-duplicate should be blocked")
	}
	if res.Reason != "near-duplicate of content already sent this session" {
		t.Errorf("reason = %q", res.Reason)
	}

	// Rejection had no side effects: one wait, one record, one entry.
	if pacer.waits != 1 || pacer.records != 1 {
		t.Errorf("pacer calls = %d waits, %d records, want 1/1", pacer.waits, pacer.records)
	}
	if q.Len() != 1 {
		t.Errorf("window = %d entries, want 1", q.Len())
	}
}

func TestEnqueueBlocksFeedDuplicates(t *testing.T) {
	q := newTestQueue(t, &nopPacer{})

	seeded := q.WarmupFromFeed([]FeedItem{{
		Ref:       "at://feed/post/1",
		AuthorID:  "did:agent",
		Text:      "Building resilient distributed systems requires careful fault tolerance design",
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}})
	if seeded != 1 {
		t.Fatalf("seeded = %d, want 1", seeded)
	}

	// The same sentence, differently cased, generated hours later.
	res, err := q.Enqueue(context.Background(), types.OutboundPost,
		"BUILDING RESILIENT DISTRIBUTED SYSTEMS REQUIRES CAREFUL FAULT TOLERANCE DESIGN", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatal("feed duplicate should be blocked")
	}
	if res.Reason != "duplicate of post already in feed" {
		t.Errorf("reason = %q", res.Reason)
	}
}

func TestWarmupSkipsReposts(t *testing.T) {
	q := newTestQueue(t, &nopPacer{})

	seeded := q.WarmupFromFeed([]FeedItem{
		{Ref: "r1", AuthorID: "did:agent", Text: "our own words", IsRepost: false},
		{Ref: "r2", AuthorID: "did:someone", Text: "someone else's words", IsRepost: true},
		{Ref: "r3", AuthorID: "did:agent", Text: "boosted third-party text", IsRepost: true},
	})
	if seeded != 1 {
		t.Errorf("seeded = %d, want 1 (reposts carry someone else's text)", seeded)
	}

	// The third-party text must remain sendable as our own original.
	res, err := q.Enqueue(context.Background(), types.OutboundPost, "boosted third-party text", "")
	if err != nil || !res.Allowed {
		t.Errorf("repost text should not suppress our own content: (%+v, %v)", res, err)
	}
}

func TestWindowEviction(t *testing.T) {
	cfg := config.DefaultOutboundConfig()
	cfg.WindowSize = 3
	q := NewQueue(filepath.Join(t.TempDir(), "outbound.json"), "did:agent", cfg, &nopPacer{})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if res, err := q.Enqueue(ctx, types.OutboundPost, fmt.Sprintf("unique text %d", i), ""); err != nil || !res.Allowed {
			t.Fatalf("enqueue %d: (%+v, %v)", i, res, err)
		}
	}
	if q.Len() != 3 {
		t.Errorf("window = %d, want 3", q.Len())
	}

	// The oldest fingerprint was evicted, so its text is allowed again.
	res, err := q.Enqueue(ctx, types.OutboundPost, "unique text 0", "")
	if err != nil || !res.Allowed {
		t.Errorf("evicted text should be allowed again: (%+v, %v)", res, err)
	}
}

func TestEnqueuePacerErrorPropagates(t *testing.T) {
	pacer := &nopPacer{waitErr: context.Canceled}
	q := newTestQueue(t, pacer)

	_, err := q.Enqueue(context.Background(), types.OutboundReply, "text", "")
	if err == nil {
		t.Fatal("pacer error should propagate")
	}
	if q.Len() != 0 {
		t.Error("aborted enqueue must not record a fingerprint")
	}
}

func TestQueuePersistsWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outbound.json")
	cfg := config.DefaultOutboundConfig()

	q := NewQueue(path, "did:agent", cfg, &nopPacer{})
	if res, err := q.Enqueue(context.Background(), types.OutboundPost, "persisted thought", ""); err != nil || !res.Allowed {
		t.Fatalf("enqueue: (%+v, %v)", res, err)
	}
	if err := q.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded := NewQueue(path, "did:agent", cfg, &nopPacer{})
	res, err := reloaded.Enqueue(context.Background(), types.OutboundPost, "persisted thought", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Error("fingerprint window should survive restart")
	}
}

func TestIntervalPacer(t *testing.T) {
	cfg := config.DefaultOutboundConfig()
	p := NewIntervalPacer(cfg)

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var slept time.Duration
	p.now = func() time.Time { return now }
	p.sleep = func(ctx context.Context, d time.Duration) error {
		slept += d
		now = now.Add(d)
		return nil
	}

	ctx := context.Background()

	// First action of a kind never waits.
	if err := p.Wait(ctx, types.OutboundReply); err != nil {
		t.Fatal(err)
	}
	if slept != 0 {
		t.Errorf("first wait slept %v", slept)
	}
	p.Record(types.OutboundReply)

	// Immediate follow-up waits the full reply cooldown.
	if err := p.Wait(ctx, types.OutboundReply); err != nil {
		t.Fatal(err)
	}
	if slept != cfg.GetReplyCooldown() {
		t.Errorf("slept %v, want %v", slept, cfg.GetReplyCooldown())
	}

	// Kinds pace independently: a post is not blocked by the reply.
	slept = 0
	if err := p.Wait(ctx, types.OutboundPost); err != nil {
		t.Fatal(err)
	}
	if slept != 0 {
		t.Errorf("post wait slept %v, want 0", slept)
	}
}
