package store

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"murmur/internal/types"
)

func newTestStore(t *testing.T) *EngagementStore {
	t.Helper()
	return NewEngagementStore(filepath.Join(t.TempDir(), "relationships.json"))
}

func ev(kind types.SignalKind, ref string, at time.Time) InteractionEvent {
	return InteractionEvent{Kind: kind, RefID: ref, Timestamp: at}
}

func TestRecordInteractionDedupByRef(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	if !s.RecordInteraction("alice", "Alice", ev(types.SignalReply, "r1", now)) {
		t.Fatal("first record should succeed")
	}
	if s.RecordInteraction("alice", "Alice", ev(types.SignalReply, "r1", now)) {
		t.Error("same RefID should not record twice")
	}

	rec, ok := s.Get("alice")
	if !ok {
		t.Fatal("relationship should exist")
	}
	if len(rec.Interactions) != 1 {
		t.Errorf("interactions = %d, want 1", len(rec.Interactions))
	}
	if rec.DisplayName != "Alice" {
		t.Errorf("display name = %q", rec.DisplayName)
	}
}

func TestInteractionHistoryTruncated(t *testing.T) {
	s := newTestStore(t)
	base := time.Now()

	for i := 0; i < maxInteractionHistory+10; i++ {
		s.RecordInteraction("bob", "", ev(types.SignalLike,
			fmt.Sprintf("like-%d", i), base.Add(time.Duration(i)*time.Minute)))
	}

	rec, _ := s.Get("bob")
	if len(rec.Interactions) != maxInteractionHistory {
		t.Fatalf("interactions = %d, want %d", len(rec.Interactions), maxInteractionHistory)
	}
	// Oldest evicted, newest kept.
	if rec.Interactions[len(rec.Interactions)-1].RefID != fmt.Sprintf("like-%d", maxInteractionHistory+9) {
		t.Error("newest interaction should survive truncation")
	}
}

func TestDeriveSentiment(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name  string
		kinds []types.SignalKind
		want  Sentiment
	}{
		{"single interaction stays unknown", []types.SignalKind{types.SignalLike}, SentimentUnknown},
		{"two warm kinds go positive", []types.SignalKind{types.SignalLike, types.SignalRepost}, SentimentPositive},
		{"conversation only is neutral", []types.SignalKind{types.SignalReply, types.SignalMention}, SentimentNeutral},
		{"one warm among replies is neutral", []types.SignalKind{types.SignalReply, types.SignalLike}, SentimentNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			for i, k := range tt.kinds {
				s.RecordInteraction("x", "", ev(k, fmt.Sprintf("e%d", i), now))
			}
			rec, _ := s.Get("x")
			if rec.Sentiment != tt.want {
				t.Errorf("sentiment = %s, want %s", rec.Sentiment, tt.want)
			}
		})
	}
}

func TestMarkRespondedAndLookup(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	s.RecordInteraction("carol", "", ev(types.SignalMention, "m1", now))

	if s.IsResponded("m1") {
		t.Error("m1 should not be responded yet")
	}
	s.MarkResponded("carol", "m1", "our-reply-1")
	if !s.IsResponded("m1") {
		t.Error("m1 should be responded")
	}

	rec, _ := s.Get("carol")
	if !rec.Responded {
		t.Error("relationship Responded flag should be set")
	}
	if rec.Interactions[0].ResponseRef != "our-reply-1" {
		t.Errorf("response ref = %q", rec.Interactions[0].ResponseRef)
	}

	// Unknown relationship is a logged no-op.
	s.MarkResponded("nobody", "x", "y")
}

func TestFrictionLifecycle(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	if s.HasActionableFriction() {
		t.Error("fresh store should have no friction")
	}
	s.AddFriction(FrictionRecord{ID: "f1", Loop: "awareness", Message: "fetch failed", Timestamp: now})
	if !s.HasActionableFriction() {
		t.Error("unresolved friction should be actionable")
	}

	s.TouchImprovement(now)
	if s.HasActionableFriction() {
		t.Error("improvement pass should resolve frictions")
	}
	if s.Reflection().LastImprovementAt.IsZero() {
		t.Error("improvement timestamp missing")
	}
}

func TestPostingStateBounded(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	for i := 0; i < 25; i++ {
		s.RecordPost(now, fmt.Sprintf("topic-%d", i))
	}
	p := s.Posting()
	if p.TotalPosts != 25 {
		t.Errorf("total posts = %d, want 25", p.TotalPosts)
	}
	if len(p.RecentTopics) != 20 {
		t.Errorf("recent topics = %d, want 20", len(p.RecentTopics))
	}
}

func TestStoreSurvivesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relationships.json")
	if err := os.WriteFile(path, []byte("@@corrupt@@"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewEngagementStore(path)
	if s.Count() != 0 {
		t.Errorf("corrupt store should start fresh, got %d relationships", s.Count())
	}

	// And it can record and save over the corruption.
	s.RecordInteraction("dave", "", ev(types.SignalFollow, "f1", time.Now()))
	if err := s.Save(); err != nil {
		t.Fatalf("save over corrupt file: %v", err)
	}

	reloaded := NewEngagementStore(path)
	if reloaded.Count() != 1 {
		t.Errorf("reloaded count = %d, want 1", reloaded.Count())
	}
}
