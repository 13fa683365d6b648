package triage

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"murmur/internal/config"
	"murmur/internal/store"
	"murmur/internal/types"
)

// fakeRels is a canned RelationshipSource.
type fakeRels struct {
	records   map[string]store.RelationshipRecord
	responded map[string]bool
}

func (f *fakeRels) Get(id string) (store.RelationshipRecord, bool) {
	rec, ok := f.records[id]
	return rec, ok
}

func (f *fakeRels) IsResponded(refID string) bool {
	return f.responded[refID]
}

func testConfig() config.TriageConfig {
	return config.TriageConfig{PrincipalID: "principal", RecurringMinInteractions: 5}
}

func interactions(n int) []store.InteractionEvent {
	out := make([]store.InteractionEvent, n)
	for i := range out {
		out[i] = store.InteractionEvent{RefID: fmt.Sprintf("i%d", i)}
	}
	return out
}

func TestScoreAdditive(t *testing.T) {
	rels := &fakeRels{
		records: map[string]store.RelationshipRecord{
			"friend": {
				ID:           "friend",
				Interactions: interactions(6),
				Sentiment:    store.SentimentPositive,
				Responded:    true,
			},
		},
		responded: map[string]bool{},
	}
	p := New(rels, testConfig())

	tests := []struct {
		name string
		sig  types.Signal
		want int
	}{
		{
			name: "unread mention from new connection",
			sig:  types.Signal{ID: "s1", AuthorID: "stranger", Kind: types.SignalMention},
			want: 50 + 30 + 5 + 10,
		},
		{
			name: "read like from recurring positive friend",
			sig:  types.Signal{ID: "s2", AuthorID: "friend", Kind: types.SignalLike, IsRead: true},
			want: 50 + 15 + 10,
		},
		{
			name: "unread reply to our own content from stranger",
			sig:  types.Signal{ID: "s3", AuthorID: "stranger", Kind: types.SignalReply, SubjectID: "our-post"},
			want: 50 + 50 + 30 + 5 + 10,
		},
		{
			name: "unread quote from principal",
			sig:  types.Signal{ID: "s4", AuthorID: "principal", Kind: types.SignalQuote},
			want: 50 + 25 + 50 + 5 + 10,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.score(tt.sig)
			if got.Priority != tt.want {
				t.Errorf("priority = %d, want %d (reasons: %v)", got.Priority, tt.want, got.Reasons)
			}
		})
	}
}

func TestPrioritizeDropsResponded(t *testing.T) {
	rels := &fakeRels{
		records:   map[string]store.RelationshipRecord{},
		responded: map[string]bool{"done": true},
	}
	p := New(rels, testConfig())

	notifs := p.Prioritize([]types.Signal{
		{ID: "done", AuthorID: "a", Kind: types.SignalReply},
		{ID: "fresh", AuthorID: "b", Kind: types.SignalReply},
	})
	if len(notifs) != 1 || notifs[0].Signal.ID != "fresh" {
		t.Errorf("expected only the fresh signal, got %+v", notifs)
	}
}

func TestGroupThreadsOrdering(t *testing.T) {
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	rels := &fakeRels{
		records: map[string]store.RelationshipRecord{
			"regular": {ID: "regular", Interactions: interactions(8), Responded: true},
		},
		responded: map[string]bool{},
	}
	p := New(rels, testConfig())

	signals := []types.Signal{
		// Highest raw priority but no principal, no recurring.
		{ID: "hot", AuthorID: "stranger", Kind: types.SignalReply, SubjectID: "ours",
			ThreadRootID: "t-hot", Timestamp: base},
		// Low score, but from the principal.
		{ID: "boss", AuthorID: "principal", Kind: types.SignalLike, IsRead: true,
			ThreadRootID: "t-principal", Timestamp: base.Add(3 * time.Hour)},
		// Recurring engager.
		{ID: "reg", AuthorID: "regular", Kind: types.SignalReply,
			ThreadRootID: "t-recurring", Timestamp: base.Add(2 * time.Hour)},
		// Plain signals in two threads with equal priority, different ages.
		{ID: "old", AuthorID: "x", Kind: types.SignalMention,
			ThreadRootID: "t-old", Timestamp: base.Add(1 * time.Hour)},
		{ID: "new", AuthorID: "y", Kind: types.SignalMention,
			ThreadRootID: "t-new", Timestamp: base.Add(2 * time.Hour)},
	}

	threads := p.GroupThreads(p.Prioritize(signals))

	var got []string
	for _, th := range threads {
		got = append(got, th.RootID)
	}
	want := []string{"t-principal", "t-recurring", "t-hot", "t-old", "t-new"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("thread order mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupThreadsMembersChronological(t *testing.T) {
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	p := New(&fakeRels{records: map[string]store.RelationshipRecord{}, responded: map[string]bool{}}, testConfig())

	signals := []types.Signal{
		{ID: "late", AuthorID: "a", Kind: types.SignalReply, ThreadRootID: "t", Timestamp: base.Add(time.Hour)},
		{ID: "early", AuthorID: "b", Kind: types.SignalReply, ThreadRootID: "t", Timestamp: base},
	}
	threads := p.GroupThreads(p.Prioritize(signals))
	if len(threads) != 1 {
		t.Fatalf("threads = %d, want 1", len(threads))
	}
	if threads[0].Members[0].Signal.ID != "early" {
		t.Error("members should be chronological, oldest first")
	}
	if !threads[0].OldestTimestamp.Equal(base) {
		t.Errorf("oldest timestamp = %v, want %v", threads[0].OldestTimestamp, base)
	}
}

func TestGroupThreadsSingletonForNonThreaded(t *testing.T) {
	p := New(&fakeRels{records: map[string]store.RelationshipRecord{}, responded: map[string]bool{}}, testConfig())

	threads := p.GroupThreads(p.Prioritize([]types.Signal{
		{ID: "f1", AuthorID: "a", Kind: types.SignalFollow},
		{ID: "f2", AuthorID: "b", Kind: types.SignalFollow},
	}))
	if len(threads) != 2 {
		t.Fatalf("threads = %d, want 2 singleton groups", len(threads))
	}
	if threads[0].RootID != "f1" && threads[1].RootID != "f1" {
		t.Error("singleton group should be keyed by signal id")
	}
}

func TestFlattenPreservesThreadOrder(t *testing.T) {
	threads := []TriagedThread{
		{RootID: "a", Members: []PrioritizedNotification{
			{Signal: types.Signal{ID: "a1"}}, {Signal: types.Signal{ID: "a2"}},
		}},
		{RootID: "b", Members: []PrioritizedNotification{
			{Signal: types.Signal{ID: "b1"}},
		}},
	}
	var got []string
	for _, n := range Flatten(threads) {
		got = append(got, n.Signal.ID)
	}
	if diff := cmp.Diff([]string{"a1", "a2", "b1"}, got); diff != "" {
		t.Errorf("flatten order (-want +got):\n%s", diff)
	}
}

func TestHasUrgent(t *testing.T) {
	tests := []struct {
		name    string
		signals []types.Signal
		want    bool
	}{
		{"unread mention", []types.Signal{{Kind: types.SignalMention}}, true},
		{"unread reply to ours", []types.Signal{{Kind: types.SignalLike, SubjectID: "p"}}, true},
		{"read mention", []types.Signal{{Kind: types.SignalMention, IsRead: true}}, false},
		{"unread like only", []types.Signal{{Kind: types.SignalLike}}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasUrgent(tt.signals); got != tt.want {
				t.Errorf("HasUrgent = %v, want %v", got, tt.want)
			}
		})
	}
}
