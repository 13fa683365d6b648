package store

import (
	"testing"
	"time"
)

func TestMetricsArchiveRecordAndTopPerformers(t *testing.T) {
	m, err := NewMetricsArchive(t.TempDir())
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer m.Close()

	now := time.Now().UTC()
	rows := []OutcomeRow{
		{PostRef: "post-a", Likes: 10, Replies: 0, Reposts: 0, CheckedAt: now},
		{PostRef: "post-b", Likes: 2, Replies: 5, Reposts: 3, CheckedAt: now}, // score 18
		{PostRef: "post-c", Likes: 1, Replies: 0, Reposts: 0, CheckedAt: now},
	}
	for _, r := range rows {
		if err := m.Record(r); err != nil {
			t.Fatalf("record %s: %v", r.PostRef, err)
		}
	}

	top, err := m.TopPerformers(now.Add(-time.Hour), 2)
	if err != nil {
		t.Fatalf("top performers: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("got %d rows, want 2", len(top))
	}
	if top[0].PostRef != "post-b" {
		t.Errorf("top performer = %s, want post-b", top[0].PostRef)
	}
	if top[1].PostRef != "post-a" {
		t.Errorf("second = %s, want post-a", top[1].PostRef)
	}
	if want := now.Truncate(time.Second); !top[0].CheckedAt.Equal(want) {
		t.Errorf("checked_at = %v, want %v", top[0].CheckedAt, want)
	}
}

func TestMetricsArchiveCutoffExcludesOldRows(t *testing.T) {
	m, err := NewMetricsArchive(t.TempDir())
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer m.Close()

	now := time.Now().UTC()
	if err := m.Record(OutcomeRow{PostRef: "old", Likes: 99, CheckedAt: now.Add(-48 * time.Hour)}); err != nil {
		t.Fatal(err)
	}
	if err := m.Record(OutcomeRow{PostRef: "fresh", Likes: 1, CheckedAt: now}); err != nil {
		t.Fatal(err)
	}

	top, err := m.TopPerformers(now.Add(-time.Hour), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 1 || top[0].PostRef != "fresh" {
		t.Errorf("cutoff leaked old rows: %+v", top)
	}
}
