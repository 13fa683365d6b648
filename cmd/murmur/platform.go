package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"murmur/internal/scheduler"
	"murmur/internal/store"
	"murmur/internal/types"
)

// filePlatform is a local file-backed platform adapter. Inbound signals are
// read from inbox.json in the data directory, outbound content is appended
// to outbox.json, and engagement snapshots come from engagement.json. It
// stands in for a real network connector and is what integration setups and
// the triage/prune subcommands exercise.
type filePlatform struct {
	dir string

	mu sync.Mutex
}

func newFilePlatform(dir string) *filePlatform {
	return &filePlatform{dir: dir}
}

// outboxEntry is one line of record in outbox.json.
type outboxEntry struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Text       string    `json:"text"`
	ThreadRoot string    `json:"thread_root,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

func (p *filePlatform) EnsureValidSession(ctx context.Context) (bool, error) {
	// A file platform has no credentials; the session is valid when the
	// data directory is writable.
	probe := filepath.Join(p.dir, ".session_probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return false, fmt.Errorf("data directory not writable: %w", err)
	}
	_ = os.Remove(probe)
	return true, nil
}

func (p *filePlatform) FetchRecentSignals(ctx context.Context, limit int) ([]types.Signal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(p.dir, "inbox.json"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read inbox: %w", err)
	}
	var signals []types.Signal
	if err := json.Unmarshal(data, &signals); err != nil {
		return nil, fmt.Errorf("parse inbox: %w", err)
	}
	if limit > 0 && len(signals) > limit {
		signals = signals[len(signals)-limit:]
	}
	return signals, nil
}

func (p *filePlatform) Send(ctx context.Context, kind types.OutboundKind, text, threadRoot string) (scheduler.SendReceipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	path := filepath.Join(p.dir, "outbox.json")
	var entries []outboxEntry
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &entries)
	}

	entry := outboxEntry{
		ID:         uuid.NewString(),
		Kind:       kind.String(),
		Text:       text,
		ThreadRoot: threadRoot,
		SentAt:     time.Now(),
	}
	entries = append(entries, entry)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return scheduler.SendReceipt{}, err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return scheduler.SendReceipt{}, fmt.Errorf("write outbox: %w", err)
	}
	return scheduler.SendReceipt{ID: entry.ID}, nil
}

func (p *filePlatform) FetchEngagement(ctx context.Context, postRef string) (store.OutcomeRow, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	row := store.OutcomeRow{PostRef: postRef, CheckedAt: time.Now()}
	data, err := os.ReadFile(filepath.Join(p.dir, "engagement.json"))
	if os.IsNotExist(err) {
		return row, nil
	}
	if err != nil {
		return store.OutcomeRow{}, fmt.Errorf("read engagement: %w", err)
	}
	var byRef map[string]store.OutcomeRow
	if err := json.Unmarshal(data, &byRef); err != nil {
		return store.OutcomeRow{}, fmt.Errorf("parse engagement: %w", err)
	}
	if found, ok := byRef[postRef]; ok {
		row.Likes = found.Likes
		row.Replies = found.Replies
		row.Reposts = found.Reposts
	}
	return row, nil
}
