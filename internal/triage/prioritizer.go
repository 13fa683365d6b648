// Package triage converts a flat list of raw inbound signals into a
// priority-ordered, deduplicated, thread-grouped work list.
package triage

import (
	"fmt"
	"sort"
	"time"

	"murmur/internal/config"
	"murmur/internal/logging"
	"murmur/internal/store"
	"murmur/internal/types"
)

// Additive scoring weights. Base plus whichever boosts apply.
const (
	scoreBase            = 50
	boostOwnContentReply = 50 // signal responds to our own prior content
	boostDirect          = 30 // reply or mention
	boostQuote           = 25
	boostPrincipal       = 50 // from the designated principal identity
	boostPositive        = 15
	boostRecurring       = 10 // established relationship (>= N interactions)
	boostNeverResponded  = 20 // fairness: we have never responded to them
	boostNewConnection   = 5  // no relationship record yet
	boostUnread          = 10
)

// RelationshipSource is the slice of the engagement store triage needs.
type RelationshipSource interface {
	Get(id string) (store.RelationshipRecord, bool)
	IsResponded(refID string) bool
}

// PrioritizedNotification wraps a raw signal with its computed priority and
// a human-readable reason trail. Ephemeral, recomputed each cycle.
type PrioritizedNotification struct {
	Signal       types.Signal
	Priority     int
	Reasons      []string
	Relationship *store.RelationshipRecord // nil if no record exists
	IsOwnReply   bool                      // response to our own content
}

// TriagedThread groups prioritized notifications by thread root.
type TriagedThread struct {
	RootID          string
	Members         []PrioritizedNotification // chronological, oldest first
	HighestPriority int
	HasPrincipal    bool
	HasRecurring    bool
	OldestTimestamp time.Time
}

// Prioritizer scores and groups inbound signals.
type Prioritizer struct {
	rels RelationshipSource
	cfg  config.TriageConfig
}

// New creates a prioritizer over the given relationship source.
func New(rels RelationshipSource, cfg config.TriageConfig) *Prioritizer {
	return &Prioritizer{rels: rels, cfg: cfg}
}

// Prioritize scores the given signals, dropping any already responded to.
// The result carries a reason trail per signal for observability.
func (p *Prioritizer) Prioritize(signals []types.Signal) []PrioritizedNotification {
	out := make([]PrioritizedNotification, 0, len(signals))

	for _, sig := range signals {
		if p.rels.IsResponded(sig.ID) {
			logging.TriageDebug("dropping %s: already responded", sig.ID)
			continue
		}
		out = append(out, p.score(sig))
	}

	logging.Triage("prioritized %d/%d signals", len(out), len(signals))
	return out
}

func (p *Prioritizer) score(sig types.Signal) PrioritizedNotification {
	n := PrioritizedNotification{
		Signal:   sig,
		Priority: scoreBase,
		Reasons:  []string{fmt.Sprintf("base %d", scoreBase)},
	}

	if sig.SubjectID != "" {
		n.IsOwnReply = true
		n.add(boostOwnContentReply, "response to our own content")
	}

	switch sig.Kind {
	case types.SignalReply, types.SignalMention:
		n.add(boostDirect, "direct conversation")
	case types.SignalQuote:
		n.add(boostQuote, "quote")
	case types.SignalLike, types.SignalFollow, types.SignalRepost:
		// passive engagement, no kind boost
	}

	if p.cfg.PrincipalID != "" && sig.AuthorID == p.cfg.PrincipalID {
		n.add(boostPrincipal, "from principal")
	}

	if rel, ok := p.rels.Get(sig.AuthorID); ok {
		n.Relationship = &rel
		if rel.Sentiment == store.SentimentPositive {
			n.add(boostPositive, "positive relationship")
		}
		if len(rel.Interactions) >= p.cfg.RecurringMinInteractions {
			n.add(boostRecurring, "recurring engager")
		}
		if !rel.Responded {
			n.add(boostNeverResponded, "never responded to them")
		}
	} else {
		n.add(boostNewConnection, "new connection")
	}

	if !sig.IsRead {
		n.add(boostUnread, "unread")
	}

	return n
}

func (n *PrioritizedNotification) add(points int, reason string) {
	n.Priority += points
	n.Reasons = append(n.Reasons, fmt.Sprintf("+%d %s", points, reason))
}

// isRecurring reports whether a scored notification came from a recurring
// engager.
func (p *Prioritizer) isRecurring(n PrioritizedNotification) bool {
	return n.Relationship != nil &&
		len(n.Relationship.Interactions) >= p.cfg.RecurringMinInteractions
}

// isPrincipal reports whether a notification came from the principal.
func (p *Prioritizer) isPrincipal(n PrioritizedNotification) bool {
	return p.cfg.PrincipalID != "" && n.Signal.AuthorID == p.cfg.PrincipalID
}

// GroupThreads groups scored notifications by thread root and orders the
// threads for fair processing: principal threads first, then threads with a
// recurring engager, then highest priority, then oldest. Members within a
// thread are chronological (FIFO fairness).
func (p *Prioritizer) GroupThreads(notifs []PrioritizedNotification) []TriagedThread {
	byRoot := make(map[string]*TriagedThread)
	order := make([]string, 0)

	for _, n := range notifs {
		root := n.Signal.ThreadRootID
		if root == "" {
			// Non-threaded signals each form their own singleton group.
			root = n.Signal.ID
		}
		t, ok := byRoot[root]
		if !ok {
			t = &TriagedThread{RootID: root, OldestTimestamp: n.Signal.Timestamp}
			byRoot[root] = t
			order = append(order, root)
		}
		t.Members = append(t.Members, n)
		if n.Priority > t.HighestPriority {
			t.HighestPriority = n.Priority
		}
		if p.isPrincipal(n) {
			t.HasPrincipal = true
		}
		if p.isRecurring(n) {
			t.HasRecurring = true
		}
		if n.Signal.Timestamp.Before(t.OldestTimestamp) {
			t.OldestTimestamp = n.Signal.Timestamp
		}
	}

	threads := make([]TriagedThread, 0, len(byRoot))
	for _, root := range order {
		t := byRoot[root]
		sort.SliceStable(t.Members, func(i, j int) bool {
			return t.Members[i].Signal.Timestamp.Before(t.Members[j].Signal.Timestamp)
		})
		threads = append(threads, *t)
	}

	// Tie-break chain, in this exact order: principal, recurring engager,
	// priority descending, oldest ascending.
	sort.SliceStable(threads, func(i, j int) bool {
		a, b := threads[i], threads[j]
		if a.HasPrincipal != b.HasPrincipal {
			return a.HasPrincipal
		}
		if a.HasRecurring != b.HasRecurring {
			return a.HasRecurring
		}
		if a.HighestPriority != b.HighestPriority {
			return a.HighestPriority > b.HighestPriority
		}
		return a.OldestTimestamp.Before(b.OldestTimestamp)
	})

	return threads
}

// Flatten turns the sorted thread list into the final linear work queue.
func Flatten(threads []TriagedThread) []PrioritizedNotification {
	var out []PrioritizedNotification
	for _, t := range threads {
		out = append(out, t.Members...)
	}
	return out
}

// HasUrgent reports whether any unread direct-conversation signal exists,
// or any unread signal responds to our own content. The scheduler uses this
// to shorten the wait to the next check; it never preempts an in-progress
// mode.
func HasUrgent(signals []types.Signal) bool {
	for _, sig := range signals {
		if sig.IsRead {
			continue
		}
		if sig.Kind.IsDirect() {
			return true
		}
		if sig.SubjectID != "" {
			return true
		}
	}
	return false
}
