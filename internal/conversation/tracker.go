// Package conversation owns the per-thread lifecycle state machine that
// decides, independent of platform, whether continued participation in a
// conversation is still warranted.
//
// One generic engine serves every conversation domain: the social feed
// instantiates Tracker[PostRef], the issue tracker Tracker[IssueRef]. All
// numeric thresholds are injected so behavior is tunable without code
// changes.
package conversation

import (
	"fmt"
	"sync"
	"time"

	"murmur/internal/logging"
	"murmur/internal/store"
)

// State is the lifecycle state of a tracked conversation.
type State string

const (
	StateNew              State = "new"
	StateActive           State = "active"
	StateAwaitingResponse State = "awaiting_response"
	StateConcluded        State = "concluded"
	StateStale            State = "stale"
)

// Ref is a thread root reference: an identifier plus an integrity token
// (content hash, CID, etag, whatever the platform provides).
type Ref[K comparable] struct {
	ID        K      `json:"id"`
	Integrity string `json:"integrity,omitempty"`
}

// Participant tracks one non-agent identity inside a conversation.
// Disengaged is derived at analysis time, never trusted from disk.
type Participant struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"display_name,omitempty"`
	ReplyCount   int       `json:"reply_count"`
	FirstReplyAt time.Time `json:"first_reply_at"`
	LastReplyAt  time.Time `json:"last_reply_at"`
	Disengaged   bool      `json:"-"`
}

// OwnReply records one of the agent's own replies in a thread. The text is
// kept only for closing-chain detection and is truncated on record.
type OwnReply struct {
	Ref       string    `json:"ref"`
	Text      string    `json:"text,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Record is one tracked conversation.
type Record[K comparable] struct {
	Root              Ref[K]                  `json:"root"`
	RootAuthor        string                  `json:"root_author,omitempty"`
	FirstSeen         time.Time               `json:"first_seen"`
	LastChecked       time.Time               `json:"last_checked"`
	Depth             int                     `json:"depth"`
	Participants      map[string]*Participant `json:"participants"`
	OurReplyCount     int                     `json:"our_reply_count"`
	OurLastReplyAt    time.Time               `json:"our_last_reply_at"`
	OurLastReplyRef   string                  `json:"our_last_reply_ref,omitempty"`
	OurRecentReplies  []OwnReply              `json:"our_recent_replies,omitempty"`
	State             State                   `json:"state"`
	ConclusionReason  string                  `json:"conclusion_reason,omitempty"`
	Source            string                  `json:"source,omitempty"`
	ReengagementCount int                     `json:"reengagement_count"`
}

// Thresholds is the injected tuning set for the conclusion heuristic and
// reengagement budget.
type Thresholds struct {
	MaxRepliesBeforeExit int
	MaxThreadDepth       int
	DisengagementWindow  time.Duration
	NoResponseTimeout    time.Duration
	ClosingRapidFire     time.Duration
	StaleAge             time.Duration
	ConcludedGCAge       time.Duration
	ReengagementCap      int

	// Privileged threads (by origin source tag) get an unlimited
	// reengagement budget.
	Privileged func(source string) bool

	// IsClosing classifies a reply as a low-information closing.
	// Defaults to DefaultClosingClassifier.
	IsClosing func(text string) bool
}

// state is the on-disk document, one per platform.
type trackerState[K comparable] struct {
	Conversations map[string]*Record[K] `json:"conversations"`
	LastCleanup   time.Time             `json:"last_cleanup"`
}

// Tracker is the per-thread lifecycle engine for one conversation domain.
type Tracker[K comparable] struct {
	mu      sync.Mutex
	path    string
	agentID string
	th      Thresholds
	keyFn   func(K) string
	now     func() time.Time
	state   trackerState[K]
}

// New creates a tracker persisting to path. keyFn maps the domain identifier
// to a stable string key for the JSON document. A nil clock uses time.Now.
func New[K comparable](path, agentID string, th Thresholds, keyFn func(K) string, clock func() time.Time) *Tracker[K] {
	if clock == nil {
		clock = time.Now
	}
	if th.IsClosing == nil {
		th.IsClosing = DefaultClosingClassifier
	}
	if th.Privileged == nil {
		th.Privileged = func(string) bool { return false }
	}

	t := &Tracker[K]{
		path:    path,
		agentID: agentID,
		th:      th,
		keyFn:   keyFn,
		now:     clock,
		state: trackerState[K]{
			Conversations: make(map[string]*Record[K]),
		},
	}
	if store.LoadJSON(path, &t.state) {
		if t.state.Conversations == nil {
			t.state.Conversations = make(map[string]*Record[K])
		}
		logging.Conversation("tracker loaded %s: %d conversations", path, len(t.state.Conversations))
	}
	return t
}

// SetThresholds swaps the threshold set (config hot-reload).
func (t *Tracker[K]) SetThresholds(th Thresholds) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if th.IsClosing == nil {
		th.IsClosing = t.th.IsClosing
	}
	if th.Privileged == nil {
		th.Privileged = t.th.Privileged
	}
	t.th = th
}

// Save persists the tracker document. Best-effort.
func (t *Tracker[K]) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := store.SaveJSON(t.path, &t.state); err != nil {
		logging.StoreWarn("conversation tracker save failed: %v", err)
		return err
	}
	return nil
}

// Track creates a new record for root if absent; otherwise it only
// refreshes LastChecked.
func (t *Tracker[K]) Track(root Ref[K], author, source string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := t.keyFn(root.ID)
	now := t.now()
	if rec, ok := t.state.Conversations[key]; ok {
		rec.LastChecked = now
		return
	}

	t.state.Conversations[key] = &Record[K]{
		Root:         root,
		RootAuthor:   author,
		FirstSeen:    now,
		LastChecked:  now,
		Participants: make(map[string]*Participant),
		State:        StateNew,
		Source:       source,
	}
	logging.Conversation("tracking new conversation %s (source=%s)", key, source)
}

// RecordParticipantActivity upserts participant stats for a reply observed
// in the thread. If the conversation was awaiting our counterpart's
// response, it becomes active again. Concluded conversations keep their
// state (only explicit reengagement revives them) but the participant
// timestamps are still recorded so reengagement detection can see them.
func (t *Tracker[K]) RecordParticipantActivity(root K, participantID, displayName string, at time.Time, depth int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.state.Conversations[t.keyFn(root)]
	if !ok {
		logging.Get(logging.CategoryConversation).Warn(
			"participant activity on untracked thread %v, ignoring", root)
		return
	}

	part, ok := rec.Participants[participantID]
	if !ok {
		part = &Participant{ID: participantID, FirstReplyAt: at}
		rec.Participants[participantID] = part
	}
	if displayName != "" {
		part.DisplayName = displayName
	}
	part.ReplyCount++
	if at.After(part.LastReplyAt) {
		part.LastReplyAt = at
	}
	if depth > rec.Depth {
		rec.Depth = depth
	}

	switch rec.State {
	case StateAwaitingResponse:
		rec.State = StateActive
		logging.ConversationDebug("%v: awaiting_response -> active (%s replied)",
			root, participantID)
	case StateNew, StateStale:
		rec.State = StateActive
	case StateActive, StateConcluded:
		// active stays active; concluded only flips via reengagement
	}
}

// RecordOwnReply increments our reply counter, moves the conversation to
// awaiting_response, and records the agent itself as a participant.
func (t *Tracker[K]) RecordOwnReply(root K, reply OwnReply) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.state.Conversations[t.keyFn(root)]
	if !ok {
		logging.Get(logging.CategoryConversation).Warn(
			"own reply on untracked thread %v, ignoring", root)
		return
	}

	rec.OurReplyCount++
	rec.OurLastReplyAt = reply.Timestamp
	rec.OurLastReplyRef = reply.Ref
	rec.State = StateAwaitingResponse
	rec.LastChecked = t.now()

	if len(reply.Text) > 200 {
		reply.Text = reply.Text[:200]
	}
	rec.OurRecentReplies = append(rec.OurRecentReplies, reply)
	if len(rec.OurRecentReplies) > 10 {
		rec.OurRecentReplies = rec.OurRecentReplies[len(rec.OurRecentReplies)-10:]
	}

	part, ok := rec.Participants[t.agentID]
	if !ok {
		part = &Participant{ID: t.agentID, FirstReplyAt: reply.Timestamp}
		rec.Participants[t.agentID] = part
	}
	part.ReplyCount++
	if reply.Timestamp.After(part.LastReplyAt) {
		part.LastReplyAt = reply.Timestamp
	}
}

// MarkConcluded explicitly concludes the conversation with a reason.
func (t *Tracker[K]) MarkConcluded(root K, reason string) {
	t.UpdateState(root, StateConcluded, reason)
}

// UpdateState is the explicit, reason-carrying transition.
func (t *Tracker[K]) UpdateState(root K, newState State, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.state.Conversations[t.keyFn(root)]
	if !ok {
		logging.Get(logging.CategoryConversation).Warn(
			"state update on untracked thread %v, ignoring", root)
		return
	}

	prev := rec.State
	rec.State = newState
	rec.LastChecked = t.now()
	if newState == StateConcluded {
		rec.ConclusionReason = reason
	}
	logging.Conversation("%v: %s -> %s (%s)", root, prev, newState, reason)
}

// Get returns a copy of the record for root.
func (t *Tracker[K]) Get(root K) (Record[K], bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.state.Conversations[t.keyFn(root)]
	if !ok {
		return Record[K]{}, false
	}
	return t.copyRecord(rec), true
}

// All returns copies of every tracked record.
func (t *Tracker[K]) All() []Record[K] {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Record[K], 0, len(t.state.Conversations))
	for _, rec := range t.state.Conversations {
		out = append(out, t.copyRecord(rec))
	}
	return out
}

func (t *Tracker[K]) copyRecord(rec *Record[K]) Record[K] {
	out := *rec
	out.Participants = make(map[string]*Participant, len(rec.Participants))
	for id, p := range rec.Participants {
		pc := *p
		out.Participants[id] = &pc
	}
	out.OurRecentReplies = append([]OwnReply(nil), rec.OurRecentReplies...)
	return out
}

// Cleanup garbage-collects concluded records past the GC age and marks
// abandoned unconcluded records stale. Returns (collected, staled).
func (t *Tracker[K]) Cleanup() (int, int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	collected, staled := 0, 0
	for key, rec := range t.state.Conversations {
		switch rec.State {
		case StateConcluded:
			if now.Sub(rec.LastChecked) > t.th.ConcludedGCAge {
				delete(t.state.Conversations, key)
				collected++
			}
		case StateNew, StateActive, StateAwaitingResponse:
			if now.Sub(t.lastActivity(rec)) > t.th.StaleAge {
				rec.State = StateStale
				staled++
			}
		case StateStale:
			// already stale
		}
	}
	t.state.LastCleanup = now
	if collected > 0 || staled > 0 {
		logging.Conversation("cleanup: %d collected, %d staled", collected, staled)
	}
	return collected, staled
}

// lastActivity is the latest of any participant reply, our own reply, and
// first-seen. Callers hold the lock.
func (t *Tracker[K]) lastActivity(rec *Record[K]) time.Time {
	latest := rec.FirstSeen
	if rec.OurLastReplyAt.After(latest) {
		latest = rec.OurLastReplyAt
	}
	for _, p := range rec.Participants {
		if p.LastReplyAt.After(latest) {
			latest = p.LastReplyAt
		}
	}
	return latest
}

// String renders a reference key for logs.
func (r Ref[K]) String() string {
	return fmt.Sprintf("%v", r.ID)
}
