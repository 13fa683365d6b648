package store

import (
	"sync"
	"time"

	"murmur/internal/logging"
	"murmur/internal/types"
)

// maxInteractionHistory bounds per-relationship interaction history.
const maxInteractionHistory = 50

// Sentiment is the derived feel of a relationship.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentUnknown  Sentiment = "unknown"
)

// InteractionEvent is one append-only record of an interaction with an
// external identity. Deduplicated by RefID within a relationship.
type InteractionEvent struct {
	Kind        types.SignalKind `json:"kind"`
	RefID       string           `json:"ref_id"`
	Timestamp   time.Time        `json:"timestamp"`
	Responded   bool             `json:"responded"`
	ResponseRef string           `json:"response_ref,omitempty"`
}

// RelationshipRecord tracks everything we know about one external identity.
// Never deleted; bounded by truncating interaction history.
type RelationshipRecord struct {
	ID           string             `json:"id"`
	DisplayName  string             `json:"display_name,omitempty"`
	Interactions []InteractionEvent `json:"interactions"`
	FirstSeen    time.Time          `json:"first_seen"`
	LastSeen     time.Time          `json:"last_seen"`
	Sentiment    Sentiment          `json:"sentiment"`
	Responded    bool               `json:"responded"` // have we ever responded to them
}

// FrictionRecord captures one operational failure for the improvement pass.
type FrictionRecord struct {
	ID        string    `json:"id"`
	Loop      string    `json:"loop"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Resolved  bool      `json:"resolved"`
}

// PostingState remembers our own recent output for the expression loop.
type PostingState struct {
	LastPostAt   time.Time `json:"last_post_at"`
	RecentTopics []string  `json:"recent_topics,omitempty"`
	TotalPosts   int       `json:"total_posts"`
}

// ReflectionState remembers reflection/improvement bookkeeping.
type ReflectionState struct {
	LastReflectionAt  time.Time        `json:"last_reflection_at"`
	LastImprovementAt time.Time        `json:"last_improvement_at"`
	Frictions         []FrictionRecord `json:"frictions,omitempty"`
}

// engagementState is the on-disk document.
type engagementState struct {
	Relationships map[string]*RelationshipRecord `json:"relationships"`
	Posting       PostingState                   `json:"posting"`
	Reflection    ReflectionState                `json:"reflection"`
}

// EngagementStore owns the relationship/posting/reflection document.
type EngagementStore struct {
	mu    sync.RWMutex
	path  string
	state engagementState
}

// NewEngagementStore loads the store from path, falling back to a fresh
// default on absence or corruption.
func NewEngagementStore(path string) *EngagementStore {
	s := &EngagementStore{
		path: path,
		state: engagementState{
			Relationships: make(map[string]*RelationshipRecord),
		},
	}
	if LoadJSON(path, &s.state) {
		if s.state.Relationships == nil {
			s.state.Relationships = make(map[string]*RelationshipRecord)
		}
		logging.Store("engagement store loaded: %d relationships", len(s.state.Relationships))
	}
	return s
}

// Save persists the store. Best-effort; the error is for logging only.
func (s *EngagementStore) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := SaveJSON(s.path, &s.state); err != nil {
		logging.StoreWarn("engagement store save failed: %v", err)
		return err
	}
	return nil
}

// RecordInteraction upserts the relationship for authorID and appends the
// event if its reference id is new. Returns true if the event was recorded.
func (s *EngagementStore) RecordInteraction(authorID, displayName string, ev InteractionEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.state.Relationships[authorID]
	if !ok {
		rec = &RelationshipRecord{
			ID:        authorID,
			FirstSeen: ev.Timestamp,
			Sentiment: SentimentUnknown,
		}
		s.state.Relationships[authorID] = rec
	}
	if displayName != "" {
		rec.DisplayName = displayName
	}
	if ev.Timestamp.After(rec.LastSeen) {
		rec.LastSeen = ev.Timestamp
	}

	for _, existing := range rec.Interactions {
		if existing.RefID == ev.RefID {
			return false
		}
	}

	rec.Interactions = append(rec.Interactions, ev)
	if len(rec.Interactions) > maxInteractionHistory {
		rec.Interactions = rec.Interactions[len(rec.Interactions)-maxInteractionHistory:]
	}
	rec.Sentiment = deriveSentiment(rec)
	return true
}

// MarkResponded flags the interaction with refID as responded and records
// the reference of our response.
func (s *EngagementStore) MarkResponded(authorID, refID, responseRef string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.state.Relationships[authorID]
	if !ok {
		logging.StoreWarn("mark responded: unknown relationship %s", authorID)
		return
	}
	rec.Responded = true
	for i := range rec.Interactions {
		if rec.Interactions[i].RefID == refID {
			rec.Interactions[i].Responded = true
			rec.Interactions[i].ResponseRef = responseRef
			return
		}
	}
}

// IsResponded reports whether any relationship holds an interaction with
// refID already marked responded. This is the inbound dedup lookup.
func (s *EngagementStore) IsResponded(refID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.state.Relationships {
		for _, ev := range rec.Interactions {
			if ev.RefID == refID && ev.Responded {
				return true
			}
		}
	}
	return false
}

// Get returns a copy of the relationship for id, if present.
func (s *EngagementStore) Get(id string) (RelationshipRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.state.Relationships[id]
	if !ok {
		return RelationshipRecord{}, false
	}
	out := *rec
	out.Interactions = append([]InteractionEvent(nil), rec.Interactions...)
	return out, true
}

// Count returns the number of tracked relationships.
func (s *EngagementStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.Relationships)
}

// Posting returns the posting section.
func (s *EngagementStore) Posting() PostingState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Posting
}

// RecordPost updates the posting section after a successful post.
func (s *EngagementStore) RecordPost(at time.Time, topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Posting.LastPostAt = at
	s.state.Posting.TotalPosts++
	if topic != "" {
		s.state.Posting.RecentTopics = append(s.state.Posting.RecentTopics, topic)
		if len(s.state.Posting.RecentTopics) > 20 {
			s.state.Posting.RecentTopics = s.state.Posting.RecentTopics[len(s.state.Posting.RecentTopics)-20:]
		}
	}
}

// Reflection returns the reflection section.
func (s *EngagementStore) Reflection() ReflectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.state.Reflection
	out.Frictions = append([]FrictionRecord(nil), s.state.Reflection.Frictions...)
	return out
}

// TouchReflection stamps the last reflection time.
func (s *EngagementStore) TouchReflection(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Reflection.LastReflectionAt = at
}

// TouchImprovement stamps the last improvement time and marks current
// frictions resolved.
func (s *EngagementStore) TouchImprovement(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Reflection.LastImprovementAt = at
	for i := range s.state.Reflection.Frictions {
		s.state.Reflection.Frictions[i].Resolved = true
	}
}

// AddFriction appends a friction record.
func (s *EngagementStore) AddFriction(f FrictionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Reflection.Frictions = append(s.state.Reflection.Frictions, f)
	if len(s.state.Reflection.Frictions) > 100 {
		s.state.Reflection.Frictions = s.state.Reflection.Frictions[len(s.state.Reflection.Frictions)-100:]
	}
}

// HasActionableFriction reports whether unresolved friction exists.
func (s *EngagementStore) HasActionableFriction() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.state.Reflection.Frictions {
		if !f.Resolved {
			return true
		}
	}
	return false
}

// deriveSentiment computes the relationship sentiment from its history.
// Warm kinds (like, repost, quote, follow) pull toward positive; thin
// histories stay unknown.
func deriveSentiment(rec *RelationshipRecord) Sentiment {
	if len(rec.Interactions) < 2 {
		return SentimentUnknown
	}
	warm := 0
	for _, ev := range rec.Interactions {
		switch ev.Kind {
		case types.SignalLike, types.SignalRepost, types.SignalQuote, types.SignalFollow:
			warm++
		case types.SignalReply, types.SignalMention:
			// conversational, neutral on its own
		}
	}
	if warm >= 2 {
		return SentimentPositive
	}
	return SentimentNeutral
}
