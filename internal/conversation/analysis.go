package conversation

import (
	"fmt"

	"murmur/internal/logging"
)

// Analysis is the conclusion recommendation for a conversation. It is a
// recommendation only: nothing transitions until a caller acts on it.
type Analysis struct {
	ShouldConclude bool
	Reason         string
}

// Analyze evaluates the conclusion heuristic for root on demand.
func (t *Tracker[K]) Analyze(root K) Analysis {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.state.Conversations[t.keyFn(root)]
	if !ok {
		return Analysis{}
	}
	return t.analyzeLocked(rec)
}

// analyzeLocked runs the heuristic chain. Callers hold the lock.
func (t *Tracker[K]) analyzeLocked(rec *Record[K]) Analysis {
	// Already concluded: report the stored reason.
	if rec.State == StateConcluded {
		return Analysis{ShouldConclude: true, Reason: rec.ConclusionReason}
	}

	// Thank-you chain short-circuit: two or more of our own closings in
	// rapid succession means circular politeness, not substance.
	if t.isClosingChain(rec) {
		return Analysis{ShouldConclude: true,
			Reason: "thank-you chain detected, nothing substantive left"}
	}

	// Reply budget spent.
	if rec.OurReplyCount >= t.th.MaxRepliesBeforeExit {
		return Analysis{ShouldConclude: true,
			Reason: fmt.Sprintf("replied %d times, time to wrap up", rec.OurReplyCount)}
	}

	// Thread too deep.
	if rec.Depth >= t.th.MaxThreadDepth {
		return Analysis{ShouldConclude: true,
			Reason: fmt.Sprintf("thread depth %d reached limit", rec.Depth)}
	}

	// Everyone else went quiet after genuinely engaging.
	if t.allParticipantsDisengaged(rec) {
		return Analysis{ShouldConclude: true,
			Reason: "all participants disengaged"}
	}

	// We replied and nobody came back.
	if rec.State == StateAwaitingResponse && !rec.OurLastReplyAt.IsZero() {
		if t.now().Sub(rec.OurLastReplyAt) > t.th.NoResponseTimeout {
			return Analysis{ShouldConclude: true,
				Reason: "no response since our last reply, they've moved on"}
		}
	}

	return Analysis{}
}

// isClosingChain reports whether our own last two-or-more replies are
// low-information closings sent within the rapid-fire window of each other.
func (t *Tracker[K]) isClosingChain(rec *Record[K]) bool {
	n := len(rec.OurRecentReplies)
	if n < 2 {
		return false
	}
	last, prev := rec.OurRecentReplies[n-1], rec.OurRecentReplies[n-2]
	if !t.th.IsClosing(last.Text) || !t.th.IsClosing(prev.Text) {
		return false
	}
	gap := last.Timestamp.Sub(prev.Timestamp)
	return gap >= 0 && gap < t.th.ClosingRapidFire
}

// allParticipantsDisengaged recomputes the per-participant disengagement
// flag and reports whether every non-agent participant has gone quiet. A
// participant only counts as disengaged if they were genuinely engaged
// before (more than one reply) and have been silent past the window.
func (t *Tracker[K]) allParticipantsDisengaged(rec *Record[K]) bool {
	now := t.now()
	others := 0
	for id, p := range rec.Participants {
		if id == t.agentID {
			continue
		}
		others++
		p.Disengaged = p.ReplyCount > 1 && now.Sub(p.LastReplyAt) > t.th.DisengagementWindow
		if !p.Disengaged {
			return false
		}
	}
	return others > 0
}

// ShouldRespond decides whether the agent should respond in the thread.
//
// For a concluded conversation it checks for reengagement: fresh activity
// from any non-agent participant after the conclusion, within the
// reengagement budget, flips the thread back to active. Otherwise a
// concluding analysis is acted upon (the record transitions) and the
// caller gets the reason.
func (t *Tracker[K]) ShouldRespond(root K) (bool, string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := t.keyFn(root)
	rec, ok := t.state.Conversations[key]
	if !ok {
		// Nothing known against responding in an untracked thread.
		return true, "untracked"
	}

	if rec.State == StateConcluded {
		if !t.hasPostConclusionActivity(rec) {
			return false, rec.ConclusionReason
		}
		if !t.reengagementAllowed(rec) {
			logging.Conversation("%s: reengagement budget exhausted (%d)",
				key, rec.ReengagementCount)
			return false, rec.ConclusionReason
		}
		rec.State = StateActive
		rec.ReengagementCount++
		rec.ConclusionReason = ""
		rec.LastChecked = t.now()
		logging.Conversation("%s: reengaged (count=%d)", key, rec.ReengagementCount)
		return true, "reengagement"
	}

	if a := t.analyzeLocked(rec); a.ShouldConclude {
		prev := rec.State
		rec.State = StateConcluded
		rec.ConclusionReason = a.Reason
		rec.LastChecked = t.now()
		logging.Conversation("%s: %s -> concluded (%s)", key, prev, a.Reason)
		return false, a.Reason
	}
	return true, ""
}

// hasPostConclusionActivity reports whether any non-agent participant has
// activity newer than the conclusion's LastChecked. Callers hold the lock.
func (t *Tracker[K]) hasPostConclusionActivity(rec *Record[K]) bool {
	for id, p := range rec.Participants {
		if id == t.agentID {
			continue
		}
		if p.LastReplyAt.After(rec.LastChecked) {
			return true
		}
	}
	return false
}

// reengagementAllowed checks the reengagement budget. Privileged sources
// are unlimited; everything else is capped. Callers hold the lock.
func (t *Tracker[K]) reengagementAllowed(rec *Record[K]) bool {
	if t.th.Privileged(rec.Source) {
		return true
	}
	return rec.ReengagementCount < t.th.ReengagementCap
}
