package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"murmur/internal/conversation"
	"murmur/internal/llm"
	"murmur/internal/logging"
	"murmur/internal/store"
	"murmur/internal/triage"
	"murmur/internal/types"
)

// maxResponsesPerCycle bounds how many threads one responding cycle serves;
// the rest stay in the backlog for the next tick.
const maxResponsesPerCycle = 3

// urgencyDivisor shortens the next awareness check when urgent signals were
// seen but could not all be served this cycle.
const urgencyDivisor = 4

// -----------------------------------------------------------------------------
// Loop runners
// -----------------------------------------------------------------------------

func (s *Scheduler) awarenessLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.Config().GetAwarenessInterval())
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			urgent := s.runAwareness(s.ctx)
			next := s.Config().GetAwarenessInterval()
			if urgent {
				next /= urgencyDivisor
			}
			ticker.Reset(next)
		}
	}
}

func (s *Scheduler) expressionLoop() {
	defer s.wg.Done()

	cfg := s.Config()
	timer := time.NewTimer(s.rand(cfg.GetExpressionMin(), cfg.GetExpressionMax()))
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
			s.runExpression(s.ctx)
			cfg = s.Config()
			timer.Reset(s.rand(cfg.GetExpressionMin(), cfg.GetExpressionMax()))
		}
	}
}

func (s *Scheduler) reflectionLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.Config().GetReflectionInterval())
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runReflection(s.ctx)
			ticker.Reset(s.Config().GetReflectionInterval())
		}
	}
}

func (s *Scheduler) engagementLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.Config().GetEngagementCheckInterval())
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runEngagementCheck(s.ctx)
			ticker.Reset(s.Config().GetEngagementCheckInterval())
		}
	}
}

// -----------------------------------------------------------------------------
// Awareness + responding
// -----------------------------------------------------------------------------

// runAwareness polls for new signals and, when unread direct work exists,
// hands off to the responding sub-cycle. Returns whether urgent signals
// remain so the loop can shorten its next check.
func (s *Scheduler) runAwareness(ctx context.Context) (urgent bool) {
	if !s.tryEnter(ModeAwareness) {
		logging.SchedulerDebug("awareness skipped: mode=%s", s.CurrentMode())
		return false
	}
	defer s.exitMode()
	defer s.recoverCycle("awareness")
	s.markRun("awareness")

	cfg := s.Config()
	signals, err := s.deps.Signals.FetchRecentSignals(ctx, cfg.SignalFetchLimit)
	if err != nil {
		s.mu.Lock()
		s.state.ConsecutiveErrors++
		s.mu.Unlock()
		s.recordFriction("awareness", err)
		return false
	}
	s.mu.Lock()
	s.state.ConsecutiveErrors = 0
	s.mu.Unlock()

	logging.Awareness("fetched %d signals", len(signals))
	s.absorbSignals(signals)

	notifs := s.deps.Prioritizer.Prioritize(signals)
	threads := s.deps.Prioritizer.GroupThreads(notifs)
	backlog := triage.Flatten(threads)

	s.mu.Lock()
	s.state.PendingBacklog = len(backlog)
	s.mu.Unlock()

	urgent = triage.HasUrgent(signals)
	if !urgent || len(threads) == 0 {
		s.persist()
		return false
	}

	s.shift(ModeResponding)
	served := s.runResponding(ctx, threads)
	s.persist()

	// Urgency only shortens the next check when work remains.
	return served < len(threads)
}

// absorbSignals folds raw signals into the relationship store and the
// conversation tracker before any scoring happens.
func (s *Scheduler) absorbSignals(signals []types.Signal) {
	for _, sig := range signals {
		s.deps.Engage.RecordInteraction(sig.AuthorID, sig.AuthorName, store.InteractionEvent{
			Kind:      sig.Kind,
			RefID:     sig.ID,
			Timestamp: sig.Timestamp,
		})
		if sig.ThreadRootID == "" {
			continue
		}
		root := conversation.PostRef(sig.ThreadRootID)
		s.deps.Posts.Track(conversation.Ref[conversation.PostRef]{ID: root}, sig.AuthorID, "feed")
		if sig.Kind.IsDirect() {
			s.deps.Posts.RecordParticipantActivity(root, sig.AuthorID, sig.AuthorName, sig.Timestamp, 0)
		}
	}
}

// runResponding serves the triaged thread queue, newest mode already held.
// Returns how many threads were actually responded to.
func (s *Scheduler) runResponding(ctx context.Context, threads []triage.TriagedThread) int {
	served := 0
	for _, thread := range threads {
		if served >= maxResponsesPerCycle {
			break
		}
		if len(thread.Members) == 0 {
			continue
		}

		root := conversation.PostRef(thread.RootID)
		ok, reason := s.deps.Posts.ShouldRespond(root)
		if !ok {
			logging.SchedulerDebug("skipping thread %s: %s", thread.RootID, reason)
			continue
		}

		target := thread.Members[0] // oldest first, FIFO fairness
		if err := s.respondTo(ctx, root, target); err != nil {
			if llm.IsFatal(err) {
				s.fatalStop(err)
				return served
			}
			s.recordFriction("responding", err)
			return served
		}
		served++
	}
	logging.Scheduler("responding cycle served %d/%d threads", served, len(threads))
	return served
}

func (s *Scheduler) respondTo(ctx context.Context, root conversation.PostRef, n triage.PrioritizedNotification) error {
	prompt := buildReplyPrompt(n)
	text, err := s.deps.Generator.Generate(ctx, prompt)
	if err != nil {
		return err
	}

	res, err := s.deps.Queue.Enqueue(ctx, types.OutboundReply, text, n.Signal.ID)
	if err != nil {
		return err
	}
	if !res.Allowed {
		logging.Scheduler("reply to %s blocked: %s", n.Signal.ID, res.Reason)
		return nil
	}

	receipt, err := s.deps.Transmitter.Send(ctx, types.OutboundReply, text, string(root))
	if err != nil {
		return fmt.Errorf("send reply: %w", err)
	}

	now := s.now()
	s.deps.Posts.RecordOwnReply(root, conversation.OwnReply{
		Ref:       receipt.ID,
		Text:      text,
		Timestamp: now,
	})
	s.deps.Engage.MarkResponded(n.Signal.AuthorID, n.Signal.ID, receipt.ID)
	s.rememberPost(receipt.ID)
	logging.Scheduler("replied to %s in thread %s", n.Signal.AuthorID, root)
	return nil
}

func buildReplyPrompt(n triage.PrioritizedNotification) string {
	var b strings.Builder
	b.WriteString("You are replying in an ongoing conversation on a social feed.\n")
	fmt.Fprintf(&b, "From: %s\n", n.Signal.AuthorID)
	fmt.Fprintf(&b, "Kind: %s\n", n.Signal.Kind)
	fmt.Fprintf(&b, "Message: %s\n", n.Signal.Text)
	fmt.Fprintf(&b, "Context: %s\n", strings.Join(n.Reasons, "; "))
	b.WriteString("Write a short, warm, substantive reply. Plain text only.")
	return b.String()
}

// -----------------------------------------------------------------------------
// Expression
// -----------------------------------------------------------------------------

// runExpression generates self-initiated content. Skipped entirely during
// quiet hours.
func (s *Scheduler) runExpression(ctx context.Context) {
	if s.Config().InQuietHours(s.now()) {
		logging.SchedulerDebug("expression skipped: quiet hours")
		return
	}
	if !s.tryEnter(ModeExpressing) {
		logging.SchedulerDebug("expression skipped: mode=%s", s.CurrentMode())
		return
	}
	defer s.exitMode()
	defer s.recoverCycle("expression")
	s.markRun("expression")

	posting := s.deps.Engage.Posting()
	prompt := buildExpressionPrompt(posting)
	text, err := s.deps.Generator.Generate(ctx, prompt)
	if err != nil {
		if llm.IsFatal(err) {
			s.fatalStop(err)
			return
		}
		s.recordFriction("expression", err)
		return
	}

	res, err := s.deps.Queue.Enqueue(ctx, types.OutboundPost, text, "")
	if err != nil {
		s.recordFriction("expression", err)
		return
	}
	if !res.Allowed {
		logging.Scheduler("expression blocked: %s", res.Reason)
		return
	}

	receipt, err := s.deps.Transmitter.Send(ctx, types.OutboundPost, text, "")
	if err != nil {
		s.recordFriction("expression", fmt.Errorf("send post: %w", err))
		return
	}

	s.deps.Engage.RecordPost(s.now(), firstLine(text))
	s.rememberPost(receipt.ID)
	s.persist()
	logging.Scheduler("expressed: %s", receipt.ID)
}

func buildExpressionPrompt(posting store.PostingState) string {
	var b strings.Builder
	b.WriteString("Write a short original post for your social feed.\n")
	if len(posting.RecentTopics) > 0 {
		fmt.Fprintf(&b, "Avoid repeating these recent topics: %s\n",
			strings.Join(posting.RecentTopics, "; "))
	}
	b.WriteString("Plain text only, under 300 characters.")
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}

// -----------------------------------------------------------------------------
// Reflection + improvement
// -----------------------------------------------------------------------------

// runReflection is the deep integration pass. It also opportunistically
// triggers the improvement pass when its own gate is satisfied.
func (s *Scheduler) runReflection(ctx context.Context) {
	if !s.tryEnter(ModeReflecting) {
		logging.SchedulerDebug("reflection skipped: mode=%s", s.CurrentMode())
		return
	}
	defer s.exitMode()
	defer s.recoverCycle("reflection")
	s.markRun("reflection")

	var performers []store.OutcomeRow
	if s.deps.Metrics != nil {
		var err error
		performers, err = s.deps.Metrics.TopPerformers(s.now().Add(-7*24*time.Hour), 5)
		if err != nil {
			logging.Get(logging.CategoryScheduler).Warn("top performers query failed: %v", err)
		}
	}

	if _, err := s.deps.Generator.Generate(ctx, buildReflectionPrompt(performers)); err != nil {
		if llm.IsFatal(err) {
			s.fatalStop(err)
			return
		}
		s.recordFriction("reflection", err)
		return
	}
	s.deps.Engage.TouchReflection(s.now())

	// Conversation maintenance rides along with the reflection cadence:
	// drop long-concluded records and mark abandoned threads stale.
	if collected, staled := s.deps.Posts.Cleanup(); collected > 0 || staled > 0 {
		logging.Scheduler("conversation cleanup: %d collected, %d stale", collected, staled)
	}

	// Improvement gate: minimum elapsed time plus actionable friction.
	refl := s.deps.Engage.Reflection()
	gap := s.now().Sub(refl.LastImprovementAt)
	if gap < s.Config().GetImprovementMinGap() || !s.deps.Engage.HasActionableFriction() {
		s.persist()
		return
	}

	s.shift(ModeImproving)
	s.markRun("improvement")
	if _, err := s.deps.Generator.Generate(ctx, buildImprovementPrompt(refl.Frictions)); err != nil {
		if llm.IsFatal(err) {
			s.fatalStop(err)
			return
		}
		s.recordFriction("improvement", err)
		return
	}
	s.deps.Engage.TouchImprovement(s.now())
	s.persist()
	logging.Scheduler("improvement pass completed")
}

func buildReflectionPrompt(performers []store.OutcomeRow) string {
	var b strings.Builder
	b.WriteString("Reflect on your recent social activity.\n")
	for _, p := range performers {
		fmt.Fprintf(&b, "Post %s: %d likes, %d replies, %d reposts\n",
			p.PostRef, p.Likes, p.Replies, p.Reposts)
	}
	b.WriteString("Summarize what resonated and what to adjust.")
	return b.String()
}

func buildImprovementPrompt(frictions []store.FrictionRecord) string {
	var b strings.Builder
	b.WriteString("The following operational frictions occurred:\n")
	for _, f := range frictions {
		if f.Resolved {
			continue
		}
		fmt.Fprintf(&b, "- [%s] %s\n", f.Loop, f.Message)
	}
	b.WriteString("Propose concrete adjustments.")
	return b.String()
}

// -----------------------------------------------------------------------------
// Engagement check
// -----------------------------------------------------------------------------

// engagementPollConcurrency bounds concurrent metric polls.
const engagementPollConcurrency = 4

// runEngagementCheck polls outcome metrics for content emitted earlier and
// archives the snapshots. It never changes the mode.
func (s *Scheduler) runEngagementCheck(ctx context.Context) {
	defer s.recoverCycle("engagement_check")
	s.markRun("engagement_check")

	refs := s.recentPostRefs()
	if len(refs) == 0 || s.deps.Engagement == nil || s.deps.Metrics == nil {
		return
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(engagementPollConcurrency)
	rows := make([]store.OutcomeRow, len(refs))

	for i, ref := range refs {
		eg.Go(func() error {
			row, err := s.deps.Engagement.FetchEngagement(egCtx, ref)
			if err != nil {
				return fmt.Errorf("fetch engagement for %s: %w", ref, err)
			}
			rows[i] = row
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		s.recordFriction("engagement_check", err)
		return
	}

	for _, row := range rows {
		if row.PostRef == "" {
			continue
		}
		if err := s.deps.Metrics.Record(row); err != nil {
			logging.Get(logging.CategoryScheduler).Warn("archive outcome: %v", err)
		}
	}
	logging.Scheduler("engagement check archived %d snapshots", len(rows))
}

// -----------------------------------------------------------------------------
// Shared plumbing
// -----------------------------------------------------------------------------

// recoverCycle degrades a panicking cycle to a logged friction record.
func (s *Scheduler) recoverCycle(loop string) {
	if r := recover(); r != nil {
		s.recordFriction(loop, fmt.Errorf("panic: %v", r))
	}
}

// maxRecentPosts bounds the engagement polling window.
const maxRecentPosts = 20

// rememberPost keeps the reference of recently emitted content for the
// engagement-check loop.
func (s *Scheduler) rememberPost(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recentPosts = append(s.recentPosts, ref)
	if len(s.recentPosts) > maxRecentPosts {
		s.recentPosts = s.recentPosts[len(s.recentPosts)-maxRecentPosts:]
	}
}

func (s *Scheduler) recentPostRefs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.recentPosts...)
}

// persist saves all durable stores. Best-effort; failures are logged inside
// the stores themselves.
func (s *Scheduler) persist() {
	_ = s.deps.Engage.Save()
	_ = s.deps.Posts.Save()
	_ = s.deps.Queue.Save()
}
