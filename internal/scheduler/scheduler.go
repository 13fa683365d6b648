// Package scheduler coordinates the agent's independently timed behavior
// loops while guaranteeing at most one is active at a time. Loops fire on
// their own cadence, check the mode guard, and skip their cycle when
// another behavior holds the mode. Cooperative and single-flight: nothing
// blocks waiting for the mode, nothing preempts in-progress work.
package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"murmur/internal/config"
	"murmur/internal/conversation"
	"murmur/internal/logging"
	"murmur/internal/outbound"
	"murmur/internal/store"
	"murmur/internal/triage"
	"murmur/internal/types"
)

// SendReceipt identifies transmitted content.
type SendReceipt struct {
	ID    string
	Token string // platform integrity token
}

// SignalSource fetches recent inbound social signals.
type SignalSource interface {
	FetchRecentSignals(ctx context.Context, limit int) ([]types.Signal, error)
}

// Transmitter sends generated content to the platform.
type Transmitter interface {
	Send(ctx context.Context, kind types.OutboundKind, text, threadRoot string) (SendReceipt, error)
}

// Generator produces content. Errors may be fatal (llm.IsFatal).
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SessionProvider establishes and validates the platform session.
type SessionProvider interface {
	EnsureValidSession(ctx context.Context) (bool, error)
}

// EngagementSource polls outcome metrics for content emitted earlier.
type EngagementSource interface {
	FetchEngagement(ctx context.Context, postRef string) (store.OutcomeRow, error)
}

// Deps bundles the collaborators and kernel components the scheduler drives.
type Deps struct {
	Signals     SignalSource
	Transmitter Transmitter
	Generator   Generator
	Session     SessionProvider
	Engagement  EngagementSource

	Prioritizer *triage.Prioritizer
	Posts       *conversation.Tracker[conversation.PostRef]
	Queue       *outbound.Queue
	Engage      *store.EngagementStore
	Metrics     *store.MetricsArchive
}

// State is a read-only snapshot of the scheduler.
type State struct {
	Mode              Mode
	Running           bool
	StartedAt         time.Time
	LastRun           map[string]time.Time
	PendingBacklog    int
	ConsecutiveErrors int
}

// Scheduler is the agent's control plane.
type Scheduler struct {
	mu   sync.Mutex
	cfg  config.SchedulerConfig
	deps Deps

	state struct {
		Mode              Mode
		StartedAt         time.Time
		LastRun           map[string]time.Time
		PendingBacklog    int
		ConsecutiveErrors int
	}
	running bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// fatalErr records the error that halted the agent, if any.
	fatalErr error

	// recentPosts holds refs of recently emitted content, polled by the
	// engagement-check loop.
	recentPosts []string

	now  func() time.Time
	rand func(min, max time.Duration) time.Duration
}

// New creates a scheduler. It does not start any loops.
func New(cfg config.SchedulerConfig, deps Deps) *Scheduler {
	s := &Scheduler{
		cfg:  cfg,
		deps: deps,
		now:  time.Now,
		rand: randBetween,
	}
	s.state.Mode = ModeIdle
	s.state.LastRun = make(map[string]time.Time)
	return s
}

func randBetween(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// SetConfig swaps the cadence/quiet-hours config (hot reload). Intervals of
// already-armed timers apply from their next firing.
func (s *Scheduler) SetConfig(cfg config.SchedulerConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// Config returns a snapshot of the current config.
func (s *Scheduler) Config() config.SchedulerConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// GetState returns a read-only snapshot.
func (s *Scheduler) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	last := make(map[string]time.Time, len(s.state.LastRun))
	for k, v := range s.state.LastRun {
		last[k] = v
	}
	return State{
		Mode:              s.state.Mode,
		Running:           s.running,
		StartedAt:         s.state.StartedAt,
		LastRun:           last,
		PendingBacklog:    s.state.PendingBacklog,
		ConsecutiveErrors: s.state.ConsecutiveErrors,
	}
}

// FatalErr returns the error that halted the scheduler, if any.
func (s *Scheduler) FatalErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatalErr
}

// Start begins all loops. Idempotent. If a valid session cannot be
// established no loop starts and the scheduler stays stopped with a logged
// diagnostic.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	ok, err := s.deps.Session.EnsureValidSession(ctx)
	if err != nil || !ok {
		if err == nil {
			err = fmt.Errorf("session provider declined")
		}
		logging.Get(logging.CategoryScheduler).Error(
			"cannot establish session, scheduler not starting: %v", err)
		return fmt.Errorf("session not established, check credentials: %w", err)
	}

	s.mu.Lock()
	s.running = true
	s.state.StartedAt = s.now()
	s.ctx, s.cancel = context.WithCancel(ctx)
	cfg := s.cfg
	s.mu.Unlock()

	logging.Scheduler("starting loops: awareness=%v expression=[%v,%v] reflection=%v engagement=%v",
		cfg.GetAwarenessInterval(), cfg.GetExpressionMin(), cfg.GetExpressionMax(),
		cfg.GetReflectionInterval(), cfg.GetEngagementCheckInterval())

	s.wg.Add(4)
	go s.awarenessLoop()
	go s.expressionLoop()
	go s.reflectionLoop()
	go s.engagementLoop()
	return nil
}

// Stop cancels all pending timers and waits for loops to exit. An in-flight
// cycle completes; no new timers remain after return. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()

	s.mu.Lock()
	s.state.Mode = ModeIdle
	s.mu.Unlock()
	logging.Scheduler("stopped")
}

// fatalStop records a fatal collaborator error and shuts the loops down.
// Called from inside a cycle, so the loops are stopped asynchronously.
func (s *Scheduler) fatalStop(err error) {
	s.mu.Lock()
	if s.fatalErr == nil {
		s.fatalErr = err
	}
	running := s.running
	s.mu.Unlock()

	logging.Get(logging.CategoryScheduler).Error(
		"fatal collaborator error, stopping agent: %v", err)
	if running {
		go s.Stop()
	}
}

// markRun stamps a loop's last-run time.
func (s *Scheduler) markRun(loop string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastRun[loop] = s.now()
}

// recordFriction logs a cycle failure and files a friction record for the
// improvement pass.
func (s *Scheduler) recordFriction(loop string, err error) {
	logging.Get(logging.CategoryScheduler).Warn("%s cycle failed: %v", loop, err)
	s.deps.Engage.AddFriction(store.FrictionRecord{
		ID:        uuid.NewString(),
		Loop:      loop,
		Message:   err.Error(),
		Timestamp: s.now(),
	})
}

// ForceAwareness synchronously runs one awareness cycle if the scheduler is
// idle; no-op otherwise. Never preempts active work.
func (s *Scheduler) ForceAwareness(ctx context.Context) {
	s.runAwareness(ctx)
}

// ForceExpression synchronously runs one expression cycle if idle.
func (s *Scheduler) ForceExpression(ctx context.Context) {
	s.runExpression(ctx)
}

// ForceReflection synchronously runs one reflection cycle if idle.
func (s *Scheduler) ForceReflection(ctx context.Context) {
	s.runReflection(ctx)
}
