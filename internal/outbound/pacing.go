package outbound

import (
	"context"
	"sync"
	"time"

	"murmur/internal/config"
	"murmur/internal/logging"
	"murmur/internal/types"
)

// Pacer gates outbound actions to a minimum spacing per kind. Wait blocks
// (context-aware) until the cooldown for kind has elapsed; Record stamps an
// action as taken.
type Pacer interface {
	Wait(ctx context.Context, kind types.OutboundKind) error
	Record(kind types.OutboundKind)
}

// IntervalPacer is the default Pacer: a fixed cooldown per kind measured
// from the previous recorded action of that kind.
type IntervalPacer struct {
	mu        sync.Mutex
	cooldowns map[types.OutboundKind]time.Duration
	last      map[types.OutboundKind]time.Time
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewIntervalPacer builds a pacer from the outbound config.
func NewIntervalPacer(cfg config.OutboundConfig) *IntervalPacer {
	return &IntervalPacer{
		cooldowns: map[types.OutboundKind]time.Duration{
			types.OutboundPost:  cfg.GetPostCooldown(),
			types.OutboundReply: cfg.GetReplyCooldown(),
		},
		last:  make(map[types.OutboundKind]time.Time),
		now:   time.Now,
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Wait blocks until the cooldown for kind has elapsed or ctx is done.
func (p *IntervalPacer) Wait(ctx context.Context, kind types.OutboundKind) error {
	p.mu.Lock()
	cooldown := p.cooldowns[kind]
	last, ok := p.last[kind]
	p.mu.Unlock()

	if !ok {
		return nil
	}
	remaining := cooldown - p.now().Sub(last)
	if remaining <= 0 {
		return nil
	}
	logging.OutboundDebug("pacing %s: waiting %v", kind, remaining)
	return p.sleep(ctx, remaining)
}

// Record stamps kind as acted on now.
func (p *IntervalPacer) Record(kind types.OutboundKind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last[kind] = p.now()
}
