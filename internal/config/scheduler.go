package config

import (
	"fmt"
	"time"
)

// SchedulerConfig configures loop cadence and quiet hours.
// Intervals are duration strings ("45s", "4h"); the Get* accessors
// parse them with sane fallbacks.
type SchedulerConfig struct {
	// Awareness polls for new signals. Cheap, no LLM cost.
	AwarenessInterval string `yaml:"awareness_interval"`

	// Expression fires at a random point inside [Min, Max], re-rolled
	// after each firing.
	ExpressionMinInterval string `yaml:"expression_min_interval"`
	ExpressionMaxInterval string `yaml:"expression_max_interval"`

	// Reflection is the deep integration pass.
	ReflectionInterval string `yaml:"reflection_interval"`

	// EngagementCheckInterval polls outcome metrics for earlier content.
	EngagementCheckInterval string `yaml:"engagement_check_interval"`

	// Quiet hours suppress self-initiated expression. Local hours, 24h
	// clock; a window may wrap midnight (e.g. start=23, end=7).
	QuietHoursStart int `yaml:"quiet_hours_start"`
	QuietHoursEnd   int `yaml:"quiet_hours_end"`

	// Improvement only runs when at least this much time has passed since
	// the previous improvement pass and actionable friction exists.
	ImprovementMinGap string `yaml:"improvement_min_gap"`

	// SignalFetchLimit caps how many signals one awareness poll requests.
	SignalFetchLimit int `yaml:"signal_fetch_limit"`
}

// DefaultSchedulerConfig returns sensible defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		AwarenessInterval:       "45s",
		ExpressionMinInterval:   "2h",
		ExpressionMaxInterval:   "6h",
		ReflectionInterval:      "4h",
		EngagementCheckInterval: "15m",
		QuietHoursStart:         23,
		QuietHoursEnd:           7,
		ImprovementMinGap:       "12h",
		SignalFetchLimit:        50,
	}
}

func (c SchedulerConfig) validate() error {
	if c.QuietHoursStart < 0 || c.QuietHoursStart > 23 {
		return fmt.Errorf("quiet_hours_start %d out of range [0,23]", c.QuietHoursStart)
	}
	if c.QuietHoursEnd < 0 || c.QuietHoursEnd > 23 {
		return fmt.Errorf("quiet_hours_end %d out of range [0,23]", c.QuietHoursEnd)
	}
	if min, max := c.GetExpressionMin(), c.GetExpressionMax(); max < min {
		return fmt.Errorf("expression_max_interval %v < expression_min_interval %v", max, min)
	}
	return nil
}

// GetAwarenessInterval returns the awareness loop interval.
func (c SchedulerConfig) GetAwarenessInterval() time.Duration {
	return parseDuration(c.AwarenessInterval, 45*time.Second)
}

// GetExpressionMin returns the lower bound of the expression interval.
func (c SchedulerConfig) GetExpressionMin() time.Duration {
	return parseDuration(c.ExpressionMinInterval, 2*time.Hour)
}

// GetExpressionMax returns the upper bound of the expression interval.
func (c SchedulerConfig) GetExpressionMax() time.Duration {
	return parseDuration(c.ExpressionMaxInterval, 6*time.Hour)
}

// GetReflectionInterval returns the reflection loop interval.
func (c SchedulerConfig) GetReflectionInterval() time.Duration {
	return parseDuration(c.ReflectionInterval, 4*time.Hour)
}

// GetEngagementCheckInterval returns the engagement-check loop interval.
func (c SchedulerConfig) GetEngagementCheckInterval() time.Duration {
	return parseDuration(c.EngagementCheckInterval, 15*time.Minute)
}

// GetImprovementMinGap returns the minimum gap between improvement passes.
func (c SchedulerConfig) GetImprovementMinGap() time.Duration {
	return parseDuration(c.ImprovementMinGap, 12*time.Hour)
}

// InQuietHours reports whether t falls inside the configured quiet window.
// Handles windows that wrap midnight.
func (c SchedulerConfig) InQuietHours(t time.Time) bool {
	if c.QuietHoursStart == c.QuietHoursEnd {
		return false // zero-width window disables quiet hours
	}
	h := t.Hour()
	if c.QuietHoursStart < c.QuietHoursEnd {
		return h >= c.QuietHoursStart && h < c.QuietHoursEnd
	}
	return h >= c.QuietHoursStart || h < c.QuietHoursEnd
}
