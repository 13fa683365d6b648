package config

import (
	"fmt"
	"time"
)

// ConversationConfig configures the per-thread lifecycle tracker.
// Every numeric threshold the conclusion heuristic uses lives here so
// behavior is tunable without code changes.
type ConversationConfig struct {
	// MaxRepliesBeforeExit concludes a thread once we have replied this
	// many times.
	MaxRepliesBeforeExit int `yaml:"max_replies_before_exit"`

	// MaxThreadDepth concludes a thread once it is this deep.
	MaxThreadDepth int `yaml:"max_thread_depth"`

	// DisengagementWindow is how long a previously engaged participant
	// must be silent before counting as disengaged.
	DisengagementWindow string `yaml:"disengagement_window"`

	// NoResponseTimeout concludes an awaiting_response thread after this
	// much silence following our own last reply.
	NoResponseTimeout string `yaml:"no_response_timeout"`

	// ClosingRapidFireWindow is the max spacing between our own
	// consecutive low-information closings for the thank-you-chain
	// short-circuit to fire.
	ClosingRapidFireWindow string `yaml:"closing_rapid_fire_window"`

	// StaleAge marks an unconcluded thread stale after this much
	// inactivity.
	StaleAge string `yaml:"stale_age"`

	// ConcludedGCAge garbage-collects concluded records after this age.
	ConcludedGCAge string `yaml:"concluded_gc_age"`

	// ReengagementCap limits how many times a concluded thread may be
	// revived by fresh participant activity. Privileged threads are
	// exempt from the cap.
	ReengagementCap int `yaml:"reengagement_cap"`

	// PrivilegedSources lists origin source tags whose threads get an
	// unlimited reengagement budget (e.g. workspace-linked issues).
	PrivilegedSources []string `yaml:"privileged_sources"`
}

// DefaultConversationConfig returns sensible defaults.
func DefaultConversationConfig() ConversationConfig {
	return ConversationConfig{
		MaxRepliesBeforeExit:   4,
		MaxThreadDepth:         12,
		DisengagementWindow:    "24h",
		NoResponseTimeout:      "48h",
		ClosingRapidFireWindow: "5m",
		StaleAge:               "168h", // one week
		ConcludedGCAge:         "720h", // thirty days
		ReengagementCap:        1,
		PrivilegedSources:      []string{"workspace"},
	}
}

func (c ConversationConfig) validate() error {
	if c.MaxRepliesBeforeExit < 1 {
		return fmt.Errorf("max_replies_before_exit must be >= 1")
	}
	if c.MaxThreadDepth < 1 {
		return fmt.Errorf("max_thread_depth must be >= 1")
	}
	if c.ReengagementCap < 0 {
		return fmt.Errorf("reengagement_cap must be >= 0")
	}
	return nil
}

// GetDisengagementWindow returns the participant disengagement window.
func (c ConversationConfig) GetDisengagementWindow() time.Duration {
	return parseDuration(c.DisengagementWindow, 24*time.Hour)
}

// GetNoResponseTimeout returns the awaiting-response timeout.
func (c ConversationConfig) GetNoResponseTimeout() time.Duration {
	return parseDuration(c.NoResponseTimeout, 48*time.Hour)
}

// GetClosingRapidFireWindow returns the thank-you-chain spacing window.
func (c ConversationConfig) GetClosingRapidFireWindow() time.Duration {
	return parseDuration(c.ClosingRapidFireWindow, 5*time.Minute)
}

// GetStaleAge returns the stale-marking age.
func (c ConversationConfig) GetStaleAge() time.Duration {
	return parseDuration(c.StaleAge, 7*24*time.Hour)
}

// GetConcludedGCAge returns the concluded-record GC age.
func (c ConversationConfig) GetConcludedGCAge() time.Duration {
	return parseDuration(c.ConcludedGCAge, 30*24*time.Hour)
}
