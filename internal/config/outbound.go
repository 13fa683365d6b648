package config

import (
	"fmt"
	"time"
)

// OutboundConfig configures the dedup and pacing queue.
type OutboundConfig struct {
	// FingerprintPrefixLen truncates normalized text before hashing so
	// near-duplicates with divergent tails still collide.
	FingerprintPrefixLen int `yaml:"fingerprint_prefix_len"`

	// WindowSize bounds the rolling fingerprint set.
	WindowSize int `yaml:"window_size"`

	// Minimum spacing between outbound actions, per kind.
	PostCooldown  string `yaml:"post_cooldown"`
	ReplyCooldown string `yaml:"reply_cooldown"`
}

// DefaultOutboundConfig returns sensible defaults.
func DefaultOutboundConfig() OutboundConfig {
	return OutboundConfig{
		FingerprintPrefixLen: 120,
		WindowSize:           500,
		PostCooldown:         "30m",
		ReplyCooldown:        "90s",
	}
}

func (c OutboundConfig) validate() error {
	if c.FingerprintPrefixLen < 16 {
		return fmt.Errorf("fingerprint_prefix_len %d too small (min 16)", c.FingerprintPrefixLen)
	}
	if c.WindowSize < 1 {
		return fmt.Errorf("window_size must be >= 1")
	}
	return nil
}

// GetPostCooldown returns the minimum spacing between top-level posts.
func (c OutboundConfig) GetPostCooldown() time.Duration {
	return parseDuration(c.PostCooldown, 30*time.Minute)
}

// GetReplyCooldown returns the minimum spacing between replies.
func (c OutboundConfig) GetReplyCooldown() time.Duration {
	return parseDuration(c.ReplyCooldown, 90*time.Second)
}
