package conversation

import (
	"fmt"

	"murmur/internal/config"
)

// PostRef identifies a thread root on the social feed by its post URI.
type PostRef string

// IssueRef identifies a thread root in the issue tracker.
type IssueRef struct {
	Repo   string `json:"repo"`
	Number int    `json:"number"`
}

// PostKey maps a post reference to its store key.
func PostKey(r PostRef) string { return string(r) }

// IssueKey maps an issue reference to its store key.
func IssueKey(r IssueRef) string { return fmt.Sprintf("%s#%d", r.Repo, r.Number) }

// ThresholdsFromConfig resolves the config section into a runtime
// threshold set.
func ThresholdsFromConfig(cfg config.ConversationConfig) Thresholds {
	privileged := make(map[string]bool, len(cfg.PrivilegedSources))
	for _, s := range cfg.PrivilegedSources {
		privileged[s] = true
	}
	return Thresholds{
		MaxRepliesBeforeExit: cfg.MaxRepliesBeforeExit,
		MaxThreadDepth:       cfg.MaxThreadDepth,
		DisengagementWindow:  cfg.GetDisengagementWindow(),
		NoResponseTimeout:    cfg.GetNoResponseTimeout(),
		ClosingRapidFire:     cfg.GetClosingRapidFireWindow(),
		StaleAge:             cfg.GetStaleAge(),
		ConcludedGCAge:       cfg.GetConcludedGCAge(),
		ReengagementCap:      cfg.ReengagementCap,
		Privileged:           func(source string) bool { return privileged[source] },
	}
}

// NewPostTracker creates the social-feed tracker.
func NewPostTracker(path, agentID string, th Thresholds) *Tracker[PostRef] {
	return New[PostRef](path, agentID, th, PostKey, nil)
}

// NewIssueTracker creates the issue-tracker-domain tracker.
func NewIssueTracker(path, agentID string, th Thresholds) *Tracker[IssueRef] {
	return New[IssueRef](path, agentID, th, IssueKey, nil)
}
