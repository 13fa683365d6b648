package config

// TriageConfig configures notification prioritization.
type TriageConfig struct {
	// PrincipalID is the identity of the designated principal/owner.
	// Signals from this identity jump the queue.
	PrincipalID string `yaml:"principal_id"`

	// RecurringMinInteractions is how many recorded interactions make a
	// relationship a "recurring engager".
	RecurringMinInteractions int `yaml:"recurring_min_interactions"`
}

// DefaultTriageConfig returns sensible defaults.
func DefaultTriageConfig() TriageConfig {
	return TriageConfig{
		PrincipalID:              "",
		RecurringMinInteractions: 5,
	}
}
