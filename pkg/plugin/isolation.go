package plugin

import (
	"fmt"
	"slices"
)

// IsolationStrategy enforces capability restrictions for plugins.
type IsolationStrategy interface {
	Validate(m Manifest, policy IsolationPolicy) error
	Prepare(m Manifest) error
	Cleanup(m Manifest) error
}

// NoopIsolationStrategy performs only capability validation.
type NoopIsolationStrategy struct{}

// Validate ensures the plugin's required capabilities are allowed.
// An empty policy allows everything.
func (NoopIsolationStrategy) Validate(m Manifest, policy IsolationPolicy) error {
	required := m.RequiredCapabilities()
	for _, c := range policy.DeniedCapabilities {
		if slices.Contains(required, c) {
			return fmt.Errorf("capability %s is explicitly denied", c)
		}
	}
	if len(policy.AllowedCapabilities) == 0 {
		return nil
	}
	for _, c := range required {
		if !slices.Contains(policy.AllowedCapabilities, c) {
			return fmt.Errorf("capability %s not permitted", c)
		}
	}
	return nil
}

// Prepare implements IsolationStrategy.
func (NoopIsolationStrategy) Prepare(Manifest) error { return nil }

// Cleanup implements IsolationStrategy.
func (NoopIsolationStrategy) Cleanup(Manifest) error { return nil }

// NewIsolationStrategy returns a default isolation strategy if none is supplied.
func NewIsolationStrategy(strategy IsolationStrategy) IsolationStrategy {
	if strategy == nil {
		return NoopIsolationStrategy{}
	}
	return strategy
}

// MergePolicies combines the default and plugin specific isolation policies.
func MergePolicies(defaults IsolationPolicy, plugin *IsolationPolicy) IsolationPolicy {
	if plugin == nil {
		return defaults
	}
	merged := plugin.Merge(defaults)
	if len(merged.AllowedCapabilities) == 0 && len(merged.DeniedCapabilities) == 0 {
		return defaults
	}
	return merged
}
