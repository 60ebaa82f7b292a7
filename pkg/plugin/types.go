package plugin

// Capability names an optional host service a plugin expects to resolve.
type Capability string

// Well-known capabilities registered by the host.
const (
	CapabilityPlayerState Capability = "core.player_state"
	CapabilitySelection   Capability = "core.selection"
	CapabilityGameState   Capability = "core.game_state"
)

// ProviderKind enumerates the five provider contracts a plugin may register.
type ProviderKind int

const (
	KindMenu ProviderKind = iota
	KindAction
	KindPanel
	KindContext
	KindCondition
)

// ProviderKinds lists every provider kind in declaration order.
var ProviderKinds = []ProviderKind{KindMenu, KindAction, KindPanel, KindContext, KindCondition}

func (k ProviderKind) String() string {
	switch k {
	case KindMenu:
		return "menu"
	case KindAction:
		return "action"
	case KindPanel:
		return "panel"
	case KindContext:
		return "context"
	case KindCondition:
		return "condition"
	default:
		return "unknown"
	}
}

// State represents the lifecycle position of a loaded plugin.
type State string

const (
	// StateActive plugins are initialised and contribute providers.
	StateActive State = "active"
	// StateDisabled plugins have an open circuit breaker and contribute nothing.
	StateDisabled State = "disabled"
)
