package plugin

import (
	"context"
	"time"

	"RadialCore/pkg/capability"
)

// Plugin defines the lifecycle hooks that each plugin implementation must satisfy.
type Plugin interface {
	// Manifest returns the static descriptor. It is read once at load time.
	Manifest() Manifest
	// Initialize is called exactly once before the plugin is considered loaded.
	// Providers must be registered through ctx during this call.
	Initialize(ctx InitContext) error
	// OnTick is called every frame while the plugin is loaded and not disabled.
	OnTick(dt time.Duration) error
	// Shutdown releases resources. It is called at most once.
	Shutdown() error
}

// InitContext is handed to Plugin.Initialize and bound to the calling plugin.
type InitContext interface {
	PluginID() string

	RegisterMenuProvider(p MenuProvider)
	RegisterActionHandler(h ActionHandler)
	RegisterPanelProvider(p PanelProvider)
	RegisterContextProvider(p ContextProvider)
	RegisterConditionEvaluator(e ConditionEvaluator)

	// Capabilities exposes the host's optional service registry.
	Capabilities() *capability.Resolver
	// IsModLoaded reports whether a host mod is present.
	IsModLoaded(modID string) bool
	// Config returns the plugin's configuration block from the host config.
	Config() map[string]any

	LogInfo(msg string, args ...any)
	LogWarning(msg string, args ...any)
	LogError(msg string, err error, args ...any)
}

// MenuProvider contributes radial entries for the current snapshot.
type MenuProvider interface {
	ProviderID() string
	Priority() int
	MenuEntries(mc *MenuContext) ([]Entry, error)
}

// ActionHandler executes actions it claims.
type ActionHandler interface {
	HandlerID() string
	CanHandle(actionID string) bool
	Execute(ctx context.Context, actionID string, mc *MenuContext) (ActionResult, error)
}

// PanelProvider supplies panel content. A nil content with a nil error means "not mine".
type PanelProvider interface {
	ProviderID() string
	CanProvide(panelID string) bool
	PanelContent(panelID string, mc *MenuContext) (*PanelContent, error)
}

// ContextProvider enriches a snapshot while it is being built.
type ContextProvider interface {
	ProviderID() string
	Priority() int
	ProvideContext(mc *MenuContext) error
}

// ConditionEvaluator resolves named visibility and enablement conditions.
type ConditionEvaluator interface {
	EvaluatorID() string
	CanEvaluate(conditionID string) bool
	Evaluate(conditionID string, mc *MenuContext) (bool, error)
}
