package plugin

import "RadialCore/pkg/capability"

// PlayerStateService reads the controlled character from the host runtime.
type PlayerStateService interface {
	PlayerInfo() (*PlayerInfo, error)
}

// SelectionService reports what the player is targeting, typically the nearest NPC.
type SelectionService interface {
	Selection() (*SelectionInfo, error)
}

// GameStateService reports the current game mode flags.
type GameStateService interface {
	GameState() (GameStateInfo, error)
}

// Keys for the default context services. Each is optional.
var (
	PlayerStateKey = capability.NewKey[PlayerStateService](string(CapabilityPlayerState))
	SelectionKey   = capability.NewKey[SelectionService](string(CapabilitySelection))
	GameStateKey   = capability.NewKey[GameStateService](string(CapabilityGameState))
)
