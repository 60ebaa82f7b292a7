package plugin

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// ErrSnapshotSealed is returned when mutating a published snapshot.
var ErrSnapshotSealed = errors.New("menu context snapshot is sealed")

// PlayerInfo summarises the controlled character.
type PlayerInfo struct {
	Name      string `json:"name"`
	Gold      int    `json:"gold"`
	Level     int    `json:"level"`
	InCombat  bool   `json:"in_combat"`
	Mounted   bool   `json:"mounted"`
	Health    int    `json:"health"`
	MaxHealth int    `json:"max_health"`
}

// HealthRatio returns health as a fraction of max health in [0,1].
func (p PlayerInfo) HealthRatio() float64 {
	if p.MaxHealth <= 0 {
		return 0
	}
	r := float64(p.Health) / float64(p.MaxHealth)
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}

// SelectionKind classifies what the player is currently targeting.
type SelectionKind string

const (
	SelectionNone       SelectionKind = "none"
	SelectionNPC        SelectionKind = "npc"
	SelectionSettlement SelectionKind = "settlement"
	SelectionParty      SelectionKind = "party"
	SelectionTroop      SelectionKind = "troop"
	SelectionItem       SelectionKind = "item"
)

// SelectionInfo describes the current target.
type SelectionInfo struct {
	Kind     SelectionKind `json:"kind"`
	TargetID string        `json:"target_id"`
	Name     string        `json:"name"`
	Distance float64       `json:"distance"`
}

// GameStateInfo carries coarse game-mode flags.
type GameStateInfo struct {
	OnMap          bool   `json:"on_map"`
	InMission      bool   `json:"in_mission"`
	InConversation bool   `json:"in_conversation"`
	InInventory    bool   `json:"in_inventory"`
	Paused         bool   `json:"paused"`
	Screen         string `json:"screen"`
}

// MenuContext is a point-in-time snapshot consumed by menu, condition, panel
// and action logic. Context providers mutate it while it is being built; once
// the hub publishes it the snapshot is sealed and Set returns ErrSnapshotSealed.
type MenuContext struct {
	Timestamp  time.Time      `json:"timestamp"`
	SessionID  string         `json:"session_id"`
	Generation uint64         `json:"generation"`
	Player     *PlayerInfo    `json:"player,omitempty"`
	Selection  *SelectionInfo `json:"selection,omitempty"`
	GameState  GameStateInfo  `json:"game_state"`

	mu     sync.RWMutex
	data   map[string]any
	sealed bool
}

// NewMenuContext returns an empty, unsealed snapshot stamped with at.
func NewMenuContext(at time.Time) *MenuContext {
	return &MenuContext{Timestamp: at, data: map[string]any{}}
}

// Set stores a provider-contributed value.
func (c *MenuContext) Set(key string, value any) error {
	if key == "" {
		return errors.New("custom data key cannot be empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed {
		return fmt.Errorf("set %q: %w", key, ErrSnapshotSealed)
	}
	if c.data == nil {
		c.data = map[string]any{}
	}
	c.data[key] = value
	return nil
}

// Get returns a provider-contributed value.
func (c *MenuContext) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key]
	return v, ok
}

// String returns the value for key when it is a string.
func (c *MenuContext) String(key string) (string, bool) {
	v, ok := c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Keys returns the custom data keys in lexical order.
func (c *MenuContext) Keys() []string {
	c.mu.RLock()
	keys := slices.Collect(maps.Keys(c.data))
	c.mu.RUnlock()
	slices.Sort(keys)
	return keys
}

// Len returns the number of custom data entries.
func (c *MenuContext) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Data returns a copy of the custom data bag.
func (c *MenuContext) Data() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.data)
}

// Seal freezes the custom data bag.
func (c *MenuContext) Seal() {
	c.mu.Lock()
	c.sealed = true
	c.mu.Unlock()
}

// Sealed reports whether the snapshot has been published.
func (c *MenuContext) Sealed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sealed
}

// Clone returns an unsealed copy. Player and selection sections are copied by value.
func (c *MenuContext) Clone() *MenuContext {
	c.mu.RLock()
	defer c.mu.RUnlock()
	dup := &MenuContext{
		Timestamp:  c.Timestamp,
		SessionID:  c.SessionID,
		Generation: c.Generation,
		GameState:  c.GameState,
		data:       maps.Clone(c.data),
	}
	if dup.data == nil {
		dup.data = map[string]any{}
	}
	if c.Player != nil {
		p := *c.Player
		dup.Player = &p
	}
	if c.Selection != nil {
		s := *c.Selection
		dup.Selection = &s
	}
	return dup
}
