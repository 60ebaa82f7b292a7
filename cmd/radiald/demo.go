package main

import (
	"strings"
	"sync"
	"time"

	"RadialCore/internal/contexthub"
	"RadialCore/internal/input"
	"RadialCore/pkg/plugin"
)

// 演示模式下热键的节奏：每个周期按下一次。
const (
	demoPeriod = 3 * time.Second
	demoPress  = 150 * time.Millisecond
)

type simulatedPlayer struct{}

func (simulatedPlayer) PlayerInfo() (*plugin.PlayerInfo, error) {
	return &plugin.PlayerInfo{Name: "Derthert", Gold: 2400, Level: 14, Health: 72, MaxHealth: 100}, nil
}

type simulatedSelection struct{}

func (simulatedSelection) Selection() (*plugin.SelectionInfo, error) {
	return &plugin.SelectionInfo{Kind: plugin.SelectionNPC, TargetID: "npc-lord-1", Name: "Garios", Distance: 4}, nil
}

type simulatedGameState struct{}

func (simulatedGameState) GameState() (plugin.GameStateInfo, error) {
	return plugin.GameStateInfo{OnMap: true, Screen: "map"}, nil
}

func simulatedServices() contexthub.Defaults {
	return contexthub.Defaults{
		Player:    simulatedPlayer{},
		Selection: simulatedSelection{},
		GameState: simulatedGameState{},
	}
}

// scriptedPoller 按固定周期模拟热键按下。
type scriptedPoller struct {
	key   string
	start time.Time
	now   func() time.Time
	once  sync.Once
}

func newScriptedPoller(key string) *scriptedPoller {
	if key == "" {
		key = "V"
	}
	return &scriptedPoller{key: strings.ToUpper(key), now: time.Now}
}

func (p *scriptedPoller) IsKeyDown(key string) bool {
	if !strings.EqualFold(key, p.key) {
		return false
	}
	now := p.now()
	p.once.Do(func() { p.start = now })
	return now.Sub(p.start)%demoPeriod < demoPress
}

func (p *scriptedPoller) IsModifierDown(input.Modifier) bool { return true }
