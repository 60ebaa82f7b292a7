package basicactions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "RadialCore/internal/errors"
	"RadialCore/internal/loader"
	"RadialCore/pkg/logger"
	"RadialCore/pkg/plugin"
)

func loadBuiltin(t *testing.T, cfg map[string]any) *loader.PluginLoader {
	t.Helper()
	l := loader.New(
		loader.WithLogger(logger.Discard()),
		loader.WithManagerConfig(plugin.ManagerConfig{Plugins: map[string]plugin.PluginConfig{ID: {Enabled: true, Config: cfg}}}),
	)
	require.NoError(t, l.Load(New()))
	t.Cleanup(l.Shutdown)
	return l
}

func snapshot(player *plugin.PlayerInfo, sel *plugin.SelectionInfo) *plugin.MenuContext {
	mc := plugin.NewMenuContext(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	mc.SessionID = "session-1"
	mc.Player = player
	mc.Selection = sel
	return mc
}

func TestRegistersEveryProviderKind(t *testing.T) {
	l := loadBuiltin(t, map[string]any{"delay_scale": 0.0})
	for _, kind := range plugin.ProviderKinds {
		assert.Equal(t, 1, l.ProviderCount(kind), kind.String())
	}
}

func TestMenuEntriesDependOnSelection(t *testing.T) {
	entries, err := menuProvider{}.MenuEntries(snapshot(nil, nil))
	require.NoError(t, err)
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"basicactions.inventory", "basicactions.map", "basicactions.quests", "basicactions.submenu.test"}, ids)
	assert.Len(t, entries[3].SubEntries, 2)

	far := &plugin.SelectionInfo{Kind: plugin.SelectionNPC, Name: "Rhagaea", Distance: 8}
	entries, err = menuProvider{}.MenuEntries(snapshot(nil, far))
	require.NoError(t, err)
	talk := entries[3]
	assert.Equal(t, "basicactions.talk", talk.ID)
	assert.Equal(t, "Talk to Rhagaea", talk.Label)
	assert.Equal(t, 150, talk.Priority)
	assert.False(t, talk.Enabled)
}

func TestActions(t *testing.T) {
	h := &actionHandler{}
	ctx := context.Background()
	npc := &plugin.SelectionInfo{Kind: plugin.SelectionNPC, Name: "Caladog", Distance: 2}

	r, err := h.Execute(ctx, "basicactions.quests", snapshot(nil, nil))
	require.NoError(t, err)
	assert.Equal(t, "Quests opened - 3 active quests", r.Message)

	r, _ = h.Execute(ctx, "basicactions.talk", snapshot(nil, nil))
	assert.False(t, r.Success)
	assert.Equal(t, "No NPC selected", r.Message)

	r, _ = h.Execute(ctx, "basicactions.talk", snapshot(nil, npc))
	assert.True(t, r.Success)
	assert.Contains(t, r.Message, "Caladog")

	r, _ = h.Execute(ctx, "basicactions.test.action2", snapshot(nil, nil))
	assert.Equal(t, plugin.ResultWarning, r.Kind)

	r, _ = h.Execute(ctx, "basicactions.rename.submit", snapshot(nil, nil))
	assert.False(t, r.Success)
	assert.True(t, h.CanHandle("basicactions.rename.submit"))
	assert.False(t, h.CanHandle("other.map"))
}

func TestActionHonoursCancellation(t *testing.T) {
	h := &actionHandler{scale: 1}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, err := h.Execute(ctx, "basicactions.test.action1", snapshot(nil, nil))
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Equal(t, xerrors.CodeCancelled, xerrors.CodeOf(r.Err))
}

func TestPanels(t *testing.T) {
	p := panelProvider{}
	assert.True(t, p.CanProvide("basicactions.preview.map"))
	assert.True(t, p.CanProvide("basicactions.input.rename"))
	assert.False(t, p.CanProvide("other.preview"))

	content, err := p.PanelContent("basicactions.preview.inventory", snapshot(&plugin.PlayerInfo{Gold: 42, Level: 7}, nil))
	require.NoError(t, err)
	assert.Contains(t, content.Body, "Gold: 42")

	content, _ = p.PanelContent("basicactions.preview.talk", snapshot(nil, &plugin.SelectionInfo{Kind: plugin.SelectionNPC, Name: "Derthert", Distance: 9.3}))
	assert.Contains(t, content.Body, "Distance: 9.3m")
	assert.Contains(t, content.Body, "Too far away!")

	content, _ = p.PanelContent("basicactions.input.rename", snapshot(nil, nil))
	require.NotNil(t, content.Input)
	assert.Equal(t, plugin.PanelTextInput, content.Kind)
	assert.Equal(t, 50, content.Input.MaxLength)

	content, err = p.PanelContent("basicactions.preview.unknown", snapshot(nil, nil))
	assert.NoError(t, err)
	assert.Nil(t, content)
}

func TestContextProvider(t *testing.T) {
	mc := snapshot(&plugin.PlayerInfo{Gold: 1500, Health: 40, MaxHealth: 100}, nil)
	require.NoError(t, contextProvider{}.ProvideContext(mc))
	for key, want := range map[string]string{KeyWealth: "Rich", KeyHealthStatus: "Injured", KeySessionID: "session-1"} {
		got, ok := mc.String(key)
		assert.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}

	sealed := snapshot(nil, nil)
	sealed.Seal()
	assert.ErrorIs(t, contextProvider{}.ProvideContext(sealed), plugin.ErrSnapshotSealed)
}

func TestCategories(t *testing.T) {
	assert.Equal(t, "Poor", WealthCategory(99))
	assert.Equal(t, "Middle", WealthCategory(100))
	assert.Equal(t, "Rich", WealthCategory(9999))
	assert.Equal(t, "Very Rich", WealthCategory(10000))

	assert.Equal(t, "Healthy", HealthStatus(0.76))
	assert.Equal(t, "Wounded", HealthStatus(0.75))
	assert.Equal(t, "Injured", HealthStatus(0.5))
	assert.Equal(t, "Critical", HealthStatus(0.25))
}

func TestConditions(t *testing.T) {
	ev := conditionEvaluator{}
	mc := snapshot(&plugin.PlayerInfo{Gold: 1000, Mounted: true, Health: 60, MaxHealth: 100},
		&plugin.SelectionInfo{Kind: plugin.SelectionNPC, Distance: 7})
	mc.GameState.OnMap = true

	cases := map[string]bool{
		"basic.player.hasGold":      true,
		"basic.player.rich":         true,
		"basic.player.healthy":      true,
		"basic.player.inCombat":     false,
		"basic.player.onHorse":      true,
		"basic.npc.nearby":          true,
		"basic.npc.close":           false,
		"basic.gamestate.onMap":     true,
		"basic.gamestate.inMission": false,
		"basic.unknown":             false,
	}
	for id, want := range cases {
		assert.True(t, ev.CanEvaluate(id))
		got, err := ev.Evaluate(id, mc)
		require.NoError(t, err)
		assert.Equal(t, want, got, id)
	}
	assert.False(t, ev.CanEvaluate("mod.other"))
}
