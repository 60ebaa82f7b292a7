package core

import (
	"context"
	"time"

	"RadialCore/internal/breaker"
	"RadialCore/internal/eventsink"
	"RadialCore/internal/journal"
	"RadialCore/internal/loader"
	"RadialCore/internal/notify"
	"RadialCore/internal/observability/metrics"
	"RadialCore/internal/panel"
	"RadialCore/pkg/logger"
	"RadialCore/pkg/plugin"
)

// recentActions 是状态快照中保留的最近动作数量。
const recentActions = 20

// State 是宿主的诊断快照，由 /debug/state 与 CLI 输出。
type State struct {
	CoreVersion   string                `json:"core_version"`
	Initialized   bool                  `json:"initialized"`
	Plugins       []loader.PluginInfo   `json:"plugins"`
	Breakers      []breaker.Snapshot    `json:"breakers"`
	Capabilities  []string              `json:"capabilities"`
	Menu          MenuState             `json:"menu"`
	Context       *ContextState         `json:"context,omitempty"`
	Panels        map[panel.Slot]string `json:"panels,omitempty"`
	Notifications []notify.Notification `json:"notifications"`
	Hotkey        string                `json:"hotkey"`
	Metrics       metrics.Totals        `json:"metrics"`
	Sink          *eventsink.Stats      `json:"sink,omitempty"`
	RecentActions []journal.Record      `json:"recent_actions,omitempty"`
}

// MenuState 描述菜单状态。
type MenuState struct {
	Open    bool           `json:"open"`
	Entries []plugin.Entry `json:"entries,omitempty"`
}

// ContextState 是当前上下文快照的摘要。
type ContextState struct {
	Generation uint64                `json:"generation"`
	SessionID  string                `json:"session_id"`
	Timestamp  time.Time             `json:"timestamp"`
	Keys       []string              `json:"keys"`
	Player     *plugin.PlayerInfo    `json:"player,omitempty"`
	Selection  *plugin.SelectionInfo `json:"selection,omitempty"`
	GameState  plugin.GameStateInfo  `json:"game_state"`
	Refreshes  uint64                `json:"refreshes"`
}

// DumpState 返回当前诊断快照。未初始化时只包含版本信息。
func (m *Manager) DumpState(ctx context.Context) State {
	st := State{CoreVersion: loader.CoreVersion.String(), Initialized: m.Initialized()}
	if !st.Initialized {
		return st
	}

	st.Plugins = m.loader.Plugins()
	st.Breakers = m.loader.BreakerStates()
	st.Capabilities = m.caps.Names()
	st.Menu = MenuState{Open: m.menu.IsOpen(), Entries: m.menu.Entries()}
	st.Notifications = m.notices.Active()
	st.Hotkey = m.input.HotkeyDescription()
	st.Metrics = m.collector.Totals()

	if mc := m.hub.Current(); mc != nil {
		st.Context = &ContextState{
			Generation: mc.Generation,
			SessionID:  mc.SessionID,
			Timestamp:  mc.Timestamp,
			Keys:       mc.Keys(),
			Player:     mc.Player,
			Selection:  mc.Selection,
			GameState:  mc.GameState,
			Refreshes:  m.hub.Refreshes(),
		}
	}

	for _, slot := range panel.Slots {
		if content, ok := m.panels.Content(slot); ok && content != nil {
			if st.Panels == nil {
				st.Panels = make(map[panel.Slot]string)
			}
			st.Panels[slot] = content.Title
		}
	}

	if m.forwarder != nil {
		stats := m.forwarder.Stats()
		st.Sink = &stats
	}

	records, err := m.journal.Recent(ctx, recentActions)
	if err != nil {
		m.log.Warn("读取动作日志失败", logger.Err(err))
	}
	st.RecentActions = records
	return st
}
