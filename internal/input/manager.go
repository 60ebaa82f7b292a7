// Package input 将热键轮询转换为菜单打开/关闭请求。
//
// 支持切换模式（按一次打开、再按一次关闭）与按住模式（按住打开、松开关闭）。
// 菜单的打开状态由 statekit 状态机维护。
package input

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/statekit"

	"RadialCore/internal/events"
	"RadialCore/pkg/logger"
)

// MinHoldDuration 是按住模式下松开键之前必须保持的最短时间，
// 短于该时间的按压被视为误触，菜单保持打开。
const MinHoldDuration = 100 * time.Millisecond

// 状态机的状态与事件。
const (
	stateClosed = "closed"
	stateOpen   = "open"

	eventOpen  = "OPEN"
	eventClose = "CLOSE"
)

// Modifier 是热键的修饰键。
type Modifier string

const (
	ModifierNone  Modifier = "none"
	ModifierShift Modifier = "shift"
	ModifierCtrl  Modifier = "ctrl"
	ModifierAlt   Modifier = "alt"
)

// KeyPoller 是宿主提供的输入轮询原语。
type KeyPoller interface {
	IsKeyDown(key string) bool
	IsModifierDown(m Modifier) bool
}

// Config 描述热键设置。
type Config struct {
	Key      string
	Modifier Modifier
	HoldMode bool
	Enabled  bool
}

// DefaultConfig 返回默认热键：V，无修饰键，切换模式。
func DefaultConfig() Config {
	return Config{Key: "V", Modifier: ModifierNone, Enabled: true}
}

type machineContext struct{}

// Manager 在每帧轮询热键并维护菜单开关状态。
type Manager struct {
	mu       sync.Mutex
	cfg      Config
	poller   KeyPoller
	bus      *events.Bus
	log      *slog.Logger
	interp   *statekit.Interpreter[machineContext]
	wasDown  bool
	heldFor  time.Duration
	openedAt time.Time
	now      func() time.Time
}

// New 创建输入管理器。
func New(cfg Config, poller KeyPoller, bus *events.Bus, log *slog.Logger) (*Manager, error) {
	if log == nil {
		log = logger.Component("InputManager")
	}
	cfg = normalize(cfg)
	interp, err := buildMachine()
	if err != nil {
		return nil, fmt.Errorf("build input state machine: %w", err)
	}
	interp.Start()
	return &Manager{cfg: cfg, poller: poller, bus: bus, log: log, interp: interp, now: time.Now}, nil
}

func buildMachine() (*statekit.Interpreter[machineContext], error) {
	machine, err := statekit.NewMachine[machineContext]("radial-input").
		WithInitial(stateClosed).
		WithContext(machineContext{}).
		State(stateClosed).
		On(eventOpen).Target(stateOpen).Done().
		State(stateOpen).
		On(eventClose).Target(stateClosed).Done().
		Build()
	if err != nil {
		return nil, err
	}
	return statekit.NewInterpreter(machine), nil
}

func normalize(cfg Config) Config {
	cfg.Key = strings.ToUpper(strings.TrimSpace(cfg.Key))
	if cfg.Key == "" {
		cfg.Key = "V"
	}
	if cfg.Modifier == "" {
		cfg.Modifier = ModifierNone
	}
	return cfg
}

// OnTick 轮询热键。
func (m *Manager) OnTick(dt time.Duration) {
	m.mu.Lock()
	if !m.cfg.Enabled || m.poller == nil {
		m.mu.Unlock()
		return
	}
	down := m.hotkeyDown()
	pressed := down && !m.wasDown
	released := !down && m.wasDown
	m.wasDown = down
	if down {
		m.heldFor += dt
	}

	var ev events.Event
	switch {
	case m.cfg.HoldMode && pressed:
		m.heldFor = 0
		ev = m.transition(eventOpen)
	case m.cfg.HoldMode && released:
		if m.heldFor >= MinHoldDuration {
			ev = m.transition(eventClose)
		}
	case !m.cfg.HoldMode && pressed:
		if m.isOpen() {
			ev = m.transition(eventClose)
		} else {
			ev = m.transition(eventOpen)
		}
	}
	m.mu.Unlock()

	if ev != nil && m.bus != nil {
		m.bus.Publish(ev)
	}
}

func (m *Manager) hotkeyDown() bool {
	if !m.poller.IsKeyDown(m.cfg.Key) {
		return false
	}
	if m.cfg.Modifier == ModifierNone {
		return true
	}
	return m.poller.IsModifierDown(m.cfg.Modifier)
}

// transition 驱动状态机，状态发生变化时返回需要发布的事件。
func (m *Manager) transition(event statekit.EventType) events.Event {
	before := m.isOpen()
	m.interp.Send(statekit.Event{Type: event})
	after := m.isOpen()
	if before == after {
		return nil
	}
	at := m.now()
	if after {
		m.openedAt = at
		m.log.Debug("请求打开菜单")
		return events.MenuOpenRequested{At: at}
	}
	m.log.Debug("请求关闭菜单", slog.Duration("open_for", at.Sub(m.openedAt)))
	return events.MenuCloseRequested{At: at}
}

func (m *Manager) isOpen() bool {
	return m.interp.State().Value == stateOpen
}

// IsOpen 返回菜单是否处于打开状态。
func (m *Manager) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isOpen()
}

// ForceOpen 在菜单关闭时打开它，供热键以外的入口使用。
func (m *Manager) ForceOpen() {
	m.mu.Lock()
	var ev events.Event
	if !m.isOpen() {
		ev = m.transition(eventOpen)
	}
	m.mu.Unlock()
	if ev != nil && m.bus != nil {
		m.bus.Publish(ev)
	}
}

// ForceClose 在菜单打开时关闭它，例如动作执行后。
func (m *Manager) ForceClose() {
	m.mu.Lock()
	var ev events.Event
	if m.isOpen() {
		ev = m.transition(eventClose)
	}
	m.mu.Unlock()
	if ev != nil && m.bus != nil {
		m.bus.Publish(ev)
	}
}

// SetHotkey 修改热键。
func (m *Manager) SetHotkey(key string, modifier Modifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.Key = key
	m.cfg.Modifier = modifier
	m.cfg = normalize(m.cfg)
	m.wasDown = false
}

// SetHoldMode 切换按住/切换模式。
func (m *Manager) SetHoldMode(hold bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.HoldMode = hold
}

// HotkeyDescription 返回可读的热键描述，例如 "Shift+V (hold)"。
func (m *Manager) HotkeyDescription() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	desc := m.cfg.Key
	if m.cfg.Modifier != ModifierNone {
		desc = strings.ToUpper(string(m.cfg.Modifier[:1])) + string(m.cfg.Modifier[1:]) + "+" + desc
	}
	if m.cfg.HoldMode {
		return desc + " (hold)"
	}
	return desc + " (toggle)"
}

// Stop 停止状态机。
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interp.Stop()
}
