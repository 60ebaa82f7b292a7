// Package contexthub 周期性地构建菜单上下文快照。
//
// 快照在构建期间由默认服务与上下文提供者填充，完成后被封存并通过原子指针
// 整体替换，读取方永远不会等待正在进行的刷新。
package contexthub

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	xerrors "RadialCore/internal/errors"
	"RadialCore/internal/events"
	"RadialCore/pkg/capability"
	"RadialCore/pkg/logger"
	"RadialCore/pkg/plugin"
)

// RefreshInterval 是两次周期刷新之间的累计时间。
const RefreshInterval = 500 * time.Millisecond

// ProviderSource 枚举当前可用的上下文提供者。
type ProviderSource interface {
	ContextProviders() []plugin.ContextProvider
}

// Defaults 是宿主提供的默认上下文服务，任一项都可以为空。
type Defaults struct {
	Player    plugin.PlayerStateService
	Selection plugin.SelectionService
	GameState plugin.GameStateService
}

// Hub 负责生成并发布上下文快照。
type Hub struct {
	providers ProviderSource
	caps      *capability.Resolver
	bus       *events.Bus
	log       *slog.Logger
	now       func() time.Time
	interval  time.Duration
	sessionID string

	mu          sync.Mutex
	accumulated time.Duration

	current    atomic.Pointer[plugin.MenuContext]
	generation atomic.Uint64
	refreshes  atomic.Uint64
}

// Option 定义 Hub 的可选配置。
type Option func(*Hub)

// WithBus 指定事件总线。
func WithBus(b *events.Bus) Option { return func(h *Hub) { h.bus = b } }

// WithLogger 指定日志记录器。
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.log = l
		}
	}
}

// WithClock 注入时钟。
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		if now != nil {
			h.now = now
		}
	}
}

// WithInterval 覆盖刷新间隔。
func WithInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.interval = d
		}
	}
}

// New 创建 Hub。caps 用于查询默认服务。
func New(providers ProviderSource, caps *capability.Resolver, opts ...Option) *Hub {
	h := &Hub{
		providers: providers,
		caps:      caps,
		now:       time.Now,
		interval:  RefreshInterval,
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.log == nil {
		h.log = logger.Component("ContextHub")
	}
	if h.caps == nil {
		h.caps = capability.NewResolver(h.log)
	}
	return h
}

// RegisterDefaults 把默认服务注册到能力解析器，空项跳过。
// 宿主在加载插件之前调用，插件加载时即可看到这些能力。
func RegisterDefaults(caps *capability.Resolver, d Defaults) error {
	if d.Player != nil {
		if err := capability.Register(caps, plugin.PlayerStateKey, d.Player); err != nil {
			return err
		}
	}
	if d.Selection != nil {
		if err := capability.Register(caps, plugin.SelectionKey, d.Selection); err != nil {
			return err
		}
	}
	if d.GameState != nil {
		if err := capability.Register(caps, plugin.GameStateKey, d.GameState); err != nil {
			return err
		}
	}
	return nil
}

// Initialize 注册默认服务并立即生成第一个快照。默认服务已经注册时传入空的 Defaults。
func (h *Hub) Initialize(d Defaults) error {
	if err := RegisterDefaults(h.caps, d); err != nil {
		return err
	}
	h.refresh(false)
	h.log.Info("上下文中心已初始化", slog.String("session_id", h.sessionID))
	return nil
}

// OnTick 累加 dt，达到刷新间隔时刷新一次并清零累计时间。
func (h *Hub) OnTick(dt time.Duration) {
	h.mu.Lock()
	h.accumulated += dt
	due := h.accumulated >= h.interval
	if due {
		h.accumulated = 0
	}
	h.mu.Unlock()
	if due {
		h.refresh(false)
	}
}

// ForceRefresh 立即刷新并重置周期计数，返回新快照。
func (h *Hub) ForceRefresh() *plugin.MenuContext {
	h.mu.Lock()
	h.accumulated = 0
	h.mu.Unlock()
	return h.refresh(true)
}

// Current 返回当前快照；尚未生成时返回一个带时间戳的空快照。
func (h *Hub) Current() *plugin.MenuContext {
	if mc := h.current.Load(); mc != nil {
		return mc
	}
	mc := plugin.NewMenuContext(h.now())
	mc.SessionID = h.sessionID
	mc.Seal()
	return mc
}

// Refreshes 返回已发布的快照数量。
func (h *Hub) Refreshes() uint64 { return h.refreshes.Load() }

// SessionID 返回本次会话的标识。
func (h *Hub) SessionID() string { return h.sessionID }

// Shutdown 丢弃当前快照。
func (h *Hub) Shutdown() {
	h.current.Store(nil)
	h.mu.Lock()
	h.accumulated = 0
	h.mu.Unlock()
}

func (h *Hub) refresh(forced bool) *plugin.MenuContext {
	mc := plugin.NewMenuContext(h.now())
	mc.SessionID = h.sessionID
	mc.Generation = h.generation.Add(1)

	h.collectDefaults(mc)
	h.runProviders(mc)
	mc.Seal()

	if !h.publish(mc) {
		return h.Current()
	}
	h.refreshes.Add(1)
	if h.bus != nil {
		h.bus.Publish(events.ContextRefreshed{At: mc.Timestamp, Generation: mc.Generation, Forced: forced})
	}
	return mc
}

// publish 只允许更新的快照替换旧快照，并发刷新时保持代数单调。
func (h *Hub) publish(mc *plugin.MenuContext) bool {
	for {
		old := h.current.Load()
		if old != nil && old.Generation > mc.Generation {
			return false
		}
		if h.current.CompareAndSwap(old, mc) {
			return true
		}
	}
}

func (h *Hub) collectDefaults(mc *plugin.MenuContext) {
	if svc, ok := capability.Resolve(h.caps, plugin.PlayerStateKey).Get(); ok {
		err := xerrors.Protect(func() error {
			info, err := svc.PlayerInfo()
			if err == nil {
				mc.Player = info
			}
			return err
		})
		h.logDefaultFailure("player_state", err)
	}
	if svc, ok := capability.Resolve(h.caps, plugin.GameStateKey).Get(); ok {
		err := xerrors.Protect(func() error {
			state, err := svc.GameState()
			if err == nil {
				mc.GameState = state
			}
			return err
		})
		h.logDefaultFailure("game_state", err)
	}
	if svc, ok := capability.Resolve(h.caps, plugin.SelectionKey).Get(); ok {
		err := xerrors.Protect(func() error {
			sel, err := svc.Selection()
			if err == nil {
				mc.Selection = sel
			}
			return err
		})
		h.logDefaultFailure("selection", err)
	}
}

func (h *Hub) logDefaultFailure(section string, err error) {
	if err != nil {
		h.log.Warn("默认上下文服务失败", slog.String("section", section), logger.Err(err))
	}
}

// runProviders 按优先级降序调用提供者，同优先级保持枚举顺序。
func (h *Hub) runProviders(mc *plugin.MenuContext) {
	if h.providers == nil {
		return
	}
	type ranked struct {
		provider plugin.ContextProvider
		priority int
	}
	providers := h.providers.ContextProviders()
	ordered := make([]ranked, 0, len(providers))
	for _, p := range providers {
		prio := plugin.DefaultPriority
		if err := xerrors.Protect(func() error { prio = plugin.ClampPriority(p.Priority()); return nil }); err != nil {
			h.log.Warn("读取提供者优先级失败", logger.Err(err))
			continue
		}
		ordered = append(ordered, ranked{provider: p, priority: prio})
	}
	slices.SortStableFunc(ordered, func(a, b ranked) int { return cmp.Compare(b.priority, a.priority) })

	for _, r := range ordered {
		p := r.provider
		if err := xerrors.Protect(func() error { return p.ProvideContext(mc) }); err != nil {
			logger.Phase(h.log, "ProvideContext").Warn("上下文提供者失败",
				slog.Int("priority", r.priority),
				logger.Err(err))
		}
	}
}
