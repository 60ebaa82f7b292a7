// Package menu 汇总插件提供的菜单条目，并负责菜单的打开、悬停预览、执行与关闭。
package menu

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	xerrors "RadialCore/internal/errors"
	"RadialCore/internal/events"
	"RadialCore/internal/panel"
	"RadialCore/pkg/logger"
	"RadialCore/pkg/plugin"
)

// ProviderSource 枚举菜单提供者与条件求值器。
type ProviderSource interface {
	MenuProviders() []plugin.MenuProvider
	ConditionEvaluators() []plugin.ConditionEvaluator
}

// ContextSource 提供当前上下文快照。
type ContextSource interface {
	ForceRefresh() *plugin.MenuContext
	Current() *plugin.MenuContext
}

// Executor 异步执行动作。
type Executor interface {
	ExecuteAsync(ctx context.Context, actionID string, mc *plugin.MenuContext) <-chan plugin.ActionResult
}

// PanelDisplay 是菜单使用的面板槽位操作。
type PanelDisplay interface {
	Show(slot panel.Slot, panelID string, mc *plugin.MenuContext) bool
	Hide(slot panel.Slot)
	HideAll()
}

// Manager 编排菜单的完整交互流程。
type Manager struct {
	providers ProviderSource
	contexts  ContextSource
	executor  Executor
	panels    PanelDisplay
	bus       *events.Bus
	log       *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	open    bool
	entries []plugin.Entry
	mc      *plugin.MenuContext
	hovered string
}

// Option 配置 Manager。
type Option func(*Manager)

// WithBus 设置事件总线。
func WithBus(b *events.Bus) Option { return func(m *Manager) { m.bus = b } }

// WithLogger 设置日志记录器。
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithClock 设置时钟，便于测试。
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// New 创建菜单管理器。
func New(providers ProviderSource, contexts ContextSource, executor Executor, panels PanelDisplay, opts ...Option) (*Manager, error) {
	switch {
	case providers == nil:
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "menu manager requires a provider source")
	case contexts == nil:
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "menu manager requires a context source")
	case executor == nil:
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "menu manager requires an action executor")
	case panels == nil:
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "menu manager requires a panel host")
	}
	m := &Manager{
		providers: providers,
		contexts:  contexts,
		executor:  executor,
		panels:    panels,
		log:       logger.Component("MenuManager"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Open 刷新上下文并收集条目。没有可用条目时菜单保持关闭并返回 false。
func (m *Manager) Open() bool {
	m.mu.Lock()
	if m.open {
		m.mu.Unlock()
		m.log.Warn("菜单已打开，忽略重复请求")
		return false
	}
	m.mu.Unlock()

	mc := m.contexts.ForceRefresh()
	entries := m.Collect(mc)
	if len(entries) == 0 {
		m.log.Warn("没有可用的菜单条目")
		return false
	}

	m.mu.Lock()
	if m.open {
		m.mu.Unlock()
		return false
	}
	m.open = true
	m.entries = entries
	m.mc = mc
	m.hovered = ""
	m.mu.Unlock()

	m.log.Info("菜单已打开", slog.Int("entries", len(entries)))
	m.publish(events.MenuOpened{At: m.now(), EntryCount: len(entries)})
	return true
}

// Close 关闭菜单并隐藏全部面板。菜单未打开时无操作。
func (m *Manager) Close() { m.close(false) }

func (m *Manager) close(actionExecuted bool) {
	m.mu.Lock()
	if !m.open {
		m.mu.Unlock()
		return
	}
	m.open = false
	m.entries = nil
	m.hovered = ""
	m.mu.Unlock()

	m.panels.HideAll()
	m.log.Info("菜单已关闭", slog.Bool("action_executed", actionExecuted))
	m.publish(events.MenuClosed{At: m.now(), ActionExecuted: actionExecuted})
}

// IsOpen 返回菜单是否打开。
func (m *Manager) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// Entries 返回当前菜单条目的副本。
func (m *Manager) Entries() []plugin.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]plugin.Entry(nil), m.entries...)
}

// Hover 处理条目悬停：条目声明了预览面板时显示它，否则隐藏预览槽位。
func (m *Manager) Hover(entryID string) bool {
	m.mu.Lock()
	if !m.open || entryID == m.hovered {
		m.mu.Unlock()
		return false
	}
	entry, ok := find(m.entries, entryID)
	m.hovered = entryID
	mc := m.mc
	m.mu.Unlock()

	if !ok || entry.PreviewPanel == "" {
		m.panels.Hide(panel.SlotPreview)
		return false
	}
	return m.panels.Show(panel.SlotPreview, entry.PreviewPanel, mc)
}

// Execute 执行菜单中的动作并关闭菜单。禁用条目与非动作条目直接返回失败结果。
func (m *Manager) Execute(ctx context.Context, actionID string) <-chan plugin.ActionResult {
	m.mu.Lock()
	entry, found := find(m.entries, actionID)
	mc := m.mc
	m.mu.Unlock()

	if found {
		if rejected, ok := reject(entry); ok {
			m.log.Warn("拒绝执行菜单条目", slog.String("entry", actionID), slog.String("reason", rejected.Message))
			return done(rejected)
		}
	}
	if mc == nil {
		mc = m.contexts.Current()
	}
	results := m.executor.ExecuteAsync(ctx, actionID, mc)
	m.close(true)
	return results
}

func reject(e plugin.Entry) (plugin.ActionResult, bool) {
	switch {
	case e.Kind == plugin.EntrySeparator || e.Kind == plugin.EntrySubmenu:
		return plugin.Failure(fmt.Sprintf("Entry is not an action: %s", e.ID), nil), true
	case !e.Enabled:
		return plugin.Failure(fmt.Sprintf("Action is disabled: %s", e.ID), nil), true
	}
	return plugin.ActionResult{}, false
}

func done(r plugin.ActionResult) <-chan plugin.ActionResult {
	ch := make(chan plugin.ActionResult, 1)
	ch <- r
	close(ch)
	return ch
}

// Collect 按提供者优先级收集条目，过滤不可见条目，并按条目优先级降序稳定排序。
func (m *Manager) Collect(mc *plugin.MenuContext) []plugin.Entry {
	if mc == nil {
		mc = m.contexts.Current()
	}
	providers := m.rankedProviders()
	evaluators := m.providers.ConditionEvaluators()
	entries := make([]plugin.Entry, 0, 16)
	for _, p := range providers {
		var got []plugin.Entry
		err := xerrors.Protect(func() error {
			var err error
			got, err = p.MenuEntries(mc)
			return err
		})
		if err != nil {
			m.log.Error("菜单提供者失败", slog.String("provider", p.id), logger.Err(err))
			continue
		}
		filtered := m.filter(got, mc, evaluators)
		m.log.Debug("收集菜单条目", slog.String("provider", p.id), slog.Int("entries", len(filtered)))
		entries = append(entries, filtered...)
	}
	sortEntries(entries)
	return entries
}

type rankedProvider struct {
	plugin.MenuProvider
	id       string
	priority int
}

func (m *Manager) rankedProviders() []rankedProvider {
	all := m.providers.MenuProviders()
	ranked := make([]rankedProvider, 0, len(all))
	for _, p := range all {
		r := rankedProvider{MenuProvider: p}
		err := xerrors.Protect(func() error {
			r.id = p.ProviderID()
			r.priority = plugin.ClampPriority(p.Priority())
			return nil
		})
		if err != nil {
			m.log.Error("读取菜单提供者优先级失败", logger.Err(err))
			continue
		}
		ranked = append(ranked, r)
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].priority > ranked[j].priority })
	return ranked
}

func (m *Manager) filter(in []plugin.Entry, mc *plugin.MenuContext, evaluators []plugin.ConditionEvaluator) []plugin.Entry {
	out := make([]plugin.Entry, 0, len(in))
	for _, e := range in {
		if !e.Visible {
			continue
		}
		if e.VisibleWhen != "" && !m.evaluate(e.VisibleWhen, mc, evaluators) {
			continue
		}
		if e.Enabled && e.EnabledWhen != "" {
			e.Enabled = m.evaluate(e.EnabledWhen, mc, evaluators)
		}
		e.Priority = plugin.ClampPriority(e.Priority)
		if len(e.SubEntries) > 0 {
			e.SubEntries = m.filter(e.SubEntries, mc, evaluators)
			sortEntries(e.SubEntries)
		}
		out = append(out, e)
	}
	return out
}

// evaluate 由第一个声明支持该条件的求值器求值；无人认领的条件视为 false。
func (m *Manager) evaluate(condition string, mc *plugin.MenuContext, evaluators []plugin.ConditionEvaluator) bool {
	for _, ev := range evaluators {
		var claims bool
		if err := xerrors.Protect(func() error { claims = ev.CanEvaluate(condition); return nil }); err != nil {
			m.log.Error("条件求值器失败", slog.String("condition", condition), logger.Err(err))
			continue
		}
		if !claims {
			continue
		}
		var result bool
		err := xerrors.Protect(func() error {
			var err error
			result, err = ev.Evaluate(condition, mc)
			return err
		})
		if err != nil {
			m.log.Error("条件求值失败", slog.String("condition", condition), logger.Err(err))
			return false
		}
		return result
	}
	m.log.Warn("未知条件，条目按不满足处理", slog.String("condition", condition))
	return false
}

func sortEntries(entries []plugin.Entry) {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Priority > entries[j].Priority })
}

func find(entries []plugin.Entry, id string) (plugin.Entry, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
		if found, ok := find(e.SubEntries, id); ok {
			return found, true
		}
	}
	return plugin.Entry{}, false
}

func (m *Manager) publish(ev events.Event) {
	if m.bus != nil {
		m.bus.Publish(ev)
	}
}
