package loader

import (
	"slices"
	"strings"
	"time"

	"RadialCore/internal/breaker"
	"RadialCore/pkg/capability"
	"RadialCore/pkg/plugin"
)

// collect 按插件加载顺序、再按插件内注册顺序汇总提供者。
// 熔断器已打开的插件不再贡献任何提供者。
func collect[T any](l *PluginLoader, pick func(*registry) []T) []T {
	var out []T
	for _, lp := range l.snapshot() {
		if !lp.initialized || lp.breaker.IsOpen() {
			continue
		}
		out = append(out, pick(lp.reg)...)
	}
	return out
}

// MenuProviders 返回所有菜单提供者。
func (l *PluginLoader) MenuProviders() []plugin.MenuProvider {
	return collect(l, func(r *registry) []plugin.MenuProvider { return r.menus })
}

// ActionHandlers 返回所有动作处理器。
func (l *PluginLoader) ActionHandlers() []plugin.ActionHandler {
	return collect(l, func(r *registry) []plugin.ActionHandler { return r.actions })
}

// PanelProviders 返回所有面板提供者。
func (l *PluginLoader) PanelProviders() []plugin.PanelProvider {
	return collect(l, func(r *registry) []plugin.PanelProvider { return r.panels })
}

// ContextProviders 返回所有上下文提供者。
func (l *PluginLoader) ContextProviders() []plugin.ContextProvider {
	return collect(l, func(r *registry) []plugin.ContextProvider { return r.contexts })
}

// ConditionEvaluators 返回所有条件求值器。
func (l *PluginLoader) ConditionEvaluators() []plugin.ConditionEvaluator {
	return collect(l, func(r *registry) []plugin.ConditionEvaluator { return r.conditions })
}

// ProviderCount 返回某类提供者的数量，包含已禁用插件注册的提供者。
func (l *PluginLoader) ProviderCount(kind plugin.ProviderKind) int {
	n := 0
	for _, lp := range l.snapshot() {
		n += lp.reg.count(kind)
	}
	return n
}

// Capabilities 返回加载器使用的能力注册表。
func (l *PluginLoader) Capabilities() *capability.Resolver { return l.caps }

// CoreVersion 返回加载器使用的核心版本。
func (l *PluginLoader) CoreVersion() plugin.Version { return l.core }

// Count 返回已加载插件数量。
func (l *PluginLoader) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// IsLoaded 判断插件是否已加载。
func (l *PluginLoader) IsLoaded(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.byID[id]
	return ok
}

// Manifests 按加载顺序返回插件清单。
func (l *PluginLoader) Manifests() []plugin.Manifest {
	plugins := l.snapshot()
	out := make([]plugin.Manifest, 0, len(plugins))
	for _, lp := range plugins {
		out = append(out, lp.manifest)
	}
	return out
}

// PluginInfo 是单个插件的诊断信息。
type PluginInfo struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Version   string         `json:"version"`
	Author    string         `json:"author,omitempty"`
	Source    string         `json:"source"`
	State     plugin.State   `json:"state"`
	LoadedAt  time.Time      `json:"loaded_at"`
	Failures  int            `json:"failures"`
	Providers map[string]int `json:"providers"`
}

// Plugins 按加载顺序返回插件诊断信息。
func (l *PluginLoader) Plugins() []PluginInfo {
	plugins := l.snapshot()
	out := make([]PluginInfo, 0, len(plugins))
	for _, lp := range plugins {
		snap := lp.breaker.Snapshot()
		state := plugin.StateActive
		if snap.Open {
			state = plugin.StateDisabled
		}
		providers := make(map[string]int, len(plugin.ProviderKinds))
		for _, kind := range plugin.ProviderKinds {
			providers[kind.String()] = lp.reg.count(kind)
		}
		out = append(out, PluginInfo{
			ID:        lp.manifest.ID(),
			Name:      lp.manifest.DisplayName(),
			Version:   lp.manifest.Version().String(),
			Author:    lp.manifest.Author(),
			Source:    lp.source,
			State:     state,
			LoadedAt:  lp.loadedAt,
			Failures:  snap.Failures,
			Providers: providers,
		})
	}
	return out
}

// State 返回插件的生命周期状态。
func (l *PluginLoader) State(id string) (plugin.State, bool) {
	l.mu.RLock()
	lp, ok := l.byID[id]
	l.mu.RUnlock()
	if !ok {
		return "", false
	}
	if lp.breaker.IsOpen() {
		return plugin.StateDisabled, true
	}
	return plugin.StateActive, true
}

// BreakerStates 返回所有熔断器状态，按插件 ID 排序。
func (l *PluginLoader) BreakerStates() []breaker.Snapshot {
	l.mu.RLock()
	out := make([]breaker.Snapshot, 0, len(l.breakers))
	for _, b := range l.breakers {
		out = append(out, b.Snapshot())
	}
	l.mu.RUnlock()
	sortSnapshots(out)
	return out
}

// ResetBreaker 手动重置已加载插件的熔断器，使其重新参与 tick 与提供者聚合。
// 未加载（包括初始化失败）的插件返回 false。
func (l *PluginLoader) ResetBreaker(id string) bool {
	l.mu.RLock()
	b, ok := l.breakers[id]
	_, loaded := l.byID[id]
	l.mu.RUnlock()
	if !ok || !loaded {
		return false
	}
	b.Reset()
	return true
}

func sortSnapshots(s []breaker.Snapshot) {
	slices.SortFunc(s, func(a, b breaker.Snapshot) int { return strings.Compare(a.PluginID, b.PluginID) })
}
