package loader

import (
	"log/slog"
	"maps"
	"sync"

	"RadialCore/pkg/capability"
	"RadialCore/pkg/logger"
	"RadialCore/pkg/plugin"
)

// registry 保存单个插件在初始化期间注册的提供者，按注册顺序排列。
type registry struct {
	menus      []plugin.MenuProvider
	actions    []plugin.ActionHandler
	panels     []plugin.PanelProvider
	contexts   []plugin.ContextProvider
	conditions []plugin.ConditionEvaluator
}

func (r *registry) count(kind plugin.ProviderKind) int {
	switch kind {
	case plugin.KindMenu:
		return len(r.menus)
	case plugin.KindAction:
		return len(r.actions)
	case plugin.KindPanel:
		return len(r.panels)
	case plugin.KindContext:
		return len(r.contexts)
	case plugin.KindCondition:
		return len(r.conditions)
	default:
		return 0
	}
}

// initContext 是绑定到单个插件的 plugin.InitContext 实现。
// Initialize 返回后上下文被封存，之后的注册请求会被忽略。
type initContext struct {
	pluginID string
	caps     *capability.Resolver
	mods     ModPresence
	config   map[string]any
	log      *slog.Logger

	mu     sync.Mutex
	sealed bool
	reg    registry
}

var _ plugin.InitContext = (*initContext)(nil)

func newInitContext(pluginID string, caps *capability.Resolver, mods ModPresence, cfg map[string]any, log *slog.Logger) *initContext {
	if cfg == nil {
		cfg = map[string]any{}
	}
	return &initContext{
		pluginID: pluginID,
		caps:     caps,
		mods:     mods,
		config:   cfg,
		log:      logger.ForPlugin(log, pluginID),
	}
}

func (c *initContext) PluginID() string { return c.pluginID }

func (c *initContext) RegisterMenuProvider(p plugin.MenuProvider) {
	register(c, p, func(r *registry) { r.menus = append(r.menus, p) })
}

func (c *initContext) RegisterActionHandler(h plugin.ActionHandler) {
	register(c, h, func(r *registry) { r.actions = append(r.actions, h) })
}

func (c *initContext) RegisterPanelProvider(p plugin.PanelProvider) {
	register(c, p, func(r *registry) { r.panels = append(r.panels, p) })
}

func (c *initContext) RegisterContextProvider(p plugin.ContextProvider) {
	register(c, p, func(r *registry) { r.contexts = append(r.contexts, p) })
}

func (c *initContext) RegisterConditionEvaluator(e plugin.ConditionEvaluator) {
	register(c, e, func(r *registry) { r.conditions = append(r.conditions, e) })
}

func register[T any](c *initContext, provider T, add func(*registry)) {
	if any(provider) == nil {
		c.log.Warn("忽略空的提供者注册")
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed {
		c.log.Warn("初始化完成后的注册被忽略")
		return
	}
	add(&c.reg)
}

func (c *initContext) Capabilities() *capability.Resolver { return c.caps }

func (c *initContext) IsModLoaded(modID string) bool {
	return c.mods != nil && c.mods.IsModLoaded(modID)
}

func (c *initContext) Config() map[string]any { return maps.Clone(c.config) }

func (c *initContext) LogInfo(msg string, args ...any) { c.log.Info(msg, args...) }

func (c *initContext) LogWarning(msg string, args ...any) { c.log.Warn(msg, args...) }

func (c *initContext) LogError(msg string, err error, args ...any) {
	c.log.Error(msg, append(args, logger.Err(err))...)
}

// seal 封存上下文并返回已注册的提供者。
func (c *initContext) seal() *registry {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sealed = true
	return &c.reg
}
