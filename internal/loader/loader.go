// Package loader 负责插件的准入、校验、生命周期监督以及提供者聚合。
//
// 每个插件拥有独立的熔断器，Initialize 与 OnTick 都在熔断器保护下执行。
// 校验失败与插件故障都以错误返回或记录日志，不会越过加载器边界。
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"RadialCore/internal/breaker"
	xerrors "RadialCore/internal/errors"
	"RadialCore/internal/events"
	"RadialCore/pkg/capability"
	"RadialCore/pkg/logger"
	"RadialCore/pkg/plugin"
)

// CoreVersion 是宿主核心的版本，插件声明的最低核心版本必须与之兼容。
var CoreVersion = plugin.NewVersion(1, 0, 0)

// FailureRecorder 接收插件故障统计，通常由指标模块实现。
type FailureRecorder interface {
	PluginFailure(pluginID, operation string)
	BreakerOpened(pluginID string)
}

type loadedPlugin struct {
	plugin      plugin.Plugin
	manifest    plugin.Manifest
	ctx         *initContext
	reg         *registry
	breaker     *breaker.Breaker
	source      string
	loadedAt    time.Time
	initialized bool
}

// PluginLoader 管理已加载插件及其熔断器。
type PluginLoader struct {
	mu       sync.RWMutex
	order    []*loadedPlugin
	byID     map[string]*loadedPlugin
	pending  map[string]struct{}
	breakers map[string]*breaker.Breaker

	core      plugin.Version
	caps      *capability.Resolver
	mods      ModPresence
	bus       *events.Bus
	binaries  plugin.Loader
	isolation plugin.IsolationStrategy
	config    plugin.ManagerConfig
	recorder  FailureRecorder
	log       *slog.Logger
	now       func() time.Time
}

// Option 定义加载器的可选配置。
type Option func(*PluginLoader)

// WithCoreVersion 覆盖核心版本，主要用于测试。
func WithCoreVersion(v plugin.Version) Option {
	return func(l *PluginLoader) { l.core = v }
}

// WithCapabilities 指定能力注册表。
func WithCapabilities(r *capability.Resolver) Option {
	return func(l *PluginLoader) {
		if r != nil {
			l.caps = r
		}
	}
}

// WithModPresence 指定 mod 存在性查询。
func WithModPresence(m ModPresence) Option {
	return func(l *PluginLoader) {
		if m != nil {
			l.mods = m
		}
	}
}

// WithBus 指定事件总线。
func WithBus(b *events.Bus) Option {
	return func(l *PluginLoader) { l.bus = b }
}

// WithBinaryLoader 覆盖默认的共享对象加载器。
func WithBinaryLoader(b plugin.Loader) Option {
	return func(l *PluginLoader) {
		if b != nil {
			l.binaries = b
		}
	}
}

// WithIsolationStrategy 设置能力隔离策略。
func WithIsolationStrategy(s plugin.IsolationStrategy) Option {
	return func(l *PluginLoader) {
		if s != nil {
			l.isolation = s
		}
	}
}

// WithManagerConfig 提供插件配置块与隔离策略。
func WithManagerConfig(cfg plugin.ManagerConfig) Option {
	return func(l *PluginLoader) { l.config = cfg }
}

// WithFailureRecorder 注册故障统计。
func WithFailureRecorder(r FailureRecorder) Option {
	return func(l *PluginLoader) { l.recorder = r }
}

// WithLogger 指定日志记录器。
func WithLogger(log *slog.Logger) Option {
	return func(l *PluginLoader) {
		if log != nil {
			l.log = log
		}
	}
}

// WithClock 注入时钟。
func WithClock(now func() time.Time) Option {
	return func(l *PluginLoader) {
		if now != nil {
			l.now = now
		}
	}
}

// New 创建插件加载器。
func New(opts ...Option) *PluginLoader {
	l := &PluginLoader{
		byID:      make(map[string]*loadedPlugin),
		pending:   make(map[string]struct{}),
		breakers:  make(map[string]*breaker.Breaker),
		core:      CoreVersion,
		mods:      NewStaticModPresence(),
		binaries:  plugin.GoPluginLoader{},
		isolation: plugin.NewIsolationStrategy(nil),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	if l.log == nil {
		l.log = logger.Component("PluginLoader")
	}
	if l.caps == nil {
		l.caps = capability.NewResolver(l.log)
	}
	return l
}

// Load 校验并初始化插件。校验失败、重复 ID 或初始化失败时返回错误，且不留下任何状态。
func (l *PluginLoader) Load(p plugin.Plugin) error {
	return l.load(p, "builtin")
}

func (l *PluginLoader) load(p plugin.Plugin, source string) error {
	if p == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "plugin cannot be nil")
	}
	var manifest plugin.Manifest
	if err := xerrors.Protect(func() error { manifest = p.Manifest(); return nil }); err != nil {
		l.log.Error("读取插件清单失败", logger.Err(err))
		return xerrors.Wrap(xerrors.CodePluginFault, err, "read manifest")
	}
	if manifest.IsZero() {
		return xerrors.New(xerrors.CodeInvalidArgument, "plugin manifest has no id")
	}
	id := manifest.ID()
	log := logger.ForPlugin(l.log, id)

	if err := l.reserve(id); err != nil {
		log.Warn("插件重复加载被拒绝")
		return err
	}
	admitted := false
	defer func() {
		if !admitted {
			l.release(id)
		}
	}()

	if err := l.validate(manifest, log); err != nil {
		l.audit(id, "rejected", err)
		return err
	}

	br := breaker.New(id,
		breaker.WithLogger(log),
		breaker.WithOnFailure(l.onFailure),
		breaker.WithOnOpen(l.onOpen))
	l.mu.Lock()
	l.breakers[id] = br
	l.mu.Unlock()

	ictx := newInitContext(id, l.caps, l.mods, l.config.ConfigFor(id), l.log)
	if err := l.isolation.Prepare(manifest); err != nil {
		l.audit(id, "rejected", err)
		return xerrors.Wrap(xerrors.CodeCapabilityDenied, err, "prepare isolation", xerrors.WithMetadata("plugin_id", id))
	}
	if !br.Run("Initialize", func() error { return p.Initialize(ictx) }) {
		ictx.seal()
		_ = l.isolation.Cleanup(manifest)
		err := xerrors.New(xerrors.CodePluginFault, fmt.Sprintf("plugin %s failed to initialize", id),
			xerrors.WithMetadata("plugin_id", id))
		l.audit(id, "failed", err)
		return err
	}

	lp := &loadedPlugin{
		plugin:      p,
		manifest:    manifest,
		ctx:         ictx,
		reg:         ictx.seal(),
		breaker:     br,
		source:      source,
		loadedAt:    l.now(),
		initialized: true,
	}
	l.mu.Lock()
	delete(l.pending, id)
	l.byID[id] = lp
	l.order = append(l.order, lp)
	l.mu.Unlock()
	admitted = true

	log.Info("插件已加载",
		slog.String("name", manifest.DisplayName()),
		slog.String("version", manifest.Version().String()),
		slog.String("source", source))
	l.audit(id, "loaded", nil)
	l.publish(events.PluginLoaded{
		PluginID: id,
		Name:     manifest.DisplayName(),
		Version:  manifest.Version().String(),
	})
	return nil
}

func (l *PluginLoader) reserve(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.byID[id]; ok {
		return xerrors.New(xerrors.CodeConflict, fmt.Sprintf("plugin %s already loaded", id), xerrors.WithMetadata("plugin_id", id))
	}
	if _, ok := l.pending[id]; ok {
		return xerrors.New(xerrors.CodeConflict, fmt.Sprintf("plugin %s is being loaded", id), xerrors.WithMetadata("plugin_id", id))
	}
	l.pending[id] = struct{}{}
	return nil
}

func (l *PluginLoader) release(id string) {
	l.mu.Lock()
	delete(l.pending, id)
	l.mu.Unlock()
}

func (l *PluginLoader) validate(m plugin.Manifest, log *slog.Logger) error {
	id := m.ID()
	if !l.core.IsCompatibleWith(m.RequiredCoreVersion()) {
		log.Warn("核心版本不兼容",
			slog.String("core", l.core.String()),
			slog.String("required", m.RequiredCoreVersion().String()))
		return xerrors.New(xerrors.CodeIncompatibleVersion,
			fmt.Sprintf("plugin %s requires core %s, host is %s", id, m.RequiredCoreVersion(), l.core),
			xerrors.WithMetadata("plugin_id", id))
	}

	deps := m.ModDependencies()
	modIDs := make([]string, 0, len(deps))
	for modID := range deps {
		modIDs = append(modIDs, modID)
	}
	sort.Strings(modIDs)
	for _, modID := range modIDs {
		if l.mods.IsModLoaded(modID) {
			continue
		}
		if deps[modID] {
			log.Warn("缺少必需的 mod 依赖", slog.String("mod", modID))
			return xerrors.New(xerrors.CodeDependencyMissing,
				fmt.Sprintf("plugin %s requires mod %s", id, modID),
				xerrors.WithMetadata("plugin_id", id), xerrors.WithMetadata("mod", modID))
		}
		log.Warn("可选 mod 依赖缺失，继续加载", slog.String("mod", modID))
	}

	if err := l.isolation.Validate(m, l.config.PolicyFor(id)); err != nil {
		log.Warn("能力请求被隔离策略拒绝", logger.Err(err))
		return xerrors.Wrap(xerrors.CodeCapabilityDenied, err, "isolation policy", xerrors.WithMetadata("plugin_id", id))
	}
	for _, c := range m.RequiredCapabilities() {
		if !l.caps.HasName(string(c)) {
			log.Warn("所需能力当前不可用", slog.String("capability", string(c)))
		}
	}
	return nil
}

// OnTick 在各插件的熔断器保护下调用 OnTick，单个插件故障不影响其他插件。
func (l *PluginLoader) OnTick(dt time.Duration) {
	for _, lp := range l.snapshot() {
		if !lp.initialized {
			continue
		}
		p := lp.plugin
		lp.breaker.Run("OnTick", func() error { return p.OnTick(dt) })
	}
}

// Shutdown 按加载的逆序关闭所有插件，然后清空加载器状态。
// 关闭不经过熔断器，失败仅记录日志。
func (l *PluginLoader) Shutdown() {
	l.mu.Lock()
	plugins := l.order
	l.order = nil
	l.byID = make(map[string]*loadedPlugin)
	l.breakers = make(map[string]*breaker.Breaker)
	l.mu.Unlock()

	for i := len(plugins) - 1; i >= 0; i-- {
		l.shutdownPlugin(plugins[i])
	}
	if len(plugins) > 0 {
		l.log.Info("所有插件已关闭", slog.Int("count", len(plugins)))
	}
}

// Unload 关闭并移除单个插件。
func (l *PluginLoader) Unload(id string) error {
	l.mu.Lock()
	lp, ok := l.byID[id]
	if !ok {
		l.mu.Unlock()
		return xerrors.New(xerrors.CodeNotFound, fmt.Sprintf("plugin %s not loaded", id))
	}
	delete(l.byID, id)
	delete(l.breakers, id)
	l.order = slices.DeleteFunc(l.order, func(x *loadedPlugin) bool { return x == lp })
	l.mu.Unlock()

	l.shutdownPlugin(lp)
	return nil
}

func (l *PluginLoader) shutdownPlugin(lp *loadedPlugin) {
	id := lp.manifest.ID()
	log := logger.Phase(logger.ForPlugin(l.log, id), "Shutdown")
	if err := xerrors.Protect(lp.plugin.Shutdown); err != nil {
		log.Error("插件关闭失败", logger.Err(err))
	}
	if err := l.isolation.Cleanup(lp.manifest); err != nil {
		log.Warn("隔离清理失败", logger.Err(err))
	}
	l.audit(id, "unloaded", nil)
}

// Discover 加载配置中启用的共享对象插件。
// 单个插件失败不会中断其余插件，所有失败合并后返回。
func (l *PluginLoader) Discover(ctx context.Context) (int, error) {
	ids := make([]string, 0, len(l.config.Plugins))
	for id, pc := range l.config.Plugins {
		if pc.Enabled && pc.Path != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var errs []error
	loaded := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return loaded, errors.Join(append(errs, err)...)
		}
		if err := l.discoverOne(id, l.config.Plugins[id]); err != nil {
			logger.Phase(logger.ForPlugin(l.log, id), "Discovery").Warn("插件发现失败", logger.Err(err))
			errs = append(errs, err)
			continue
		}
		loaded++
	}
	return loaded, errors.Join(errs...)
}

func (l *PluginLoader) discoverOne(id string, pc plugin.PluginConfig) error {
	path := l.resolvePath(pc.Path)
	if pc.Manifest != "" {
		mf, err := plugin.LoadManifestFile(l.resolvePath(pc.Manifest))
		if err != nil {
			return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "manifest file", xerrors.WithMetadata("plugin_id", id))
		}
		m, err := mf.Build()
		if err != nil {
			return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "manifest file", xerrors.WithMetadata("plugin_id", id))
		}
		if m.ID() != id {
			return xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("manifest id %s does not match configured id %s", m.ID(), id))
		}
		if !l.core.IsCompatibleWith(m.RequiredCoreVersion()) {
			return xerrors.New(xerrors.CodeIncompatibleVersion,
				fmt.Sprintf("plugin %s requires core %s, host is %s", id, m.RequiredCoreVersion(), l.core))
		}
	}
	p, err := l.binaries.Load(path)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeNotFound, err, fmt.Sprintf("load plugin binary %s", path), xerrors.WithMetadata("plugin_id", id))
	}
	var declared string
	_ = xerrors.Protect(func() error { declared = p.Manifest().ID(); return nil })
	if declared != id {
		return xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("binary %s declares plugin %q, configured as %q", path, declared, id))
	}
	return l.load(p, path)
}

func (l *PluginLoader) resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) || l.config.PluginDir == "" {
		return path
	}
	return filepath.Join(l.config.PluginDir, path)
}

func (l *PluginLoader) onFailure(id, operation string, _ int, _ error) {
	if l.recorder != nil {
		l.recorder.PluginFailure(id, operation)
	}
}

func (l *PluginLoader) onOpen(id string, failures int, last error) {
	reason := "circuit breaker opened"
	if last != nil {
		reason = last.Error()
	}
	l.audit(id, "disabled", last)
	if l.recorder != nil {
		l.recorder.BreakerOpened(id)
	}
	l.publish(events.PluginDisabled{PluginID: id, Reason: reason, FailureCount: failures})
}

func (l *PluginLoader) publish(ev events.Event) {
	if l.bus != nil {
		l.bus.Publish(ev)
	}
}

func (l *PluginLoader) audit(id, decision string, err error) {
	attrs := []any{slog.String(logger.KeyPluginID, id), slog.String("decision", decision)}
	if err != nil {
		attrs = append(attrs, slog.String("code", string(xerrors.CodeOf(err))), logger.Err(err))
	}
	logger.Audit().Info("plugin lifecycle", attrs...)
}

func (l *PluginLoader) snapshot() []*loadedPlugin {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.order)
}
