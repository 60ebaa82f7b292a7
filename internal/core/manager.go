// Package core 组装宿主的全部组件，负责分阶段初始化、逐帧驱动与关闭。
//
// 只有核心组件自身构造失败时 Initialize 才返回错误；插件加载失败只记录日志。
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"RadialCore/internal/action"
	"RadialCore/internal/config"
	"RadialCore/internal/contexthub"
	xerrors "RadialCore/internal/errors"
	"RadialCore/internal/events"
	"RadialCore/internal/eventsink"
	"RadialCore/internal/input"
	"RadialCore/internal/journal"
	"RadialCore/internal/loader"
	"RadialCore/internal/menu"
	"RadialCore/internal/notify"
	"RadialCore/internal/observability/alerting"
	"RadialCore/internal/observability/metrics"
	"RadialCore/internal/panel"
	"RadialCore/pkg/capability"
	"RadialCore/pkg/logger"
	"RadialCore/pkg/plugin"
)

// Manager 是宿主的顶层编排器，拥有事件总线并把它传给每个组件。
type Manager struct {
	cfg      *config.Config
	poller   input.KeyPoller
	defaults contexthub.Defaults
	builtins []plugin.Plugin
	binaries plugin.Loader
	confirm  action.Confirmer
	log      *slog.Logger

	mu          sync.Mutex
	initialized bool

	bus       *events.Bus
	caps      *capability.Resolver
	collector *metrics.Collector
	notices   *notify.Service
	loader    *loader.PluginLoader
	hub       *contexthub.Hub
	panels    *panel.Host
	pipeline  *action.Pipeline
	menu      *menu.Manager
	input     *input.Manager
	journal   *journal.Journal
	forwarder *eventsink.Forwarder
	watcher   *alerting.Watcher
	subs      []events.Subscription
}

// Option 配置 Manager。
type Option func(*Manager)

// WithKeyPoller 设置输入轮询原语。为空时热键不生效。
func WithKeyPoller(p input.KeyPoller) Option { return func(m *Manager) { m.poller = p } }

// WithDefaults 设置默认上下文服务。
func WithDefaults(d contexthub.Defaults) Option { return func(m *Manager) { m.defaults = d } }

// WithBuiltins 设置内置插件。
func WithBuiltins(ps ...plugin.Plugin) Option {
	return func(m *Manager) { m.builtins = append(m.builtins, ps...) }
}

// WithBinaryLoader 覆盖动态插件加载器。
func WithBinaryLoader(l plugin.Loader) Option { return func(m *Manager) { m.binaries = l } }

// WithConfirmer 设置动作确认阶段。
func WithConfirmer(c action.Confirmer) Option { return func(m *Manager) { m.confirm = c } }

// WithMetrics 使用外部创建的指标收集器。
func WithMetrics(c *metrics.Collector) Option { return func(m *Manager) { m.collector = c } }

// WithLogger 设置日志记录器。
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// New 创建尚未初始化的 Manager。cfg 为空时使用默认配置。
func New(cfg *config.Config, opts ...Option) *Manager {
	if cfg == nil {
		cfg = config.Default()
	}
	m := &Manager{cfg: cfg, log: logger.Component("RadialCore")}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize 按阶段构建全部组件。重复调用直接返回。
func (m *Manager) Initialize(ctx context.Context) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.initialized {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = xerrors.Wrap(xerrors.CodeInitializationFailure, xerrors.FromPanic(r), "core initialization panicked")
		}
		if err != nil {
			m.teardown()
		}
	}()

	phases := []struct {
		name string
		run  func(context.Context) error
	}{
		{"services", m.initServices},
		{"plugins", m.initPlugins},
		{"context", m.initContext},
		{"ui", m.initUI},
		{"input", m.initInput},
		{"diagnostics", m.initDiagnostics},
	}
	for _, phase := range phases {
		log := logger.Phase(m.log, "Init").With(slog.String("stage", phase.name))
		if err := phase.run(ctx); err != nil {
			log.Error("核心初始化失败", logger.Err(err))
			return xerrors.Wrap(xerrors.CodeInitializationFailure, err, fmt.Sprintf("initialize %s", phase.name))
		}
		log.Debug("初始化阶段完成")
	}

	m.initialized = true
	m.log.Info("RadialCore 初始化完成",
		slog.String("core_version", m.loader.CoreVersion().String()),
		slog.Int("plugins", m.loader.Count()),
		slog.String("hotkey", m.input.HotkeyDescription()),
	)
	return nil
}

func (m *Manager) initServices(context.Context) error {
	m.bus = events.NewBus(logger.Component("EventBus"))
	m.caps = capability.NewResolver(logger.Component("CapabilityResolver"))
	if m.collector == nil {
		m.collector = metrics.NewCollector()
	}
	m.notices = notify.New(
		notify.WithMaxVisible(m.cfg.Notifications.MaxVisible),
		notify.WithTTL(m.cfg.Notifications.TTL),
		notify.WithBus(m.bus),
	)
	m.watcher = alerting.Watch(m.bus, alerting.NewFanout(m.alertNotifiers()...), nil)
	m.subs = append(m.subs, events.Subscribe(m.bus, func(e events.PluginDisabled) error {
		m.notices.Warning(fmt.Sprintf("Plugin %s disabled after %d failures", e.PluginID, e.FailureCount))
		return nil
	}))
	return contexthub.RegisterDefaults(m.caps, m.defaults)
}

func (m *Manager) alertNotifiers() []alerting.Notifier {
	notifiers := []alerting.Notifier{&alerting.LogNotifier{}}
	if m.cfg.Alerts.WebhookURL != "" {
		notifiers = append(notifiers, &alerting.WebhookNotifier{URL: m.cfg.Alerts.WebhookURL})
	}
	return notifiers
}

func (m *Manager) initPlugins(ctx context.Context) error {
	opts := []loader.Option{
		loader.WithCapabilities(m.caps),
		loader.WithModPresence(loader.NewStaticModPresence(m.cfg.Mods...)),
		loader.WithBus(m.bus),
		loader.WithManagerConfig(m.cfg.Plugins),
		loader.WithFailureRecorder(m.collector),
	}
	if m.binaries != nil {
		opts = append(opts, loader.WithBinaryLoader(m.binaries))
	}
	m.loader = loader.New(opts...)

	for _, p := range m.builtins {
		id := safeID(p)
		if id != "" && !m.cfg.Plugins.BuiltinEnabled(id) {
			m.log.Info("内置插件已被配置禁用", slog.String(logger.KeyPluginID, id))
			continue
		}
		if err := m.loader.Load(p); err != nil {
			m.log.Warn("内置插件加载失败", slog.String(logger.KeyPluginID, id), logger.Err(err))
			m.notices.Error(fmt.Sprintf("Plugin %s failed to load", id))
			m.watcher.Report(ctx, id, err)
		}
	}

	if n, err := m.loader.Discover(ctx); err != nil {
		logger.Phase(m.log, "Discovery").Warn("部分外部插件加载失败", slog.Int("loaded", n), logger.Err(err))
		m.watcher.Report(ctx, "", err)
	}
	return nil
}

func safeID(p plugin.Plugin) (id string) {
	if p == nil {
		return ""
	}
	_ = xerrors.Protect(func() error { id = p.Manifest().ID(); return nil })
	return id
}

func (m *Manager) initContext(context.Context) error {
	m.hub = contexthub.New(m.loader, m.caps, contexthub.WithBus(m.bus))
	return m.hub.Initialize(contexthub.Defaults{})
}

func (m *Manager) initUI(context.Context) error {
	m.panels = panel.New(m.loader, m.bus, nil)
	opts := []action.Option{
		action.WithBus(m.bus),
		action.WithNotifier(m.notices),
		action.WithRecorder(m.collector),
	}
	if m.confirm != nil {
		opts = append(opts, action.WithConfirmer(m.confirm))
	}
	m.pipeline = action.New(m.loader, opts...)

	var err error
	m.menu, err = menu.New(m.loader, m.hub, m.pipeline, m.panels, menu.WithBus(m.bus))
	return err
}

func (m *Manager) initInput(context.Context) error {
	ic := m.cfg.Input
	var err error
	m.input, err = input.New(input.Config{
		Key:      ic.Key,
		Modifier: input.Modifier(strings.ToLower(ic.Modifier)),
		HoldMode: ic.HoldMode,
		Enabled:  ic.IsEnabled(),
	}, m.poller, m.bus, nil)
	if err != nil {
		return err
	}

	m.subs = append(m.subs,
		events.Subscribe(m.bus, func(events.MenuOpenRequested) error {
			if !m.menu.Open() {
				m.input.ForceClose()
			}
			return nil
		}),
		events.Subscribe(m.bus, func(events.MenuCloseRequested) error {
			m.menu.Close()
			return nil
		}),
		events.Subscribe(m.bus, func(events.MenuClosed) error {
			m.input.ForceClose()
			return nil
		}),
	)
	return nil
}

func (m *Manager) initDiagnostics(ctx context.Context) error {
	m.subs = append(m.subs, m.collector.Attach(m.bus))

	store, err := m.openJournal(ctx)
	if err != nil {
		return err
	}
	m.journal = journal.New(store, m.bus, nil)

	sink, err := m.openSink(ctx)
	if err != nil {
		return err
	}
	if sink != nil {
		m.forwarder = eventsink.NewForwarder(sink, m.bus, m.cfg.Sink.Topics)
	}
	return nil
}

func (m *Manager) openJournal(ctx context.Context) (journal.Store, error) {
	jc := m.cfg.Journal
	switch jc.Driver {
	case config.JournalMySQL:
		return journal.NewMySQLStore(ctx, journal.MySQLConfig{DSN: jc.DSN})
	default:
		return journal.NewMemoryStore(jc.Capacity), nil
	}
}

func (m *Manager) openSink(ctx context.Context) (eventsink.Sink, error) {
	sc := m.cfg.Sink
	switch sc.Driver {
	case config.SinkMemory:
		return eventsink.NewMemorySink(), nil
	case config.SinkRedis:
		return eventsink.NewRedisSink(ctx, eventsink.RedisConfig{
			Address:  sc.Redis.Addr,
			Password: sc.Redis.Password,
			DB:       sc.Redis.DB,
			Key:      sc.Redis.Key,
		})
	case config.SinkRabbitMQ:
		return eventsink.NewRabbitMQSink(eventsink.RabbitMQConfig{URL: sc.RabbitMQ.URL, Queue: sc.RabbitMQ.Queue, Durable: true})
	default:
		return nil, nil
	}
}

// OnTick 驱动一帧：输入、插件、上下文与通知。
func (m *Manager) OnTick(dt time.Duration) {
	if !m.Initialized() {
		return
	}
	m.input.OnTick(dt)
	m.loader.OnTick(dt)
	m.hub.OnTick(dt)
	m.notices.OnTick(dt)
}

// Initialized 返回是否已完成初始化。
func (m *Manager) Initialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// Shutdown 按与初始化相反的顺序关闭组件。
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return nil
	}
	m.initialized = false
	err := m.teardown()
	m.log.Info("RadialCore 已关闭")
	return err
}

// teardown 关闭已经构建的组件，容忍部分初始化的状态。
func (m *Manager) teardown() error {
	var errs []error
	if m.menu != nil {
		m.menu.Close()
	}
	if m.input != nil {
		m.input.Stop()
	}
	if m.watcher != nil {
		m.watcher.Stop()
	}
	if m.forwarder != nil {
		errs = append(errs, m.forwarder.Close())
	}
	if m.journal != nil {
		errs = append(errs, m.journal.Close())
	}
	if m.hub != nil {
		m.hub.Shutdown()
	}
	if m.loader != nil {
		m.loader.Shutdown()
	}
	if m.bus != nil {
		for _, sub := range m.subs {
			m.bus.Unsubscribe(sub)
		}
		m.bus.Clear()
	}
	m.subs = nil
	err := errors.Join(errs...)
	if err != nil {
		logger.Phase(m.log, "Shutdown").Error("关闭组件时出错", logger.Err(err))
	}
	return err
}

// Bus 返回事件总线。
func (m *Manager) Bus() *events.Bus { return m.bus }

// Loader 返回插件加载器。
func (m *Manager) Loader() *loader.PluginLoader { return m.loader }

// Hub 返回上下文中心。
func (m *Manager) Hub() *contexthub.Hub { return m.hub }

// Menu 返回菜单管理器。
func (m *Manager) Menu() *menu.Manager { return m.menu }

// Pipeline 返回动作管线。
func (m *Manager) Pipeline() *action.Pipeline { return m.pipeline }

// Panels 返回面板宿主。
func (m *Manager) Panels() *panel.Host { return m.panels }

// Notifications 返回通知服务。
func (m *Manager) Notifications() *notify.Service { return m.notices }

// Input 返回输入管理器。
func (m *Manager) Input() *input.Manager { return m.input }

// Journal 返回动作日志。
func (m *Manager) Journal() *journal.Journal { return m.journal }

// Metrics 返回指标收集器。
func (m *Manager) Metrics() *metrics.Collector { return m.collector }

// OpenMenu 以与热键相同的路径请求打开菜单，返回菜单是否已打开。
func (m *Manager) OpenMenu() bool {
	if !m.Initialized() {
		return false
	}
	m.input.ForceOpen()
	return m.menu.IsOpen()
}

// CloseMenu 请求关闭菜单。
func (m *Manager) CloseMenu() {
	if !m.Initialized() {
		return
	}
	m.input.ForceClose()
	m.menu.Close()
}

// ExecuteAction 通过菜单执行动作并等待结果。
func (m *Manager) ExecuteAction(ctx context.Context, actionID string) plugin.ActionResult {
	if !m.Initialized() {
		return plugin.Failure("RadialCore is not initialized", nil)
	}
	select {
	case result := <-m.menu.Execute(ctx, actionID):
		return result
	case <-ctx.Done():
		return plugin.Failure("Action cancelled: "+actionID, ctx.Err())
	}
}

// ResetBreaker 重置插件的熔断器，使其重新参与分发。
func (m *Manager) ResetBreaker(pluginID string) bool {
	if !m.Initialized() {
		return false
	}
	if !m.loader.ResetBreaker(pluginID) {
		return false
	}
	m.notices.Info(fmt.Sprintf("Plugin %s re-enabled", pluginID))
	return true
}

// RecentActions 返回最近的动作记录，新记录在前。
func (m *Manager) RecentActions(ctx context.Context, limit int) ([]journal.Record, error) {
	if !m.Initialized() {
		return nil, nil
	}
	return m.journal.Recent(ctx, limit)
}
