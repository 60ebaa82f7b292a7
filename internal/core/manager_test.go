package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RadialCore/internal/config"
	"RadialCore/internal/contexthub"
	xerrors "RadialCore/internal/errors"
	"RadialCore/internal/events"
	"RadialCore/internal/input"
	"RadialCore/internal/plugins/basicactions"
	"RadialCore/pkg/capability"
	"RadialCore/pkg/logger"
	"RadialCore/pkg/plugin"
)

const frame = 16 * time.Millisecond

type fakePoller struct {
	mu   sync.Mutex
	down map[string]bool
}

func (p *fakePoller) set(key string, down bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.down == nil {
		p.down = map[string]bool{}
	}
	p.down[key] = down
}

func (p *fakePoller) IsKeyDown(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.down[key]
}

func (p *fakePoller) IsModifierDown(input.Modifier) bool { return false }

type playerService struct{}

func (playerService) PlayerInfo() (*plugin.PlayerInfo, error) {
	return &plugin.PlayerInfo{Name: "Aserai", Gold: 1200, Level: 12, Health: 80, MaxHealth: 100}, nil
}

type selectionService struct{}

func (selectionService) Selection() (*plugin.SelectionInfo, error) {
	return &plugin.SelectionInfo{Kind: plugin.SelectionNPC, TargetID: "npc-7", Name: "Rhagaea", Distance: 3}, nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Plugins.Plugins = map[string]plugin.PluginConfig{
		basicactions.ID: {Enabled: true, Config: map[string]any{"delay_scale": 0.0}},
	}
	return cfg
}

func newTestManager(t *testing.T, cfg *config.Config, poller *fakePoller) *Manager {
	t.Helper()
	m := New(cfg,
		WithKeyPoller(poller),
		WithDefaults(contexthub.Defaults{Player: playerService{}, Selection: selectionService{}}),
		WithBuiltins(basicactions.New()),
		WithLogger(logger.Discard()),
	)
	require.NoError(t, m.Initialize(context.Background()))
	t.Cleanup(func() { _ = m.Shutdown() })
	return m
}

// tap 模拟一次按下并松开热键。
func tap(m *Manager, p *fakePoller) {
	p.set("V", true)
	m.OnTick(frame)
	p.set("V", false)
	m.OnTick(frame)
}

func TestInitializeLoadsBuiltinsAndPublishesContext(t *testing.T) {
	m := newTestManager(t, testConfig(), &fakePoller{})

	assert.True(t, m.Initialized())
	assert.Equal(t, 1, m.Loader().Count())
	assert.True(t, m.Loader().IsLoaded(basicactions.ID))

	mc := m.Hub().Current()
	require.NotNil(t, mc)
	require.NotNil(t, mc.Player)
	assert.Equal(t, "Aserai", mc.Player.Name)
	assert.Equal(t, "V (toggle)", m.Input().HotkeyDescription())

	require.NoError(t, m.Initialize(context.Background()), "second Initialize is a no-op")
	assert.Equal(t, 1, m.Loader().Count())
}

func TestHotkeyTogglesMenu(t *testing.T) {
	poller := &fakePoller{}
	m := newTestManager(t, testConfig(), poller)

	var opened, closed int
	events.Subscribe(m.Bus(), func(events.MenuOpened) error { opened++; return nil })
	events.Subscribe(m.Bus(), func(events.MenuClosed) error { closed++; return nil })

	tap(m, poller)
	require.True(t, m.Menu().IsOpen())
	assert.True(t, m.Input().IsOpen())
	entries := m.Menu().Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, "basicactions.talk", entries[0].ID)
	assert.True(t, entries[0].Enabled)

	tap(m, poller)
	assert.False(t, m.Menu().IsOpen())
	assert.False(t, m.Input().IsOpen())
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, closed)
}

func TestExecuteClosesMenuAndJournalsResult(t *testing.T) {
	poller := &fakePoller{}
	m := newTestManager(t, testConfig(), poller)

	tap(m, poller)
	require.True(t, m.Menu().IsOpen())

	result := <-m.Menu().Execute(context.Background(), "basicactions.inventory")
	assert.True(t, result.Success, result.Message)
	assert.False(t, m.Menu().IsOpen())
	assert.False(t, m.Input().IsOpen(), "input follows the menu when an action closes it")

	require.Eventually(t, func() bool {
		records, err := m.Journal().Recent(context.Background(), 10)
		return err == nil && len(records) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(1), m.Metrics().Totals().ActionsOK)
}

func TestMenuWithoutEntriesResetsInput(t *testing.T) {
	cfg := testConfig()
	cfg.Plugins.DisabledBuiltins = []string{basicactions.ID}
	poller := &fakePoller{}
	m := newTestManager(t, cfg, poller)

	assert.Zero(t, m.Loader().Count())
	tap(m, poller)
	assert.False(t, m.Menu().IsOpen())
	assert.False(t, m.Input().IsOpen())
}

func TestDumpState(t *testing.T) {
	cfg := testConfig()
	cfg.Sink.Driver = config.SinkMemory
	poller := &fakePoller{}
	m := newTestManager(t, cfg, poller)

	tap(m, poller)
	st := m.DumpState(context.Background())
	assert.True(t, st.Initialized)
	assert.Equal(t, "1.0.0", st.CoreVersion)
	require.Len(t, st.Plugins, 1)
	assert.Equal(t, basicactions.ID, st.Plugins[0].ID)
	assert.True(t, st.Menu.Open)
	require.NotNil(t, st.Context)
	assert.Equal(t, "npc-7", st.Context.Selection.TargetID)
	assert.Contains(t, st.Capabilities, string(plugin.CapabilityPlayerState))
	require.NotNil(t, st.Sink)

	require.Eventually(t, func() bool {
		return m.DumpState(context.Background()).Sink.Forwarded >= 1
	}, time.Second, 10*time.Millisecond)
}

func TestDumpStateBeforeInitialize(t *testing.T) {
	st := New(nil, WithLogger(logger.Discard())).DumpState(context.Background())
	assert.False(t, st.Initialized)
	assert.Equal(t, "1.0.0", st.CoreVersion)
	assert.Nil(t, st.Plugins)
}

func TestInitializeFailureTearsDown(t *testing.T) {
	cfg := testConfig()
	cfg.Sink.Driver = config.SinkRabbitMQ
	cfg.Sink.RabbitMQ.URL = ""
	m := New(cfg, WithBuiltins(basicactions.New()), WithLogger(logger.Discard()))

	err := m.Initialize(context.Background())
	require.Error(t, err)
	assert.Equal(t, xerrors.CodeInitializationFailure, xerrors.CodeOf(err))
	assert.False(t, m.Initialized())
	assert.Zero(t, m.Loader().Count(), "plugins loaded before the failure are shut down")

	m.OnTick(frame)
	require.NoError(t, m.Shutdown())
}

func TestShutdownIsIdempotent(t *testing.T) {
	poller := &fakePoller{}
	m := newTestManager(t, testConfig(), poller)
	tap(m, poller)

	require.NoError(t, m.Shutdown())
	assert.False(t, m.Initialized())
	assert.False(t, m.Menu().IsOpen())
	assert.Zero(t, m.Loader().Count())
	empty := m.Hub().Current()
	require.NotNil(t, empty)
	assert.Zero(t, empty.Generation)
	assert.Zero(t, empty.Len())
	require.NoError(t, m.Shutdown())

	tap(m, poller)
	assert.False(t, m.Menu().IsOpen())
}

func TestOpenAndCloseMenuKeepInputInSync(t *testing.T) {
	poller := &fakePoller{}
	m := newTestManager(t, testConfig(), poller)

	require.True(t, m.OpenMenu())
	assert.True(t, m.Input().IsOpen())

	m.CloseMenu()
	assert.False(t, m.Menu().IsOpen())
	assert.False(t, m.Input().IsOpen())

	tap(m, poller)
	assert.True(t, m.Menu().IsOpen(), "hotkey opens after a remote close")

	result := m.ExecuteAction(context.Background(), "basicactions.map")
	assert.True(t, result.Success)
	require.Eventually(t, func() bool {
		records, err := m.RecentActions(context.Background(), 5)
		return err == nil && len(records) == 1 && records[0].ActionID == "basicactions.map"
	}, time.Second, 10*time.Millisecond)
	assert.False(t, m.ResetBreaker("missing"))
}

type capabilityCheckingPlugin struct {
	sawPlayer bool
}

func (p *capabilityCheckingPlugin) Manifest() plugin.Manifest {
	return plugin.MustManifest("capcheck", "Capability Check", plugin.NewVersion(1, 0, 0), plugin.NewVersion(1, 0, 0),
		plugin.WithRequiredCapability(plugin.CapabilityPlayerState))
}

func (p *capabilityCheckingPlugin) Initialize(ctx plugin.InitContext) error {
	_, p.sawPlayer = capability.Resolve(ctx.Capabilities(), plugin.PlayerStateKey).Get()
	return nil
}

func (p *capabilityCheckingPlugin) OnTick(time.Duration) error { return nil }
func (p *capabilityCheckingPlugin) Shutdown() error            { return nil }

func TestDefaultServicesAreRegisteredBeforePluginsLoad(t *testing.T) {
	checker := &capabilityCheckingPlugin{}
	m := New(testConfig(),
		WithDefaults(contexthub.Defaults{Player: playerService{}}),
		WithBuiltins(checker),
		WithLogger(logger.Discard()),
	)
	require.NoError(t, m.Initialize(context.Background()))
	t.Cleanup(func() { _ = m.Shutdown() })

	assert.True(t, m.Loader().IsLoaded("capcheck"))
	assert.True(t, checker.sawPlayer)
	require.NotNil(t, m.Hub().Current().Player)
}

type lifecyclePlugin struct {
	id      string
	initErr error
	tickErr error
}

func (p *lifecyclePlugin) Manifest() plugin.Manifest {
	return plugin.MustManifest(p.id, p.id, plugin.NewVersion(1, 0, 0), plugin.NewVersion(1, 0, 0))
}

func (p *lifecyclePlugin) Initialize(plugin.InitContext) error { return p.initErr }
func (p *lifecyclePlugin) OnTick(time.Duration) error          { return p.tickErr }
func (p *lifecyclePlugin) Shutdown() error                     { return nil }

func TestPluginHealthIsSurfacedAsNotifications(t *testing.T) {
	m := New(testConfig(),
		WithBuiltins(
			&lifecyclePlugin{id: "broken", initErr: errors.New("cannot start")},
			&lifecyclePlugin{id: "flaky", tickErr: errors.New("tick failed")},
		),
		WithLogger(logger.Discard()),
	)
	require.NoError(t, m.Initialize(context.Background()))
	t.Cleanup(func() { _ = m.Shutdown() })

	assert.False(t, m.ResetBreaker("broken"), "never loaded")
	for i := 0; i < 5; i++ {
		m.OnTick(frame)
	}
	require.True(t, m.ResetBreaker("flaky"))

	active := m.Notifications().Active()
	require.Len(t, active, 3)
	assert.Equal(t, "Plugin broken failed to load", active[0].Message)
	assert.Equal(t, plugin.ResultError, active[0].Kind)
	assert.Equal(t, "Plugin flaky disabled after 5 failures", active[1].Message)
	assert.Equal(t, plugin.ResultWarning, active[1].Kind)
	assert.Equal(t, "Plugin flaky re-enabled", active[2].Message)
	assert.Equal(t, plugin.ResultInfo, active[2].Kind)
}
