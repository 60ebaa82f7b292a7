package input

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RadialCore/internal/events"
	"RadialCore/pkg/logger"
)

type fakePoller struct {
	keys      map[string]bool
	modifiers map[Modifier]bool
}

func newPoller() *fakePoller {
	return &fakePoller{keys: map[string]bool{}, modifiers: map[Modifier]bool{}}
}

func (p *fakePoller) IsKeyDown(key string) bool      { return p.keys[key] }
func (p *fakePoller) IsModifierDown(m Modifier) bool { return p.modifiers[m] }

type recorder struct{ topics []string }

func newManager(t *testing.T, cfg Config) (*Manager, *fakePoller, *recorder) {
	t.Helper()
	bus := events.NewBus(logger.Discard())
	rec := &recorder{}
	bus.Subscribe(events.TopicMenuOpenRequested, func(e events.Event) error { rec.topics = append(rec.topics, e.Topic()); return nil })
	bus.Subscribe(events.TopicMenuCloseRequested, func(e events.Event) error { rec.topics = append(rec.topics, e.Topic()); return nil })
	poller := newPoller()
	m, err := New(cfg, poller, bus, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(m.Stop)
	return m, poller, rec
}

const frame = 16 * time.Millisecond

func TestToggleMode(t *testing.T) {
	m, poller, rec := newManager(t, DefaultConfig())

	poller.keys["V"] = true
	m.OnTick(frame)
	m.OnTick(frame)
	assert.True(t, m.IsOpen())

	poller.keys["V"] = false
	m.OnTick(frame)
	assert.True(t, m.IsOpen(), "releasing the key does not close in toggle mode")

	poller.keys["V"] = true
	m.OnTick(frame)
	assert.False(t, m.IsOpen())
	assert.Equal(t, []string{events.TopicMenuOpenRequested, events.TopicMenuCloseRequested}, rec.topics)
}

func TestHoldModeRespectsMinimumHold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HoldMode = true
	m, poller, rec := newManager(t, cfg)

	poller.keys["V"] = true
	m.OnTick(frame)
	require.True(t, m.IsOpen())
	poller.keys["V"] = false
	m.OnTick(frame)
	assert.True(t, m.IsOpen(), "a tap shorter than the minimum hold keeps the menu open")

	poller.keys["V"] = true
	m.OnTick(frame)
	for i := 0; i < 8; i++ {
		m.OnTick(frame)
	}
	poller.keys["V"] = false
	m.OnTick(frame)
	assert.False(t, m.IsOpen())
	assert.Equal(t, []string{events.TopicMenuOpenRequested, events.TopicMenuCloseRequested}, rec.topics)
}

func TestModifierRequired(t *testing.T) {
	m, poller, _ := newManager(t, Config{Key: "r", Modifier: ModifierShift, Enabled: true})
	poller.keys["R"] = true
	m.OnTick(frame)
	assert.False(t, m.IsOpen())

	poller.keys["R"] = false
	m.OnTick(frame)
	poller.keys["R"] = true
	poller.modifiers[ModifierShift] = true
	m.OnTick(frame)
	assert.True(t, m.IsOpen())
	assert.Equal(t, "Shift+R (toggle)", m.HotkeyDescription())
}

func TestDisabledAndForceClose(t *testing.T) {
	m, poller, rec := newManager(t, Config{Key: "V"})
	poller.keys["V"] = true
	m.OnTick(frame)
	assert.False(t, m.IsOpen())

	m2, poller2, rec2 := newManager(t, DefaultConfig())
	poller2.keys["V"] = true
	m2.OnTick(frame)
	m2.ForceClose()
	m2.ForceClose()
	assert.False(t, m2.IsOpen())
	assert.Len(t, rec2.topics, 2)
	assert.Empty(t, rec.topics)
}

func TestSetHotkeyAndHoldMode(t *testing.T) {
	m, _, _ := newManager(t, DefaultConfig())
	m.SetHotkey(" x ", "")
	m.SetHoldMode(true)
	assert.Equal(t, "X (hold)", m.HotkeyDescription())
}

func TestForceOpenWorksWhileHotkeyDisabled(t *testing.T) {
	m, _, rec := newManager(t, Config{Key: "V"})
	m.ForceOpen()
	m.ForceOpen()
	assert.True(t, m.IsOpen())
	assert.Equal(t, []string{events.TopicMenuOpenRequested}, rec.topics)
}
