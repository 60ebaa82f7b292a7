package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RadialCore/pkg/logger"
)

func newTestBus() *Bus { return NewBus(logger.Discard()) }

func TestPublishContinuesAfterFailingHandler(t *testing.T) {
	bus := newTestBus()
	var seen []int
	Subscribe(bus, func(PluginLoaded) error { seen = append(seen, 1); return nil })
	Subscribe(bus, func(PluginLoaded) error { seen = append(seen, 2); panic("handler exploded") })
	Subscribe(bus, func(PluginLoaded) error { seen = append(seen, 3); return errors.New("ignored") })

	bus.Publish(PluginLoaded{PluginID: "x"})
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestSubscribeIsTopicScoped(t *testing.T) {
	bus := newTestBus()
	opened, closed := 0, 0
	Subscribe(bus, func(MenuOpened) error { opened++; return nil })
	Subscribe(bus, func(MenuClosed) error { closed++; return nil })

	bus.Publish(MenuOpened{EntryCount: 3})
	assert.Equal(t, 1, opened)
	assert.Zero(t, closed)
}

func TestUnsubscribeByHandle(t *testing.T) {
	bus := newTestBus()
	calls := 0
	sub := Subscribe(bus, func(ContextRefreshed) error { calls++; return nil })
	require.True(t, sub.Valid())
	assert.Equal(t, 1, bus.SubscriberCount(TopicContextRefreshed))

	assert.True(t, bus.Unsubscribe(sub))
	assert.False(t, bus.Unsubscribe(sub))
	bus.Publish(ContextRefreshed{})
	assert.Zero(t, calls)
	assert.Zero(t, bus.SubscriberCount(TopicContextRefreshed))
}

func TestReentrantSubscribeDuringPublish(t *testing.T) {
	bus := newTestBus()
	late := 0
	var self Subscription
	self = Subscribe(bus, func(PanelChanged) error {
		Subscribe(bus, func(PanelChanged) error { late++; return nil })
		bus.Unsubscribe(self)
		return nil
	})

	bus.Publish(PanelChanged{Slot: "modal"})
	assert.Zero(t, late, "subscribers added during publish join the next publish")
	bus.Publish(PanelChanged{Slot: "modal"})
	assert.Equal(t, 1, late)
}

func TestAllTopicsReceivesEverything(t *testing.T) {
	bus := newTestBus()
	var topics []string
	bus.Subscribe(AllTopics, func(ev Event) error { topics = append(topics, ev.Topic()); return nil })

	bus.Publish(MenuOpened{})
	bus.Publish(PluginDisabled{PluginID: "p"})
	assert.Equal(t, []string{TopicMenuOpened, TopicPluginDisabled}, topics)
}

func TestClearAndNil(t *testing.T) {
	bus := newTestBus()
	Subscribe(bus, func(MenuOpened) error { return nil })
	assert.False(t, Subscribe[MenuOpened](bus, nil).Valid())
	bus.Clear()
	assert.Zero(t, bus.SubscriberCount(TopicMenuOpened))
	bus.Publish(nil)
}
