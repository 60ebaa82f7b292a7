package panel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RadialCore/internal/events"
	"RadialCore/pkg/logger"
	"RadialCore/pkg/plugin"
)

type providerList []plugin.PanelProvider

func (l providerList) PanelProviders() []plugin.PanelProvider { return l }

type stubProvider struct {
	id      string
	claims  string
	content *plugin.PanelContent
	err     error
	panics  bool
	calls   *int
}

func (p stubProvider) ProviderID() string        { return p.id }
func (p stubProvider) CanProvide(id string) bool { return id == p.claims }

func (p stubProvider) PanelContent(string, *plugin.MenuContext) (*plugin.PanelContent, error) {
	if p.calls != nil {
		*p.calls++
	}
	if p.panics {
		panic("render failed")
	}
	return p.content, p.err
}

func newTestHost(providers providerList) (*Host, *[]events.PanelChanged) {
	bus := events.NewBus(logger.Discard())
	var changes []events.PanelChanged
	events.Subscribe(bus, func(e events.PanelChanged) error { changes = append(changes, e); return nil })
	return New(providers, bus, logger.Discard()), &changes
}

func TestFirstMatchWinsAndNotifiesOnce(t *testing.T) {
	secondCalls := 0
	host, changes := newTestHost(providerList{
		stubProvider{id: "a", claims: "p", content: &plugin.PanelContent{Title: "A"}},
		stubProvider{id: "b", claims: "p", content: &plugin.PanelContent{Title: "B"}, calls: &secondCalls},
	})

	require.True(t, host.Show(SlotPreview, "p", nil))
	content, ok := host.Content(SlotPreview)
	require.True(t, ok)
	assert.Equal(t, "A", content.Title)
	assert.Zero(t, secondCalls)
	assert.Equal(t, []events.PanelChanged{{Slot: "preview", PanelID: "p", Visible: true}}, *changes)
}

func TestAbsentAndFailingProvidersFallThrough(t *testing.T) {
	host, _ := newTestHost(providerList{
		stubProvider{id: "nil", claims: "p"},
		stubProvider{id: "err", claims: "p", err: errors.New("no data")},
		stubProvider{id: "panic", claims: "p", panics: true},
		stubProvider{id: "good", claims: "p", content: &plugin.PanelContent{Title: "Good"}},
	})
	require.True(t, host.Show(SlotModal, "p", nil))
	content, _ := host.Content(SlotModal)
	assert.Equal(t, "Good", content.Title)
	assert.Equal(t, "p", host.PanelID(SlotModal))
}

func TestShowWithoutContentLeavesSlotAndSkipsNotification(t *testing.T) {
	host, changes := newTestHost(providerList{stubProvider{id: "a", claims: "other"}})
	assert.False(t, host.Show(SlotInfo, "p", nil))
	assert.False(t, host.Show(Slot("sidebar"), "p", nil))
	_, ok := host.Content(SlotInfo)
	assert.False(t, ok)
	assert.Empty(t, *changes)
}

func TestHideAndHideAll(t *testing.T) {
	host, changes := newTestHost(providerList{stubProvider{id: "a", claims: "p", content: &plugin.PanelContent{}}})
	host.Show(SlotPreview, "p", nil)
	host.Show(SlotModal, "p", nil)
	assert.Len(t, host.Active(), 2)

	host.Hide(SlotPreview)
	_, ok := host.Content(SlotPreview)
	assert.False(t, ok)

	host.HideAll()
	assert.Empty(t, host.Active())
	assert.Len(t, *changes, 2+1+len(Slots))
}

func TestTextInputDefaultsMaxLength(t *testing.T) {
	host, _ := newTestHost(providerList{stubProvider{id: "a", claims: "rename", content: &plugin.PanelContent{
		Kind:  plugin.PanelTextInput,
		Input: &plugin.TextInputSpec{SubmitActionID: "x.rename"},
	}}})
	require.True(t, host.Show(SlotTextInput, "rename", nil))
	content, _ := host.Content(SlotTextInput)
	assert.Equal(t, plugin.DefaultInputMaxLength, content.Input.MaxLength)
}
