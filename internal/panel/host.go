// Package panel 管理四个固定的面板槽位。
package panel

import (
	"log/slog"
	"sync"

	xerrors "RadialCore/internal/errors"
	"RadialCore/internal/events"
	"RadialCore/pkg/logger"
	"RadialCore/pkg/plugin"
)

// Slot 是面板槽位名称。
type Slot string

const (
	SlotPreview   Slot = "preview"
	SlotInfo      Slot = "info"
	SlotModal     Slot = "modal"
	SlotTextInput Slot = "text_input"
)

// Slots 按固定顺序列出全部槽位。
var Slots = []Slot{SlotPreview, SlotInfo, SlotModal, SlotTextInput}

// Valid 判断槽位是否存在。
func (s Slot) Valid() bool {
	switch s {
	case SlotPreview, SlotInfo, SlotModal, SlotTextInput:
		return true
	}
	return false
}

// ProviderSource 按枚举顺序返回面板提供者。
type ProviderSource interface {
	PanelProviders() []plugin.PanelProvider
}

type slotState struct {
	panelID string
	content *plugin.PanelContent
}

// Host 保存各槽位当前显示的内容。
type Host struct {
	providers ProviderSource
	bus       *events.Bus
	log       *slog.Logger

	mu    sync.RWMutex
	slots map[Slot]slotState
}

// New 创建面板宿主。
func New(providers ProviderSource, bus *events.Bus, log *slog.Logger) *Host {
	if log == nil {
		log = logger.Component("PanelHost")
	}
	return &Host{
		providers: providers,
		bus:       bus,
		log:       log,
		slots:     make(map[Slot]slotState, len(Slots)),
	}
}

// Show 从第一个能提供 panelID 内容的提供者获取内容并放入槽位。
// 没有任何提供者给出内容时返回 false，槽位保持不变。
func (h *Host) Show(slot Slot, panelID string, mc *plugin.MenuContext) bool {
	if !slot.Valid() {
		h.log.Warn("未知的面板槽位", slog.String("slot", string(slot)))
		return false
	}
	if panelID == "" {
		return false
	}
	content := h.lookup(panelID, mc)
	if content == nil {
		h.log.Warn("没有找到面板内容", slog.String("panel_id", panelID))
		return false
	}
	h.mu.Lock()
	h.slots[slot] = slotState{panelID: panelID, content: content}
	h.mu.Unlock()

	h.publish(events.PanelChanged{Slot: string(slot), PanelID: panelID, Visible: true})
	return true
}

// Hide 清空槽位。
func (h *Host) Hide(slot Slot) {
	if !slot.Valid() {
		return
	}
	h.mu.Lock()
	delete(h.slots, slot)
	h.mu.Unlock()
	h.publish(events.PanelChanged{Slot: string(slot)})
}

// HideAll 清空全部槽位。
func (h *Host) HideAll() {
	h.mu.Lock()
	h.slots = make(map[Slot]slotState, len(Slots))
	h.mu.Unlock()
	for _, slot := range Slots {
		h.publish(events.PanelChanged{Slot: string(slot)})
	}
}

// Content 返回槽位当前内容。
func (h *Host) Content(slot Slot) (*plugin.PanelContent, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.slots[slot]
	return s.content, ok
}

// PanelID 返回槽位当前显示的面板 ID。
func (h *Host) PanelID(slot Slot) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.slots[slot].panelID
}

// Active 返回所有非空槽位及其面板 ID。
func (h *Host) Active() map[Slot]string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[Slot]string, len(h.slots))
	for slot, s := range h.slots {
		out[slot] = s.panelID
	}
	return out
}

func (h *Host) lookup(panelID string, mc *plugin.MenuContext) *plugin.PanelContent {
	if h.providers == nil {
		return nil
	}
	for _, p := range h.providers.PanelProviders() {
		var content *plugin.PanelContent
		err := xerrors.Protect(func() error {
			if !p.CanProvide(panelID) {
				return nil
			}
			var inner error
			content, inner = p.PanelContent(panelID, mc)
			return inner
		})
		if err != nil {
			h.log.Warn("面板提供者失败", slog.String("panel_id", panelID), logger.Err(err))
			continue
		}
		if content != nil {
			if content.Kind == plugin.PanelTextInput && content.Input != nil && content.Input.MaxLength <= 0 {
				content.Input.MaxLength = plugin.DefaultInputMaxLength
			}
			return content
		}
	}
	return nil
}

func (h *Host) publish(ev events.Event) {
	if h.bus != nil {
		h.bus.Publish(ev)
	}
}
