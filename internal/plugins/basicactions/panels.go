package basicactions

import (
	"fmt"
	"strings"

	"RadialCore/pkg/plugin"
)

var questLog = []string{"Test Quest", "Another Quest", "Final Quest"}

type panelProvider struct{}

func (panelProvider) ProviderID() string { return "BasicActions.PanelProvider" }

func (panelProvider) CanProvide(panelID string) bool {
	return strings.HasPrefix(panelID, PreviewPrefix) || strings.HasPrefix(panelID, InputPrefix)
}

func (panelProvider) PanelContent(panelID string, mc *plugin.MenuContext) (*plugin.PanelContent, error) {
	switch panelID {
	case PreviewPrefix + "inventory":
		return inventoryPreview(mc), nil
	case PreviewPrefix + "map":
		return preview("Map", "World Map\n\nView the campaign map\nSee all settlements and parties"), nil
	case PreviewPrefix + "quests":
		var b strings.Builder
		b.WriteString("Active Quests\n\n")
		for i, q := range questLog {
			fmt.Fprintf(&b, "- Quest %d: %s\n", i+1, q)
		}
		return preview("Quests", b.String()), nil
	case PreviewPrefix + "talk":
		return talkPreview(mc), nil
	case InputPrefix + "rename":
		return &plugin.PanelContent{
			Kind:  plugin.PanelTextInput,
			Title: "Rename Item",
			Body:  "Enter a new name for your item:",
			Input: &plugin.TextInputSpec{
				Placeholder:     "Item name...",
				MaxLength:       50,
				ValidationRegex: `^[a-zA-Z0-9\s]+$`,
				SubmitActionID:  ActionPrefix + "rename.submit",
			},
		}, nil
	}
	return nil, nil
}

func preview(title, body string) *plugin.PanelContent {
	return &plugin.PanelContent{Kind: plugin.PanelPreview, Title: title, Body: body}
}

func inventoryPreview(mc *plugin.MenuContext) *plugin.PanelContent {
	if mc == nil || mc.Player == nil {
		return preview("Inventory", "Inventory\n\nPlayer data not available")
	}
	return preview("Inventory", fmt.Sprintf("Inventory\n\nGold: %d\nLevel: %d", mc.Player.Gold, mc.Player.Level))
}

func talkPreview(mc *plugin.MenuContext) *plugin.PanelContent {
	if !npcSelected(mc) {
		return preview("Talk", "Talk\n\nNo NPC nearby")
	}
	sel := mc.Selection
	body := fmt.Sprintf("Talk\n\nTarget: %s\nDistance: %.1fm", sel.Name, sel.Distance)
	if sel.Distance > talkRange {
		body += "\n\nToo far away!"
	}
	return preview("Talk", body)
}
