package basicactions

import (
	"fmt"

	"RadialCore/pkg/plugin"
)

// talkRange 是可以与 NPC 对话的最大距离。
const talkRange = 5.0

type menuProvider struct{}

func (menuProvider) ProviderID() string { return "BasicActions.MenuProvider" }
func (menuProvider) Priority() int      { return plugin.DefaultPriority }

func (menuProvider) MenuEntries(mc *plugin.MenuContext) ([]plugin.Entry, error) {
	entries := []plugin.Entry{
		action("inventory", "Inventory", "Open your inventory", 100),
		action("map", "Map", "Open the world map", 90),
		action("quests", "Quests", "View your active quests", 80),
	}

	if sel := mc.Selection; sel != nil && sel.Kind == plugin.SelectionNPC {
		talk := action("talk", "Talk to "+sel.Name, fmt.Sprintf("Start conversation with %s", sel.Name), 150)
		talk.Enabled = sel.Distance <= talkRange
		entries = append(entries, talk)
	}

	test1 := plugin.NewActionEntry(ActionPrefix+"test.action1", "Test Action 1")
	test1.Description = "Simulated long-running action"
	test2 := plugin.NewActionEntry(ActionPrefix+"test.action2", "Test Action 2")
	test2.Description = "Action that completes with a warning"
	more := plugin.NewSubmenu(ActionPrefix+"submenu.test", "More Actions", test1, test2)
	more.Description = "Additional actions submenu"
	more.IconID = "icon.more"
	more.Priority = 50
	return append(entries, more), nil
}

func action(name, label, description string, priority int) plugin.Entry {
	e := plugin.NewActionEntry(ActionPrefix+name, label)
	e.Description = description
	e.IconID = "icon." + name
	e.Priority = priority
	e.PreviewPanel = PreviewPrefix + name
	return e
}
