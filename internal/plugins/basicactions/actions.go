package basicactions

import (
	"context"
	"fmt"
	"strings"
	"time"

	xerrors "RadialCore/internal/errors"
	"RadialCore/pkg/plugin"
)

// 模拟的动作耗时。
var simulatedDelay = map[string]time.Duration{
	"inventory":    500 * time.Millisecond,
	"map":          300 * time.Millisecond,
	"quests":       400 * time.Millisecond,
	"talk":         600 * time.Millisecond,
	"test.action1": 2 * time.Second,
	"test.action2": time.Second,
}

type actionHandler struct {
	scale float64
}

func (h *actionHandler) HandlerID() string { return "BasicActions.ActionHandler" }

func (h *actionHandler) CanHandle(actionID string) bool {
	return strings.HasPrefix(actionID, ActionPrefix)
}

func (h *actionHandler) Execute(ctx context.Context, actionID string, mc *plugin.MenuContext) (plugin.ActionResult, error) {
	name := strings.TrimPrefix(actionID, ActionPrefix)
	if name == "talk" && !npcSelected(mc) {
		return plugin.Failure("No NPC selected", nil), nil
	}
	if _, ok := simulatedDelay[name]; !ok {
		return plugin.Failuref("Unknown action: %s", actionID), nil
	}
	if err := h.wait(ctx, simulatedDelay[name]); err != nil {
		return plugin.Failure("Action cancelled: "+actionID, err), nil
	}

	switch name {
	case "inventory":
		return plugin.Success("Inventory opened (simulated)"), nil
	case "map":
		return plugin.Success("Map opened (simulated)"), nil
	case "quests":
		return plugin.Success(fmt.Sprintf("Quests opened - %d active quests", len(questLog))), nil
	case "talk":
		return plugin.Success(fmt.Sprintf("Started conversation with %s (simulated)", mc.Selection.Name)), nil
	case "test.action1":
		return plugin.Success("Test Action 1 completed"), nil
	default:
		return plugin.Warning("Test Action 2 completed with warning"), nil
	}
}

func (h *actionHandler) wait(ctx context.Context, d time.Duration) error {
	d = time.Duration(float64(d) * h.scale)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return xerrors.Wrap(xerrors.CodeCancelled, ctx.Err(), "action interrupted")
	case <-timer.C:
		return nil
	}
}

func npcSelected(mc *plugin.MenuContext) bool {
	return mc != nil && mc.Selection != nil && mc.Selection.Kind == plugin.SelectionNPC
}
