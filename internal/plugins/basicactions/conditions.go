package basicactions

import (
	"strings"

	"RadialCore/pkg/plugin"
)

type conditionEvaluator struct{}

func (conditionEvaluator) EvaluatorID() string { return "BasicActions.ConditionEvaluator" }

func (conditionEvaluator) CanEvaluate(conditionID string) bool {
	return strings.HasPrefix(conditionID, ConditionPrefix)
}

// Evaluate 未识别的条件返回 false。
func (conditionEvaluator) Evaluate(conditionID string, mc *plugin.MenuContext) (bool, error) {
	p, sel, gs := mc.Player, mc.Selection, mc.GameState
	switch conditionID {
	case "basic.player.hasGold":
		return p != nil && p.Gold > 0, nil
	case "basic.player.rich":
		return p != nil && p.Gold >= 1000, nil
	case "basic.player.healthy":
		return p != nil && p.HealthRatio() > 0.5, nil
	case "basic.player.inCombat":
		return p != nil && p.InCombat, nil
	case "basic.player.onHorse":
		return p != nil && p.Mounted, nil
	case "basic.npc.nearby":
		return sel != nil && sel.Kind == plugin.SelectionNPC && sel.Distance <= 10, nil
	case "basic.npc.close":
		return sel != nil && sel.Kind == plugin.SelectionNPC && sel.Distance <= talkRange, nil
	case "basic.gamestate.onMap":
		return gs.OnMap, nil
	case "basic.gamestate.inMission":
		return gs.InMission, nil
	case "basic.gamestate.inConversation":
		return gs.InConversation, nil
	}
	return false, nil
}
