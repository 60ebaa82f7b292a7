package basicactions

import "RadialCore/pkg/plugin"

// 写入快照的自定义数据键。
const (
	KeyTimestamp    = "basicactions.timestamp"
	KeySessionID    = "basicactions.session_id"
	KeyWealth       = "basicactions.player.wealth_category"
	KeyHealthStatus = "basicactions.player.health_status"
)

type contextProvider struct{}

func (contextProvider) ProviderID() string { return "BasicActions.ContextProvider" }
func (contextProvider) Priority() int      { return plugin.DefaultPriority }

func (contextProvider) ProvideContext(mc *plugin.MenuContext) error {
	if err := mc.Set(KeyTimestamp, mc.Timestamp); err != nil {
		return err
	}
	if err := mc.Set(KeySessionID, mc.SessionID); err != nil {
		return err
	}
	if mc.Player == nil {
		return nil
	}
	if err := mc.Set(KeyWealth, WealthCategory(mc.Player.Gold)); err != nil {
		return err
	}
	return mc.Set(KeyHealthStatus, HealthStatus(mc.Player.HealthRatio()))
}

// WealthCategory 按金币数量划分财富等级。
func WealthCategory(gold int) string {
	switch {
	case gold < 100:
		return "Poor"
	case gold < 1000:
		return "Middle"
	case gold < 10000:
		return "Rich"
	default:
		return "Very Rich"
	}
}

// HealthStatus 按生命比例划分健康状态。
func HealthStatus(ratio float64) string {
	switch {
	case ratio > 0.75:
		return "Healthy"
	case ratio > 0.5:
		return "Wounded"
	case ratio > 0.25:
		return "Injured"
	default:
		return "Critical"
	}
}
