// Package basicactions 是宿主内置的基础动作插件：背包、地图、任务、对话以及一个测试子菜单。
//
// 它同时注册了全部五类提供者，可作为编写插件的参考。
package basicactions

import (
	"time"

	"RadialCore/pkg/plugin"
)

// ID 是内置插件的标识。
const ID = "Radial.BasicActions"

// 各类 ID 前缀。
const (
	ActionPrefix    = "basicactions."
	PreviewPrefix   = "basicactions.preview."
	InputPrefix     = "basicactions.input."
	ConditionPrefix = "basic."
)

var manifest = plugin.MustManifest(ID, "Basic Actions",
	plugin.NewVersion(1, 0, 0),
	plugin.NewVersion(1, 0, 0),
	plugin.WithAuthor("RadialCore Team"),
	plugin.WithDescription("Built-in plugin providing basic radial menu actions: Inventory, Map, Quests, Talk"),
	plugin.WithRequiredCapability(plugin.CapabilityPlayerState),
	plugin.WithRequiredCapability(plugin.CapabilitySelection),
)

// Plugin 实现 plugin.Plugin。
type Plugin struct {
	ctx     plugin.InitContext
	actions *actionHandler
}

// New 创建内置插件实例。
func New() *Plugin { return &Plugin{} }

// Manifest 实现 plugin.Plugin。
func (p *Plugin) Manifest() plugin.Manifest { return manifest }

// Initialize 注册全部提供者。配置项 delay_scale 用于缩放模拟的动作耗时，0 表示立即完成。
func (p *Plugin) Initialize(ctx plugin.InitContext) error {
	p.ctx = ctx
	scale := 1.0
	if v, ok := ctx.Config()["delay_scale"]; ok {
		switch n := v.(type) {
		case float64:
			scale = n
		case int:
			scale = float64(n)
		default:
			ctx.LogWarning("delay_scale 配置类型无效，使用默认值", "value", v)
		}
	}
	if scale < 0 {
		scale = 0
	}
	p.actions = &actionHandler{scale: scale}

	ctx.RegisterMenuProvider(menuProvider{})
	ctx.RegisterActionHandler(p.actions)
	ctx.RegisterPanelProvider(panelProvider{})
	ctx.RegisterContextProvider(contextProvider{})
	ctx.RegisterConditionEvaluator(conditionEvaluator{})
	ctx.LogInfo("BasicActions 插件初始化完成", "actions", "inventory, map, quests, talk")
	return nil
}

// OnTick 实现 plugin.Plugin。插件无状态，不做任何事。
func (p *Plugin) OnTick(time.Duration) error { return nil }

// Shutdown 实现 plugin.Plugin。
func (p *Plugin) Shutdown() error {
	if p.ctx != nil {
		p.ctx.LogInfo("BasicActions 插件关闭")
	}
	return nil
}
