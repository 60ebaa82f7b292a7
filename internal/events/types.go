package events

import "time"

// 事件主题。
const (
	TopicMenuOpenRequested  = "menu.open_requested"
	TopicMenuCloseRequested = "menu.close_requested"
	TopicMenuOpened         = "menu.opened"
	TopicMenuClosed         = "menu.closed"
	TopicActionExecuted     = "action.executed"
	TopicContextRefreshed   = "context.refreshed"
	TopicPluginLoaded       = "plugin.loaded"
	TopicPluginDisabled     = "plugin.disabled"
	TopicPanelChanged       = "panel.changed"
	TopicNotificationShown  = "notification.shown"
)

// MenuOpenRequested 由输入层发出，请求打开菜单。
type MenuOpenRequested struct {
	At time.Time `json:"at"`
}

func (MenuOpenRequested) Topic() string { return TopicMenuOpenRequested }

// MenuCloseRequested 由输入层发出，请求关闭菜单。
type MenuCloseRequested struct {
	At time.Time `json:"at"`
}

func (MenuCloseRequested) Topic() string { return TopicMenuCloseRequested }

// MenuOpened 在菜单打开且条目收集完成后发布。
type MenuOpened struct {
	At         time.Time `json:"at"`
	EntryCount int       `json:"entry_count"`
}

func (MenuOpened) Topic() string { return TopicMenuOpened }

// MenuClosed 在菜单关闭后发布。
type MenuClosed struct {
	At             time.Time `json:"at"`
	ActionExecuted bool      `json:"action_executed"`
}

func (MenuClosed) Topic() string { return TopicMenuClosed }

// ActionExecuted 由动作管线在 Post 阶段发布。
type ActionExecuted struct {
	InvocationID string        `json:"invocation_id"`
	ActionID     string        `json:"action_id"`
	Success      bool          `json:"success"`
	Message      string        `json:"message"`
	Kind         string        `json:"kind"`
	At           time.Time     `json:"at"`
	Duration     time.Duration `json:"duration"`
}

func (ActionExecuted) Topic() string { return TopicActionExecuted }

// ContextRefreshed 在新的上下文快照发布后触发。
type ContextRefreshed struct {
	At         time.Time `json:"at"`
	Generation uint64    `json:"generation"`
	Forced     bool      `json:"forced"`
}

func (ContextRefreshed) Topic() string { return TopicContextRefreshed }

// PluginLoaded 在插件初始化成功后发布。
type PluginLoaded struct {
	PluginID string `json:"plugin_id"`
	Name     string `json:"name"`
	Version  string `json:"version"`
}

func (PluginLoaded) Topic() string { return TopicPluginLoaded }

// PluginDisabled 在插件熔断器打开后发布。
type PluginDisabled struct {
	PluginID     string `json:"plugin_id"`
	Reason       string `json:"reason"`
	FailureCount int    `json:"failure_count"`
}

func (PluginDisabled) Topic() string { return TopicPluginDisabled }

// PanelChanged 在面板槽位内容变化时发布。PanelID 为空表示槽位被清空。
type PanelChanged struct {
	Slot    string `json:"slot"`
	PanelID string `json:"panel_id"`
	Visible bool   `json:"visible"`
}

func (PanelChanged) Topic() string { return TopicPanelChanged }

// NotificationShown 在通知进入显示队列时发布。
type NotificationShown struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

func (NotificationShown) Topic() string { return TopicNotificationShown }
