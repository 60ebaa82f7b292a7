// Package api 暴露远程控制接口，供无界面部署下的外部工具查看插件状态、
// 驱动菜单与执行动作。
package api
