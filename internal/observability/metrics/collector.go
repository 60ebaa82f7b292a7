// Package metrics 收集宿主运行指标，并以 Prometheus 文本格式对外暴露。
package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"RadialCore/internal/events"
)

type failureKey struct {
	plugin    string
	operation string
}

type actionKey struct {
	action  string
	outcome string
}

type histogram struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

// Collector 汇总插件故障、断路器、动作执行与上下文刷新指标。
//
// 它同时满足 loader.FailureRecorder 与 action.Recorder。
type Collector struct {
	mu        sync.Mutex
	failures  map[failureKey]uint64
	opens     map[string]uint64
	actions   map[actionKey]uint64
	latency   map[string]*histogram
	refreshes map[bool]uint64
}

// NewCollector 创建指标收集器。
func NewCollector() *Collector {
	return &Collector{
		failures:  make(map[failureKey]uint64),
		opens:     make(map[string]uint64),
		actions:   make(map[actionKey]uint64),
		latency:   make(map[string]*histogram),
		refreshes: make(map[bool]uint64),
	}
}

// PluginFailure 记录一次插件操作失败。
func (c *Collector) PluginFailure(pluginID, operation string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[failureKey{plugin: pluginID, operation: operation}]++
}

// BreakerOpened 记录一次断路器打开。
func (c *Collector) BreakerOpened(pluginID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opens[pluginID]++
}

// ObserveAction 记录一次动作执行的结果与耗时。
func (c *Collector) ObserveAction(actionID string, success bool, d time.Duration) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions[actionKey{action: actionID, outcome: outcome}]++
	hist := c.latency[actionID]
	if hist == nil {
		hist = newHistogram()
		c.latency[actionID] = hist
	}
	hist.observe(d.Seconds())
}

// ObserveRefresh 记录一次上下文刷新。
func (c *Collector) ObserveRefresh(forced bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshes[forced]++
}

// Attach 订阅上下文刷新事件。
func (c *Collector) Attach(bus *events.Bus) events.Subscription {
	return events.Subscribe(bus, func(ev events.ContextRefreshed) error {
		c.ObserveRefresh(ev.Forced)
		return nil
	})
}

// Totals 是用于调试面板的汇总值。
type Totals struct {
	PluginFailures   uint64 `json:"plugin_failures"`
	BreakerOpens     uint64 `json:"breaker_opens"`
	ActionsOK        uint64 `json:"actions_ok"`
	ActionsFailed    uint64 `json:"actions_failed"`
	ContextRefreshes uint64 `json:"context_refreshes"`
}

// Totals 返回各类指标的合计。
func (c *Collector) Totals() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	var t Totals
	for _, v := range c.failures {
		t.PluginFailures += v
	}
	for _, v := range c.opens {
		t.BreakerOpens += v
	}
	for k, v := range c.actions {
		if k.outcome == "success" {
			t.ActionsOK += v
		} else {
			t.ActionsFailed += v
		}
	}
	for _, v := range c.refreshes {
		t.ContextRefreshes += v
	}
	return t
}

func newHistogram() *histogram {
	buckets := []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}
	return &histogram{buckets: buckets, counts: make([]uint64, len(buckets))}
}

// observe 累积计数；超过最后一个桶的值只计入 +Inf（即 count）。
func (h *histogram) observe(value float64) {
	h.count++
	h.sum += value
	for idx, bound := range h.buckets {
		if value <= bound {
			for i := idx; i < len(h.counts); i++ {
				h.counts[i]++
			}
			return
		}
	}
}

// Render 以 Prometheus 文本格式输出全部指标。
func (c *Collector) Render() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	b.Grow(1024)

	b.WriteString("# HELP radial_plugin_failures_total Plugin operations that returned an error or panicked.\n")
	b.WriteString("# TYPE radial_plugin_failures_total counter\n")
	fkeys := make([]failureKey, 0, len(c.failures))
	for k := range c.failures {
		fkeys = append(fkeys, k)
	}
	sort.Slice(fkeys, func(i, j int) bool {
		if fkeys[i].plugin == fkeys[j].plugin {
			return fkeys[i].operation < fkeys[j].operation
		}
		return fkeys[i].plugin < fkeys[j].plugin
	})
	for _, k := range fkeys {
		fmt.Fprintf(&b, "radial_plugin_failures_total{plugin=\"%s\",operation=\"%s\"} %d\n", escape(k.plugin), escape(k.operation), c.failures[k])
	}

	b.WriteString("# HELP radial_breaker_opens_total Circuit breakers opened per plugin.\n")
	b.WriteString("# TYPE radial_breaker_opens_total counter\n")
	for _, id := range sortedKeys(c.opens) {
		fmt.Fprintf(&b, "radial_breaker_opens_total{plugin=\"%s\"} %d\n", escape(id), c.opens[id])
	}

	b.WriteString("# HELP radial_actions_total Actions executed by outcome.\n")
	b.WriteString("# TYPE radial_actions_total counter\n")
	akeys := make([]actionKey, 0, len(c.actions))
	for k := range c.actions {
		akeys = append(akeys, k)
	}
	sort.Slice(akeys, func(i, j int) bool {
		if akeys[i].action == akeys[j].action {
			return akeys[i].outcome < akeys[j].outcome
		}
		return akeys[i].action < akeys[j].action
	})
	for _, k := range akeys {
		fmt.Fprintf(&b, "radial_actions_total{action=\"%s\",outcome=\"%s\"} %d\n", escape(k.action), k.outcome, c.actions[k])
	}

	b.WriteString("# HELP radial_action_duration_seconds Action pipeline duration in seconds.\n")
	b.WriteString("# TYPE radial_action_duration_seconds histogram\n")
	for _, id := range sortedKeys(c.latency) {
		h := c.latency[id]
		for idx, bound := range h.buckets {
			fmt.Fprintf(&b, "radial_action_duration_seconds_bucket{action=\"%s\",le=\"%s\"} %d\n", escape(id), formatFloat(bound), h.counts[idx])
		}
		fmt.Fprintf(&b, "radial_action_duration_seconds_bucket{action=\"%s\",le=\"+Inf\"} %d\n", escape(id), h.count)
		fmt.Fprintf(&b, "radial_action_duration_seconds_sum{action=\"%s\"} %s\n", escape(id), formatFloat(h.sum))
		fmt.Fprintf(&b, "radial_action_duration_seconds_count{action=\"%s\"} %d\n", escape(id), h.count)
	}

	b.WriteString("# HELP radial_context_refreshes_total Context snapshots published.\n")
	b.WriteString("# TYPE radial_context_refreshes_total counter\n")
	for _, forced := range []bool{false, true} {
		if v, ok := c.refreshes[forced]; ok {
			fmt.Fprintf(&b, "radial_context_refreshes_total{forced=\"%t\"} %d\n", forced, v)
		}
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func escape(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	return strings.ReplaceAll(value, "\n", "")
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
