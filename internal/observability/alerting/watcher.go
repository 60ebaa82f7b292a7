package alerting

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	xerrors "RadialCore/internal/errors"
	"RadialCore/internal/events"
	"RadialCore/pkg/logger"
)

// Watcher 订阅 PluginDisabled 事件并转换为 CIRCUIT_OPEN 告警，
// 也接收宿主主动上报的插件错误。
type Watcher struct {
	dispatcher Dispatcher
	bus        *events.Bus
	sub        events.Subscription
	timeout    time.Duration
	log        *slog.Logger
	now        func() time.Time
}

// Watch 创建并订阅告警观察者。
func Watch(bus *events.Bus, dispatcher Dispatcher, log *slog.Logger) *Watcher {
	if log == nil {
		log = logger.Component("Alerting")
	}
	w := &Watcher{dispatcher: dispatcher, bus: bus, timeout: 5 * time.Second, log: log, now: time.Now}
	w.sub = events.Subscribe(bus, w.onPluginDisabled)
	return w
}

// Report 按错误码决定是否告警。返回 false 表示该错误码无需告警。
func (w *Watcher) Report(ctx context.Context, pluginID string, err error) (bool, error) {
	if !xerrors.ShouldAlert(err) {
		return false, nil
	}
	event := Event{
		Code:       xerrors.CodeOf(err),
		Message:    err.Error(),
		Severity:   xerrors.SeverityOf(err),
		PluginID:   pluginID,
		OccurredAt: w.now(),
	}
	if e, ok := xerrors.From(err); ok {
		event.Metadata = e.Metadata()
		if n, convErr := strconv.Atoi(event.Metadata["failures"]); convErr == nil {
			event.Failures = n
		}
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	if err := w.dispatcher.Notify(ctx, event); err != nil {
		w.log.Error("发送插件告警失败", slog.String(logger.KeyPluginID, pluginID), logger.Err(err))
		return true, err
	}
	return true, nil
}

func (w *Watcher) onPluginDisabled(ev events.PluginDisabled) error {
	err := xerrors.New(xerrors.CodeCircuitOpen, "插件已被断路器禁用: "+ev.Reason,
		xerrors.WithMetadata("failures", strconv.Itoa(ev.FailureCount)))
	_, notifyErr := w.Report(context.Background(), ev.PluginID, err)
	return notifyErr
}

// Stop 取消订阅。
func (w *Watcher) Stop() {
	w.bus.Unsubscribe(w.sub)
}
