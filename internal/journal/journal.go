// Package journal 持久化动作执行记录，供调试面板与运维排查使用。
package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"RadialCore/internal/events"
	"RadialCore/pkg/logger"
)

// Record 是一次动作执行的落库结构。
type Record struct {
	ID           string        `json:"id"`
	InvocationID string        `json:"invocation_id"`
	ActionID     string        `json:"action_id"`
	Success      bool          `json:"success"`
	Message      string        `json:"message"`
	Kind         string        `json:"kind"`
	Duration     time.Duration `json:"duration"`
	At           time.Time     `json:"at"`
}

// Store 抽象动作记录的持久化接口。
type Store interface {
	Append(ctx context.Context, record Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// writeTimeout 限制单条记录写入的耗时，避免拖慢动作管线的 Post 阶段。
const writeTimeout = 2 * time.Second

// Journal 订阅 ActionExecuted 事件并写入 Store。
type Journal struct {
	store Store
	bus   *events.Bus
	sub   events.Subscription
	log   *slog.Logger
}

// New 创建并订阅动作日志。
func New(store Store, bus *events.Bus, log *slog.Logger) *Journal {
	if log == nil {
		log = logger.Component("Journal")
	}
	j := &Journal{store: store, bus: bus, log: log}
	if bus != nil {
		j.sub = events.Subscribe(bus, j.onActionExecuted)
	}
	return j
}

// FromEvent 将事件转换为记录，并分配新的记录 ID。
func FromEvent(ev events.ActionExecuted) Record {
	return Record{
		ID:           uuid.NewString(),
		InvocationID: ev.InvocationID,
		ActionID:     ev.ActionID,
		Success:      ev.Success,
		Message:      ev.Message,
		Kind:         ev.Kind,
		Duration:     ev.Duration,
		At:           ev.At,
	}
}

func (j *Journal) onActionExecuted(ev events.ActionExecuted) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := j.store.Append(ctx, FromEvent(ev)); err != nil {
		j.log.Error("写入动作日志失败", slog.String("action", ev.ActionID), logger.Err(err))
		return err
	}
	return nil
}

// Recent 返回最近的记录，按时间倒序排列。
func (j *Journal) Recent(ctx context.Context, limit int) ([]Record, error) {
	return j.store.Recent(ctx, limit)
}

// Close 取消订阅并关闭存储。
func (j *Journal) Close() error {
	if j.bus != nil {
		j.bus.Unsubscribe(j.sub)
	}
	return j.store.Close()
}
