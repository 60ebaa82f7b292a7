// Package eventsink 将事件总线上的事件转发给外部观察者（Redis 列表、RabbitMQ 队列等）。
//
// 转发在独立的 goroutine 中进行，外部系统的失败只会被记录，不会影响事件发布方。
package eventsink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"RadialCore/internal/events"
)

// Envelope 是写入外部系统的事件封装。
type Envelope struct {
	ID      string          `json:"id"`
	Topic   string          `json:"topic"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope 序列化事件并分配新的 ID。
func NewEnvelope(ev events.Event, at time.Time) (Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("序列化事件 %s 失败: %w", ev.Topic(), err)
	}
	return Envelope{ID: uuid.NewString(), Topic: ev.Topic(), At: at, Payload: payload}, nil
}

// Sink 负责把事件投递到外部系统。
type Sink interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}
