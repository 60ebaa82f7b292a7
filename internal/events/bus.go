// Package events 提供宿主内部的发布/订阅总线。
//
// 总线由顶层管理器显式创建并传递给各组件，不存在全局单例。
// 事件以 Topic 区分；同一 Topic 内按订阅顺序投递，不同 Topic 之间不保证顺序。
package events

import (
	"log/slog"
	"sync"
	"sync/atomic"

	xerrors "RadialCore/internal/errors"
	"RadialCore/pkg/logger"
)

// Event 是所有可发布事件需要实现的接口。
// 事件应为值类型，其零值的 Topic 必须与非零值一致。
type Event interface {
	Topic() string
}

// Handler 处理一个事件。返回的错误仅被记录，不影响其他订阅者。
type Handler func(Event) error

// Subscription 是订阅句柄，用于取消订阅。
type Subscription struct {
	id    uint64
	topic string
}

// Topic 返回订阅的主题。
func (s Subscription) Topic() string { return s.topic }

// Valid 判断句柄是否来自一次成功的订阅。
func (s Subscription) Valid() bool { return s.id != 0 }

// AllTopics 订阅所有主题。
const AllTopics = "*"

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus 是线程安全的事件总线。
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]subscriber
	nextID atomic.Uint64
	log    *slog.Logger
}

// NewBus 创建事件总线。
func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = logger.Component("EventBus")
	}
	return &Bus{subs: make(map[string][]subscriber), log: log}
}

// Subscribe 订阅指定主题。topic 为 AllTopics 时接收全部事件。
func (b *Bus) Subscribe(topic string, h Handler) Subscription {
	if topic == "" || h == nil {
		return Subscription{}
	}
	id := b.nextID.Add(1)
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], subscriber{id: id, handler: h})
	b.mu.Unlock()
	return Subscription{id: id, topic: topic}
}

// Subscribe 以类型安全的方式订阅事件 E。
func Subscribe[E Event](b *Bus, h func(E) error) Subscription {
	if h == nil {
		return Subscription{}
	}
	var zero E
	return b.Subscribe(zero.Topic(), func(ev Event) error {
		typed, ok := ev.(E)
		if !ok {
			return nil
		}
		return h(typed)
	})
}

// Unsubscribe 按句柄取消订阅，返回是否确实移除。
func (b *Bus) Unsubscribe(sub Subscription) bool {
	if !sub.Valid() {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[sub.topic]
	for i, s := range list {
		if s.id != sub.id {
			continue
		}
		next := make([]subscriber, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(b.subs, sub.topic)
		} else {
			b.subs[sub.topic] = next
		}
		return true
	}
	return false
}

// Publish 将事件同步投递给当前订阅者。
// 投递前复制订阅列表，处理函数内可以安全地订阅或取消订阅；
// 单个处理函数的错误或 panic 只会被记录，不会阻止其余订阅者。
func (b *Bus) Publish(ev Event) {
	if ev == nil {
		return
	}
	topic := ev.Topic()
	b.mu.RLock()
	targets := make([]subscriber, 0, len(b.subs[topic])+len(b.subs[AllTopics]))
	targets = append(targets, b.subs[topic]...)
	targets = append(targets, b.subs[AllTopics]...)
	b.mu.RUnlock()

	for _, s := range targets {
		if err := xerrors.Protect(func() error { return s.handler(ev) }); err != nil {
			b.log.Error("事件处理失败",
				slog.String("topic", topic),
				slog.Uint64("subscription", s.id),
				logger.Err(err))
		}
	}
}

// SubscriberCount 返回指定主题的订阅数。
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Clear 移除全部订阅，宿主关闭时调用。
func (b *Bus) Clear() {
	b.mu.Lock()
	b.subs = make(map[string][]subscriber)
	b.mu.Unlock()
}
