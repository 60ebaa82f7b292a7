package eventsink

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"RadialCore/internal/events"
	"RadialCore/pkg/logger"
)

// ErrClosed 表示转发目标已关闭。
var ErrClosed = errors.New("event sink closed")

// DefaultBuffer 是待转发事件缓冲区的默认长度。
const DefaultBuffer = 256

// DefaultTopics 是未指定主题时转发的事件。
var DefaultTopics = []string{
	events.TopicActionExecuted,
	events.TopicPluginLoaded,
	events.TopicPluginDisabled,
	events.TopicMenuOpened,
	events.TopicMenuClosed,
}

// Stats 汇总转发情况。
type Stats struct {
	Forwarded uint64 `json:"forwarded"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
}

// Forwarder 订阅总线主题，并在后台 goroutine 中写入 Sink。缓冲区满时丢弃新事件。
type Forwarder struct {
	sink    Sink
	bus     *events.Bus
	subs    []events.Subscription
	queue   chan Envelope
	timeout time.Duration
	log     *slog.Logger
	now     func() time.Time

	closeOnce sync.Once
	done      chan struct{}
	mu        sync.RWMutex
	closed    bool

	forwarded atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// Option 配置 Forwarder。
type Option func(*Forwarder)

// WithBuffer 设置缓冲区长度。
func WithBuffer(n int) Option {
	return func(f *Forwarder) {
		if n > 0 {
			f.queue = make(chan Envelope, n)
		}
	}
}

// WithTimeout 设置单次投递超时。
func WithTimeout(d time.Duration) Option {
	return func(f *Forwarder) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithLogger 设置日志记录器。
func WithLogger(l *slog.Logger) Option {
	return func(f *Forwarder) {
		if l != nil {
			f.log = l
		}
	}
}

// WithClock 设置时钟。
func WithClock(now func() time.Time) Option {
	return func(f *Forwarder) {
		if now != nil {
			f.now = now
		}
	}
}

// NewForwarder 订阅 topics 并启动后台投递。topics 为空时使用 DefaultTopics。
func NewForwarder(sink Sink, bus *events.Bus, topics []string, opts ...Option) *Forwarder {
	f := &Forwarder{
		sink:    sink,
		bus:     bus,
		queue:   make(chan Envelope, DefaultBuffer),
		timeout: 2 * time.Second,
		log:     logger.Component("EventSink"),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	if len(topics) == 0 {
		topics = DefaultTopics
	}
	for _, topic := range topics {
		f.subs = append(f.subs, bus.Subscribe(topic, f.enqueue))
	}
	go f.run()
	return f
}

func (f *Forwarder) enqueue(ev events.Event) error {
	env, err := NewEnvelope(ev, f.now())
	if err != nil {
		f.failed.Add(1)
		return err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil
	}
	select {
	case f.queue <- env:
	default:
		f.dropped.Add(1)
		f.log.Warn("事件转发缓冲区已满，丢弃事件", slog.String("topic", env.Topic))
	}
	return nil
}

func (f *Forwarder) run() {
	defer close(f.done)
	for env := range f.queue {
		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		err := f.sink.Publish(ctx, env)
		cancel()
		if err != nil {
			f.failed.Add(1)
			f.log.Error("转发事件失败", slog.String("topic", env.Topic), logger.Err(err))
			continue
		}
		f.forwarded.Add(1)
	}
}

// Stats 返回转发计数。
func (f *Forwarder) Stats() Stats {
	return Stats{Forwarded: f.forwarded.Load(), Failed: f.failed.Load(), Dropped: f.dropped.Load()}
}

// Close 取消订阅，投递完缓冲区中剩余的事件后关闭 Sink。
func (f *Forwarder) Close() error {
	var err error
	f.closeOnce.Do(func() {
		for _, sub := range f.subs {
			f.bus.Unsubscribe(sub)
		}
		f.mu.Lock()
		f.closed = true
		close(f.queue)
		f.mu.Unlock()
		<-f.done
		err = f.sink.Close()
	})
	return err
}
