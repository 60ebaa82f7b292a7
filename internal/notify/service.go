// Package notify 维护屏幕上的短时通知队列。
package notify

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"RadialCore/internal/events"
	"RadialCore/pkg/logger"
	"RadialCore/pkg/plugin"
)

// 默认参数。
const (
	DefaultMaxVisible = 5
	DefaultTTL        = 3 * time.Second
)

// Notification 是一条待显示的通知。
type Notification struct {
	Message   string            `json:"message"`
	Kind      plugin.ResultKind `json:"kind"`
	CreatedAt time.Time         `json:"created_at"`
	Remaining time.Duration     `json:"remaining"`
}

// Service 是有界、带过期时间的通知队列。超出容量时丢弃最旧的通知。
type Service struct {
	mu    sync.Mutex
	items []Notification

	max int
	ttl time.Duration
	bus *events.Bus
	log *slog.Logger
	now func() time.Time
}

// Option 定义通知服务的可选配置。
type Option func(*Service)

// WithMaxVisible 设置最大可见数量。
func WithMaxVisible(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.max = n
		}
	}
}

// WithTTL 设置通知存活时间。
func WithTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithBus 指定事件总线。
func WithBus(b *events.Bus) Option { return func(s *Service) { s.bus = b } }

// WithLogger 指定日志记录器。
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock 注入时钟。
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New 创建通知服务。
func New(opts ...Option) *Service {
	s := &Service{max: DefaultMaxVisible, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.log == nil {
		s.log = logger.Component("Notifications")
	}
	return s
}

// Show 加入一条通知。空消息被忽略。
func (s *Service) Show(message string, kind plugin.ResultKind) {
	message = strings.TrimSpace(message)
	if message == "" {
		return
	}
	if kind == "" {
		kind = plugin.ResultInfo
	}
	s.mu.Lock()
	s.items = append(s.items, Notification{Message: message, Kind: kind, CreatedAt: s.now(), Remaining: s.ttl})
	if overflow := len(s.items) - s.max; overflow > 0 {
		s.items = append([]Notification(nil), s.items[overflow:]...)
	}
	s.mu.Unlock()

	s.log.Debug("显示通知", slog.String("kind", string(kind)), slog.String("message", message))
	if s.bus != nil {
		s.bus.Publish(events.NotificationShown{Message: message, Kind: string(kind)})
	}
}

// Notify 实现 action.Notifier。
func (s *Service) Notify(message string, kind plugin.ResultKind) { s.Show(message, kind) }

// Error 显示错误通知，宿主用于插件加载失败。
func (s *Service) Error(message string) { s.Show(message, plugin.ResultError) }

// Warning 显示警告通知，宿主用于插件被熔断器禁用。
func (s *Service) Warning(message string) { s.Show(message, plugin.ResultWarning) }

// Info 显示提示通知。
func (s *Service) Info(message string) { s.Show(message, plugin.ResultInfo) }

// OnTick 推进通知的剩余时间并移除过期通知。
func (s *Service) OnTick(dt time.Duration) {
	if dt <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	for _, n := range s.items {
		n.Remaining -= dt
		if n.Remaining > 0 {
			kept = append(kept, n)
		}
	}
	clear(s.items[len(kept):])
	s.items = kept
}

// Active 返回当前可见的通知，按加入顺序排列。
func (s *Service) Active() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.items...)
}

// Clear 清空队列。
func (s *Service) Clear() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
}
