// Package breaker 实现按插件隔离故障的熔断器。
//
// 熔断器只有 Closed 与 Open 两种状态：连续失败达到阈值后打开，此后所有操作
// 直接拒绝，不会自动恢复，只有显式 Reset 才能重新闭合。
package breaker

import (
	"log/slog"
	"sync"

	xerrors "RadialCore/internal/errors"
	"RadialCore/pkg/logger"
)

// MaxFailures 是打开熔断器所需的连续失败次数。
const MaxFailures = 5

// Breaker 是单个插件的熔断器。
type Breaker struct {
	mu        sync.Mutex
	id        string
	threshold int
	failures  int
	open      bool

	log       *slog.Logger
	onOpen    func(id string, failures int, last error)
	onFailure func(id, operation string, failures int, err error)
}

// Option 定义熔断器的可选配置。
type Option func(*Breaker)

// WithLogger 指定日志记录器。
func WithLogger(l *slog.Logger) Option {
	return func(b *Breaker) {
		if l != nil {
			b.log = l
		}
	}
}

// WithThreshold 覆盖默认阈值，仅用于测试或特殊插件。
func WithThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.threshold = n
		}
	}
}

// WithOnOpen 注册熔断器由 Closed 转为 Open 时的回调，每次打开只触发一次。
func WithOnOpen(fn func(id string, failures int, last error)) Option {
	return func(b *Breaker) { b.onOpen = fn }
}

// WithOnFailure 注册每次失败的回调。
func WithOnFailure(fn func(id, operation string, failures int, err error)) Option {
	return func(b *Breaker) { b.onFailure = fn }
}

// New 为指定插件创建熔断器。
func New(id string, opts ...Option) *Breaker {
	b := &Breaker{id: id, threshold: MaxFailures}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	if b.log == nil {
		b.log = logger.ForPlugin(logger.Component("CircuitBreaker"), id)
	}
	return b
}

// ID 返回熔断器所属插件 ID。
func (b *Breaker) ID() string { return b.id }

// Execute 在熔断器保护下执行 fn。
// 熔断器打开时直接返回 false 且不调用 fn；fn 返回错误或发生 panic 时计一次失败并返回 false；
// 否则返回 fn 给出的结果，并在成功时清零失败计数。
func (b *Breaker) Execute(operation string, fn func() (bool, error)) bool {
	if b.IsOpen() {
		return false
	}

	var ok bool
	err := xerrors.Protect(func() error {
		var inner error
		ok, inner = fn()
		return inner
	})
	if err != nil {
		b.recordFailure(operation, err)
		return false
	}
	if ok {
		b.mu.Lock()
		b.failures = 0
		b.mu.Unlock()
	}
	return ok
}

// Run 是 Execute 的便捷形式，fn 无错误即视为成功。
func (b *Breaker) Run(operation string, fn func() error) bool {
	return b.Execute(operation, func() (bool, error) {
		if err := fn(); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (b *Breaker) recordFailure(operation string, err error) {
	b.mu.Lock()
	if b.open {
		b.mu.Unlock()
		return
	}
	b.failures++
	failures := b.failures
	opened := failures >= b.threshold
	if opened {
		b.open = true
	}
	onFailure, onOpen := b.onFailure, b.onOpen
	b.mu.Unlock()

	logger.Phase(b.log, operation).Error("插件操作失败",
		slog.Int("failures", failures),
		slog.Int("threshold", b.threshold),
		logger.Err(err))
	if onFailure != nil {
		onFailure(b.id, operation, failures, err)
	}
	if opened {
		b.log.Error("熔断器已打开，插件被禁用", slog.Int("failures", failures))
		if onOpen != nil {
			onOpen(b.id, failures, err)
		}
	}
}

// IsOpen 判断熔断器是否处于打开状态。
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// Failures 返回当前连续失败次数。
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset 手动闭合熔断器并清零计数。
func (b *Breaker) Reset() {
	b.mu.Lock()
	wasOpen := b.open
	b.open = false
	b.failures = 0
	b.mu.Unlock()
	if wasOpen {
		b.log.Info("熔断器已手动重置")
	}
}

// Snapshot 描述熔断器的只读状态。
type Snapshot struct {
	PluginID string `json:"plugin_id"`
	Failures int    `json:"failures"`
	Open     bool   `json:"open"`
}

// Snapshot 返回当前状态。
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{PluginID: b.id, Failures: b.failures, Open: b.open}
}
