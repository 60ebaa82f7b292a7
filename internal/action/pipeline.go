// Package action 实现四阶段的动作执行管线：Precheck、Confirm、Execute、Post。
//
// 每次调用相互独立，可以并发执行；管线内的任何故障都会被转换为失败结果返回，
// 不会向调用方抛出。
package action

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	xerrors "RadialCore/internal/errors"
	"RadialCore/internal/events"
	"RadialCore/pkg/logger"
	"RadialCore/pkg/plugin"
)

// 管线阶段名称。
const (
	PhasePrecheck = "Precheck"
	PhaseConfirm  = "Confirm"
	PhaseExecute  = "Execute"
	PhasePost     = "Post"
)

// HandlerSource 按枚举顺序返回动作处理器。
type HandlerSource interface {
	ActionHandlers() []plugin.ActionHandler
}

// Confirmer 决定动作是否继续执行。返回 false 表示用户取消。
type Confirmer interface {
	Confirm(ctx context.Context, actionID string, mc *plugin.MenuContext) (bool, error)
}

// ConfirmFunc 将函数适配为 Confirmer。
type ConfirmFunc func(ctx context.Context, actionID string, mc *plugin.MenuContext) (bool, error)

// Confirm 实现 Confirmer。
func (f ConfirmFunc) Confirm(ctx context.Context, actionID string, mc *plugin.MenuContext) (bool, error) {
	return f(ctx, actionID, mc)
}

// AlwaysConfirm 是默认的确认策略。
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, string, *plugin.MenuContext) (bool, error) {
	return true, nil
})

// Notifier 接收需要展示给用户的结果消息。
type Notifier interface {
	Notify(message string, kind plugin.ResultKind)
}

// Recorder 接收动作执行统计。
type Recorder interface {
	ObserveAction(actionID string, success bool, d time.Duration)
}

// Pipeline 执行动作。
type Pipeline struct {
	handlers  HandlerSource
	bus       *events.Bus
	notifier  Notifier
	confirmer Confirmer
	recorder  Recorder
	tracer    trace.Tracer
	log       *slog.Logger
	now       func() time.Time
}

// Option 定义管线的可选配置。
type Option func(*Pipeline)

// WithBus 指定事件总线。
func WithBus(b *events.Bus) Option { return func(p *Pipeline) { p.bus = b } }

// WithNotifier 指定通知输出。
func WithNotifier(n Notifier) Option { return func(p *Pipeline) { p.notifier = n } }

// WithConfirmer 覆盖确认策略。
func WithConfirmer(c Confirmer) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.confirmer = c
		}
	}
}

// WithRecorder 注册统计接收方。
func WithRecorder(r Recorder) Option { return func(p *Pipeline) { p.recorder = r } }

// WithTracer 覆盖默认 tracer。
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithLogger 指定日志记录器。
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithClock 注入时钟。
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New 创建管线。
func New(handlers HandlerSource, opts ...Option) *Pipeline {
	p := &Pipeline{
		handlers:  handlers,
		confirmer: AlwaysConfirm,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.log == nil {
		p.log = logger.Component("ActionPipeline")
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer("RadialCore/internal/action")
	}
	return p
}

// ExecuteAsync 在独立 goroutine 中执行动作，结果通过容量为 1 的通道返回。
func (p *Pipeline) ExecuteAsync(ctx context.Context, actionID string, mc *plugin.MenuContext) <-chan plugin.ActionResult {
	out := make(chan plugin.ActionResult, 1)
	go func() {
		defer close(out)
		out <- p.Execute(ctx, actionID, mc)
	}()
	return out
}

// Execute 同步执行四个阶段并返回结果。
func (p *Pipeline) Execute(ctx context.Context, actionID string, mc *plugin.MenuContext) (result plugin.ActionResult) {
	if strings.TrimSpace(actionID) == "" {
		return plugin.Failure("Action ID cannot be empty",
			xerrors.New(xerrors.CodeInvalidArgument, "action id cannot be empty"))
	}
	if ctx == nil {
		ctx = context.Background()
	}
	invocation := uuid.NewString()
	log := p.log.With(slog.String("action_id", actionID), slog.String("invocation_id", invocation))
	ctx, span := p.tracer.Start(ctx, "action.execute", trace.WithAttributes(
		attribute.String("action.id", actionID),
		attribute.String("action.invocation_id", invocation),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := xerrors.FromPanic(r)
			log.Error("动作管线异常", logger.Err(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "pipeline error")
			result = plugin.Failure(fmt.Sprintf("Pipeline error: %v", r), err)
		}
	}()

	handler, ok := p.precheck(ctx, actionID, log)
	if !ok {
		span.SetStatus(codes.Error, "no handler")
		return plugin.Failure("No handler found for action: "+actionID,
			xerrors.New(xerrors.CodeNotFound, "no handler for "+actionID))
	}
	span.SetAttributes(attribute.String("action.handler", safeHandlerID(handler)))

	confirmed, err := p.confirm(ctx, actionID, mc)
	if err != nil {
		logger.Phase(log, PhaseConfirm).Warn("确认阶段失败，按取消处理", logger.Err(err))
		span.RecordError(err)
	}
	if !confirmed || err != nil {
		logger.Phase(log, PhaseConfirm).Info("动作已取消")
		return plugin.Info("Action cancelled")
	}

	start := p.now()
	result = p.execute(ctx, actionID, mc, log)
	elapsed := p.now().Sub(start)
	if !result.Success {
		span.SetStatus(codes.Error, result.Message)
	}
	p.post(ctx, invocation, actionID, result, elapsed, log)
	return result
}

func (p *Pipeline) precheck(ctx context.Context, actionID string, log *slog.Logger) (plugin.ActionHandler, bool) {
	_, span := p.tracer.Start(ctx, "action.precheck")
	defer span.End()
	h := p.resolve(actionID, log)
	if h == nil {
		logger.Phase(log, PhasePrecheck).Warn("没有处理器认领该动作")
		return nil, false
	}
	return h, true
}

func (p *Pipeline) confirm(ctx context.Context, actionID string, mc *plugin.MenuContext) (bool, error) {
	ctx, span := p.tracer.Start(ctx, "action.confirm")
	defer span.End()
	var ok bool
	err := xerrors.Protect(func() error {
		var inner error
		ok, inner = p.confirmer.Confirm(ctx, actionID, mc)
		return inner
	})
	span.SetAttributes(attribute.Bool("action.confirmed", ok && err == nil))
	return ok, err
}

// execute 按首个匹配规则重新解析处理器并执行。
func (p *Pipeline) execute(ctx context.Context, actionID string, mc *plugin.MenuContext, log *slog.Logger) plugin.ActionResult {
	ctx, span := p.tracer.Start(ctx, "action.handle")
	defer span.End()

	h := p.resolve(actionID, log)
	if h == nil {
		return plugin.Failure("No handler found for action: "+actionID,
			xerrors.New(xerrors.CodeNotFound, "handler disappeared before execution"))
	}
	var result plugin.ActionResult
	err := xerrors.Protect(func() error {
		var inner error
		result, inner = h.Execute(ctx, actionID, mc)
		return inner
	})
	if err != nil {
		logger.Phase(log, PhaseExecute).Error("动作执行失败", logger.Err(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "execute failed")
		return plugin.Failure("Execution failed: "+err.Error(), err)
	}
	if result.Kind == "" {
		if result.Success {
			result.Kind = plugin.ResultSuccess
		} else {
			result.Kind = plugin.ResultError
		}
	}
	return result
}

// post 记录指标、发布事件并转发消息。三步互相独立，任何故障都只记录日志，不改变执行结果。
func (p *Pipeline) post(ctx context.Context, invocation, actionID string, result plugin.ActionResult, elapsed time.Duration, log *slog.Logger) {
	_, span := p.tracer.Start(ctx, "action.post")
	defer span.End()

	step := func(name string, fn func()) {
		if err := xerrors.Protect(func() error { fn(); return nil }); err != nil {
			logger.Phase(log, PhasePost).Error("后处理失败", slog.String("step", name), logger.Err(err))
			span.RecordError(err)
		}
	}
	if p.recorder != nil {
		step("record", func() { p.recorder.ObserveAction(actionID, result.Success, elapsed) })
	}
	if p.bus != nil {
		step("publish", func() {
			p.bus.Publish(events.ActionExecuted{
				InvocationID: invocation,
				ActionID:     actionID,
				Success:      result.Success,
				Message:      result.Message,
				Kind:         string(result.Kind),
				At:           p.now(),
				Duration:     elapsed,
			})
		})
	}
	if p.notifier != nil && result.Message != "" {
		step("notify", func() { p.notifier.Notify(result.Message, result.Kind) })
	}
}

// resolve 返回第一个认领 actionID 的处理器。认领判断失败的处理器被跳过。
func (p *Pipeline) resolve(actionID string, log *slog.Logger) plugin.ActionHandler {
	if p.handlers == nil {
		return nil
	}
	for _, h := range p.handlers.ActionHandlers() {
		var claims bool
		if err := xerrors.Protect(func() error { claims = h.CanHandle(actionID); return nil }); err != nil {
			logger.Phase(log, PhasePrecheck).Warn("处理器认领判断失败", slog.String("handler", safeHandlerID(h)), logger.Err(err))
			continue
		}
		if claims {
			return h
		}
	}
	return nil
}

func safeHandlerID(h plugin.ActionHandler) (id string) {
	defer func() {
		if recover() != nil {
			id = "unknown"
		}
	}()
	return h.HandlerID()
}
