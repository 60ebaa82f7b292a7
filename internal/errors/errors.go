// Package errors 定义宿主统一的错误码类型。插件故障、校验失败与核心初始化失败
// 都以 *Error 表示，告警与接口层通过错误码推导严重程度。
package errors

import (
	stdErrors "errors"
	"fmt"
	"maps"
)

// Code 表示系统内的统一错误码。
type Code string

const (
	CodeUnknown               Code = "UNKNOWN"
	CodeInvalidArgument       Code = "INVALID_ARGUMENT"
	CodeNotFound              Code = "NOT_FOUND"
	CodeConflict              Code = "CONFLICT"
	CodeIncompatibleVersion   Code = "INCOMPATIBLE_VERSION"
	CodeDependencyMissing     Code = "DEPENDENCY_MISSING"
	CodeCapabilityDenied      Code = "CAPABILITY_DENIED"
	CodePluginFault           Code = "PLUGIN_FAULT"
	CodeCircuitOpen           Code = "CIRCUIT_OPEN"
	CodeCancelled             Code = "CANCELLED"
	CodeInitializationFailure Code = "INITIALIZATION_FAILURE"
	CodeStorageFailure        Code = "STORAGE_FAILURE"
	CodeQueueFailure          Code = "QUEUE_FAILURE"
)

// Severity 描述错误的严重程度，用于告警和审计。
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Attributes 是错误码的默认描述。
type Attributes struct {
	Message  string
	Severity Severity
	// Alert 为 true 时该错误需要发送告警。
	Alert bool
}

var attributes = map[Code]Attributes{
	CodeUnknown:               {Message: "unknown error", Severity: SeverityCritical, Alert: true},
	CodeInvalidArgument:       {Message: "invalid argument", Severity: SeverityInfo},
	CodeNotFound:              {Message: "resource not found", Severity: SeverityInfo},
	CodeConflict:              {Message: "duplicate plugin id", Severity: SeverityWarning},
	CodeIncompatibleVersion:   {Message: "incompatible core version", Severity: SeverityWarning},
	CodeDependencyMissing:     {Message: "required mod missing", Severity: SeverityWarning},
	CodeCapabilityDenied:      {Message: "capability denied by isolation policy", Severity: SeverityWarning, Alert: true},
	CodePluginFault:           {Message: "plugin fault", Severity: SeverityWarning},
	CodeCircuitOpen:           {Message: "circuit breaker open", Severity: SeverityCritical, Alert: true},
	CodeCancelled:             {Message: "operation cancelled", Severity: SeverityInfo},
	CodeInitializationFailure: {Message: "core initialization failed", Severity: SeverityCritical, Alert: true},
	CodeStorageFailure:        {Message: "storage failure", Severity: SeverityCritical, Alert: true},
	CodeQueueFailure:          {Message: "queue failure", Severity: SeverityCritical, Alert: true},
}

// AttributesOf 返回错误码对应的属性。未知错误码返回 UNKNOWN 的属性。
func AttributesOf(code Code) Attributes {
	if attr, ok := attributes[code]; ok {
		return attr
	}
	return attributes[CodeUnknown]
}

// Error 是系统内统一的错误类型。
type Error struct {
	code     Code
	message  string
	cause    error
	metadata map[string]string
}

// Option 定义可选配置。
type Option func(*Error)

// WithMetadata 附加额外信息，例如 plugin_id。
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// New 创建一个新的错误实例。message 为空时使用错误码的默认描述。
func New(code Code, message string, opts ...Option) *Error {
	if message == "" {
		message = AttributesOf(code).Message
	}
	e := &Error{code: code, message: message}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Wrap 在已有错误外包裹统一错误类型。
func Wrap(code Code, cause error, message string, opts ...Option) *Error {
	e := New(code, message, opts...)
	e.cause = cause
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is 允许通过 errors.Is 按错误码比较。
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	t, ok := target.(*Error)
	return ok && e.code == t.code
}

// Code 返回错误码。
func (e *Error) Code() Code {
	if e == nil {
		return CodeUnknown
	}
	return e.code
}

// Metadata 返回附加信息的副本。
func (e *Error) Metadata() map[string]string {
	if e == nil || len(e.metadata) == 0 {
		return nil
	}
	return maps.Clone(e.metadata)
}

// From 尝试从 error 链中解析统一错误类型。
func From(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var target *Error
	if stdErrors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf 返回错误对应的错误码。
func CodeOf(err error) Code {
	if e, ok := From(err); ok {
		return e.Code()
	}
	return CodeUnknown
}

// SeverityOf 返回错误码的严重程度。nil 为 info，非统一错误按 UNKNOWN 处理。
func SeverityOf(err error) Severity {
	if err == nil {
		return SeverityInfo
	}
	return AttributesOf(CodeOf(err)).Severity
}

// ShouldAlert 判断错误是否需要触发告警。
func ShouldAlert(err error) bool {
	if err == nil {
		return false
	}
	return AttributesOf(CodeOf(err)).Alert
}
