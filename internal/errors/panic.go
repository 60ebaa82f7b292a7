package errors

import (
	"fmt"
	"runtime/debug"
)

// FromPanic 将 recover 得到的值转换为 PLUGIN_FAULT 错误，并附带调用栈。
func FromPanic(value any) *Error {
	if err, ok := value.(error); ok {
		return Wrap(CodePluginFault, err, "plugin panicked", WithMetadata("stack", string(debug.Stack())))
	}
	return New(CodePluginFault, fmt.Sprintf("plugin panicked: %v", value), WithMetadata("stack", string(debug.Stack())))
}

// Protect 执行 fn，并把其中的 panic 转换为错误返回。
// 插件提供的回调都应通过 Protect 调用，避免故障越过组件边界。
func Protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = FromPanic(r)
		}
	}()
	return fn()
}
