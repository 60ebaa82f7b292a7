package plugin

import "fmt"

// ResultKind is the severity attached to an action outcome.
type ResultKind string

const (
	ResultInfo    ResultKind = "info"
	ResultSuccess ResultKind = "success"
	ResultWarning ResultKind = "warning"
	ResultError   ResultKind = "error"
)

// ActionResult is the structured outcome of an action invocation.
type ActionResult struct {
	Success bool
	Message string
	Kind    ResultKind
	Err     error
	Payload any
}

// Success builds a successful result.
func Success(message string) ActionResult {
	return ActionResult{Success: true, Message: message, Kind: ResultSuccess}
}

// Failure builds an error result carrying the underlying cause.
func Failure(message string, err error) ActionResult {
	return ActionResult{Success: false, Message: message, Kind: ResultError, Err: err}
}

// Failuref builds an error result with a formatted message.
func Failuref(format string, args ...any) ActionResult {
	return Failure(fmt.Sprintf(format, args...), nil)
}

// Info builds a successful, informational result.
func Info(message string) ActionResult {
	return ActionResult{Success: true, Message: message, Kind: ResultInfo}
}

// Warning builds a successful result that should be surfaced as a warning.
func Warning(message string) ActionResult {
	return ActionResult{Success: true, Message: message, Kind: ResultWarning}
}

// WithPayload returns a copy of r carrying payload.
func (r ActionResult) WithPayload(payload any) ActionResult {
	r.Payload = payload
	return r
}
