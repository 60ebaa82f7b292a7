package logger

import "log/slog"

// Structured keys shared by every host component.
const (
	KeySource   = "source"
	KeyPluginID = "plugin_id"
	KeyPhase    = "phase"
	KeyError    = "error"
)

// Component returns a logger tagged with the emitting component.
func Component(source string) *slog.Logger {
	return L().With(slog.String(KeySource, source))
}

// ForPlugin tags base with a plugin id. A nil base uses the global logger.
func ForPlugin(base *slog.Logger, pluginID string) *slog.Logger {
	if base == nil {
		base = L()
	}
	return base.With(slog.String(KeyPluginID, pluginID))
}

// Phase tags base with a lifecycle or pipeline phase.
func Phase(base *slog.Logger, phase string) *slog.Logger {
	if base == nil {
		base = L()
	}
	return base.With(slog.String(KeyPhase, phase))
}

// Err formats err as a structured attribute.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// Discard returns a logger that drops every record. Useful in tests.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
