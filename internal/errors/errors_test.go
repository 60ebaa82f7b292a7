package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUsesDefaultMessage(t *testing.T) {
	err := New(CodeCircuitOpen, "")
	assert.Equal(t, "[CIRCUIT_OPEN] circuit breaker open", err.Error())

	wrapped := Wrap(CodeStorageFailure, stdErrors.New("disk full"), "append record")
	assert.Equal(t, "[STORAGE_FAILURE] append record: disk full", wrapped.Error())
}

func TestCodeOfWalksTheChain(t *testing.T) {
	inner := New(CodeConflict, "plugin X already loaded")
	outer := fmt.Errorf("load: %w", inner)

	assert.Equal(t, CodeConflict, CodeOf(outer))
	assert.True(t, stdErrors.Is(outer, New(CodeConflict, "")))
	assert.False(t, stdErrors.Is(outer, New(CodeNotFound, "")))
	assert.Equal(t, CodeUnknown, CodeOf(stdErrors.New("plain")))
}

func TestSeverityAndAlertFollowTheCode(t *testing.T) {
	cases := []struct {
		err      error
		severity Severity
		alert    bool
	}{
		{nil, SeverityInfo, false},
		{New(CodeInvalidArgument, "blank id"), SeverityInfo, false},
		{New(CodeConflict, ""), SeverityWarning, false},
		{New(CodeCapabilityDenied, ""), SeverityWarning, true},
		{fmt.Errorf("tick: %w", New(CodeCircuitOpen, "")), SeverityCritical, true},
		{stdErrors.New("plain"), SeverityCritical, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.severity, SeverityOf(tc.err), "%v", tc.err)
		assert.Equal(t, tc.alert, ShouldAlert(tc.err), "%v", tc.err)
	}
}

func TestMetadataIsCopied(t *testing.T) {
	err := New(CodePluginFault, "", WithMetadata("plugin_id", "greeter"))
	md := err.Metadata()
	md["plugin_id"] = "changed"
	assert.Equal(t, "greeter", err.Metadata()["plugin_id"])
	assert.Nil(t, New(CodeUnknown, "").Metadata())
}

func TestProtectConvertsPanics(t *testing.T) {
	err := Protect(func() error { panic("boom") })
	require.Error(t, err)
	assert.Equal(t, CodePluginFault, CodeOf(err))
	e, ok := From(err)
	require.True(t, ok)
	assert.Contains(t, e.Metadata(), "stack")

	cause := stdErrors.New("nil map")
	err = Protect(func() error { panic(cause) })
	assert.ErrorIs(t, err, cause)

	assert.NoError(t, Protect(func() error { return nil }))
}
