package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "RadialCore/internal/errors"
	"RadialCore/internal/events"
	"RadialCore/pkg/logger"
)

type recordingNotifier struct {
	channel Channel
	mu      sync.Mutex
	events  []Event
	err     error
}

func (n *recordingNotifier) Channel() Channel { return n.channel }

func (n *recordingNotifier) Notify(_ context.Context, e Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.err
}

func TestFanoutDeduplicatesChannelsAndJoinsErrors(t *testing.T) {
	first := &recordingNotifier{channel: ChannelLog}
	second := &recordingNotifier{channel: ChannelLog}
	hook := &recordingNotifier{channel: ChannelWebhook, err: errors.New("503")}
	d := NewFanout(first, nil, second, hook)

	assert.Equal(t, []Channel{ChannelLog, ChannelWebhook}, d.Channels())
	err := d.Notify(context.Background(), Event{Code: xerrors.CodeCircuitOpen})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook")
	assert.Empty(t, first.events)
	assert.Len(t, second.events, 1)
}

func TestWatcherTurnsPluginDisabledIntoAlert(t *testing.T) {
	bus := events.NewBus(logger.Discard())
	rec := &recordingNotifier{channel: ChannelLog}
	w := Watch(bus, NewFanout(rec), logger.Discard())

	bus.Publish(events.PluginDisabled{PluginID: "greeter", Reason: "OnTick", FailureCount: 5})
	w.Stop()
	bus.Publish(events.PluginDisabled{PluginID: "ignored"})

	require.Len(t, rec.events, 1)
	got := rec.events[0]
	assert.Equal(t, xerrors.CodeCircuitOpen, got.Code)
	assert.Equal(t, xerrors.SeverityCritical, got.Severity)
	assert.Equal(t, "greeter", got.PluginID)
	assert.Equal(t, 5, got.Failures)
	assert.Equal(t, "5", got.Metadata["failures"])
}

func TestWatcherReportOnlyAlertsOnAlertingCodes(t *testing.T) {
	bus := events.NewBus(logger.Discard())
	rec := &recordingNotifier{channel: ChannelLog}
	w := Watch(bus, NewFanout(rec), logger.Discard())
	defer w.Stop()

	sent, err := w.Report(context.Background(), "dup", xerrors.New(xerrors.CodeConflict, "already loaded"))
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, rec.events)

	denied := xerrors.New(xerrors.CodeCapabilityDenied, "", xerrors.WithMetadata("capability", "player_state"))
	sent, err = w.Report(context.Background(), "spy", denied)
	require.NoError(t, err)
	assert.True(t, sent)
	require.Len(t, rec.events, 1)
	got := rec.events[0]
	assert.Equal(t, xerrors.CodeCapabilityDenied, got.Code)
	assert.Equal(t, xerrors.SeverityWarning, got.Severity)
	assert.Equal(t, "spy", got.PluginID)
	assert.Equal(t, "player_state", got.Metadata["capability"])
}

func TestWebhookNotifierPostsJSON(t *testing.T) {
	var received Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := &WebhookNotifier{URL: srv.URL, Client: srv.Client()}
	require.NoError(t, n.Notify(context.Background(), Event{Code: xerrors.CodeCircuitOpen, PluginID: "greeter"}))
	assert.Equal(t, "greeter", received.PluginID)
}

func TestWebhookNotifierReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := &WebhookNotifier{URL: srv.URL}
	require.Error(t, n.Notify(context.Background(), Event{}))
	assert.NoError(t, (&WebhookNotifier{}).Notify(context.Background(), Event{}))
}

func TestLogNotifierNeverFails(t *testing.T) {
	n := &LogNotifier{Logger: logger.Discard()}
	assert.NoError(t, n.Notify(context.Background(), Event{Code: xerrors.CodeCircuitOpen}))
}
