package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RadialCore/internal/breaker"
	"RadialCore/internal/core"
	xerrors "RadialCore/internal/errors"
	"RadialCore/internal/journal"
	"RadialCore/internal/loader"
	"RadialCore/pkg/logger"
	"RadialCore/pkg/plugin"
)

type fakeHost struct {
	open     bool
	entries  []plugin.Entry
	executed []string
	records  []journal.Record
	err      error
	resets   map[string]bool
}

func (h *fakeHost) DumpState(context.Context) core.State {
	return core.State{
		CoreVersion: "1.0.0",
		Initialized: true,
		Plugins:     []loader.PluginInfo{{ID: "Radial.BasicActions", Version: "1.0.0", State: plugin.StateActive}},
		Breakers:    []breaker.Snapshot{{PluginID: "Radial.BasicActions"}},
		Menu:        core.MenuState{Open: h.open, Entries: h.entries},
	}
}

func (h *fakeHost) OpenMenu() bool {
	h.open = len(h.entries) > 0
	return h.open
}

func (h *fakeHost) CloseMenu() { h.open = false }

func (h *fakeHost) ExecuteAction(_ context.Context, id string) plugin.ActionResult {
	h.executed = append(h.executed, id)
	switch id {
	case "broken":
		return plugin.Failure("Action failed: broken", errors.New("boom"))
	case "tripped":
		return plugin.Failure("Action failed: tripped", xerrors.New(xerrors.CodeCircuitOpen, "handler disabled"))
	}
	return plugin.Success("done " + id)
}

func (h *fakeHost) ResetBreaker(id string) bool { return h.resets[id] }

func (h *fakeHost) RecentActions(_ context.Context, limit int) ([]journal.Record, error) {
	if h.err != nil {
		return nil, h.err
	}
	if limit < len(h.records) {
		return h.records[:limit], nil
	}
	return h.records, nil
}

func newTestServer(host Host, opts ...Option) http.Handler {
	s := NewServer(":0", host, opts...)
	return Middleware(MiddlewareConfig{Token: s.token, Audit: logger.Discard()})(s.routes())
}

func do(t *testing.T, h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMenuLifecycle(t *testing.T) {
	host := &fakeHost{entries: []plugin.Entry{plugin.NewActionEntry("basicactions.map", "Map")}}
	h := newTestServer(host)

	rec := do(t, h, http.MethodPost, "/api/v1/menu/open", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var menu core.MenuState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &menu))
	assert.True(t, menu.Open)
	require.Len(t, menu.Entries, 1)

	rec = do(t, h, http.MethodPost, "/api/v1/menu/close", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, host.open)

	host.entries = nil
	rec = do(t, h, http.MethodPost, "/api/v1/menu/open", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestExecuteAction(t *testing.T) {
	host := &fakeHost{}
	h := newTestServer(host)

	rec := do(t, h, http.MethodPost, "/api/v1/actions/basicactions.map", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ok actionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ok))
	assert.True(t, ok.Success)
	assert.Equal(t, "done basicactions.map", ok.Message)

	rec = do(t, h, http.MethodPost, "/api/v1/actions/broken", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var failed actionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failed))
	assert.False(t, failed.Success)
	assert.Equal(t, "boom", failed.Error)
	assert.Equal(t, xerrors.CodeUnknown, failed.Code)
	assert.Equal(t, xerrors.SeverityCritical, failed.Severity)
	assert.Empty(t, ok.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/actions/tripped", "")
	var tripped actionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tripped))
	assert.Equal(t, xerrors.CodeCircuitOpen, tripped.Code)
	assert.Equal(t, xerrors.SeverityCritical, tripped.Severity)
	assert.Equal(t, []string{"basicactions.map", "broken", "tripped"}, host.executed)

	rec = do(t, h, http.MethodGet, "/api/v1/actions/broken", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestResetBreaker(t *testing.T) {
	h := newTestServer(&fakeHost{resets: map[string]bool{"Radial.BasicActions": true}})
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodPost, "/api/v1/breakers/Radial.BasicActions/reset", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/v1/breakers/missing/reset", "").Code)
}

func TestRecentActions(t *testing.T) {
	host := &fakeHost{records: []journal.Record{{ActionID: "a"}, {ActionID: "b"}, {ActionID: "c"}}}
	h := newTestServer(host)

	rec := do(t, h, http.MethodGet, "/api/v1/actions?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var records []journal.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	assert.Len(t, records, 2)

	host.records = nil
	rec = do(t, h, http.MethodGet, "/api/v1/actions?limit=bad", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	host.err = errors.New("journal offline")
	assert.Equal(t, http.StatusInternalServerError, do(t, h, http.MethodGet, "/api/v1/actions", "").Code)
}

func TestPluginsAndState(t *testing.T) {
	h := newTestServer(&fakeHost{})

	rec := do(t, h, http.MethodGet, "/api/v1/plugins", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Radial.BasicActions")

	rec = do(t, h, http.MethodGet, "/api/v1/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st core.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "1.0.0", st.CoreVersion)
}

func TestTokenIsRequiredWhenConfigured(t *testing.T) {
	h := newTestServer(&fakeHost{}, WithToken("s3cret"))

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/v1/state", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/v1/state", "wrong").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/state", "s3cret").Code)
}
