package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"RadialCore/internal/core"
	xerrors "RadialCore/internal/errors"
	"RadialCore/internal/journal"
	"RadialCore/pkg/plugin"
)

// defaultLimit 是动作记录查询的默认条数。
const defaultLimit = 20

// Host 是控制接口依赖的宿主能力，由 core.Manager 实现。
type Host interface {
	DumpState(ctx context.Context) core.State
	OpenMenu() bool
	CloseMenu()
	ExecuteAction(ctx context.Context, actionID string) plugin.ActionResult
	ResetBreaker(pluginID string) bool
	RecentActions(ctx context.Context, limit int) ([]journal.Record, error)
}

// Server 负责暴露 REST 接口。
type Server struct {
	addr    string
	host    Host
	token   string
	timeout time.Duration
}

// Option 配置 Server。
type Option func(*Server)

// WithToken 要求请求携带 Bearer 令牌。
func WithToken(token string) Option { return func(s *Server) { s.token = token } }

// WithActionTimeout 设置单次动作执行的超时时间。
func WithActionTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, host Host, opts ...Option) *Server {
	s := &Server{addr: addr, host: host, timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler 返回带认证与审计的路由。
func (s *Server) Handler() http.Handler {
	return Middleware(MiddlewareConfig{Token: s.token})(s.routes())
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/state", s.handleState)
	mux.HandleFunc("GET /api/v1/plugins", s.handlePlugins)
	mux.HandleFunc("POST /api/v1/breakers/{id}/reset", s.handleResetBreaker)
	mux.HandleFunc("GET /api/v1/menu", s.handleMenu)
	mux.HandleFunc("POST /api/v1/menu/open", s.handleOpenMenu)
	mux.HandleFunc("POST /api/v1/menu/close", s.handleCloseMenu)
	mux.HandleFunc("POST /api/v1/actions/{id}", s.handleExecute)
	mux.HandleFunc("GET /api/v1/actions", s.handleRecentActions)
	return mux
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.host.DumpState(r.Context()))
}

func (s *Server) handlePlugins(w http.ResponseWriter, r *http.Request) {
	st := s.host.DumpState(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"core_version": st.CoreVersion,
		"plugins":      st.Plugins,
		"breakers":     st.Breakers,
	})
}

func (s *Server) handleResetBreaker(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.host.ResetBreaker(id) {
		http.Error(w, "插件不存在: "+id, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.host.DumpState(r.Context()).Menu)
}

func (s *Server) handleOpenMenu(w http.ResponseWriter, r *http.Request) {
	if !s.host.OpenMenu() {
		http.Error(w, "没有可用的菜单条目", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, s.host.DumpState(r.Context()).Menu)
}

func (s *Server) handleCloseMenu(w http.ResponseWriter, _ *http.Request) {
	s.host.CloseMenu()
	w.WriteHeader(http.StatusNoContent)
}

// handleExecute 执行动作。动作失败仍返回 200，结果体中 success 为 false。
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	result := s.host.ExecuteAction(ctx, r.PathValue("id"))
	resp := actionResponse{
		Success: result.Success,
		Message: result.Message,
		Kind:    result.Kind,
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
		resp.Code = xerrors.CodeOf(result.Err)
		resp.Severity = xerrors.SeverityOf(result.Err)
	}
	writeJSON(w, http.StatusOK, resp)
}

type actionResponse struct {
	Success  bool              `json:"success"`
	Message  string            `json:"message"`
	Kind     plugin.ResultKind `json:"kind"`
	Error    string            `json:"error,omitempty"`
	Code     xerrors.Code      `json:"code,omitempty"`
	Severity xerrors.Severity  `json:"severity,omitempty"`
}

func (s *Server) handleRecentActions(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	records, err := s.host.RecentActions(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []journal.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
