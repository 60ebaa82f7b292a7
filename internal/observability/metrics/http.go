package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// StateFunc 返回 /debug/state 输出的内容。
type StateFunc func() any

// Handler 以 Prometheus 文本格式暴露指标。
func Handler(c *Collector) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = fmt.Fprint(w, c.Render())
	})
}

// StateHandler 以 JSON 输出宿主状态。
func StateHandler(state StateFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(state()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

// NewMux 注册 /metrics 与 /debug/state。state 为空时不注册后者。
func NewMux(c *Collector, state StateFunc) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(c))
	if state != nil {
		mux.Handle("/debug/state", StateHandler(state))
	}
	return mux
}

// StartServer 启动独立的 HTTP 服务，直到 ctx 结束。
func StartServer(ctx context.Context, addr string, c *Collector, state StateFunc) error {
	if addr == "" {
		return errors.New("metrics address is empty")
	}
	srv := &http.Server{Addr: addr, Handler: NewMux(c, state), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	}
}
