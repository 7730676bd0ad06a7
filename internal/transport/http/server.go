// Package transporthttp 是引擎之上的薄 HTTP 包装，不含业务逻辑。
package transporthttp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/iWorld-y/opinion_radar/pkg/model"
)

// Runner 可执行一次研究任务的对象（通常是 engine.Engine）
type Runner interface {
	Run(ctx context.Context, query string) *model.FinalReport
}

// Server HTTP 服务
type Server struct {
	runner         Runner
	requestTimeout time.Duration
}

// NewServer 创建 HTTP 服务
func NewServer(runner Runner, requestTimeout time.Duration) *Server {
	if requestTimeout <= 0 {
		requestTimeout = 3 * time.Minute
	}
	return &Server{runner: runner, requestTimeout: requestTimeout}
}

// Routes 注册路由
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.health)
	mux.HandleFunc("/api/research", s.handleResearch)
	return mux
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload struct {
		Query string `json:"query"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if payload.Query == "" {
		s.writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	report := s.runner.Run(ctx, payload.Query)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(report)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
