package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"MoveGPT/internal/agent"
	"MoveGPT/internal/config"
	xerrors "MoveGPT/internal/errors"
	"MoveGPT/internal/observability/metrics"
	"MoveGPT/pkg/logger"
)

const (
	defaultTurnLimit = 20
	maxTurnLimit     = 200
	maxBodyBytes     = 1 << 20
)

// Server 负责暴露 REST 接口，供前端或脚本提问。
type Server struct {
	cfg    config.ServerConfig
	agent  *agent.Agent
	router chi.Router
	log    *slog.Logger
}

// NewServer 构造 API 服务实例。
func NewServer(cfg config.ServerConfig, ag *agent.Agent) *Server {
	s := &Server{cfg: cfg, agent: ag, log: logger.Named("api")}
	s.router = s.routes()
	return s
}

// Handler 返回完整的路由，便于测试或嵌入其他服务。
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(observe)
	r.Use(cors(s.cfg.AllowedOrigins))

	r.Get("/", s.handleIndex)
	r.Post("/generate-response", s.handleGenerate)
	r.Post("/generate-resource-response", s.handleGenerateResource)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/sessions/{id}", s.handleSession)
		r.Get("/turns", s.handleTurns)
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           withContext(ctx, s.router),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("API 服务启动", slog.String("address", s.cfg.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		timeout := s.cfg.ShutdownTimeout()
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("API 服务关闭超时", slog.Any("error", err))
		}
		return nil
	case err := <-errCh:
		return err
	}
}

type askRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
}

type askResponse struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id,omitempty"`
}

type resourceResponse struct {
	Answer    string `json:"answer"`
	Address   string `json:"address"`
	SessionID string `json:"session_id,omitempty"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	History   string `json:"history"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("MoveGPT API is running"))
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAsk(w, r)
	if !ok {
		return
	}
	result, err := s.agent.Ask(r.Context(), req.SessionID, req.Question)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := askResponse{Answer: result.Answer}
	if strings.TrimSpace(req.SessionID) != "" {
		resp.SessionID = result.SessionID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGenerateResource(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAsk(w, r)
	if !ok {
		return
	}
	result, err := s.agent.AskAboutAccount(r.Context(), req.SessionID, req.Question)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := resourceResponse{Answer: result.Answer}
	if strings.TrimSpace(req.SessionID) != "" {
		resp.SessionID = result.SessionID
	}
	if len(result.Addresses) > 0 {
		resp.Address = result.Addresses[0]
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.agent == nil {
		s.writeError(w, xerrors.New(xerrors.CodeInitializationFailure, "Agent 未初始化"))
		return
	}
	id := chi.URLParam(r, "id")
	history, ok := s.agent.Sessions().Snapshot(id)
	if !ok {
		s.writeError(w, xerrors.New(xerrors.CodeNotFound, "会话不存在",
			xerrors.WithMetadata("session_id", id)))
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: id, History: history})
}

func (s *Server) handleTurns(w http.ResponseWriter, r *http.Request) {
	if s.agent == nil {
		s.writeError(w, xerrors.New(xerrors.CodeInitializationFailure, "Agent 未初始化"))
		return
	}
	limit := defaultTurnLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = min(parsed, maxTurnLimit)
		}
	}
	turns, err := s.agent.ListTurns(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turns)
}

func (s *Server) decodeAsk(w http.ResponseWriter, r *http.Request) (askRequest, bool) {
	var req askRequest
	if s.agent == nil {
		s.writeError(w, xerrors.New(xerrors.CodeInitializationFailure, "Agent 未初始化"))
		return req, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "请求体解析失败"))
		return req, false
	}
	if strings.TrimSpace(req.Question) == "" {
		s.writeError(w, xerrors.New(xerrors.CodeInvalidArgument, "问题不能为空"))
		return req, false
	}
	return req, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := xerrors.StatusOf(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("请求处理失败", slog.Int("status", status), slog.Any("error", err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: string(xerrors.CodeOf(err))})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
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
