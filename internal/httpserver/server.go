package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Tryboy869/gitradar/internal/httpserver/deps"
	"github.com/Tryboy869/gitradar/internal/httpserver/mw"
	"github.com/Tryboy869/gitradar/internal/httpserver/routes"
	"github.com/Tryboy869/gitradar/internal/logger"
)

const requestTimeout = 10 * time.Second

// Server 包装 http.Server 和路由
type Server struct {
	http   *http.Server
	logger logger.Logger
}

// New 构建路由、全局中间件并注册所有路由
func New(addr string, log logger.Logger, d deps.Deps) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(log, d),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		logger: log,
	}
}

// NewRouter 单独导出, 测试直接配合 httptest 使用
func NewRouter(log logger.Logger, d deps.Deps) http.Handler {
	if log == nil {
		log = logger.NewNop()
	}
	if d.Logger == nil {
		d.Logger = log
	}

	r := chi.NewRouter()

	r.Use(middleware.GetHead)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(mw.Log(log))

	routes.RegisterAll(r, d)
	return r
}

// Handler 返回根 handler
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start 阻塞直到出错或被关闭, 正常关闭返回 nil
func (s *Server) Start() error {
	s.logger.Infof("HTTP 服务监听 %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 在 ctx 截止前优雅关闭
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP 服务正在关闭")
	return s.http.Shutdown(ctx)
}
