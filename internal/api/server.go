package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lekhuynh/vietchoice/internal/config"
	"github.com/lekhuynh/vietchoice/internal/logger"
)

const idleTimeout = 120 * time.Second

// Server is the pipeline's HTTP server.
type Server struct {
	router *gin.Engine
	server *http.Server
	log    logger.Interface
}

// NewServer wires routes and middleware into an HTTP server.
func NewServer(cfg config.ServerConfig, handler *Handler, debug bool, log logger.Interface) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.GET("/search", handler.Search)
	v1.POST("/refresh", handler.Refresh)
	v1.GET("/products/:id/score", handler.Score)
	v1.POST("/products/:id/rescore", handler.Rescore)
	v1.GET("/products/:id/recommendations", handler.Recommendations)

	return &Server{
		router: router,
		server: &http.Server{
			Addr:         cfg.Address,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  idleTimeout,
		},
		log: log,
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("http server starting", "address", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("http server shutting down")
	return s.server.Shutdown(ctx)
}

// requestLogger logs each request with method, path, status, and
// duration.
func requestLogger(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info("http request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}
