// Package server provides the HTTP API for the chat service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sjvalley/go-airchat/pkg/agent"
	"github.com/sjvalley/go-airchat/pkg/config"
	"github.com/sjvalley/go-airchat/pkg/server/handlers"
	"github.com/sjvalley/go-airchat/pkg/vectorstore"
)

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	workflow   *agent.Workflow
	store      vectorstore.Store
	engine     *gin.Engine
	httpServer *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, workflow *agent.Workflow, store vectorstore.Store) *Server {
	return &Server{
		config:   cfg,
		workflow: workflow,
		store:    store,
	}
}

// Setup initializes the gin engine and registers routes.
func (s *Server) Setup() {
	gin.SetMode(s.config.Server.Mode)

	s.engine = gin.New()
	s.engine.Use(gin.Logger(), gin.Recovery())

	chatHandler := handlers.NewChatHandler(s.workflow)
	healthHandler := handlers.NewHealthHandler(s.store)

	s.engine.POST("/chat", chatHandler.Chat)
	s.engine.POST("/chat/stream", chatHandler.ChatStream)
	s.engine.GET("/health", healthHandler.HealthCheck)
	s.engine.GET("/ready", healthHandler.ReadinessCheck)
}

// Engine exposes the router, used in tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start begins listening. It blocks until the server stops.
func (s *Server) Start() error {
	if s.engine == nil {
		s.Setup()
	}

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
