package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/archivebot/archivebot/pkg/config"
	"github.com/archivebot/archivebot/pkg/db"
	"github.com/archivebot/archivebot/pkg/handler"
	"github.com/archivebot/archivebot/pkg/models"
	"github.com/archivebot/archivebot/pkg/rag"
	"github.com/archivebot/archivebot/pkg/service"
	"github.com/archivebot/archivebot/pkg/utils"
	"github.com/gin-gonic/gin"
)

type Server struct {
	ginEngine *gin.Engine
	config    *config.AppConfig
	logger    *slog.Logger
	port      int
}

func NewServer(cfg *config.AppConfig) (*Server, error) {
	ginEngine := gin.New()
	ginEngine.Use(gin.Recovery())

	// CORS middleware: allow common localhost dev origins.
	// Note: if you don't need cookies/credentials, keep Allow-Credentials off.
	ginEngine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// If there's no Origin header, it's not a browser CORS request.
		if origin != "" {
			allowed := strings.HasPrefix(origin, "http://localhost") ||
				strings.HasPrefix(origin, "http://127.0.0.1") ||
				strings.HasPrefix(origin, "https://localhost") ||
				strings.HasPrefix(origin, "https://127.0.0.1")

			if allowed {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
				c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
			} else {
				// Reject unknown origins.
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	server := &Server{
		ginEngine: ginEngine,
		config:    cfg,
		logger:    utils.GetLogger(),
	}

	if err := server.SetupRoutes(); err != nil {
		return nil, err
	}

	return server, nil
}

func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host(), s.config.Port())
	srv := &http.Server{Addr: addr, Handler: s.ginEngine}

	// Attempt to listen first; if the port is occupied return error immediately.
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}

	// Record the actual port (useful if we ever switch to :0).
	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	} else {
		s.port = s.config.Port()
	}

	s.logger.Info("Server listening", "addr", ln.Addr().String())

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(ln)
	}()

	// Listen for context cancellation for graceful shutdown.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}
	return nil
}

func (s *Server) SetupRoutes() error {
	ctx := context.Background()

	database, err := db.Open(s.config.DatabasePath())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	// Retrieval is optional; chat degrades to conversation-only answers when
	// the vector store cannot start.
	retrievalService, err := service.NewRetrievalService(service.RetrievalConfig{
		Enabled:           s.config.VectorEnabled(),
		Path:              s.config.VectorPath(),
		EmbeddingProvider: s.config.EmbeddingProvider(),
		OpenAIAPIKey:      s.config.OpenAIAPIKey(),
		OpenAIModel:       s.config.EmbeddingModel(),
		OllamaURL:         s.config.OllamaURL(),
		OllamaModel:       s.config.EmbeddingModel(),
	})
	if err != nil {
		s.logger.Warn("Vector store unavailable, semantic search disabled", "error", err)
		retrievalService, _ = service.NewRetrievalService(service.RetrievalConfig{Enabled: false})
	}

	historyService := service.NewHistoryService(database)
	archiveService := service.NewArchiveService(database, retrievalService)

	var completionClient rag.CompletionClient
	if s.config.MockMode() {
		s.logger.Info("Using mock completion client", "model", s.config.LLMModel())
		completionClient = rag.NewMockClient(s.config.LLMModel())
	} else {
		completionClient, err = rag.NewClient(ctx, rag.ClientConfig{
			Provider: s.config.LLMProvider(),
			BaseURL:  s.config.LLMBaseURL(),
			APIKey:   s.config.LLMAPIKey(),
			Model:    s.config.LLMModel(),
			Timeout:  time.Duration(s.config.TimeoutMs()) * time.Millisecond,
		})
		if err != nil {
			return fmt.Errorf("create completion client: %w", err)
		}
	}

	orchestrator := rag.NewOrchestrator(retrievalService, completionClient, s.config.MaxTokens(), s.config.ContextWindow())

	chatHandler := handler.NewChatHandler(orchestrator, historyService)
	conversationHandler := handler.NewConversationHandler(historyService)
	archiveHandler := handler.NewArchiveHandler(archiveService, retrievalService)

	s.ginEngine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API group
	// /api
	apiGroup := s.ginEngine.Group("/api")

	// Runtime info (lets clients discover the base URL and active model)
	apiGroup.GET("/runtime", func(c *gin.Context) {
		host := s.config.Host()
		port := s.port
		if port == 0 {
			port = s.config.Port()
		}

		c.JSON(http.StatusOK, models.RuntimeInfo{
			HTTPBaseURL: fmt.Sprintf("http://%s:%d", host, port),
			Port:        port,
			Model:       s.config.LLMModel(),
			MockMode:    s.config.MockMode(),
			Search:      retrievalService.Enabled(),
		})
	})

	chatHandler.RegisterRoutes(apiGroup)
	conversationHandler.RegisterRoutes(apiGroup)
	archiveHandler.RegisterRoutes(apiGroup)

	return nil
}
