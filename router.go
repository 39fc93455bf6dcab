package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mentiond/mentiond/pkg/config"
	"github.com/mentiond/mentiond/pkg/event"
	"github.com/mentiond/mentiond/pkg/handler"
	"github.com/mentiond/mentiond/pkg/models"
	"github.com/mentiond/mentiond/pkg/service"
	"github.com/mentiond/mentiond/pkg/utils"
)

const serviceVersion = "1.0.0"

type Server struct {
	ginEngine *gin.Engine
	cfg       *config.AppConfig
	cache     *service.CacheService
	store     *service.StoreService
	persist   *service.PersistService
	hub       *event.Hub
	logger    *slog.Logger
	port      int
}

// NewServer wires the cache, store, persistence worker, hub and handlers
// into a gin engine.
func NewServer(cfg *config.AppConfig) (*Server, error) {
	ginEngine := gin.New()
	ginEngine.Use(gin.Recovery())

	// CORS: dashboards are local tools, browser dashboards connect from
	// localhost dev servers.
	ginEngine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	gdb, err := service.OpenDB(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open durable store: %w", err)
	}

	server := &Server{
		ginEngine: ginEngine,
		cfg:       cfg,
		cache:     service.NewCacheService(cfg.MentionCapacity(), cfg.ConversationCapacity()),
		store:     service.NewStoreService(gdb),
		persist:   service.NewPersistService(0),
		hub:       event.NewHub(),
		logger:    utils.GetLogger(),
	}

	server.warmCache()
	server.SetupRoutes()

	return server, nil
}

// warmCache rebuilds the hot cache from the durable store so restarts don't
// serve an empty dashboard until producers re-poll.
func (s *Server) warmCache() {
	rows, err := s.store.GetRecentMentions(24, "", s.cfg.MentionCapacity())
	if err != nil {
		s.logger.Warn("cache warm-up query failed", "error", err)
		return
	}
	// Query returns newest first; replay oldest first so ring order matches
	// arrival order.
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		// Nano precision keeps the rehydrated dedup key byte-identical to the
		// one producers submit, so mark-responded still matches after a
		// restart.
		s.cache.AddMention(models.Mention{
			Timestamp:  row.Timestamp.Format(time.RFC3339Nano),
			Channel:    row.Channel,
			User:       row.User,
			Text:       row.Text,
			IsQuestion: row.IsQuestion,
			Responded:  row.Responded,
			ClientID:   row.ClientID,
			Workspace:  row.Workspace,
		})
	}
	if len(rows) > 0 {
		s.logger.Info("hot cache warmed from durable store", "mentions", len(rows))
	}
}

func (s *Server) Start(ctx context.Context) error {
	// Port precedence: MENTIOND_PORT env var, then config file, then default.
	port := s.cfg.Port()
	if v := os.Getenv("MENTIOND_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 && p <= 65535 {
			port = p
		} else {
			s.logger.Warn("Invalid MENTIOND_PORT value, falling back to config", "value", v)
		}
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host(), port)
	srv := &http.Server{Addr: addr, Handler: s.ginEngine}

	// Attempt to listen first; if the port is occupied return immediately.
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		s.port = tcpAddr.Port
	} else {
		s.port = port
	}

	s.persist.Start(ctx)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(ln)
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("server listening", "addr", addr)

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	default:
	}
	return nil
}

func (s *Server) SetupRoutes() {
	ingestHandler := handler.NewIngestHandler(s.cache, s.store, s.persist, s.hub, s.logger)
	queryHandler := handler.NewQueryHandler(s.cache, s.store, s.logger)
	wsHandler := event.NewWSHandler(s.hub, s.snapshot)

	s.ginEngine.GET("/", s.serviceSummary)
	s.ginEngine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	s.ginEngine.GET("/ws", wsHandler.Handle)

	// Producer-facing write API
	// /api
	apiGroup := s.ginEngine.Group("/api")
	apiGroup.POST("/mention", ingestHandler.ReportMention)
	apiGroup.POST("/stats", ingestHandler.ReportStats)
	apiGroup.POST("/conversation", ingestHandler.ReportConversation)
	apiGroup.POST("/activity", ingestHandler.ReportActivity)

	// Dashboard read API
	apiGroup.GET("/mentions", queryHandler.Mentions)
	apiGroup.GET("/mentions/unread", queryHandler.UnreadMentions)
	apiGroup.POST("/mentions/responded", queryHandler.MarkResponded)
	apiGroup.GET("/stats", queryHandler.Stats)
	apiGroup.GET("/messages-per-hour", queryHandler.MessagesPerHour)
	apiGroup.GET("/conversations", queryHandler.Conversations)
	apiGroup.GET("/activity", queryHandler.Activity)

	// Debug surface, development builds only
	// /api/debug
	if s.cfg.DebugEnabled() {
		debugHandler := handler.NewDebugHandler(s.cache, s.store, service.NewMockService(), s.logger)
		debugGroup := apiGroup.Group("/debug")
		debugGroup.POST("/seed", debugHandler.Seed)
		debugGroup.POST("/clear", debugHandler.Clear)
		debugGroup.GET("/db-stats", debugHandler.DBStats)
		s.logger.Warn("debug API enabled; disable outside development")
	}
}

// snapshot builds the initial_data payload for a newly subscribed
// dashboard.
func (s *Server) snapshot() event.Snapshot {
	return event.Snapshot{
		Mentions:        s.cache.GetRecentMentions(24, ""),
		Stats:           s.cache.GetStats(""),
		MessagesPerHour: s.cache.GetMessagesPerHour(""),
		ActiveClients:   s.cache.GetActiveClients(10),
	}
}

// serviceSummary handles GET /.
func (s *Server) serviceSummary(c *gin.Context) {
	c.JSON(http.StatusOK, models.ServiceSummary{
		Service:             "Mention Monitor Server",
		Version:             serviceVersion,
		ActiveClients:       s.cache.GetActiveClients(10),
		TotalMentions:       s.cache.MentionCount(),
		UnreadMentions:      s.cache.UnreadCount(),
		ConnectedDashboards: s.hub.Count(),
	})
}
