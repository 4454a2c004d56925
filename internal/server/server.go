package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/funny-ai-box/paraluxflow/internal/config"
	"github.com/funny-ai-box/paraluxflow/internal/fetcher"
	"github.com/funny-ai-box/paraluxflow/internal/repository"
	"github.com/funny-ai-box/paraluxflow/internal/service"
)

type Server struct {
	Config *config.Config
	DB     *gorm.DB
	Router *gin.Engine
	Logger *zap.Logger
	Server *http.Server

	// Services
	Ingestion    *service.IngestionService
	Orchestrator *service.SyncOrchestrator
	ArticleCrawl *service.ArticleCrawlService
	Agents       *service.AgentService
	HotTopics    *service.HotTopicService
	Stats        *service.StatsService
	Scheduler    *service.Scheduler

	ContentFetcher *fetcher.ContentFetcher
	SyncLogs       repository.SyncLogRepository
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Set gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := service.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Repositories
	feedRepo := repository.NewFeedRepository(db)
	articleRepo := repository.NewArticleRepository(db)
	syncLogRepo := repository.NewSyncLogRepository(db)
	agentRepo := repository.NewAgentRepository(db)
	hotTopicRepo := repository.NewHotTopicRepository(db)

	// Fetchers
	feedFetcher, err := fetcher.NewFeedFetcher(&cfg.Fetcher, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize feed fetcher: %w", err)
	}
	contentFetcher, err := fetcher.NewContentFetcher(&cfg.Fetcher, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize content fetcher: %w", err)
	}

	staleLock, err := time.ParseDuration(cfg.Tasks.StaleLockTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid stale lock timeout: %w", err)
	}

	// Services
	ingestion := service.NewIngestionService(feedRepo, articleRepo, feedFetcher, logger)
	orchestrator := service.NewSyncOrchestrator(feedRepo, syncLogRepo, ingestion, logger)
	articleCrawl := service.NewArticleCrawlService(articleRepo, staleLock, logger)
	agents := service.NewAgentService(agentRepo, logger)
	hotTopics := service.NewHotTopicService(hotTopicRepo, logger)
	stats := service.NewStatsService(db, logger)
	scheduler := service.NewScheduler(&cfg.Scheduler, &cfg.Tasks, logger, orchestrator, hotTopicRepo)

	// Create router
	router := gin.New()

	srv := &Server{
		Config:         cfg,
		DB:             db,
		Router:         router,
		Logger:         logger,
		Ingestion:      ingestion,
		Orchestrator:   orchestrator,
		ArticleCrawl:   articleCrawl,
		Agents:         agents,
		HotTopics:      hotTopics,
		Stats:          stats,
		Scheduler:      scheduler,
		ContentFetcher: contentFetcher,
		SyncLogs:       syncLogRepo,
	}

	// Setup middleware and routes
	srv.setupMiddleware()
	srv.setupRoutes()

	return srv, nil
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.Router.Use(gin.Recovery())

	// Logger middleware
	s.Router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	// CORS middleware
	s.Router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	s.Router.Use(identityMiddleware())
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	// API routes
	api := s.Router.Group("/api/v1")
	{
		jobs := api.Group("/jobs")
		{
			jobs.POST("/sync_all", s.handleSyncAll)
			jobs.POST("/sync_feed", s.handleSyncFeed)
			jobs.POST("/batch_sync", s.handleBatchSync)
			jobs.GET("/sync_logs", s.handleListSyncLogs)
			jobs.GET("/sync_log_detail", s.handleSyncLogDetail)
			jobs.GET("/sync_log_stats", s.handleSyncLogStats)
		}

		crawler := api.Group("/crawler")
		{
			crawler.POST("/register", s.handleRegisterAgent)
			crawler.POST("/heartbeat", s.handleHeartbeat)
			crawler.GET("/agents", s.handleListAgents)
			crawler.GET("/pending_articles", s.handlePendingArticles)
			crawler.POST("/claim_article", s.handleClaimArticle)
			crawler.POST("/submit_article", s.handleSubmitArticle)
			crawler.GET("/pending_hot_topics", s.handlePendingHotTopics)
			crawler.POST("/claim_hot_topics_task", s.handleClaimHotTopicsTask)
			crawler.POST("/submit_hot_topics_result", s.handleSubmitHotTopicsResult)
		}

		hotTopics := api.Group("/hot_topics")
		{
			hotTopics.POST("/tasks", s.handleCreateHotTopicTask)
			hotTopics.POST("/tasks/schedule", s.handleScheduleHotTopicTask)
			hotTopics.GET("/stats", s.handleHotTopicStats)
		}

		content := api.Group("/content")
		{
			content.GET("/proxy_image", s.handleProxyImage)
		}
	}
}

func (s *Server) Start(ctx context.Context) error {
	// Start background workers
	s.Orchestrator.Start(ctx)
	if err := s.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)

	s.Server = &http.Server{
		Addr:    addr,
		Handler: s.Router,
	}

	s.Logger.Info("Starting HTTP server", zap.String("addr", addr))

	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		return s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	}

	return s.Server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop background workers first
	s.Scheduler.Stop()
	s.Orchestrator.Stop()

	if s.Server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.Server.Shutdown(shutdownCtx)
}
