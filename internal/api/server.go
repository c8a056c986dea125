package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/analytics"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/cache"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/domain"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/middleware"
	"github.com/dyllz92/Seated-Massage-Intake-Form/internal/reporting"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Reporter is the dashboard facade served over HTTP
type Reporter interface {
	Summary(ctx context.Context) (*analytics.Impact, error)
	Trends(ctx context.Context, period analytics.Period) (*reporting.TrendsChart, error)
	HealthIssues(ctx context.Context) (*reporting.BreakdownChart, error)
	Therapists(ctx context.Context) (*reporting.TherapistChart, error)
	Pressure(ctx context.Context) (*reporting.BreakdownChart, error)
	FeelingScores(ctx context.Context) (*reporting.FeelingScores, error)
	DataQuality(ctx context.Context) (*analytics.DataQuality, error)
	HealthNotes(ctx context.Context) (*analytics.HealthNotesDigest, error)
	Refresh(ctx context.Context) (int, error)
	CacheStats() cache.Stats
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	reporter      Reporter
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
	refresh       *rate.Limiter
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, reporter Reporter, logger *logrus.Logger) *Server {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" && configManager.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AccessLogger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(corsMiddleware())

	burst := cfg.Refresh.Burst
	if burst < 1 {
		burst = 1
	}

	server := &Server{
		configManager: configManager,
		reporter:      reporter,
		logger:        logger,
		router:        router,
		refresh:       rate.NewLimiter(rate.Limit(cfg.Refresh.RateLimit), burst),
	}

	server.setupRoutes()

	return server
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	analyticsRoutes := s.router.Group("/api/analytics")
	{
		analyticsRoutes.GET("/summary", s.handleSummary)
		analyticsRoutes.GET("/trends", s.handleTrends)
		analyticsRoutes.GET("/health-issues", s.handleHealthIssues)
		analyticsRoutes.GET("/therapists", s.handleTherapists)
		analyticsRoutes.GET("/pressure", s.handlePressure)
		analyticsRoutes.GET("/feeling-scores", s.handleFeelingScores)
		analyticsRoutes.GET("/health-notes", s.handleHealthNotes)
		analyticsRoutes.GET("/data-quality", s.handleDataQuality)
		analyticsRoutes.POST("/refresh", s.handleRefresh)
		analyticsRoutes.GET("/cache/stats", s.handleCacheStats)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   Version,
		"cache":     s.reporter.CacheStats(),
	})
}

func (s *Server) handleSummary(c *gin.Context) {
	result, err := s.reporter.Summary(c.Request.Context())
	s.respond(c, reporting.ViewSummary, result, err)
}

func (s *Server) handleTrends(c *gin.Context) {
	period := analytics.ParsePeriod(c.DefaultQuery("period", "7"))
	result, err := s.reporter.Trends(c.Request.Context(), period)
	s.respond(c, reporting.ViewTrends, result, err)
}

func (s *Server) handleHealthIssues(c *gin.Context) {
	result, err := s.reporter.HealthIssues(c.Request.Context())
	s.respond(c, reporting.ViewHealthIssues, result, err)
}

func (s *Server) handleTherapists(c *gin.Context) {
	result, err := s.reporter.Therapists(c.Request.Context())
	s.respond(c, reporting.ViewTherapists, result, err)
}

func (s *Server) handlePressure(c *gin.Context) {
	result, err := s.reporter.Pressure(c.Request.Context())
	s.respond(c, reporting.ViewPressure, result, err)
}

func (s *Server) handleFeelingScores(c *gin.Context) {
	result, err := s.reporter.FeelingScores(c.Request.Context())
	s.respond(c, reporting.ViewFeelingScores, result, err)
}

func (s *Server) handleHealthNotes(c *gin.Context) {
	result, err := s.reporter.HealthNotes(c.Request.Context())
	s.respond(c, reporting.ViewHealthNotes, result, err)
}

func (s *Server) handleDataQuality(c *gin.Context) {
	result, err := s.reporter.DataQuality(c.Request.Context())
	s.respond(c, reporting.ViewDataQuality, result, err)
}

func (s *Server) handleRefresh(c *gin.Context) {
	requestID := c.GetString(middleware.CorrelationIDKey)
	if !s.refresh.Allow() {
		c.JSON(http.StatusTooManyRequests, domain.NewAppError(domain.ErrRateLimit, "Too many refresh requests", "", requestID))
		return
	}

	count, err := s.reporter.Refresh(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, domain.NewAppError(domain.ErrStorage, "Failed to refresh analytics", err.Error(), requestID))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Analytics cache cleared",
		"records": count,
	})
}

func (s *Server) handleCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.reporter.CacheStats())
}

// respond writes result, or the view's failure message with a 500
func (s *Server) respond(c *gin.Context, view reporting.View, result interface{}, err error) {
	if err == nil {
		c.JSON(http.StatusOK, result)
		return
	}

	_ = c.Error(err)
	s.logger.WithFields(logrus.Fields{
		"view":           view.Name,
		"correlation_id": c.GetString(middleware.CorrelationIDKey),
		"error":          err,
	}).Error(view.Failure)

	c.JSON(http.StatusInternalServerError, gin.H{
		"error":      view.Failure,
		"code":       domain.ErrorCode(err),
		"request_id": c.GetString(middleware.CorrelationIDKey),
	})
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-Correlation-ID, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "X-Correlation-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
