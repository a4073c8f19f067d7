package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/threads-agent/internal/config"
	"github.com/threads-agent/internal/models"
	"github.com/threads-agent/internal/pipeline"
	"github.com/threads-agent/internal/plans"
	"github.com/threads-agent/internal/prompt"
	"github.com/threads-agent/internal/stream"
	"github.com/threads-agent/pkg/logger"
)

// PlanReader is the query side of the plan store used by the API
type PlanReader interface {
	ListDaySummaries(ctx context.Context, generationDate string) ([]models.PlanSummary, error)
	SeedDayIfEmpty(ctx context.Context, generationDate string, ownPosts []models.OwnPost, slots []string) ([]models.Plan, bool, error)
	UpdateStatus(ctx context.Context, planID, generationDate string, next models.PlanStatus) (*models.Plan, error)
}

// OwnPostSource supplies seed material for empty days
type OwnPostSource interface {
	OwnTopPosts(ctx context.Context, limit int) ([]models.OwnPost, error)
}

// Server exposes the dashboard HTTP API
type Server struct {
	cfg      config.Config
	pipe     *pipeline.Pipeline
	store    PlanReader
	ownPosts OwnPostSource
	log      *logger.Logger
}

func New(cfg config.Config, pipe *pipeline.Pipeline, store PlanReader, ownPosts OwnPostSource, log *logger.Logger) *Server {
	return &Server{
		cfg:      cfg,
		pipe:     pipe,
		store:    store,
		ownPosts: ownPosts,
		log:      log.WithComponent("server"),
	}
}

// Router builds the gin engine with all API routes
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.handleHealth)
	api := router.Group("/api")
	{
		api.POST("/generate", s.handleGenerate)
		api.POST("/generate/individual", s.handleGenerateIndividual)
		api.GET("/plans", s.handleListPlans)
		api.POST("/plans/:planId/status", s.handleUpdateStatus)
	}
	return router
}

// Run serves the API until the context is cancelled
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ":" + s.cfg.Server.Port,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("port", s.cfg.Server.Port).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleGenerate runs the batch pipeline and streams NDJSON progress.
// Pipeline failures surface as error events inside an HTTP 200 stream;
// clients must inspect stream contents.
func (s *Server) handleGenerate(c *gin.Context) {
	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)

	reporter := stream.NewReporter(c.Writer, s.log)
	if _, err := s.pipe.Run(c.Request.Context(), reporter); err != nil {
		s.log.Error().Err(err).Msg("Generation run failed")
	}
}

type individualRequest struct {
	Theme string `json:"theme" binding:"required"`
}

func (s *Server) handleGenerateIndividual(c *gin.Context) {
	var req individualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "theme is required"})
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)

	reporter := stream.NewReporter(c.Writer, s.log)
	if _, err := s.pipe.RunIndividual(c.Request.Context(), req.Theme, reporter); err != nil {
		s.log.Error().Err(err).Msg("Individual generation failed")
	}
}

// handleListPlans returns the day's plan summaries, seeding the day from
// top own posts when it is empty so the dashboard never renders blank.
func (s *Server) handleListPlans(c *gin.Context) {
	generationDate := c.Query("date")
	if generationDate == "" {
		generationDate = time.Now().Format("2006-01-02")
	}

	ctx := c.Request.Context()
	ownPosts, err := s.ownPosts.OwnTopPosts(ctx, 10)
	if err != nil {
		// Seeding material is best effort; an empty day just gets the
		// placeholder plan.
		s.log.Warn().Err(err).Msg("Failed to fetch own posts for seeding")
		ownPosts = nil
	}

	slots := prompt.BuildScheduleSlots(
		s.cfg.Pipeline.TargetPostCount,
		s.cfg.Pipeline.ScheduleStartHour,
		s.cfg.Pipeline.ScheduleIntervalMinutes,
	)
	if _, _, err := s.store.SeedDayIfEmpty(ctx, generationDate, ownPosts, slots); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	summaries, err := s.store.ListDaySummaries(ctx, generationDate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"generation_date": generationDate, "plans": summaries})
}

type statusRequest struct {
	Status         string `json:"status" binding:"required"`
	GenerationDate string `json:"generation_date"`
}

func (s *Server) handleUpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	if req.GenerationDate == "" {
		req.GenerationDate = time.Now().Format("2006-01-02")
	}

	next := models.PlanStatus(req.Status)
	if !next.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status: " + req.Status})
		return
	}

	plan, err := s.store.UpdateStatus(c.Request.Context(), c.Param("planId"), req.GenerationDate, next)
	if err != nil {
		var transitionErr *models.ErrInvalidTransition
		switch {
		case errors.As(err, &transitionErr):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, plan)
}

// Ensure the concrete store satisfies the reader interface
var _ PlanReader = (*plans.Store)(nil)
