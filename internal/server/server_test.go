package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/threads-agent/internal/config"
	"github.com/threads-agent/internal/models"
	"github.com/threads-agent/internal/plans"
	"github.com/threads-agent/pkg/logger"
)

type fakeOwnPosts struct {
	posts []models.OwnPost
}

func (f *fakeOwnPosts) OwnTopPosts(ctx context.Context, limit int) ([]models.OwnPost, error) {
	return f.posts, nil
}

func newTestServer(t *testing.T) (*Server, *plans.Store) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	log := logger.New(logger.Config{Level: "disabled", Format: "json"})
	store := plans.NewWithDB(db, nil, log)
	require.NoError(t, store.Migrate())

	cfg := config.Config{
		Pipeline: config.PipelineConfig{TargetPostCount: 5, ScheduleStartHour: 7, ScheduleIntervalMinutes: 90},
		Server:   config.ServerConfig{Port: "8080"},
	}
	return New(cfg, nil, store, &fakeOwnPosts{posts: []models.OwnPost{{PostID: "o1", Content: "過去の人気投稿"}}}, log), store
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListPlansSeedsEmptyDay(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/plans?date=2025-01-01", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		GenerationDate string               `json:"generation_date"`
		Plans          []models.PlanSummary `json:"plans"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2025-01-01", body.GenerationDate)
	require.Len(t, body.Plans, 1)
	assert.Equal(t, "過去の人気投稿", body.Plans[0].MainText)
}

func TestListPlansReturnsExistingDayUntouched(t *testing.T) {
	srv, store := newTestServer(t)
	text := "既存のプラン"
	_, err := store.Upsert(context.Background(), models.PlanUpdate{
		PlanID: "p1", GenerationDate: "2025-01-01", MainText: &text,
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/plans?date=2025-01-01", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Plans []models.PlanSummary `json:"plans"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Plans, 1)
	assert.Equal(t, "p1", body.Plans[0].PlanID)
}

func postStatus(t *testing.T, srv *Server, planID string, payload map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/plans/"+planID+"/status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestUpdateStatusTransitions(t *testing.T) {
	srv, store := newTestServer(t)
	text := "本文"
	_, err := store.Upsert(context.Background(), models.PlanUpdate{
		PlanID: "p1", GenerationDate: "2025-01-01", MainText: &text,
	})
	require.NoError(t, err)

	rec := postStatus(t, srv, "p1", map[string]string{"status": "approved", "generation_date": "2025-01-01"})
	require.Equal(t, http.StatusOK, rec.Code)

	var plan models.Plan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	assert.Equal(t, models.PlanStatusApproved, plan.Status)
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	srv, store := newTestServer(t)
	text := "本文"
	_, err := store.Upsert(context.Background(), models.PlanUpdate{
		PlanID: "p1", GenerationDate: "2025-01-01", MainText: &text,
	})
	require.NoError(t, err)

	// draft -> posted is not allowed.
	rec := postStatus(t, srv, "p1", map[string]string{"status": "posted", "generation_date": "2025-01-01"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := postStatus(t, srv, "p1", map[string]string{"status": "archived", "generation_date": "2025-01-01"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatusPlanNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := postStatus(t, srv, "missing", map[string]string{"status": "approved", "generation_date": "2025-01-01"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
