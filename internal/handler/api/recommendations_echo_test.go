package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"

	"LoadCoach/internal/domain/models"
	domsvc "LoadCoach/internal/domain/service"
	"LoadCoach/internal/service/ratelimit"
	"LoadCoach/internal/usecase"
)

type fakeEngine struct {
	last models.RecommendationRequest
	err  error
}

func (f *fakeEngine) Recommend(_ context.Context, req models.RecommendationRequest) (models.Recommendation, error) {
	f.last = req
	if f.err != nil {
		return models.Recommendation{}, f.err
	}
	return models.Recommendation{UserID: req.UserID, RecommendedStress: 120, Confidence: 0.8, WorkoutType: models.WorkoutEndurance}, nil
}

func (f *fakeEngine) CacheStats(context.Context) models.CacheStats { return models.CacheStats{Total: 3, Expired: 1} }
func (f *fakeEngine) CleanupCache(context.Context) int { return 1 }

type fakeTraining struct {
	kinds []models.ModelKind
	err   error
}

func (f *fakeTraining) TrainUser(_ context.Context, userID string, kinds []models.ModelKind) (*models.TrainingResult, error) {
	f.kinds = kinds
	if f.err != nil {
		return nil, f.err
	}
	return &models.TrainingResult{UserID: userID, Samples: 40, Deployed: "linear_v1"}, nil
}

func (f *fakeTraining) Deploy(_ context.Context, userID, version string) (models.ModelVersion, error) {
	if version != "linear_v1" {
		return models.ModelVersion{}, fmt.Errorf("deploy: %w", domsvc.ErrModelVersionNotFound)
	}
	return models.ModelVersion{UserID: userID, Version: version, Status: models.StatusProduction}, nil
}

func (f *fakeTraining) ListModels(userID string) []models.ModelVersion {
	return []models.ModelVersion{{UserID: userID, Version: "linear_v1"}}
}

func (f *fakeTraining) BatchTrain(_ context.Context, ids []string) []models.BatchTrainingResult {
	out := make([]models.BatchTrainingResult, len(ids))
	for i, id := range ids {
		out[i] = models.BatchTrainingResult{UserID: id}
	}
	return out
}

func (f *fakeTraining) CrossValidate(_ context.Context, _ string, k int) ([]models.ModelMetrics, error) {
	return make([]models.ModelMetrics, k), nil
}

func (f *fakeTraining) AssessDataQuality(_ context.Context, userID string, days int) (models.DataQualityReport, error) {
	return models.DataQualityReport{UserID: userID, TotalSamples: days}, nil
}

type fakeLoad struct{ days int }

func (f *fakeLoad) LoadSeries(_ context.Context, userID string, days int) (models.LoadSeries, error) {
	f.days = days
	return models.LoadSeries{UserID: userID, Days: days, Points: []models.LoadState{}}, nil
}

func (f *fakeLoad) LoadStats(_ context.Context, userID string, days int) (models.LoadStats, error) {
	f.days = days
	return models.LoadStats{UserID: userID, Days: days}, nil
}

type fakeFeatures struct{ date time.Time }

func (f *fakeFeatures) Extract(_ context.Context, userID string, date time.Time) (models.FeatureVector, error) {
	f.date = date
	return models.FeatureVector{UserID: userID, Date: date, CTL: 50}, nil
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type fixture struct {
	e        *echo.Echo
	engine   *fakeEngine
	training *fakeTraining
	load     *fakeLoad
	features *fakeFeatures
}

func newFixture(limiter *ratelimit.Limiter) *fixture {
	f := &fixture{
		e:        echo.New(),
		engine:   &fakeEngine{},
		training: &fakeTraining{},
		load:     &fakeLoad{},
		features: &fakeFeatures{},
	}
	h := NewRecommendationsEchoHandler(nil, f.engine, f.training, f.load, f.features, limiter)
	h.now = func() time.Time { return time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC) }
	h.RegisterRoutes(f.e)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s %s: %v (%s)", method, path, err, rec.Body.String())
	}
	return rec.Code, env
}

func TestRecommendationGet(t *testing.T) {
	f := newFixture(nil)
	code, env := f.do(t, http.MethodGet, "/api/users/u1/recommendation?date=2024-03-05", "")
	if code != http.StatusOK || env.Status != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	var rec models.Recommendation
	if err := json.Unmarshal(env.Data, &rec); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if rec.UserID != "u1" || rec.RecommendedStress != 120 {
		t.Fatalf("unexpected recommendation %+v", rec)
	}
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	if f.engine.last.TargetDate == nil || !f.engine.last.TargetDate.Equal(want) {
		t.Fatalf("target date not passed: %v", f.engine.last.TargetDate)
	}
}

func TestRecommendationPostOptions(t *testing.T) {
	f := newFixture(nil)
	body := `{"preferred_workout_type":"threshold","max_duration_minutes":45,
        "target_event_date":"2024-04-01","feedback":{"energy_level":8,"preferred_intensity":"easy"}}`
	code, _ := f.do(t, http.MethodPost, "/api/users/u1/recommendation", body)
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	got := f.engine.last
	if got.PreferredWorkoutType != models.WorkoutThreshold {
		t.Fatalf("preferred type = %q", got.PreferredWorkoutType)
	}
	if got.MaxDurationMinutes == nil || *got.MaxDurationMinutes != 45 {
		t.Fatalf("max duration not passed")
	}
	if got.TargetEventDate == nil || got.TargetDate != nil {
		t.Fatalf("dates mis-mapped: event=%v target=%v", got.TargetEventDate, got.TargetDate)
	}
	if got.Feedback == nil || got.Feedback.EnergyLevel != 8 || got.Feedback.Motivation != 5 {
		t.Fatalf("feedback defaults not applied: %+v", got.Feedback)
	}
}

func TestRecommendationValidation(t *testing.T) {
	f := newFixture(nil)
	for _, path := range []string{
		"/api/users/u1/recommendation?date=05-03-2024",
		"/api/users/u1/recommendation?preferred_workout_type=yoga",
		"/api/users/u1/recommendation?max_duration_minutes=5000",
	} {
		if code, _ := f.do(t, http.MethodGet, path, ""); code != http.StatusBadRequest {
			t.Fatalf("%s: want 400, got %d", path, code)
		}
	}
	code, _ := f.do(t, http.MethodPost, "/api/users/u1/recommendation", `{"feedback":{"energy_level":11}}`)
	if code != http.StatusBadRequest {
		t.Fatalf("out of range feedback: want 400, got %d", code)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("x: %w", domsvc.ErrInsufficientData), http.StatusUnprocessableEntity, "INSUFFICIENT_DATA"},
		{domsvc.ErrNoModelAvailable, http.StatusNotFound, "NO_MODEL_AVAILABLE"},
		{fmt.Errorf("history store: %w", domsvc.ErrCollaboratorUnavailable), http.StatusServiceUnavailable, "COLLABORATOR_UNAVAILABLE"},
		{domsvc.ErrFeatureShapeMismatch, http.StatusInternalServerError, "FEATURE_SHAPE_MISMATCH"},
		{usecase.ErrTrainingInProgress, http.StatusConflict, "TRAINING_IN_PROGRESS"},
	}
	for _, tc := range cases {
		f := newFixture(nil)
		f.engine.err = tc.err
		code, env := f.do(t, http.MethodGet, "/api/users/u1/recommendation", "")
		if code != tc.status {
			t.Fatalf("%v: want %d, got %d", tc.err, tc.status, code)
		}
		var errs []struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal(env.Data, &errs); err != nil || len(errs) != 1 || errs[0].Code != tc.code {
			t.Fatalf("%v: want code %s, got %s (%v)", tc.err, tc.code, env.Data, err)
		}
	}
}

func TestTrainRateLimited(t *testing.T) {
	f := newFixture(ratelimit.New(1, 0))
	code, _ := f.do(t, http.MethodPost, "/api/users/u1/models/train", `{"kinds":["random_forest"]}`)
	if code != http.StatusOK {
		t.Fatalf("first train: %d", code)
	}
	if len(f.training.kinds) != 1 || f.training.kinds[0] != models.KindRandomForest {
		t.Fatalf("kinds not passed: %v", f.training.kinds)
	}
	if code, _ := f.do(t, http.MethodPost, "/api/users/u1/models/train", ""); code != http.StatusTooManyRequests {
		t.Fatalf("second train: want 429, got %d", code)
	}
	if code, _ := f.do(t, http.MethodPost, "/api/users/u2/models/train", ""); code != http.StatusOK {
		t.Fatalf("other user should not be limited, got %d", code)
	}
}

func TestTrainRejectsUnknownKind(t *testing.T) {
	f := newFixture(nil)
	if code, _ := f.do(t, http.MethodPost, "/api/users/u1/models/train", `{"kinds":["svm"]}`); code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", code)
	}
}

func TestModelManagementRoutes(t *testing.T) {
	f := newFixture(nil)
	if code, _ := f.do(t, http.MethodPost, "/api/users/u1/models/linear_v1/deploy", ""); code != http.StatusOK {
		t.Fatalf("deploy: %d", code)
	}
	if code, _ := f.do(t, http.MethodPost, "/api/users/u1/models/nope/deploy", ""); code != http.StatusNotFound {
		t.Fatalf("deploy unknown: want 404, got %d", code)
	}
	code, env := f.do(t, http.MethodPost, "/api/users/u1/models/cross-validate", `{"folds":3}`)
	if code != http.StatusOK || !strings.Contains(string(env.Data), `"total":3`) {
		t.Fatalf("cross-validate: %d %s", code, env.Data)
	}
	code, env = f.do(t, http.MethodPost, "/api/models/batch-train", `{"user_ids":["a","b"]}`)
	if code != http.StatusOK || !strings.Contains(string(env.Data), `"total":2`) {
		t.Fatalf("batch-train: %d %s", code, env.Data)
	}
	if code, _ := f.do(t, http.MethodPost, "/api/models/batch-train", `{"user_ids":[]}`); code != http.StatusBadRequest {
		t.Fatalf("empty batch: want 400, got %d", code)
	}
	if code, _ := f.do(t, http.MethodGet, "/api/users/u1/models", ""); code != http.StatusOK {
		t.Fatalf("list: %d", code)
	}
}

func TestLoadAndFeatureRoutes(t *testing.T) {
	f := newFixture(nil)
	if code, _ := f.do(t, http.MethodGet, "/api/users/u1/training-load", ""); code != http.StatusOK || f.load.days != 90 {
		t.Fatalf("default days: code %d days %d", code, f.load.days)
	}
	if code, _ := f.do(t, http.MethodGet, "/api/users/u1/load-stats?days=30", ""); code != http.StatusOK || f.load.days != 30 {
		t.Fatalf("load-stats: code %d days %d", code, f.load.days)
	}
	if code, _ := f.do(t, http.MethodGet, "/api/users/u1/training-load?days=0", ""); code != http.StatusOK || f.load.days != 90 {
		t.Fatalf("zero days falls back to default: code %d days %d", code, f.load.days)
	}
	if code, _ := f.do(t, http.MethodGet, "/api/users/u1/training-load?days=1000", ""); code != http.StatusBadRequest {
		t.Fatalf("days over limit: want 400, got %d", code)
	}
	if code, _ := f.do(t, http.MethodGet, "/api/users/u1/features", ""); code != http.StatusOK {
		t.Fatalf("features: %d", code)
	}
	if want := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC); !f.features.date.Equal(want) {
		t.Fatalf("features default date = %v", f.features.date)
	}
	if code, _ := f.do(t, http.MethodGet, "/api/users/u1/data-quality?days=120", ""); code != http.StatusOK {
		t.Fatalf("data-quality: %d", code)
	}
}

func TestCacheRoutes(t *testing.T) {
	f := newFixture(nil)
	code, env := f.do(t, http.MethodGet, "/api/cache/stats", "")
	if code != http.StatusOK || !strings.Contains(string(env.Data), `"expired":1`) {
		t.Fatalf("stats: %d %s", code, env.Data)
	}
	code, env = f.do(t, http.MethodPost, "/api/cache/cleanup", "")
	if code != http.StatusOK || !strings.Contains(string(env.Data), `"removed":1`) {
		t.Fatalf("cleanup: %d %s", code, env.Data)
	}
}
