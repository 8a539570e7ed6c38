package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"LoadCoach/internal/domain/models"
	domsvc "LoadCoach/internal/domain/service"
	reccache "LoadCoach/internal/service/cache"
)

type fakeExtractor struct {
	fv    models.FeatureVector
	err   error
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, userID string, date time.Time) (models.FeatureVector, error) {
	f.calls++
	if f.err != nil {
		return models.FeatureVector{}, f.err
	}
	fv := f.fv
	fv.UserID, fv.Date = userID, date
	return fv, nil
}

type fakePredictor struct {
	pred models.Prediction
	err  error
}

func (f *fakePredictor) Predict(context.Context, string, models.FeatureVector) (models.Prediction, error) {
	return f.pred, f.err
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []models.RecommendationEvent
	err    error
}

func (f *fakeRecorder) Record(_ context.Context, ev models.RecommendationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

var today = time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)

// healthy is a trained athlete with no edge case.
func healthy() models.FeatureVector {
	return models.FeatureVector{
		CTL:                  60,
		ATL:                  55,
		TSB:                  5,
		DaysSinceLastWorkout: 1,
		AvgWeeklyStress4Wk:   400,
		DaysUntilEvent:       models.NoTargetEvent,
		SeasonalFactor:       1,
		SessionsInWindow:     12,
	}
}

func prediction(stress float64) models.Prediction {
	return models.Prediction{
		RecommendedStress: stress,
		Confidence:        0.8,
		LowerBound:        stress * 0.9,
		UpperBound:        stress * 1.1,
		WorkoutType:       models.WorkoutThreshold,
		ModelVersion:      "linear_v1",
	}
}

func newEngine(fv models.FeatureVector, pred *fakePredictor, rec domsvc.AnalyticsRecorder) (*RecommendationEngine, *fakeExtractor, *reccache.TTLCache) {
	ex := &fakeExtractor{fv: fv}
	now := today
	c := reccache.NewTTLCache(time.Hour).WithClock(func() time.Time { return now })
	opts := []EngineOption{WithEngineClock(func() time.Time { return today })}
	if rec != nil {
		opts = append(opts, WithAnalytics(rec))
	}
	return NewRecommendationEngine(c, ex, pred, opts...), ex, c
}

func TestEdgeCasePrecedence(t *testing.T) {
	e := NewRecommendationEngine(reccache.NewTTLCache(0), &fakeExtractor{}, &fakePredictor{})
	cases := []struct {
		name string
		fv   models.FeatureVector
		want models.EdgeCase
	}{
		{"fatigued with no recent stress is new user", models.FeatureVector{TSB: -30, AvgWeeklyStress4Wk: 0, SessionsInWindow: 0}, models.EdgeCaseNewUser},
		{"long gap", models.FeatureVector{AvgWeeklyStress4Wk: 100, DaysSinceLastWorkout: 20, SessionsInWindow: 10}, models.EdgeCaseNewUser},
		{"overtrained beats insufficient", models.FeatureVector{TSB: -30, AvgWeeklyStress4Wk: 100, SessionsInWindow: 2}, models.EdgeCaseOvertrained},
		{"insufficient beats detraining", models.FeatureVector{TSB: 60, AvgWeeklyStress4Wk: 100, SessionsInWindow: 2}, models.EdgeCaseInsufficientData},
		{"detraining", models.FeatureVector{TSB: 60, AvgWeeklyStress4Wk: 100, SessionsInWindow: 8}, models.EdgeCaseDetraining},
		{"none", healthy(), models.EdgeCaseNone},
	}
	for _, c := range cases {
		if got := e.DetectEdgeCase(c.fv); got != c.want {
			t.Fatalf("%s: got %q, want %q", c.name, got, c.want)
		}
	}
}

func TestNewUserFallback(t *testing.T) {
	fv := models.FeatureVector{AvgWeeklyStress4Wk: 0, DaysSinceLastWorkout: 20}
	e, _, _ := newEngine(fv, &fakePredictor{err: errors.New("must not be called")}, nil)

	rec, err := e.Recommend(context.Background(), models.RecommendationRequest{UserID: "u1"})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if rec.EdgeCase != models.EdgeCaseNewUser || rec.RecommendedStress != 75 || rec.Confidence != 0.6 {
		t.Fatalf("unexpected fallback %+v", rec)
	}
	if rec.ModelVersion != "edge_case_handler_v1" || rec.WorkoutType != models.WorkoutEndurance {
		t.Fatalf("unexpected fallback metadata %+v", rec)
	}
	if rec.LowerBound != 60 || rec.UpperBound != 90 {
		t.Fatalf("unexpected bounds %v..%v", rec.LowerBound, rec.UpperBound)
	}
	if len(rec.Warnings) != 1 || rec.Warnings[0] != "Edge case detected: new_user" {
		t.Fatalf("unexpected warnings %v", rec.Warnings)
	}
}

func TestNoModelFallsBackConservatively(t *testing.T) {
	e, _, _ := newEngine(healthy(), &fakePredictor{err: domsvc.ErrNoModelAvailable}, nil)
	rec, err := e.Recommend(context.Background(), models.RecommendationRequest{UserID: "u1"})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if rec.EdgeCase != models.EdgeCaseNoModel || rec.RecommendedStress != 400 {
		t.Fatalf("unexpected no-model fallback %+v", rec)
	}
}

func TestShapeMismatchIsFatal(t *testing.T) {
	e, _, _ := newEngine(healthy(), &fakePredictor{err: domsvc.ErrFeatureShapeMismatch}, nil)
	_, err := e.Recommend(context.Background(), models.RecommendationRequest{UserID: "u1"})
	if !errors.Is(err, domsvc.ErrFeatureShapeMismatch) {
		t.Fatalf("expected ErrFeatureShapeMismatch, got %v", err)
	}
}

func TestHistoryFailurePropagates(t *testing.T) {
	e, ex, _ := newEngine(healthy(), &fakePredictor{}, nil)
	ex.err = domsvc.ErrCollaboratorUnavailable
	_, err := e.Recommend(context.Background(), models.RecommendationRequest{UserID: "u1"})
	if !errors.Is(err, domsvc.ErrCollaboratorUnavailable) {
		t.Fatalf("expected ErrCollaboratorUnavailable, got %v", err)
	}
}

func TestModelPathClampsAndAlternatives(t *testing.T) {
	e, _, _ := newEngine(healthy(), &fakePredictor{pred: prediction(900)}, nil)
	rec, err := e.Recommend(context.Background(), models.RecommendationRequest{UserID: "u1"})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if rec.RecommendedStress != 500 {
		t.Fatalf("expected clamp to 500, got %v", rec.RecommendedStress)
	}
	if !(rec.LowerBound <= rec.RecommendedStress && rec.RecommendedStress <= rec.UpperBound) {
		t.Fatalf("bounds do not bracket: %+v", rec)
	}
	if len(rec.Alternatives) != 2 {
		t.Fatalf("expected easy and hard alternatives, got %d", len(rec.Alternatives))
	}
	if rec.Alternatives[0].RecommendedStress != 375 || rec.Alternatives[1].RecommendedStress != 500 {
		t.Fatalf("unexpected alternatives %+v", rec.Alternatives)
	}
	for _, alt := range rec.Alternatives {
		if alt.RecommendedStress < 10 || alt.RecommendedStress > 500 {
			t.Fatalf("alternative out of bounds: %v", alt.RecommendedStress)
		}
	}

	low, _, _ := newEngine(healthy(), &fakePredictor{pred: prediction(2)}, nil)
	rec, _ = low.Recommend(context.Background(), models.RecommendationRequest{UserID: "u1"})
	if rec.RecommendedStress != 10 {
		t.Fatalf("expected clamp to 10, got %v", rec.RecommendedStress)
	}
}

func TestNoHardAlternativeWhenFatigued(t *testing.T) {
	fv := healthy()
	fv.TSB = -18
	e, _, _ := newEngine(fv, &fakePredictor{pred: prediction(120)}, nil)
	rec, err := e.Recommend(context.Background(), models.RecommendationRequest{UserID: "u1"})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(rec.Alternatives) != 1 || rec.Alternatives[0].WorkoutType != models.WorkoutEndurance {
		t.Fatalf("expected only the easy alternative, got %+v", rec.Alternatives)
	}
	if rec.Reasoning != "High fatigue levels suggest a recovery or easy workout" {
		t.Fatalf("unexpected reasoning %q", rec.Reasoning)
	}
}

func TestPreferencesAdjustPrediction(t *testing.T) {
	e, _, _ := newEngine(healthy(), &fakePredictor{pred: prediction(200)}, nil)
	maxMin := 60
	rec, err := e.Recommend(context.Background(), models.RecommendationRequest{
		UserID:   "u1",
		Feedback: &models.UserFeedback{EnergyLevel: 10, Motivation: 10, PreferredIntensity: "easy"},
	})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	// factor 0.5 -> x1.15
	if rec.RecommendedStress < 229.99 || rec.RecommendedStress > 230.01 || rec.WorkoutType != models.WorkoutRecovery {
		t.Fatalf("unexpected feedback adjustment %+v", rec)
	}

	rec, _ = e.Recommend(context.Background(), models.RecommendationRequest{
		UserID:               "u1",
		PreferredWorkoutType: models.WorkoutVO2Max,
		MaxDurationMinutes:   &maxMin,
	})
	if rec.RecommendedStress != 100 || rec.WorkoutType != models.WorkoutEndurance {
		t.Fatalf("expected duration cap to 100 endurance, got %+v", rec)
	}

	rec, _ = e.Recommend(context.Background(), models.RecommendationRequest{UserID: "u2", PreferredWorkoutType: models.WorkoutVO2Max})
	if rec.WorkoutType != models.WorkoutVO2Max {
		t.Fatalf("expected explicit type override, got %s", rec.WorkoutType)
	}
}

func TestCacheHitAndExpiry(t *testing.T) {
	ex := &fakeExtractor{fv: healthy()}
	now := today
	c := reccache.NewTTLCache(time.Hour).WithClock(func() time.Time { return now })
	e := NewRecommendationEngine(c, ex, &fakePredictor{pred: prediction(150)}, WithEngineClock(func() time.Time { return today }))
	ctx := context.Background()
	req := models.RecommendationRequest{UserID: "u1"}

	first, _ := e.Recommend(ctx, req)
	if first.Cached {
		t.Fatalf("first call must not be cached")
	}
	second, _ := e.Recommend(ctx, req)
	if !second.Cached || ex.calls != 1 {
		t.Fatalf("expected cache hit, cached=%v calls=%d", second.Cached, ex.calls)
	}

	now = now.Add(61 * time.Minute)
	third, _ := e.Recommend(ctx, req)
	if third.Cached || ex.calls != 2 {
		t.Fatalf("expected miss after expiry, cached=%v calls=%d", third.Cached, ex.calls)
	}

	if n := e.InvalidateUser(ctx, "u1"); n != 1 {
		t.Fatalf("expected 1 invalidated entry, got %d", n)
	}
	if s := e.CacheStats(ctx); s.Total != 0 {
		t.Fatalf("expected empty cache, got %+v", s)
	}
}

func TestAnalyticsFailureIsSwallowed(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("sink down")}
	e, _, _ := newEngine(healthy(), &fakePredictor{pred: prediction(150)}, rec)
	out, err := e.Recommend(context.Background(), models.RecommendationRequest{UserID: "u1"})
	if err != nil {
		t.Fatalf("analytics failure must not fail the request: %v", err)
	}
	if len(rec.events) != 1 || rec.events[0].UserID != "u1" || rec.events[0].ID == "" {
		t.Fatalf("unexpected events %+v", rec.events)
	}
	if rec.events[0].AlternativesCount != len(out.Alternatives) {
		t.Fatalf("event does not match recommendation")
	}
}

func TestTargetEventSetsDaysUntilEvent(t *testing.T) {
	fv := healthy()
	var seen models.FeatureVector
	pred := &capturePredictor{pred: prediction(150), seen: &seen}
	ex := &fakeExtractor{fv: fv}
	e := NewRecommendationEngine(reccache.NewTTLCache(0), ex, pred, WithEngineClock(func() time.Time { return today }))

	event := today.AddDate(0, 0, 12)
	if _, err := e.Recommend(context.Background(), models.RecommendationRequest{UserID: "u1", TargetEventDate: &event}); err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if seen.DaysUntilEvent != 12 {
		t.Fatalf("expected 12 days until event, got %d", seen.DaysUntilEvent)
	}
}

type capturePredictor struct {
	pred models.Prediction
	seen *models.FeatureVector
}

func (c *capturePredictor) Predict(_ context.Context, _ string, fv models.FeatureVector) (models.Prediction, error) {
	*c.seen = fv
	return c.pred, nil
}

func TestCacheKeyPersonalization(t *testing.T) {
	d := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	plain := CacheKey(models.RecommendationRequest{UserID: "u1"}, d)
	if plain != "rec_u1_2024-06-10" {
		t.Fatalf("unexpected plain key %q", plain)
	}
	m := 45
	personal := CacheKey(models.RecommendationRequest{UserID: "u1", MaxDurationMinutes: &m}, d)
	if personal == plain || len(personal) <= len(plain) || personal[:len(plain)+1] != plain+"_" {
		t.Fatalf("unexpected personalized key %q", personal)
	}
}
