package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"LoadCoach/internal/domain/models"
	domrepo "LoadCoach/internal/domain/repository"
	domsvc "LoadCoach/internal/domain/service"
	reccache "LoadCoach/internal/service/cache"
	pkgcache "LoadCoach/pkg/cache"
	"LoadCoach/pkg/logger"
	"LoadCoach/pkg/util"

	"github.com/google/uuid"
)

// EngineConfig holds the thresholds and fallback levels of the engine.
type EngineConfig struct {
	MinDataPoints         int
	NewUserThresholdDays  int
	FallbackEasy          float64
	FallbackModerate      float64
	FallbackHard          float64
	MaxBalanceForHard     float64
	MinBalanceForRecovery float64
	DetrainingCeiling     float64
	MinStress             float64
	MaxStress             float64
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MinDataPoints:         5,
		NewUserThresholdDays:  14,
		FallbackEasy:          75,
		FallbackModerate:      150,
		FallbackHard:          250,
		MaxBalanceForHard:     -15,
		MinBalanceForRecovery: -25,
		DetrainingCeiling:     50,
		MinStress:             10,
		MaxStress:             500,
	}
}

// RecommendationEngine turns features and the user's current model into a
// safe, cached recommendation.
type RecommendationEngine struct {
	cfg       EngineConfig
	cache     reccache.RecommendationCache
	extractor domsvc.FeatureExtractor
	predictor domsvc.Predictor
	analytics domsvc.AnalyticsRecorder
	metrics   domrepo.Metrics
	log       *logger.Logger
	now       func() time.Time
}

type EngineOption func(*RecommendationEngine)

func WithEngineConfig(cfg EngineConfig) EngineOption {
	return func(e *RecommendationEngine) { e.cfg = cfg }
}

func WithAnalytics(a domsvc.AnalyticsRecorder) EngineOption {
	return func(e *RecommendationEngine) { e.analytics = a }
}

func WithMetrics(m domrepo.Metrics) EngineOption {
	return func(e *RecommendationEngine) { e.metrics = m }
}

func WithEngineLogger(l *logger.Logger) EngineOption {
	return func(e *RecommendationEngine) { e.log = l }
}

func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *RecommendationEngine) { e.now = now }
}

func NewRecommendationEngine(cache reccache.RecommendationCache, extractor domsvc.FeatureExtractor, predictor domsvc.Predictor, opts ...EngineOption) *RecommendationEngine {
	e := &RecommendationEngine{
		cfg:       DefaultEngineConfig(),
		cache:     cache,
		extractor: extractor,
		predictor: predictor,
		metrics:   domrepo.NopMetrics{},
		log:       logger.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recommend serves req from cache or generates, caches and records a new
// recommendation. Only history-store failures and fatal model errors are
// returned; a missing model falls back to a conservative recommendation.
func (e *RecommendationEngine) Recommend(ctx context.Context, req models.RecommendationRequest) (models.Recommendation, error) {
	if req.UserID == "" {
		return models.Recommendation{}, errors.New("user id required")
	}
	start := e.now()
	defer func() { e.metrics.RecordLatency("recommend", e.now().Sub(start).Seconds()) }()

	date := util.StartOfDay(start)
	if req.TargetDate != nil {
		date = util.StartOfDay(*req.TargetDate)
	}
	key := CacheKey(req, date)

	if rec, ok := e.cache.Get(ctx, key); ok {
		e.metrics.RecordCacheLookup(true)
		e.metrics.RecordRecommendation("cache")
		rec.Cached = true
		return rec, nil
	}
	e.metrics.RecordCacheLookup(false)

	fv, err := e.extractor.Extract(ctx, req.UserID, date)
	if err != nil {
		return models.Recommendation{}, fmt.Errorf("extract features: %w", err)
	}
	if req.TargetEventDate != nil {
		if d := util.DaysBetween(date, *req.TargetEventDate); d >= 0 {
			fv.DaysUntilEvent = d
		}
	}

	var rec models.Recommendation
	if edge := e.DetectEdgeCase(fv); edge != models.EdgeCaseNone {
		rec = e.fallback(edge, fv)
	} else {
		pred, err := e.predictor.Predict(ctx, req.UserID, fv)
		switch {
		case errors.Is(err, domsvc.ErrNoModelAvailable):
			rec = e.fallback(models.EdgeCaseNoModel, fv)
		case err != nil:
			return models.Recommendation{}, fmt.Errorf("predict: %w", err)
		default:
			rec = e.fromPrediction(pred, fv, req)
		}
	}

	rec.UserID = req.UserID
	rec.Date = util.FormatDay(date)
	rec.GeneratedAt = e.now().UTC()
	rec.Alternatives = e.alternatives(rec, fv)

	source := "model"
	if rec.EdgeCase != models.EdgeCaseNone {
		source = "fallback"
		e.metrics.RecordEdgeCase(string(rec.EdgeCase))
	}
	e.metrics.RecordRecommendation(source)

	e.cache.Set(ctx, key, rec)
	e.record(ctx, rec)
	return rec, nil
}

func (e *RecommendationEngine) record(ctx context.Context, rec models.Recommendation) {
	if e.analytics == nil {
		return
	}
	ev := models.RecommendationEvent{
		ID:                uuid.NewString(),
		UserID:            rec.UserID,
		Date:              rec.Date,
		RecommendedStress: rec.RecommendedStress,
		Confidence:        rec.Confidence,
		WorkoutType:       rec.WorkoutType,
		ModelVersion:      rec.ModelVersion,
		EdgeCase:          rec.EdgeCase,
		AlternativesCount: len(rec.Alternatives),
		WarningsCount:     len(rec.Warnings),
		Cached:            rec.Cached,
		GeneratedAt:       rec.GeneratedAt,
	}
	if err := e.analytics.Record(ctx, ev); err != nil {
		e.metrics.RecordAnalyticsFailure("recorder")
		e.log.Warn("analytics record failed",
			logger.String("user_id", rec.UserID),
			logger.String("date", rec.Date),
			logger.Error(err))
	}
}

// CacheStats reports total and expired cache entries.
func (e *RecommendationEngine) CacheStats(ctx context.Context) models.CacheStats {
	return e.cache.Stats(ctx)
}

// CleanupCache removes expired entries and returns how many were dropped.
func (e *RecommendationEngine) CleanupCache(ctx context.Context) int {
	n := e.cache.Cleanup(ctx)
	if n > 0 {
		e.log.Info("recommendation cache cleaned", logger.Int("removed", n))
	}
	return n
}

// InvalidateUser drops every cached recommendation of a user.
func (e *RecommendationEngine) InvalidateUser(ctx context.Context, userID string) int {
	return e.cache.InvalidateUser(ctx, userID)
}

// CacheKey is rec_{user}_{date}; personalized requests get a hash suffix so
// they never collide with the plain entry.
func CacheKey(req models.RecommendationRequest, date time.Time) string {
	key := reccache.UserPrefix(req.UserID) + util.FormatDay(date)

	var parts []string
	if req.PreferredWorkoutType != "" {
		parts = append(parts, "type="+string(req.PreferredWorkoutType))
	}
	if req.MaxDurationMinutes != nil {
		parts = append(parts, fmt.Sprintf("max=%d", *req.MaxDurationMinutes))
	}
	if fb := req.Feedback; fb != nil {
		parts = append(parts, fmt.Sprintf("fb=%d/%d/%d/%d/%s",
			fb.PerceivedDifficulty, fb.EnergyLevel, fb.Motivation, fb.AvailableTimeMinutes, fb.PreferredIntensity))
	}
	if req.TargetEventDate != nil {
		parts = append(parts, "event="+util.FormatDay(*req.TargetEventDate))
	}
	if len(parts) == 0 {
		return key
	}
	return key + "_" + pkgcache.HashKey(strings.Join(parts, "|"))
}
