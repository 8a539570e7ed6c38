package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"LoadCoach/internal/domain/models"
	domsvc "LoadCoach/internal/domain/service"
	apimetrics "LoadCoach/internal/service/metrics"
	"LoadCoach/internal/service/ratelimit"
	"LoadCoach/internal/usecase"
	xhttp "LoadCoach/pkg/http"
	xlogger "LoadCoach/pkg/logger"
	"LoadCoach/pkg/util"
)

// Recommender is the engine surface used by the HTTP layer.
type Recommender interface {
	Recommend(ctx context.Context, req models.RecommendationRequest) (models.Recommendation, error)
	CacheStats(ctx context.Context) models.CacheStats
	CleanupCache(ctx context.Context) int
}

// ModelTrainer is the training surface used by the HTTP layer.
type ModelTrainer interface {
	TrainUser(ctx context.Context, userID string, kinds []models.ModelKind) (*models.TrainingResult, error)
	Deploy(ctx context.Context, userID, version string) (models.ModelVersion, error)
	ListModels(userID string) []models.ModelVersion
	BatchTrain(ctx context.Context, userIDs []string) []models.BatchTrainingResult
	CrossValidate(ctx context.Context, userID string, k int) ([]models.ModelMetrics, error)
	AssessDataQuality(ctx context.Context, userID string, days int) (models.DataQualityReport, error)
}

// LoadReader serves the training-load series and summary statistics.
type LoadReader interface {
	LoadSeries(ctx context.Context, userID string, days int) (models.LoadSeries, error)
	LoadStats(ctx context.Context, userID string, days int) (models.LoadStats, error)
}

// RecommendationsEchoHandler exposes recommendations, load analytics and model management.
type RecommendationsEchoHandler struct {
	logger   *xlogger.Logger
	engine   Recommender
	training ModelTrainer
	load     LoadReader
	features domsvc.FeatureExtractor
	limiter  *ratelimit.Limiter
	now      func() time.Time
}

func NewRecommendationsEchoHandler(
	logger *xlogger.Logger,
	engine Recommender,
	training ModelTrainer,
	load LoadReader,
	features domsvc.FeatureExtractor,
	limiter *ratelimit.Limiter,
) *RecommendationsEchoHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &RecommendationsEchoHandler{
		logger:   logger,
		engine:   engine,
		training: training,
		load:     load,
		features: features,
		limiter:  limiter,
		now:      time.Now,
	}
}

func (h *RecommendationsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	u := g.Group("/users/:user_id")
	u.GET("/recommendation", h.Recommendation)
	u.POST("/recommendation", h.Recommendation)
	u.GET("/training-load", h.TrainingLoad)
	u.GET("/load-stats", h.LoadStats)
	u.GET("/features", h.Features)
	u.GET("/data-quality", h.DataQuality)
	u.GET("/models", h.ListModels)
	u.POST("/models/train", h.Train)
	u.POST("/models/cross-validate", h.CrossValidate)
	u.POST("/models/:version/deploy", h.Deploy)

	g.POST("/models/batch-train", h.BatchTrain)
	g.GET("/cache/stats", h.CacheStats)
	g.POST("/cache/cleanup", h.CleanupCache)
}

func (h *RecommendationsEchoHandler) Recommendation(c echo.Context) error {
	start := time.Now()
	req := &models.RecommendationHTTPRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rr, err := toRecommendationRequest(req)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	rec, err := h.engine.Recommend(c.Request().Context(), rr)
	if err != nil {
		return h.fail(c, "recommendation", start, err, xlogger.String("user_id", req.UserID))
	}
	apimetrics.Observe("recommendation", start, "")
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, rec)
}

func (h *RecommendationsEchoHandler) TrainingLoad(c echo.Context) error {
	start := time.Now()
	req := &models.LoadWindowRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.load.LoadSeries(c.Request().Context(), req.UserID, req.Days)
	if err != nil {
		return h.fail(c, "training_load", start, err, xlogger.String("user_id", req.UserID))
	}
	apimetrics.Observe("training_load", start, "")
	return xhttp.SuccessResponse(c, res)
}

func (h *RecommendationsEchoHandler) LoadStats(c echo.Context) error {
	start := time.Now()
	req := &models.LoadWindowRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.load.LoadStats(c.Request().Context(), req.UserID, req.Days)
	if err != nil {
		return h.fail(c, "load_stats", start, err, xlogger.String("user_id", req.UserID))
	}
	apimetrics.Observe("load_stats", start, "")
	return xhttp.SuccessResponse(c, res)
}

func (h *RecommendationsEchoHandler) Features(c echo.Context) error {
	start := time.Now()
	req := &models.FeaturesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	date, err := xhttp.ParseDayDefault(req.Date, h.now())
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("date must be YYYY-MM-DD"))
	}
	fv, err := h.features.Extract(c.Request().Context(), req.UserID, date)
	if err != nil {
		return h.fail(c, "features", start, err, xlogger.String("user_id", req.UserID))
	}
	apimetrics.Observe("features", start, "")
	return xhttp.SuccessResponse(c, fv)
}

func (h *RecommendationsEchoHandler) DataQuality(c echo.Context) error {
	start := time.Now()
	req := &models.LoadWindowRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.training.AssessDataQuality(c.Request().Context(), req.UserID, req.Days)
	if err != nil {
		return h.fail(c, "data_quality", start, err, xlogger.String("user_id", req.UserID))
	}
	apimetrics.Observe("data_quality", start, "")
	return xhttp.SuccessResponse(c, res)
}

func (h *RecommendationsEchoHandler) ListModels(c echo.Context) error {
	userID := c.Param("user_id")
	rows := h.training.ListModels(userID)
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *RecommendationsEchoHandler) Train(c echo.Context) error {
	start := time.Now()
	req := &models.TrainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow("train", req.UserID) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("training rate limit exceeded"))
	}
	kinds := make([]models.ModelKind, 0, len(req.Kinds))
	for _, k := range req.Kinds {
		kinds = append(kinds, models.ModelKind(k))
	}
	res, err := h.training.TrainUser(c.Request().Context(), req.UserID, kinds)
	if err != nil {
		return h.fail(c, "train", start, err, xlogger.String("user_id", req.UserID))
	}
	apimetrics.Observe("train", start, "")
	return xhttp.SuccessResponse(c, res)
}

func (h *RecommendationsEchoHandler) CrossValidate(c echo.Context) error {
	start := time.Now()
	req := &models.CrossValidateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow("cross_validate", req.UserID) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("training rate limit exceeded"))
	}
	folds, err := h.training.CrossValidate(c.Request().Context(), req.UserID, req.Folds)
	if err != nil {
		return h.fail(c, "cross_validate", start, err, xlogger.String("user_id", req.UserID))
	}
	apimetrics.Observe("cross_validate", start, "")
	return xhttp.ListResponse(c, folds, int64(len(folds)))
}

func (h *RecommendationsEchoHandler) Deploy(c echo.Context) error {
	start := time.Now()
	req := &models.DeployRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	mv, err := h.training.Deploy(c.Request().Context(), req.UserID, req.Version)
	if err != nil {
		return h.fail(c, "deploy", start, err,
			xlogger.String("user_id", req.UserID),
			xlogger.String("version", req.Version))
	}
	apimetrics.Observe("deploy", start, "")
	return xhttp.SuccessResponse(c, mv)
}

func (h *RecommendationsEchoHandler) BatchTrain(c echo.Context) error {
	start := time.Now()
	req := &models.BatchTrainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow("batch_train", "*") {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("batch training rate limit exceeded"))
	}
	res := h.training.BatchTrain(c.Request().Context(), req.UserIDs)
	apimetrics.Observe("batch_train", start, "")
	return xhttp.ListResponse(c, res, int64(len(res)))
}

func (h *RecommendationsEchoHandler) CacheStats(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.engine.CacheStats(c.Request().Context()))
}

func (h *RecommendationsEchoHandler) CleanupCache(c echo.Context) error {
	removed := h.engine.CleanupCache(c.Request().Context())
	return xhttp.SuccessResponse(c, map[string]int{"removed": removed})
}

func (h *RecommendationsEchoHandler) allow(endpoint, userID string) bool {
	if h.limiter == nil || h.limiter.Allow(endpoint+":"+userID) {
		return true
	}
	apimetrics.RateLimited.WithLabelValues(endpoint).Inc()
	return false
}

func (h *RecommendationsEchoHandler) fail(c echo.Context, endpoint string, start time.Time, err error, fields ...xlogger.Field) error {
	appErr := MapError(err)
	apimetrics.Observe(endpoint, start, appErr.Code)
	fields = append(fields, xlogger.String("endpoint", endpoint), xlogger.Error(err))
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Info("request rejected", fields...)
	}
	return xhttp.AppErrorResponse(c, appErr)
}

// MapError converts domain errors into API errors.
func MapError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, domsvc.ErrInsufficientData):
		return xhttp.UnprocessableError("INSUFFICIENT_DATA", "not enough training history").WithError(err)
	case errors.Is(err, domsvc.ErrNoModelAvailable):
		return xhttp.NotFoundError("NO_MODEL_AVAILABLE", "no trained model for user").WithError(err)
	case errors.Is(err, domsvc.ErrModelVersionNotFound):
		return xhttp.NotFoundError("MODEL_VERSION_NOT_FOUND", "unknown model version").WithError(err)
	case errors.Is(err, domsvc.ErrCollaboratorUnavailable):
		return xhttp.ServiceUnavailableError("COLLABORATOR_UNAVAILABLE", "history store unavailable").WithError(err)
	case errors.Is(err, domsvc.ErrFeatureShapeMismatch):
		return xhttp.InternalError("FEATURE_SHAPE_MISMATCH", "feature vector does not match model").WithError(err)
	case errors.Is(err, usecase.ErrTrainingInProgress):
		return xhttp.NewAppError("TRAINING_IN_PROGRESS", "", "training already running for user", http.StatusConflict).WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.ServiceUnavailableError("TIMEOUT", "request timed out").WithError(err)
	default:
		return xhttp.InternalError("INTERNAL_ERROR", "something went wrong").WithError(err)
	}
}

func toRecommendationRequest(req *models.RecommendationHTTPRequest) (models.RecommendationRequest, error) {
	out := models.RecommendationRequest{
		UserID:               req.UserID,
		PreferredWorkoutType: models.WorkoutType(req.PreferredWorkoutType),
	}
	if req.Date != "" {
		d, err := util.ParseDay(req.Date)
		if err != nil {
			return out, errors.New("date must be YYYY-MM-DD")
		}
		out.TargetDate = &d
	}
	if req.TargetEventDate != "" {
		d, err := util.ParseDay(req.TargetEventDate)
		if err != nil {
			return out, errors.New("target_event_date must be YYYY-MM-DD")
		}
		out.TargetEventDate = &d
	}
	if req.MaxDurationMinutes > 0 {
		m := req.MaxDurationMinutes
		out.MaxDurationMinutes = &m
	}
	if f := req.Feedback; f != nil {
		out.Feedback = &models.UserFeedback{
			PerceivedDifficulty:  f.PerceivedDifficulty,
			EnergyLevel:          f.EnergyLevel,
			Motivation:           f.Motivation,
			AvailableTimeMinutes: f.AvailableTimeMinutes,
			PreferredIntensity:   f.PreferredIntensity,
		}
	}
	return out, nil
}
