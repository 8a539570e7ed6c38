package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"LoadCoach/internal/domain/models"
	domrepo "LoadCoach/internal/domain/repository"
	domsvc "LoadCoach/internal/domain/service"
	"LoadCoach/internal/services/modeling"
	pkgcache "LoadCoach/pkg/cache"
	"LoadCoach/pkg/logger"
	"LoadCoach/pkg/util"
)

// SampleSource builds training samples from a user's history.
type SampleSource interface {
	BuildSamples(ctx context.Context, userID string, from, to time.Time) ([]models.TrainingSample, error)
}

// UserInvalidator drops state derived from a user's old model or history.
type UserInvalidator interface {
	InvalidateUser(ctx context.Context, userID string) int
}

type TrainingConfig struct {
	WindowDays       int
	ForestMinSamples int
	BatchWorkers     int
	LockTTL          time.Duration
}

func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{WindowDays: 365, ForestMinSamples: 50, BatchWorkers: 4, LockTTL: 10 * time.Minute}
}

// TrainingUseCase runs training, evaluation and deployment per user.
type TrainingUseCase struct {
	cfg          TrainingConfig
	samples      SampleSource
	trainer      *modeling.Trainer
	registry     *modeling.Registry
	locks        pkgcache.Service
	invalidators []UserInvalidator
	metrics      domrepo.Metrics
	log          *logger.Logger
	now          func() time.Time
}

type TrainingOption func(*TrainingUseCase)

func WithTrainingConfig(cfg TrainingConfig) TrainingOption {
	return func(u *TrainingUseCase) { u.cfg = cfg }
}

// WithTrainingLocks serializes training per user through cache locks.
func WithTrainingLocks(c pkgcache.Service) TrainingOption {
	return func(u *TrainingUseCase) { u.locks = c }
}

// WithInvalidator adds caches to clear after a user's model changes.
func WithInvalidator(inv ...UserInvalidator) TrainingOption {
	return func(u *TrainingUseCase) { u.invalidators = append(u.invalidators, inv...) }
}

func WithTrainingMetrics(m domrepo.Metrics) TrainingOption {
	return func(u *TrainingUseCase) { u.metrics = m }
}

func WithTrainingLogger(l *logger.Logger) TrainingOption {
	return func(u *TrainingUseCase) { u.log = l }
}

func WithTrainingClock(now func() time.Time) TrainingOption {
	return func(u *TrainingUseCase) { u.now = now }
}

func NewTrainingUseCase(samples SampleSource, trainer *modeling.Trainer, registry *modeling.Registry, opts ...TrainingOption) *TrainingUseCase {
	u := &TrainingUseCase{
		cfg:      DefaultTrainingConfig(),
		samples:  samples,
		trainer:  trainer,
		registry: registry,
		metrics:  domrepo.NopMetrics{},
		log:      logger.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.cfg.BatchWorkers <= 0 {
		u.cfg.BatchWorkers = 1
	}
	return u
}

func (u *TrainingUseCase) window(days int) (time.Time, time.Time) {
	if days <= 0 {
		days = u.cfg.WindowDays
	}
	to := util.StartOfDay(u.now())
	return util.AddDays(to, -days+1), to
}

// TrainUser fits the requested kinds, registers every successful fit and
// deploys the one with the lowest held-out RMSE. With no kinds given, linear
// is always tried and the forest only once enough samples exist.
func (u *TrainingUseCase) TrainUser(ctx context.Context, userID string, kinds []models.ModelKind) (*models.TrainingResult, error) {
	if u.locks != nil {
		key := pkgcache.GenerateKey("train", userID)
		ok, err := u.locks.TryLock(ctx, key, u.cfg.LockTTL)
		if err != nil {
			u.log.Warn("training lock unavailable", logger.String("user_id", userID), logger.Error(err))
		} else if !ok {
			return nil, ErrTrainingInProgress
		} else {
			defer func() { _ = u.locks.Unlock(context.Background(), key) }()
		}
	}

	from, to := u.window(0)
	samples, err := u.samples.BuildSamples(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	explicit := len(kinds) > 0
	if !explicit {
		kinds = []models.ModelKind{models.KindLinearRegression}
		if len(samples) >= u.cfg.ForestMinSamples {
			kinds = append(kinds, models.KindRandomForest)
		}
	}

	res := &models.TrainingResult{UserID: userID, Samples: len(samples)}
	var best *modeling.FittedModel
	var lastErr error
	for _, kind := range kinds {
		m, err := u.trainer.Fit(userID, kind, samples)
		if err != nil {
			lastErr = err
			outcome := "error"
			if errors.Is(err, domsvc.ErrInsufficientData) {
				outcome = "insufficient_data"
			}
			u.metrics.RecordTraining(string(kind), outcome)
			u.log.Warn("training failed",
				logger.String("user_id", userID),
				logger.String("kind", string(kind)),
				logger.Int("samples", len(samples)),
				logger.Error(err))
			continue
		}
		if _, err := u.registry.Register(ctx, m); err != nil {
			return nil, err
		}
		u.metrics.RecordTraining(string(kind), "ok")
		u.metrics.RecordModelRMSE(string(kind), m.Metrics.RMSE)
		res.Metrics = append(res.Metrics, m.Metrics)
		if best == nil || m.Metrics.RMSE < best.Metrics.RMSE {
			best = m
		}
	}
	if best == nil {
		return nil, lastErr
	}

	if _, err := u.Deploy(ctx, userID, best.Version); err != nil {
		return nil, err
	}
	res.Deployed = best.Version
	return res, nil
}

// Deploy makes version current and drops the user's cached recommendations.
func (u *TrainingUseCase) Deploy(ctx context.Context, userID, version string) (models.ModelVersion, error) {
	v, err := u.registry.Deploy(ctx, userID, version)
	if err != nil {
		return models.ModelVersion{}, err
	}
	for _, inv := range u.invalidators {
		inv.InvalidateUser(ctx, userID)
	}
	return v, nil
}

func (u *TrainingUseCase) ListModels(userID string) []models.ModelVersion {
	return u.registry.List(userID)
}

// BatchTrain trains many users with bounded parallelism. Failures are
// reported per user; results keep the input order.
func (u *TrainingUseCase) BatchTrain(ctx context.Context, userIDs []string) []models.BatchTrainingResult {
	out := make([]models.BatchTrainingResult, len(userIDs))
	sem := make(chan struct{}, u.cfg.BatchWorkers)
	var wg sync.WaitGroup

	for i, id := range userIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				out[i] = models.BatchTrainingResult{UserID: id, Error: ctx.Err().Error()}
				return
			}
			res, err := u.TrainUser(ctx, id, nil)
			out[i] = models.BatchTrainingResult{UserID: id, Result: res}
			if err != nil {
				out[i].Error = err.Error()
			}
		}(i, id)
	}
	wg.Wait()

	failed := 0
	for _, r := range out {
		if r.Error != "" {
			failed++
		}
	}
	u.log.Info("batch training finished", logger.Int("users", len(userIDs)), logger.Int("failed", failed))
	return out
}

// CrossValidate runs k-fold validation of the linear model over the training window.
func (u *TrainingUseCase) CrossValidate(ctx context.Context, userID string, k int) ([]models.ModelMetrics, error) {
	from, to := u.window(0)
	samples, err := u.samples.BuildSamples(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	return u.trainer.CrossValidate(userID, samples, k)
}

// AssessDataQuality reports how usable the last days of history are for training.
func (u *TrainingUseCase) AssessDataQuality(ctx context.Context, userID string, days int) (models.DataQualityReport, error) {
	from, to := u.window(days)
	samples, err := u.samples.BuildSamples(ctx, userID, from, to)
	if err != nil {
		return models.DataQualityReport{}, fmt.Errorf("data quality for %s: %w", userID, err)
	}
	return modeling.AssessQuality(userID, samples), nil
}
