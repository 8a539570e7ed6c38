package modeling

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"LoadCoach/internal/domain/models"
	domsvc "LoadCoach/internal/domain/service"
	"LoadCoach/pkg/logger"
)

// TrainerConfig holds the knobs of a training run.
type TrainerConfig struct {
	MinRegressionSamples     int
	MinClassificationSamples int
	TestFraction             float64
	Ridge                    float64
	Forest                   ForestParams
}

func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		MinRegressionSamples:     10,
		MinClassificationSamples: 20,
		TestFraction:             0.2,
		Ridge:                    DefaultRidge,
		Forest:                   DefaultForestParams(),
	}
}

// Trainer fits models and publishes successful fits to the registry.
type Trainer struct {
	cfg      TrainerConfig
	registry *Registry
	now      func() time.Time
	log      *logger.Logger
}

type TrainerOption func(*Trainer)

func WithTrainerConfig(cfg TrainerConfig) TrainerOption {
	return func(t *Trainer) { t.cfg = cfg }
}

// WithClock overrides time.Now, which stamps versions and metrics.
func WithClock(now func() time.Time) TrainerOption {
	return func(t *Trainer) { t.now = now }
}

func WithTrainerLogger(l *logger.Logger) TrainerOption {
	return func(t *Trainer) { t.log = l }
}

func NewTrainer(registry *Registry, opts ...TrainerOption) *Trainer {
	t := &Trainer{
		cfg:      DefaultTrainerConfig(),
		registry: registry,
		now:      time.Now,
		log:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.cfg.TestFraction <= 0 || t.cfg.TestFraction >= 1 {
		t.cfg.TestFraction = 0.2
	}
	return t
}

// MinSamples is the smallest training set accepted for kind.
func (t *Trainer) MinSamples(kind models.ModelKind) int {
	if kind == models.KindRandomForest {
		return t.cfg.MinClassificationSamples
	}
	return t.cfg.MinRegressionSamples
}

// Train fits kind on samples and, on success, registers the model and makes it
// the user's current model in one swap. On failure nothing changes.
func (t *Trainer) Train(ctx context.Context, userID string, kind models.ModelKind, samples []models.TrainingSample) (models.ModelMetrics, error) {
	m, err := t.Fit(userID, kind, samples)
	if err != nil {
		return models.ModelMetrics{}, err
	}
	if _, err := t.registry.Register(ctx, m); err != nil {
		return models.ModelMetrics{}, err
	}
	if _, err := t.registry.Deploy(ctx, userID, m.Version); err != nil {
		return models.ModelMetrics{}, err
	}
	return m.Metrics, nil
}

// Fit trains on the oldest part of the samples and evaluates on the newest.
// The split is chronological so retraining on the same data is reproducible.
func (t *Trainer) Fit(userID string, kind models.ModelKind, samples []models.TrainingSample) (*FittedModel, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("unknown model kind %q", kind)
	}
	if need := t.MinSamples(kind); len(samples) < need {
		return nil, fmt.Errorf("%w: %d samples for %s, need %d", domsvc.ErrInsufficientData, len(samples), kind, need)
	}

	x, y, err := design(samples)
	if err != nil {
		return nil, err
	}
	nTest := int(math.Round(float64(len(x)) * t.cfg.TestFraction))
	if nTest < 1 {
		nTest = 1
	}
	nTrain := len(x) - nTest

	m, err := t.fitSplit(userID, kind, x[:nTrain], y[:nTrain], x[nTrain:], y[nTrain:])
	if err != nil {
		return nil, err
	}
	t.log.Info("model trained",
		logger.String("user_id", userID),
		logger.String("kind", string(kind)),
		logger.String("version", m.Version),
		logger.Int("train_samples", nTrain),
		logger.Float64("rmse", m.Metrics.RMSE),
		logger.Float64("mae", m.Metrics.MAE),
		logger.Float64("r2", m.Metrics.R2))
	return m, nil
}

func (t *Trainer) fitSplit(userID string, kind models.ModelKind, xTrain [][]float64, yTrain []float64, xTest [][]float64, yTest []float64) (*FittedModel, error) {
	scaler := FitScaler(xTrain)
	zTrain := scaler.TransformAll(xTrain)
	now := t.now().UTC()

	m := &FittedModel{
		Format:    artifactFormat,
		UserID:    userID,
		Kind:      kind,
		Version:   fmt.Sprintf("%s_v%d", kind.VersionPrefix(), now.UnixMilli()),
		Features:  models.FeatureNames(),
		Scaler:    scaler,
		TrainedAt: now,
	}

	switch kind {
	case models.KindLinearRegression:
		lm, err := FitLinear(zTrain, yTrain, t.cfg.Ridge)
		if err != nil {
			return nil, err
		}
		m.Linear = lm
	case models.KindRandomForest:
		labels := make([]int, len(yTrain))
		for i, v := range yTrain {
			labels[i] = StressToBin(v)
		}
		m.Forest = FitForest(zTrain, labels, StressBins, t.cfg.Forest)
	}

	pred := make([]float64, len(xTest))
	for i, row := range xTest {
		p, err := m.PredictValues(row)
		if err != nil {
			return nil, err
		}
		pred[i] = math.Max(p, 0)
	}
	mae, rmse, r2 := evaluate(pred, yTest)
	m.Metrics = models.ModelMetrics{
		Kind:        kind,
		MAE:         mae,
		RMSE:        rmse,
		R2:          r2,
		SampleCount: len(yTest),
		Version:     m.Version,
		EvaluatedAt: now,
	}
	return m, nil
}

// CrossValidate runs contiguous k-fold validation of the linear model over the
// chronologically ordered samples. The last fold absorbs the remainder and
// folds that cannot be fit are skipped.
func (t *Trainer) CrossValidate(userID string, samples []models.TrainingSample, k int) ([]models.ModelMetrics, error) {
	if k < 2 {
		return nil, errors.New("cross-validation needs at least 2 folds")
	}
	if need := t.MinSamples(models.KindLinearRegression); len(samples) < need {
		return nil, fmt.Errorf("%w: %d samples, need %d", domsvc.ErrInsufficientData, len(samples), need)
	}
	x, y, err := design(samples)
	if err != nil {
		return nil, err
	}
	if k > len(x) {
		k = len(x)
	}

	foldSize := len(x) / k
	out := make([]models.ModelMetrics, 0, k)
	for fold := 0; fold < k; fold++ {
		start, end := fold*foldSize, (fold+1)*foldSize
		if fold == k-1 {
			end = len(x)
		}
		var xTrain, xTest [][]float64
		var yTrain, yTest []float64
		for i := range x {
			if i >= start && i < end {
				xTest, yTest = append(xTest, x[i]), append(yTest, y[i])
			} else {
				xTrain, yTrain = append(xTrain, x[i]), append(yTrain, y[i])
			}
		}
		m, err := t.fitSplit(userID, models.KindLinearRegression, xTrain, yTrain, xTest, yTest)
		if err != nil {
			t.log.Warn("cross-validation fold failed",
				logger.String("user_id", userID),
				logger.Int("fold", fold),
				logger.Error(err))
			continue
		}
		m.Metrics.Version = fmt.Sprintf("%s_fold%d", m.Version, fold)
		out = append(out, m.Metrics)
	}
	return out, nil
}

// design orders samples by date and flattens them into a feature matrix.
func design(samples []models.TrainingSample) ([][]float64, []float64, error) {
	ordered := append([]models.TrainingSample(nil), samples...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	x := make([][]float64, len(ordered))
	y := make([]float64, len(ordered))
	for i, s := range ordered {
		x[i] = s.Features.Values()
		y[i] = s.ActualStress
		if len(x[i]) != len(x[0]) {
			return nil, nil, fmt.Errorf("%w: sample %d has %d features, expected %d",
				domsvc.ErrFeatureShapeMismatch, i, len(x[i]), len(x[0]))
		}
	}
	return x, y, nil
}
