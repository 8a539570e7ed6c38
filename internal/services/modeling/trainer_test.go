package modeling

import (
	"context"
	"errors"
	"math"
	"strconv"
	"testing"
	"time"

	"LoadCoach/internal/domain/models"
	domsvc "LoadCoach/internal/domain/service"
)

var base = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// linearSamples returns n samples whose stress is 1.5*ctl + 30 with small noise.
// ctl values are spread so every split sees the full range.
func linearSamples(n int) []models.TrainingSample {
	out := make([]models.TrainingSample, n)
	for i := 0; i < n; i++ {
		ctl := 20 + float64((i*7)%25)*4
		noise := float64(i%3-1) * 2
		out[i] = models.TrainingSample{
			Features: models.FeatureVector{
				UserID:               "u1",
				Date:                 base.AddDate(0, 0, i),
				CTL:                  ctl,
				ATL:                  50,
				TSB:                  ctl - 50,
				DaysSinceLastWorkout: 1,
				AvgWeeklyStress4Wk:   300,
				DaysUntilEvent:       models.NoTargetEvent,
				SeasonalFactor:       1,
			},
			ActualStress: 1.5*ctl + 30 + noise,
			Date:         base.AddDate(0, 0, i),
		}
	}
	return out
}

func fixedClock(ts time.Time) func() time.Time { return func() time.Time { return ts } }

func TestTrainLinearFitsLinearRelation(t *testing.T) {
	reg := NewRegistry()
	tr := NewTrainer(reg, WithClock(fixedClock(base)))

	m, err := tr.Train(context.Background(), "u1", models.KindLinearRegression, linearSamples(25))
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if m.R2 <= 0.7 {
		t.Fatalf("expected r2 > 0.7, got %v", m.R2)
	}
	if m.RMSE >= 20 {
		t.Fatalf("expected rmse < 20, got %v", m.RMSE)
	}
	if m.SampleCount != 5 {
		t.Fatalf("expected 5 test samples, got %d", m.SampleCount)
	}
	if m.Version != "linear_v"+strconv.FormatInt(base.UnixMilli(), 10) {
		t.Fatalf("unexpected version %q", m.Version)
	}

	cur, err := reg.Current(context.Background(), "u1")
	if err != nil || cur.Version != m.Version {
		t.Fatalf("expected current %s, got %v %v", m.Version, cur, err)
	}
}

func TestTrainInsufficientDataKeepsCurrentModel(t *testing.T) {
	reg := NewRegistry()
	tr := NewTrainer(reg, WithClock(fixedClock(base)))
	ctx := context.Background()

	first, err := tr.Train(ctx, "u1", models.KindLinearRegression, linearSamples(25))
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	_, err = tr.Train(ctx, "u1", models.KindLinearRegression, linearSamples(5))
	if !errors.Is(err, domsvc.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	_, err = tr.Train(ctx, "u1", models.KindRandomForest, linearSamples(15))
	if !errors.Is(err, domsvc.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for forest, got %v", err)
	}

	cur, err := reg.Current(ctx, "u1")
	if err != nil || cur.Version != first.Version {
		t.Fatalf("current model changed: %v %v", cur, err)
	}
}

func TestTrainForestPredictsBinRepresentatives(t *testing.T) {
	tr := NewTrainer(NewRegistry(), WithClock(fixedClock(base)))
	m, err := tr.Fit("u1", models.KindRandomForest, linearSamples(30))
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if m.Forest == nil || len(m.Forest.Trees) != DefaultForestParams().Trees {
		t.Fatalf("unexpected forest %+v", m.Forest)
	}

	for _, s := range linearSamples(30) {
		p, err := m.PredictValues(s.Features.Values())
		if err != nil {
			t.Fatalf("predict: %v", err)
		}
		found := false
		for _, r := range binRepresentatives {
			if p == r {
				found = true
			}
		}
		if !found {
			t.Fatalf("prediction %v is not a bin representative", p)
		}
	}
}

func TestForestIsDeterministic(t *testing.T) {
	tr := NewTrainer(NewRegistry(), WithClock(fixedClock(base)))
	a, err := tr.Fit("u1", models.KindRandomForest, linearSamples(30))
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	b, _ := tr.Fit("u1", models.KindRandomForest, linearSamples(30))
	ea, _ := EncodeModel(a)
	eb, _ := EncodeModel(b)
	if string(ea) != string(eb) {
		t.Fatalf("same seed produced different forests")
	}
}

func TestPredictShapeMismatch(t *testing.T) {
	tr := NewTrainer(NewRegistry(), WithClock(fixedClock(base)))
	m, err := tr.Fit("u1", models.KindLinearRegression, linearSamples(20))
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	_, err = m.PredictValues([]float64{1, 2, 3})
	if !errors.Is(err, domsvc.ErrFeatureShapeMismatch) {
		t.Fatalf("expected ErrFeatureShapeMismatch, got %v", err)
	}
}

func TestScalerStandardizesTrainingColumns(t *testing.T) {
	rows := [][]float64{{1, 5}, {2, 5}, {3, 5}}
	s := FitScaler(rows)
	if s.Std[1] != 1 {
		t.Fatalf("constant column should get std 1, got %v", s.Std[1])
	}
	z := s.TransformAll(rows)
	sum := 0.0
	for _, r := range z {
		sum += r[0]
		if r[1] != 0 {
			t.Fatalf("constant column should transform to 0, got %v", r[1])
		}
	}
	if math.Abs(sum) > 1e-12 {
		t.Fatalf("expected zero mean, got %v", sum)
	}
}

func TestCrossValidateReturnsOneMetricPerFold(t *testing.T) {
	tr := NewTrainer(NewRegistry(), WithClock(fixedClock(base)))
	got, err := tr.CrossValidate("u1", linearSamples(40), 4)
	if err != nil {
		t.Fatalf("cross validate: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 folds, got %d", len(got))
	}
	for _, m := range got {
		if m.RMSE >= 20 {
			t.Fatalf("fold rmse too high: %+v", m)
		}
	}

	if _, err := tr.CrossValidate("u1", linearSamples(40), 1); err == nil {
		t.Fatalf("expected error for k=1")
	}
}

func TestStressBins(t *testing.T) {
	cases := map[float64]int{0: 0, 50: 0, 51: 1, 100: 1, 150: 2, 250: 3, 400: 4, 401: 5, 900: 5}
	for in, want := range cases {
		if got := StressToBin(in); got != want {
			t.Fatalf("StressToBin(%v) = %d, want %d", in, got, want)
		}
	}
	if BinToStress(-1) != 25 || BinToStress(9) != 450 {
		t.Fatalf("out of range bins should clamp")
	}
}

func TestAssessQuality(t *testing.T) {
	samples := linearSamples(25)
	samples[0].ActualStress = 0
	samples[1].ActualStress = 700

	r := AssessQuality("u1", samples)
	if r.TotalSamples != 25 || r.ValidSamples != 24 || r.ZeroStress != 1 || r.ExtremeStress != 1 {
		t.Fatalf("unexpected report %+v", r)
	}
	if !r.IsSufficient {
		t.Fatalf("expected sufficient data")
	}
	if len(r.Recommendations) != 1 {
		t.Fatalf("expected only the sample-count advice, got %v", r.Recommendations)
	}

	empty := AssessQuality("u2", nil)
	if empty.IsSufficient || empty.DataCompleteness != 0 {
		t.Fatalf("unexpected empty report %+v", empty)
	}
}
