package modeling

import (
	"fmt"
	"time"

	"LoadCoach/internal/domain/models"
	domsvc "LoadCoach/internal/domain/service"

	"github.com/goccy/go-json"
)

const artifactFormat = 1

// FittedModel is an immutable trained model. Exactly one of Linear or Forest
// is set, matching Kind.
type FittedModel struct {
	Format    int                 `json:"format"`
	UserID    string              `json:"user_id"`
	Kind      models.ModelKind    `json:"kind"`
	Version   string              `json:"version"`
	Features  []string            `json:"features"`
	Scaler    Scaler              `json:"scaler"`
	Linear    *LinearModel        `json:"linear,omitempty"`
	Forest    *Forest             `json:"forest,omitempty"`
	Metrics   models.ModelMetrics `json:"metrics"`
	TrainedAt time.Time           `json:"trained_at"`
}

// Width is the feature count the model was trained on.
func (m *FittedModel) Width() int { return m.Scaler.Width() }

// PredictValues standardizes one raw feature row and evaluates the model.
// A width different from training is ErrFeatureShapeMismatch.
func (m *FittedModel) PredictValues(values []float64) (float64, error) {
	if len(values) != m.Width() {
		return 0, fmt.Errorf("%w: model %s expects %d features, got %d",
			domsvc.ErrFeatureShapeMismatch, m.Version, m.Width(), len(values))
	}
	z := m.Scaler.Transform(values)

	switch m.Kind {
	case models.KindLinearRegression:
		if m.Linear == nil {
			return 0, fmt.Errorf("model %s: missing linear coefficients", m.Version)
		}
		return m.Linear.Predict(z), nil
	case models.KindRandomForest:
		if m.Forest == nil {
			return 0, fmt.Errorf("model %s: missing forest", m.Version)
		}
		return BinToStress(m.Forest.Predict(z)), nil
	default:
		return 0, fmt.Errorf("model %s: unknown kind %q", m.Version, m.Kind)
	}
}

// EncodeModel serializes a model artifact.
func EncodeModel(m *FittedModel) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode model %s: %w", m.Version, err)
	}
	return b, nil
}

// DecodeModel parses an artifact written by EncodeModel.
func DecodeModel(b []byte) (*FittedModel, error) {
	var m FittedModel
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if m.Format != artifactFormat {
		return nil, fmt.Errorf("decode model %s: unsupported format %d", m.Version, m.Format)
	}
	if !m.Kind.IsValid() {
		return nil, fmt.Errorf("decode model %s: unknown kind %q", m.Version, m.Kind)
	}
	return &m, nil
}
