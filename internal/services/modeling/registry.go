package modeling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"LoadCoach/internal/domain/models"
	"LoadCoach/internal/domain/repository"
	domsvc "LoadCoach/internal/domain/service"
	"LoadCoach/pkg/logger"
)

const defaultHydrateInterval = time.Minute

// Registry tracks every model version per user and the current one. Predict
// reads the current model through an atomic pointer, so a deploy is seen
// either fully or not at all. An optional artifact store makes versions and
// the current pointer survive restarts and visible to other instances.
type Registry struct {
	mu      sync.RWMutex
	users   map[string]*userModels
	store   repository.ModelArtifactStore
	log     *logger.Logger
	now     func() time.Time
	refresh time.Duration
}

type userModels struct {
	current atomic.Pointer[FittedModel]

	mu        sync.Mutex
	versions  map[string]*versionEntry
	checkedAt time.Time
}

type versionEntry struct {
	meta  models.ModelVersion
	model *FittedModel
}

type RegistryOption func(*Registry)

func WithArtifactStore(s repository.ModelArtifactStore) RegistryOption {
	return func(r *Registry) { r.store = s }
}

func WithRegistryLogger(l *logger.Logger) RegistryOption {
	return func(r *Registry) { r.log = l }
}

func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// WithHydrateInterval bounds how often a user without a model re-checks the store.
func WithHydrateInterval(d time.Duration) RegistryOption {
	return func(r *Registry) { r.refresh = d }
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		users:   make(map[string]*userModels),
		log:     logger.NewNop(),
		now:     time.Now,
		refresh: defaultHydrateInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) user(userID string) *userModels {
	r.mu.RLock()
	u, ok := r.users[userID]
	r.mu.RUnlock()
	if ok {
		return u
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok = r.users[userID]; !ok {
		u = &userModels{versions: make(map[string]*versionEntry)}
		r.users[userID] = u
	}
	return u
}

// Register stores m as a staging version. The artifact is persisted before the
// version becomes visible.
func (r *Registry) Register(ctx context.Context, m *FittedModel) (models.ModelVersion, error) {
	if r.store != nil {
		b, err := EncodeModel(m)
		if err != nil {
			return models.ModelVersion{}, err
		}
		if err := r.store.Save(ctx, m.UserID, m.Version, b); err != nil {
			return models.ModelVersion{}, fmt.Errorf("save model %s: %w", m.Version, err)
		}
	}

	meta := models.ModelVersion{
		UserID:    m.UserID,
		Version:   m.Version,
		Kind:      m.Kind,
		Status:    models.StatusStaging,
		Metrics:   m.Metrics,
		CreatedAt: m.TrainedAt,
	}
	u := r.user(m.UserID)
	u.mu.Lock()
	u.versions[m.Version] = &versionEntry{meta: meta, model: m}
	u.mu.Unlock()
	return meta, nil
}

// Deploy makes version the user's current model. The shared pointer is written
// first; if that fails the previous model stays current.
func (r *Registry) Deploy(ctx context.Context, userID, version string) (models.ModelVersion, error) {
	u := r.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	entry, ok := u.versions[version]
	if !ok {
		m, err := r.loadArtifact(ctx, userID, version)
		if err != nil {
			return models.ModelVersion{}, err
		}
		entry = &versionEntry{model: m, meta: models.ModelVersion{
			UserID: userID, Version: version, Kind: m.Kind, Metrics: m.Metrics, CreatedAt: m.TrainedAt,
		}}
		u.versions[version] = entry
	}

	if r.store != nil {
		if err := r.store.SetCurrent(ctx, userID, version); err != nil {
			return models.ModelVersion{}, fmt.Errorf("set current model %s: %w", version, err)
		}
	}

	now := r.now().UTC()
	for _, e := range u.versions {
		if e.meta.Status == models.StatusProduction && e.meta.Version != version {
			e.meta.Status = models.StatusRetired
			e.meta.RetiredAt = &now
		}
	}
	entry.meta.Status = models.StatusProduction
	entry.meta.DeployedAt = &now
	entry.meta.RetiredAt = nil
	u.current.Store(entry.model)

	r.log.Info("model deployed",
		logger.String("user_id", userID),
		logger.String("version", version),
		logger.String("kind", string(entry.meta.Kind)))
	return entry.meta, nil
}

// Current returns the user's current model, hydrating it from the artifact
// store on first use. ErrNoModelAvailable when none exists.
func (r *Registry) Current(ctx context.Context, userID string) (*FittedModel, error) {
	u := r.user(userID)
	if m := u.current.Load(); m != nil {
		return m, nil
	}
	if r.store == nil {
		return nil, domsvc.ErrNoModelAvailable
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if m := u.current.Load(); m != nil {
		return m, nil
	}
	if !u.checkedAt.IsZero() && r.now().Sub(u.checkedAt) < r.refresh {
		return nil, domsvc.ErrNoModelAvailable
	}
	u.checkedAt = r.now()

	version, err := r.store.Current(ctx, userID)
	if err != nil {
		if !errors.Is(err, domsvc.ErrArtifactNotFound) {
			r.log.Warn("model pointer lookup failed", logger.String("user_id", userID), logger.Error(err))
		}
		return nil, domsvc.ErrNoModelAvailable
	}
	m, err := r.loadArtifact(ctx, userID, version)
	if err != nil {
		r.log.Warn("model hydrate failed",
			logger.String("user_id", userID),
			logger.String("version", version),
			logger.Error(err))
		return nil, domsvc.ErrNoModelAvailable
	}

	deployed := m.TrainedAt
	u.versions[version] = &versionEntry{model: m, meta: models.ModelVersion{
		UserID: userID, Version: version, Kind: m.Kind, Status: models.StatusProduction,
		Metrics: m.Metrics, CreatedAt: m.TrainedAt, DeployedAt: &deployed,
	}}
	u.current.Store(m)
	return m, nil
}

func (r *Registry) loadArtifact(ctx context.Context, userID, version string) (*FittedModel, error) {
	if r.store == nil {
		return nil, fmt.Errorf("%w: %s", domsvc.ErrModelVersionNotFound, version)
	}
	b, err := r.store.Load(ctx, userID, version)
	if err != nil {
		if errors.Is(err, domsvc.ErrArtifactNotFound) {
			return nil, fmt.Errorf("%w: %s", domsvc.ErrModelVersionNotFound, version)
		}
		return nil, fmt.Errorf("load model %s: %w", version, err)
	}
	return DecodeModel(b)
}

// Champion returns the production version of a user, if any.
func (r *Registry) Champion(userID string) (models.ModelVersion, bool) {
	u := r.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, e := range u.versions {
		if e.meta.Status == models.StatusProduction {
			return e.meta, true
		}
	}
	return models.ModelVersion{}, false
}

// List returns every known version of a user, oldest first.
func (r *Registry) List(userID string) []models.ModelVersion {
	u := r.user(userID)
	u.mu.Lock()
	out := make([]models.ModelVersion, 0, len(u.versions))
	for _, e := range u.versions {
		out = append(out, e.meta)
	}
	u.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Version < out[j].Version
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
