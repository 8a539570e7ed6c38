package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"LoadCoach/internal/domain/models"
	domrepo "LoadCoach/internal/domain/repository"
	"LoadCoach/internal/services/features"
	pkgcache "LoadCoach/pkg/cache"
	"LoadCoach/pkg/logger"
	"LoadCoach/pkg/util"
)

const defaultSeriesTTL = time.Hour

// LoadUseCase serves the training-load series and session statistics.
type LoadUseCase struct {
	store domrepo.LoadHistoryStore
	pmc   features.PMC
	cache pkgcache.Service
	ttl   time.Duration
	log   *logger.Logger
	now   func() time.Time
}

func NewLoadUseCase(store domrepo.LoadHistoryStore, cache pkgcache.Service, log *logger.Logger) *LoadUseCase {
	if log == nil {
		log = logger.NewNop()
	}
	return &LoadUseCase{
		store: store,
		pmc:   features.NewPMC(features.DefaultChronicTau, features.DefaultAcuteTau),
		cache: cache,
		ttl:   defaultSeriesTTL,
		log:   log,
		now:   time.Now,
	}
}

func seriesKey(userID string, days int) string {
	return pkgcache.GenerateKeyWithParams("pmc", userID, days)
}

func (u *LoadUseCase) sessions(ctx context.Context, userID string, days int) ([]models.StressRecord, time.Time, time.Time, error) {
	to := util.StartOfDay(u.now())
	from := util.AddDays(to, -days+1)
	records, err := u.store.SessionsBetween(ctx, userID, from, to)
	if err != nil {
		return nil, from, to, fmt.Errorf("load history for %s: %w", userID, err)
	}
	return records, from, to, nil
}

// LoadSeries returns the dense chronic/acute/balance series of the last days.
func (u *LoadUseCase) LoadSeries(ctx context.Context, userID string, days int) (models.LoadSeries, error) {
	key := seriesKey(userID, days)
	if u.cache != nil {
		var cached models.LoadSeries
		err := u.cache.Get(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, pkgcache.ErrCacheMiss) {
			u.log.Warn("series cache get failed", logger.String("key", key), logger.Error(err))
		}
	}

	records, from, to, err := u.sessions(ctx, userID, days)
	if err != nil {
		return models.LoadSeries{}, err
	}
	series := models.LoadSeries{
		UserID: userID,
		Days:   days,
		Points: u.pmc.CalculateRange(features.AggregateDaily(records), from, to),
	}

	if u.cache != nil {
		if err := u.cache.Set(ctx, key, series, u.ttl); err != nil {
			u.log.Warn("series cache set failed", logger.String("key", key), logger.Error(err))
		}
	}
	return series, nil
}

// LoadStats summarizes the stress of sessions in the last days.
func (u *LoadUseCase) LoadStats(ctx context.Context, userID string, days int) (models.LoadStats, error) {
	records, _, _, err := u.sessions(ctx, userID, days)
	if err != nil {
		return models.LoadStats{}, err
	}
	stats := features.ComputeLoadStats(records)
	stats.UserID = userID
	stats.Days = days
	return stats, nil
}

// InvalidateUser drops every cached series of a user.
func (u *LoadUseCase) InvalidateUser(ctx context.Context, userID string) int {
	if u.cache == nil {
		return 0
	}
	n, err := u.cache.DeleteByPrefix(ctx, "pmc:"+userID+":")
	if err != nil {
		u.log.Warn("series cache invalidate failed", logger.String("user_id", userID), logger.Error(err))
	}
	return n
}
