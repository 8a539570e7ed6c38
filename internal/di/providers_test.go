package di

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"LoadCoach/internal/domain/models"
	"LoadCoach/pkg/config"
	"LoadCoach/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	cfg.Logger.Level = "error"
	cfg.Logger.Output = "stderr"
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "loadcoach.db")
	return cfg
}

func TestInitializeServicesWithSQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analytics.Backend = config.BackendSQLite

	svc, cleanup, err := InitializeServices(cfg)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	defer cleanup()

	ctx := context.Background()
	svc.Start(ctx)

	rec, err := svc.Engine.Recommend(ctx, models.RecommendationRequest{UserID: "u1"})
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if rec.EdgeCase == models.EdgeCaseNone {
		t.Fatalf("expected a fallback for a user without history, got %+v", rec)
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := svc.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestProvideAnalyticsPipelineDisabled(t *testing.T) {
	cfg := testConfig(t)
	p, err := ProvideAnalyticsPipeline(cfg, &Infra{}, nil, logger.NewNop())
	if err != nil || p != nil {
		t.Fatalf("expected no pipeline, got %v %v", p, err)
	}
}

func TestProvideHistoryStoreHTTP(t *testing.T) {
	cfg := testConfig(t)
	cfg.History.Backend = config.BackendHTTP
	cfg.History.BaseURL = "http://sessions.local"

	store, err := ProvideHistoryStore(cfg, &Infra{}, logger.NewNop())
	if err != nil || store == nil {
		t.Fatalf("history store: %v", err)
	}
}

func TestInfraCloseIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	infra, cleanup, err := ProvideInfra(cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("infra: %v", err)
	}
	if infra.SQLite == nil || infra.Redis != nil || infra.ClickHouse != nil {
		t.Fatalf("unexpected backends: %+v", infra)
	}
	cleanup()
	if err := infra.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
