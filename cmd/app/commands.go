package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"LoadCoach/internal/di"
	"LoadCoach/internal/domain/models"
	"LoadCoach/pkg/config"
	"LoadCoach/pkg/logger"
	"LoadCoach/pkg/util"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		path = ""
	}
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, event consumer and job workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			defer cleanup()
			return app.Run(cmd.Context())
		},
	}
}

func newTrainCmd(configPath *string) *cobra.Command {
	var (
		userID string
		kinds  []string
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train, evaluate and deploy models for one user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed := make([]models.ModelKind, 0, len(kinds))
			for _, k := range kinds {
				kind := models.ModelKind(k)
				if !kind.IsValid() {
					return fmt.Errorf("unknown model kind %q", k)
				}
				parsed = append(parsed, kind)
			}
			return withServices(cmd.Context(), *configPath, func(ctx context.Context, svc *di.Services) error {
				res, err := svc.Training.TrainUser(ctx, userID, parsed)
				if err != nil {
					return err
				}
				return printJSON(res)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringSliceVar(&kinds, "kind", []string{string(models.KindLinearRegression)}, "model kinds to train")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newRecommendCmd(configPath *string) *cobra.Command {
	var userID, date string
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Print the recommendation for one user and day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := models.RecommendationRequest{UserID: userID}
			if date != "" {
				d, err := util.ParseDay(date)
				if err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
				req.TargetDate = &d
			}
			return withServices(cmd.Context(), *configPath, func(ctx context.Context, svc *di.Services) error {
				rec, err := svc.Engine.Recommend(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(rec)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().StringVar(&date, "date", "", "target day, YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// withServices wires the use cases, runs fn and flushes analytics before
// releasing connections.
func withServices(ctx context.Context, configPath string, fn func(context.Context, *di.Services) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	svc, cleanup, err := di.InitializeServices(cfg)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer cleanup()

	svc.Start(ctx)
	runErr := fn(ctx, svc)

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := svc.Stop(stopCtx); err != nil {
		svc.Log.Warn("analytics flush incomplete", logger.Error(err))
	}
	return runErr
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
