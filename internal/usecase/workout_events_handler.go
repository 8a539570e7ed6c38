package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"LoadCoach/internal/domain/models"
	domrepo "LoadCoach/internal/domain/repository"
	domsvc "LoadCoach/internal/domain/service"
	pkgkafka "LoadCoach/pkg/kafka"
	"LoadCoach/pkg/logger"
	"LoadCoach/pkg/queue"

	"github.com/goccy/go-json"
)

// WorkoutEventsHandler reacts to completed sessions: cached state of the user
// is dropped and a retraining job is scheduled.
type WorkoutEventsHandler struct {
	topic      string
	invalidate []UserInvalidator
	scheduler  domrepo.JobScheduler
	metrics    domrepo.Metrics
	log        *logger.Logger
}

func NewWorkoutEventsHandler(topic string, scheduler domrepo.JobScheduler, metrics domrepo.Metrics, log *logger.Logger, invalidate ...UserInvalidator) *WorkoutEventsHandler {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &WorkoutEventsHandler{topic: topic, invalidate: invalidate, scheduler: scheduler, metrics: metrics, log: log}
}

func (h *WorkoutEventsHandler) Topic() string { return h.topic }

// incoming message schema: {user_id, date, stress, duration_minutes, workout_type}
func (h *WorkoutEventsHandler) Handle(ctx context.Context, b []byte) error {
	start := time.Now()
	var ev models.WorkoutCompletedEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		// malformed payloads are not retried
		h.log.Warn("invalid workout event", logger.Error(err))
		return nil
	}
	if ev.UserID == "" {
		h.log.Warn("workout event without user id")
		return nil
	}

	for _, inv := range h.invalidate {
		inv.InvalidateUser(ctx, ev.UserID)
	}
	if h.scheduler != nil {
		if err := h.scheduler.Enqueue(ctx, TrainUserJobType, TrainUserPayload{UserID: ev.UserID}); err != nil {
			return fmt.Errorf("schedule retraining for %s: %w", ev.UserID, err)
		}
	}
	h.metrics.RecordLatency("workout_event", time.Since(start).Seconds())
	return nil
}

var _ pkgkafka.MessageHandler = (*WorkoutEventsHandler)(nil)

// TrainUserJobType is the queue message type of a retraining request.
const TrainUserJobType = "train_user_model"

type TrainUserPayload struct {
	UserID string             `json:"user_id"`
	Kinds  []models.ModelKind `json:"kinds,omitempty"`
}

// TrainUserJob retrains one user from the queue. Outcomes that retrying
// cannot change are not reported as failures.
type TrainUserJob struct {
	training *TrainingUseCase
	log      *logger.Logger
}

func NewTrainUserJob(training *TrainingUseCase, log *logger.Logger) *TrainUserJob {
	if log == nil {
		log = logger.NewNop()
	}
	return &TrainUserJob{training: training, log: log}
}

func (j *TrainUserJob) Type() string { return TrainUserJobType }

func (j *TrainUserJob) Handle(ctx context.Context, payload []byte) error {
	var p TrainUserPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		j.log.Warn("invalid train payload", logger.Error(err))
		return nil
	}
	res, err := j.training.TrainUser(ctx, p.UserID, p.Kinds)
	switch {
	case err == nil:
		j.log.Info("user model retrained",
			logger.String("user_id", p.UserID),
			logger.String("version", res.Deployed),
			logger.Int("samples", res.Samples))
		return nil
	case errors.Is(err, ErrTrainingInProgress):
		return nil
	case errors.Is(err, domsvc.ErrInsufficientData):
		j.log.Debug("not enough data to retrain", logger.String("user_id", p.UserID))
		return nil
	default:
		return err
	}
}

var _ queue.Job = (*TrainUserJob)(nil)
