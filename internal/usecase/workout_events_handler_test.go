package usecase

import (
	"context"
	"errors"
	"testing"

	"LoadCoach/internal/domain/models"
)

type recordingScheduler struct {
	jobs []TrainUserPayload
	err  error
}

func (s *recordingScheduler) Enqueue(_ context.Context, jobType string, payload interface{}) error {
	if s.err != nil {
		return s.err
	}
	if jobType == TrainUserJobType {
		s.jobs = append(s.jobs, payload.(TrainUserPayload))
	}
	return nil
}

func TestWorkoutEventInvalidatesAndSchedules(t *testing.T) {
	sched := &recordingScheduler{}
	inv := &countingInvalidator{}
	h := NewWorkoutEventsHandler("workouts.completed", sched, nil, nil, inv, inv)

	err := h.Handle(context.Background(), []byte(`{"user_id":"u1","date":"2024-06-10T07:00:00Z","stress":95,"duration_minutes":60,"workout_type":"endurance"}`))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(inv.users) != 2 {
		t.Fatalf("expected both caches invalidated, got %v", inv.users)
	}
	if len(sched.jobs) != 1 || sched.jobs[0].UserID != "u1" {
		t.Fatalf("expected one retraining job, got %+v", sched.jobs)
	}
}

func TestWorkoutEventMalformedIsDropped(t *testing.T) {
	sched := &recordingScheduler{}
	h := NewWorkoutEventsHandler("workouts.completed", sched, nil, nil)
	if err := h.Handle(context.Background(), []byte(`not json`)); err != nil {
		t.Fatalf("malformed payload must not be retried: %v", err)
	}
	if err := h.Handle(context.Background(), []byte(`{"stress":10}`)); err != nil {
		t.Fatalf("missing user must not be retried: %v", err)
	}
	if len(sched.jobs) != 0 {
		t.Fatalf("no job expected, got %+v", sched.jobs)
	}
}

func TestWorkoutEventScheduleFailureIsRetried(t *testing.T) {
	h := NewWorkoutEventsHandler("workouts.completed", &recordingScheduler{err: errors.New("redis down")}, nil, nil)
	if err := h.Handle(context.Background(), []byte(`{"user_id":"u1"}`)); err == nil {
		t.Fatalf("expected error so the consumer retries")
	}
}

func TestTrainUserJob(t *testing.T) {
	uc, reg := newTraining(&fakeSamples{byUser: map[string][]models.TrainingSample{
		"rich": trainingSamples(30),
		"poor": trainingSamples(2),
	}})
	job := NewTrainUserJob(uc, nil)

	if err := job.Handle(context.Background(), []byte(`{"user_id":"poor"}`)); err != nil {
		t.Fatalf("insufficient data must not be retried: %v", err)
	}
	if err := job.Handle(context.Background(), []byte(`{"user_id":"rich"}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if _, err := reg.Current(context.Background(), "rich"); err != nil {
		t.Fatalf("expected model for rich user: %v", err)
	}
}
