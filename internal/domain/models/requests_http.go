package models

// Requests for the HTTP endpoints. Defined in domain for consistency and reuse.

type RecommendationHTTPRequest struct {
	UserID               string        `param:"user_id" json:"-" validate:"required"`
	Date                 string        `query:"date" json:"date" validate:"omitempty,datetime=2006-01-02"`
	PreferredWorkoutType string        `query:"preferred_workout_type" json:"preferred_workout_type" validate:"omitempty,oneof=endurance threshold vo2max recovery strength"`
	MaxDurationMinutes   int           `query:"max_duration_minutes" json:"max_duration_minutes" validate:"gte=0,lte=1440"`
	TargetEventDate      string        `query:"target_event_date" json:"target_event_date" validate:"omitempty,datetime=2006-01-02"`
	Feedback             *FeedbackHTTP `json:"feedback"`
}

type FeedbackHTTP struct {
	PerceivedDifficulty  int    `json:"perceived_difficulty" default:"5" validate:"gte=1,lte=10"`
	EnergyLevel          int    `json:"energy_level" default:"5" validate:"gte=1,lte=10"`
	Motivation           int    `json:"motivation" default:"5" validate:"gte=1,lte=10"`
	AvailableTimeMinutes int    `json:"available_time_minutes" validate:"gte=0,lte=1440"`
	PreferredIntensity   string `json:"preferred_intensity" validate:"omitempty,oneof=easy moderate hard"`
}

type LoadWindowRequest struct {
	UserID string `param:"user_id" json:"-" validate:"required"`
	Days   int    `query:"days" json:"days" default:"90" validate:"gte=1,lte=730"`
}

type FeaturesRequest struct {
	UserID string `param:"user_id" json:"-" validate:"required"`
	Date   string `query:"date" json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type TrainRequest struct {
	UserID string   `param:"user_id" json:"-" validate:"required"`
	Kinds  []string `json:"kinds" validate:"omitempty,dive,oneof=linear_regression random_forest"`
}

type CrossValidateRequest struct {
	UserID string `param:"user_id" json:"-" validate:"required"`
	Folds  int    `json:"folds" default:"5" validate:"gte=2,lte=20"`
}

type DeployRequest struct {
	UserID  string `param:"user_id" json:"-" validate:"required"`
	Version string `param:"version" json:"-" validate:"required"`
}

type BatchTrainRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,max=500,dive,required"`
}
