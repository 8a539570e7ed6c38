package service

import "errors"

var (
	// ErrInsufficientData is returned when there are too few samples to train.
	ErrInsufficientData = errors.New("insufficient training data")
	// ErrNoModelAvailable is returned when a user has no current fitted model.
	ErrNoModelAvailable = errors.New("no model available")
	// ErrFeatureShapeMismatch means a feature vector does not match the model width.
	ErrFeatureShapeMismatch = errors.New("feature shape mismatch")
	// ErrCollaboratorUnavailable wraps failures of the history store or analytics sink.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	// ErrModelVersionNotFound is returned by the registry for unknown versions.
	ErrModelVersionNotFound = errors.New("model version not found")
	// ErrArtifactNotFound is returned by artifact stores for missing keys.
	ErrArtifactNotFound = errors.New("model artifact not found")
)
