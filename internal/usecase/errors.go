package usecase

import "errors"

// ErrTrainingInProgress is returned when another training run holds the user's lock.
var ErrTrainingInProgress = errors.New("training already in progress")
