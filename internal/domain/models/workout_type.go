package models

import "strings"

// WorkoutType is a session category from the fixed vocabulary.
type WorkoutType string

const (
	WorkoutEndurance WorkoutType = "endurance"
	WorkoutThreshold WorkoutType = "threshold"
	WorkoutVO2Max    WorkoutType = "vo2max"
	WorkoutRecovery  WorkoutType = "recovery"
	WorkoutStrength  WorkoutType = "strength"
)

// WorkoutVocabulary is the one-hot order used by the feature vector. Changing
// it changes the feature width and invalidates every stored model.
var WorkoutVocabulary = []WorkoutType{
	WorkoutEndurance,
	WorkoutThreshold,
	WorkoutVO2Max,
	WorkoutRecovery,
	WorkoutStrength,
}

// IsValidWorkoutType returns true if t is part of the vocabulary.
func IsValidWorkoutType(t WorkoutType) bool {
	switch t {
	case WorkoutEndurance, WorkoutThreshold, WorkoutVO2Max, WorkoutRecovery, WorkoutStrength:
		return true
	default:
		return false
	}
}

// NormalizeWorkoutType lower-cases and trims a raw tag. Unknown tags are
// returned normalized but will not be one-hot encoded.
func NormalizeWorkoutType(s string) WorkoutType {
	return WorkoutType(strings.ToLower(strings.TrimSpace(s)))
}

// WorkoutTypeIndex returns the vocabulary slot for t, or -1.
func WorkoutTypeIndex(t WorkoutType) int {
	for i, v := range WorkoutVocabulary {
		if v == t {
			return i
		}
	}
	return -1
}
