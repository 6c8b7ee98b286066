// Package lesson defines generated lesson content, the structural repair
// applied to it before use, and the built-in fallback lessons.
package lesson

import (
	"context"
	"errors"
)

// ErrUnrepairable is returned when a payload has no usable exercises.
var ErrUnrepairable = errors.New("lesson: payload cannot be repaired")

const (
	OptionCount           = 4
	DefaultExerciseType   = "multiple_choice"
	DefaultExerciseReward = 10
)

type LearnerProfile struct {
	Name       string `json:"name"`
	GradeLevel int    `json:"gradeLevel"`
}

type VocabularyItem struct {
	Word        string `json:"word"`
	Translation string `json:"translation"`
	Phonetic    string `json:"phonetic"`
	Example     string `json:"example"`
}

type Exercise struct {
	Type             string   `json:"type"`
	Question         string   `json:"question"`
	Options          []string `json:"options"`
	CorrectAnswer    string   `json:"correctAnswer"`
	Hints            []string `json:"hints"`
	Explanation      string   `json:"explanation"`
	ExperienceReward int      `json:"experienceReward"`
}

type Summary struct {
	Congratulations string   `json:"congratulations"`
	KeyPoints       []string `json:"keyPoints"`
	PracticeWords   []string `json:"practiceWords"`
}

type Lesson struct {
	ID           string           `json:"id"`
	Topic        string           `json:"topic"`
	Introduction string           `json:"introduction"`
	Vocabulary   []VocabularyItem `json:"vocabulary"`
	Exercises    []Exercise       `json:"exercises"`
	Summary      Summary          `json:"summary"`
	// Fallback is set when the lesson came from the built-in templates.
	Fallback bool `json:"fallback"`
}

// TotalExperience sums the rewards of every exercise.
func (l *Lesson) TotalExperience() int {
	total := 0
	for _, ex := range l.Exercises {
		total += ex.ExperienceReward
	}
	return total
}

// Generator produces a lesson for a topic.
type Generator interface {
	Generate(ctx context.Context, topic string, profile LearnerProfile) (*Lesson, error)
}
