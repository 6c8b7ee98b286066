package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const (
	MinGradeLevel  = 0
	MaxGradeLevel  = 12
	maxNameLength  = 40
	maxTopicLength = 80
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateDisplayName checks a learner's display name
func ValidateDisplayName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "displayName", Message: "name is required"}
	}
	if utf8.RuneCountInString(name) < 2 {
		return ValidationError{Field: "displayName", Message: "name must be at least 2 characters"}
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return ValidationError{Field: "displayName", Message: fmt.Sprintf("name must be at most %d characters", maxNameLength)}
	}
	return nil
}

// ValidateGradeLevel accepts kindergarten (0) through grade 12
func ValidateGradeLevel(grade int) error {
	if grade < MinGradeLevel || grade > MaxGradeLevel {
		return ValidationError{Field: "gradeLevel", Message: fmt.Sprintf("grade must be between %d and %d", MinGradeLevel, MaxGradeLevel)}
	}
	return nil
}

// ValidateTopic checks a lesson topic
func ValidateTopic(topic string) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ValidationError{Field: "topic", Message: "topic is required"}
	}
	if utf8.RuneCountInString(topic) > maxTopicLength {
		return ValidationError{Field: "topic", Message: fmt.Sprintf("topic must be at most %d characters", maxTopicLength)}
	}
	return nil
}
