package models

import (
	"strings"
	"time"

	"lingoquest/internal/validation"
)

// Learner represents a child profile in the system
type Learner struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	GradeLevel  int       `json:"gradeLevel"`
	ParentEmail string    `json:"parentEmail,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Validate checks the fields a learner is created with
func (l *Learner) Validate() error {
	if err := validation.ValidateDisplayName(l.DisplayName); err != nil {
		return err
	}
	if err := validation.ValidateGradeLevel(l.GradeLevel); err != nil {
		return err
	}
	if l.HasParentEmail() {
		return validation.ValidateEmail(l.ParentEmail)
	}
	return nil
}

// HasParentEmail reports whether badge notifications can be sent
func (l *Learner) HasParentEmail() bool {
	return strings.TrimSpace(l.ParentEmail) != ""
}
