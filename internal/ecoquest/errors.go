package ecoquest

import (
	"errors"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrActiveHuntExists  = errors.New("user already has an active hunt")
	ErrHuntNotActive     = errors.New("hunt is not active")
	ErrHuntNotPaused     = errors.New("hunt is not paused")
	ErrUpstream          = errors.New("upstream failure")
	ErrAchievementExists = errors.New("achievement already earned")
)

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries field-level messages and matches ErrValidation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
