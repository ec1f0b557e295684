package ecoquest

import (
	"fmt"
	"strings"
)

// Submission is what a player sends when completing a stop.
type Submission struct {
	Answer    string `json:"answer,omitempty"`
	PhotoData string `json:"photoData,omitempty"`
}

// Outcome describes the effect of applying a Submission to a hunt.
type Outcome struct {
	StopID       string
	StopType     StopType
	PointsEarned int
	// Correct is only meaningful for trivia stops.
	Correct bool
	// AlreadyCompleted is set when the stop was done before; nothing changed.
	AlreadyCompleted bool
	HuntCompleted    bool
}

// CompleteStop marks one stop completed, recounts the hunt and reports the
// points earned. Challenges resolve in one shot: a wrong trivia answer still
// completes the stop, for half the points.
func CompleteStop(h *Hunt, stopID string, sub Submission) (Outcome, error) {
	i := h.Stop(stopID)
	if i < 0 {
		return Outcome{}, fmt.Errorf("stop %s: %w", stopID, ErrNotFound)
	}
	stop := &h.Stops[i]
	out := Outcome{StopID: stop.ID, StopType: stop.Type()}

	if stop.Completed {
		out.AlreadyCompleted = true
		return out, nil
	}
	if h.Status != HuntStatusActive {
		return Outcome{}, fmt.Errorf("hunt %s is %s: %w", h.ID, h.Status, ErrHuntNotActive)
	}

	out.PointsEarned, out.Correct = StopPoints(*stop, sub.Answer)
	stop.Completed = true

	h.Recount()
	out.HuntCompleted = h.Status == HuntStatusCompleted
	return out, nil
}

// StopPoints returns the points a submission earns on a stop and whether it
// counts as correct.
func StopPoints(s Stop, answer string) (int, bool) {
	if s.Challenge.Type != StopTypeTrivia || s.Challenge.Trivia == nil {
		return s.Points, true
	}
	if AnswerMatches(answer, s.Challenge.Trivia.CorrectAnswer) {
		return s.Points, true
	}
	return s.Points / 2, false
}

// AnswerMatches compares answers ignoring case and surrounding space.
func AnswerMatches(given, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(given), strings.TrimSpace(correct))
}
