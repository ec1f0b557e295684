package ecoquest

import (
	"encoding/json"
	"fmt"
	"slices"
)

type StopType string

const (
	StopTypePhoto  StopType = "photo"
	StopTypeTrivia StopType = "trivia"
	StopTypeTask   StopType = "task"
)

type PhotoChallenge struct {
	Prompt string `json:"prompt"`
}

type TriviaChallenge struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

type TaskChallenge struct {
	Description string `json:"description"`
}

// Challenge is a variant keyed by Type. Exactly one of Photo, Trivia or
// Task is set, matching Type.
type Challenge struct {
	Type   StopType
	Photo  *PhotoChallenge
	Trivia *TriviaChallenge
	Task   *TaskChallenge
}

func PhotoPrompt(prompt string) Challenge {
	return Challenge{Type: StopTypePhoto, Photo: &PhotoChallenge{Prompt: prompt}}
}

func Trivia(question string, options []string, correct string) Challenge {
	return Challenge{Type: StopTypeTrivia, Trivia: &TriviaChallenge{
		Question:      question,
		Options:       options,
		CorrectAnswer: correct,
	}}
}

func Task(description string) Challenge {
	return Challenge{Type: StopTypeTask, Task: &TaskChallenge{Description: description}}
}

// Validate checks that the populated arm matches Type.
func (c Challenge) Validate() error {
	switch c.Type {
	case StopTypePhoto:
		if c.Photo == nil || c.Trivia != nil || c.Task != nil {
			return fmt.Errorf("%w: photo challenge requires only a prompt", ErrValidation)
		}
	case StopTypeTrivia:
		if c.Trivia == nil || c.Photo != nil || c.Task != nil {
			return fmt.Errorf("%w: trivia challenge requires only a question", ErrValidation)
		}
		if c.Trivia.CorrectAnswer == "" {
			return fmt.Errorf("%w: trivia challenge requires a correct answer", ErrValidation)
		}
	case StopTypeTask:
		if c.Task == nil || c.Photo != nil || c.Trivia != nil {
			return fmt.Errorf("%w: task challenge requires only a description", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown challenge type %q", ErrValidation, c.Type)
	}
	return nil
}

type challengeJSON struct {
	Type          StopType `json:"type"`
	Prompt        string   `json:"prompt,omitempty"`
	Question      string   `json:"question,omitempty"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
	Description   string   `json:"description,omitempty"`
}

// MarshalJSON flattens the active arm next to its "type" key.
func (c Challenge) MarshalJSON() ([]byte, error) {
	out := challengeJSON{Type: c.Type}
	switch c.Type {
	case StopTypePhoto:
		if c.Photo != nil {
			out.Prompt = c.Photo.Prompt
		}
	case StopTypeTrivia:
		if c.Trivia != nil {
			out.Question = c.Trivia.Question
			out.Options = c.Trivia.Options
			out.CorrectAnswer = c.Trivia.CorrectAnswer
		}
	case StopTypeTask:
		if c.Task != nil {
			out.Description = c.Task.Description
		}
	}
	return json.Marshal(out)
}

func (c *Challenge) UnmarshalJSON(data []byte) error {
	var in challengeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Type {
	case StopTypePhoto:
		*c = PhotoPrompt(in.Prompt)
	case StopTypeTrivia:
		*c = Trivia(in.Question, in.Options, in.CorrectAnswer)
	case StopTypeTask:
		*c = Task(in.Description)
	default:
		return fmt.Errorf("unknown challenge type %q", in.Type)
	}
	return nil
}

func (c Challenge) clone() Challenge {
	if c.Photo != nil {
		p := *c.Photo
		c.Photo = &p
	}
	if c.Trivia != nil {
		t := *c.Trivia
		t.Options = slices.Clone(t.Options)
		c.Trivia = &t
	}
	if c.Task != nil {
		t := *c.Task
		c.Task = &t
	}
	return c
}
