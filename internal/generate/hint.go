package generate

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/ecoquest/ecoquest/internal/ecoquest"
)

// Hinter writes a short hint for a stop.
type Hinter interface {
	Hint(ctx context.Context, h ecoquest.Hunt, s ecoquest.Stop) (string, error)
}

var encouragements = []string{
	"Take a slow look around, the answer is often closer than you think.",
	"Look up, look down. Nature hides in the details.",
	"Ask a local or read the nearest sign. Every clue counts.",
	"You are doing great. Take a breath and explore a little further.",
}

// CannedHint returns an encouragement picked deterministically from the
// stop ID. It is used whenever no hint can be generated.
func CannedHint(s ecoquest.Stop) string {
	h := fnv.New32a()
	h.Write([]byte(s.ID))
	return encouragements[h.Sum32()%uint32(len(encouragements))]
}

const hintSystemPrompt = `You help players of an outdoor eco scavenger hunt.
Give one encouraging hint of at most two sentences. Never reveal a trivia answer.`

func (a *AI) Hint(ctx context.Context, h ecoquest.Hunt, s ecoquest.Stop) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Hunt: %s (%s). Stop: %s. %s\n", h.Title, h.Theme, s.Title, s.Description)
	switch c := s.Challenge; c.Type {
	case ecoquest.StopTypePhoto:
		fmt.Fprintf(&b, "Photo challenge: %s", c.Photo.Prompt)
	case ecoquest.StopTypeTrivia:
		fmt.Fprintf(&b, "Trivia question: %s Options: %s", c.Trivia.Question, strings.Join(c.Trivia.Options, ", "))
	case ecoquest.StopTypeTask:
		fmt.Fprintf(&b, "Task: %s", c.Task.Description)
	}

	content, err := a.complete(ctx, chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: hintSystemPrompt},
			{Role: "user", Content: b.String()},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}
