package ecoquest

import "time"

// Rule awards a one-time achievement when Qualifies returns true for the
// updated hunt.
type Rule struct {
	Type        string
	Title       string
	Description string
	Qualifies   func(h Hunt) bool
}

// DefaultRules are evaluated in this order.
var DefaultRules = []Rule{
	{
		Type:        "nature-photographer",
		Title:       "Nature Photographer",
		Description: "Completed 3 stops on a pollinator hunt",
		Qualifies: func(h Hunt) bool {
			return h.Theme == ThemePollinatorHunt && h.CompletedStops >= 3
		},
	},
	{
		Type:        "urban-explorer",
		Title:       "Urban Explorer",
		Description: "Finished an urban nature hunt",
		Qualifies: func(h Hunt) bool {
			return h.Theme == ThemeUrbanNature && h.Status == HuntStatusCompleted
		},
	},
	{
		Type:        "eco-scholar",
		Title:       "Eco Scholar",
		Description: "Completed 5 stops in a single hunt",
		Qualifies: func(h Hunt) bool {
			return h.CompletedStops >= 5
		},
	},
}

// Evaluator decides which achievements a hunt update newly earns. It only
// looks at its arguments; persisting the result is the caller's job.
type Evaluator struct {
	rules []Rule
	newID func() string
	now   func() time.Time
}

func NewEvaluator(rules []Rule, newID func() string, now func() time.Time) *Evaluator {
	if now == nil {
		now = time.Now
	}
	return &Evaluator{rules: rules, newID: newID, now: now}
}

// Evaluate returns achievements the hunt owner qualifies for and does not
// already hold. The result is empty, never nil.
func (e *Evaluator) Evaluate(h Hunt, held []Achievement) []Achievement {
	have := make(map[string]bool, len(held))
	for _, a := range held {
		have[a.Type] = true
	}

	earned := []Achievement{}
	for _, r := range e.rules {
		if have[r.Type] || !r.Qualifies(h) {
			continue
		}
		have[r.Type] = true
		earned = append(earned, Achievement{
			ID:          e.newID(),
			UserID:      h.UserID,
			Type:        r.Type,
			Title:       r.Title,
			Description: r.Description,
			EarnedAt:    e.now().UTC(),
		})
	}
	return earned
}
