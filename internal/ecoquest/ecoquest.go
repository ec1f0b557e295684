// Package ecoquest defines the core domain types and rules for hunts.
// It does no I/O and imports nothing outside the standard library.
package ecoquest

import (
	"slices"
	"time"
)

type Theme string

const (
	ThemeUrbanNature         Theme = "urban-nature"
	ThemeSustainableShopping Theme = "sustainable-shopping"
	ThemePollinatorHunt      Theme = "pollinator-hunt"
	ThemeZeroWastePicnic     Theme = "zero-waste-picnic"
)

// Themes lists every known theme in catalog order.
var Themes = []Theme{
	ThemeUrbanNature,
	ThemeSustainableShopping,
	ThemePollinatorHunt,
	ThemeZeroWastePicnic,
}

func (t Theme) Valid() bool {
	return slices.Contains(Themes, t)
}

type HuntStatus string

const (
	HuntStatusActive    HuntStatus = "active"
	HuntStatusCompleted HuntStatus = "completed"
	HuntStatusPaused    HuntStatus = "paused"
)

type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Points    int       `json:"points"`
	Location  *Location `json:"location,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Level is derived from points: every 500 points is one level.
func (u User) Level() int {
	if u.Points <= 0 {
		return 1
	}
	return u.Points/500 + 1
}

type Stop struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    Location  `json:"location"`
	Address     string    `json:"address"`
	Challenge   Challenge `json:"challenge"`
	Completed   bool      `json:"completed"`
	Points      int       `json:"points"`
}

// Type reports the challenge kind of the stop.
func (s Stop) Type() StopType { return s.Challenge.Type }

type Hunt struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	Theme          Theme      `json:"theme"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Location       Location   `json:"location"`
	Stops          []Stop     `json:"stops"`
	Status         HuntStatus `json:"status"`
	TotalPoints    int        `json:"totalPoints"`
	CompletedStops int        `json:"completedStops"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Stop returns the index of the stop with the given ID, or -1.
func (h *Hunt) Stop(id string) int {
	for i := range h.Stops {
		if h.Stops[i].ID == id {
			return i
		}
	}
	return -1
}

// Recount recomputes CompletedStops and moves the hunt to completed once
// every stop is done. Any other status is left untouched.
func (h *Hunt) Recount() {
	n := 0
	for _, s := range h.Stops {
		if s.Completed {
			n++
		}
	}
	h.CompletedStops = n
	if len(h.Stops) > 0 && n == len(h.Stops) {
		h.Status = HuntStatusCompleted
	}
}

// Clone returns a deep copy so callers can mutate stops freely.
func (h Hunt) Clone() Hunt {
	h.Stops = slices.Clone(h.Stops)
	for i := range h.Stops {
		h.Stops[i].Challenge = h.Stops[i].Challenge.clone()
	}
	return h
}

// HuntPayload is the generated content for a hunt before it is persisted.
type HuntPayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Location    Location `json:"location"`
	Stops       []Stop   `json:"stops"`
}

// TotalPoints sums the points of every stop.
func (p HuntPayload) TotalPoints() int {
	total := 0
	for _, s := range p.Stops {
		total += s.Points
	}
	return total
}

type Achievement struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EarnedAt    time.Time `json:"earnedAt"`
}

type UserStats struct {
	TotalHunts     int `json:"totalHunts"`
	ActiveHunts    int `json:"activeHunts"`
	CompletedHunts int `json:"completedHunts"`
	StopsCompleted int `json:"stopsCompleted"`
	Points         int `json:"points"`
	Level          int `json:"level"`
	Achievements   int `json:"achievements"`
}

// Stats aggregates a user's hunts and achievements.
func Stats(u User, hunts []Hunt, achievements []Achievement) UserStats {
	st := UserStats{
		TotalHunts:   len(hunts),
		Points:       u.Points,
		Level:        u.Level(),
		Achievements: len(achievements),
	}
	for _, h := range hunts {
		switch h.Status {
		case HuntStatusActive:
			st.ActiveHunts++
		case HuntStatusCompleted:
			st.CompletedHunts++
		}
		st.StopsCompleted += h.CompletedStops
	}
	return st
}
