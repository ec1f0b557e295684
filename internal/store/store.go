// Package store persists users, hunts and achievements.
package store

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/ecoquest/ecoquest/internal/ecoquest"
)

// Store is the persistence boundary for the hunt engine. Lookups that miss
// return an error matching ecoquest.ErrNotFound.
type Store interface {
	// CreateHunt assigns a fresh ID, stamps CreatedAt and stores the hunt.
	// It does not check the one-active-hunt rule.
	CreateHunt(ctx context.Context, h ecoquest.Hunt) (ecoquest.Hunt, error)
	GetHunt(ctx context.Context, id string) (ecoquest.Hunt, error)
	// ListUserHunts returns a user's hunts in creation order.
	ListUserHunts(ctx context.Context, userID string) ([]ecoquest.Hunt, error)
	// ActiveHunt returns the user's most recently created active hunt.
	ActiveHunt(ctx context.Context, userID string) (ecoquest.Hunt, error)
	UpdateHunt(ctx context.Context, id string, patch HuntPatch) (ecoquest.Hunt, error)
	// ModifyHunt loads a hunt, applies fn, saves it and credits the points fn
	// returns to the hunt owner, all or nothing.
	ModifyHunt(ctx context.Context, id string, fn func(*ecoquest.Hunt) (award int, err error)) (ecoquest.Hunt, int, error)

	GetUser(ctx context.Context, id string) (ecoquest.User, error)
	// UpsertUser creates the user or updates its profile fields. Points and
	// CreatedAt of an existing user are kept.
	UpsertUser(ctx context.Context, u ecoquest.User) (ecoquest.User, error)
	UpdateUserPoints(ctx context.Context, id string, delta int) (ecoquest.User, error)
	UpdateUserLocation(ctx context.Context, id string, loc ecoquest.Location) (ecoquest.User, error)

	// CreateAchievement fails with ecoquest.ErrAchievementExists when the
	// user already holds one of the same type.
	CreateAchievement(ctx context.Context, a ecoquest.Achievement) (ecoquest.Achievement, error)
	ListUserAchievements(ctx context.Context, userID string) ([]ecoquest.Achievement, error)

	Ping(ctx context.Context) error
}

// HuntPatch is a shallow update; nil fields are left alone.
type HuntPatch struct {
	Title          *string
	Description    *string
	Stops          []ecoquest.Stop
	CompletedStops *int
	Status         *ecoquest.HuntStatus
}

func (p HuntPatch) apply(h *ecoquest.Hunt) {
	if p.Title != nil {
		h.Title = *p.Title
	}
	if p.Description != nil {
		h.Description = *p.Description
	}
	if p.Stops != nil {
		h.Stops = p.Stops
	}
	if p.CompletedStops != nil {
		h.CompletedStops = *p.CompletedStops
	}
	if p.Status != nil {
		h.Status = *p.Status
	}
}

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// newHuntID returns a ULID, so hunt IDs sort by creation time.
func newHuntID(t time.Time) string {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

func prepareHunt(h ecoquest.Hunt, now time.Time) ecoquest.Hunt {
	h = h.Clone()
	h.ID = newHuntID(now)
	h.CreatedAt = now.UTC()
	h.CompletedStops = 0
	if h.Status == "" {
		h.Status = ecoquest.HuntStatusActive
	}
	h.TotalPoints = 0
	for _, s := range h.Stops {
		h.TotalPoints += s.Points
	}
	return h
}

func prepareAchievement(a ecoquest.Achievement, now time.Time) ecoquest.Achievement {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.EarnedAt.IsZero() {
		a.EarnedAt = now.UTC()
	}
	return a
}
