package quest

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ecoquest/ecoquest/internal/ecoquest"
)

// CreateDemoUser creates a user with a generated "demo_" ID.
func (s *Service) CreateDemoUser(ctx context.Context, name string) (ecoquest.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultUserName
	}
	u, err := s.store.UpsertUser(ctx, ecoquest.User{
		ID:   "demo_" + uuid.NewString(),
		Name: name,
	})
	if err != nil {
		return ecoquest.User{}, fmt.Errorf("creating demo user: %w", err)
	}
	s.logger.Info("demo user created", "user_id", u.ID)
	return u, nil
}

type Profile struct {
	User         ecoquest.User          `json:"user"`
	Achievements []ecoquest.Achievement `json:"achievements"`
	Stats        ecoquest.UserStats     `json:"stats"`
}

func (s *Service) Profile(ctx context.Context, userID string) (Profile, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	hunts, err := s.store.ListUserHunts(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("listing hunts: %w", err)
	}
	achievements, err := s.store.ListUserAchievements(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("listing achievements: %w", err)
	}
	return Profile{
		User:         u,
		Achievements: achievements,
		Stats:        ecoquest.Stats(u, hunts, achievements),
	}, nil
}

func (s *Service) Achievements(ctx context.Context, userID string) ([]ecoquest.Achievement, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListUserAchievements(ctx, userID)
}

// UpdateLocation stores the user's last known position. A missing address
// is reverse geocoded.
func (s *Service) UpdateLocation(ctx context.Context, userID string, loc ecoquest.Location) (ecoquest.User, error) {
	if fields := validateLocation(loc); len(fields) > 0 {
		return ecoquest.User{}, &ecoquest.ValidationError{Fields: fields}
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return ecoquest.User{}, err
	}
	if loc.Address == "" && s.geocoder != nil {
		loc.Address = s.geocoder.ReverseGeocode(ctx, loc.Lat, loc.Lng)
	}
	return s.store.UpdateUserLocation(ctx, userID, loc)
}
