package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ecoquest/ecoquest/internal/ecoquest"
)

// MemStore keeps everything in process memory. One mutex guards all maps;
// every read-modify-write happens under it.
type MemStore struct {
	mu           sync.RWMutex
	now          func() time.Time
	users        map[string]ecoquest.User
	hunts        map[string]ecoquest.Hunt
	huntOrder    []string
	achievements map[string][]ecoquest.Achievement
}

func NewMemStore() *MemStore {
	return &MemStore{
		now:          time.Now,
		users:        make(map[string]ecoquest.User),
		hunts:        make(map[string]ecoquest.Hunt),
		achievements: make(map[string][]ecoquest.Achievement),
	}
}

func (s *MemStore) CreateHunt(_ context.Context, h ecoquest.Hunt) (ecoquest.Hunt, error) {
	h = prepareHunt(h, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.hunts[h.ID] = h
	s.huntOrder = append(s.huntOrder, h.ID)
	return h.Clone(), nil
}

func (s *MemStore) GetHunt(_ context.Context, id string) (ecoquest.Hunt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hunts[id]
	if !ok {
		return ecoquest.Hunt{}, fmt.Errorf("hunt %s: %w", id, ecoquest.ErrNotFound)
	}
	return h.Clone(), nil
}

func (s *MemStore) ListUserHunts(_ context.Context, userID string) ([]ecoquest.Hunt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hunts := []ecoquest.Hunt{}
	for _, id := range s.huntOrder {
		if h := s.hunts[id]; h.UserID == userID {
			hunts = append(hunts, h.Clone())
		}
	}
	return hunts, nil
}

func (s *MemStore) ActiveHunt(ctx context.Context, userID string) (ecoquest.Hunt, error) {
	hunts, err := s.ListUserHunts(ctx, userID)
	if err != nil {
		return ecoquest.Hunt{}, err
	}
	active := slices.DeleteFunc(hunts, func(h ecoquest.Hunt) bool {
		return h.Status != ecoquest.HuntStatusActive
	})
	if len(active) == 0 {
		return ecoquest.Hunt{}, fmt.Errorf("active hunt for %s: %w", userID, ecoquest.ErrNotFound)
	}
	return slices.MaxFunc(active, func(a, b ecoquest.Hunt) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	}), nil
}

func (s *MemStore) UpdateHunt(_ context.Context, id string, patch HuntPatch) (ecoquest.Hunt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hunts[id]
	if !ok {
		return ecoquest.Hunt{}, fmt.Errorf("hunt %s: %w", id, ecoquest.ErrNotFound)
	}
	patch.apply(&h)
	h = h.Clone()
	s.hunts[id] = h
	return h.Clone(), nil
}

func (s *MemStore) ModifyHunt(_ context.Context, id string, fn func(*ecoquest.Hunt) (int, error)) (ecoquest.Hunt, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.hunts[id]
	if !ok {
		return ecoquest.Hunt{}, 0, fmt.Errorf("hunt %s: %w", id, ecoquest.ErrNotFound)
	}
	h := stored.Clone()
	award, err := fn(&h)
	if err != nil {
		return ecoquest.Hunt{}, 0, err
	}

	if award != 0 {
		u, err := s.addPoints(h.UserID, award)
		if err != nil {
			return ecoquest.Hunt{}, 0, err
		}
		s.users[u.ID] = u
	}
	s.hunts[id] = h
	return h.Clone(), award, nil
}

func (s *MemStore) GetUser(_ context.Context, id string) (ecoquest.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return ecoquest.User{}, fmt.Errorf("user %s: %w", id, ecoquest.ErrNotFound)
	}
	return u, nil
}

func (s *MemStore) UpsertUser(_ context.Context, u ecoquest.User) (ecoquest.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[u.ID]; ok {
		u.Points = existing.Points
		u.CreatedAt = existing.CreatedAt
	} else {
		u.Points = 0
		if u.CreatedAt.IsZero() {
			u.CreatedAt = s.now().UTC()
		}
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *MemStore) UpdateUserPoints(_ context.Context, id string, delta int) (ecoquest.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.addPoints(id, delta)
	if err != nil {
		return ecoquest.User{}, err
	}
	s.users[id] = u
	return u, nil
}

// addPoints must be called with mu held. It does not store the result.
func (s *MemStore) addPoints(id string, delta int) (ecoquest.User, error) {
	u, ok := s.users[id]
	if !ok {
		return ecoquest.User{}, fmt.Errorf("user %s: %w", id, ecoquest.ErrNotFound)
	}
	if u.Points+delta < 0 {
		return ecoquest.User{}, fmt.Errorf("%w: insufficient points", ecoquest.ErrValidation)
	}
	u.Points += delta
	return u, nil
}

func (s *MemStore) UpdateUserLocation(_ context.Context, id string, loc ecoquest.Location) (ecoquest.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ecoquest.User{}, fmt.Errorf("user %s: %w", id, ecoquest.ErrNotFound)
	}
	u.Location = &loc
	s.users[id] = u
	return u, nil
}

func (s *MemStore) CreateAchievement(_ context.Context, a ecoquest.Achievement) (ecoquest.Achievement, error) {
	a = prepareAchievement(a, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, held := range s.achievements[a.UserID] {
		if held.Type == a.Type {
			return ecoquest.Achievement{}, fmt.Errorf("%s for %s: %w", a.Type, a.UserID, ecoquest.ErrAchievementExists)
		}
	}
	s.achievements[a.UserID] = append(s.achievements[a.UserID], a)
	return a, nil
}

func (s *MemStore) ListUserAchievements(_ context.Context, userID string) ([]ecoquest.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ecoquest.Achievement{}, s.achievements[userID]...), nil
}

func (s *MemStore) Ping(context.Context) error { return nil }
