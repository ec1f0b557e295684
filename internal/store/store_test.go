package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoquest/ecoquest/internal/database"
	"github.com/ecoquest/ecoquest/internal/ecoquest"
	"github.com/ecoquest/ecoquest/internal/migrations"
	"github.com/ecoquest/ecoquest/internal/store"
)

func newDocStore(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = migrations.Run(ctx, db)
	require.NoError(t, err)
	return store.NewDocStore(db)
}

// forEachStore runs the same contract against every Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, s store.Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, store.NewMemStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newDocStore(t)) })
}

func sampleHunt(userID string) ecoquest.Hunt {
	return ecoquest.Hunt{
		UserID: userID,
		Theme:  ecoquest.ThemePollinatorHunt,
		Title:  "Pollinator Patrol",
		Location: ecoquest.Location{
			Lat: 37.77, Lng: -122.48, Address: "Golden Gate Park",
		},
		Stops: []ecoquest.Stop{
			{ID: "s1", Title: "Dahlias", Challenge: ecoquest.PhotoPrompt("bee"), Points: 50},
			{ID: "s2", Title: "Meadow", Challenge: ecoquest.Trivia("Monarchs eat?", []string{"Milkweed", "Oak"}, "Milkweed"), Points: 40},
			{ID: "s3", Title: "Bee hotel", Challenge: ecoquest.Task("count tubes"), Points: 30},
		},
	}
}

func TestCreateAndGetHunt(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		in := sampleHunt("u1")
		in.CompletedStops = 7

		h, err := s.CreateHunt(ctx, in)
		require.NoError(t, err)
		assert.NotEmpty(t, h.ID)
		assert.False(t, h.CreatedAt.IsZero())
		assert.Equal(t, 0, h.CompletedStops)
		assert.Equal(t, ecoquest.HuntStatusActive, h.Status)
		assert.Equal(t, 120, h.TotalPoints)

		got, err := s.GetHunt(ctx, h.ID)
		require.NoError(t, err)
		assert.Equal(t, h.ID, got.ID)
		assert.Equal(t, h.Title, got.Title)
		require.Len(t, got.Stops, 3)
		assert.Equal(t, ecoquest.StopTypeTrivia, got.Stops[1].Type())
		assert.Equal(t, "Milkweed", got.Stops[1].Challenge.Trivia.CorrectAnswer)
		assert.True(t, h.CreatedAt.Equal(got.CreatedAt))
	})
}

func TestHuntIDsAreUnique(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		seen := map[string]bool{}
		for range 20 {
			h, err := s.CreateHunt(ctx, sampleHunt("u1"))
			require.NoError(t, err)
			assert.False(t, seen[h.ID], "duplicate id %s", h.ID)
			seen[h.ID] = true
		}
	})
}

func TestGetHuntNotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		_, err := s.GetHunt(context.Background(), "nope")
		assert.ErrorIs(t, err, ecoquest.ErrNotFound)
	})
}

func TestListUserHunts(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		a, err := s.CreateHunt(ctx, sampleHunt("u1"))
		require.NoError(t, err)
		_, err = s.CreateHunt(ctx, sampleHunt("u2"))
		require.NoError(t, err)
		b, err := s.CreateHunt(ctx, sampleHunt("u1"))
		require.NoError(t, err)

		hunts, err := s.ListUserHunts(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, hunts, 2)
		assert.Equal(t, a.ID, hunts[0].ID)
		assert.Equal(t, b.ID, hunts[1].ID)

		none, err := s.ListUserHunts(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})
}

func TestActiveHuntPicksMostRecent(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()

		_, err := s.ActiveHunt(ctx, "u1")
		assert.ErrorIs(t, err, ecoquest.ErrNotFound)

		_, err = s.CreateHunt(ctx, sampleHunt("u1"))
		require.NoError(t, err)
		second, err := s.CreateHunt(ctx, sampleHunt("u1"))
		require.NoError(t, err)

		got, err := s.ActiveHunt(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, second.ID, got.ID)

		paused := ecoquest.HuntStatusPaused
		_, err = s.UpdateHunt(ctx, second.ID, store.HuntPatch{Status: &paused})
		require.NoError(t, err)

		got, err = s.ActiveHunt(ctx, "u1")
		require.NoError(t, err)
		assert.NotEqual(t, second.ID, got.ID)
	})
}

func TestUpdateHunt(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		h, err := s.CreateHunt(ctx, sampleHunt("u1"))
		require.NoError(t, err)

		title := "Renamed"
		updated, err := s.UpdateHunt(ctx, h.ID, store.HuntPatch{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Title)
		assert.Len(t, updated.Stops, 3, "stops untouched by a partial patch")

		_, err = s.UpdateHunt(ctx, "missing", store.HuntPatch{Title: &title})
		assert.ErrorIs(t, err, ecoquest.ErrNotFound)
	})
}

func TestModifyHuntCreditsOwner(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		_, err := s.UpsertUser(ctx, ecoquest.User{ID: "u1", Name: "Ada"})
		require.NoError(t, err)
		h, err := s.CreateHunt(ctx, sampleHunt("u1"))
		require.NoError(t, err)

		got, award, err := s.ModifyHunt(ctx, h.ID, func(h *ecoquest.Hunt) (int, error) {
			h.Stops[0].Completed = true
			h.Recount()
			return h.Stops[0].Points, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 50, award)
		assert.Equal(t, 1, got.CompletedStops)

		u, err := s.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 50, u.Points)

		stored, err := s.GetHunt(ctx, h.ID)
		require.NoError(t, err)
		assert.True(t, stored.Stops[0].Completed)
	})
}

func TestModifyHuntErrorLeavesHuntUntouched(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		_, err := s.UpsertUser(ctx, ecoquest.User{ID: "u1"})
		require.NoError(t, err)
		h, err := s.CreateHunt(ctx, sampleHunt("u1"))
		require.NoError(t, err)

		boom := errors.New("boom")
		_, _, err = s.ModifyHunt(ctx, h.ID, func(h *ecoquest.Hunt) (int, error) {
			h.Stops[0].Completed = true
			return 0, boom
		})
		assert.ErrorIs(t, err, boom)

		stored, err := s.GetHunt(ctx, h.ID)
		require.NoError(t, err)
		assert.False(t, stored.Stops[0].Completed)
	})
}

func TestModifyHuntMissingOwnerRollsBack(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		h, err := s.CreateHunt(ctx, sampleHunt("ghost"))
		require.NoError(t, err)

		_, _, err = s.ModifyHunt(ctx, h.ID, func(h *ecoquest.Hunt) (int, error) {
			h.Stops[0].Completed = true
			return 50, nil
		})
		assert.ErrorIs(t, err, ecoquest.ErrNotFound)

		stored, err := s.GetHunt(ctx, h.ID)
		require.NoError(t, err)
		assert.False(t, stored.Stops[0].Completed)
	})
}

func TestUpsertUserKeepsPoints(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		created, err := s.UpsertUser(ctx, ecoquest.User{ID: "u1", Name: "Ada", Points: 999})
		require.NoError(t, err)
		assert.Equal(t, 0, created.Points, "new users start at zero")

		_, err = s.UpdateUserPoints(ctx, "u1", 75)
		require.NoError(t, err)

		again, err := s.UpsertUser(ctx, ecoquest.User{ID: "u1", Name: "Ada L."})
		require.NoError(t, err)
		assert.Equal(t, "Ada L.", again.Name)
		assert.Equal(t, 75, again.Points)
		assert.True(t, created.CreatedAt.Equal(again.CreatedAt))
	})
}

func TestUpdateUserPoints(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		_, err := s.UpsertUser(ctx, ecoquest.User{ID: "u1"})
		require.NoError(t, err)

		u, err := s.UpdateUserPoints(ctx, "u1", 40)
		require.NoError(t, err)
		assert.Equal(t, 40, u.Points)

		u, err = s.UpdateUserPoints(ctx, "u1", -15)
		require.NoError(t, err)
		assert.Equal(t, 25, u.Points)

		_, err = s.UpdateUserPoints(ctx, "u1", -100)
		assert.ErrorIs(t, err, ecoquest.ErrValidation)

		u, err = s.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 25, u.Points)

		_, err = s.UpdateUserPoints(ctx, "nobody", 5)
		assert.ErrorIs(t, err, ecoquest.ErrNotFound)
	})
}

func TestUpdateUserPointsConcurrent(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		_, err := s.UpsertUser(ctx, ecoquest.User{ID: "u1"})
		require.NoError(t, err)

		var wg sync.WaitGroup
		for range 25 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.UpdateUserPoints(ctx, "u1", 2)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		u, err := s.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 50, u.Points)
	})
}

func TestUpdateUserLocation(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		_, err := s.UpsertUser(ctx, ecoquest.User{ID: "u1"})
		require.NoError(t, err)

		loc := ecoquest.Location{Lat: 51.5, Lng: -0.12, Address: "London"}
		u, err := s.UpdateUserLocation(ctx, "u1", loc)
		require.NoError(t, err)
		require.NotNil(t, u.Location)
		assert.Equal(t, loc, *u.Location)

		_, err = s.UpdateUserLocation(ctx, "nobody", loc)
		assert.ErrorIs(t, err, ecoquest.ErrNotFound)
	})
}

func TestAchievementsUniquePerType(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()

		a, err := s.CreateAchievement(ctx, ecoquest.Achievement{UserID: "u1", Type: "eco-scholar", Title: "Eco Scholar"})
		require.NoError(t, err)
		assert.NotEmpty(t, a.ID)
		assert.False(t, a.EarnedAt.IsZero())

		_, err = s.CreateAchievement(ctx, ecoquest.Achievement{UserID: "u1", Type: "eco-scholar"})
		assert.ErrorIs(t, err, ecoquest.ErrAchievementExists)

		_, err = s.CreateAchievement(ctx, ecoquest.Achievement{UserID: "u2", Type: "eco-scholar"})
		require.NoError(t, err)

		_, err = s.CreateAchievement(ctx, ecoquest.Achievement{
			UserID: "u1", Type: "urban-explorer", EarnedAt: time.Now().Add(time.Minute),
		})
		require.NoError(t, err)

		list, err := s.ListUserAchievements(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "eco-scholar", list[0].Type)
		assert.Equal(t, "urban-explorer", list[1].Type)

		none, err := s.ListUserAchievements(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})
}

func TestPing(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		assert.NoError(t, s.Ping(context.Background()))
	})
}
