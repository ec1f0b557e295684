package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ecoquest/ecoquest/internal/ecoquest"
)

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DocStore implements Store on libSQL, one JSONB document per row. The
// tables come from the migrations package.
type DocStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewDocStore(db *sql.DB) *DocStore {
	return &DocStore{db: db, now: time.Now}
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Generic helpers.

func get(ctx context.Context, q queryer, table, id string, dest any) error {
	var data string
	err := q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT json(data) FROM %s WHERE id = ?`, table), id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ecoquest.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func putHunt(ctx context.Context, q queryer, h ecoquest.Hunt) error {
	data, err := json.Marshal(h)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO hunts (id, user_id, status, created_at, data) VALUES (?, ?, ?, ?, jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET status = excluded.status, data = excluded.data`,
		h.ID, h.UserID, string(h.Status), h.CreatedAt.UTC().Format(timeLayout), string(data),
	)
	return err
}

func scanHunts(rows *sql.Rows) ([]ecoquest.Hunt, error) {
	defer rows.Close()
	hunts := []ecoquest.Hunt{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var h ecoquest.Hunt
		if err := json.Unmarshal([]byte(data), &h); err != nil {
			return nil, err
		}
		hunts = append(hunts, h)
	}
	return hunts, rows.Err()
}

// Hunts

func (s *DocStore) CreateHunt(ctx context.Context, h ecoquest.Hunt) (ecoquest.Hunt, error) {
	h = prepareHunt(h, s.now())
	if err := putHunt(ctx, s.db, h); err != nil {
		return ecoquest.Hunt{}, fmt.Errorf("inserting hunt: %w", err)
	}
	return h, nil
}

func (s *DocStore) GetHunt(ctx context.Context, id string) (ecoquest.Hunt, error) {
	var h ecoquest.Hunt
	if err := get(ctx, s.db, "hunts", id, &h); err != nil {
		return ecoquest.Hunt{}, fmt.Errorf("hunt %s: %w", id, err)
	}
	return h, nil
}

func (s *DocStore) ListUserHunts(ctx context.Context, userID string) ([]ecoquest.Hunt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT json(data) FROM hunts WHERE user_id = ? ORDER BY created_at, id`, userID,
	)
	if err != nil {
		return nil, err
	}
	return scanHunts(rows)
}

func (s *DocStore) ActiveHunt(ctx context.Context, userID string) (ecoquest.Hunt, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM hunts
		 WHERE user_id = ? AND status = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		userID, string(ecoquest.HuntStatusActive),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ecoquest.Hunt{}, fmt.Errorf("active hunt for %s: %w", userID, ecoquest.ErrNotFound)
	}
	if err != nil {
		return ecoquest.Hunt{}, err
	}
	var h ecoquest.Hunt
	err = json.Unmarshal([]byte(data), &h)
	return h, err
}

func (s *DocStore) UpdateHunt(ctx context.Context, id string, patch HuntPatch) (ecoquest.Hunt, error) {
	h, _, err := s.ModifyHunt(ctx, id, func(h *ecoquest.Hunt) (int, error) {
		patch.apply(h)
		return 0, nil
	})
	return h, err
}

// ModifyHunt loads a hunt, applies fn, and saves it together with the
// owner's point credit in a transaction.
func (s *DocStore) ModifyHunt(ctx context.Context, id string, fn func(*ecoquest.Hunt) (int, error)) (ecoquest.Hunt, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return ecoquest.Hunt{}, 0, err
	}
	defer tx.Rollback()

	var h ecoquest.Hunt
	if err := get(ctx, tx, "hunts", id, &h); err != nil {
		return ecoquest.Hunt{}, 0, fmt.Errorf("hunt %s: %w", id, err)
	}

	award, err := fn(&h)
	if err != nil {
		return ecoquest.Hunt{}, 0, err
	}

	if err := putHunt(ctx, tx, h); err != nil {
		return ecoquest.Hunt{}, 0, fmt.Errorf("saving hunt: %w", err)
	}
	if award != 0 {
		if _, err := addPoints(ctx, tx, h.UserID, award); err != nil {
			return ecoquest.Hunt{}, 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return ecoquest.Hunt{}, 0, err
	}
	return h, award, nil
}

// Users

func (s *DocStore) GetUser(ctx context.Context, id string) (ecoquest.User, error) {
	var u ecoquest.User
	if err := get(ctx, s.db, "users", id, &u); err != nil {
		return ecoquest.User{}, fmt.Errorf("user %s: %w", id, err)
	}
	return u, nil
}

func (s *DocStore) UpsertUser(ctx context.Context, u ecoquest.User) (ecoquest.User, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	u.Points = 0
	data, err := json.Marshal(u)
	if err != nil {
		return ecoquest.User{}, err
	}

	// Keep points and createdAt of an existing row; replace the rest.
	var out string
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO users (id, data) VALUES (?, jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET data = jsonb_set(excluded.data,
			'$.points', json_extract(users.data, '$.points'),
			'$.createdAt', json_extract(users.data, '$.createdAt'))
		 RETURNING json(data)`,
		u.ID, string(data),
	).Scan(&out)
	if err != nil {
		return ecoquest.User{}, fmt.Errorf("upserting user: %w", err)
	}
	var saved ecoquest.User
	err = json.Unmarshal([]byte(out), &saved)
	return saved, err
}

func (s *DocStore) UpdateUserPoints(ctx context.Context, id string, delta int) (ecoquest.User, error) {
	return addPoints(ctx, s.db, id, delta)
}

// addPoints applies delta in a single statement so concurrent credits
// cannot lose updates.
func addPoints(ctx context.Context, q queryer, id string, delta int) (ecoquest.User, error) {
	var out string
	err := q.QueryRowContext(ctx,
		`UPDATE users SET data = jsonb_set(data, '$.points', json_extract(data, '$.points') + ?)
		 WHERE id = ? AND json_extract(data, '$.points') + ? >= 0
		 RETURNING json(data)`,
		delta, id, delta,
	).Scan(&out)
	if errors.Is(err, sql.ErrNoRows) {
		var u ecoquest.User
		if gerr := get(ctx, q, "users", id, &u); gerr != nil {
			return ecoquest.User{}, fmt.Errorf("user %s: %w", id, gerr)
		}
		return ecoquest.User{}, fmt.Errorf("%w: insufficient points", ecoquest.ErrValidation)
	}
	if err != nil {
		return ecoquest.User{}, fmt.Errorf("updating points: %w", err)
	}
	var u ecoquest.User
	err = json.Unmarshal([]byte(out), &u)
	return u, err
}

func (s *DocStore) UpdateUserLocation(ctx context.Context, id string, loc ecoquest.Location) (ecoquest.User, error) {
	locJSON, err := json.Marshal(loc)
	if err != nil {
		return ecoquest.User{}, err
	}
	var out string
	err = s.db.QueryRowContext(ctx,
		`UPDATE users SET data = jsonb_set(data, '$.location', jsonb(?))
		 WHERE id = ?
		 RETURNING json(data)`,
		string(locJSON), id,
	).Scan(&out)
	if errors.Is(err, sql.ErrNoRows) {
		return ecoquest.User{}, fmt.Errorf("user %s: %w", id, ecoquest.ErrNotFound)
	}
	if err != nil {
		return ecoquest.User{}, err
	}
	var u ecoquest.User
	err = json.Unmarshal([]byte(out), &u)
	return u, err
}

// Achievements

func (s *DocStore) CreateAchievement(ctx context.Context, a ecoquest.Achievement) (ecoquest.Achievement, error) {
	a = prepareAchievement(a, s.now())
	data, err := json.Marshal(a)
	if err != nil {
		return ecoquest.Achievement{}, err
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO achievements (id, user_id, type, data) VALUES (?, ?, ?, jsonb(?))
		 ON CONFLICT(user_id, type) DO NOTHING`,
		a.ID, a.UserID, a.Type, string(data),
	)
	if err != nil {
		return ecoquest.Achievement{}, fmt.Errorf("inserting achievement: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ecoquest.Achievement{}, fmt.Errorf("%s for %s: %w", a.Type, a.UserID, ecoquest.ErrAchievementExists)
	}
	return a, nil
}

func (s *DocStore) ListUserAchievements(ctx context.Context, userID string) ([]ecoquest.Achievement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT json(data) FROM achievements WHERE user_id = ? ORDER BY rowid`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	achievements := []ecoquest.Achievement{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var a ecoquest.Achievement
		if err := json.Unmarshal([]byte(data), &a); err != nil {
			return nil, err
		}
		achievements = append(achievements, a)
	}
	return achievements, rows.Err()
}

func (s *DocStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
