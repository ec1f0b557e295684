// Package quest runs the hunt lifecycle: creating hunts, completing stops,
// awarding points and achievements, and pausing or resuming hunts.
package quest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ecoquest/ecoquest/internal/ecoquest"
	"github.com/ecoquest/ecoquest/internal/generate"
	"github.com/ecoquest/ecoquest/internal/store"
)

const defaultUserName = "Eco Explorer"

// Geocoder resolves coordinates to an address. It never fails.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) string
}

// Event is published to hunt subscribers after a state change.
type Event struct {
	Type           string                `json:"type"`
	HuntID         string                `json:"huntId"`
	StopID         string                `json:"stopId,omitempty"`
	PointsEarned   int                   `json:"pointsEarned,omitempty"`
	CompletedStops int                   `json:"completedStops"`
	Status         ecoquest.HuntStatus   `json:"status"`
	Achievement    *ecoquest.Achievement `json:"achievement,omitempty"`
}

const (
	EventStopCompleted     = "stop_completed"
	EventHuntCompleted     = "hunt_completed"
	EventAchievementEarned = "achievement_earned"
	EventHuntPaused        = "hunt_paused"
	EventHuntResumed       = "hunt_resumed"
)

// Publisher fans hunt events out to live subscribers.
type Publisher interface {
	Publish(huntID string, e Event)
}

type Deps struct {
	Store     store.Store
	Generator generate.Generator
	// Geocoder and Hinter are optional.
	Geocoder  Geocoder
	Hinter    generate.Hinter
	Publisher Publisher
	Metrics   *Metrics
	Logger    *slog.Logger
	// EnforceSingleActive rejects a new or resumed hunt while the user has
	// another active one.
	EnforceSingleActive bool
	Rules               []ecoquest.Rule
	Now                 func() time.Time
}

type Service struct {
	store               store.Store
	gen                 generate.Generator
	geocoder            Geocoder
	hinter              generate.Hinter
	publisher           Publisher
	metrics             *Metrics
	logger              *slog.Logger
	evaluator           *ecoquest.Evaluator
	enforceSingleActive bool
	now                 func() time.Time

	hunts *keyedMutex
	users *keyedMutex
}

func New(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = NewMetrics(nil)
	}
	if d.Rules == nil {
		d.Rules = ecoquest.DefaultRules
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{
		store:               d.Store,
		gen:                 d.Generator,
		geocoder:            d.Geocoder,
		hinter:              d.Hinter,
		publisher:           d.Publisher,
		metrics:             d.Metrics,
		logger:              d.Logger,
		evaluator:           ecoquest.NewEvaluator(d.Rules, uuid.NewString, d.Now),
		enforceSingleActive: d.EnforceSingleActive,
		now:                 d.Now,
		hunts:               newKeyedMutex(),
		users:               newKeyedMutex(),
	}
}

type CreateHuntInput struct {
	UserID   string
	Theme    ecoquest.Theme
	Location ecoquest.Location
}

func (in CreateHuntInput) validate() error {
	var fields []ecoquest.FieldError
	if strings.TrimSpace(in.UserID) == "" {
		fields = append(fields, ecoquest.FieldError{Field: "userId", Message: "userId is required"})
	}
	if in.Theme == "" {
		fields = append(fields, ecoquest.FieldError{Field: "theme", Message: "theme is required"})
	} else if !in.Theme.Valid() {
		fields = append(fields, ecoquest.FieldError{Field: "theme", Message: fmt.Sprintf("unknown theme %q", in.Theme)})
	}
	fields = append(fields, validateLocation(in.Location)...)
	if len(fields) > 0 {
		return &ecoquest.ValidationError{Fields: fields}
	}
	return nil
}

func validateLocation(loc ecoquest.Location) []ecoquest.FieldError {
	var fields []ecoquest.FieldError
	if loc.Lat < -90 || loc.Lat > 90 {
		fields = append(fields, ecoquest.FieldError{Field: "location.lat", Message: "lat must be between -90 and 90"})
	}
	if loc.Lng < -180 || loc.Lng > 180 {
		fields = append(fields, ecoquest.FieldError{Field: "location.lng", Message: "lng must be between -180 and 180"})
	}
	return fields
}

// sourcedGenerator reports which generator in a chain produced the hunt.
type sourcedGenerator interface {
	GenerateFrom(ctx context.Context, theme ecoquest.Theme, loc ecoquest.Location) (ecoquest.HuntPayload, string, error)
}

// CreateHunt generates and stores a new active hunt. The owner is created
// on first use. Nothing is stored when validation or generation fails.
func (s *Service) CreateHunt(ctx context.Context, in CreateHuntInput) (ecoquest.Hunt, error) {
	if err := in.validate(); err != nil {
		return ecoquest.Hunt{}, err
	}

	unlock := s.users.Lock(in.UserID)
	defer unlock()

	if _, err := s.ensureUser(ctx, in.UserID); err != nil {
		return ecoquest.Hunt{}, err
	}

	if s.enforceSingleActive {
		active, err := s.store.ActiveHunt(ctx, in.UserID)
		switch {
		case err == nil:
			return ecoquest.Hunt{}, fmt.Errorf("user %s has hunt %s: %w", in.UserID, active.ID, ecoquest.ErrActiveHuntExists)
		case !errors.Is(err, ecoquest.ErrNotFound):
			return ecoquest.Hunt{}, fmt.Errorf("checking active hunt: %w", err)
		}
	}

	loc := in.Location
	if loc.Address == "" && s.geocoder != nil {
		loc.Address = s.geocoder.ReverseGeocode(ctx, loc.Lat, loc.Lng)
	}

	var (
		payload ecoquest.HuntPayload
		source  = s.gen.Source()
		err     error
	)
	if sg, ok := s.gen.(sourcedGenerator); ok {
		payload, source, err = sg.GenerateFrom(ctx, in.Theme, loc)
	} else {
		payload, err = s.gen.Generate(ctx, in.Theme, loc)
	}
	if err != nil {
		if errors.Is(err, ecoquest.ErrValidation) && !errors.Is(err, ecoquest.ErrUpstream) {
			return ecoquest.Hunt{}, err
		}
		s.logger.Error("hunt generation failed", "user_id", in.UserID, "theme", in.Theme, "error", err)
		if !errors.Is(err, ecoquest.ErrUpstream) {
			err = fmt.Errorf("%w: %w", ecoquest.ErrUpstream, err)
		}
		return ecoquest.Hunt{}, err
	}

	h, err := s.store.CreateHunt(ctx, ecoquest.Hunt{
		UserID:      in.UserID,
		Theme:       in.Theme,
		Title:       payload.Title,
		Description: payload.Description,
		Location:    payload.Location,
		Stops:       payload.Stops,
		Status:      ecoquest.HuntStatusActive,
	})
	if err != nil {
		return ecoquest.Hunt{}, fmt.Errorf("storing hunt: %w", err)
	}

	s.metrics.HuntsCreated.WithLabelValues(string(h.Theme), source).Inc()
	s.logger.Info("hunt created",
		"hunt_id", h.ID, "user_id", h.UserID, "theme", h.Theme,
		"stops", len(h.Stops), "total_points", h.TotalPoints, "source", source)
	return h, nil
}

func (s *Service) ensureUser(ctx context.Context, id string) (ecoquest.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ecoquest.ErrNotFound) {
		return ecoquest.User{}, err
	}
	u, err = s.store.UpsertUser(ctx, ecoquest.User{ID: id, Name: defaultUserName})
	if err != nil {
		return ecoquest.User{}, fmt.Errorf("creating user: %w", err)
	}
	s.logger.Info("user created", "user_id", id)
	return u, nil
}

func (s *Service) GetHunt(ctx context.Context, id string) (ecoquest.Hunt, error) {
	return s.store.GetHunt(ctx, id)
}

func (s *Service) ActiveHunt(ctx context.Context, userID string) (ecoquest.Hunt, error) {
	return s.store.ActiveHunt(ctx, userID)
}

func (s *Service) UserHunts(ctx context.Context, userID string) ([]ecoquest.Hunt, error) {
	return s.store.ListUserHunts(ctx, userID)
}

// Completion is the result of completing a stop.
type Completion struct {
	Hunt         ecoquest.Hunt          `json:"hunt"`
	Achievements []ecoquest.Achievement `json:"achievements"`
	PointsEarned int                    `json:"pointsEarned"`
}

// CompleteStop applies one completion to a hunt. The hunt update and the
// point credit commit together; completing a stop twice awards nothing the
// second time. Achievements the updated hunt qualifies for are awarded
// once per user.
func (s *Service) CompleteStop(ctx context.Context, huntID, stopID string, sub ecoquest.Submission) (Completion, error) {
	unlock := s.hunts.Lock(huntID)
	defer unlock()

	var out ecoquest.Outcome
	h, award, err := s.store.ModifyHunt(ctx, huntID, func(h *ecoquest.Hunt) (int, error) {
		o, err := ecoquest.CompleteStop(h, stopID, sub)
		if err != nil {
			return 0, err
		}
		out = o
		return o.PointsEarned, nil
	})
	if err != nil {
		return Completion{}, err
	}

	if !out.AlreadyCompleted {
		s.metrics.StopsCompleted.WithLabelValues(string(out.StopType)).Inc()
		s.metrics.PointsAwarded.Add(float64(award))
		s.logger.Info("stop completed",
			"hunt_id", h.ID, "stop_id", stopID, "type", out.StopType,
			"correct", out.Correct, "points", award, "completed_stops", h.CompletedStops)
		s.publish(Event{
			Type: EventStopCompleted, HuntID: h.ID, StopID: stopID,
			PointsEarned: award, CompletedStops: h.CompletedStops, Status: h.Status,
		})
		if out.HuntCompleted {
			s.logger.Info("hunt completed", "hunt_id", h.ID, "user_id", h.UserID)
			s.publish(Event{Type: EventHuntCompleted, HuntID: h.ID, CompletedStops: h.CompletedStops, Status: h.Status})
		}
	}

	// Evaluated on repeats too, so an award lost to an earlier failure is
	// still granted.
	earned, err := s.awardAchievements(ctx, h)
	if err != nil {
		return Completion{}, err
	}

	return Completion{Hunt: h, Achievements: earned, PointsEarned: award}, nil
}

func (s *Service) awardAchievements(ctx context.Context, h ecoquest.Hunt) ([]ecoquest.Achievement, error) {
	held, err := s.store.ListUserAchievements(ctx, h.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing achievements: %w", err)
	}

	earned := []ecoquest.Achievement{}
	for _, a := range s.evaluator.Evaluate(h, held) {
		saved, err := s.store.CreateAchievement(ctx, a)
		if errors.Is(err, ecoquest.ErrAchievementExists) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("saving achievement %s: %w", a.Type, err)
		}
		earned = append(earned, saved)

		s.metrics.AchievementsEarned.WithLabelValues(saved.Type).Inc()
		s.logger.Info("achievement earned", "user_id", saved.UserID, "type", saved.Type, "hunt_id", h.ID)
		s.publish(Event{
			Type: EventAchievementEarned, HuntID: h.ID,
			CompletedStops: h.CompletedStops, Status: h.Status, Achievement: &saved,
		})
	}
	return earned, nil
}

// Pause moves an active hunt to paused, which frees the owner to start or
// resume another hunt.
func (s *Service) Pause(ctx context.Context, huntID string) (ecoquest.Hunt, error) {
	unlock := s.hunts.Lock(huntID)
	defer unlock()

	h, _, err := s.store.ModifyHunt(ctx, huntID, func(h *ecoquest.Hunt) (int, error) {
		if h.Status != ecoquest.HuntStatusActive {
			return 0, fmt.Errorf("hunt %s is %s: %w", h.ID, h.Status, ecoquest.ErrHuntNotActive)
		}
		h.Status = ecoquest.HuntStatusPaused
		return 0, nil
	})
	if err != nil {
		return ecoquest.Hunt{}, err
	}
	s.logger.Info("hunt paused", "hunt_id", h.ID, "user_id", h.UserID)
	s.publish(Event{Type: EventHuntPaused, HuntID: h.ID, CompletedStops: h.CompletedStops, Status: h.Status})
	return h, nil
}

// Resume reactivates a paused hunt.
func (s *Service) Resume(ctx context.Context, huntID string) (ecoquest.Hunt, error) {
	current, err := s.store.GetHunt(ctx, huntID)
	if err != nil {
		return ecoquest.Hunt{}, err
	}

	unlockUser := s.users.Lock(current.UserID)
	defer unlockUser()
	unlock := s.hunts.Lock(huntID)
	defer unlock()

	if s.enforceSingleActive {
		active, err := s.store.ActiveHunt(ctx, current.UserID)
		switch {
		case err == nil && active.ID != huntID:
			return ecoquest.Hunt{}, fmt.Errorf("user %s has hunt %s: %w", current.UserID, active.ID, ecoquest.ErrActiveHuntExists)
		case err != nil && !errors.Is(err, ecoquest.ErrNotFound):
			return ecoquest.Hunt{}, fmt.Errorf("checking active hunt: %w", err)
		}
	}

	h, _, err := s.store.ModifyHunt(ctx, huntID, func(h *ecoquest.Hunt) (int, error) {
		if h.Status != ecoquest.HuntStatusPaused {
			return 0, fmt.Errorf("hunt %s is %s: %w", h.ID, h.Status, ecoquest.ErrHuntNotPaused)
		}
		h.Status = ecoquest.HuntStatusActive
		return 0, nil
	})
	if err != nil {
		return ecoquest.Hunt{}, err
	}
	s.logger.Info("hunt resumed", "hunt_id", h.ID, "user_id", h.UserID)
	s.publish(Event{Type: EventHuntResumed, HuntID: h.ID, CompletedStops: h.CompletedStops, Status: h.Status})
	return h, nil
}

// Hint returns a hint for a stop. Generation failures degrade to a canned
// encouragement; only an unknown hunt or stop is an error.
func (s *Service) Hint(ctx context.Context, huntID, stopID string) (string, error) {
	h, err := s.store.GetHunt(ctx, huntID)
	if err != nil {
		return "", err
	}
	i := h.Stop(stopID)
	if i < 0 {
		return "", fmt.Errorf("stop %s: %w", stopID, ecoquest.ErrNotFound)
	}
	stop := h.Stops[i]

	if s.hinter == nil {
		return generate.CannedHint(stop), nil
	}
	hint, err := s.hinter.Hint(ctx, h, stop)
	if err != nil || hint == "" {
		s.logger.Warn("hint generation failed, using canned hint", "hunt_id", huntID, "stop_id", stopID, "error", err)
		return generate.CannedHint(stop), nil
	}
	return hint, nil
}

func (s *Service) publish(e Event) {
	if s.publisher != nil {
		s.publisher.Publish(e.HuntID, e)
	}
}
