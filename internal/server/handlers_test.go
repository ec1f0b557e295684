package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ecoquest/ecoquest/internal/catalog"
	"github.com/ecoquest/ecoquest/internal/database"
	"github.com/ecoquest/ecoquest/internal/ecoquest"
	"github.com/ecoquest/ecoquest/internal/generate"
	"github.com/ecoquest/ecoquest/internal/handler/health"
	"github.com/ecoquest/ecoquest/internal/migrations"
	"github.com/ecoquest/ecoquest/internal/quest"
	"github.com/ecoquest/ecoquest/internal/store"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type downGenerator struct{}

func (downGenerator) Generate(context.Context, ecoquest.Theme, ecoquest.Location) (ecoquest.HuntPayload, error) {
	return ecoquest.HuntPayload{}, errors.New("dial tcp: connection refused")
}

func (downGenerator) Source() string { return "ai" }

func setupRouter(t *testing.T, gen generate.Generator) chi.Router {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	st := store.NewDocStore(db)

	cat := catalog.Default()
	if gen == nil {
		gen = generate.NewTemplates(cat)
	}
	broker := NewBroker()
	svc := quest.New(quest.Deps{
		Store:               st,
		Generator:           gen,
		Publisher:           broker,
		Logger:              testLogger,
		EnforceSingleActive: true,
	})

	return newRouter(Options{
		Logger:       testLogger,
		Quest:        svc,
		Catalog:      cat,
		Broker:       broker,
		HealthChecks: map[string]health.Checker{"store": health.CheckFunc(st.Ping)},
		Registry:     prometheus.NewRegistry(),
		CORSOrigins:  []string{"*"},
	})
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func createHuntBody(userID, theme string) map[string]any {
	return map[string]any{
		"userId":   userID,
		"theme":    theme,
		"location": map[string]any{"lat": 37.7694, "lng": -122.4862, "address": "Golden Gate Park"},
	}
}

func mustCreateHunt(t *testing.T, r http.Handler, userID, theme string) ecoquest.Hunt {
	t.Helper()
	rec := do(t, r, http.MethodPost, "/api/hunts", createHuntBody(userID, theme))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create hunt status = %d, body = %s", rec.Code, rec.Body.String())
	}
	return decode[ecoquest.Hunt](t, rec)
}

func TestCreateHuntAndCompleteAllStops(t *testing.T) {
	r := setupRouter(t, nil)
	h := mustCreateHunt(t, r, "u1", "pollinator-hunt")

	if h.Status != ecoquest.HuntStatusActive || len(h.Stops) != 3 || h.TotalPoints != 120 {
		t.Fatalf("unexpected hunt: status=%s stops=%d total=%d", h.Status, len(h.Stops), h.TotalPoints)
	}

	total := 0
	var last quest.Completion
	for _, s := range h.Stops {
		body := map[string]any{}
		if s.Type() == ecoquest.StopTypeTrivia {
			body["answer"] = s.Challenge.Trivia.CorrectAnswer
		}
		rec := do(t, r, http.MethodPost, "/api/hunts/"+h.ID+"/stops/"+s.ID+"/complete", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("complete %s status = %d, body = %s", s.ID, rec.Code, rec.Body.String())
		}
		last = decode[quest.Completion](t, rec)
		total += last.PointsEarned
	}

	if total != 120 {
		t.Errorf("total points = %d, want 120", total)
	}
	if last.Hunt.Status != ecoquest.HuntStatusCompleted {
		t.Errorf("status = %s, want completed", last.Hunt.Status)
	}
	if len(last.Achievements) != 1 || last.Achievements[0].Type != "nature-photographer" {
		t.Errorf("achievements = %+v, want nature-photographer", last.Achievements)
	}

	rec := do(t, r, http.MethodGet, "/api/users/u1/profile", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile status = %d", rec.Code)
	}
	p := decode[quest.Profile](t, rec)
	if p.User.Points != 120 || p.Stats.CompletedHunts != 1 || p.Stats.Achievements != 1 {
		t.Errorf("profile = %+v", p)
	}

	rec = do(t, r, http.MethodGet, "/api/users/u1/achievements", nil)
	if list := decode[[]ecoquest.Achievement](t, rec); len(list) != 1 {
		t.Errorf("achievements = %d, want 1", len(list))
	}
}

func TestCompleteStopTwiceAwardsOnce(t *testing.T) {
	r := setupRouter(t, nil)
	h := mustCreateHunt(t, r, "u1", "urban-nature")
	path := "/api/hunts/" + h.ID + "/stops/" + h.Stops[0].ID + "/complete"

	first := decode[quest.Completion](t, do(t, r, http.MethodPost, path, nil))
	second := decode[quest.Completion](t, do(t, r, http.MethodPost, path, nil))

	if first.PointsEarned != h.Stops[0].Points {
		t.Errorf("first = %d, want %d", first.PointsEarned, h.Stops[0].Points)
	}
	if second.PointsEarned != 0 {
		t.Errorf("second = %d, want 0", second.PointsEarned)
	}
	if second.Achievements == nil {
		t.Errorf("achievements should be an empty array, not null")
	}
}

func TestCreateHuntValidation(t *testing.T) {
	r := setupRouter(t, nil)

	tests := []struct {
		name      string
		body      any
		wantField string
	}{
		{"missing user", map[string]any{"theme": "urban-nature", "location": map[string]any{"lat": 1, "lng": 1}}, "userId"},
		{"unknown theme", createHuntBody("u1", "volcano-hunt"), "theme"},
		{"missing location", map[string]any{"userId": "u1", "theme": "urban-nature"}, "location"},
		{"missing lng", map[string]any{"userId": "u1", "theme": "urban-nature", "location": map[string]any{"lat": 1}}, "location.lng"},
		{"lat out of range", map[string]any{"userId": "u1", "theme": "urban-nature", "location": map[string]any{"lat": 95, "lng": 1}}, "location.lat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, http.MethodPost, "/api/hunts", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
			resp := decode[ErrorResponse](t, rec)
			if len(resp.Fields) == 0 || resp.Fields[0].Field != tt.wantField {
				t.Errorf("fields = %+v, want %s", resp.Fields, tt.wantField)
			}
		})
	}

	rec := do(t, r, http.MethodGet, "/api/hunts/user/u1", nil)
	if hunts := decode[[]ecoquest.Hunt](t, rec); len(hunts) != 0 {
		t.Errorf("rejected requests persisted %d hunts", len(hunts))
	}
}

func TestCreateHuntMalformedBody(t *testing.T) {
	r := setupRouter(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/hunts", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSecondActiveHuntConflicts(t *testing.T) {
	r := setupRouter(t, nil)
	first := mustCreateHunt(t, r, "u1", "urban-nature")

	rec := do(t, r, http.MethodPost, "/api/hunts", createHuntBody("u1", "pollinator-hunt"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}

	rec = do(t, r, http.MethodPost, "/api/hunts/"+first.ID+"/pause", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pause status = %d", rec.Code)
	}
	if got := decode[ecoquest.Hunt](t, rec); got.Status != ecoquest.HuntStatusPaused {
		t.Errorf("status = %s, want paused", got.Status)
	}

	rec = do(t, r, http.MethodPost, "/api/hunts/"+first.ID+"/stops/"+first.Stops[0].ID+"/complete", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("complete on paused hunt status = %d, want 409", rec.Code)
	}

	mustCreateHunt(t, r, "u1", "pollinator-hunt")

	rec = do(t, r, http.MethodPost, "/api/hunts/"+first.ID+"/resume", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("resume status = %d, want 409", rec.Code)
	}
}

func TestHuntLookups(t *testing.T) {
	r := setupRouter(t, nil)

	rec := do(t, r, http.MethodGet, "/api/hunts/active/u1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("active before create = %d, want 404", rec.Code)
	}
	if resp := decode[ErrorResponse](t, rec); resp.Error == "" {
		t.Errorf("missing error message")
	}

	h := mustCreateHunt(t, r, "u1", "zero-waste-picnic")

	rec = do(t, r, http.MethodGet, "/api/hunts/active/u1", nil)
	if got := decode[ecoquest.Hunt](t, rec); got.ID != h.ID {
		t.Errorf("active = %s, want %s", got.ID, h.ID)
	}

	rec = do(t, r, http.MethodGet, "/api/hunts/"+h.ID, nil)
	if got := decode[ecoquest.Hunt](t, rec); got.Title != h.Title {
		t.Errorf("title = %q, want %q", got.Title, h.Title)
	}

	rec = do(t, r, http.MethodGet, "/api/hunts/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown hunt = %d, want 404", rec.Code)
	}

	rec = do(t, r, http.MethodPost, "/api/hunts/"+h.ID+"/stops/nope/complete", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown stop = %d, want 404", rec.Code)
	}
}

func TestUpstreamFailure(t *testing.T) {
	r := setupRouter(t, downGenerator{})

	rec := do(t, r, http.MethodPost, "/api/hunts", createHuntBody("u1", "urban-nature"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if resp := decode[ErrorResponse](t, rec); resp.Error != "failed to generate quest, try again" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestUnusableAIOutputIsUpstreamFailure(t *testing.T) {
	ai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := `{"title":"X","stops":[{"title":"A","challenge":{"type":"trivia","question":"?"}}]}`
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
	defer ai.Close()

	gen := generate.NewChain(testLogger, generate.NewAI(generate.AIConfig{BaseURL: ai.URL, Timeout: time.Second}))
	r := setupRouter(t, gen)

	rec := do(t, r, http.MethodPost, "/api/hunts", createHuntBody("u1", "urban-nature"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 (body %s)", rec.Code, rec.Body.String())
	}
	resp := decode[ErrorResponse](t, rec)
	if resp.Error != "failed to generate quest, try again" || len(resp.Fields) != 0 {
		t.Errorf("response = %+v", resp)
	}
}

func TestHint(t *testing.T) {
	r := setupRouter(t, nil)
	h := mustCreateHunt(t, r, "u1", "urban-nature")

	rec := do(t, r, http.MethodPost, "/api/hunts/"+h.ID+"/stops/"+h.Stops[1].ID+"/hint", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[HintResponse](t, rec); got.Hint != generate.CannedHint(h.Stops[1]) {
		t.Errorf("hint = %q", got.Hint)
	}
}

func TestUsers(t *testing.T) {
	r := setupRouter(t, nil)

	rec := do(t, r, http.MethodPost, "/api/users/demo", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("demo status = %d", rec.Code)
	}
	u := decode[ecoquest.User](t, rec)
	if !strings.HasPrefix(u.ID, "demo_") {
		t.Errorf("id = %q, want demo_ prefix", u.ID)
	}

	rec = do(t, r, http.MethodPost, "/api/users/demo", map[string]string{"name": "Rosa"})
	if got := decode[ecoquest.User](t, rec); got.Name != "Rosa" || got.ID == u.ID {
		t.Errorf("second demo user = %+v", got)
	}

	rec = do(t, r, http.MethodPut, "/api/users/"+u.ID+"/location", map[string]any{"lat": 51.5, "lng": -0.12, "address": "London"})
	if rec.Code != http.StatusOK {
		t.Fatalf("location status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := decode[ecoquest.User](t, rec); got.Location == nil || got.Location.Address != "London" {
		t.Errorf("location = %+v", got.Location)
	}

	rec = do(t, r, http.MethodPut, "/api/users/"+u.ID+"/location", map[string]any{"lat": 51.5})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing lng = %d, want 400", rec.Code)
	}

	rec = do(t, r, http.MethodGet, "/api/users/nobody/profile", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown profile = %d, want 404", rec.Code)
	}
}

func TestThemes(t *testing.T) {
	r := setupRouter(t, nil)
	rec := do(t, r, http.MethodGet, "/api/themes", nil)
	themes := decode[[]catalog.ThemeInfo](t, rec)
	if len(themes) != 4 {
		t.Fatalf("themes = %d, want 4", len(themes))
	}
	if themes[0].Theme != ecoquest.ThemeUrbanNature {
		t.Errorf("first theme = %s", themes[0].Theme)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	r := setupRouter(t, nil)

	rec := do(t, r, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d, body = %s", rec.Code, rec.Body.String())
	}

	do(t, r, http.MethodGet, "/api/hunts/someid", nil)

	rec = do(t, r, http.MethodGet, "/metrics", nil)
	body := rec.Body.String()
	if !strings.Contains(body, "ecoquest_http_requests_total") {
		t.Fatalf("metrics missing request counter")
	}
	if !strings.Contains(body, `path="/api/hunts/{huntId}/"`) && !strings.Contains(body, `path="/api/hunts/{huntId}"`) {
		t.Errorf("metrics should label by route pattern, got:\n%s", body)
	}
	if strings.Contains(body, "someid") {
		t.Errorf("metrics leaked a raw path")
	}
}

func TestCORSPreflight(t *testing.T) {
	r := setupRouter(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/hunts", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Errorf("missing Access-Control-Allow-Origin")
	}
}

func TestEventsStream(t *testing.T) {
	r := setupRouter(t, nil)
	srv := httptest.NewServer(r)
	defer srv.Close()

	h := mustCreateHunt(t, r, "u1", "urban-nature")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/hunts/"+h.ID+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type = %q", ct)
	}

	events := bufio.NewReader(resp.Body)
	if name := nextEvent(t, events); name != "snapshot" {
		t.Fatalf("first event = %q, want snapshot", name)
	}

	rec := do(t, r, http.MethodPost, "/api/hunts/"+h.ID+"/stops/"+h.Stops[0].ID+"/complete", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d", rec.Code)
	}

	if name := nextEvent(t, events); name != quest.EventStopCompleted {
		t.Errorf("event = %q, want %s", name, quest.EventStopCompleted)
	}
}

func TestEventsUnknownHunt(t *testing.T) {
	r := setupRouter(t, nil)
	rec := do(t, r, http.MethodGet, "/api/hunts/nope/events", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// nextEvent reads one SSE frame and returns its event name.
func nextEvent(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	var name string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read event: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case line == "" && name != "":
			return name
		}
	}
}
