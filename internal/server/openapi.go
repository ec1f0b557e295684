package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/ecoquest/ecoquest/internal/catalog"
	"github.com/ecoquest/ecoquest/internal/ecoquest"
	"github.com/ecoquest/ecoquest/internal/quest"
)

// HealthResponse maps each dependency to its status.
type HealthResponse map[string]struct {
	Status string `json:"status" enum:"ok,error"`
}

// Path and body shapes below exist only to describe operations.

type HuntPath struct {
	HuntID string `path:"huntId"`
}

type StopPath struct {
	HuntID string `path:"huntId"`
	StopID string `path:"stopId"`
}

type UserPath struct {
	UserID string `path:"userId"`
}

type CompleteStopInput struct {
	StopPath
	CompleteStopRequest
}

type UpdateLocationInput struct {
	UserPath
	LocationRequest
}

// ChallengeDoc describes the wire form of ecoquest.Challenge: a flat object
// keyed by type.
type ChallengeDoc struct{}

func (ChallengeDoc) JSONSchemaOneOf() []any {
	return []any{PhotoChallengeDoc{}, TriviaChallengeDoc{}, TaskChallengeDoc{}}
}

type PhotoChallengeDoc struct {
	Type   string `json:"type" required:"true" enum:"photo"`
	Prompt string `json:"prompt" required:"true"`
}

type TriviaChallengeDoc struct {
	Type          string   `json:"type" required:"true" enum:"trivia"`
	Question      string   `json:"question" required:"true"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer" required:"true"`
}

type TaskChallengeDoc struct {
	Type        string `json:"type" required:"true" enum:"task"`
	Description string `json:"description" required:"true"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.AddTypeMapping(ecoquest.Challenge{}, ChallengeDoc{})
	r.Spec.Info.Title = "EcoQuest API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Location-based eco scavenger hunts: generate a hunt, complete its stops, earn points and badges.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/themes
	getThemes, _ := r.NewOperationContext(http.MethodGet, "/api/themes")
	getThemes.SetSummary("List themes")
	getThemes.SetDescription("Returns the hunt themes and the templates available for each.")
	getThemes.AddRespStructure([]catalog.ThemeInfo{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getThemes)

	// POST /api/hunts
	createHunt, _ := r.NewOperationContext(http.MethodPost, "/api/hunts")
	createHunt.SetSummary("Create hunt")
	createHunt.SetDescription("Generates a hunt for the theme near the location. The user is created if unknown.")
	createHunt.AddReqStructure(CreateHuntRequest{})
	createHunt.AddRespStructure(ecoquest.Hunt{}, openapi.WithHTTPStatus(http.StatusCreated))
	createHunt.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createHunt.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	createHunt.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusInternalServerError))
	_ = r.AddOperation(createHunt)

	// GET /api/hunts/active/{userId}
	getActive, _ := r.NewOperationContext(http.MethodGet, "/api/hunts/active/{userId}")
	getActive.SetSummary("Active hunt")
	getActive.SetDescription("Returns the user's active hunt.")
	getActive.AddReqStructure(UserPath{})
	getActive.AddRespStructure(ecoquest.Hunt{}, openapi.WithHTTPStatus(http.StatusOK))
	getActive.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getActive)

	// GET /api/hunts/user/{userId}
	listHunts, _ := r.NewOperationContext(http.MethodGet, "/api/hunts/user/{userId}")
	listHunts.SetSummary("User hunts")
	listHunts.SetDescription("Returns every hunt of the user in creation order.")
	listHunts.AddReqStructure(UserPath{})
	listHunts.AddRespStructure([]ecoquest.Hunt{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listHunts)

	// GET /api/hunts/{huntId}
	getHunt, _ := r.NewOperationContext(http.MethodGet, "/api/hunts/{huntId}")
	getHunt.SetSummary("Get hunt")
	getHunt.AddReqStructure(HuntPath{})
	getHunt.AddRespStructure(ecoquest.Hunt{}, openapi.WithHTTPStatus(http.StatusOK))
	getHunt.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getHunt)

	// POST /api/hunts/{huntId}/stops/{stopId}/complete
	complete, _ := r.NewOperationContext(http.MethodPost, "/api/hunts/{huntId}/stops/{stopId}/complete")
	complete.SetSummary("Complete stop")
	complete.SetDescription("Completes a stop once. Trivia answered wrongly earns half the points. Repeats earn nothing.")
	complete.AddReqStructure(CompleteStopInput{})
	complete.AddRespStructure(quest.Completion{}, openapi.WithHTTPStatus(http.StatusOK))
	complete.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	complete.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(complete)

	// POST /api/hunts/{huntId}/stops/{stopId}/hint
	hint, _ := r.NewOperationContext(http.MethodPost, "/api/hunts/{huntId}/stops/{stopId}/hint")
	hint.SetSummary("Stop hint")
	hint.SetDescription("Returns a hint for the stop, or a canned encouragement when none can be generated.")
	hint.AddReqStructure(StopPath{})
	hint.AddRespStructure(HintResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	hint.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(hint)

	// POST /api/hunts/{huntId}/pause
	pause, _ := r.NewOperationContext(http.MethodPost, "/api/hunts/{huntId}/pause")
	pause.SetSummary("Pause hunt")
	pause.AddReqStructure(HuntPath{})
	pause.AddRespStructure(ecoquest.Hunt{}, openapi.WithHTTPStatus(http.StatusOK))
	pause.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	pause.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(pause)

	// POST /api/hunts/{huntId}/resume
	resume, _ := r.NewOperationContext(http.MethodPost, "/api/hunts/{huntId}/resume")
	resume.SetSummary("Resume hunt")
	resume.SetDescription("Reactivates a paused hunt. Fails while another hunt of the user is active.")
	resume.AddReqStructure(HuntPath{})
	resume.AddRespStructure(ecoquest.Hunt{}, openapi.WithHTTPStatus(http.StatusOK))
	resume.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	resume.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(resume)

	// GET /api/hunts/{huntId}/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/hunts/{huntId}/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events: a hunt snapshot, then stop_completed, hunt_completed and achievement_earned events.")
	getEvents.AddReqStructure(HuntPath{})
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/hunts/{huntId}/ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/api/hunts/{huntId}/ws")
	getWS.SetSummary("WebSocket event stream")
	getWS.SetDescription("Upgrades to a WebSocket that carries the same events as the SSE stream as JSON messages.")
	getWS.AddReqStructure(HuntPath{})
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	// POST /api/users/demo
	demo, _ := r.NewOperationContext(http.MethodPost, "/api/users/demo")
	demo.SetSummary("Create demo user")
	demo.AddReqStructure(DemoUserRequest{})
	demo.AddRespStructure(ecoquest.User{}, openapi.WithHTTPStatus(http.StatusCreated))
	_ = r.AddOperation(demo)

	// GET /api/users/{userId}/profile
	profile, _ := r.NewOperationContext(http.MethodGet, "/api/users/{userId}/profile")
	profile.SetSummary("User profile")
	profile.SetDescription("Returns the user with achievements and aggregate stats.")
	profile.AddReqStructure(UserPath{})
	profile.AddRespStructure(quest.Profile{}, openapi.WithHTTPStatus(http.StatusOK))
	profile.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(profile)

	// GET /api/users/{userId}/achievements
	achievements, _ := r.NewOperationContext(http.MethodGet, "/api/users/{userId}/achievements")
	achievements.SetSummary("User achievements")
	achievements.AddReqStructure(UserPath{})
	achievements.AddRespStructure([]ecoquest.Achievement{}, openapi.WithHTTPStatus(http.StatusOK))
	achievements.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(achievements)

	// PUT /api/users/{userId}/location
	location, _ := r.NewOperationContext(http.MethodPut, "/api/users/{userId}/location")
	location.SetSummary("Update location")
	location.SetDescription("Stores the user's last known position. A missing address is reverse geocoded.")
	location.AddReqStructure(UpdateLocationInput{})
	location.AddRespStructure(ecoquest.User{}, openapi.WithHTTPStatus(http.StatusOK))
	location.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	location.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(location)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
