package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ecoquest/ecoquest/internal/ecoquest"
)

const (
	defaultHuntStops = 4
	maxStopPoints    = 100
)

// AI generates hunts and hints through an OpenAI-compatible chat completions
// API. Each attempt gets its own timeout; transient failures are retried
// with exponential backoff.
type AI struct {
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	maxRetries uint64
	httpClient *http.Client
	newBackOff func() backoff.BackOff
	now        func() time.Time
	logger     *slog.Logger
}

type AIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries uint64
}

type AIOption func(*AI)

// WithBackOff replaces the retry schedule. Tests use it to avoid sleeping.
func WithBackOff(fn func() backoff.BackOff) AIOption {
	return func(a *AI) { a.newBackOff = fn }
}

func WithAILogger(logger *slog.Logger) AIOption {
	return func(a *AI) { a.logger = logger }
}

func WithHTTPClient(c *http.Client) AIOption {
	return func(a *AI) { a.httpClient = c }
}

func NewAI(cfg AIConfig, opts ...AIOption) *AI {
	a := &AI{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *AI) Source() string { return "ai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// statusError is a non-2xx answer from the completion endpoint.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("completion endpoint returned %d: %s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

// complete sends one chat completion and returns the assistant message,
// retrying transient failures.
func (a *AI) complete(ctx context.Context, req chatRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var content string
	attempt := 0
	op := func() error {
		attempt++
		c, err := a.post(ctx, body)
		if err != nil {
			var se *statusError
			if errors.As(err, &se) && !se.retryable() {
				return backoff.Permanent(err)
			}
			return err
		}
		content = c
		return nil
	}
	notify := func(err error, wait time.Duration) {
		a.logger.Warn("completion attempt failed, retrying",
			"attempt", attempt, "wait", wait, "error", err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(a.newBackOff(), a.maxRetries), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return "", fmt.Errorf("after %d attempt(s): %w: %w", attempt, ecoquest.ErrUpstream, err)
	}
	return content, nil
}

func (a *AI) post(ctx context.Context, body []byte) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", &statusError{code: resp.StatusCode, body: string(bytes.TrimSpace(respBody))}
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", errors.New("empty completion")
	}
	return out.Choices[0].Message.Content, nil
}

// aiHunt is the JSON shape the model is asked to produce.
type aiHunt struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Stops       []aiStop `json:"stops"`
}

type aiStop struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Lat         float64            `json:"lat"`
	Lng         float64            `json:"lng"`
	Address     string             `json:"address"`
	Points      int                `json:"points"`
	Challenge   ecoquest.Challenge `json:"challenge"`
}

const huntSystemPrompt = `You design short outdoor eco-themed scavenger hunts.
Answer with one JSON object and nothing else:
{"title":string,"description":string,"stops":[{"title":string,"description":string,"lat":number,"lng":number,"address":string,"points":integer,
"challenge":{"type":"photo","prompt":string} | {"type":"trivia","question":string,"options":[string],"correctAnswer":string} | {"type":"task","description":string}}]}
Stops must be real walkable places within 1 km of the start point. Points are between 10 and 100.`

func (a *AI) Generate(ctx context.Context, theme ecoquest.Theme, loc ecoquest.Location) (ecoquest.HuntPayload, error) {
	if !theme.Valid() {
		return ecoquest.HuntPayload{}, unknownTheme(theme)
	}

	user := fmt.Sprintf("Theme: %s. Start point: lat %.5f, lng %.5f", theme, loc.Lat, loc.Lng)
	if loc.Address != "" {
		user += " (" + loc.Address + ")"
	}
	user += fmt.Sprintf(". Create %d stops.", defaultHuntStops)

	content, err := a.complete(ctx, chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: huntSystemPrompt},
			{Role: "user", Content: user},
		},
		Temperature:    0.8,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return ecoquest.HuntPayload{}, err
	}

	p, err := parseHunt(content, loc, a.now())
	if err != nil {
		// The cause stays text so bad model output never reads as a caller error.
		return ecoquest.HuntPayload{}, fmt.Errorf("%w: %v", ecoquest.ErrUpstream, err)
	}
	return p, nil
}

// parseHunt turns model output into a payload centered on loc. Output that
// does not describe a playable hunt is an error.
func parseHunt(content string, loc ecoquest.Location, now time.Time) (ecoquest.HuntPayload, error) {
	content = stripCodeFence(content)

	var h aiHunt
	if err := json.Unmarshal([]byte(content), &h); err != nil {
		return ecoquest.HuntPayload{}, fmt.Errorf("decoding generated hunt: %w", err)
	}
	if h.Title == "" {
		return ecoquest.HuntPayload{}, errors.New("generated hunt has no title")
	}
	if len(h.Stops) == 0 {
		return ecoquest.HuntPayload{}, errors.New("generated hunt has no stops")
	}

	stops := make([]ecoquest.Stop, len(h.Stops))
	for i, s := range h.Stops {
		if s.Title == "" {
			return ecoquest.HuntPayload{}, fmt.Errorf("stop %d has no title", i)
		}
		if err := s.Challenge.Validate(); err != nil {
			return ecoquest.HuntPayload{}, fmt.Errorf("stop %d: %v", i, err)
		}
		pts := min(max(s.Points, 10), maxStopPoints)
		addr := s.Address
		if addr == "" {
			addr = loc.Address
		}
		stops[i] = ecoquest.Stop{
			ID:          fmt.Sprintf("stop_%d_%d", now.UnixMilli(), i),
			Title:       s.Title,
			Description: s.Description,
			Location:    ecoquest.Location{Lat: s.Lat, Lng: s.Lng, Address: addr},
			Address:     addr,
			Challenge:   s.Challenge,
			Points:      pts,
		}
	}
	return ecoquest.HuntPayload{
		Title:       h.Title,
		Description: h.Description,
		Location:    loc,
		Stops:       stops,
	}, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
