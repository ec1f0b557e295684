// Package generate produces hunt content for a theme and location.
//
// Content can come from the built-in template catalog or from an
// OpenAI-compatible chat completion endpoint. Chain combines generators so a
// failed AI call can still yield a hunt.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ecoquest/ecoquest/internal/catalog"
	"github.com/ecoquest/ecoquest/internal/ecoquest"
)

// Generator creates the content of a new hunt. Implementations return an
// error matching ecoquest.ErrValidation for an unknown theme and
// ecoquest.ErrUpstream when an external service failed.
type Generator interface {
	Generate(ctx context.Context, theme ecoquest.Theme, loc ecoquest.Location) (ecoquest.HuntPayload, error)
	// Source names the generator in logs and metrics.
	Source() string
}

// Templates generates hunts from a catalog. It needs no network and never
// fails for a known theme.
type Templates struct {
	catalog *catalog.Catalog
	now     func() time.Time

	mu  sync.Mutex
	rng catalog.Rand
}

type TemplatesOption func(*Templates)

// WithRand makes stop placement reproducible.
func WithRand(rng catalog.Rand) TemplatesOption {
	return func(t *Templates) { t.rng = rng }
}

func WithClock(now func() time.Time) TemplatesOption {
	return func(t *Templates) { t.now = now }
}

func NewTemplates(c *catalog.Catalog, opts ...TemplatesOption) *Templates {
	t := &Templates{
		catalog: c,
		now:     time.Now,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Templates) Source() string { return "template" }

func (t *Templates) Generate(_ context.Context, theme ecoquest.Theme, loc ecoquest.Location) (ecoquest.HuntPayload, error) {
	tmpl, ok := t.catalog.Select(theme, loc.Lat, loc.Lng)
	if !ok {
		return ecoquest.HuntPayload{}, unknownTheme(theme)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return tmpl.Build(t.rng, t.now()), nil
}

func unknownTheme(theme ecoquest.Theme) error {
	return &ecoquest.ValidationError{Fields: []ecoquest.FieldError{
		{Field: "theme", Message: fmt.Sprintf("unknown theme %q", theme)},
	}}
}

// Chain tries each generator in order and returns the first success.
// Validation errors stop the chain since no later generator can fix them.
type Chain struct {
	generators []Generator
	logger     *slog.Logger
}

func NewChain(logger *slog.Logger, generators ...Generator) *Chain {
	return &Chain{generators: generators, logger: logger}
}

// Source reports the first generator; Generate reports the one that answered.
func (c *Chain) Source() string {
	if len(c.generators) == 0 {
		return "none"
	}
	return c.generators[0].Source()
}

func (c *Chain) Generate(ctx context.Context, theme ecoquest.Theme, loc ecoquest.Location) (ecoquest.HuntPayload, error) {
	p, _, err := c.GenerateFrom(ctx, theme, loc)
	return p, err
}

// GenerateFrom is Generate that also returns the source of the payload.
func (c *Chain) GenerateFrom(ctx context.Context, theme ecoquest.Theme, loc ecoquest.Location) (ecoquest.HuntPayload, string, error) {
	var errs []error
	for _, g := range c.generators {
		p, err := g.Generate(ctx, theme, loc)
		if err == nil {
			return p, g.Source(), nil
		}
		if isCallerError(err) || ctx.Err() != nil {
			return ecoquest.HuntPayload{}, "", err
		}
		c.logger.Warn("generator failed, trying next", "source", g.Source(), "theme", theme, "error", err)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return ecoquest.HuntPayload{}, "", fmt.Errorf("no generators configured: %w", ecoquest.ErrUpstream)
	}
	return ecoquest.HuntPayload{}, "", errors.Join(errs...)
}

// isCallerError reports whether err is about the request itself, which no
// other generator would accept either.
func isCallerError(err error) bool {
	return errors.Is(err, ecoquest.ErrValidation) && !errors.Is(err, ecoquest.ErrUpstream)
}
