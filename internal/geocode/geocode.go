// Package geocode turns coordinates into a human readable address.
//
// Lookups never fail: when the upstream service or the cache misbehaves the
// client logs a warning and returns the coordinates formatted as text.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const userAgent = "ecoquest/1.0"

// Client reverse geocodes against a Nominatim compatible endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     *slog.Logger
	group      singleflight.Group
}

type Option func(*Client)

// WithCache stores resolved addresses in Redis for ttl.
func WithCache(rdb *redis.Client, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = rdb
		c.cacheTTL = ttl
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cacheTTL:   24 * time.Hour,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fallback is the address used when a lookup fails.
func Fallback(lat, lng float64) string {
	return fmt.Sprintf("%.4f, %.4f", lat, lng)
}

func cacheKey(lat, lng float64) string {
	return fmt.Sprintf("geocode:%.5f:%.5f", lat, lng)
}

// ReverseGeocode returns the address at lat/lng, or Fallback on any error.
// Concurrent lookups for the same point share one upstream request.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) string {
	key := cacheKey(lat, lng)

	if c.cache != nil {
		addr, err := c.cache.Get(ctx, key).Result()
		if err == nil && addr != "" {
			c.logger.Debug("geocode cache hit", "key", key)
			return addr
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			c.logger.Warn("geocode cache read failed", "key", key, "error", err)
		}
	}

	// The shared lookup outlives any one caller; the client timeout bounds it.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		addr, err := c.lookup(shared, lat, lng)
		if err == nil && c.cache != nil {
			if err := c.cache.Set(shared, key, addr, c.cacheTTL).Err(); err != nil {
				c.logger.Warn("geocode cache write failed", "key", key, "error", err)
			}
		}
		return addr, err
	})

	var (
		addr string
		err  error
	)
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case res := <-ch:
		addr, err = res.Val.(string), res.Err
	}
	if err != nil {
		c.logger.Warn("reverse geocoding failed, using coordinates",
			"lat", lat, "lng", lng, "error", err)
		return Fallback(lat, lng)
	}
	return addr
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

func (c *Client) lookup(ctx context.Context, lat, lng float64) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var out reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if out.Error != "" {
		return "", errors.New(out.Error)
	}
	if out.DisplayName == "" {
		return "", errors.New("empty address")
	}
	return out.DisplayName, nil
}
