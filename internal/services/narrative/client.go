// Package narrative talks to the narrative analysis service that produces
// sentiment and risk summaries per symbol. The service is optional: when no
// URL is configured the client reports nothing, and when a request fails it
// degrades to conservative defaults instead of blocking evaluation.
package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FinTrader/internal/domain/models"
	"FinTrader/internal/services/cache"
	"FinTrader/pkg/config"
	pkghttp "FinTrader/pkg/http"
	"FinTrader/pkg/logger"
)

const (
	sentimentPath = "/api/v1/sentiment"
	riskPath      = "/api/v1/risk"

	retryBackoff = 200 * time.Millisecond
)

// Client fetches narrative summaries over HTTP with retries and caching.
type Client struct {
	http    *pkghttp.Client
	baseURL string
	retries int
	cache   cache.BytesCache
	ttl     time.Duration
	log     *logger.Logger
}

func NewClient(cfg *config.Config, c cache.BytesCache, log *logger.Logger) *Client {
	return &Client{
		http:    pkghttp.NewClient(pkghttp.WithTimeout(cfg.Narrative.Timeout)),
		baseURL: cfg.Narrative.ServiceURL,
		retries: cfg.Narrative.Retries,
		cache:   c,
		ttl:     cfg.Narrative.CacheTTL.Summary,
		log:     log,
	}
}

// Enabled reports whether a narrative service is configured at all.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// FetchSentiment returns the sentiment summary for symbol. It returns
// (nil, nil) when the service is not configured. On request failure it
// returns the neutral fallback rather than an error.
func (c *Client) FetchSentiment(ctx context.Context, symbol string) (*models.SentimentSummary, error) {
	if !c.Enabled() {
		return nil, nil
	}

	var out models.SentimentSummary
	key := "narrative:sentiment:" + symbol
	if c.fromCache(ctx, key, &out) {
		return &out, nil
	}

	if err := c.fetch(ctx, sentimentPath, symbol, &out); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if c.log != nil {
			c.log.Warn("sentiment fetch failed, using neutral fallback",
				logger.String("symbol", symbol), logger.Error(err))
		}
		return &models.SentimentSummary{Score: 0, Confidence: 0.5}, nil
	}

	out.Normalize()
	c.toCache(ctx, key, &out)
	return &out, nil
}

// FetchRisk returns the risk narrative for symbol. It returns (nil, nil)
// when the service is not configured. On request failure it returns a
// conservative fallback rather than an error.
func (c *Client) FetchRisk(ctx context.Context, symbol string) (*models.RiskNarrative, error) {
	if !c.Enabled() {
		return nil, nil
	}

	var out models.RiskNarrative
	key := "narrative:risk:" + symbol
	if c.fromCache(ctx, key, &out) {
		return &out, nil
	}

	if err := c.fetch(ctx, riskPath, symbol, &out); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if c.log != nil {
			c.log.Warn("risk narrative fetch failed, using conservative fallback",
				logger.String("symbol", symbol), logger.Error(err))
		}
		return &models.RiskNarrative{
			RiskScore:       7,
			PositionSizePct: 0.02,
			StopLossPct:     0.03,
			Factors:         []string{"narrative service unavailable"},
		}, nil
	}

	out.Normalize()
	c.toCache(ctx, key, &out)
	return &out, nil
}

func (c *Client) fetch(ctx context.Context, path, symbol string, dest interface{}) error {
	opts := &pkghttp.RequestOptions{
		Method: pkghttp.MethodPost,
		URL:    c.baseURL + path,
		Body:   map[string]string{"symbol": symbol},
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff * time.Duration(attempt)):
			}
		}
		if lastErr = c.http.SendAndParse(ctx, opts, dest); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("narrative %s after %d attempts: %w", path, c.retries+1, lastErr)
}

func (c *Client) fromCache(ctx context.Context, key string, dest interface{}) bool {
	if c.cache == nil {
		return false
	}
	b, ok, err := c.cache.GetBytes(ctx, key)
	if err != nil || !ok {
		return false
	}
	return json.Unmarshal(b, dest) == nil
}

func (c *Client) toCache(ctx context.Context, key string, v interface{}) {
	if c.cache == nil || c.ttl <= 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cache.SetBytes(ctx, key, b, c.ttl); err != nil && c.log != nil {
		c.log.Warn("narrative cache write failed", logger.String("key", key), logger.Error(err))
	}
}
