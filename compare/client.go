// Package compare implements trash.Comparator against a remote
// text-similarity endpoint.
package compare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/warp/trash-schedule/trash"
)

const (
	defaultTimeout   = 5 * time.Second
	defaultRateLimit = 10.0
	defaultBurst     = 5
	comparePath      = "/compare"
)

// Config configures the HTTP comparator.
type Config struct {
	BaseURL   string
	APIKey    string `json:"-"`
	Timeout   time.Duration
	RateLimit float64 // requests per second
	Burst     int
}

// Client scores one utterance/candidate pair per request. Requests are
// never retried; a failure fails the whole comparison.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

var _ trash.Comparator = (*Client)(nil)

type compareRequest struct {
	Target     string `json:"target"`
	Comparison string `json:"comparison"`
}

type compareResponse struct {
	Score decimal.Decimal `json:"score"`
	Match string          `json:"match,omitempty"`
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("comparator base URL required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(limit), burst),
		logger:     logger,
	}, nil
}

// Compare scores utterance against each candidate in order.
func (c *Client) Compare(ctx context.Context, utterance string, candidates []string) ([]trash.CompareResult, error) {
	results := make([]trash.CompareResult, 0, len(candidates))
	for _, candidate := range candidates {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}
		score, err := c.doRequest(ctx, utterance, candidate)
		if err != nil {
			return nil, err
		}
		match := score.Match
		if match == "" {
			match = candidate
		}
		c.logger.Debug("compared",
			zap.String("utterance", utterance),
			zap.String("candidate", candidate),
			zap.String("score", score.Score.String()))
		results = append(results, trash.CompareResult{Match: match, Score: score.Score})
	}
	return results, nil
}

func (c *Client) doRequest(ctx context.Context, utterance, candidate string) (*compareResponse, error) {
	jsonData, err := json.Marshal(compareRequest{Target: utterance, Comparison: candidate})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+comparePath, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("compare request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("compare API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out compareResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if out.Score.IsNegative() || out.Score.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("score %s out of range 0..1", out.Score)
	}
	return &out, nil
}
