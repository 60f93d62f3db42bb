package grantsgov

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"grants_fetcher/internal/domain"
	"grants_fetcher/internal/provider"
)

const (
	SourceID   = "grants_gov"
	SourceName = "Grants.gov"
)

// Grants.gov paginates with a zero-based record offset in a JSON POST body.
const dateLayout = "01/02/2006"

// Config holds Grants.gov client configuration.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Client implements provider.Client for the Grants.gov search API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	return &Client{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		baseURL:        cfg.BaseURL,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", SourceID),
	}
}

func (c *Client) Source() string { return SourceID }

func (c *Client) Name() string { return SourceName }

// FetchPage requests one page of opportunities starting at params.Offset.
func (c *Client) FetchPage(ctx context.Context, params provider.PageParams) ([]provider.RawRecord, error) {
	body := searchRequest{
		Rows:           params.PageSize,
		StartRecordNum: params.Offset,
		OppStatuses:    oppStatuses(params.Statuses),
	}
	if params.PostedSince != nil {
		body.PostedFrom = params.PostedSince.Format(dateLayout)
	}

	var resp *searchResponse
	var err error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err = c.doSearch(ctx, body)
		if err == nil {
			break
		}
		var rl *domain.RateLimitError
		if errors.As(err, &rl) || attempt == c.maxAttempts {
			return nil, err
		}

		backoff := c.backoff(attempt)
		c.logger.Warn("search request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	if err != nil {
		return nil, err
	}

	c.logger.Debug("fetched page",
		"offset", params.Offset,
		"records", len(resp.Data.OppHits),
		"hit_count", resp.Data.HitCount,
	)

	return resp.Data.OppHits, nil
}

func (c *Client) doSearch(ctx context.Context, body searchRequest) (*searchResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	url := c.baseURL + "/v1/api/search2"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Source: SourceID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &domain.RateLimitError{Source: SourceID}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.TransportError{Source: SourceID, Status: resp.StatusCode}
	}

	var apiResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if apiResp.ErrorCode != 0 {
		return nil, &domain.TransportError{
			Source: SourceID,
			Err:    fmt.Errorf("api error %d: %s", apiResp.ErrorCode, apiResp.Msg),
		}
	}
	return &apiResp, nil
}

func (c *Client) backoff(attempt int) time.Duration {
	backoff := c.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > c.maxBackoff {
		backoff = c.maxBackoff
	}
	return backoff
}

// oppStatuses translates canonical statuses into the pipe-separated
// vocabulary Grants.gov expects. No filter means all statuses.
func oppStatuses(statuses []domain.GrantStatus) string {
	if len(statuses) == 0 {
		return "posted|forecasted|closed|archived"
	}
	terms := make([]string, 0, len(statuses))
	for _, s := range statuses {
		if term, ok := statusTerms[s]; ok {
			terms = append(terms, term)
		}
	}
	return strings.Join(terms, "|")
}

var statusTerms = map[domain.GrantStatus]string{
	domain.StatusActive:     "posted",
	domain.StatusForecasted: "forecasted",
	domain.StatusClosed:     "closed",
	domain.StatusArchived:   "archived",
}
