package euportal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"grants_fetcher/internal/domain"
	"grants_fetcher/internal/provider"
)

const (
	SourceID   = "eu_portal"
	SourceName = "EU Funding & Tenders Portal"
)

// Config holds EU portal client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client implements provider.Client for the EU funding portal search API,
// which paginates with 1-based page numbers.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = "SEDIA"
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		logger:     logger.With("source", SourceID),
	}
}

func (c *Client) Source() string { return SourceID }

func (c *Client) Name() string { return SourceName }

func (c *Client) FetchPage(ctx context.Context, params provider.PageParams) ([]provider.RawRecord, error) {
	q := url.Values{}
	q.Set("apiKey", c.apiKey)
	q.Set("pageSize", strconv.Itoa(params.PageSize))
	q.Set("pageNumber", strconv.Itoa(params.Page+1)) // upstream pages are 1-based
	if params.UpdatedSince != nil {
		q.Set("updatedAfter", params.UpdatedSince.Format("2006-01-02"))
	}
	if codes := statusCodes(params.Statuses); codes != "" {
		q.Set("status", codes)
	}

	u := fmt.Sprintf("%s/search-api/prod/rest/search?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
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

	c.logger.Debug("fetched page",
		"page", params.Page+1,
		"records", len(apiResp.Results),
		"total", apiResp.TotalResults,
	)

	return apiResp.Results, nil
}

// statusCodes maps canonical statuses onto the portal's numeric codes.
func statusCodes(statuses []domain.GrantStatus) string {
	codes := make([]string, 0, len(statuses))
	for _, s := range statuses {
		if code, ok := statusCodeTable[s]; ok {
			codes = append(codes, code)
		}
	}
	return strings.Join(codes, ",")
}

var statusCodeTable = map[domain.GrantStatus]string{
	domain.StatusForecasted: "31094501",
	domain.StatusActive:     "31094502",
	domain.StatusClosed:     "31094503",
}
