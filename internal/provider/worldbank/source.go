package worldbank

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"grants_fetcher/internal/domain"
	"grants_fetcher/internal/provider"
)

const (
	SourceID   = "world_bank"
	SourceName = "World Bank Projects"
)

// Config holds World Bank client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client implements provider.Client for the World Bank projects API. The API
// paginates with a record offset ("os") and returns the page as a JSON object
// keyed by project id rather than an array.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		logger:     logger.With("source", SourceID),
	}
}

func (c *Client) Source() string { return SourceID }

func (c *Client) Name() string { return SourceName }

func (c *Client) FetchPage(ctx context.Context, params provider.PageParams) ([]provider.RawRecord, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("rows", strconv.Itoa(params.PageSize))
	q.Set("os", strconv.Itoa(params.Offset))
	if params.UpdatedSince != nil {
		q.Set("lastupdateddate", params.UpdatedSince.Format("2006-01-02"))
	}

	u := fmt.Sprintf("%s/v2/projects?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
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

	var apiResp projectsResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	// The page arrives keyed by project id; flatten to a stable order.
	ids := make([]string, 0, len(apiResp.Projects))
	for id := range apiResp.Projects {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	records := make([]provider.RawRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, apiResp.Projects[id])
	}

	c.logger.Debug("fetched page",
		"offset", params.Offset,
		"records", len(records),
		"total", apiResp.Total,
	)

	return records, nil
}
