package grantsgov

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grants_fetcher/internal/domain"
	"grants_fetcher/internal/provider"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(serverURL string) *Client {
	return New(Config{
		BaseURL:        serverURL,
		Timeout:        5 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
	}, testLogger())
}

func searchBody(t *testing.T, r *http.Request) searchRequest {
	t.Helper()
	var body searchRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func writeHits(w http.ResponseWriter, hitCount int, hits ...string) {
	raws := make([]json.RawMessage, len(hits))
	for i, h := range hits {
		raws[i] = json.RawMessage(h)
	}
	_ = json.NewEncoder(w).Encode(searchResponse{
		Data: searchData{HitCount: hitCount, OppHits: raws},
	})
}

func TestFetchPage_SendsPaginationAndWindow(t *testing.T) {
	var got searchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/api/search2", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		got = searchBody(t, r)
		writeHits(w, 1, `{"id":"101","title":"Test Grant"}`)
	}))
	defer server.Close()

	since := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	records, err := newTestClient(server.URL).FetchPage(context.Background(), provider.PageParams{
		Offset:      500,
		Page:        5,
		PageSize:    100,
		PostedSince: &since,
		Statuses:    []domain.GrantStatus{domain.StatusActive, domain.StatusForecasted},
	})

	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, 100, got.Rows)
	assert.Equal(t, 500, got.StartRecordNum)
	assert.Equal(t, "posted|forecasted", got.OppStatuses)
	assert.Equal(t, "08/20/2026", got.PostedFrom)
}

func TestFetchPage_DefaultStatusesCoverAll(t *testing.T) {
	var got searchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = searchBody(t, r)
		writeHits(w, 0)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchPage(context.Background(), provider.PageParams{PageSize: 10})

	require.NoError(t, err)
	assert.Equal(t, "posted|forecasted|closed|archived", got.OppStatuses)
}

func TestFetchPage_RetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeHits(w, 1, `{"id":"7","title":"Recovered"}`)
	}))
	defer server.Close()

	records, err := newTestClient(server.URL).FetchPage(context.Background(), provider.PageParams{PageSize: 10})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Len(t, records, 1)
}

func TestFetchPage_ExhaustedRetriesReturnTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchPage(context.Background(), provider.PageParams{PageSize: 10})

	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusInternalServerError, te.Status)
}

func TestFetchPage_RateLimitIsNotRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchPage(context.Background(), provider.PageParams{PageSize: 10})

	var rl *domain.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 1, attempts)
}

func TestFetchPage_APIErrorCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(searchResponse{ErrorCode: 3, Msg: "invalid request"})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchPage(context.Background(), provider.PageParams{PageSize: 10})

	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, te.Error(), "invalid request")
}
