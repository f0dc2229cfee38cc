// Package rerank is an HTTP client for a pairwise relevance (cross-
// encoder) endpoint speaking the /v1/rerank wire format.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docsage-ai/docsage/internal/domain"
	"github.com/docsage-ai/docsage/internal/metrics"
	"github.com/docsage-ai/docsage/internal/retry"
)

// Result is one scored (query, document) pair; Index refers to the
// position of the document in the request.
type Result struct {
	Index int
	Score float64
}

// Client calls a rerank API over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	retry      retry.Policy
	logger     *zap.Logger
}

// Config holds rerank provider settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewClient creates a rerank client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	policy := retry.DefaultPolicy()
	policy.Retryable = func(err error) bool {
		var se *statusError
		if errors.As(err, &se) {
			return se.code == http.StatusTooManyRequests || se.code >= 500
		}
		return retry.DefaultRetryable(err)
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		retry:      policy,
		logger:     cfg.Logger,
	}
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank scores every (query, document) pair. Results keep the request
// ordering by index; callers decide how to reorder.
func (c *Client) Rerank(ctx context.Context, query string, documents []string) ([]Result, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{Model: c.model, Query: query, Documents: documents})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	resp, err := retry.Do(ctx, c.retry, c.logger, "rerank",
		func(ctx context.Context) (*rerankResponse, error) {
			return c.call(ctx, body)
		})
	if err != nil {
		metrics.RerankRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return nil, fmt.Errorf("rerank: %v: %w", err, domain.ErrRerankProviderError)
	}

	metrics.RerankRequestsTotal.WithLabelValues(c.model, "success").Inc()

	results := make([]Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.Index < 0 || r.Index >= len(documents) {
			continue
		}
		results = append(results, Result{Index: r.Index, Score: r.RelevanceScore})
	}
	return results, nil
}

func (c *Client) call(ctx context.Context, body []byte) (*rerankResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &statusError{code: resp.StatusCode, detail: string(detail)}
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &parsed, nil
}

// statusError carries a non-200 response for retry classification.
type statusError struct {
	code   int
	detail string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("rerank API error %d: %s", e.code, e.detail)
}
