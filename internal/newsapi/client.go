package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/glabrego/newsreader/internal/news"
)

const DefaultBaseURL = "https://newsapi.org/v2"

// ErrNetwork is wrapped by every transport failure and non-success response.
var ErrNetwork = errors.New("network error")

// StatusError reports a non-2xx response from the API.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	return ErrNetwork
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient builds a client for the headlines API. A nil httpClient gets a
// 10s timeout; a nil limiter disables request pacing.
func NewClient(baseURL, apiKey string, httpClient *http.Client, limiter *rate.Limiter) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
		limiter: limiter,
	}
}

// TopHeadlines fetches one page of headlines for country, optionally narrowed
// to category.
func (c *Client) TopHeadlines(ctx context.Context, country, category string, pageSize, page int) ([]news.Article, error) {
	q := make(url.Values)
	if country != "" {
		q.Set("country", country)
	}
	if category != "" {
		q.Set("category", category)
	}
	setPaging(q, pageSize, page)
	return c.listArticles(ctx, "/top-headlines", q, "top headlines")
}

// Search fetches one page of articles matching query.
func (c *Client) Search(ctx context.Context, query string, pageSize, page int) ([]news.Article, error) {
	q := make(url.Values)
	q.Set("q", query)
	setPaging(q, pageSize, page)
	return c.listArticles(ctx, "/everything", q, "search")
}

func setPaging(q url.Values, pageSize, page int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	q.Set("pageSize", strconv.Itoa(pageSize))
	q.Set("page", strconv.Itoa(page))
}

func (c *Client) listArticles(ctx context.Context, path string, q url.Values, resource string) ([]news.Article, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s rate limiter: %w", resource, err)
	}

	q.Set("apiKey", c.apiKey)
	req, err := c.newRequest(ctx, http.MethodGet, path+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w: %w", resource, ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: %w", resource, statusError(resp))
	}

	var body articlesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode %s response: %w: %w", resource, ErrNetwork, err)
	}
	if body.Status == "error" {
		return nil, fmt.Errorf("%s: %w", resource, &StatusError{StatusCode: resp.StatusCode, Code: body.Code, Message: body.Message})
	}
	return body.toArticles(), nil
}

func statusError(resp *http.Response) *StatusError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	out := &StatusError{StatusCode: resp.StatusCode}

	var apiErr articlesResponse
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
		out.Code = apiErr.Code
		out.Message = apiErr.Message
		return out
	}
	out.Message = strings.TrimSpace(string(raw))
	return out
}

func (c *Client) newRequest(ctx context.Context, method, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}
