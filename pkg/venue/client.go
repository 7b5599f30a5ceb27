package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/shataken-source/cevict-live-sub025/core"
)

// DefaultBaseURL is the venue REST endpoint.
const DefaultBaseURL = "https://api.venue.example.com/v2"

// HTTPClient is the live venue REST client.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures the HTTP client.
type Option func(*HTTPClient)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *HTTPClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		c.httpClient = client
	}
}

// WithRateLimit overrides the request rate limit.
func WithRateLimit(perSec float64, burst int) Option {
	return func(c *HTTPClient) {
		c.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
}

// NewHTTPClient creates a live venue client. The token is required; callers
// without one should construct a SimClient instead.
func NewHTTPClient(token string, opts ...Option) (*HTTPClient, error) {
	if token == "" {
		return nil, &core.ConfigError{Key: "VENUE_API_TOKEN", Reason: "missing venue credentials"}
	}

	c := &HTTPClient{
		baseURL: DefaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(10), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListOpenMarkets returns open market quotes for a category. Malformed
// entries are rejected at this boundary and logged, not defaulted.
func (c *HTTPClient) ListOpenMarkets(ctx context.Context, category string) ([]core.MarketQuote, error) {
	params := url.Values{}
	params.Set("status", "open")
	if category != "" {
		params.Set("category", category)
	}

	var resp struct {
		Markets []marketPayload `json:"markets"`
	}
	if err := c.get(ctx, "/markets?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	quotes := make([]core.MarketQuote, 0, len(resp.Markets))
	for i := range resp.Markets {
		q, err := resp.Markets[i].toQuote()
		if err != nil {
			log.Printf("[venue] dropping malformed market %q: %v", resp.Markets[i].Ticker, err)
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

// SubmitOrder submits a limit order for binary contracts.
func (c *HTTPClient) SubmitOrder(ctx context.Context, req *OrderRequest) (*OrderResult, error) {
	if req.Contracts <= 0 {
		return nil, core.NewDataError("count", "contracts must be positive, got %d", req.Contracts)
	}
	if req.LimitPriceCents < 1 || req.LimitPriceCents > 99 {
		return nil, core.NewDataError("limit_price_cents", "price %d outside [1,99]", req.LimitPriceCents)
	}

	var result OrderResult
	if err := c.post(ctx, "/orders", req, &result); err != nil {
		return nil, err
	}
	if result.OrderID == "" {
		return nil, &core.VenueError{Op: "submit_order", Err: fmt.Errorf("response missing order id")}
	}
	return &result, nil
}

// GetBalanceCents returns the account balance in cents.
func (c *HTTPClient) GetBalanceCents(ctx context.Context) (int64, error) {
	var resp balancePayload
	if err := c.get(ctx, "/portfolio/balance", &resp); err != nil {
		return 0, err
	}
	return resp.BalanceCents, nil
}

// --- transport ---

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &core.VenueError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &core.VenueError{
			Op:     method + " " + path,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", bytes.TrimSpace(data)),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &core.VenueError{Op: method + " " + path, Err: fmt.Errorf("decoding response: %w", err)}
		}
	}
	return nil
}
