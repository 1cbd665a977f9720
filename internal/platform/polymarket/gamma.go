// Package polymarket implements the market-data provider against the
// Polymarket Gamma API.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/calebzhan/fflbot/internal/domain"
)

// GammaClient is the REST client for the Polymarket Gamma API, which provides
// market discovery, metadata, live prices, and resolution state.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string) *GammaClient {
	return &GammaClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListMarkets returns a paginated list of markets.
func (g *GammaClient) ListMarkets(ctx context.Context, limit, offset int) ([]domain.Market, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	path := "/markets?" + params.Encode()

	body, err := g.doGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: list markets: %w", err)
	}

	var apiMarkets []APIMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}

	markets := make([]domain.Market, 0, len(apiMarkets))
	for i := range apiMarkets {
		markets = append(markets, apiMarkets[i].ToDomainMarket())
	}

	return markets, nil
}

// GetMarket returns a single market by its ID.
func (g *GammaClient) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	apiMarket, err := g.fetchMarket(ctx, id)
	if err != nil {
		return domain.Market{}, err
	}
	return apiMarket.ToDomainMarket(), nil
}

// GetQuote returns the provider's live view of a market: current prices plus
// lifecycle flags and, when the market has resolved, the winning side.
func (g *GammaClient) GetQuote(ctx context.Context, marketID string) (domain.MarketQuote, error) {
	apiMarket, err := g.fetchMarket(ctx, marketID)
	if err != nil {
		return domain.MarketQuote{}, err
	}
	return apiMarket.ToQuote(), nil
}

// SearchMarkets searches for markets matching the given query string.
func (g *GammaClient) SearchMarkets(ctx context.Context, query string) ([]domain.Market, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", "50")

	path := "/markets?" + params.Encode()

	body, err := g.doGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: search markets: %w", err)
	}

	var apiMarkets []APIMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode search results: %w", err)
	}

	markets := make([]domain.Market, 0, len(apiMarkets))
	for i := range apiMarkets {
		markets = append(markets, apiMarkets[i].ToDomainMarket())
	}

	return markets, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (g *GammaClient) fetchMarket(ctx context.Context, id string) (APIMarket, error) {
	path := fmt.Sprintf("/markets/%s", url.PathEscape(id))

	body, err := g.doGet(ctx, path)
	if err != nil {
		return APIMarket{}, fmt.Errorf("polymarket/gamma: get market %s: %w", id, err)
	}

	var apiMarket APIMarket
	if err := json.Unmarshal(body, &apiMarket); err != nil {
		return APIMarket{}, fmt.Errorf("polymarket/gamma: decode market: %w", err)
	}

	return apiMarket, nil
}

// doGet sends an unauthenticated GET request to the Gamma API.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}

// Compile-time interface check.
var _ domain.MarketDataProvider = (*GammaClient)(nil)
