package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"coinfeed_go/internal/domain"
	"coinfeed_go/internal/infra"

	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the public CoinGecko API host.
const DefaultBaseURL = "https://api.coingecko.com"

// Client is the CoinGecko REST API client (boundary layer).
// All failures to reach the upstream are reported as
// domain.ErrReferenceUnavailable; an unknown coin id is domain.ErrCoinNotFound.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new CoinGecko API client.
func NewClient(cfg *infra.Config) *Client {
	baseURL := cfg.API.CoinGecko.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  cfg.API.CoinGecko.APIKey,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.API.CoinGecko.TimeoutSec) * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		logger: slog.Default().With("module", "coingecko_client"),
	}
}

// SimplePrice resolves current prices for a set of coin ids in the given
// currency. Coins the upstream does not know are simply absent from the
// result; they are not an error.
func (c *Client) SimplePrice(ctx context.Context, ids []string, vsCurrency string) (map[string]decimal.Decimal, error) {
	if len(ids) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", vsCurrency)

	body, status, err := c.doGet(ctx, "/api/v3/simple/price", query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReferenceUnavailable, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", domain.ErrReferenceUnavailable, status)
	}

	var resp simplePriceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", domain.ErrReferenceUnavailable, err)
	}

	prices := make(map[string]decimal.Decimal, len(resp))
	for id, currencies := range resp {
		if price, ok := currencies[vsCurrency]; ok {
			prices[id] = price
		}
	}
	return prices, nil
}

// Coin resolves the detail record for a single coin, extracting the current
// price in the given currency and the icon URL.
func (c *Client) Coin(ctx context.Context, id, vsCurrency string) (*CoinDetail, error) {
	body, status, err := c.doGet(ctx, "/api/v3/coins/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReferenceUnavailable, err)
	}

	switch {
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", domain.ErrCoinNotFound, id)
	case status != http.StatusOK:
		return nil, fmt.Errorf("%w: unexpected status %d", domain.ErrReferenceUnavailable, status)
	}

	var resp coinResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", domain.ErrReferenceUnavailable, err)
	}

	price, ok := resp.MarketData.CurrentPrice[vsCurrency]
	if !ok {
		return nil, fmt.Errorf("%w: no %s price for %s", domain.ErrReferenceUnavailable, vsCurrency, id)
	}

	return &CoinDetail{ID: id, Price: price, IconURL: resp.Image.Small}, nil
}

// CoinPrice resolves the current price of a single coin.
func (c *Client) CoinPrice(ctx context.Context, id, vsCurrency string) (decimal.Decimal, error) {
	detail, err := c.Coin(ctx, id, vsCurrency)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return detail.Price, nil
}

// doGet performs a GET request with the demo API key header attached.
func (c *Client) doGet(ctx context.Context, path string, query url.Values) ([]byte, int, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
