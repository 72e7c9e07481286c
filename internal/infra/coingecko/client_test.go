package coingecko

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"coinfeed_go/internal/domain"
	"coinfeed_go/internal/infra"

	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &infra.Config{}
	cfg.API.CoinGecko.BaseURL = server.URL
	cfg.API.CoinGecko.APIKey = "demo-key"
	cfg.API.CoinGecko.TimeoutSec = 2
	return NewClient(cfg)
}

func TestSimplePrice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/simple/price" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-cg-demo-api-key") != "demo-key" {
			t.Error("expected demo API key header")
		}
		if r.URL.Query().Get("vs_currencies") != "inr" {
			t.Errorf("unexpected vs_currencies: %s", r.URL.Query().Get("vs_currencies"))
		}
		w.Write([]byte(`{"bitcoin": {"inr": 5000000}, "ethereum": {"inr": 300000}}`))
	})

	prices, err := client.SimplePrice(context.Background(), []string{"bitcoin", "ethereum"}, "inr")
	if err != nil {
		t.Fatalf("SimplePrice failed: %v", err)
	}

	if !prices["bitcoin"].Equal(decimal.NewFromInt(5000000)) {
		t.Errorf("expected bitcoin price 5000000, got %v", prices["bitcoin"])
	}
	if !prices["ethereum"].Equal(decimal.NewFromInt(300000)) {
		t.Errorf("expected ethereum price 300000, got %v", prices["ethereum"])
	}
}

func TestSimplePrice_EmptyIDs(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	prices, err := client.SimplePrice(context.Background(), nil, "inr")
	if err != nil {
		t.Fatalf("SimplePrice failed: %v", err)
	}
	if len(prices) != 0 {
		t.Errorf("expected empty result, got %v", prices)
	}
	if called {
		t.Error("no request should be made for an empty id set")
	}
}

func TestSimplePrice_UpstreamFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.SimplePrice(context.Background(), []string{"bitcoin"}, "inr")
	if !errors.Is(err, domain.ErrReferenceUnavailable) {
		t.Errorf("expected ErrReferenceUnavailable, got %v", err)
	}
}

func TestCoin(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/coins/bitcoin" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"id": "bitcoin",
			"market_data": {"current_price": {"inr": 5000000, "usd": 60000}},
			"image": {"small": "https://example.com/btc-small.png"}
		}`))
	})

	detail, err := client.Coin(context.Background(), "bitcoin", "inr")
	if err != nil {
		t.Fatalf("Coin failed: %v", err)
	}
	if !detail.Price.Equal(decimal.NewFromInt(5000000)) {
		t.Errorf("expected price 5000000, got %v", detail.Price)
	}
	if detail.IconURL != "https://example.com/btc-small.png" {
		t.Errorf("unexpected icon URL: %s", detail.IconURL)
	}
}

func TestCoin_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.Coin(context.Background(), "nope", "inr")
	if !errors.Is(err, domain.ErrCoinNotFound) {
		t.Errorf("expected ErrCoinNotFound, got %v", err)
	}
	if errors.Is(err, domain.ErrReferenceUnavailable) {
		t.Error("not-found must be distinct from upstream failure")
	}
}

func TestCoinPrice_MissingCurrency(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "bitcoin", "market_data": {"current_price": {"usd": 60000}}}`))
	})

	_, err := client.CoinPrice(context.Background(), "bitcoin", "inr")
	if !errors.Is(err, domain.ErrReferenceUnavailable) {
		t.Errorf("expected ErrReferenceUnavailable for missing currency, got %v", err)
	}
}
