// Package oracle quotes the SOL/USD price used to denominate token
// prices, liquidity and volume. Quotes come from CoinGecko with a
// Binance fallback and are cached with a short TTL so swap bursts do not
// hammer the upstream APIs.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"curve-engine/internal/cache"
)

const (
	coingeckoURL = "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd"
	binanceURL   = "https://api.binance.com/api/v3/ticker/price?symbol=SOLUSDT"

	cacheKey        = "solPriceUSD"
	defaultCacheTTL = 30 * time.Second
)

// PriceSource quotes the current SOL price in USD.
type PriceSource interface {
	SOLPrice(ctx context.Context) (float64, error)
}

// HTTPSource fetches quotes over HTTP with a cache in front.
type HTTPSource struct {
	client *http.Client
	cache  cache.StringCache
	ttl    time.Duration
	log    zerolog.Logger
}

// Options configure an HTTPSource.
type Options struct {
	// Client is the HTTP client. Defaults to one with a 10s timeout.
	Client *http.Client
	// Cache holds the latest quote. Nil disables caching.
	Cache cache.StringCache
	// TTL is the cache lifetime. Defaults to 30s.
	TTL time.Duration
}

// NewHTTPSource creates the production price source.
func NewHTTPSource(opts *Options, log zerolog.Logger) *HTTPSource {
	src := &HTTPSource{
		client: &http.Client{Timeout: 10 * time.Second},
		ttl:    defaultCacheTTL,
		log:    log.With().Str("component", "oracle").Logger(),
	}
	if opts != nil {
		if opts.Client != nil {
			src.client = opts.Client
		}
		if opts.Cache != nil {
			src.cache = opts.Cache
		}
		if opts.TTL > 0 {
			src.ttl = opts.TTL
		}
	}
	return src
}

// Compile-time interface check.
var _ PriceSource = (*HTTPSource)(nil)

// SOLPrice returns the cached quote when fresh, otherwise fetches from
// CoinGecko and falls back to Binance.
func (s *HTTPSource) SOLPrice(ctx context.Context) (float64, error) {
	if s.cache != nil {
		if val, err := s.cache.GetString(ctx, cacheKey); err == nil {
			if price, err := strconv.ParseFloat(val, 64); err == nil && price > 0 {
				return price, nil
			}
		}
	}

	price, err := s.fromCoingecko(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("coingecko quote failed, trying binance")
		price, err = s.fromBinance(ctx)
		if err != nil {
			return 0, fmt.Errorf("all price sources failed: %w", err)
		}
	}

	if s.cache != nil {
		if err := s.cache.SetString(ctx, cacheKey, strconv.FormatFloat(price, 'f', -1, 64), s.ttl); err != nil {
			s.log.Warn().Err(err).Msg("cache sol price")
		}
	}
	return price, nil
}

func (s *HTTPSource) fromCoingecko(ctx context.Context) (float64, error) {
	var out struct {
		Solana struct {
			USD float64 `json:"usd"`
		} `json:"solana"`
	}
	if err := s.getJSON(ctx, coingeckoURL, &out); err != nil {
		return 0, err
	}
	if out.Solana.USD <= 0 {
		return 0, fmt.Errorf("coingecko returned non-positive price")
	}
	return out.Solana.USD, nil
}

func (s *HTTPSource) fromBinance(ctx context.Context) (float64, error) {
	var out struct {
		Price string `json:"price"`
	}
	if err := s.getJSON(ctx, binanceURL, &out); err != nil {
		return 0, err
	}
	price, err := strconv.ParseFloat(out.Price, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("binance returned invalid price %q", out.Price)
	}
	return price, nil
}

func (s *HTTPSource) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Static is a fixed-price source for tests and offline runs.
type Static float64

// Compile-time interface check.
var _ PriceSource = Static(0)

func (s Static) SOLPrice(ctx context.Context) (float64, error) {
	return float64(s), nil
}
