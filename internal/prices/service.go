package prices

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"cryptolab-go/internal/models"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/sync/singleflight"
)

var (
	ErrUnknownSymbol = errors.New("cryptocurrency not found")
	ErrUnavailable   = errors.New("price data not available")
)

const (
	keyPrices   = "prices"
	keyMarkets  = "markets"
	staleSuffix = ":stale"

	sourceBinance   = "binance"
	sourceCoinGecko = "coingecko"

	maxBodyBytes = 4 << 20
)

// Coin identifies an asset at the upstream price sources. An empty
// BinanceSymbol means the asset is only quoted by CoinGecko.
type Coin struct {
	Symbol        string
	CoinGeckoId   string
	BinanceSymbol string
}

// Service quotes USD prices with Binance as the primary source and
// CoinGecko as fallback. Results are cached; once both sources fail the
// last good snapshot is served.
type Service struct {
	httpClient   *http.Client
	binanceURL   string
	coinGeckoURL string
	timeout      time.Duration
	coins        []Coin
	bySymbol     map[string]Coin
	cache        *cache.Cache
	group        singleflight.Group
}

func NewService(cfg models.PriceConfig, coins []Coin) (*Service, error) {
	httpClient, err := createCustomHttpClient(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}
	return newService(cfg, coins, httpClient), nil
}

func newService(cfg models.PriceConfig, coins []Coin, httpClient *http.Client) *Service {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	bySymbol := make(map[string]Coin, len(coins))
	for _, c := range coins {
		bySymbol[strings.ToUpper(c.Symbol)] = c
	}

	return &Service{
		httpClient:   httpClient,
		binanceURL:   strings.TrimRight(cfg.BinanceURL, "/"),
		coinGeckoURL: strings.TrimRight(cfg.CoinGeckoURL, "/"),
		timeout:      timeout,
		coins:        coins,
		bySymbol:     bySymbol,
		cache:        cache.New(ttl, 2*ttl),
	}
}

func createCustomHttpClient(timeout time.Duration) (*http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 10 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   5 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 2 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

// GetPrices returns a quote per configured symbol that any source could price
func (s *Service) GetPrices(ctx context.Context) (map[string]models.Quote, error) {
	v, err := s.cached(ctx, keyPrices, func(ctx context.Context) (any, error) {
		return s.fetchQuotes(ctx)
	})
	if err != nil {
		return nil, err
	}

	quotes := v.(map[string]models.Quote)
	out := make(map[string]models.Quote, len(quotes))
	for k, q := range quotes {
		out[k] = q
	}
	return out, nil
}

func (s *Service) GetPrice(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if _, ok := s.bySymbol[symbol]; !ok {
		return models.Quote{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	quotes, err := s.GetPrices(ctx)
	if err != nil {
		return models.Quote{}, err
	}
	quote, ok := quotes[symbol]
	if !ok {
		return models.Quote{}, fmt.Errorf("%w: %s", ErrUnavailable, symbol)
	}
	return quote, nil
}

// GetMarkets returns the CoinGecko market overview ordered by market cap
func (s *Service) GetMarkets(ctx context.Context) ([]models.Market, error) {
	v, err := s.cached(ctx, keyMarkets, func(ctx context.Context) (any, error) {
		return s.fetchMarkets(ctx)
	})
	if err != nil {
		return nil, err
	}
	return append([]models.Market(nil), v.([]models.Market)...), nil
}

// cached serves key from cache, collapsing concurrent refreshes into one
// upstream call and falling back to the stale copy when the refresh fails
func (s *Service) cached(ctx context.Context, key string, fetch func(ctx context.Context) (any, error)) (any, error) {
	if v, ok := s.cache.Get(key); ok {
		return v, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		// The result is shared by every waiter, so it outlives the caller's context
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		v, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, v, cache.DefaultExpiration)
		s.cache.Set(key+staleSuffix, v, cache.NoExpiration)
		return v, nil
	})
	if err == nil {
		return v, nil
	}

	if stale, ok := s.cache.Get(key + staleSuffix); ok {
		zap.L().Warn("Price refresh failed, serving stale data", zap.String("key", key), zap.Error(err))
		return stale, nil
	}
	return nil, err
}

func (s *Service) fetchQuotes(ctx context.Context) (map[string]models.Quote, error) {
	quotes, binanceErr := s.fetchBinance(ctx)
	if binanceErr != nil {
		zap.L().Warn("Binance price fetch failed, falling back to CoinGecko", zap.Error(binanceErr))
		quotes = make(map[string]models.Quote)
	}

	var missing []Coin
	for _, c := range s.coins {
		if _, ok := quotes[c.Symbol]; !ok && c.CoinGeckoId != "" {
			missing = append(missing, c)
		}
	}

	if len(missing) > 0 {
		fallback, err := s.fetchCoinGecko(ctx, missing)
		if err != nil {
			if len(quotes) == 0 {
				return nil, fmt.Errorf("all price sources failed: binance: %v; coingecko: %w", binanceErr, err)
			}
			zap.L().Warn("CoinGecko price fetch failed", zap.Int("missing", len(missing)), zap.Error(err))
		}
		for symbol, q := range fallback {
			quotes[symbol] = q
		}
	}

	if len(quotes) == 0 {
		return nil, ErrUnavailable
	}
	return quotes, nil
}

func (s *Service) fetchBinance(ctx context.Context) (map[string]models.Quote, error) {
	if s.binanceURL == "" {
		return nil, errors.New("binance url not configured")
	}

	var pairs []string
	symbolByPair := make(map[string]string)
	for _, c := range s.coins {
		if c.BinanceSymbol == "" {
			continue
		}
		pairs = append(pairs, `"`+c.BinanceSymbol+`"`)
		symbolByPair[c.BinanceSymbol] = c.Symbol
	}
	if len(pairs) == 0 {
		return map[string]models.Quote{}, nil
	}

	params := map[string]string{"symbols": "[" + strings.Join(pairs, ",") + "]"}
	body, err := s.get(ctx, s.binanceURL+"/api/v3/ticker/24hr", params)
	if err != nil {
		return nil, err
	}

	result := gjson.ParseBytes(body)
	if !result.IsArray() {
		return nil, fmt.Errorf("unexpected binance payload")
	}

	now := time.Now().UTC()
	quotes := make(map[string]models.Quote)
	result.ForEach(func(_, ticker gjson.Result) bool {
		symbol, ok := symbolByPair[ticker.Get("symbol").String()]
		if !ok {
			return true
		}
		quotes[symbol] = models.Quote{
			Symbol:    symbol,
			Price:     decimalOf(ticker.Get("lastPrice")),
			Change24h: decimalOf(ticker.Get("priceChangePercent")),
			Volume24h: decimalOf(ticker.Get("quoteVolume")),
			MarketCap: decimal.Zero,
			Source:    sourceBinance,
			UpdatedAt: now,
		}
		return true
	})
	return quotes, nil
}

func (s *Service) fetchCoinGecko(ctx context.Context, coins []Coin) (map[string]models.Quote, error) {
	ids := make([]string, 0, len(coins))
	for _, c := range coins {
		ids = append(ids, c.CoinGeckoId)
	}

	body, err := s.get(ctx, s.coinGeckoURL+"/simple/price", map[string]string{
		"ids":                 strings.Join(ids, ","),
		"vs_currencies":       "usd",
		"include_24hr_change": "true",
		"include_market_cap":  "true",
		"include_24hr_vol":    "true",
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	quotes := make(map[string]models.Quote)
	for _, c := range coins {
		data := gjson.GetBytes(body, c.CoinGeckoId)
		if !data.Get("usd").Exists() {
			continue
		}
		quotes[c.Symbol] = models.Quote{
			Symbol:    c.Symbol,
			Price:     decimalOf(data.Get("usd")),
			Change24h: decimalOf(data.Get("usd_24h_change")),
			MarketCap: decimalOf(data.Get("usd_market_cap")),
			Volume24h: decimalOf(data.Get("usd_24h_vol")),
			Source:    sourceCoinGecko,
			UpdatedAt: now,
		}
	}
	return quotes, nil
}

func (s *Service) fetchMarkets(ctx context.Context) ([]models.Market, error) {
	ids := make([]string, 0, len(s.coins))
	for _, c := range s.coins {
		if c.CoinGeckoId != "" {
			ids = append(ids, c.CoinGeckoId)
		}
	}

	body, err := s.get(ctx, s.coinGeckoURL+"/coins/markets", map[string]string{
		"vs_currency": "usd",
		"ids":         strings.Join(ids, ","),
		"order":       "market_cap_desc",
		"sparkline":   "false",
	})
	if err != nil {
		return nil, err
	}

	result := gjson.ParseBytes(body)
	if !result.IsArray() {
		return nil, fmt.Errorf("unexpected coingecko markets payload")
	}

	var markets []models.Market
	result.ForEach(func(_, coin gjson.Result) bool {
		markets = append(markets, models.Market{
			Id:                coin.Get("id").String(),
			Symbol:            strings.ToUpper(coin.Get("symbol").String()),
			Name:              coin.Get("name").String(),
			Image:             coin.Get("image").String(),
			CurrentPrice:      decimalOf(coin.Get("current_price")),
			MarketCap:         decimalOf(coin.Get("market_cap")),
			MarketCapRank:     coin.Get("market_cap_rank").Int(),
			Volume24h:         decimalOf(coin.Get("total_volume")),
			High24h:           decimalOf(coin.Get("high_24h")),
			Low24h:            decimalOf(coin.Get("low_24h")),
			PriceChange24h:    decimalOf(coin.Get("price_change_24h")),
			Change24h:         decimalOf(coin.Get("price_change_percentage_24h")),
			CirculatingSupply: decimalOf(coin.Get("circulating_supply")),
			TotalSupply:       decimalOf(coin.Get("total_supply")),
			Ath:               decimalOf(coin.Get("ath")),
			Atl:               decimalOf(coin.Get("atl")),
		})
		return true
	})
	return markets, nil
}

func (s *Service) get(ctx context.Context, url string, params map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to build request: %w", err)
	}
	q := req.URL.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("unable to read response from %s: %w", req.URL.Host, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", req.URL.Host, resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%s returned invalid JSON", req.URL.Host)
	}
	return body, nil
}

// decimalOf reads a JSON number or numeric string; null and missing are zero
func decimalOf(r gjson.Result) decimal.Decimal {
	if !r.Exists() || r.Type == gjson.Null {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(r.String())
	if err != nil {
		return decimal.NewFromFloat(r.Float())
	}
	return d
}
