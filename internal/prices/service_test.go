package prices

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cryptolab-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCoins = []Coin{
	{Symbol: "BTC", CoinGeckoId: "bitcoin", BinanceSymbol: "BTCUSDT"},
	{Symbol: "ETH", CoinGeckoId: "ethereum", BinanceSymbol: "ETHUSDT"},
	{Symbol: "USDT", CoinGeckoId: "tether"},
}

const binanceTickers = `[
  {"symbol":"BTCUSDT","lastPrice":"65000.50","priceChangePercent":"-1.25","quoteVolume":"123456789.1"},
  {"symbol":"ETHUSDT","lastPrice":"3000.00","priceChangePercent":"2.5","quoteVolume":"98765.4"}
]`

const coinGeckoPrices = `{
  "bitcoin":{"usd":64990,"usd_24h_change":-1.3,"usd_market_cap":1280000000000,"usd_24h_vol":35000000000},
  "ethereum":{"usd":2999.5,"usd_24h_change":2.4,"usd_market_cap":360000000000,"usd_24h_vol":15000000000},
  "tether":{"usd":1.0001,"usd_24h_change":0.01,"usd_market_cap":110000000000,"usd_24h_vol":50000000000}
}`

const coinGeckoMarkets = `[
  {"id":"bitcoin","symbol":"btc","name":"Bitcoin","image":"https://img/btc.png","current_price":65000,
   "market_cap":1280000000000,"market_cap_rank":1,"total_volume":35000000000,"high_24h":66000,"low_24h":64000,
   "price_change_24h":-800.5,"price_change_percentage_24h":-1.2,"circulating_supply":19700000,"total_supply":21000000,
   "ath":73000,"atl":67.81},
  {"id":"tether","symbol":"usdt","name":"Tether","image":"https://img/usdt.png","current_price":1,
   "market_cap":110000000000,"market_cap_rank":3,"total_volume":50000000000,"high_24h":1.001,"low_24h":0.999,
   "price_change_24h":0.0001,"price_change_percentage_24h":0.01,"circulating_supply":110000000000,"total_supply":null,
   "ath":1.32,"atl":0.57}
]`

type upstream struct {
	binanceStatus   atomic.Int32
	coinGeckoStatus atomic.Int32
	binanceHits     atomic.Int32
	coinGeckoHits   atomic.Int32
}

func newUpstream(t *testing.T) (*upstream, *httptest.Server) {
	t.Helper()
	u := &upstream{}
	u.binanceStatus.Store(http.StatusOK)
	u.coinGeckoStatus.Store(http.StatusOK)

	mux := http.NewServeMux()
	mux.HandleFunc("/binance/api/v3/ticker/24hr", func(w http.ResponseWriter, r *http.Request) {
		u.binanceHits.Add(1)
		w.WriteHeader(int(u.binanceStatus.Load()))
		_, _ = w.Write([]byte(binanceTickers))
	})
	mux.HandleFunc("/coingecko/simple/price", func(w http.ResponseWriter, r *http.Request) {
		u.coinGeckoHits.Add(1)
		w.WriteHeader(int(u.coinGeckoStatus.Load()))
		_, _ = w.Write([]byte(coinGeckoPrices))
	})
	mux.HandleFunc("/coingecko/coins/markets", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(u.coinGeckoStatus.Load()))
		_, _ = w.Write([]byte(coinGeckoMarkets))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return u, server
}

func newTestService(server *httptest.Server, ttl time.Duration) *Service {
	return newService(models.PriceConfig{
		BinanceURL:   server.URL + "/binance",
		CoinGeckoURL: server.URL + "/coingecko",
		CacheTTL:     ttl,
		Timeout:      2 * time.Second,
	}, testCoins, server.Client())
}

func TestGetPrices_BinanceWithCoinGeckoForMissing(t *testing.T) {
	u, server := newUpstream(t)
	svc := newTestService(server, time.Minute)

	quotes, err := svc.GetPrices(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 3)

	assert.Equal(t, sourceBinance, quotes["BTC"].Source)
	assert.True(t, quotes["BTC"].Price.Equal(decimal.RequireFromString("65000.50")))
	assert.True(t, quotes["BTC"].Change24h.Equal(decimal.RequireFromString("-1.25")))
	assert.Equal(t, sourceCoinGecko, quotes["USDT"].Source)
	assert.True(t, quotes["USDT"].Price.Equal(decimal.RequireFromString("1.0001")))

	assert.Equal(t, int32(1), u.binanceHits.Load())
	assert.Equal(t, int32(1), u.coinGeckoHits.Load())
}

func TestGetPrices_FallsBackToCoinGecko(t *testing.T) {
	u, server := newUpstream(t)
	u.binanceStatus.Store(http.StatusInternalServerError)
	svc := newTestService(server, time.Minute)

	quotes, err := svc.GetPrices(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 3)
	assert.Equal(t, sourceCoinGecko, quotes["BTC"].Source)
	assert.True(t, quotes["ETH"].MarketCap.Equal(decimal.NewFromInt(360000000000)))
}

func TestGetPrices_Cached(t *testing.T) {
	u, server := newUpstream(t)
	svc := newTestService(server, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := svc.GetPrices(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), u.binanceHits.Load())
}

func TestGetPrices_ServesStaleWhenSourcesFail(t *testing.T) {
	u, server := newUpstream(t)
	svc := newTestService(server, 10*time.Millisecond)

	fresh, err := svc.GetPrices(context.Background())
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	u.binanceStatus.Store(http.StatusBadGateway)
	u.coinGeckoStatus.Store(http.StatusTooManyRequests)

	stale, err := svc.GetPrices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fresh["BTC"].Price.String(), stale["BTC"].Price.String())
	assert.Equal(t, int32(2), u.binanceHits.Load())
}

func TestGetPrices_NoDataAndSourcesDown(t *testing.T) {
	u, server := newUpstream(t)
	u.binanceStatus.Store(http.StatusInternalServerError)
	u.coinGeckoStatus.Store(http.StatusInternalServerError)
	svc := newTestService(server, time.Minute)

	_, err := svc.GetPrices(context.Background())
	assert.Error(t, err)
}

func TestGetPrice(t *testing.T) {
	_, server := newUpstream(t)
	svc := newTestService(server, time.Minute)

	quote, err := svc.GetPrice(context.Background(), "eth")
	require.NoError(t, err)
	assert.Equal(t, "ETH", quote.Symbol)
	assert.True(t, quote.Price.Equal(decimal.NewFromInt(3000)))

	_, err = svc.GetPrice(context.Background(), "DOGE")
	assert.True(t, errors.Is(err, ErrUnknownSymbol), "got %v", err)
}

func TestGetMarkets(t *testing.T) {
	_, server := newUpstream(t)
	svc := newTestService(server, time.Minute)

	markets, err := svc.GetMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 2)
	assert.Equal(t, "BTC", markets[0].Symbol)
	assert.Equal(t, int64(1), markets[0].MarketCapRank)
	assert.True(t, markets[0].Atl.Equal(decimal.RequireFromString("67.81")))
	assert.True(t, markets[1].TotalSupply.IsZero())
}
