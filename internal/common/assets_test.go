package common

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

const sampleAssets = `
assets:
  - symbol: btc
    name: Bitcoin
    network: BTC
    deposit_address: bc1qexample
    coingecko_id: bitcoin
    binance_symbol: BTCUSDT
    fee:
      percent: 0.0005
  - symbol: USDT
    name: Tether
    network: TRC20
    coingecko_id: tether
    fee:
      percent: 0.01
      minimum: 1
  - symbol: XYZ
    name: Unpriced
    network: XYZ
`

func TestParseAssetConfig(t *testing.T) {
	assets, err := parseAssetConfig("assets.yaml", []byte(sampleAssets))
	if err != nil {
		t.Fatalf("parseAssetConfig failed: %v", err)
	}
	if len(assets) != 3 {
		t.Fatalf("Expected 3 assets, got %d", len(assets))
	}
	if assets[0].Symbol != "BTC" {
		t.Errorf("Expected symbol to be upper-cased, got %q", assets[0].Symbol)
	}
}

func TestParseAssetConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing symbol", "assets:\n  - network: BTC\n", "missing symbol"},
		{"missing network", "assets:\n  - symbol: BTC\n", "missing network"},
		{"duplicate", "assets:\n  - symbol: BTC\n    network: BTC\n  - symbol: btc\n    network: BTC\n", "listed twice"},
		{"negative fee", "assets:\n  - symbol: BTC\n    network: BTC\n    fee:\n      percent: -0.1\n", "negative fee"},
		{"bad yaml", "assets: [", "unable to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseAssetConfig("assets.yaml", []byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestAssetCatalog_Fee(t *testing.T) {
	assets, err := parseAssetConfig("assets.yaml", []byte(sampleAssets))
	if err != nil {
		t.Fatalf("parseAssetConfig failed: %v", err)
	}
	catalog := NewAssetCatalog(assets)

	tests := []struct {
		symbol string
		amount string
		want   string
	}{
		{"BTC", "2", "0.001"},
		{"usdt", "50", "1"},
		{"USDT", "500", "5"},
		{"XYZ", "10", "0.1"},
		{"DOGE", "10", "0.1"},
	}

	for _, tt := range tests {
		got := catalog.Fee(tt.symbol, decimal.RequireFromString(tt.amount))
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("Fee(%s, %s) = %s, want %s", tt.symbol, tt.amount, got, tt.want)
		}
	}
}

func TestAssetCatalog_LookupAndOrder(t *testing.T) {
	catalog := NewAssetCatalog(DefaultAssets())

	if _, ok := catalog.Lookup("eth"); !ok {
		t.Error("Expected case-insensitive lookup to find ETH")
	}
	if _, ok := catalog.Lookup("NOPE"); ok {
		t.Error("Expected unknown symbol to be missing")
	}

	assets := catalog.Assets()
	if assets[0].Symbol != "BTC" || assets[1].Symbol != "ETH" {
		t.Errorf("Expected configuration order, got %s, %s", assets[0].Symbol, assets[1].Symbol)
	}

	symbols := catalog.Symbols()
	for i := 1; i < len(symbols); i++ {
		if symbols[i-1] > symbols[i] {
			t.Fatalf("Symbols not sorted: %v", symbols)
		}
	}
}

func TestAssetCatalog_PriceCoins(t *testing.T) {
	assets, err := parseAssetConfig("assets.yaml", []byte(sampleAssets))
	if err != nil {
		t.Fatalf("parseAssetConfig failed: %v", err)
	}
	coins := NewAssetCatalog(assets).PriceCoins()

	if len(coins) != 2 {
		t.Fatalf("Expected 2 priced coins, got %d", len(coins))
	}
	if coins[0].BinanceSymbol != "BTCUSDT" || coins[1].BinanceSymbol != "" {
		t.Errorf("Unexpected Binance symbols: %+v", coins)
	}
	if coins[1].CoinGeckoId != "tether" {
		t.Errorf("Expected tether id, got %q", coins[1].CoinGeckoId)
	}
}

func TestLoadAssetCatalog(t *testing.T) {
	dir := t.TempDir()

	catalog, err := LoadAssetCatalog(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("Expected fallback to defaults, got %v", err)
	}
	if len(catalog.Assets()) != len(DefaultAssets()) {
		t.Errorf("Expected %d default assets, got %d", len(DefaultAssets()), len(catalog.Assets()))
	}

	path := filepath.Join(dir, "assets.yaml")
	if err := os.WriteFile(path, []byte(sampleAssets), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	catalog, err = LoadAssetCatalog(path)
	if err != nil {
		t.Fatalf("LoadAssetCatalog failed: %v", err)
	}
	if len(catalog.Assets()) != 3 {
		t.Errorf("Expected 3 assets, got %d", len(catalog.Assets()))
	}
}
