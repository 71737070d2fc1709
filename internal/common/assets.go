package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cryptolab-go/internal/prices"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// FeeRule is a withdrawal fee: Percent of the amount, never below Minimum
type FeeRule struct {
	Percent decimal.Decimal `yaml:"percent"`
	Minimum decimal.Decimal `yaml:"minimum"`
}

// Compute returns the fee for amount under this rule
func (r FeeRule) Compute(amount decimal.Decimal) decimal.Decimal {
	fee := amount.Mul(r.Percent)
	if fee.LessThan(r.Minimum) {
		return r.Minimum
	}
	return fee
}

type AssetConfig struct {
	Symbol         string  `yaml:"symbol"`
	Name           string  `yaml:"name"`
	Network        string  `yaml:"network"`
	DepositAddress string  `yaml:"deposit_address"`
	CoinGeckoId    string  `yaml:"coingecko_id"`
	BinanceSymbol  string  `yaml:"binance_symbol"`
	Fee            FeeRule `yaml:"fee"`
}

type AssetsConfig struct {
	Assets []AssetConfig `yaml:"assets"`
}

// DefaultFee applies to assets without a configured rule
var DefaultFee = FeeRule{Percent: decimal.RequireFromString("0.01")}

func LoadAssetConfig(assetsFile string) ([]AssetConfig, error) {
	var assetsPath string
	if filepath.IsAbs(assetsFile) {
		assetsPath = assetsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		assetsPath = filepath.Join(wd, assetsFile)
	}

	data, err := os.ReadFile(assetsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", assetsFile, err)
	}

	return parseAssetConfig(assetsFile, data)
}

func parseAssetConfig(name string, data []byte) ([]AssetConfig, error) {
	var config AssetsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", name, err)
	}

	seen := make(map[string]bool, len(config.Assets))
	for i := range config.Assets {
		asset := &config.Assets[i]
		asset.Symbol = strings.ToUpper(strings.TrimSpace(asset.Symbol))
		if asset.Symbol == "" {
			return nil, fmt.Errorf("asset at index %d missing symbol", i)
		}
		if asset.Network == "" {
			return nil, fmt.Errorf("asset at index %d missing network", i)
		}
		if seen[asset.Symbol] {
			return nil, fmt.Errorf("asset %s listed twice", asset.Symbol)
		}
		if asset.Fee.Percent.IsNegative() || asset.Fee.Minimum.IsNegative() {
			return nil, fmt.Errorf("asset %s has a negative fee", asset.Symbol)
		}
		seen[asset.Symbol] = true
	}

	return config.Assets, nil
}

// AssetCatalog indexes the configured assets by symbol
type AssetCatalog struct {
	assets map[string]AssetConfig
	order  []string
}

func NewAssetCatalog(assets []AssetConfig) *AssetCatalog {
	c := &AssetCatalog{assets: make(map[string]AssetConfig, len(assets))}
	for _, a := range assets {
		symbol := strings.ToUpper(a.Symbol)
		if _, ok := c.assets[symbol]; !ok {
			c.order = append(c.order, symbol)
		}
		c.assets[symbol] = a
	}
	return c
}

// LoadAssetCatalog reads assetsFile, falling back to the built-in catalogue
// when the file does not exist
func LoadAssetCatalog(assetsFile string) (*AssetCatalog, error) {
	assets, err := LoadAssetConfig(assetsFile)
	if errors.Is(err, os.ErrNotExist) {
		return NewAssetCatalog(DefaultAssets()), nil
	}
	if err != nil {
		return nil, err
	}
	return NewAssetCatalog(assets), nil
}

func (c *AssetCatalog) Lookup(symbol string) (AssetConfig, bool) {
	a, ok := c.assets[strings.ToUpper(symbol)]
	return a, ok
}

// Fee computes the withdrawal fee; unknown assets pay DefaultFee
func (c *AssetCatalog) Fee(symbol string, amount decimal.Decimal) decimal.Decimal {
	if a, ok := c.Lookup(symbol); ok && (!a.Fee.Percent.IsZero() || !a.Fee.Minimum.IsZero()) {
		return a.Fee.Compute(amount)
	}
	return DefaultFee.Compute(amount)
}

// Assets returns the catalogue in configuration order
func (c *AssetCatalog) Assets() []AssetConfig {
	out := make([]AssetConfig, 0, len(c.order))
	for _, symbol := range c.order {
		out = append(out, c.assets[symbol])
	}
	return out
}

// Symbols returns the configured symbols sorted alphabetically
func (c *AssetCatalog) Symbols() []string {
	symbols := append([]string(nil), c.order...)
	sort.Strings(symbols)
	return symbols
}

// PriceCoins lists the catalogue assets that have an upstream price id
func (c *AssetCatalog) PriceCoins() []prices.Coin {
	var coins []prices.Coin
	for _, a := range c.Assets() {
		if a.CoinGeckoId == "" && a.BinanceSymbol == "" {
			continue
		}
		coins = append(coins, prices.Coin{
			Symbol:        strings.ToUpper(a.Symbol),
			CoinGeckoId:   a.CoinGeckoId,
			BinanceSymbol: a.BinanceSymbol,
		})
	}
	return coins
}

func asset(symbol, name, network, address, coingecko, percent, minimum string) AssetConfig {
	return AssetConfig{
		Symbol:         symbol,
		Name:           name,
		Network:        network,
		DepositAddress: address,
		CoinGeckoId:    coingecko,
		BinanceSymbol:  symbol + "USDT",
		Fee: FeeRule{
			Percent: decimal.RequireFromString(percent),
			Minimum: decimal.RequireFromString(minimum),
		},
	}
}

// DefaultAssets is used when no assets file is present
func DefaultAssets() []AssetConfig {
	const evm = "0x2eb5529b22c6905fca919065232c7c1424284e13"
	assets := []AssetConfig{
		asset("BTC", "Bitcoin", "BTC", "1CBMgBohgqG7tY2rTQ11wsucDprLm1Gp91", "bitcoin", "0.0005", "0"),
		asset("ETH", "Ethereum", "ERC20", evm, "ethereum", "0.005", "0"),
		asset("USDT", "Tether", "TRC20", "TLpzvToontHSkSrzpHVeSc6cTzsNH16WbN", "tether", "0.01", "1"),
		asset("BNB", "BNB", "BEP20", evm, "binancecoin", "0.0005", "0"),
		asset("SOL", "Solana", "SOL", "DBCGZ1UX2GuegrmW6oGhTYX8rfLfJpLabVXfHWvohMTe", "solana", "0.01", "0"),
		asset("USDC", "USD Coin", "ERC20", evm, "usd-coin", "0.01", "0"),
		asset("XRP", "XRP", "XRP", "rDsbeomae4FXwgQTJp9Rs64Qg9vDiTCdBv", "ripple", "0.01", "0"),
		asset("DOGE", "Dogecoin", "DOGE", "DRbXCrwvAMRjzzsi2AeGK1UfmnWY1uEJKi", "dogecoin", "0.01", "0"),
		asset("TRX", "TRON", "TRC20", "TLpzvToontHSkSrzpHVeSc6cTzsNH16WbN", "tron", "0.01", "0"),
		asset("LTC", "Litecoin", "LTC", "MFLMvHdEfQgNzFbJ3wLByVXH8VVMrDJDEY", "litecoin", "0.01", "0"),
		asset("MATIC", "Polygon", "ERC20", evm, "matic-network", "0.01", "0"),
		asset("AVAX", "Avalanche", "ERC20", evm, "avalanche-2", "0.01", "0"),
		asset("LINK", "Chainlink", "ERC20", evm, "chainlink", "0.01", "0"),
		asset("OP", "Optimism", "ERC20", evm, "optimism", "0.01", "0"),
		asset("TON", "Toncoin", "TON", "UQDxqSrLVLrkQrxSWqP9NHSzVKhuhK23pALB_-okR1JIi1cB", "the-open-network", "0.01", "0"),
	}
	// Tether is the quote currency on Binance, so it has no pair of its own
	assets[2].BinanceSymbol = ""
	return assets
}
