/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"flag"
	"fmt"

	"cryptolab-go/internal/common"
	"cryptolab-go/internal/config"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func printAsset(asset common.AssetConfig, isLast bool, sample decimal.Decimal, catalog *common.AssetCatalog) {
	symbol := common.BoxPrefix(isLast)
	assetNetwork := fmt.Sprintf("%s-%s", asset.Symbol, asset.Network)
	fmt.Printf("%s %-30s → %s\n", symbol, assetNetwork, asset.DepositAddress)

	detailSymbol := common.BoxDetailPrefix(isLast)
	fmt.Printf("%s   %s, fee on %s: %s\n", detailSymbol, asset.Name, sample, catalog.Fee(asset.Symbol, sample))
}

func main() {
	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	assetFlag := flag.String("asset", "", "Show a single asset symbol (optional)")
	sampleFlag := flag.String("sample", "100", "Withdrawal amount used to illustrate the fee")
	flag.Parse()

	sample, err := decimal.NewFromString(*sampleFlag)
	if err != nil || !sample.IsPositive() {
		logger.Fatal("Invalid sample amount", zap.String("sample", *sampleFlag))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	catalog, err := common.LoadAssetCatalog(cfg.AssetsFile)
	if err != nil {
		logger.Fatal("Failed to load asset catalogue", zap.Error(err))
	}

	assets := catalog.Assets()
	if *assetFlag != "" {
		asset, ok := catalog.Lookup(*assetFlag)
		if !ok {
			logger.Fatal("Asset not in catalogue", zap.String("asset", *assetFlag))
		}
		assets = []common.AssetConfig{asset}
	}

	common.PrintHeader("DEPOSIT ADDRESSES REPORT", common.WideWidth)
	fmt.Println()
	for i, asset := range assets {
		printAsset(asset, i == len(assets)-1, sample, catalog)
	}
	common.PrintFooter(fmt.Sprintf("SUMMARY: %d assets from %s", len(assets), cfg.AssetsFile), common.WideWidth)

	logger.Info("Address query completed", zap.Int("assets", len(assets)))
}
