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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Amounts are emitted as JSON numbers; the decimal text is kept exact.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

type RequestKind string

const (
	KindDeposit    RequestKind = "deposit"
	KindWithdrawal RequestKind = "withdrawal"
)

// TransactionRecord represents a deposit or withdrawal in the user's history
type TransactionRecord struct {
	Id              string          `json:"_id"`
	Type            RequestKind     `json:"type"`
	Asset           string          `json:"asset"`
	Amount          decimal.Decimal `json:"amount"`
	Price           decimal.Decimal `json:"price"`
	Fee             decimal.Decimal `json:"fee"`
	Total           decimal.Decimal `json:"total"`
	Status          string          `json:"status"`
	Network         string          `json:"network,omitempty"`
	WalletAddress   string          `json:"walletAddress,omitempty"`
	TxHash          string          `json:"txHash,omitempty"`
	RejectionReason string          `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func DepositRecord(d DepositRequest) TransactionRecord {
	return TransactionRecord{
		Id:            d.Id,
		Type:          KindDeposit,
		Asset:         d.Asset,
		Amount:        d.Amount,
		Price:         d.Price,
		Fee:           decimal.Zero,
		Total:         d.Total,
		Status:        string(d.Status),
		WalletAddress: d.WalletAddress,
		TxHash:        d.TxHash,
		CreatedAt:     d.CreatedAt,
	}
}

func WithdrawalRecord(w WithdrawalRequest) TransactionRecord {
	return TransactionRecord{
		Id:              w.Id,
		Type:            KindWithdrawal,
		Asset:           w.Asset,
		Amount:          w.Amount,
		Fee:             w.Fee,
		Total:           w.Total,
		Status:          string(w.Status),
		Network:         w.Network,
		WalletAddress:   w.WalletAddress,
		TxHash:          w.TxHash,
		RejectionReason: w.RejectionReason,
		CreatedAt:       w.CreatedAt,
	}
}

// UserDetail is the admin view of one user
type UserDetail struct {
	User     *User                      `json:"user"`
	Balances map[string]decimal.Decimal `json:"balances"`
}

// DepositAddress is a configured receiving address for an asset
type DepositAddress struct {
	Asset   string `json:"asset"`
	Network string `json:"network"`
	Address string `json:"address"`
}

// Quote is a market snapshot for one asset, quoted in USD
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Change24h decimal.Decimal `json:"change24h"`
	MarketCap decimal.Decimal `json:"marketCap"`
	Volume24h decimal.Decimal `json:"volume24h"`
	Source    string          `json:"source"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Market is one row of the market overview
type Market struct {
	Id                string          `json:"id"`
	Symbol            string          `json:"symbol"`
	Name              string          `json:"name"`
	Image             string          `json:"image,omitempty"`
	CurrentPrice      decimal.Decimal `json:"currentPrice"`
	MarketCap         decimal.Decimal `json:"marketCap"`
	MarketCapRank     int64           `json:"marketCapRank"`
	Volume24h         decimal.Decimal `json:"volume24h"`
	High24h           decimal.Decimal `json:"high24h"`
	Low24h            decimal.Decimal `json:"low24h"`
	PriceChange24h    decimal.Decimal `json:"priceChange24h"`
	Change24h         decimal.Decimal `json:"change24h"`
	CirculatingSupply decimal.Decimal `json:"circulatingSupply"`
	TotalSupply       decimal.Decimal `json:"totalSupply"`
	Ath               decimal.Decimal `json:"ath"`
	Atl               decimal.Decimal `json:"atl"`
}
