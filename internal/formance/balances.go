package formance

import (
	"context"
	"fmt"
	"math/big"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetUserBalances returns the mirrored non-zero balances of users:{userId},
// keyed by asset symbol. Used to reconcile the mirror against the local ledger.
func (s *Service) GetUserBalances(ctx context.Context, userId string) (map[string]decimal.Decimal, error) {
	zap.L().Debug("Getting mirrored balances from Formance", zap.String("user_id", userId))

	vols, err := s.getAccountVolumes(ctx, "users:"+userId)
	if err != nil {
		return nil, err
	}

	balances := make(map[string]decimal.Decimal, len(vols))
	for fAsset := range vols {
		bal := volumeBalance(vols, fAsset)
		if bal == nil || bal.Sign() == 0 {
			continue
		}
		symbol := assetSymbol(fAsset)
		balances[symbol] = bigIntToDecimal(bal, symbol)
	}
	return balances, nil
}

// ---------- helpers ----------

// getAccountVolumes fetches volumes for a single account. An account the
// ledger has never seen has no volumes.
func (s *Service) getAccountVolumes(ctx context.Context, address string) (map[string]shared.V2Volume, error) {
	resp, err := s.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  s.ledger,
		Address: address,
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account %s: %w", address, err)
	}
	return resp.V2AccountResponse.Data.Volumes, nil
}

// volumeBalance extracts the balance for a specific asset from volumes.
func volumeBalance(vols map[string]shared.V2Volume, fAsset string) *big.Int {
	vol, ok := vols[fAsset]
	if !ok {
		return nil
	}
	if vol.Balance != nil {
		return vol.Balance
	}
	if vol.Input == nil {
		return nil
	}
	result := new(big.Int).Set(vol.Input)
	if vol.Output != nil {
		result.Sub(result, vol.Output)
	}
	return result
}

// bigIntToDecimal converts a *big.Int in smallest-unit to a human-readable decimal.
func bigIntToDecimal(raw *big.Int, symbol string) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(precisionFor(symbol)))
}

// assetSymbol extracts the symbol from a Formance asset like "USDC/6".
func assetSymbol(fAsset string) string {
	for i, c := range fAsset {
		if c == '/' {
			return fAsset[:i]
		}
	}
	return fAsset
}
