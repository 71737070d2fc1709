package formance

import (
	"context"
	"errors"
	"fmt"

	"cryptolab-go/internal/models"
	"cryptolab-go/internal/settlement"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy settlement.Journal.
var _ settlement.Journal = (*Service)(nil)

const defaultLedgerName = "cryptolab"

// assetPrecision maps asset symbols to the number of decimals kept in the mirror.
var assetPrecision = map[string]int{
	"USD":   2,
	"USDC":  6,
	"USDT":  6,
	"BTC":   8,
	"ETH":   18,
	"SOL":   9,
	"BNB":   18,
	"XRP":   6,
	"DOGE":  8,
	"LTC":   8,
	"TON":   9,
	"TRX":   6,
	"MATIC": 18,
	"AVAX":  18,
	"LINK":  18,
	"OP":    18,
}

// Service mirrors settled movements into a Formance Stack ledger.
type Service struct {
	client *v3.Formance
	ledger string
}

// NewService connects to the stack and creates the ledger if it doesn't already exist.
func NewService(ctx context.Context, cfg models.FormanceConfig) (*Service, error) {
	if cfg.StackURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("formance config requires StackURL, ClientID, and ClientSecret")
	}
	if cfg.LedgerName == "" {
		cfg.LedgerName = defaultLedgerName
	}

	zap.L().Info("Connecting to Formance Stack",
		zap.String("stack_url", cfg.StackURL),
		zap.String("ledger", cfg.LedgerName))

	client := v3.New(
		v3.WithServerURL(cfg.StackURL),
		v3.WithSecurity(shared.Security{
			ClientID:     v3.Pointer(cfg.ClientID),
			ClientSecret: v3.Pointer(cfg.ClientSecret),
		}),
	)

	svc := &Service{client: client, ledger: cfg.LedgerName}

	if err := svc.ensureLedger(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger exists: %w", err)
	}

	zap.L().Info("Formance journal initialized", zap.String("ledger", cfg.LedgerName))
	return svc, nil
}

func (s *Service) ensureLedger(ctx context.Context) error {
	_, err := s.client.Ledger.V2.CreateLedger(ctx, operations.V2CreateLedgerRequest{
		Ledger: s.ledger,
		V2CreateLedgerRequest: shared.V2CreateLedgerRequest{
			Metadata: map[string]string{
				"application": "cryptolab",
			},
		},
	})
	if err != nil {
		var apiErr *sdkerrors.V2ErrorResponse
		if errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumLedgerAlreadyExists {
			zap.L().Info("Ledger already exists", zap.String("ledger", s.ledger))
			return nil
		}
		return err
	}
	zap.L().Info("Ledger created", zap.String("ledger", s.ledger))
	return nil
}

// Close is a no-op (HTTP client needs no teardown).
func (s *Service) Close() {}

// ---------- helpers ----------

// formanceAsset returns the Formance UMN notation, e.g. "USDC/6".
func formanceAsset(symbol string) string {
	return fmt.Sprintf("%s/%d", symbol, precisionFor(symbol))
}

func precisionFor(symbol string) int {
	if p, ok := assetPrecision[symbol]; ok {
		return p
	}
	return 6
}

// isConflictError checks whether a Formance SDK error is a CONFLICT (duplicate reference).
func isConflictError(err error) bool {
	var apiErr *sdkerrors.V2ErrorResponse
	return errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumConflict
}

// isNotFoundError checks whether a Formance SDK error is NOT_FOUND.
func isNotFoundError(err error) bool {
	var apiErr *sdkerrors.V2ErrorResponse
	return errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumNotFound
}

func strPtr(s string) *string { return &s }
