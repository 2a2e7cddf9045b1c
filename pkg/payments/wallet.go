package payments

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/config"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
)

// WalletProvider drives the in-house stored-balance wallet. Charges and
// refunds settle instantly, so its refunds never sit in pending.
type WalletProvider struct {
	restClient
}

func NewWalletProvider(cfg config.ProviderConfig) *WalletProvider {
	return &WalletProvider{restClient: newRESTClient(cfg.BaseURL, cfg.SecretKey, cfg.Timeout)}
}

func (p *WalletProvider) Method() models.PaymentMethod { return models.MethodWallet }

type walletCharge struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	ChargedAt int64  `json:"chargedAt"`
}

func (p *WalletProvider) CreateSession(ctx context.Context, params SessionParams) (*Session, error) {
	body := map[string]any{
		"amountCents": params.AmountCents,
		"currency":    params.Currency,
		"email":       params.CustomerEmail,
		"orderId":     params.OrderID,
	}
	var charge walletCharge
	if err := p.doJSON(ctx, http.MethodPost, "/wallet/holds", body, &charge, nil); err != nil {
		return nil, err
	}
	return &Session{ProviderRef: charge.ID}, nil
}

func (p *WalletProvider) Capture(ctx context.Context, providerRef string) (*Capture, error) {
	var charge walletCharge
	path := fmt.Sprintf("/wallet/holds/%s/commit", providerRef)
	if err := p.doJSON(ctx, http.MethodPost, path, nil, &charge, nil); err != nil {
		return nil, err
	}
	chargedAt := time.Now()
	if charge.ChargedAt > 0 {
		chargedAt = time.Unix(charge.ChargedAt, 0)
	}
	return &Capture{TransactionID: charge.ID, CapturedAt: chargedAt}, nil
}

func (p *WalletProvider) Cancel(ctx context.Context, providerRef string) error {
	path := fmt.Sprintf("/wallet/holds/%s/release", providerRef)
	return p.doJSON(ctx, http.MethodPost, path, nil, nil, nil)
}

type walletRefund struct {
	ID string `json:"id"`
}

func (p *WalletProvider) Refund(ctx context.Context, params RefundParams) (*RefundResult, error) {
	body := map[string]any{
		"chargeId":    params.TransactionID,
		"amountCents": params.AmountCents,
		"reason":      params.Reason,
		"requestId":   params.IdempotencyKey,
	}
	var refund walletRefund
	if err := p.doJSON(ctx, http.MethodPost, "/wallet/refunds", body, &refund, nil); err != nil {
		return nil, err
	}
	// Wallet refunds are immediate; there is no pending window.
	return &RefundResult{ProviderRef: refund.ID, Status: RefundSucceeded}, nil
}

func (p *WalletProvider) RefundStatus(ctx context.Context, providerRef string) (RefundState, error) {
	return RefundSucceeded, nil
}
