package payments

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/config"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
)

// CardProvider drives the card gateway's payment-intent API.
type CardProvider struct {
	restClient
}

func NewCardProvider(cfg config.ProviderConfig) *CardProvider {
	return &CardProvider{restClient: newRESTClient(cfg.BaseURL, cfg.SecretKey, cfg.Timeout)}
}

func (p *CardProvider) Method() models.PaymentMethod { return models.MethodCard }

type cardIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
	Status       string `json:"status"`
	ChargeID     string `json:"chargeId"`
	CapturedAt   int64  `json:"capturedAt"`
}

func (p *CardProvider) CreateSession(ctx context.Context, params SessionParams) (*Session, error) {
	body := map[string]any{
		"amount":       params.AmountCents,
		"currency":     params.Currency,
		"receiptEmail": params.CustomerEmail,
		"metadata":     map[string]string{"orderId": params.OrderID},
	}
	var intent cardIntent
	if err := p.doJSON(ctx, http.MethodPost, "/v1/intents", body, &intent, nil); err != nil {
		return nil, err
	}
	return &Session{ProviderRef: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

func (p *CardProvider) Capture(ctx context.Context, providerRef string) (*Capture, error) {
	var intent cardIntent
	path := fmt.Sprintf("/v1/intents/%s/capture", providerRef)
	if err := p.doJSON(ctx, http.MethodPost, path, nil, &intent, nil); err != nil {
		return nil, err
	}
	capturedAt := time.Now()
	if intent.CapturedAt > 0 {
		capturedAt = time.Unix(intent.CapturedAt, 0)
	}
	transactionID := intent.ChargeID
	if transactionID == "" {
		transactionID = intent.ID
	}
	return &Capture{TransactionID: transactionID, CapturedAt: capturedAt}, nil
}

func (p *CardProvider) Cancel(ctx context.Context, providerRef string) error {
	path := fmt.Sprintf("/v1/intents/%s/cancel", providerRef)
	return p.doJSON(ctx, http.MethodPost, path, nil, nil, nil)
}

type cardRefund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (p *CardProvider) Refund(ctx context.Context, params RefundParams) (*RefundResult, error) {
	body := map[string]any{
		"charge":   params.TransactionID,
		"amount":   params.AmountCents,
		"currency": params.Currency,
		"reason":   params.Reason,
	}
	headers := map[string]string{"Idempotency-Key": params.IdempotencyKey}
	var refund cardRefund
	if err := p.doJSON(ctx, http.MethodPost, "/v1/refunds", body, &refund, headers); err != nil {
		return nil, err
	}
	return &RefundResult{ProviderRef: refund.ID, Status: cardRefundState(refund.Status)}, nil
}

func (p *CardProvider) RefundStatus(ctx context.Context, providerRef string) (RefundState, error) {
	var refund cardRefund
	path := fmt.Sprintf("/v1/refunds/%s", providerRef)
	if err := p.doJSON(ctx, http.MethodGet, path, nil, &refund, nil); err != nil {
		return "", err
	}
	return cardRefundState(refund.Status), nil
}

func cardRefundState(status string) RefundState {
	switch status {
	case "succeeded":
		return RefundSucceeded
	case "failed", "canceled":
		return RefundRejected
	default:
		return RefundPending
	}
}
