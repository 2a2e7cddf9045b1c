package payments

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/config"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
)

// PayPalProvider drives the redirect-based wallet gateway. Its API wants
// major-unit amounts as decimal strings, so cents are converted exactly at
// this boundary.
type PayPalProvider struct {
	restClient
}

func NewPayPalProvider(cfg config.ProviderConfig) *PayPalProvider {
	return &PayPalProvider{restClient: newRESTClient(cfg.BaseURL, cfg.SecretKey, cfg.Timeout)}
}

func (p *PayPalProvider) Method() models.PaymentMethod { return models.MethodPayPal }

type paypalOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Rel  string `json:"rel"`
		Href string `json:"href"`
	} `json:"links"`
	CaptureID string `json:"captureId"`
}

func (p *PayPalProvider) CreateSession(ctx context.Context, params SessionParams) (*Session, error) {
	body := map[string]any{
		"intent": "CAPTURE",
		"amount": map[string]string{
			"currencyCode": params.Currency,
			"value":        majorUnits(params.AmountCents),
		},
		"referenceId": params.OrderID,
		"returnUrl":   params.ReturnURL,
	}
	var order paypalOrder
	if err := p.doJSON(ctx, http.MethodPost, "/v2/orders", body, &order, nil); err != nil {
		return nil, err
	}

	session := &Session{ProviderRef: order.ID}
	for _, link := range order.Links {
		if link.Rel == "approve" {
			session.ApprovalURL = link.Href
			break
		}
	}
	return session, nil
}

func (p *PayPalProvider) Capture(ctx context.Context, providerRef string) (*Capture, error) {
	var order paypalOrder
	path := fmt.Sprintf("/v2/orders/%s/capture", providerRef)
	if err := p.doJSON(ctx, http.MethodPost, path, nil, &order, nil); err != nil {
		return nil, err
	}
	transactionID := order.CaptureID
	if transactionID == "" {
		transactionID = order.ID
	}
	return &Capture{TransactionID: transactionID, CapturedAt: time.Now()}, nil
}

func (p *PayPalProvider) Cancel(ctx context.Context, providerRef string) error {
	path := fmt.Sprintf("/v2/orders/%s", providerRef)
	return p.doJSON(ctx, http.MethodDelete, path, nil, nil, nil)
}

type paypalRefund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (p *PayPalProvider) Refund(ctx context.Context, params RefundParams) (*RefundResult, error) {
	body := map[string]any{
		"amount": map[string]string{
			"currencyCode": params.Currency,
			"value":        majorUnits(params.AmountCents),
		},
		"noteToPayer": params.Reason,
		"invoiceId":   params.IdempotencyKey,
	}
	var refund paypalRefund
	path := fmt.Sprintf("/v2/captures/%s/refund", params.TransactionID)
	if err := p.doJSON(ctx, http.MethodPost, path, body, &refund, nil); err != nil {
		return nil, err
	}
	return &RefundResult{ProviderRef: refund.ID, Status: paypalRefundState(refund.Status)}, nil
}

func (p *PayPalProvider) RefundStatus(ctx context.Context, providerRef string) (RefundState, error) {
	var refund paypalRefund
	path := fmt.Sprintf("/v2/refunds/%s", providerRef)
	if err := p.doJSON(ctx, http.MethodGet, path, nil, &refund, nil); err != nil {
		return "", err
	}
	return paypalRefundState(refund.Status), nil
}

func paypalRefundState(status string) RefundState {
	switch status {
	case "COMPLETED":
		return RefundSucceeded
	case "FAILED", "CANCELLED":
		return RefundRejected
	default:
		return RefundPending
	}
}
