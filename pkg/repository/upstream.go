package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/config"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
)

// EndpointResolver maps a logical service name to a reachable base URL.
type EndpointResolver interface {
	Endpoint(ctx context.Context, service string) (string, error)
}

// UpstreamClient talks to the hosted commerce API that holds the canonical
// copy of orders created before this service owned the data.
type UpstreamClient struct {
	baseURL  string
	apiKey   string
	service  string
	resolver EndpointResolver
	http     *http.Client
}

func NewUpstreamClient(cfg *config.UpstreamConfig, resolver EndpointResolver) *UpstreamClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &UpstreamClient{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		service:  cfg.ServiceName,
		resolver: resolver,
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *UpstreamClient) endpoint(ctx context.Context) (string, error) {
	if c.resolver != nil && c.service != "" {
		addr, err := c.resolver.Endpoint(ctx, c.service)
		if err == nil && addr != "" {
			if !strings.HasPrefix(addr, "http") {
				addr = "http://" + addr
			}
			return strings.TrimRight(addr, "/"), nil
		}
	}
	if c.baseURL == "" {
		return "", fmt.Errorf("no upstream endpoint configured: %w", ErrUnavailable)
	}
	return c.baseURL, nil
}

func (c *UpstreamClient) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var wire wireOrder
	path := fmt.Sprintf("/api/orders/%s", orderID)
	if err := c.do(ctx, http.MethodGet, path, nil, &wire); err != nil {
		return nil, err
	}
	return wire.toModel(), nil
}

func (c *UpstreamClient) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus, note string) (*models.Order, error) {
	body := map[string]any{"status": status}
	if note != "" {
		body["note"] = note
	}
	var wire wireOrder
	path := fmt.Sprintf("/api/orders/%s/status", orderID)
	if err := c.do(ctx, http.MethodPut, path, body, &wire); err != nil {
		return nil, err
	}
	return wire.toModel(), nil
}

func (c *UpstreamClient) AddNote(ctx context.Context, orderID string, note models.OrderNote) (*models.Order, error) {
	body := map[string]any{
		"message":           note.Message,
		"createdBy":         note.CreatedBy,
		"isCustomerVisible": note.IsCustomerVisible,
	}
	var wire wireOrder
	path := fmt.Sprintf("/api/orders/%s/notes", orderID)
	if err := c.do(ctx, http.MethodPost, path, body, &wire); err != nil {
		return nil, err
	}
	return wire.toModel(), nil
}

func (c *UpstreamClient) do(ctx context.Context, method, path string, body, dest any) error {
	base, err := c.endpoint(ctx)
	if err != nil {
		return err
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upstream %s %s: %v: %w", method, path, err, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("upstream %s %s: status %d: %s: %w",
			method, path, resp.StatusCode, strings.TrimSpace(string(snippet)), classifyStatus(resp.StatusCode))
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("upstream %s %s: decode: %v: %w", method, path, err, ErrParse)
	}
	return nil
}

func classifyStatus(code int) error {
	switch {
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrPermissionDenied
	case code == http.StatusConflict:
		return ErrConflict
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return ErrInvalid
	default:
		return ErrUnavailable
	}
}

// looseTime tolerates the upstream's mixed date formats. A value that will
// not parse decodes to the current time instead of failing the whole order.
type looseTime struct {
	time.Time
}

var looseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *looseTime) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range looseLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	// Epoch seconds show up in some legacy records.
	var epoch int64
	if err := json.Unmarshal(data, &epoch); err == nil && epoch > 0 {
		t.Time = time.Unix(epoch, 0)
		return nil
	}
	t.Time = time.Now()
	return nil
}

type wireOrder struct {
	ID              string               `json:"id"`
	OrderNumber     string               `json:"orderNumber"`
	CustomerID      string               `json:"customerId"`
	CustomerName    string               `json:"customerName"`
	CustomerEmail   string               `json:"customerEmail"`
	Status          string               `json:"status"`
	Items           []wireItem           `json:"items"`
	Subtotal        float64              `json:"subtotal"`
	Tax             float64              `json:"tax"`
	ShippingCost    float64              `json:"shippingCost"`
	Discount        float64              `json:"discount"`
	Total           float64              `json:"total"`
	Payment         *wirePayment         `json:"payment"`
	Notes           []wireNote           `json:"notes"`
	ShippingAddress *models.Address      `json:"shippingAddress"`
	BillingAddress  *models.Address      `json:"billingAddress"`
	ShippingMethod  string               `json:"shippingMethod"`
	TrackingInfo    *models.TrackingInfo `json:"trackingInfo"`
	CreatedAt       looseTime            `json:"createdAt"`
	UpdatedAt       looseTime            `json:"updatedAt"`
}

type wireItem struct {
	ProductID string            `json:"productId"`
	VariantID string            `json:"variantId"`
	SKU       string            `json:"sku"`
	Name      string            `json:"name"`
	Price     float64           `json:"price"`
	Quantity  int               `json:"quantity"`
	Subtotal  float64           `json:"subtotal"`
	Image     string            `json:"image"`
	Options   map[string]string `json:"options"`
}

type wirePayment struct {
	Method        string    `json:"method"`
	Status        string    `json:"status"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	TransactionID string    `json:"transactionId"`
	PaidAt        looseTime `json:"paidAt"`
	RefundedAt    looseTime `json:"refundedAt"`
}

type wireNote struct {
	ID                string    `json:"id"`
	Message           string    `json:"message"`
	CreatedBy         string    `json:"createdBy"`
	IsCustomerVisible bool      `json:"isCustomerVisible"`
	CreatedAt         looseTime `json:"createdAt"`
}

func (w *wireOrder) toModel() *models.Order {
	order := &models.Order{
		ID:             w.ID,
		OrderNumber:    w.OrderNumber,
		CustomerID:     w.CustomerID,
		CustomerName:   w.CustomerName,
		CustomerEmail:  w.CustomerEmail,
		Status:         models.OrderStatus(w.Status),
		Subtotal:       w.Subtotal,
		Tax:            w.Tax,
		ShippingCost:   w.ShippingCost,
		Discount:       w.Discount,
		Total:          w.Total,
		BillingAddress: w.BillingAddress,
		ShippingMethod: w.ShippingMethod,
		TrackingInfo:   w.TrackingInfo,
		CreatedAt:      w.CreatedAt.Time,
		UpdatedAt:      w.UpdatedAt.Time,
	}
	if w.ShippingAddress != nil {
		order.ShippingAddress = *w.ShippingAddress
	}
	for _, item := range w.Items {
		order.Items = append(order.Items, models.LineItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			SKU:       item.SKU,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal,
			Image:     item.Image,
			Options:   item.Options,
		})
	}
	if w.Payment != nil {
		order.Payment = models.PaymentRecord{
			Method:        models.PaymentMethod(w.Payment.Method),
			Status:        models.PaymentStatus(w.Payment.Status),
			Amount:        w.Payment.Amount,
			Currency:      w.Payment.Currency,
			TransactionID: w.Payment.TransactionID,
		}
		if !w.Payment.PaidAt.IsZero() {
			paidAt := w.Payment.PaidAt.Time
			order.Payment.PaidAt = &paidAt
		}
		if !w.Payment.RefundedAt.IsZero() {
			refundedAt := w.Payment.RefundedAt.Time
			order.Payment.RefundedAt = &refundedAt
		}
	}
	order.Notes = make([]models.OrderNote, 0, len(w.Notes))
	for _, note := range w.Notes {
		order.Notes = append(order.Notes, models.OrderNote{
			ID:                note.ID,
			Message:           note.Message,
			CreatedBy:         note.CreatedBy,
			IsCustomerVisible: note.IsCustomerVisible,
			CreatedAt:         note.CreatedAt.Time,
		})
	}
	return order
}
