package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/repository"
)

// ErrUnsupportedMethod is returned for methods no provider handles, such as
// bank_transfer, which is recorded manually and never charged online.
var ErrUnsupportedMethod = errors.New("unsupported payment method")

type RefundState string

const (
	RefundPending   RefundState = "pending"
	RefundSucceeded RefundState = "succeeded"
	RefundRejected  RefundState = "failed"
)

type SessionParams struct {
	OrderID       string
	AmountCents   int64
	Currency      string
	CustomerEmail string
	ReturnURL     string
}

// Session is what a provider hands back when a charge is initiated. Card
// providers return a client secret, redirect providers an approval URL.
type Session struct {
	ProviderRef  string
	ClientSecret string
	ApprovalURL  string
}

type Capture struct {
	TransactionID string
	CapturedAt    time.Time
}

type RefundParams struct {
	TransactionID  string
	AmountCents    int64
	Currency       string
	Reason         string
	IdempotencyKey string
}

type RefundResult struct {
	ProviderRef string
	Status      RefundState
}

// Provider adapts one payment backend. Amounts cross this boundary in
// integer minor units only.
type Provider interface {
	Method() models.PaymentMethod
	CreateSession(ctx context.Context, p SessionParams) (*Session, error)
	Capture(ctx context.Context, providerRef string) (*Capture, error)
	Cancel(ctx context.Context, providerRef string) error
	Refund(ctx context.Context, p RefundParams) (*RefundResult, error)
	RefundStatus(ctx context.Context, providerRef string) (RefundState, error)
}

type Registry struct {
	providers map[models.PaymentMethod]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[models.PaymentMethod]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Method()] = p
	}
	return r
}

func (r *Registry) For(method models.PaymentMethod) (Provider, error) {
	p, ok := r.providers[method]
	if !ok {
		return nil, fmt.Errorf("%s: %w", method, ErrUnsupportedMethod)
	}
	return p, nil
}

func (r *Registry) Methods() []models.PaymentMethod {
	methods := make([]models.PaymentMethod, 0, len(r.providers))
	for m := range r.providers {
		methods = append(methods, m)
	}
	return methods
}

// restClient is the transport shared by the concrete providers.
type restClient struct {
	baseURL string
	secret  string
	http    *http.Client
}

func newRESTClient(baseURL, secret string, timeout time.Duration) restClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return restClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *restClient) doJSON(ctx context.Context, method, path string, body, dest any, headers map[string]string) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("provider %s %s: %v: %w", method, path, err, repository.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("provider %s %s: status %d: %s: %w",
			method, path, resp.StatusCode, strings.TrimSpace(string(snippet)), providerStatusErr(resp.StatusCode))
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("provider %s %s: decode: %v: %w", method, path, err, repository.ErrParse)
	}
	return nil
}

func providerStatusErr(code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return repository.ErrPermissionDenied
	case code == http.StatusNotFound:
		return repository.ErrNotFound
	case code == http.StatusConflict:
		return repository.ErrConflict
	case code >= 400 && code < 500:
		return repository.ErrInvalid
	default:
		return repository.ErrUnavailable
	}
}
