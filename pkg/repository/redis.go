package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/config"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"github.com/go-redis/redis/v8"
)

type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		config: cfg,
	}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

func (r *RedisRepository) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r *RedisRepository) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

const (
	orderCacheTTL     = 5 * time.Minute
	lastOrderTTL      = 24 * time.Hour
	sessionTTL        = 30 * time.Minute
	idempotencyTTL    = 24 * time.Hour
	tokenCacheDefault = 5 * time.Minute
)

// CacheOrder keeps a short-lived snapshot so repeated dashboard reads skip
// the order store.
func (r *RedisRepository) CacheOrder(ctx context.Context, order *models.Order) error {
	key := fmt.Sprintf("order:%s", order.ID)
	return r.SetJSON(ctx, key, order, orderCacheTTL)
}

func (r *RedisRepository) GetCachedOrder(ctx context.Context, orderID string) (*models.Order, error) {
	key := fmt.Sprintf("order:%s", orderID)
	var order models.Order
	if err := r.GetJSON(ctx, key, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// InvalidateOrder drops the snapshot after any write to the order.
func (r *RedisRepository) InvalidateOrder(ctx context.Context, orderID string) error {
	return r.Del(ctx, fmt.Sprintf("order:%s", orderID))
}

// SetLastOrder remembers a customer's most recent order so the storefront
// confirmation page survives a reload.
func (r *RedisRepository) SetLastOrder(ctx context.Context, customerID, orderID string) error {
	key := fmt.Sprintf("customer:%s:last-order", customerID)
	return r.Set(ctx, key, orderID, lastOrderTTL)
}

func (r *RedisRepository) GetLastOrder(ctx context.Context, customerID string) (string, error) {
	key := fmt.Sprintf("customer:%s:last-order", customerID)
	return r.Get(ctx, key)
}

// CheckoutSession is the transient payment state between session creation
// and capture. It never reaches Mongo; abandoned sessions expire on TTL.
type CheckoutSession struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"orderId"`
	CustomerID  string    `json:"customerId"`
	Method      string    `json:"method"`
	State       string    `json:"state"`
	AmountCents int64     `json:"amountCents"`
	Currency    string    `json:"currency"`
	ProviderRef string    `json:"providerRef,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (r *RedisRepository) SaveSession(ctx context.Context, session *CheckoutSession) error {
	key := fmt.Sprintf("checkout:%s", session.ID)
	session.UpdatedAt = time.Now()
	return r.SetJSON(ctx, key, session, sessionTTL)
}

func (r *RedisRepository) GetSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	key := fmt.Sprintf("checkout:%s", sessionID)
	var session CheckoutSession
	if err := r.GetJSON(ctx, key, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *RedisRepository) DeleteSession(ctx context.Context, sessionID string) error {
	return r.Del(ctx, fmt.Sprintf("checkout:%s", sessionID))
}

// SetActiveSession points an order at its live checkout session so a method
// switch can cancel the previous one instead of abandoning it.
func (r *RedisRepository) SetActiveSession(ctx context.Context, orderID, sessionID string) error {
	key := fmt.Sprintf("order:%s:session", orderID)
	return r.Set(ctx, key, sessionID, sessionTTL)
}

func (r *RedisRepository) ActiveSession(ctx context.Context, orderID string) (string, error) {
	key := fmt.Sprintf("order:%s:session", orderID)
	return r.Get(ctx, key)
}

func (r *RedisRepository) ClearActiveSession(ctx context.Context, orderID string) error {
	return r.Del(ctx, fmt.Sprintf("order:%s:session", orderID))
}

// ClaimIdempotencyKey marks a refund key as in flight. The first caller wins;
// retries with the same key see false and read back the recorded refund.
func (r *RedisRepository) ClaimIdempotencyKey(ctx context.Context, key string) (bool, error) {
	fullKey := fmt.Sprintf("refund:idem:%s", key)
	return r.client.SetNX(ctx, fullKey, time.Now().Unix(), idempotencyTTL).Result()
}

func (r *RedisRepository) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return r.Del(ctx, fmt.Sprintf("refund:idem:%s", key))
}

// TokenPrincipal is the cached result of a bearer token verification.
type TokenPrincipal struct {
	UserID      string   `json:"userId"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

func (r *RedisRepository) CacheToken(ctx context.Context, token string, principal *TokenPrincipal, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = tokenCacheDefault
	}
	key := fmt.Sprintf("auth:token:%s", token)
	return r.SetJSON(ctx, key, principal, ttl)
}

func (r *RedisRepository) GetCachedToken(ctx context.Context, token string) (*TokenPrincipal, error) {
	key := fmt.Sprintf("auth:token:%s", token)
	var principal TokenPrincipal
	if err := r.GetJSON(ctx, key, &principal); err != nil {
		return nil, err
	}
	return &principal, nil
}

// IsCacheMiss distinguishes an absent key from a transport failure.
func IsCacheMiss(err error) bool {
	return err == redis.Nil
}
