package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/config"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/repository"
	"go.uber.org/zap"
)

// ErrUnauthenticated is returned for missing, expired or rejected tokens.
var ErrUnauthenticated = errors.New("missing or invalid credentials")

// Principal is the verified caller attached to a request.
type Principal struct {
	UserID      string
	Email       string
	Role        models.UserRole
	Permissions []string
}

func (p *Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

func (p *Principal) Can(permission string) bool {
	for _, granted := range p.Permissions {
		if granted == permission {
			return true
		}
	}
	return false
}

// TokenCache holds verified principals keyed by token digest.
type TokenCache interface {
	CacheToken(ctx context.Context, token string, principal *repository.TokenPrincipal, ttl time.Duration) error
	GetCachedToken(ctx context.Context, token string) (*repository.TokenPrincipal, error)
}

// RoleSource resolves a role name to its stored grants.
type RoleSource interface {
	GetByName(ctx context.Context, name string) (*models.Role, error)
}

// Verifier checks bearer tokens against the identity service and caches the
// result so hot admin sessions skip the round trip.
type Verifier struct {
	identityURL string
	cacheTTL    time.Duration
	http        *http.Client
	cache       TokenCache
	roles       RoleSource
	logger      *zap.Logger
}

func NewVerifier(cfg *config.AuthConfig, cache TokenCache, roles RoleSource, logger *zap.Logger) *Verifier {
	ttl := cfg.TokenCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Verifier{
		identityURL: strings.TrimRight(cfg.IdentityBaseURL, "/"),
		cacheTTL:    ttl,
		http:        &http.Client{Timeout: 10 * time.Second},
		cache:       cache,
		roles:       roles,
		logger:      logger,
	}
}

// Verify resolves a raw bearer token to a principal.
func (v *Verifier) Verify(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	cacheKey := tokenDigest(token)
	if cached, err := v.cache.GetCachedToken(ctx, cacheKey); err == nil {
		return &Principal{
			UserID:      cached.UserID,
			Email:       cached.Email,
			Role:        models.UserRole(cached.Role),
			Permissions: cached.Permissions,
		}, nil
	} else if !repository.IsCacheMiss(err) {
		v.logger.Warn("token cache read failed", zap.Error(err))
	}

	info, err := v.tokeninfo(ctx, token)
	if err != nil {
		return nil, err
	}

	principal := &Principal{
		UserID: info.Subject,
		Email:  info.Email,
		Role:   models.UserRole(info.Role),
	}
	principal.Permissions = v.permissionsFor(ctx, info.Role)

	ttl := v.cacheTTL
	if info.ExpiresIn > 0 {
		if expiry := time.Duration(info.ExpiresIn) * time.Second; expiry < ttl {
			ttl = expiry
		}
	}
	cacheErr := v.cache.CacheToken(ctx, cacheKey, &repository.TokenPrincipal{
		UserID:      principal.UserID,
		Email:       principal.Email,
		Role:        string(principal.Role),
		Permissions: principal.Permissions,
	}, ttl)
	if cacheErr != nil {
		v.logger.Warn("token cache write failed", zap.Error(cacheErr))
	}
	return principal, nil
}

type tokenInfo struct {
	Subject   string `json:"sub"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	ExpiresIn int64  `json:"expiresIn"`
}

func (v *Verifier) tokeninfo(ctx context.Context, token string) (*tokenInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.identityURL+"/oauth2/tokeninfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity service unreachable: %v: %w", err, repository.ErrUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthenticated
	default:
		return nil, fmt.Errorf("identity service returned %d: %w", resp.StatusCode, repository.ErrUnavailable)
	}

	var info tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("tokeninfo decode: %v: %w", err, repository.ErrParse)
	}
	if info.Subject == "" {
		return nil, ErrUnauthenticated
	}
	return &info, nil
}

// permissionsFor loads the role's grants; an unknown role gets none.
func (v *Verifier) permissionsFor(ctx context.Context, role string) []string {
	if role == "" {
		return nil
	}
	doc, err := v.roles.GetByName(ctx, role)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			v.logger.Warn("role lookup failed", zap.String("role", role), zap.Error(err))
		}
		return nil
	}
	return doc.Permissions
}

// tokenDigest keeps raw bearer tokens out of cache keys.
func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
