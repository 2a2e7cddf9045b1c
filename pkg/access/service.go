package access

import (
	"context"
	"fmt"
	"strings"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/audit"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/orders"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RoleStore is the role collection surface the service manages.
type RoleStore interface {
	EnsureDefaults(ctx context.Context) error
	List(ctx context.Context) ([]models.Role, error)
	Get(ctx context.Context, id string) (*models.Role, error)
	Insert(ctx context.Context, role *models.Role) error
	Update(ctx context.Context, role *models.Role) error
	Delete(ctx context.Context, id string) error
}

// AssignmentCounter reports how many customers hold a role.
type AssignmentCounter interface {
	CountAssigned(ctx context.Context, roleID string) (int64, error)
}

// Service manages roles and their permission grants. The built-in system
// roles can be read but never changed or removed.
type Service struct {
	roles     RoleStore
	customers AssignmentCounter
	audit     audit.Recorder
	logger    *zap.Logger
}

func NewService(roles RoleStore, customers AssignmentCounter, audit audit.Recorder, logger *zap.Logger) *Service {
	return &Service{roles: roles, customers: customers, audit: audit, logger: logger}
}

// Bootstrap seeds the system roles on startup.
func (s *Service) Bootstrap(ctx context.Context) error {
	return s.roles.EnsureDefaults(ctx)
}

func (s *Service) List(ctx context.Context) ([]models.Role, error) {
	return s.roles.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Role, error) {
	return s.roles.Get(ctx, id)
}

// Catalog exposes every grantable permission grouped by category for the
// role editor.
func (s *Service) Catalog() map[string][]string {
	return models.PermissionCatalog
}

func (s *Service) Create(ctx context.Context, role *models.Role, actor string) (*models.Role, error) {
	role.Name = strings.TrimSpace(role.Name)
	if role.Name == "" {
		return nil, &orders.ValidationError{Field: "name", Reason: "required"}
	}
	if err := validatePermissions(role.Permissions); err != nil {
		return nil, err
	}

	role.ID = uuid.NewString()
	role.IsSystem = false
	if err := s.roles.Insert(ctx, role); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, "role.created", role.ID, actor, map[string]any{
		"name": role.Name,
	})
	return role, nil
}

func (s *Service) Update(ctx context.Context, role *models.Role, actor string) (*models.Role, error) {
	existing, err := s.roles.Get(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	if existing.IsSystem {
		return nil, &orders.ValidationError{Field: "role", Reason: fmt.Sprintf("system role %s cannot be modified", existing.Name)}
	}
	if err := validatePermissions(role.Permissions); err != nil {
		return nil, err
	}

	role.IsSystem = false
	role.CreatedAt = existing.CreatedAt
	if err := s.roles.Update(ctx, role); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, "role.updated", role.ID, actor, map[string]any{
		"permissions": len(role.Permissions),
	})
	return role, nil
}

// Delete removes a custom role. Roles still assigned to customers stay.
func (s *Service) Delete(ctx context.Context, id, actor string) error {
	existing, err := s.roles.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.IsSystem {
		return &orders.ValidationError{Field: "role", Reason: fmt.Sprintf("system role %s cannot be deleted", existing.Name)}
	}

	assigned, err := s.customers.CountAssigned(ctx, id)
	if err != nil {
		return err
	}
	if assigned > 0 {
		return fmt.Errorf("role %s is assigned to %d customers: %w", existing.Name, assigned, repository.ErrConflict)
	}

	if err := s.roles.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, "role.deleted", id, actor, map[string]any{
		"name": existing.Name,
	})
	return nil
}

func validatePermissions(permissions []string) error {
	for _, p := range permissions {
		if !models.KnownPermission(p) {
			return &orders.ValidationError{Field: "permissions", Reason: fmt.Sprintf("unknown permission %q", p)}
		}
	}
	return nil
}
