package models

import (
	"sort"
	"strings"
	"time"
)

// Role owns a flat list of "category:action" permission strings.
type Role struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Permissions []string  `bson:"permissions" json:"permissions"`
	IsSystem    bool      `bson:"isSystem" json:"isSystem"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (r *Role) Has(permission string) bool {
	for _, p := range r.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// PermissionCategory splits "orders:write" into its category part.
func PermissionCategory(permission string) string {
	if i := strings.IndexByte(permission, ':'); i > 0 {
		return permission[:i]
	}
	return permission
}

// PermissionCatalog lists every grantable permission, grouped by category so
// the console can toggle a whole category at once.
var PermissionCatalog = map[string][]string{
	"orders":    {"orders:read", "orders:write", "orders:refund", "orders:delete"},
	"customers": {"customers:read", "customers:write", "customers:delete"},
	"products":  {"products:read", "products:write", "products:delete"},
	"users":     {"users:read", "users:write", "users:delete"},
	"roles":     {"roles:read", "roles:write", "roles:delete"},
	"analytics": {"analytics:read"},
	"settings":  {"settings:read", "settings:write"},
}

// KnownPermission reports whether the string appears in the catalog.
func KnownPermission(permission string) bool {
	for _, perms := range PermissionCatalog {
		for _, p := range perms {
			if p == permission {
				return true
			}
		}
	}
	return false
}

// AllPermissions flattens the catalog, sorted for stable output.
func AllPermissions() []string {
	var all []string
	for _, perms := range PermissionCatalog {
		all = append(all, perms...)
	}
	sort.Strings(all)
	return all
}
