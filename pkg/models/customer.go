package models

import (
	"time"
)

type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleCustomer UserRole = "customer"
)

// Customer doubles as the user record: storefront shoppers carry the
// customer role, console operators the admin role.
type Customer struct {
	ID         string    `bson:"_id,omitempty" json:"id"`
	Name       string    `bson:"name" json:"name"`
	Email      string    `bson:"email" json:"email"`
	Phone      string    `bson:"phone,omitempty" json:"phone,omitempty"`
	Address    *Address  `bson:"address,omitempty" json:"address,omitempty"`
	SegmentIDs []string  `bson:"segmentIds,omitempty" json:"segmentIds,omitempty"`
	Role       UserRole  `bson:"role" json:"role"`
	RoleID     string    `bson:"roleId,omitempty" json:"roleId,omitempty"`
	IsActive   bool      `bson:"isActive" json:"isActive"`
	Metrics    *Metrics  `bson:"metrics,omitempty" json:"metrics,omitempty"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Metrics are computed on demand from order history, then cached; they can
// lag behind the orders collection.
type Metrics struct {
	TotalOrders int       `bson:"totalOrders" json:"totalOrders"`
	TotalSpent  float64   `bson:"totalSpent" json:"totalSpent"`
	ComputedAt  time.Time `bson:"computedAt" json:"computedAt"`
}

func (c *Customer) InSegment(segmentID string) bool {
	for _, id := range c.SegmentIDs {
		if id == segmentID {
			return true
		}
	}
	return false
}

// CustomerSegment is a top-level entity; membership lives on the customer
// record as a list of segment ids, there is no join table.
type CustomerSegment struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}
