package models

import (
	"sort"
	"strings"
	"time"
)

type Product struct {
	ID          string         `bson:"_id,omitempty" json:"id"`
	Name        string         `bson:"name" json:"name"`
	Slug        string         `bson:"slug" json:"slug"`
	Description string         `bson:"description,omitempty" json:"description,omitempty"`
	Price       float64        `bson:"price" json:"price"`
	Stock       int            `bson:"stock" json:"stock"`
	Categories  []string       `bson:"categories,omitempty" json:"categories,omitempty"`
	Images      []ProductImage `bson:"images" json:"images"`
	Options     []ProductOption `bson:"options,omitempty" json:"options,omitempty"`
	Variants    []Variant      `bson:"variants,omitempty" json:"variants,omitempty"`
	IsActive    bool           `bson:"isActive" json:"isActive"`
	IsFeatured  bool           `bson:"isFeatured" json:"isFeatured"`
	CreatedAt   time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time      `bson:"updatedAt" json:"updatedAt"`
}

type ProductImage struct {
	ID        string `bson:"id" json:"id"`
	URL       string `bson:"url" json:"url"`
	Thumbnail string `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Alt       string `bson:"alt,omitempty" json:"alt,omitempty"`
	Position  int    `bson:"position" json:"position"`
	IsPrimary bool   `bson:"isPrimary" json:"isPrimary"`
}

// ProductOption defines one axis of variation, e.g. Size: [S, M, L].
type ProductOption struct {
	Name   string   `bson:"name" json:"name"`
	Values []string `bson:"values" json:"values"`
}

type Variant struct {
	ID      string            `bson:"id" json:"id"`
	SKU     string            `bson:"sku" json:"sku"`
	Options map[string]string `bson:"options" json:"options"`
	Price   float64           `bson:"price" json:"price"`
	Stock   int               `bson:"stock" json:"stock"`
}

// Signature is a stable key for a variant's option combination, used to
// match surviving variants when options are redefined.
func (v Variant) Signature() string {
	keys := make([]string, 0, len(v.Options))
	for k := range v.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+v.Options[k])
	}
	return strings.Join(parts, "|")
}

// HomepageSection is a configurable storefront block; rendering happens
// client-side, this record only carries the configuration.
type HomepageSection struct {
	ID        string         `bson:"_id,omitempty" json:"id"`
	Type      string         `bson:"type" json:"type"`
	Title     string         `bson:"title" json:"title"`
	Enabled   bool           `bson:"enabled" json:"enabled"`
	Position  int            `bson:"position" json:"position"`
	Config    map[string]any `bson:"config,omitempty" json:"config,omitempty"`
	CreatedAt time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time      `bson:"updatedAt" json:"updatedAt"`
}
