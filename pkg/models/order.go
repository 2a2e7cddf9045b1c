package models

import (
	"math"
	"time"
)

type OrderStatus string

const (
	StatusPending     OrderStatus = "pending"
	StatusProcessing  OrderStatus = "processing"
	StatusOnHold      OrderStatus = "on_hold"
	StatusBackordered OrderStatus = "backordered"
	StatusShipped     OrderStatus = "shipped"
	StatusDelivered   OrderStatus = "delivered"
	StatusCancelled   OrderStatus = "cancelled"
	StatusRefunded    OrderStatus = "refunded"

	// StatusUnknown is only ever set on placeholder orders returned when
	// every read path has failed. It is not a storable state.
	StatusUnknown OrderStatus = "UNKNOWN"
)

type PaymentMethod string

const (
	MethodCard         PaymentMethod = "card"
	MethodPayPal       PaymentMethod = "paypal"
	MethodWallet       PaymentMethod = "wallet"
	MethodBankTransfer PaymentMethod = "bank_transfer"
)

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentPaid              PaymentStatus = "paid"
	PaymentFailed            PaymentStatus = "failed"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

// orderTransitions is the authoritative transition table. A status absent
// from the map is terminal. Pending may ship directly; not every shop runs
// a separate processing step.
var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:     {StatusProcessing, StatusOnHold, StatusShipped, StatusCancelled},
	StatusProcessing:  {StatusShipped, StatusOnHold, StatusBackordered, StatusCancelled, StatusRefunded},
	StatusOnHold:      {StatusProcessing, StatusCancelled},
	StatusBackordered: {StatusProcessing, StatusCancelled},
	StatusShipped:     {StatusDelivered, StatusRefunded},
	StatusDelivered:   {StatusRefunded},
}

// CanTransition reports whether an order may move from one status to
// another. Moving to the same status is never allowed.
func CanTransition(from, to OrderStatus) bool {
	if from == to {
		return false
	}
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from the given one.
func AllowedTransitions(from OrderStatus) []OrderStatus {
	next := orderTransitions[from]
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusOnHold, StatusBackordered,
		StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(orderTransitions[s]) == 0
}

type Order struct {
	ID              string        `bson:"_id,omitempty" json:"id"`
	OrderNumber     string        `bson:"orderNumber" json:"orderNumber"`
	CustomerID      string        `bson:"customerId,omitempty" json:"customerId,omitempty"`
	CustomerName    string        `bson:"customerName" json:"customerName"`
	CustomerEmail   string        `bson:"customerEmail" json:"customerEmail"`
	Items           []LineItem    `bson:"items" json:"items"`
	Subtotal        float64       `bson:"subtotal" json:"subtotal"`
	Tax             float64       `bson:"tax" json:"tax"`
	ShippingCost    float64       `bson:"shippingCost" json:"shippingCost"`
	Discount        float64       `bson:"discount" json:"discount"`
	Total           float64       `bson:"total" json:"total"`
	Status          OrderStatus   `bson:"status" json:"status"`
	Payment         PaymentRecord `bson:"payment" json:"payment"`
	ShippingAddress Address       `bson:"shippingAddress" json:"shippingAddress"`
	BillingAddress  *Address      `bson:"billingAddress,omitempty" json:"billingAddress,omitempty"`
	ShippingMethod  string        `bson:"shippingMethod" json:"shippingMethod"`
	TrackingInfo    *TrackingInfo `bson:"trackingInfo,omitempty" json:"trackingInfo,omitempty"`
	Notes           []OrderNote   `bson:"notes" json:"notes"`
	Revision        int64         `bson:"revision" json:"revision"`
	CreatedAt       time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time     `bson:"updatedAt" json:"updatedAt"`
}

type LineItem struct {
	ProductID string            `bson:"productId" json:"productId"`
	VariantID string            `bson:"variantId,omitempty" json:"variantId,omitempty"`
	SKU       string            `bson:"sku,omitempty" json:"sku,omitempty"`
	Name      string            `bson:"name" json:"name"`
	Price     float64           `bson:"price" json:"price"`
	Quantity  int               `bson:"quantity" json:"quantity"`
	Subtotal  float64           `bson:"subtotal" json:"subtotal"`
	Image     string            `bson:"image,omitempty" json:"image,omitempty"`
	Options   map[string]string `bson:"options,omitempty" json:"options,omitempty"`
}

type PaymentRecord struct {
	Method        PaymentMethod `bson:"method" json:"method"`
	Status        PaymentStatus `bson:"status" json:"status"`
	Amount        float64       `bson:"amount" json:"amount"`
	Currency      string        `bson:"currency" json:"currency"`
	TransactionID string        `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	PaidAt        *time.Time    `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	RefundedAt    *time.Time    `bson:"refundedAt,omitempty" json:"refundedAt,omitempty"`
}

// OrderNote is append-only: notes are never edited or removed once written.
type OrderNote struct {
	ID                string    `bson:"id" json:"id"`
	Message           string    `bson:"message" json:"message"`
	CreatedAt         time.Time `bson:"createdAt" json:"createdAt"`
	CreatedBy         string    `bson:"createdBy" json:"createdBy"`
	IsCustomerVisible bool      `bson:"isCustomerVisible" json:"isCustomerVisible"`
}

type Address struct {
	Name       string `bson:"name,omitempty" json:"name,omitempty"`
	Line1      string `bson:"line1" json:"line1"`
	Line2      string `bson:"line2,omitempty" json:"line2,omitempty"`
	City       string `bson:"city" json:"city"`
	State      string `bson:"state,omitempty" json:"state,omitempty"`
	PostalCode string `bson:"postalCode" json:"postalCode"`
	Country    string `bson:"country" json:"country"`
	Phone      string `bson:"phone,omitempty" json:"phone,omitempty"`
}

type TrackingInfo struct {
	Carrier           string     `bson:"carrier" json:"carrier"`
	Number            string     `bson:"number" json:"number"`
	URL               string     `bson:"url,omitempty" json:"url,omitempty"`
	ShippedAt         *time.Time `bson:"shippedAt,omitempty" json:"shippedAt,omitempty"`
	EstimatedDelivery *time.Time `bson:"estimatedDelivery,omitempty" json:"estimatedDelivery,omitempty"`
}

// CalculateTotal derives the order total from its components.
func (o *Order) CalculateTotal() float64 {
	return o.Subtotal + o.ShippingCost + o.Tax - o.Discount
}

// TotalConsistent reports whether the stored total matches the derived one
// within a small float tolerance.
func (o *Order) TotalConsistent() bool {
	return math.Abs(o.Total-o.CalculateTotal()) < 0.005
}

// Recalculate refreshes line subtotals, the order subtotal and the total.
func (o *Order) Recalculate() {
	var subtotal float64
	for i := range o.Items {
		o.Items[i].Subtotal = o.Items[i].Price * float64(o.Items[i].Quantity)
		subtotal += o.Items[i].Subtotal
	}
	o.Subtotal = subtotal
	o.Total = o.CalculateTotal()
}

// BillTo returns the billing address, defaulting to the shipping address.
func (o *Order) BillTo() Address {
	if o.BillingAddress != nil {
		return *o.BillingAddress
	}
	return o.ShippingAddress
}

// PlaceholderOrder builds the zero-value order served when both read paths
// fail, so API clients never receive a null order object.
func PlaceholderOrder(id string) *Order {
	now := time.Now()
	return &Order{
		ID:          id,
		OrderNumber: "Unknown",
		Status:      StatusUnknown,
		Items:       []LineItem{},
		Notes:       []OrderNote{},
		Payment: PaymentRecord{
			Status: PaymentPending,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
