package notify

import (
	"fmt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"go.uber.org/zap"
)

// Messages carried between the services and the notification actors.

type OrderPlaced struct {
	OrderID       string
	OrderNumber   string
	CustomerEmail string
	Total         float64
}

type StatusChanged struct {
	OrderID       string
	OrderNumber   string
	CustomerEmail string
	From          models.OrderStatus
	To            models.OrderStatus
}

type PaymentCaptured struct {
	OrderID       string
	OrderNumber   string
	CustomerEmail string
	AmountCents   int64
}

type RefundSettled struct {
	OrderID       string
	OrderNumber   string
	CustomerEmail string
	AmountCents   int64
	Full          bool
}

type RefundFailed struct {
	OrderID     string
	AmountCents int64
}

// CustomerMailActor turns order events into customer-facing messages and
// hands them to the mail sender.
type CustomerMailActor struct {
	logger *zap.Logger
}

func (a *CustomerMailActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *OrderPlaced:
		a.send(msg.CustomerEmail,
			fmt.Sprintf("Order %s confirmed", msg.OrderNumber),
			fmt.Sprintf("Thanks for your order. We received %s totalling %.2f.", msg.OrderNumber, msg.Total))

	case *StatusChanged:
		a.send(msg.CustomerEmail,
			fmt.Sprintf("Order %s is now %s", msg.OrderNumber, msg.To),
			fmt.Sprintf("Your order moved from %s to %s.", msg.From, msg.To))

	case *PaymentCaptured:
		a.send(msg.CustomerEmail,
			fmt.Sprintf("Payment received for order %s", msg.OrderNumber),
			fmt.Sprintf("We charged %.2f for order %s.", float64(msg.AmountCents)/100, msg.OrderNumber))

	case *RefundSettled:
		kind := "Partial refund"
		if msg.Full {
			kind = "Refund"
		}
		a.send(msg.CustomerEmail,
			fmt.Sprintf("%s issued for order %s", kind, msg.OrderNumber),
			fmt.Sprintf("%s of %.2f has been returned to your payment method.", kind, float64(msg.AmountCents)/100))

	case *actor.Started:
		a.logger.Info("Customer mail actor started")

	case *actor.Stopped:
		a.logger.Info("Customer mail actor stopped")
	}
}

func (a *CustomerMailActor) send(recipient, subject, body string) {
	if recipient == "" {
		return
	}
	// Delivery goes through the transactional mail relay; here it is the
	// structured log stream the relay tails.
	a.logger.Info("customer email queued",
		zap.String("recipient", recipient),
		zap.String("subject", subject),
		zap.String("body", body))
}

// OpsAlertActor surfaces events an operator should look at.
type OpsAlertActor struct {
	logger *zap.Logger
}

func (a *OpsAlertActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *RefundFailed:
		a.logger.Warn("refund needs attention",
			zap.String("order_id", msg.OrderID),
			zap.Int64("amount_cents", msg.AmountCents))

	case *RefundSettled:
		a.logger.Info("refund settled",
			zap.String("order_id", msg.OrderID),
			zap.Int64("amount_cents", msg.AmountCents),
			zap.Bool("full", msg.Full))

	case *actor.Started:
		a.logger.Info("Ops alert actor started")
	}
}
