package notify

import (
	"fmt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"go.uber.org/zap"
)

// Hub owns the actor system and exposes plain methods the services call.
// Sends are fire-and-forget; a slow mail path never blocks a request.
type Hub struct {
	system *actor.ActorSystem
	mail   *actor.PID
	ops    *actor.PID
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) (*Hub, error) {
	system := actor.NewActorSystem()

	mailProps := actor.PropsFromProducer(func() actor.Actor {
		return &CustomerMailActor{logger: logger.Named("customer-mail")}
	})
	mailPid, err := system.Root.SpawnNamed(mailProps, "customer-mail")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn mail actor: %w", err)
	}

	opsProps := actor.PropsFromProducer(func() actor.Actor {
		return &OpsAlertActor{logger: logger.Named("ops-alerts")}
	})
	opsPid, err := system.Root.SpawnNamed(opsProps, "ops-alerts")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn ops actor: %w", err)
	}

	logger.Info("Notification actors started",
		zap.String("mail_actor", mailPid.Id),
		zap.String("ops_actor", opsPid.Id))

	return &Hub{system: system, mail: mailPid, ops: opsPid, logger: logger}, nil
}

func (h *Hub) OrderCreated(order *models.Order) {
	h.system.Root.Send(h.mail, &OrderPlaced{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerEmail: order.CustomerEmail,
		Total:         order.Total,
	})
}

func (h *Hub) StatusChanged(order *models.Order, from models.OrderStatus) {
	h.system.Root.Send(h.mail, &StatusChanged{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerEmail: order.CustomerEmail,
		From:          from,
		To:            order.Status,
	})
}

func (h *Hub) PaymentCaptured(order *models.Order, amountCents int64) {
	h.system.Root.Send(h.mail, &PaymentCaptured{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerEmail: order.CustomerEmail,
		AmountCents:   amountCents,
	})
}

func (h *Hub) RefundSettled(order *models.Order, amountCents int64, full bool) {
	msg := &RefundSettled{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerEmail: order.CustomerEmail,
		AmountCents:   amountCents,
		Full:          full,
	}
	h.system.Root.Send(h.mail, msg)
	h.system.Root.Send(h.ops, msg)
}

func (h *Hub) RefundFailed(orderID string, amountCents int64) {
	h.system.Root.Send(h.ops, &RefundFailed{OrderID: orderID, AmountCents: amountCents})
}

func (h *Hub) Close() {
	h.system.Root.Stop(h.mail)
	h.system.Root.Stop(h.ops)
	h.system.Shutdown()
}
