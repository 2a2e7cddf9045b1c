package api

import (
	"encoding/json"
	"net/http"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/orders"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/payments"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/repository"
	"github.com/gin-gonic/gin"
)

func (s *Server) listOrders(c *gin.Context) {
	q := repository.OrderQuery{
		Status:     models.OrderStatus(c.Query("status")),
		CustomerID: c.Query("customerId"),
		Page:       queryInt(c, "page"),
		PageSize:   queryInt(c, "pageSize"),
	}
	list, total, err := s.svc.Orders.ListOrders(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": list,
		"total":  total,
	})
}

// getOrder never returns a bare error: when every read path fails the body
// still carries a placeholder order so clients render something.
func (s *Server) getOrder(c *gin.Context) {
	id := c.Param("id")
	order, err := s.svc.Orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		kind := orders.KindOf(err)
		c.JSON(kindStatus(kind), gin.H{
			"order":     models.PlaceholderOrder(id),
			"error":     err.Error(),
			"kind":      kind,
			"retryable": retryable(kind),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

type statusUpdateRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (s *Server) updateOrderStatus(c *gin.Context) {
	var req statusUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := s.svc.Orders.UpdateStatus(c.Request.Context(), c.Param("id"), models.OrderStatus(req.Status), req.Note, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

type noteRequest struct {
	Message           string `json:"message"`
	IsCustomerVisible bool   `json:"isCustomerVisible"`
}

func (s *Server) addOrderNote(c *gin.Context) {
	var req noteRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := s.svc.Orders.AddNote(c.Request.Context(), c.Param("id"), req.Message, req.IsCustomerVisible, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (s *Server) deleteOrder(c *gin.Context) {
	if err := s.svc.Orders.DeleteOrder(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// refundRequest accepts `amount` as either the literal string "full" or an
// integer number of cents.
type refundRequest struct {
	Reason       string          `json:"reason"`
	Amount       json.RawMessage `json:"amount"`
	IsFullRefund bool            `json:"isFullRefund"`
}

func (s *Server) refundOrder(c *gin.Context) {
	var req refundRequest
	if !bindJSON(c, &req) {
		return
	}

	full := req.IsFullRefund
	var amountCents int64
	if len(req.Amount) > 0 {
		var label string
		if err := json.Unmarshal(req.Amount, &label); err == nil {
			if label != "full" {
				c.JSON(http.StatusBadRequest, errorBody{
					Error: `amount must be "full" or an integer number of cents`,
					Kind:  orders.KindValidation,
				})
				return
			}
			full = true
		} else if err := json.Unmarshal(req.Amount, &amountCents); err != nil {
			c.JSON(http.StatusBadRequest, errorBody{
				Error: `amount must be "full" or an integer number of cents`,
				Kind:  orders.KindValidation,
			})
			return
		}
	}

	record, err := s.svc.Refunds.Process(c.Request.Context(), orders.RefundRequest{
		OrderID:        c.Param("id"),
		Amount:         payments.Major(amountCents),
		Full:           full,
		Reason:         req.Reason,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
		RequestedBy:    actorFrom(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"refund": record,
		"status": record.Status,
	})
}

func (s *Server) listRefunds(c *gin.Context) {
	records, err := s.svc.Refunds.Refunds(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refunds": records})
}
