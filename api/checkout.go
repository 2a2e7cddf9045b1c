package api

import (
	"net/http"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/orders"
	"github.com/gin-gonic/gin"
)

func (s *Server) checkoutCreateOrder(c *gin.Context) {
	var order models.Order
	if !bindJSON(c, &order) {
		return
	}
	created, err := s.svc.Orders.CreateOrder(c.Request.Context(), &order)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": created})
}

type sessionRequest struct {
	OrderID   string `json:"orderId"`
	Method    string `json:"method"`
	ReturnURL string `json:"returnUrl"`
}

func (s *Server) createSession(c *gin.Context) {
	var req sessionRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.OrderID == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: "orderId is required", Kind: orders.KindValidation})
		return
	}
	out, err := s.svc.Checkout.CreateSession(c.Request.Context(), req.OrderID, models.PaymentMethod(req.Method), req.ReturnURL)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session":      out.Session,
		"clientSecret": out.ClientSecret,
		"approvalUrl":  out.ApprovalURL,
	})
}

func (s *Server) getSession(c *gin.Context) {
	session, err := s.svc.Checkout.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (s *Server) authorizeSession(c *gin.Context) {
	session, err := s.svc.Checkout.Authorize(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (s *Server) captureSession(c *gin.Context) {
	order, err := s.svc.Checkout.Capture(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (s *Server) cancelSession(c *gin.Context) {
	if err := s.svc.Checkout.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// lastOrder backs the thank-you page: the most recent order for a customer,
// straight from the cache pointer.
func (s *Server) lastOrder(c *gin.Context) {
	customerID := c.Query("customerId")
	if customerID == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: "customerId is required", Kind: orders.KindValidation})
		return
	}
	order, err := s.svc.Orders.LastOrder(c.Request.Context(), customerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}
