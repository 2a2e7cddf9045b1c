package api

import (
	"net/http"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/repository"
	"github.com/gin-gonic/gin"
)

func (s *Server) listCustomers(c *gin.Context) {
	q := repository.CustomerQuery{
		SegmentID: c.Query("segmentId"),
		Search:    c.Query("search"),
		Page:      queryInt(c, "page"),
		PageSize:  queryInt(c, "pageSize"),
	}
	list, total, err := s.svc.Customers.List(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"customers": list,
		"total":     total,
	})
}

func (s *Server) getCustomer(c *gin.Context) {
	customer, err := s.svc.Customers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": customer})
}

func (s *Server) createCustomer(c *gin.Context) {
	var customer models.Customer
	if !bindJSON(c, &customer) {
		return
	}
	created, err := s.svc.Customers.Create(c.Request.Context(), &customer, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"customer": created})
}

func (s *Server) updateCustomer(c *gin.Context) {
	var customer models.Customer
	if !bindJSON(c, &customer) {
		return
	}
	customer.ID = c.Param("id")
	updated, err := s.svc.Customers.Update(c.Request.Context(), &customer, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": updated})
}

func (s *Server) deleteCustomer(c *gin.Context) {
	if err := s.svc.Customers.Delete(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) assignSegment(c *gin.Context) {
	if err := s.svc.Customers.Assign(c.Request.Context(), c.Param("id"), c.Param("segmentId"), actorFrom(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) unassignSegment(c *gin.Context) {
	if err := s.svc.Customers.Unassign(c.Request.Context(), c.Param("id"), c.Param("segmentId"), actorFrom(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) listSegments(c *gin.Context) {
	segments, err := s.svc.Customers.ListSegments(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"segments": segments})
}

func (s *Server) createSegment(c *gin.Context) {
	var segment models.CustomerSegment
	if !bindJSON(c, &segment) {
		return
	}
	created, err := s.svc.Customers.CreateSegment(c.Request.Context(), &segment, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"segment": created})
}

func (s *Server) updateSegment(c *gin.Context) {
	var segment models.CustomerSegment
	if !bindJSON(c, &segment) {
		return
	}
	segment.ID = c.Param("id")
	if err := s.svc.Customers.UpdateSegment(c.Request.Context(), &segment, actorFrom(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"segment": segment})
}

func (s *Server) deleteSegment(c *gin.Context) {
	if err := s.svc.Customers.DeleteSegment(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// The console's user management screen is the customer collection viewed
// through its account fields.
func (s *Server) listUsers(c *gin.Context) {
	q := repository.CustomerQuery{
		Search:   c.Query("search"),
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "pageSize"),
	}
	list, total, err := s.svc.Customers.List(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users": list,
		"total": total,
	})
}

type roleAssignRequest struct {
	RoleID string `json:"roleId"`
}

func (s *Server) setUserRole(c *gin.Context) {
	var req roleAssignRequest
	if !bindJSON(c, &req) {
		return
	}
	role, err := s.svc.Access.Get(c.Request.Context(), req.RoleID)
	if err != nil {
		writeError(c, err)
		return
	}
	user, err := s.svc.Customers.SetRole(c.Request.Context(), c.Param("id"), role, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

type statusToggleRequest struct {
	IsActive bool `json:"isActive"`
}

func (s *Server) setUserStatus(c *gin.Context) {
	var req statusToggleRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := s.svc.Customers.SetActive(c.Request.Context(), c.Param("id"), req.IsActive, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (s *Server) deleteUser(c *gin.Context) {
	if err := s.svc.Customers.Delete(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
