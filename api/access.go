package api

import (
	"net/http"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"github.com/gin-gonic/gin"
)

func (s *Server) listRoles(c *gin.Context) {
	roles, err := s.svc.Access.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roles": roles})
}

func (s *Server) getRole(c *gin.Context) {
	role, err := s.svc.Access.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": role})
}

func (s *Server) createRole(c *gin.Context) {
	var role models.Role
	if !bindJSON(c, &role) {
		return
	}
	created, err := s.svc.Access.Create(c.Request.Context(), &role, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"role": created})
}

func (s *Server) updateRole(c *gin.Context) {
	var role models.Role
	if !bindJSON(c, &role) {
		return
	}
	role.ID = c.Param("id")
	updated, err := s.svc.Access.Update(c.Request.Context(), &role, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": updated})
}

func (s *Server) deleteRole(c *gin.Context) {
	if err := s.svc.Access.Delete(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) permissionCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"permissions": s.svc.Access.Catalog()})
}
