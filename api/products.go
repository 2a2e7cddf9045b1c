package api

import (
	"net/http"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/orders"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/repository"
	"github.com/gin-gonic/gin"
)

func (s *Server) listProducts(c *gin.Context) {
	q := repository.ProductQuery{
		Category: c.Query("category"),
		Featured: queryBool(c, "featured"),
		Active:   queryBool(c, "active"),
		Search:   c.Query("search"),
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "pageSize"),
	}
	list, total, err := s.svc.Catalog.List(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"products": list,
		"total":    total,
	})
}

func (s *Server) getProduct(c *gin.Context) {
	product, err := s.svc.Catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func (s *Server) createProduct(c *gin.Context) {
	var product models.Product
	if !bindJSON(c, &product) {
		return
	}
	created, err := s.svc.Catalog.Create(c.Request.Context(), &product, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": created})
}

func (s *Server) updateProduct(c *gin.Context) {
	var product models.Product
	if !bindJSON(c, &product) {
		return
	}
	product.ID = c.Param("id")
	updated, err := s.svc.Catalog.Update(c.Request.Context(), &product, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": updated})
}

func (s *Server) deleteProduct(c *gin.Context) {
	if err := s.svc.Catalog.Delete(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) uploadProductImage(c *gin.Context) {
	header, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody{
			Error: "image file is required",
			Kind:  orders.KindValidation,
		})
		return
	}
	file, err := header.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer file.Close()

	image, err := s.svc.Catalog.UploadImage(c.Request.Context(), c.Param("id"), header.Filename, c.PostForm("alt"), file, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"image": image})
}

func (s *Server) deleteProductImage(c *gin.Context) {
	if err := s.svc.Catalog.DeleteImage(c.Request.Context(), c.Param("id"), c.Param("imageId"), actorFrom(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) listSections(c *gin.Context) {
	enabledOnly := c.Query("enabled") == "true"
	sections, err := s.svc.Catalog.ListSections(c.Request.Context(), enabledOnly)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sections": sections})
}

func (s *Server) createSection(c *gin.Context) {
	var section models.HomepageSection
	if !bindJSON(c, &section) {
		return
	}
	created, err := s.svc.Catalog.CreateSection(c.Request.Context(), &section, actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"section": created})
}

func (s *Server) updateSection(c *gin.Context) {
	var section models.HomepageSection
	if !bindJSON(c, &section) {
		return
	}
	section.ID = c.Param("id")
	if err := s.svc.Catalog.UpdateSection(c.Request.Context(), &section, actorFrom(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"section": section})
}

func (s *Server) deleteSection(c *gin.Context) {
	if err := s.svc.Catalog.DeleteSection(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type reorderRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) reorderSections(c *gin.Context) {
	var req reorderRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.svc.Catalog.ReorderSections(c.Request.Context(), req.IDs, actorFrom(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
