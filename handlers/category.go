package handlers

import (
	"net/http"

	"expense-api/services"

	"github.com/gin-gonic/gin"
)

type CategoryHandler struct {
	Resolver *services.CategoryResolver
}

func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.Resolver.ListCategories(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list categories"})
		return
	}
	c.JSON(http.StatusOK, categories)
}
