package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frankenlab/frankend/internal/blueprint"
)

// CatalogHandler serves the component catalog to the editor UI.
type CatalogHandler struct{}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

// List returns every catalog definition.
func (h *CatalogHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"components": blueprint.Catalog()})
}
