package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frankenlab/frankend/internal/auth"
	"github.com/frankenlab/frankend/internal/store"
	"github.com/frankenlab/frankend/pkg/types"
)

// MarketplaceHandler serves published blueprints and cloning.
type MarketplaceHandler struct {
	blueprints *store.BlueprintStore
}

// NewMarketplaceHandler creates a new MarketplaceHandler.
func NewMarketplaceHandler(blueprints *store.BlueprintStore) *MarketplaceHandler {
	return &MarketplaceHandler{blueprints: blueprints}
}

// List returns all marketplace listings.
func (h *MarketplaceHandler) List(c *gin.Context) {
	listings, err := h.blueprints.ListMarketplace()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listings)
}

// Get returns one published blueprint with its full configuration.
func (h *MarketplaceHandler) Get(c *gin.Context) {
	bp, ok := h.published(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, bp)
}

// Clone copies a published blueprint into the caller's collection and bumps
// the listing's clone count.
func (h *MarketplaceHandler) Clone(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	bp, ok := h.published(c)
	if !ok {
		return
	}

	clone := &types.SavedBlueprint{
		OwnerID:       user.ID,
		Name:          bp.Name,
		Description:   bp.Description,
		Configuration: bp.Configuration,
	}
	if err := h.blueprints.CreateBlueprint(clone); err != nil {
		respondError(c, err)
		return
	}
	if err := h.blueprints.IncrementCloneCount(bp.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, clone)
}

// published loads the blueprint from the :id param and requires it to be
// listed. Private blueprints 404 rather than 403, to avoid leaking their
// existence.
func (h *MarketplaceHandler) published(c *gin.Context) (*types.SavedBlueprint, bool) {
	bp, err := h.blueprints.GetBlueprint(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if !bp.Public {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil, false
	}
	return bp, true
}
