package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frankenlab/frankend/internal/auth"
	"github.com/frankenlab/frankend/internal/blueprint"
	"github.com/frankenlab/frankend/internal/store"
	"github.com/frankenlab/frankend/pkg/types"
)

// BlueprintHandler handles blueprint persistence, validation, compilation and
// publishing.
type BlueprintHandler struct {
	blueprints *store.BlueprintStore
}

// NewBlueprintHandler creates a new BlueprintHandler.
func NewBlueprintHandler(blueprints *store.BlueprintStore) *BlueprintHandler {
	return &BlueprintHandler{blueprints: blueprints}
}

type validateRequest struct {
	Configuration types.AgentConfiguration `json:"configuration"`
}

// Validate checks a configuration and, when it passes, returns the
// leniently-compiled blueprint alongside the result.
func (h *BlueprintHandler) Validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := blueprint.CheckReadiness(req.Configuration)
	resp := gin.H{"valid": result.Valid, "errors": result.Errors}
	if result.Valid {
		compiled := blueprint.Convert(req.Configuration)
		resp["blueprint"] = compiled
	}
	c.JSON(http.StatusOK, resp)
}

// Export strictly compiles a configuration. Unresolved components are a 422
// with the strict error message.
func (h *BlueprintHandler) Export(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	compiled, err := blueprint.Export(req.Configuration)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, compiled)
}

type saveBlueprintRequest struct {
	Name          string                   `json:"name"`
	Description   string                   `json:"description"`
	Configuration types.AgentConfiguration `json:"configuration"`
}

// Create saves a new blueprint for the authenticated user.
func (h *BlueprintHandler) Create(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	var req saveBlueprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "blueprint name is required"})
		return
	}

	bp := &types.SavedBlueprint{
		OwnerID:       user.ID,
		Name:          req.Name,
		Description:   req.Description,
		Configuration: req.Configuration,
	}
	if err := h.blueprints.CreateBlueprint(bp); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bp)
}

// List returns the authenticated user's blueprints.
func (h *BlueprintHandler) List(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	blueprints, err := h.blueprints.ListBlueprints(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, blueprints)
}

// Get returns one of the authenticated user's blueprints.
func (h *BlueprintHandler) Get(c *gin.Context) {
	bp, ok := h.owned(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, bp)
}

// Update replaces a blueprint's name, description and configuration.
func (h *BlueprintHandler) Update(c *gin.Context) {
	bp, ok := h.owned(c)
	if !ok {
		return
	}

	var req saveBlueprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != "" {
		bp.Name = req.Name
	}
	bp.Description = req.Description
	bp.Configuration = req.Configuration

	if err := h.blueprints.UpdateBlueprint(bp); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bp)
}

// Delete removes one of the authenticated user's blueprints.
func (h *BlueprintHandler) Delete(c *gin.Context) {
	bp, ok := h.owned(c)
	if !ok {
		return
	}

	if err := h.blueprints.DeleteBlueprint(bp.ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Publish lists a blueprint on the marketplace.
func (h *BlueprintHandler) Publish(c *gin.Context) {
	h.setPublic(c, true)
}

// Unpublish removes a blueprint from the marketplace.
func (h *BlueprintHandler) Unpublish(c *gin.Context) {
	h.setPublic(c, false)
}

func (h *BlueprintHandler) setPublic(c *gin.Context, public bool) {
	bp, ok := h.owned(c)
	if !ok {
		return
	}

	if err := h.blueprints.SetPublic(bp.ID, public); err != nil {
		respondError(c, err)
		return
	}
	bp.Public = public
	c.JSON(http.StatusOK, bp)
}

// owned loads the blueprint from the :id param and enforces ownership.
func (h *BlueprintHandler) owned(c *gin.Context) (*types.SavedBlueprint, bool) {
	user, _ := auth.CurrentUser(c)

	bp, err := h.blueprints.GetBlueprint(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if bp.OwnerID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "blueprint does not belong to user"})
		return nil, false
	}
	return bp, true
}
