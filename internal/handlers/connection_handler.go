package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "hearth/internal/errors"
	"hearth/internal/services"
)

// ConnectionHandler handles provider connections and sync runs.
type ConnectionHandler struct {
	syncService services.SyncServicer
	audit       services.AuditServicer
}

// NewConnectionHandler creates a new ConnectionHandler
func NewConnectionHandler(syncService services.SyncServicer, audit services.AuditServicer) *ConnectionHandler {
	return &ConnectionHandler{syncService: syncService, audit: audit}
}

// CreateConnectionRequest represents the request payload for linking a provider item
type CreateConnectionRequest struct {
	HouseholdID     string `json:"household_id" binding:"required,uuid"`
	AccessToken     string `json:"access_token" binding:"required"`
	InstitutionName string `json:"institution_name"`
}

// CreateConnection links a provider item to the household
// @Summary     Create a connection
// @Tags        connections
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateConnectionRequest true "Connection details"
// @Success     201 {object} models.ProviderItem "Connection created"
// @Failure     403 {object} ErrorResponse "Owner role required"
// @Router      /connections [post]
func (h *ConnectionHandler) CreateConnection(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	item, err := h.syncService.CreateConnection(userID, req.HouseholdID, req.AccessToken, req.InstitutionName)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.audit.Log(userID, "create", "connection", item.ID, c.ClientIP(), nil)
	c.JSON(http.StatusCreated, gin.H{"connection": item})
}

// GetConnections lists a household's connections
// @Summary     List connections
// @Tags        connections
// @Produce     json
// @Security    BearerAuth
// @Param       household_id query string true "Household ID"
// @Success     200 {array} models.ProviderItem "Connections"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /connections [get]
func (h *ConnectionHandler) GetConnections(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	items, err := h.syncService.GetHouseholdConnections(userID, c.Query("household_id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connections": items})
}

// DeleteConnection removes a connection
// @Summary     Delete a connection
// @Description Synced transactions stay in the ledger; only the sync channel is removed.
// @Tags        connections
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Connection ID"
// @Success     204 "Deleted"
// @Failure     403 {object} ErrorResponse "Owner role required"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /connections/{id} [delete]
func (h *ConnectionHandler) DeleteConnection(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.syncService.DeleteConnection(userID, c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}

	h.audit.Log(userID, "delete", "connection", c.Param("id"), c.ClientIP(), nil)
	c.Status(http.StatusNoContent)
}

// Sync pulls pending provider changes for a connection
// @Summary     Sync a connection
// @Description Pages through incremental provider changes, persisting the resume cursor after every page.
// @Tags        connections
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Connection ID"
// @Success     200 {object} services.SyncSummary "Outcome counts"
// @Failure     409 {object} ErrorResponse "Sync already running"
// @Failure     502 {object} ErrorResponse "Provider unavailable"
// @Router      /connections/{id}/sync [post]
func (h *ConnectionHandler) Sync(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.syncService.Sync(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.audit.Log(userID, "sync", "connection", c.Param("id"), c.ClientIP(), map[string]interface{}{
		"added": summary.Added, "modified": summary.Modified, "removed": summary.Removed,
	})
	c.JSON(http.StatusOK, summary)
}
