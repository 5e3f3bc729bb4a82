package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "hearth/internal/errors"
	"hearth/internal/services"
)

// TransferHandler finds and links internal-movement pairs.
type TransferHandler struct {
	transferService services.TransferServicer
}

// NewTransferHandler creates a new TransferHandler
func NewTransferHandler(transferService services.TransferServicer) *TransferHandler {
	return &TransferHandler{transferService: transferService}
}

// LinkTransferRequest represents the request payload for linking two legs
type LinkTransferRequest struct {
	PairID string `json:"pair_id" binding:"required,uuid"`
}

// FindMatches returns candidate opposite legs for a transaction
// @Summary     Find transfer matches
// @Description Candidates have the opposite amount within $0.005, a different account, and posted within 7 days.
// @Tags        transfers
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {array} services.TransferMatch "Candidates, newest first"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /transactions/{id}/transfer/matches [get]
func (h *TransferHandler) FindMatches(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	matches, err := h.transferService.FindMatches(userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

// Link marks two transactions as one internal movement
// @Summary     Link a transfer pair
// @Description Both legs take the Transfer category with user provenance, symmetrically.
// @Tags        transfers
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Param       request body LinkTransferRequest true "The opposite leg"
// @Success     204 "Linked"
// @Failure     400 {object} ErrorResponse "Legs do not form a valid pair"
// @Failure     409 {object} ErrorResponse "Already a transfer"
// @Router      /transactions/{id}/transfer [post]
func (h *TransferHandler) Link(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req LinkTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if err := h.transferService.Link(userID, c.Param("id"), req.PairID); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Unlink dissolves a transfer pair
// @Summary     Unlink a transfer pair
// @Description Clears both legs; the category assignment stays.
// @Tags        transfers
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     204 "Unlinked"
// @Failure     409 {object} ErrorResponse "Not a transfer"
// @Router      /transactions/{id}/transfer [delete]
func (h *TransferHandler) Unlink(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transferService.Unlink(userID, c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
