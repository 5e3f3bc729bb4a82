package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "hearth/internal/errors"
	"hearth/internal/services"
)

// SplitHandler decomposes transactions into balanced child lines.
type SplitHandler struct {
	splitService services.SplitServicer
}

// NewSplitHandler creates a new SplitHandler
func NewSplitHandler(splitService services.SplitServicer) *SplitHandler {
	return &SplitHandler{splitService: splitService}
}

// SplitRequest represents the request payload for splitting a transaction
type SplitRequest struct {
	Lines []services.SplitLine `json:"lines" binding:"required,min=2"`
}

// SplitFromReceiptRequest represents the request payload for splitting from a scan
type SplitFromReceiptRequest struct {
	ScanID string `json:"scan_id" binding:"required,uuid"`
}

// Split splits a transaction into child lines
// @Summary     Split a transaction
// @Description Lines must sum to the parent amount within $0.01. All children are created atomically.
// @Tags        splits
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Param       request body SplitRequest true "Child lines"
// @Success     201 {array} models.Transaction "Created children"
// @Failure     400 {object} ErrorResponse "Unbalanced or invalid lines"
// @Failure     409 {object} ErrorResponse "Already split"
// @Router      /transactions/{id}/split [post]
func (h *SplitHandler) Split(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	children, err := h.splitService.Split(userID, c.Param("id"), req.Lines)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transactions": children})
}

// SplitFromReceipt splits a transaction using a completed receipt scan
// @Summary     Split from a receipt scan
// @Description Uses the scan's extracted line items as the child lines, carrying their suggested categories.
// @Tags        splits
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Param       request body SplitFromReceiptRequest true "Completed scan"
// @Success     201 {array} models.Transaction "Created children"
// @Failure     400 {object} ErrorResponse "Unbalanced lines"
// @Failure     409 {object} ErrorResponse "Scan not ready or already split"
// @Router      /transactions/{id}/split/receipt [post]
func (h *SplitHandler) SplitFromReceipt(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SplitFromReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	children, err := h.splitService.SplitFromReceipt(userID, c.Param("id"), req.ScanID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transactions": children})
}
