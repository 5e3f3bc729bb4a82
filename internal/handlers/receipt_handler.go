package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "hearth/internal/errors"
	"hearth/internal/services"
)

// ReceiptHandler handles receipt uploads and scan polling.
type ReceiptHandler struct {
	receiptService services.ReceiptServicer
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(receiptService services.ReceiptServicer) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService}
}

// Upload accepts a receipt file and starts extraction
// @Summary     Upload a receipt
// @Description Returns a pending scan immediately; poll it until completed or failed.
// @Tags        receipts
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       file formData file true "Receipt image or PDF"
// @Param       household_id formData string true "Household ID"
// @Success     202 {object} models.ReceiptScan "Pending scan"
// @Failure     400 {object} ErrorResponse "Invalid file"
// @Failure     503 {object} ErrorResponse "Extraction not configured"
// @Router      /receipts [post]
func (h *ReceiptHandler) Upload(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req struct {
		HouseholdID string `form:"household_id" binding:"required,uuid"`
	}
	if err := c.ShouldBind(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "file field is required"))
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	scan, err := h.receiptService.Upload(userID, req.HouseholdID, fileHeader.Filename, mimeType, data)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"scan": scan})
}

// GetScan polls one scan
// @Summary     Get a scan
// @Tags        receipts
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Scan ID"
// @Success     200 {object} models.ReceiptScan "Scan"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /receipts/{id} [get]
func (h *ReceiptHandler) GetScan(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	scan, err := h.receiptService.GetScan(userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scan": scan})
}

// GetScans lists a household's scans
// @Summary     List scans
// @Tags        receipts
// @Produce     json
// @Security    BearerAuth
// @Param       household_id query string true "Household ID"
// @Success     200 {array} models.ReceiptScan "Scans, newest first"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /receipts [get]
func (h *ReceiptHandler) GetScans(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	scans, err := h.receiptService.GetHouseholdScans(userID, c.Query("household_id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scans": scans})
}
