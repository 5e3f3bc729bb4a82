package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "hearth/internal/errors"
	"hearth/internal/ingest"
	"hearth/internal/services"
)

// maxImportBytes caps uploaded statement files.
const maxImportBytes = 5 << 20

// ImportHandler handles statement-file ingestion.
type ImportHandler struct {
	importService services.ImportServicer
	audit         services.AuditServicer
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(importService services.ImportServicer, audit services.AuditServicer) *ImportHandler {
	return &ImportHandler{importService: importService, audit: audit}
}

func openUpload(c *gin.Context) (io.ReadCloser, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "file field is required")
	}
	if fileHeader.Size > maxImportBytes {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "file exceeds the 5 MB limit")
	}
	f, err := fileHeader.Open()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return f, nil
}

// PreviewCSV reads headers and suggests a column mapping
// @Summary     Preview a CSV file
// @Description Returns the header row and a best-effort column mapping for the caller to confirm or adjust.
// @Tags        imports
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       file formData file true "CSV file"
// @Success     200 {object} services.CSVPreview "Headers and suggested mapping"
// @Failure     400 {object} ErrorResponse "Unreadable file"
// @Router      /imports/csv/preview [post]
func (h *ImportHandler) PreviewCSV(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		respondWithError(c, err)
		return
	}

	f, err := openUpload(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	defer f.Close()

	preview, err := h.importService.PreviewCSV(f)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// ImportCSV ingests a delimited statement file
// @Summary     Import a CSV file
// @Description Idempotent: re-importing the same file adds nothing new.
// @Tags        imports
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       file formData file true "CSV file"
// @Param       household_id formData string true "Household ID"
// @Param       account_id formData string false "Account to attach rows to"
// @Param       date_column formData string true "Header of the date column"
// @Param       name_column formData string true "Header of the description column"
// @Param       amount_column formData string true "Header of the amount column"
// @Success     200 {object} services.ImportSummary "Outcome counts"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /imports/csv [post]
func (h *ImportHandler) ImportCSV(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req struct {
		HouseholdID  string `form:"household_id" binding:"required,uuid"`
		AccountID    string `form:"account_id" binding:"omitempty,uuid"`
		DateColumn   string `form:"date_column" binding:"required"`
		NameColumn   string `form:"name_column" binding:"required"`
		AmountColumn string `form:"amount_column" binding:"required"`
	}
	if err := c.ShouldBind(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	f, err := openUpload(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	defer f.Close()

	mapping := ingest.ColumnMapping{
		Date:   req.DateColumn,
		Name:   req.NameColumn,
		Amount: req.AmountColumn,
	}
	summary, err := h.importService.ImportCSV(c.Request.Context(), userID, req.HouseholdID, optionalString(req.AccountID), mapping, f)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.audit.Log(userID, "import_csv", "household", req.HouseholdID, c.ClientIP(), map[string]interface{}{
		"added": summary.Added, "modified": summary.Modified, "skipped": summary.Skipped, "errors": summary.Errors,
	})
	c.JSON(http.StatusOK, summary)
}

// ImportOFX ingests an OFX/QFX statement file
// @Summary     Import an OFX file
// @Description Idempotent through the bank-assigned FITID.
// @Tags        imports
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       file formData file true "OFX/QFX file"
// @Param       household_id formData string true "Household ID"
// @Param       account_id formData string false "Account to attach rows to"
// @Success     200 {object} services.ImportSummary "Outcome counts"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /imports/ofx [post]
func (h *ImportHandler) ImportOFX(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req struct {
		HouseholdID string `form:"household_id" binding:"required,uuid"`
		AccountID   string `form:"account_id" binding:"omitempty,uuid"`
	}
	if err := c.ShouldBind(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	f, err := openUpload(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, maxImportBytes))
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	summary, err := h.importService.ImportOFX(c.Request.Context(), userID, req.HouseholdID, optionalString(req.AccountID), string(raw))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.audit.Log(userID, "import_ofx", "household", req.HouseholdID, c.ClientIP(), map[string]interface{}{
		"added": summary.Added, "modified": summary.Modified, "skipped": summary.Skipped, "errors": summary.Errors,
	})
	c.JSON(http.StatusOK, summary)
}
