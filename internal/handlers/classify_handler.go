package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "hearth/internal/errors"
	"hearth/internal/services"
)

// ClassifyHandler triggers the automated categorization pass.
type ClassifyHandler struct {
	classifyService services.ClassifyServicer
	audit           services.AuditServicer
}

// NewClassifyHandler creates a new ClassifyHandler
func NewClassifyHandler(classifyService services.ClassifyServicer, audit services.AuditServicer) *ClassifyHandler {
	return &ClassifyHandler{classifyService: classifyService, audit: audit}
}

// ClassifyRequest represents the request payload for a classification pass
type ClassifyRequest struct {
	HouseholdID string `json:"household_id" binding:"required,uuid"`
}

// Classify runs the automated pass over uncategorized transactions
// @Summary     Classify transactions
// @Description Categorizes the newest uncategorized transactions in batches. User-assigned categories are never touched.
// @Tags        classify
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ClassifyRequest true "Target household"
// @Success     200 {object} services.ClassifySummary "Outcome counts"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     503 {object} ErrorResponse "Classifier not configured"
// @Router      /classify [post]
func (h *ClassifyHandler) Classify(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	summary, err := h.classifyService.ClassifyHousehold(c.Request.Context(), userID, req.HouseholdID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.audit.Log(userID, "classify", "household", req.HouseholdID, c.ClientIP(), map[string]interface{}{
		"classified": summary.Classified, "skipped": summary.Skipped, "errors": summary.Errors,
	})
	c.JSON(http.StatusOK, summary)
}
