package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "hearth/internal/errors"
	"hearth/internal/models"
	"hearth/internal/services"
)

// HouseholdHandler handles household and membership requests.
type HouseholdHandler struct {
	householdService services.HouseholdServicer
	audit            services.AuditServicer
}

// NewHouseholdHandler creates a new HouseholdHandler
func NewHouseholdHandler(householdService services.HouseholdServicer, audit services.AuditServicer) *HouseholdHandler {
	return &HouseholdHandler{householdService: householdService, audit: audit}
}

// CreateHouseholdRequest represents the request payload for creating a household
type CreateHouseholdRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateHouseholdRequest represents the request payload for updating a household
type UpdateHouseholdRequest struct {
	Name                *string `json:"name"`
	AutoClassifyImports *bool   `json:"auto_classify_imports"`
}

// AddMemberRequest represents the request payload for adding a member
type AddMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"omitempty,member_role"`
}

// CreateHousehold handles household creation
// @Summary     Create a household
// @Description Create a household owned by the caller, seeded with the default category set
// @Tags        households
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateHouseholdRequest true "Household details"
// @Success     201 {object} models.Household "Household created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /households [post]
func (h *HouseholdHandler) CreateHousehold(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateHouseholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	household, err := h.householdService.CreateHousehold(userID, req.Name)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.audit.Log(userID, "create", "household", household.ID, c.ClientIP(), nil)
	c.JSON(http.StatusCreated, gin.H{"household": household})
}

// GetHouseholds lists the caller's households
// @Summary     List households
// @Tags        households
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.Household "Households"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /households [get]
func (h *HouseholdHandler) GetHouseholds(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	households, err := h.householdService.GetUserHouseholds(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"households": households})
}

// GetHousehold retrieves one household
// @Summary     Get a household
// @Tags        households
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Household ID"
// @Success     200 {object} models.Household "Household"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /households/{id} [get]
func (h *HouseholdHandler) GetHousehold(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	household, err := h.householdService.GetHouseholdByID(userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"household": household})
}

// UpdateHousehold updates household settings
// @Summary     Update a household
// @Tags        households
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Household ID"
// @Param       request body UpdateHouseholdRequest true "Fields to update"
// @Success     200 {object} models.Household "Updated household"
// @Failure     403 {object} ErrorResponse "Owner role required"
// @Router      /households/{id} [patch]
func (h *HouseholdHandler) UpdateHousehold(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateHouseholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	household, err := h.householdService.UpdateHousehold(userID, c.Param("id"), req.Name, req.AutoClassifyImports)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"household": household})
}

// AddMember adds a user to the household by email
// @Summary     Add a member
// @Tags        households
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Household ID"
// @Param       request body AddMemberRequest true "Member details"
// @Success     201 {object} models.HouseholdMember "Member added"
// @Failure     403 {object} ErrorResponse "Owner role required"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /households/{id}/members [post]
func (h *HouseholdHandler) AddMember(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	role := models.MemberRoleMember
	if req.Role != "" {
		role = models.MemberRole(req.Role)
	}

	member, err := h.householdService.AddMember(userID, c.Param("id"), req.Email, role)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.audit.Log(userID, "add_member", "household", c.Param("id"), c.ClientIP(), map[string]interface{}{"email": req.Email})
	c.JSON(http.StatusCreated, gin.H{"member": member})
}

// GetMembers lists household members
// @Summary     List members
// @Tags        households
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Household ID"
// @Success     200 {array} models.HouseholdMember "Members"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /households/{id}/members [get]
func (h *HouseholdHandler) GetMembers(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	members, err := h.householdService.GetMembers(userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}
