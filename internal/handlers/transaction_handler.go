package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "hearth/internal/errors"
	"hearth/internal/pagination"
	"hearth/internal/services"
)

// TransactionHandler handles ledger CRUD, filters and aggregates.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	audit              services.AuditServicer
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactionService services.TransactionServicer, audit services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, audit: audit}
}

// CreateTransactionRequest represents the request payload for a manual entry
type CreateTransactionRequest struct {
	HouseholdID  string          `json:"household_id" binding:"required,uuid"`
	AccountID    *string         `json:"account_id" binding:"omitempty,uuid"`
	CategoryID   *string         `json:"category_id" binding:"omitempty,uuid"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	Date         string          `json:"date" binding:"required,ledger_date"`
	Name         string          `json:"name" binding:"required"`
	MerchantName *string         `json:"merchant_name"`
	Notes        *string         `json:"notes"`
}

// UpdateTransactionRequest represents the request payload for updating a transaction.
// CategoryID distinguishes "absent" from "null": send null to uncategorize.
type UpdateTransactionRequest struct {
	Name       *string          `json:"name"`
	Notes      *string          `json:"notes"`
	CategoryID **string         `json:"category_id"`
	Amount     *decimal.Decimal `json:"amount"`
	Date       *string          `json:"date" binding:"omitempty,ledger_date"`
}

// ListTransactionsRequest holds list query parameters
type ListTransactionsRequest struct {
	pagination.PageRequest
	HouseholdID string  `form:"household_id" binding:"required,uuid"`
	Search      string  `form:"search"`
	AccountID   *string `form:"account_id" binding:"omitempty,uuid"`
	CategoryID  *string `form:"category_id" binding:"omitempty,uuid"`
	StartDate   string  `form:"start_date" binding:"omitempty,ledger_date"`
	EndDate     string  `form:"end_date" binding:"omitempty,ledger_date"`
}

// BulkRecategorizeRequest represents the request payload for bulk recategorization
type BulkRecategorizeRequest struct {
	HouseholdID    string   `json:"household_id" binding:"required,uuid"`
	TransactionIDs []string `json:"transaction_ids" binding:"required,min=1,dive,uuid"`
	CategoryID     *string  `json:"category_id" binding:"omitempty,uuid"`
}

// BulkDeleteRequest represents the request payload for bulk deletion
type BulkDeleteRequest struct {
	HouseholdID    string   `json:"household_id" binding:"required,uuid"`
	TransactionIDs []string `json:"transaction_ids" binding:"required,min=1,dive,uuid"`
}

func parseLedgerDate(s string) time.Time {
	t, _ := time.ParseInLocation("2006-01-02", s, time.UTC)
	return t
}

// CreateTransaction creates a manual ledger entry
// @Summary     Create a transaction
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transaction, err := h.transactionService.CreateTransaction(
		userID, req.HouseholdID, req.AccountID, req.CategoryID,
		req.Amount, parseLedgerDate(req.Date), req.Name, req.MerchantName, req.Notes,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": transaction})
}

// GetTransactions lists transactions with filters and pagination
// @Summary     List transactions
// @Description Paginated ledger list. Split parents are excluded; their children appear instead.
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       household_id query string true "Household ID"
// @Param       search query string false "Match against name and merchant"
// @Param       account_id query string false "Filter by account"
// @Param       category_id query string false "Filter by category"
// @Param       start_date query string false "Inclusive lower date bound (YYYY-MM-DD)"
// @Param       end_date query string false "Inclusive upper date bound (YYYY-MM-DD)"
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size (max 100)"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Transactions"
// @Failure     403 {object} ErrorResponse "Not a member"
// @Router      /transactions [get]
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter := services.TransactionFilter{
		Search:     req.Search,
		AccountID:  req.AccountID,
		CategoryID: req.CategoryID,
	}
	if req.StartDate != "" {
		t := parseLedgerDate(req.StartDate)
		filter.StartDate = &t
	}
	if req.EndDate != "" {
		t := parseLedgerDate(req.EndDate)
		filter.EndDate = &t
	}

	page, err := h.transactionService.GetHouseholdTransactions(userID, req.HouseholdID, req.PageRequest, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetRecentTransactions returns the newest entries
// @Summary     Recent transactions
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       household_id query string true "Household ID"
// @Param       limit query int false "Max rows (default 10)"
// @Success     200 {array} models.Transaction "Transactions"
// @Router      /transactions/recent [get]
func (h *TransactionHandler) GetRecentTransactions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req struct {
		HouseholdID string `form:"household_id" binding:"required,uuid"`
		Limit       int    `form:"limit" binding:"omitempty,min=1,max=100"`
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transactions, err := h.transactionService.GetRecentTransactions(userID, req.HouseholdID, req.Limit)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}

// GetTransaction retrieves one transaction
// @Summary     Get a transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction "Transaction"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	transaction, err := h.transactionService.GetTransactionByID(userID, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransaction updates a transaction
// @Summary     Update a transaction
// @Description Manual category changes take user provenance and stick against automated passes.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Param       request body UpdateTransactionRequest true "Fields to update"
// @Success     200 {object} models.Transaction "Updated transaction"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /transactions/{id} [patch]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var date *time.Time
	if req.Date != nil {
		t := parseLedgerDate(*req.Date)
		date = &t
	}

	transaction, err := h.transactionService.UpdateTransaction(userID, c.Param("id"), req.Name, req.Notes, req.CategoryID, req.Amount, date)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction deletes a transaction
// @Summary     Delete a transaction
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transaction ID"
// @Success     204 "Deleted"
// @Failure     404 {object} ErrorResponse "Not found"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transactionService.DeleteTransaction(userID, c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetCashFlow returns income/expense totals for a period
// @Summary     Cash flow
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       household_id query string true "Household ID"
// @Param       start_date query string true "Inclusive lower date bound (YYYY-MM-DD)"
// @Param       end_date query string true "Inclusive upper date bound (YYYY-MM-DD)"
// @Success     200 {object} services.CashFlow "Totals"
// @Router      /transactions/cash-flow [get]
func (h *TransactionHandler) GetCashFlow(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req struct {
		HouseholdID string `form:"household_id" binding:"required,uuid"`
		StartDate   string `form:"start_date" binding:"required,ledger_date"`
		EndDate     string `form:"end_date" binding:"required,ledger_date"`
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	flow, err := h.transactionService.GetCashFlow(userID, req.HouseholdID, parseLedgerDate(req.StartDate), parseLedgerDate(req.EndDate))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, flow)
}

// GetSpendingByCategory returns per-category spend totals for a period
// @Summary     Spending by category
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       household_id query string true "Household ID"
// @Param       start_date query string true "Inclusive lower date bound (YYYY-MM-DD)"
// @Param       end_date query string true "Inclusive upper date bound (YYYY-MM-DD)"
// @Success     200 {array} services.CategorySpending "Totals"
// @Router      /transactions/spending [get]
func (h *TransactionHandler) GetSpendingByCategory(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req struct {
		HouseholdID string `form:"household_id" binding:"required,uuid"`
		StartDate   string `form:"start_date" binding:"required,ledger_date"`
		EndDate     string `form:"end_date" binding:"required,ledger_date"`
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	spending, err := h.transactionService.GetSpendingByCategory(userID, req.HouseholdID, parseLedgerDate(req.StartDate), parseLedgerDate(req.EndDate))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"spending": spending})
}

// BulkRecategorize applies one category to many transactions
// @Summary     Bulk recategorize
// @Description Best-effort per row; read the counts in the response, the operation is not atomic.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body BulkRecategorizeRequest true "Target transactions and category"
// @Success     200 {object} services.BulkResult "Outcome counts"
// @Router      /transactions/bulk/recategorize [post]
func (h *TransactionHandler) BulkRecategorize(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req BulkRecategorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.transactionService.BulkRecategorize(userID, req.HouseholdID, req.TransactionIDs, req.CategoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.audit.Log(userID, "bulk_recategorize", "transaction", req.HouseholdID, c.ClientIP(), map[string]interface{}{
		"requested": result.Requested, "succeeded": result.Succeeded,
	})
	c.JSON(http.StatusOK, result)
}

// BulkDelete removes many transactions
// @Summary     Bulk delete
// @Description Best-effort per row; read the counts in the response, the operation is not atomic.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body BulkDeleteRequest true "Target transactions"
// @Success     200 {object} services.BulkResult "Outcome counts"
// @Router      /transactions/bulk/delete [post]
func (h *TransactionHandler) BulkDelete(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.transactionService.BulkDelete(userID, req.HouseholdID, req.TransactionIDs)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.audit.Log(userID, "bulk_delete", "transaction", req.HouseholdID, c.ClientIP(), map[string]interface{}{
		"requested": result.Requested, "succeeded": result.Succeeded,
	})
	c.JSON(http.StatusOK, result)
}
