// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("hex_color", validateHexColor)
		_ = v.RegisterValidation("txn_source", validateTransactionSource)
		_ = v.RegisterValidation("account_type", validateAccountType)
		_ = v.RegisterValidation("member_role", validateMemberRole)
		_ = v.RegisterValidation("ledger_date", validateLedgerDate)
	}
}

func validateHexColor(fl validator.FieldLevel) bool {
	return hexColorRegex.MatchString(fl.Field().String())
}

func validateTransactionSource(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "provider", "manual", "csv", "ofx", "email", "receipt":
		return true
	}
	return false
}

func validateAccountType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "checking", "savings", "credit", "cash", "other":
		return true
	}
	return false
}

func validateMemberRole(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "owner", "member":
		return true
	}
	return false
}

var ledgerDateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// validateLedgerDate accepts ISO calendar dates with no time component.
func validateLedgerDate(fl validator.FieldLevel) bool {
	return ledgerDateRegex.MatchString(fl.Field().String())
}
