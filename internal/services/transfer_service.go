package services

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "hearth/internal/errors"
	"hearth/internal/models"
)

const (
	// transferWindowDays bounds how far apart the two legs may post.
	transferWindowDays = 7
	// transferMatchLimit caps the candidate list returned to the caller.
	transferMatchLimit = 20
)

// transferAmountEpsilon absorbs provider rounding between the two legs.
var transferAmountEpsilon = decimal.NewFromFloat(0.005)

// transferService finds and links internal-movement pairs so they stop
// inflating income and spending aggregates.
type transferService struct {
	db         *gorm.DB
	households HouseholdServicer
}

// NewTransferService creates a new TransferServicer.
func NewTransferService(db *gorm.DB, households HouseholdServicer) TransferServicer {
	return &transferService{db: db, households: households}
}

// FindMatches returns candidate opposite legs for one transaction: same
// household, different account, opposite amount within tolerance, posted
// within the date window, and not already a split or transfer.
func (s *transferService) FindMatches(userID, transactionID string) ([]TransferMatch, error) {
	leg, err := s.loadLeg(userID, transactionID)
	if err != nil {
		return nil, err
	}
	if leg.AccountID == nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "transaction has no account; transfers need two distinct accounts")
	}

	target := leg.Amount.Neg()
	var candidates []models.Transaction
	q := s.db.Preload("Account").
		Where("household_id = ? AND id <> ?", leg.HouseholdID, leg.ID).
		Where("account_id IS NOT NULL AND account_id <> ?", *leg.AccountID).
		Where("is_split = ? AND is_transfer = ? AND parent_transaction_id IS NULL", false, false).
		Where("amount >= ? AND amount <= ?", target.Sub(transferAmountEpsilon), target.Add(transferAmountEpsilon)).
		Where("date >= ? AND date <= ?",
			leg.Date.AddDate(0, 0, -transferWindowDays),
			leg.Date.AddDate(0, 0, transferWindowDays)).
		Order("date DESC, created_at DESC").
		Limit(transferMatchLimit)
	if err := q.Find(&candidates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	matches := make([]TransferMatch, 0, len(candidates))
	for _, c := range candidates {
		name := ""
		if c.Account != nil {
			name = c.Account.Name
		}
		matches = append(matches, TransferMatch{Transaction: c, AccountName: name})
	}
	return matches, nil
}

// Link marks two transactions as the legs of one internal movement. Both
// sides are updated in a single transaction: symmetric pair ids, the
// Transfer category, and user provenance.
func (s *transferService) Link(userID, transactionIDA, transactionIDB string) error {
	if transactionIDA == transactionIDB {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "cannot link a transaction to itself")
	}

	legA, err := s.loadLeg(userID, transactionIDA)
	if err != nil {
		return err
	}
	legB, err := s.loadLeg(userID, transactionIDB)
	if err != nil {
		return err
	}

	if legA.HouseholdID != legB.HouseholdID {
		return apperrors.ErrTransactionNotFound
	}
	if legA.IsTransfer || legB.IsTransfer {
		return apperrors.ErrAlreadyTransfer
	}
	if legA.IsSplit || legB.IsSplit || legA.ParentTransactionID != nil || legB.ParentTransactionID != nil {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "split transactions cannot be transfer legs")
	}
	if legA.AccountID == nil || legB.AccountID == nil || *legA.AccountID == *legB.AccountID {
		return apperrors.ErrTransferSameAccount
	}
	if legA.Amount.Add(legB.Amount).Abs().GreaterThan(transferAmountEpsilon) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "the two legs must have opposite amounts")
	}

	var transferCategory models.Category
	err = s.db.Where("household_id = ? AND name = ?", legA.HouseholdID, models.TransferCategoryName).
		First(&transferCategory).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrTransferCategoryMissing
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		link := func(id, pairID string) error {
			res := tx.Model(&models.Transaction{}).
				Where("id = ? AND is_transfer = ?", id, false).
				Updates(map[string]interface{}{
					"is_transfer":      true,
					"transfer_pair_id": pairID,
					"category_id":      transferCategory.ID,
					"classified_by":    models.ClassifiedByUser,
					"ai_confidence":    nil,
				})
			if res.Error != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
			}
			if res.RowsAffected == 0 {
				return apperrors.ErrAlreadyTransfer
			}
			return nil
		}
		if err := link(legA.ID, legB.ID); err != nil {
			return err
		}
		return link(legB.ID, legA.ID)
	})
}

// Unlink dissolves a transfer pair. Both legs revert to ordinary
// uncategorized rows, even if the partner row has since been deleted.
func (s *transferService) Unlink(userID, transactionID string) error {
	leg, err := s.loadLeg(userID, transactionID)
	if err != nil {
		return err
	}
	if !leg.IsTransfer {
		return apperrors.ErrNotTransfer
	}

	clear := map[string]interface{}{
		"is_transfer":      false,
		"transfer_pair_id": nil,
		"category_id":      nil,
		"classified_by":    models.ClassifiedByNone,
		"ai_confidence":    nil,
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Transaction{}).Where("id = ?", leg.ID).Updates(clear).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if leg.TransferPairID != nil {
			if err := tx.Model(&models.Transaction{}).Where("id = ?", *leg.TransferPairID).Updates(clear).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		return nil
	})
}

func (s *transferService) loadLeg(userID, transactionID string) (*models.Transaction, error) {
	var leg models.Transaction
	if err := s.db.Where("id = ?", transactionID).First(&leg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if _, err := s.households.RequireMember(userID, leg.HouseholdID); err != nil {
		return nil, apperrors.ErrTransactionNotFound
	}
	return &leg, nil
}
