package services

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "hearth/internal/errors"
	"hearth/internal/models"
)

// splitBalanceEpsilon is the rounding slack allowed between a parent
// amount and the sum of its lines.
var splitBalanceEpsilon = decimal.NewFromFloat(0.01)

// splitService decomposes one transaction into balanced child lines.
type splitService struct {
	db         *gorm.DB
	households HouseholdServicer
	receipts   ReceiptServicer
}

// NewSplitService creates a new SplitServicer.
func NewSplitService(db *gorm.DB, households HouseholdServicer, receipts ReceiptServicer) SplitServicer {
	return &splitService{db: db, households: households, receipts: receipts}
}

// Split turns parent into a non-aggregating shell and creates one child
// per line. All lines land or none do. Line amounts are positive
// magnitudes; each child inherits the parent's direction, date, account
// and source.
func (s *splitService) Split(userID, parentID string, lines []SplitLine) ([]models.Transaction, error) {
	parent, err := s.loadParent(userID, parentID)
	if err != nil {
		return nil, err
	}
	if err := validateSplitLines(parent, lines); err != nil {
		return nil, err
	}
	return s.createChildren(parent, lines, models.ClassifiedByUser, nil)
}

// SplitFromReceipt splits parent using the line items of a completed
// receipt scan, carrying the extraction's provenance and confidence.
func (s *splitService) SplitFromReceipt(userID, parentID, scanID string) ([]models.Transaction, error) {
	parent, err := s.loadParent(userID, parentID)
	if err != nil {
		return nil, err
	}

	scan, err := s.receipts.GetScan(userID, scanID)
	if err != nil {
		return nil, err
	}
	if scan.HouseholdID != parent.HouseholdID {
		return nil, apperrors.ErrScanNotFound
	}
	if scan.Status != models.ScanStatusCompleted {
		return nil, apperrors.ErrScanNotReady
	}
	if len(scan.LineItems) < 2 {
		return nil, apperrors.ErrSplitTooFewLines
	}

	var categories []models.Category
	if err := s.db.Where("household_id = ?", parent.HouseholdID).Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	categoryIDByName := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryIDByName[c.Name] = c.ID
	}

	lines := make([]SplitLine, 0, len(scan.LineItems))
	confidences := make([]*float64, 0, len(scan.LineItems))
	for _, li := range scan.LineItems {
		line := SplitLine{
			Name:   li.Name,
			Amount: decimal.NewFromFloat(li.Amount),
		}
		var conf *float64
		if id, ok := categoryIDByName[li.Category]; ok {
			line.CategoryID = &id
			c := li.Confidence
			conf = &c
		}
		lines = append(lines, line)
		confidences = append(confidences, conf)
	}

	if err := validateSplitLines(parent, lines); err != nil {
		return nil, err
	}
	return s.createChildren(parent, lines, models.ClassifiedByAI, confidences)
}

func (s *splitService) loadParent(userID, parentID string) (*models.Transaction, error) {
	var parent models.Transaction
	if err := s.db.Where("id = ?", parentID).First(&parent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if _, err := s.households.RequireMember(userID, parent.HouseholdID); err != nil {
		return nil, apperrors.ErrTransactionNotFound
	}
	if parent.IsSplit {
		return nil, apperrors.ErrAlreadySplit
	}
	if parent.ParentTransactionID != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "a split child cannot be split again")
	}
	if parent.IsTransfer {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "a transfer leg cannot be split")
	}
	return &parent, nil
}

func validateSplitLines(parent *models.Transaction, lines []SplitLine) error {
	if len(lines) < 2 {
		return apperrors.ErrSplitTooFewLines
	}
	total := decimal.Zero
	for _, line := range lines {
		if line.Name == "" {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "every split line needs a name")
		}
		if !line.Amount.IsPositive() {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "split line amounts must be positive")
		}
		total = total.Add(line.Amount)
	}
	if total.Sub(parent.Amount.Abs()).Abs().GreaterThan(splitBalanceEpsilon) {
		return apperrors.ErrSplitUnbalanced
	}
	return nil
}

// createChildren marks the parent and inserts every child in a single
// transaction. A categorized line takes the given provenance; an
// uncategorized line stays unclassified.
func (s *splitService) createChildren(parent *models.Transaction, lines []SplitLine, provenance models.ClassifiedBy, confidences []*float64) ([]models.Transaction, error) {
	sign := decimal.NewFromInt(1)
	if parent.Amount.IsNegative() {
		sign = decimal.NewFromInt(-1)
	}

	children := make([]models.Transaction, 0, len(lines))
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Transaction{}).
			Where("id = ? AND is_split = ?", parent.ID, false).
			Update("is_split", true)
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrAlreadySplit
		}

		for i, line := range lines {
			child := models.Transaction{
				HouseholdID:         parent.HouseholdID,
				AccountID:           parent.AccountID,
				CategoryID:          line.CategoryID,
				Amount:              line.Amount.Mul(sign),
				Date:                parent.Date,
				Name:                line.Name,
				Source:              parent.Source,
				ParentTransactionID: &parent.ID,
			}
			if line.CategoryID != nil {
				child.ClassifiedBy = provenance
				if confidences != nil && confidences[i] != nil {
					child.AIConfidence = confidences[i]
				}
			}
			if err := tx.Create(&child).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			children = append(children, child)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return children, nil
}
