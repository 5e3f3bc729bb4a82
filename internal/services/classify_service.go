package services

import (
	"context"
	"math"

	"gorm.io/gorm"

	"hearth/internal/ai"
	apperrors "hearth/internal/errors"
	"hearth/internal/logger"
	"hearth/internal/models"
)

// classifyService runs the automated categorization pass over a
// household's uncategorized transactions.
type classifyService struct {
	db         *gorm.DB
	classifier ai.Classifier
	households HouseholdServicer
	window     int
	batchSize  int
}

// NewClassifyService creates a new ClassifyServicer. classifier may be
// nil; the pass then fails with ErrClassifierUnavailable.
func NewClassifyService(db *gorm.DB, classifier ai.Classifier, households HouseholdServicer, window, batchSize int) ClassifyServicer {
	if window <= 0 {
		window = 500
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &classifyService{
		db:         db,
		classifier: classifier,
		households: households,
		window:     window,
		batchSize:  batchSize,
	}
}

// ClassifyHousehold categorizes the newest uncategorized transactions in
// batches. Rows the user has classified are never candidates, and a
// user classification that lands while a batch is in flight wins: the
// write re-checks provenance.
func (s *classifyService) ClassifyHousehold(ctx context.Context, userID, householdID string) (*ClassifySummary, error) {
	if s.classifier == nil {
		return nil, apperrors.ErrClassifierUnavailable
	}
	if _, err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}

	var categories []models.Category
	if err := s.db.Where("household_id = ?", householdID).Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(categories) == 0 {
		return &ClassifySummary{}, nil
	}
	categoryNames := make([]string, 0, len(categories))
	categoryIDByName := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryNames = append(categoryNames, c.Name)
		categoryIDByName[c.Name] = c.ID
	}

	var candidates []models.Transaction
	err := s.db.Where("household_id = ? AND category_id IS NULL AND classified_by <> ? AND is_split = ?",
		householdID, models.ClassifiedByUser, false).
		Order("date DESC, created_at DESC").
		Limit(s.window).
		Find(&candidates).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	summary := &ClassifySummary{}
	for start := 0; start < len(candidates); start += s.batchSize {
		end := start + s.batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		s.classifyBatch(ctx, candidates[start:end], categoryNames, categoryIDByName, summary)
	}
	return summary, nil
}

// classifyBatch sends one batch to the model and applies its suggestions.
// A failed batch counts its rows as errors and the pass moves on.
func (s *classifyService) classifyBatch(ctx context.Context, batch []models.Transaction, categoryNames []string, categoryIDByName map[string]string, summary *ClassifySummary) {
	inputs := make([]ai.ClassifyInput, 0, len(batch))
	byID := make(map[string]struct{}, len(batch))
	for _, t := range batch {
		merchant := ""
		if t.MerchantName != nil {
			merchant = *t.MerchantName
		}
		inputs = append(inputs, ai.ClassifyInput{
			ID:       t.ID,
			Name:     t.Name,
			Merchant: merchant,
			Amount:   t.Amount,
			Date:     t.Date.Format("2006-01-02"),
		})
		byID[t.ID] = struct{}{}
	}

	results, err := s.classifier.ClassifyTransactions(ctx, inputs, categoryNames)
	if err != nil {
		logger.Get().Warnw("classification batch failed", "size", len(batch), "error", err)
		summary.Errors += len(batch)
		return
	}

	applied := map[string]struct{}{}
	for _, r := range results {
		if _, known := byID[r.ID]; !known {
			continue
		}
		if _, dup := applied[r.ID]; dup {
			continue
		}
		applied[r.ID] = struct{}{}

		categoryID, ok := categoryIDByName[r.Category]
		if !ok {
			// The model invented a category name; leave the row alone.
			summary.Skipped++
			continue
		}

		confidence := math.Round(r.Confidence*100) / 100
		res := s.db.Model(&models.Transaction{}).
			Where("id = ? AND category_id IS NULL AND classified_by <> ?", r.ID, models.ClassifiedByUser).
			Updates(map[string]interface{}{
				"category_id":   categoryID,
				"classified_by": models.ClassifiedByAI,
				"ai_confidence": confidence,
			})
		if res.Error != nil {
			logger.Get().Warnw("classification write failed", "transaction_id", r.ID, "error", res.Error)
			summary.Errors++
			continue
		}
		if res.RowsAffected == 0 {
			// Someone classified it between read and write.
			summary.Skipped++
			continue
		}
		summary.Classified++
	}

	// Rows the model returned nothing for.
	summary.Skipped += len(batch) - len(applied)
}
