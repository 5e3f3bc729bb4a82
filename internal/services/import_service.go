package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gorm.io/gorm"

	apperrors "hearth/internal/errors"
	"hearth/internal/ingest"
	"hearth/internal/logger"
	"hearth/internal/models"
)

// importService turns parsed file candidates into deduplicated ledger
// rows. All channels funnel through the same upsert so re-importing a
// file is idempotent.
type importService struct {
	db         *gorm.DB
	households HouseholdServicer
	classifier ClassifyServicer
}

// NewImportService creates a new ImportServicer. classifier may be nil;
// the post-import classification pass is then skipped.
func NewImportService(db *gorm.DB, households HouseholdServicer, classifier ClassifyServicer) ImportServicer {
	return &importService{db: db, households: households, classifier: classifier}
}

// PreviewCSV reads the header row and suggests a column mapping.
func (s *importService) PreviewCSV(r io.Reader) (*CSVPreview, error) {
	headers, err := ingest.ReadHeaders(r)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "could not read CSV headers")
	}
	return &CSVPreview{
		Headers:   headers,
		Suggested: ingest.SuggestMapping(headers),
	}, nil
}

// ImportCSV parses and ingests a delimited file using the caller's
// column mapping. Rows that fail to parse are counted, not fatal.
func (s *importService) ImportCSV(ctx context.Context, userID, householdID string, accountID *string, mapping ingest.ColumnMapping, r io.Reader) (*ImportSummary, error) {
	household, err := s.requireHousehold(userID, householdID)
	if err != nil {
		return nil, err
	}
	if !mapping.Complete() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "column mapping must name date, description and amount columns")
	}

	parsed, err := ingest.ParseCSV(r, mapping)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "could not parse CSV file")
	}

	summary := s.upsertCandidates(householdID, accountID, parsed.Candidates, models.SourceCSV, csvImportKey)
	summary.Errors += parsed.Skipped

	s.maybeClassify(ctx, userID, household, summary)
	return summary, nil
}

// ImportOFX parses and ingests an OFX/QFX document.
func (s *importService) ImportOFX(ctx context.Context, userID, householdID string, accountID *string, text string) (*ImportSummary, error) {
	household, err := s.requireHousehold(userID, householdID)
	if err != nil {
		return nil, err
	}

	parsed := ingest.ParseOFX(text)
	if len(parsed.Candidates) == 0 && parsed.Skipped == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "no transactions found in OFX file")
	}

	summary := s.upsertCandidates(householdID, accountID, parsed.Candidates, models.SourceOFX, ofxImportKey)
	summary.Errors += parsed.Skipped

	s.maybeClassify(ctx, userID, household, summary)
	return summary, nil
}

func (s *importService) requireHousehold(userID, householdID string) (*models.Household, error) {
	if _, err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}
	var household models.Household
	if err := s.db.Where("id = ?", householdID).First(&household).Error; err != nil {
		return nil, apperrors.ErrHouseholdNotFound
	}
	return &household, nil
}

// csvImportKey derives the dedup identity of a CSV row from its content.
// Two genuinely distinct same-day rows with identical description and
// amount collapse into one; that trade-off keeps re-imports clean.
func csvImportKey(c ingest.Candidate) string {
	return fmt.Sprintf("csv:%s:%s:%s", c.Date.Format("2006-01-02"), c.Name, c.Amount.StringFixed(2))
}

// ofxImportKey uses the bank-assigned FITID, which is stable across
// downloads.
func ofxImportKey(c ingest.Candidate) string {
	return "ofx:" + c.ExternalID
}

// upsertCandidates is the shared dedup core. Insert when the key is
// unseen, update mutable fields when the row drifted, skip when nothing
// changed. Category assignment and provenance are never touched here.
func (s *importService) upsertCandidates(householdID string, accountID *string, candidates []ingest.Candidate, source models.TransactionSource, keyFn func(ingest.Candidate) string) *ImportSummary {
	summary := &ImportSummary{}

	for _, candidate := range candidates {
		key := keyFn(candidate)

		var existing models.Transaction
		err := s.db.Where("household_id = ? AND import_key = ?", householdID, key).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row := candidateToTransaction(householdID, accountID, candidate, source)
			row.ImportKey = &key
			if err := s.db.Create(&row).Error; err != nil {
				logger.Get().Warnw("import insert failed", "import_key", key, "error", err)
				summary.Errors++
				continue
			}
			summary.Added++
		case err != nil:
			logger.Get().Warnw("import lookup failed", "import_key", key, "error", err)
			summary.Errors++
		default:
			updates := importDrift(&existing, candidate)
			if len(updates) == 0 {
				summary.Skipped++
				continue
			}
			if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
				logger.Get().Warnw("import update failed", "import_key", key, "error", err)
				summary.Errors++
				continue
			}
			summary.Modified++
		}
	}
	return summary
}

func candidateToTransaction(householdID string, accountID *string, c ingest.Candidate, source models.TransactionSource) models.Transaction {
	return models.Transaction{
		HouseholdID:  householdID,
		AccountID:    accountID,
		Amount:       c.Amount,
		Date:         c.Date,
		Name:         c.Name,
		MerchantName: optional(c.MerchantName),
		Notes:        optional(c.Memo),
		CheckNumber:  optional(c.CheckNumber),
		Source:       source,
		ClassifiedBy: models.ClassifiedByNone,
	}
}

// optional maps an empty string to a NULL column.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// importDrift compares the stored row to a freshly parsed candidate and
// returns the column updates needed, if any.
func importDrift(existing *models.Transaction, c ingest.Candidate) map[string]interface{} {
	updates := map[string]interface{}{}
	if !existing.Amount.Equal(c.Amount) {
		updates["amount"] = c.Amount
	}
	if !existing.Date.Equal(c.Date) {
		updates["date"] = c.Date
	}
	if existing.Name != c.Name {
		updates["name"] = c.Name
	}
	return updates
}

// maybeClassify runs the automated pass after an import when the
// household opted in. Failure is logged and swallowed; the import
// already succeeded.
func (s *importService) maybeClassify(ctx context.Context, userID string, household *models.Household, summary *ImportSummary) {
	if s.classifier == nil || !household.AutoClassifyImports {
		return
	}
	if summary.Added == 0 && summary.Modified == 0 {
		return
	}
	if _, err := s.classifier.ClassifyHousehold(ctx, userID, household.ID); err != nil {
		logger.Get().Warnw("post-import classification failed", "household_id", household.ID, "error", err)
	}
}
