package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"hearth/internal/ai"
	apperrors "hearth/internal/errors"
	"hearth/internal/logger"
	"hearth/internal/models"
)

// maxReceiptBytes caps uploads; anything larger is rejected up front.
const maxReceiptBytes = 10 << 20

// receiptMIMETypes is the vision-pass input allowlist.
var receiptMIMETypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// receiptService tracks uploaded receipts through asynchronous vision
// extraction. Upload returns immediately with a pending scan; a
// background worker moves it to processing and then a terminal state.
type receiptService struct {
	db         *gorm.DB
	classifier ai.Classifier
	households HouseholdServicer
	timeout    time.Duration
}

// NewReceiptService creates a new ReceiptServicer. classifier may be
// nil; uploads then fail with ErrClassifierUnavailable.
func NewReceiptService(db *gorm.DB, classifier ai.Classifier, households HouseholdServicer, timeout time.Duration) ReceiptServicer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &receiptService{db: db, classifier: classifier, households: households, timeout: timeout}
}

// Upload validates the file, records a pending scan and starts the
// extraction worker. The caller polls GetScan for the outcome.
func (s *receiptService) Upload(userID, householdID, fileName, mimeType string, data []byte) (*models.ReceiptScan, error) {
	if s.classifier == nil {
		return nil, apperrors.ErrClassifierUnavailable
	}
	if _, err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "empty file")
	}
	if len(data) > maxReceiptBytes {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "file exceeds the 10 MB limit")
	}
	if !receiptMIMETypes[mimeType] {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported file type; use JPEG, PNG, WebP or PDF")
	}

	scan := &models.ReceiptScan{
		HouseholdID: householdID,
		Status:      models.ScanStatusPending,
		FileName:    fileName,
		MIMEType:    mimeType,
	}
	if err := s.db.Create(scan).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	go s.process(scan.ID, householdID, mimeType, data)
	return scan, nil
}

// process runs the extraction in the background with its own deadline,
// detached from the upload request's context.
func (s *receiptService) process(scanID, householdID, mimeType string, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.transition(scanID, models.ScanStatusPending, models.ScanStatusProcessing, nil); err != nil {
		logger.Get().Warnw("scan already claimed", "scan_id", scanID, "error", err)
		return
	}

	var categoryNames []string
	var categories []models.Category
	if err := s.db.Where("household_id = ?", householdID).Find(&categories).Error; err == nil {
		for _, c := range categories {
			categoryNames = append(categoryNames, c.Name)
		}
	}

	extraction, err := s.classifier.ExtractReceipt(ctx, data, mimeType, categoryNames)
	if err != nil {
		logger.Get().Warnw("receipt extraction failed", "scan_id", scanID, "error", err)
		s.fail(scanID, err)
		return
	}

	lineItems := make(models.ReceiptLineItems, 0, len(extraction.LineItems))
	for _, li := range extraction.LineItems {
		lineItems = append(lineItems, models.ReceiptLineItem{
			Name:       li.Name,
			Amount:     li.Amount,
			Category:   li.Category,
			Confidence: li.Confidence,
		})
	}
	updates := map[string]interface{}{
		"status": models.ScanStatusCompleted,
		"summary": models.ReceiptSummary{
			Merchant: extraction.Merchant,
			Date:     extraction.Date,
			Subtotal: extraction.Subtotal,
			Tax:      extraction.Tax,
			Total:    extraction.Total,
		},
		"line_items": lineItems,
	}
	if err := s.db.Model(&models.ReceiptScan{}).Where("id = ?", scanID).Updates(updates).Error; err != nil {
		logger.Get().Errorw("failed to store extraction result", "scan_id", scanID, "error", err)
		s.fail(scanID, err)
	}
}

func (s *receiptService) transition(scanID string, from, to models.ScanStatus, errMsg *string) error {
	updates := map[string]interface{}{"status": to, "error": errMsg}
	res := s.db.Model(&models.ReceiptScan{}).
		Where("id = ? AND status = ?", scanID, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *receiptService) fail(scanID string, cause error) {
	msg := cause.Error()
	err := s.db.Model(&models.ReceiptScan{}).Where("id = ?", scanID).Updates(map[string]interface{}{
		"status": models.ScanStatusFailed,
		"error":  msg,
	}).Error
	if err != nil {
		logger.Get().Errorw("failed to mark scan failed", "scan_id", scanID, "error", err)
	}
}

// GetScan retrieves one scan; the polling endpoint for the upload flow.
func (s *receiptService) GetScan(userID, scanID string) (*models.ReceiptScan, error) {
	var scan models.ReceiptScan
	if err := s.db.Where("id = ?", scanID).First(&scan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrScanNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if _, err := s.households.RequireMember(userID, scan.HouseholdID); err != nil {
		return nil, apperrors.ErrScanNotFound
	}
	return &scan, nil
}

// GetHouseholdScans lists the household's scans, newest first.
func (s *receiptService) GetHouseholdScans(userID, householdID string) ([]models.ReceiptScan, error) {
	if _, err := s.households.RequireMember(userID, householdID); err != nil {
		return nil, err
	}
	var scans []models.ReceiptScan
	if err := s.db.Where("household_id = ?", householdID).Order("created_at DESC").Find(&scans).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return scans, nil
}
