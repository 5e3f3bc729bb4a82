package services

import (
	"context"
	"strings"
	"testing"

	"hearth/internal/ai"
	"hearth/internal/ingest"
	"hearth/internal/models"
	"hearth/internal/testutil"
)

const importCSV = `Date,Description,Amount
2024-03-01,COFFEE SHOP,4.75
2024-03-02,PAYCHECK,-1500.00
2024-03-03,GROCERY STORE,82.10
`

var importMapping = ingest.ColumnMapping{Date: "Date", Name: "Description", Amount: "Amount"}

const importOFX = `OFXHEADER:100
<OFX><BANKMSGSRSV1><STMTTRNRS><STMTRS><BANKTRANLIST>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240301
<TRNAMT>-4.75
<FITID>fit-001
<NAME>COFFEE SHOP
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240302
<TRNAMT>1500.00
<FITID>fit-002
<NAME>PAYCHECK
</STMTTRN>
</BANKTRANLIST></STMTRS></STMTTRNRS></BANKMSGSRSV1></OFX>
`

func TestImportCSV(t *testing.T) {
	t.Run("reimport_is_idempotent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		households := NewHouseholdService(db)
		svc := NewImportService(db, households, nil)

		user := testutil.CreateTestUser(t, db)
		household := testutil.CreateTestHousehold(t, db, user.ID)
		account := testutil.CreateTestAccount(t, db, household.ID)

		first, err := svc.ImportCSV(context.Background(), user.ID, household.ID, &account.ID, importMapping, strings.NewReader(importCSV))
		testutil.AssertNoError(t, err)
		if first.Added != 3 || first.Skipped != 0 {
			t.Fatalf("expected 3 added on first import, got %+v", first)
		}

		second, err := svc.ImportCSV(context.Background(), user.ID, household.ID, &account.ID, importMapping, strings.NewReader(importCSV))
		testutil.AssertNoError(t, err)
		if second.Added != 0 || second.Skipped != 3 {
			t.Errorf("expected 3 skipped on re-import, got %+v", second)
		}

		var count int64
		db.Model(&models.Transaction{}).Where("household_id = ?", household.ID).Count(&count)
		if count != 3 {
			t.Errorf("expected 3 rows after double import, got %d", count)
		}

		var coffee models.Transaction
		db.First(&coffee, "name = ?", "COFFEE SHOP")
		if coffee.ImportKey == nil || *coffee.ImportKey != "csv:2024-03-01:COFFEE SHOP:4.75" {
			t.Errorf("unexpected import key %v", coffee.ImportKey)
		}
		if coffee.Source != models.SourceCSV {
			t.Errorf("expected csv source, got %s", coffee.Source)
		}
		if coffee.AccountID == nil || *coffee.AccountID != account.ID {
			t.Error("expected imported row attached to the chosen account")
		}
	})

	t.Run("bad_rows_counted_not_fatal", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		households := NewHouseholdService(db)
		svc := NewImportService(db, households, nil)

		user := testutil.CreateTestUser(t, db)
		household := testutil.CreateTestHousehold(t, db, user.ID)

		mixed := "Date,Description,Amount\n2024-03-01,OK ROW,10.00\nnot-a-date,BAD ROW,5.00\n"
		summary, err := svc.ImportCSV(context.Background(), user.ID, household.ID, nil, importMapping, strings.NewReader(mixed))
		testutil.AssertNoError(t, err)
		if summary.Added != 1 || summary.Errors != 1 {
			t.Errorf("expected 1 added and 1 error, got %+v", summary)
		}
	})

	t.Run("incomplete_mapping_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		households := NewHouseholdService(db)
		svc := NewImportService(db, households, nil)

		user := testutil.CreateTestUser(t, db)
		household := testutil.CreateTestHousehold(t, db, user.ID)

		partial := ingest.ColumnMapping{Date: "Date", Amount: "Amount"}
		_, err := svc.ImportCSV(context.Background(), user.ID, household.ID, nil, partial, strings.NewReader(importCSV))
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("non_member_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		households := NewHouseholdService(db)
		svc := NewImportService(db, households, nil)

		owner := testutil.CreateTestUser(t, db)
		outsider := testutil.CreateTestUser(t, db)
		household := testutil.CreateTestHousehold(t, db, owner.ID)

		_, err := svc.ImportCSV(context.Background(), outsider.ID, household.ID, nil, importMapping, strings.NewReader(importCSV))
		testutil.AssertAppError(t, err, "NOT_HOUSEHOLD_MEMBER")
	})

	t.Run("auto_classify_runs_when_opted_in", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		households := NewHouseholdService(db)

		user := testutil.CreateTestUser(t, db)
		household := testutil.CreateTestHousehold(t, db, user.ID)
		db.Model(household).Update("auto_classify_imports", true)

		classifier := &fakeClassifier{
			classifyFn: func(items []ai.ClassifyInput, _ []string) ([]ai.ClassifyResult, error) {
				results := make([]ai.ClassifyResult, 0, len(items))
				for _, item := range items {
					results = append(results, ai.ClassifyResult{ID: item.ID, Category: "Food & Dining", Confidence: 0.8})
				}
				return results, nil
			},
		}
		classify := NewClassifyService(db, classifier, households, 0, 0)
		svc := NewImportService(db, households, classify)

		_, err := svc.ImportCSV(context.Background(), user.ID, household.ID, nil, importMapping, strings.NewReader(importCSV))
		testutil.AssertNoError(t, err)

		if len(classifier.batches()) == 0 {
			t.Fatal("expected the post-import classification pass to run")
		}
		var classified int64
		db.Model(&models.Transaction{}).Where("household_id = ? AND classified_by = ?", household.ID, models.ClassifiedByAI).Count(&classified)
		if classified != 3 {
			t.Errorf("expected 3 ai-classified rows, got %d", classified)
		}
	})

	t.Run("auto_classify_skipped_by_default", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		households := NewHouseholdService(db)

		user := testutil.CreateTestUser(t, db)
		household := testutil.CreateTestHousehold(t, db, user.ID)

		classifier := &fakeClassifier{}
		classify := NewClassifyService(db, classifier, households, 0, 0)
		svc := NewImportService(db, households, classify)

		_, err := svc.ImportCSV(context.Background(), user.ID, household.ID, nil, importMapping, strings.NewReader(importCSV))
		testutil.AssertNoError(t, err)
		if len(classifier.batches()) != 0 {
			t.Error("expected no classification pass without opt-in")
		}
	})
}

func TestImportOFX(t *testing.T) {
	t.Run("fitid_deduplicates_and_tracks_drift", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		households := NewHouseholdService(db)
		svc := NewImportService(db, households, nil)

		user := testutil.CreateTestUser(t, db)
		household := testutil.CreateTestHousehold(t, db, user.ID)

		first, err := svc.ImportOFX(context.Background(), user.ID, household.ID, nil, importOFX)
		testutil.AssertNoError(t, err)
		if first.Added != 2 {
			t.Fatalf("expected 2 added, got %+v", first)
		}

		// Sign convention: a bank DEBIT is money out, stored positive.
		var coffee models.Transaction
		db.First(&coffee, "name = ?", "COFFEE SHOP")
		if !coffee.Amount.Equal(d("4.75")) {
			t.Errorf("expected inverted amount 4.75, got %s", coffee.Amount)
		}
		if coffee.ImportKey == nil || *coffee.ImportKey != "ofx:fit-001" {
			t.Errorf("unexpected import key %v", coffee.ImportKey)
		}
		if coffee.Source != models.SourceOFX {
			t.Errorf("expected ofx source, got %s", coffee.Source)
		}

		// The bank restates the pending charge; the FITID pins identity so
		// the row updates in place.
		restated := strings.Replace(importOFX, "<TRNAMT>-4.75", "<TRNAMT>-5.25", 1)
		second, err := svc.ImportOFX(context.Background(), user.ID, household.ID, nil, restated)
		testutil.AssertNoError(t, err)
		if second.Modified != 1 || second.Skipped != 1 || second.Added != 0 {
			t.Errorf("expected 1 modified and 1 skipped, got %+v", second)
		}

		db.First(&coffee, "name = ?", "COFFEE SHOP")
		if !coffee.Amount.Equal(d("5.25")) {
			t.Errorf("expected restated amount 5.25, got %s", coffee.Amount)
		}
	})

	t.Run("empty_document_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		households := NewHouseholdService(db)
		svc := NewImportService(db, households, nil)

		user := testutil.CreateTestUser(t, db)
		household := testutil.CreateTestHousehold(t, db, user.ID)

		_, err := svc.ImportOFX(context.Background(), user.ID, household.ID, nil, "<OFX></OFX>")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestPreviewCSV(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewImportService(db, NewHouseholdService(db), nil)

	preview, err := svc.PreviewCSV(strings.NewReader(importCSV))
	testutil.AssertNoError(t, err)
	if len(preview.Headers) != 3 || preview.Headers[1] != "Description" {
		t.Errorf("unexpected headers %v", preview.Headers)
	}
	if !preview.Suggested.Complete() {
		t.Errorf("expected a complete suggested mapping, got %+v", preview.Suggested)
	}
}
