package services

import (
	"context"
	"errors"
	"testing"

	"hearth/internal/ai"
	"hearth/internal/models"
	"hearth/internal/testutil"
)

func TestClassifyHousehold(t *testing.T) {
	t.Run("categorizes_uncategorized_rows", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		households := NewHouseholdService(db)

		user := testutil.CreateTestUser(t, db)
		household := testutil.CreateTestHousehold(t, db, user.ID)
		food := testutil.GetCategoryByName(t, db, household.ID, "Food & Dining")

		coffee := testutil.CreateTestTransaction(t, db, household.ID, nil, d("4.75"))
		groceries := testutil.CreateTestTransaction(t, db, household.ID, nil, d("82.10"))

		classifier := &fakeClassifier{
			classifyFn: func(items []ai.ClassifyInput, categories []string) ([]ai.ClassifyResult, error) {
				results := make([]ai.ClassifyResult, 0, len(items))
				for _, item := range items {
					results = append(results, ai.ClassifyResult{ID: item.ID, Category: "Food & Dining", Confidence: 0.9142})
				}
				return results, nil
			},
		}
		svc := NewClassifyService(db, classifier, households, 0, 0)

		summary, err := svc.ClassifyHousehold(context.Background(), user.ID, household.ID)
		testutil.AssertNoError(t, err)
		if summary.Classified != 2 {
			t.Errorf("expected 2 classified, got %+v", summary)
		}

		for _, id := range []string{coffee.ID, groceries.ID} {
			var row models.Transaction
			db.First(&row, "id = ?", id)
			if row.CategoryID == nil || *row.CategoryID != food.ID {
				t.Errorf("transaction %s not categorized", id)
			}
			if row.ClassifiedBy != models.ClassifiedByAI {
				t.Errorf("expected ai provenance, got %q", row.ClassifiedBy)
			}
			if row.AIConfidence == nil || *row.AIConfidence != 0.91 {
				t.Errorf("expected confidence rounded to 0.91, got %v", row.AIConfidence)
			}
		}
	})

	t.Run("user_classified_rows_never_offered", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		households := NewHouseholdService(db)

		user := testutil.CreateTestUser(t, db)
		household := testutil.CreateTestHousehold(t, db, user.ID)
		shopping := testutil.GetCategoryByName(t, db, household.ID, "Shopping")

		classified := testutil.CreateTestTransaction(t, db, household.ID, nil, d("30.00"))
		db.Model(classified).Updates(map[string]interface{}{
			"category_id": shopping.ID, "classified_by": models.ClassifiedByUser,
		})
		// Provenance without a category still pins the row.
		cleared := testutil.CreateTestTransaction(t, db, household.ID, nil, d("31.00"))
		db.Model(cleared).Update("classified_by", models.ClassifiedByUser)
		candidate := testutil.CreateTestTransaction(t, db, household.ID, nil, d("32.00"))

		classifier := &fakeClassifier{}
		svc := NewClassifyService(db, classifier, households, 0, 0)

		_, err := svc.ClassifyHousehold(context.Background(), user.ID, household.ID)
		testutil.AssertNoError(t, err)

		batches := classifier.batches()
		if len(batches) != 1 {
			t.Fatalf("expected a single batch, got %d", len(batches))
		}
		if len(batches[0]) != 1 || batches[0][0].ID != candidate.ID {
			t.Errorf("expected only the unclassified row to be offered, got %+v", batches[0])
		}
	})

	t.Run("user_write_during_batch_wins", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		households := NewHouseholdService(db)

		user := testutil.CreateTestUser(t, db)
		household := testutil.CreateTestHousehold(t, db, user.ID)
		shopping := testutil.GetCategoryByName(t, db, household.ID, "Shopping")

		row := testutil.CreateTestTransaction(t, db, household.ID, nil, d("15.00"))

		// The fake classifies the row, but the user beats it to the write.
		classifier := &fakeClassifier{
			classifyFn: func(items []ai.ClassifyInput, _ []string) ([]ai.ClassifyResult, error) {
				db.Model(&models.Transaction{}).Where("id = ?", row.ID).Updates(map[string]interface{}{
					"category_id": shopping.ID, "classified_by": models.ClassifiedByUser,
				})
				return []ai.ClassifyResult{{ID: row.ID, Category: "Food & Dining", Confidence: 0.9}}, nil
			},
		}
		svc := NewClassifyService(db, classifier, households, 0, 0)

		summary, err := svc.ClassifyHousehold(context.Background(), user.ID, household.ID)
		testutil.AssertNoError(t, err)
		if summary.Classified != 0 || summary.Skipped != 1 {
			t.Errorf("expected the suggestion to be skipped, got %+v", summary)
		}

		var reloaded models.Transaction
		db.First(&reloaded, "id = ?", row.ID)
		if reloaded.CategoryID == nil || *reloaded.CategoryID != shopping.ID {
			t.Error("expected the user's category to stand")
		}
		if reloaded.ClassifiedBy != models.ClassifiedByUser {
			t.Errorf("expected user provenance, got %q", reloaded.ClassifiedBy)
		}
	})

	t.Run("unknown_category_skipped", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		households := NewHouseholdService(db)

		user := testutil.CreateTestUser(t, db)
		household := testutil.CreateTestHousehold(t, db, user.ID)
		row := testutil.CreateTestTransaction(t, db, household.ID, nil, d("9.99"))

		classifier := &fakeClassifier{
			classifyFn: func(items []ai.ClassifyInput, _ []string) ([]ai.ClassifyResult, error) {
				return []ai.ClassifyResult{{ID: items[0].ID, Category: "Imaginary", Confidence: 0.99}}, nil
			},
		}
		svc := NewClassifyService(db, classifier, households, 0, 0)

		summary, err := svc.ClassifyHousehold(context.Background(), user.ID, household.ID)
		testutil.AssertNoError(t, err)
		if summary.Classified != 0 || summary.Skipped != 1 {
			t.Errorf("expected unknown category to be skipped, got %+v", summary)
		}

		var reloaded models.Transaction
		db.First(&reloaded, "id = ?", row.ID)
		if reloaded.CategoryID != nil {
			t.Error("expected row to stay uncategorized")
		}
	})

	t.Run("failed_batch_counted_as_errors", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		households := NewHouseholdService(db)

		user := testutil.CreateTestUser(t, db)
		household := testutil.CreateTestHousehold(t, db, user.ID)
		firstErrored := errors.New("model overloaded")

		// Batch size 2 over 3 rows: the first batch fails, the second lands.
		for i := 0; i < 3; i++ {
			testutil.CreateTestTransaction(t, db, household.ID, nil, d("5.00"))
		}
		calls := 0
		classifier := &fakeClassifier{
			classifyFn: func(items []ai.ClassifyInput, _ []string) ([]ai.ClassifyResult, error) {
				calls++
				if calls == 1 {
					return nil, firstErrored
				}
				results := make([]ai.ClassifyResult, 0, len(items))
				for _, item := range items {
					results = append(results, ai.ClassifyResult{ID: item.ID, Category: "Shopping", Confidence: 0.8})
				}
				return results, nil
			},
		}
		svc := NewClassifyService(db, classifier, households, 0, 2)

		summary, err := svc.ClassifyHousehold(context.Background(), user.ID, household.ID)
		testutil.AssertNoError(t, err)
		if summary.Errors != 2 || summary.Classified != 1 {
			t.Errorf("expected 2 errors and 1 classified, got %+v", summary)
		}
	})

	t.Run("no_classifier_configured", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		households := NewHouseholdService(db)

		user := testutil.CreateTestUser(t, db)
		household := testutil.CreateTestHousehold(t, db, user.ID)

		svc := NewClassifyService(db, nil, households, 0, 0)
		_, err := svc.ClassifyHousehold(context.Background(), user.ID, household.ID)
		testutil.AssertAppError(t, err, "CLASSIFIER_UNAVAILABLE")
	})

	t.Run("non_member_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		households := NewHouseholdService(db)

		owner := testutil.CreateTestUser(t, db)
		outsider := testutil.CreateTestUser(t, db)
		household := testutil.CreateTestHousehold(t, db, owner.ID)

		svc := NewClassifyService(db, &fakeClassifier{}, households, 0, 0)
		_, err := svc.ClassifyHousehold(context.Background(), outsider.ID, household.ID)
		testutil.AssertAppError(t, err, "NOT_HOUSEHOLD_MEMBER")
	})
}
