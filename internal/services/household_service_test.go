package services

import (
	"testing"

	"hearth/internal/models"
	"hearth/internal/testutil"
)

func TestCreateHousehold(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewHouseholdService(db)

	user := testutil.CreateTestUser(t, db)

	t.Run("seeds_defaults_and_ownership", func(t *testing.T) {
		household, err := svc.CreateHousehold(user.ID, "Maple Street")
		testutil.AssertNoError(t, err)

		member, err := svc.RequireOwner(user.ID, household.ID)
		testutil.AssertNoError(t, err)
		if member.Role != models.MemberRoleOwner {
			t.Errorf("expected owner role, got %s", member.Role)
		}

		var categories []models.Category
		db.Where("household_id = ?", household.ID).Find(&categories)
		if len(categories) != len(defaultCategoryNames) {
			t.Errorf("expected %d seeded categories, got %d", len(defaultCategoryNames), len(categories))
		}
		names := map[string]bool{}
		for _, c := range categories {
			names[c.Name] = true
		}
		if !names[models.TransferCategoryName] {
			t.Error("expected the reserved Transfer category to be seeded")
		}
	})

	t.Run("empty_name_rejected", func(t *testing.T) {
		_, err := svc.CreateHousehold(user.ID, "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestMembershipGates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewHouseholdService(db)

	owner := testutil.CreateTestUser(t, db)
	member := testutil.CreateTestUser(t, db)
	outsider := testutil.CreateTestUser(t, db)
	household := testutil.CreateTestHousehold(t, db, owner.ID)
	testutil.AddTestMember(t, db, household.ID, member.ID)

	t.Run("require_member", func(t *testing.T) {
		_, err := svc.RequireMember(member.ID, household.ID)
		testutil.AssertNoError(t, err)

		_, err = svc.RequireMember(outsider.ID, household.ID)
		testutil.AssertAppError(t, err, "NOT_HOUSEHOLD_MEMBER")
	})

	t.Run("require_owner", func(t *testing.T) {
		_, err := svc.RequireOwner(owner.ID, household.ID)
		testutil.AssertNoError(t, err)

		_, err = svc.RequireOwner(member.ID, household.ID)
		testutil.AssertAppError(t, err, "OWNER_ROLE_REQUIRED")
	})
}

func TestAddMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewHouseholdService(db)

	owner := testutil.CreateTestUser(t, db)
	invitee := testutil.CreateTestUser(t, db)
	household := testutil.CreateTestHousehold(t, db, owner.ID)

	t.Run("owner_invites_by_email", func(t *testing.T) {
		added, err := svc.AddMember(owner.ID, household.ID, invitee.Email, models.MemberRoleMember)
		testutil.AssertNoError(t, err)
		if added.UserID != invitee.ID || added.Role != models.MemberRoleMember {
			t.Errorf("unexpected membership %+v", added)
		}
	})

	t.Run("duplicate_member_rejected", func(t *testing.T) {
		_, err := svc.AddMember(owner.ID, household.ID, invitee.Email, models.MemberRoleMember)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("unknown_email", func(t *testing.T) {
		_, err := svc.AddMember(owner.ID, household.ID, "nobody@test.com", models.MemberRoleMember)
		testutil.AssertAppError(t, err, "USER_NOT_FOUND")
	})

	t.Run("non_owner_cannot_invite", func(t *testing.T) {
		_, err := svc.AddMember(invitee.ID, household.ID, "whoever@test.com", models.MemberRoleMember)
		testutil.AssertAppError(t, err, "OWNER_ROLE_REQUIRED")
	})
}

func TestUpdateHousehold(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewHouseholdService(db)

	owner := testutil.CreateTestUser(t, db)
	household := testutil.CreateTestHousehold(t, db, owner.ID)

	autoClassify := true
	updated, err := svc.UpdateHousehold(owner.ID, household.ID, nil, &autoClassify)
	testutil.AssertNoError(t, err)
	if !updated.AutoClassifyImports {
		t.Error("expected auto classification opt-in persisted")
	}

	name := "Renamed"
	updated, err = svc.UpdateHousehold(owner.ID, household.ID, &name, nil)
	testutil.AssertNoError(t, err)
	if updated.Name != "Renamed" {
		t.Errorf("expected rename, got %q", updated.Name)
	}
	if !updated.AutoClassifyImports {
		t.Error("expected earlier opt-in untouched")
	}
}
