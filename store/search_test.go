package store

import (
	"context"
	"testing"
	"time"
)

func TestSearchPublicNeverReturnsSecured(t *testing.T) {
	db := testDB(t)
	s := New(db)
	ctx := context.Background()

	owner := createTestUser(t, s, db, "alice")
	public := createTestSurvey(t, s, db, owner, "open poll", false)
	secured := createTestSurvey(t, s, db, owner, "private poll", true)

	ids, err := s.SearchPublicSurveyIDs(ctx, db, SurveyFilter{PageSize: 10})
	if err != nil {
		t.Fatalf("SearchPublicSurveyIDs() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != public {
		t.Fatalf("expected only the public survey %s, got %v", public, ids)
	}
	for _, id := range ids {
		if id == secured {
			t.Fatalf("secured survey leaked into public search")
		}
	}
}

func TestSearchSecuredScopedToOwner(t *testing.T) {
	db := testDB(t)
	s := New(db)
	ctx := context.Background()

	alice := createTestUser(t, s, db, "alice")
	bob := createTestUser(t, s, db, "bob")
	aliceSurvey := createTestSurvey(t, s, db, alice, "alice secrets", true)
	createTestSurvey(t, s, db, bob, "bob secrets", true)
	createTestSurvey(t, s, db, alice, "alice public", false)

	ids, err := s.SearchSecuredSurveyIDs(ctx, db, SurveyFilter{PageSize: 10}, alice)
	if err != nil {
		t.Fatalf("SearchSecuredSurveyIDs() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != aliceSurvey {
		t.Fatalf("expected only alice's secured survey, got %v", ids)
	}
}

func TestSearchTitleFilterIsSubstring(t *testing.T) {
	db := testDB(t)
	s := New(db)
	ctx := context.Background()

	owner := createTestUser(t, s, db, "alice")
	match := createTestSurvey(t, s, db, owner, "favorite lunch spot", false)
	createTestSurvey(t, s, db, owner, "commute time", false)

	title := "lunch"
	ids, err := s.SearchPublicSurveyIDs(ctx, db, SurveyFilter{Title: &title, PageSize: 10})
	if err != nil {
		t.Fatalf("SearchPublicSurveyIDs() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != match {
		t.Fatalf("expected substring match on title, got %v", ids)
	}
}

func TestCountMatchesSearchAcrossPages(t *testing.T) {
	db := testDB(t)
	s := New(db)
	ctx := context.Background()

	owner := createTestUser(t, s, db, "alice")
	for i := 0; i < 7; i++ {
		createTestSurvey(t, s, db, owner, "poll", false)
	}

	count, err := s.CountPublicSurveys(ctx, db, SurveyFilter{})
	if err != nil {
		t.Fatalf("CountPublicSurveys() error = %v", err)
	}
	if count != 7 {
		t.Fatalf("expected count 7, got %d", count)
	}

	seen := map[string]bool{}
	for page := 0; ; page++ {
		ids, err := s.SearchPublicSurveyIDs(ctx, db, SurveyFilter{PageNumber: page, PageSize: 3})
		if err != nil {
			t.Fatalf("SearchPublicSurveyIDs() page %d error = %v", page, err)
		}
		if len(ids) == 0 {
			break
		}
		for _, id := range ids {
			if seen[id] {
				t.Fatalf("survey %s returned on more than one page", id)
			}
			seen[id] = true
		}
	}
	if len(seen) != count {
		t.Fatalf("pages yielded %d surveys, count said %d", len(seen), count)
	}
}

// The end-date filter compares end_date against the start-date filter value.
// These tests pin that behavior down so a change to it is a conscious one.
func TestEndDateFilterAloneMatchesNothing(t *testing.T) {
	db := testDB(t)
	s := New(db)
	ctx := context.Background()

	owner := createTestUser(t, s, db, "alice")
	endDate := time.Now().Add(24 * time.Hour)
	if _, err := s.CreateSurvey(ctx, db, "expiring", "d", time.Now(), &endDate, false, owner); err != nil {
		t.Fatalf("create survey: %v", err)
	}

	filterEnd := time.Now().Add(48 * time.Hour)
	ids, err := s.SearchPublicSurveyIDs(ctx, db, SurveyFilter{EndDate: &filterEnd, PageSize: 10})
	if err != nil {
		t.Fatalf("SearchPublicSurveyIDs() error = %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("end-date filter without start-date matched %v", ids)
	}
}

func TestEndDateFilterComparesAgainstStartDateValue(t *testing.T) {
	db := testDB(t)
	s := New(db)
	ctx := context.Background()

	owner := createTestUser(t, s, db, "alice")
	now := time.Now()

	surveyStart := now.Add(24 * time.Hour)
	surveyEnd := now.Add(-24 * time.Hour)
	match, err := s.CreateSurvey(ctx, db, "quirky", "d", surveyStart, &surveyEnd, false, owner)
	if err != nil {
		t.Fatalf("create survey: %v", err)
	}

	filterEnd := now.Add(48 * time.Hour)
	ids, err := s.SearchPublicSurveyIDs(ctx, db, SurveyFilter{
		StartDate: &now,
		EndDate:   &filterEnd,
		PageSize:  10,
	})
	if err != nil {
		t.Fatalf("SearchPublicSurveyIDs() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != match {
		t.Fatalf("expected end_date to be compared against the start-date value, got %v", ids)
	}
}

func TestSearchSurveysFiltersByOwnerAndSecured(t *testing.T) {
	db := testDB(t)
	s := New(db)
	ctx := context.Background()

	alice := createTestUser(t, s, db, "alice")
	bob := createTestUser(t, s, db, "bob")
	aliceSecured := createTestSurvey(t, s, db, alice, "a1", true)
	createTestSurvey(t, s, db, alice, "a2", false)
	createTestSurvey(t, s, db, bob, "b1", true)

	secured := true
	surveys, err := s.SearchSurveys(ctx, db, SurveyFilter{PageSize: 10}, &alice, &secured)
	if err != nil {
		t.Fatalf("SearchSurveys() error = %v", err)
	}
	if len(surveys) != 1 || surveys[0].ID != aliceSecured {
		t.Fatalf("expected alice's secured survey only, got %+v", surveys)
	}

	count, err := s.CountSurveys(ctx, db, SurveyFilter{}, &alice, nil)
	if err != nil {
		t.Fatalf("CountSurveys() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 surveys for alice, got %d", count)
	}
}
