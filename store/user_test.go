package store

import (
	"context"
	"errors"
	"testing"
)

func TestCreateUserRejectsDuplicates(t *testing.T) {
	db := testDB(t)
	s := New(db)
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, db, "alice", "alice@example.com", "hash"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	_, err := s.CreateUser(ctx, db, "alice", "other@example.com", "hash")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate username, got %v", err)
	}
	_, err = s.CreateUser(ctx, db, "alice2", "alice@example.com", "hash")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
	}
}

func TestUpdateUserPasswordBumpsLastChanged(t *testing.T) {
	db := testDB(t)
	s := New(db)
	ctx := context.Background()

	id := createTestUser(t, s, db, "alice")
	before, err := s.UserByID(ctx, db, id)
	if err != nil {
		t.Fatalf("UserByID() error = %v", err)
	}

	username := "alicia"
	if err := s.UpdateUser(ctx, db, id, &username, nil, nil); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	after, err := s.UserByID(ctx, db, id)
	if err != nil {
		t.Fatalf("UserByID() error = %v", err)
	}
	if after.Username != "alicia" {
		t.Fatalf("username not updated: %+v", after)
	}
	if !after.LastChangedPassword.Equal(before.LastChangedPassword) {
		t.Fatalf("username change must not bump last_changed_password")
	}

	hash := "newhash"
	if err := s.UpdateUser(ctx, db, id, nil, nil, &hash); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	after, err = s.UserByID(ctx, db, id)
	if err != nil {
		t.Fatalf("UserByID() error = %v", err)
	}
	if after.HashedPassword != "newhash" {
		t.Fatalf("password not updated: %+v", after)
	}
	if !after.LastChangedPassword.After(before.LastChangedPassword) {
		t.Fatalf("password change must bump last_changed_password")
	}
}

func TestRedeemResetPasswordToken(t *testing.T) {
	db := testDB(t)
	s := New(db)
	ctx := context.Background()

	id := createTestUser(t, s, db, "alice")
	tokenID, err := s.CreateResetPasswordToken(ctx, db, id)
	if err != nil {
		t.Fatalf("CreateResetPasswordToken() error = %v", err)
	}

	if err := s.RedeemResetPasswordToken(ctx, db, tokenID, "resethash"); err != nil {
		t.Fatalf("RedeemResetPasswordToken() error = %v", err)
	}
	user, err := s.UserByID(ctx, db, id)
	if err != nil {
		t.Fatalf("UserByID() error = %v", err)
	}
	if user.HashedPassword != "resethash" {
		t.Fatalf("password not reset: %+v", user)
	}

	// a redeemed token is gone
	err = s.RedeemResetPasswordToken(ctx, db, tokenID, "again")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on reuse, got %v", err)
	}
}

func TestRedeemExpiredResetTokenFails(t *testing.T) {
	db := testDB(t)
	s := New(db)
	ctx := context.Background()

	id := createTestUser(t, s, db, "alice")
	tokenID, err := s.CreateResetPasswordToken(ctx, db, id)
	if err != nil {
		t.Fatalf("CreateResetPasswordToken() error = %v", err)
	}
	if _, err := db.Exec(`UPDATE reset_password_tokens SET expired = now() - interval '1 hour' WHERE id = $1`, tokenID); err != nil {
		t.Fatalf("expire token: %v", err)
	}

	err = s.RedeemResetPasswordToken(ctx, db, tokenID, "late")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired token, got %v", err)
	}
}

func TestDeleteUserCascadesToSurveys(t *testing.T) {
	db := testDB(t)
	s := New(db)
	ctx := context.Background()

	id := createTestUser(t, s, db, "alice")
	surveyID := createTestSurvey(t, s, db, id, "orphaned soon", false)

	if err := s.DeleteUser(ctx, db, id); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if _, err := s.GetSurvey(ctx, db, surveyID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected survey gone with its owner, got %v", err)
	}
}
