package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/teachbridge/backend/internal/apperr"
	"github.com/teachbridge/backend/internal/types"
)

func TestBatchLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batches := NewBatchService(env.db, env.log, env.batchRepo, env.userRepo)

	admin := env.createUser(t, types.RoleAdmin)
	teacher := env.createUser(t, types.RoleTeacher)

	batch, err := batches.CreateBatch(ctx, admin.ID, "  Cohort 2026  ", "spring intake")
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	if batch.Name != "Cohort 2026" {
		t.Fatalf("expected trimmed name, got %q", batch.Name)
	}
	if _, err := batches.CreateBatch(ctx, admin.ID, "  ", ""); !apperr.IsKind(err, apperr.KindInvalidArgument) {
		t.Fatalf("expected InvalidArgument for blank name, got %v", err)
	}

	if err := batches.AddMember(ctx, batch.ID, teacher.ID); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if err := batches.AddMember(ctx, batch.ID, uuid.New()); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound for unknown user, got %v", err)
	}
	if err := batches.AddMember(ctx, uuid.New(), teacher.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound for unknown batch, got %v", err)
	}

	got, err := batches.GetBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if len(got.Members) != 1 || got.Members[0].ID != teacher.ID {
		t.Fatalf("unexpected members: %+v", got.Members)
	}

	all, err := batches.ListBatches(ctx)
	if err != nil {
		t.Fatalf("ListBatches: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(all))
	}

	if err := batches.DeleteBatch(ctx, batch.ID); err != nil {
		t.Fatalf("DeleteBatch: %v", err)
	}
	if _, err := batches.GetBatch(ctx, batch.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound after delete, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := NewUserService(env.db, env.log, env.userRepo)
	teacher := env.createUser(t, types.RoleTeacher)

	first := " Casey "
	avatar := "https://cdn.test/avatars/casey.png"
	updated, err := users.UpdateProfile(ctx, teacher.ID, &UserProfileUpdate{FirstName: &first, AvatarURL: &avatar})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.FirstName != "Casey" || updated.AvatarURL != avatar {
		t.Fatalf("unexpected profile: %+v", updated)
	}
	if updated.LastName != teacher.LastName {
		t.Fatal("untouched fields must survive a partial update")
	}

	blank := "   "
	if _, err := users.UpdateProfile(ctx, teacher.ID, &UserProfileUpdate{FirstName: &blank}); !apperr.IsKind(err, apperr.KindInvalidArgument) {
		t.Fatalf("expected InvalidArgument for blank name, got %v", err)
	}

	if _, err := users.GetProfile(ctx, uuid.New()); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestUpdateProfilePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := NewUserService(env.db, env.log, env.userRepo)
	teacher := env.createUser(t, types.RoleTeacher)

	short := "short"
	if _, err := users.UpdateProfile(ctx, teacher.ID, &UserProfileUpdate{Password: &short}); !apperr.IsKind(err, apperr.KindInvalidArgument) {
		t.Fatalf("expected InvalidArgument for short password, got %v", err)
	}

	next := "fresh-password"
	updated, err := users.UpdateProfile(ctx, teacher.ID, &UserProfileUpdate{Password: &next})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Password == next || updated.Password == teacher.Password {
		t.Fatal("password must be stored as a new hash")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(updated.Password), []byte(next)); err != nil {
		t.Fatalf("stored hash does not match new password: %v", err)
	}
}
