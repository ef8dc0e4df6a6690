package services

import (
	"context"
	"testing"
	"time"

	"github.com/teachbridge/backend/internal/apperr"
	"github.com/teachbridge/backend/internal/repos"
	"github.com/teachbridge/backend/internal/requestdata"
	"github.com/teachbridge/backend/internal/types"
)

func newAuthEnv(t *testing.T) (*testEnv, AuthService) {
	t.Helper()
	env := newTestEnv(t)
	tokenRepo := repos.NewUserTokenRepo(env.db, env.log)
	auth := NewAuthService(env.db, env.log, env.userRepo, tokenRepo, "test-secret", time.Hour, 24*time.Hour)
	return env, auth
}

func TestRegisterUser(t *testing.T) {
	_, auth := newAuthEnv(t)
	ctx := context.Background()

	user := &types.User{
		Email:     "  Jordan@Example.COM ",
		Password:  "correct-horse",
		FirstName: "Jordan",
		LastName:  "Lee",
	}
	if err := auth.RegisterUser(ctx, user); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if user.Email != "jordan@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.Role != types.RoleTeacher {
		t.Fatalf("expected default role teacher, got %q", user.Role)
	}
	if user.Password == "correct-horse" {
		t.Fatal("password must be stored hashed")
	}

	// Duplicate email, case-insensitively.
	dup := &types.User{Email: "JORDAN@example.com", Password: "correct-horse"}
	if err := auth.RegisterUser(ctx, dup); !apperr.IsKind(err, apperr.KindInvalidArgument) {
		t.Fatalf("expected InvalidArgument for duplicate email, got %v", err)
	}
}

func TestRegisterUserValidation(t *testing.T) {
	_, auth := newAuthEnv(t)
	ctx := context.Background()

	cases := []struct {
		name string
		user *types.User
	}{
		{"missing email", &types.User{Password: "correct-horse"}},
		{"bad email", &types.User{Email: "not-an-email", Password: "correct-horse"}},
		{"short password", &types.User{Email: "a@b.com", Password: "short"}},
		{"unknown role", &types.User{Email: "a@b.com", Password: "correct-horse", Role: "superuser"}},
	}
	for _, tc := range cases {
		if err := auth.RegisterUser(ctx, tc.user); !apperr.IsKind(err, apperr.KindInvalidArgument) {
			t.Fatalf("%s: expected InvalidArgument, got %v", tc.name, err)
		}
	}
}

func TestLoginAndTokenContext(t *testing.T) {
	_, auth := newAuthEnv(t)
	ctx := context.Background()

	user := &types.User{Email: "trainer@example.com", Password: "correct-horse", Role: types.RoleTrainer}
	if err := auth.RegisterUser(ctx, user); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}

	access, refresh, err := auth.LoginUser(ctx, "Trainer@Example.com", "correct-horse")
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}
	if access == "" || refresh == "" {
		t.Fatal("expected both tokens")
	}

	authed, err := auth.SetContextFromToken(ctx, access)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := requestdata.GetRequestData(authed)
	if rd == nil {
		t.Fatal("expected request data on context")
	}
	if rd.UserID != user.ID || rd.Role != types.RoleTrainer {
		t.Fatalf("unexpected identity: %+v", rd)
	}
	if rd.RefreshToken != refresh {
		t.Fatal("expected the refresh token resolved from the token row")
	}
}

func TestLoginBadCredentials(t *testing.T) {
	_, auth := newAuthEnv(t)
	ctx := context.Background()

	user := &types.User{Email: "teacher@example.com", Password: "correct-horse"}
	if err := auth.RegisterUser(ctx, user); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}

	if _, _, err := auth.LoginUser(ctx, "teacher@example.com", "wrong-password"); !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized for wrong password, got %v", err)
	}
	if _, _, err := auth.LoginUser(ctx, "nobody@example.com", "correct-horse"); !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized for unknown email, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	_, auth := newAuthEnv(t)
	ctx := context.Background()

	user := &types.User{Email: "teacher@example.com", Password: "correct-horse"}
	if err := auth.RegisterUser(ctx, user); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	access, refresh, err := auth.LoginUser(ctx, "teacher@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}

	authed, err := auth.SetContextFromToken(ctx, access)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	newAccess, newRefresh, err := auth.RefreshUser(authed)
	if err != nil {
		t.Fatalf("RefreshUser: %v", err)
	}
	if newRefresh == refresh {
		t.Fatal("refresh must rotate the refresh token")
	}
	// Holds even when login and refresh land in the same second.
	if newAccess == access {
		t.Fatal("refresh must issue a distinct access token")
	}

	// The rotated-out pair is dead; the new one works.
	if _, err := auth.SetContextFromToken(ctx, access); !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("expected old access token revoked, got %v", err)
	}
	if _, err := auth.SetContextFromToken(ctx, newAccess); err != nil {
		t.Fatalf("new access token should validate: %v", err)
	}

	// Replaying the old refresh token fails.
	stale := requestdata.WithRequestData(ctx, &requestdata.RequestData{RefreshToken: refresh})
	if _, _, err := auth.RefreshUser(stale); !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized for replayed refresh token, got %v", err)
	}
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	_, auth := newAuthEnv(t)
	ctx := context.Background()

	user := &types.User{Email: "teacher@example.com", Password: "correct-horse"}
	if err := auth.RegisterUser(ctx, user); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	access, _, err := auth.LoginUser(ctx, "teacher@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}

	authed, err := auth.SetContextFromToken(ctx, access)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	if err := auth.LogoutUser(authed); err != nil {
		t.Fatalf("LogoutUser: %v", err)
	}

	// The JWT has not expired, but its backing row is gone.
	if _, err := auth.SetContextFromToken(ctx, access); !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized after logout, got %v", err)
	}
}

func TestSetContextFromTokenRejectsGarbage(t *testing.T) {
	_, auth := newAuthEnv(t)
	if _, err := auth.SetContextFromToken(context.Background(), "not.a.jwt"); !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}
