package auth

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/apexbuild/apexbuild-backend/internal/users"
	pkgauth "github.com/apexbuild/apexbuild-backend/pkg/auth"
	"github.com/apexbuild/apexbuild-backend/pkg/auth/session"
	"github.com/apexbuild/apexbuild-backend/pkg/config"
	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
	pkgerrors "github.com/apexbuild/apexbuild-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

// fakeSessionManager keeps refresh sessions in memory.
type fakeSessionManager struct {
	mu       sync.Mutex
	sessions map[string]string
}

func newFakeSessionManager() *fakeSessionManager {
	return &fakeSessionManager{sessions: map[string]string{}}
}

func (f *fakeSessionManager) Generate(_ context.Context, accessID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token := uuid.NewString()
	f.sessions[accessID] = token
	return token, nil
}

func (f *fakeSessionManager) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.sessions[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(f.sessions, oldAccessID)
	newID := session.NewAccessID()
	token := uuid.NewString()
	f.sessions[newID] = token
	return newID, token, nil
}

func (f *fakeSessionManager) Revoke(_ context.Context, accessID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, accessID)
	return nil
}

func (f *fakeSessionManager) has(accessID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.sessions[accessID]
	return ok
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "apexbuild-test",
		ExpirationMinutes: 30,
	}
}

func testPasswordConfig() config.PasswordConfig {
	// Light parameters keep hashing fast in tests.
	return config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func newTestService(t *testing.T) (Service, *fakeSessionManager, *gorm.DB) {
	t.Helper()
	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.User{}, &models.Profile{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	sessions := newFakeSessionManager()
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(gdb),
		TxRunner:       gormTxRunner{db: gdb},
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
		PasswordConfig: testPasswordConfig(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, sessions, gdb
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterRequest{
		FullName: "Dana Okafor",
		Email:    "Dana.Okafor@Example.com",
		Password: "correct-horse-battery",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if registered.User.Role != enums.AppRoleClient {
		t.Fatalf("self-signup should be client, got %s", registered.User.Role)
	}
	if registered.User.Email != "dana.okafor@example.com" {
		t.Fatalf("email should be normalized, got %s", registered.User.Email)
	}

	resp, err := svc.Login(ctx, LoginRequest{
		Email:    "dana.okafor@example.com",
		Password: "correct-horse-battery",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.AppRoleClient {
		t.Fatalf("expected client role claim, got %s", claims.Role)
	}
	if claims.ProfileID != registered.User.ID {
		t.Fatal("profile id claim should match the directory record")
	}
	if resp.RefreshToken == "" {
		t.Fatal("expected a refresh token")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	req := RegisterRequest{
		FullName: "Sam Vega",
		Email:    "sam@example.com",
		Password: "a-long-password",
	}
	if _, err := svc.Register(ctx, req); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Register(ctx, req)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("duplicate email should conflict, got %v", err)
	}
}

func TestLoginRejectsBadCredentialsAndInactive(t *testing.T) {
	t.Parallel()

	svc, _, gdb := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterRequest{
		FullName: "Lee Chen",
		Email:    "lee@example.com",
		Password: "a-long-password",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Login(ctx, LoginRequest{Email: "lee@example.com", Password: "wrong"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("wrong password should be unauthorized, got %v", err)
	}
	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("unknown email should be unauthorized, got %v", err)
	}

	if err := gdb.Model(&models.User{}).
		Where("email = ?", "lee@example.com").
		Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err = svc.Login(ctx, LoginRequest{Email: "lee@example.com", Password: "a-long-password"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("inactive account should be unauthorized, got %v", err)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	t.Parallel()

	svc, sessions, _ := newTestService(t)
	ctx := context.Background()

	login, err := svc.Register(ctx, RegisterRequest{
		FullName: "Ana Ruiz",
		Email:    "ana@example.com",
		Password: "a-long-password",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	refreshed, err := svc.Refresh(ctx, RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.AccessToken == login.AccessToken {
		t.Fatal("refresh should mint a new access token")
	}

	// The old pair is spent.
	_, err = svc.Refresh(ctx, RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("reused refresh token should be unauthorized, got %v", err)
	}

	// The new pair works.
	if _, err := svc.Refresh(ctx, RefreshRequest{
		AccessToken:  refreshed.AccessToken,
		RefreshToken: refreshed.RefreshToken,
	}); err != nil {
		t.Fatalf("refresh with new pair: %v", err)
	}

	oldClaims, err := pkgauth.ParseAccessToken(testJWTConfig(), login.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if sessions.has(oldClaims.ID) {
		t.Fatal("old session should be gone after rotation")
	}
}

func TestChangePasswordRevokesSession(t *testing.T) {
	t.Parallel()

	svc, sessions, _ := newTestService(t)
	ctx := context.Background()

	login, err := svc.Register(ctx, RegisterRequest{
		FullName: "Noor Haddad",
		Email:    "noor@example.com",
		Password: "first-password",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), login.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	err = svc.ChangePassword(ctx, claims, ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "second-password",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("wrong current password should be unauthorized, got %v", err)
	}

	if err := svc.ChangePassword(ctx, claims, ChangePasswordRequest{
		CurrentPassword: "first-password",
		NewPassword:     "second-password",
	}); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if sessions.has(claims.ID) {
		t.Fatal("session should be revoked after a password change")
	}

	if _, err := svc.Login(ctx, LoginRequest{Email: "noor@example.com", Password: "first-password"}); err == nil {
		t.Fatal("old password should no longer work")
	}
	if _, err := svc.Login(ctx, LoginRequest{Email: "noor@example.com", Password: "second-password"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}
