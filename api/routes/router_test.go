package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/apexbuild/apexbuild-backend/internal/contact"
	"github.com/apexbuild/apexbuild-backend/internal/team"
	"github.com/apexbuild/apexbuild-backend/internal/users"
	pkgauth "github.com/apexbuild/apexbuild-backend/pkg/auth"
	"github.com/apexbuild/apexbuild-backend/pkg/auth/session"
	"github.com/apexbuild/apexbuild-backend/pkg/config"
	"github.com/apexbuild/apexbuild-backend/pkg/db/models"
	"github.com/apexbuild/apexbuild-backend/pkg/enums"
	"github.com/apexbuild/apexbuild-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubContactService struct{}

func (stubContactService) SubmitMessage(ctx context.Context, input contact.MessageInput) (*models.ContactMessage, error) {
	return &models.ContactMessage{ID: uuid.New(), Name: input.Name, Email: input.Email}, nil
}

func (stubContactService) ListMessages(ctx context.Context, filters contact.MessageFilters) ([]models.ContactMessage, error) {
	return []models.ContactMessage{}, nil
}

func (stubContactService) MarkHandled(ctx context.Context, messageID uuid.UUID) error {
	return nil
}

func (stubContactService) Subscribe(ctx context.Context, email string) (*models.NewsletterSubscriber, error) {
	return &models.NewsletterSubscriber{ID: uuid.New(), Email: email}, nil
}

type stubTeamService struct{}

func (stubTeamService) Invite(ctx context.Context, input team.InviteInput) (*team.InviteResult, error) {
	panic("unimplemented")
}

func (stubTeamService) UpdateRole(ctx context.Context, profileID uuid.UUID, role enums.AppRole) (*models.Profile, error) {
	panic("unimplemented")
}

func (stubTeamService) UpdateProfile(ctx context.Context, profileID uuid.UUID, input team.ProfileUpdateInput) (*models.Profile, error) {
	panic("unimplemented")
}

func (stubTeamService) SetActive(ctx context.Context, profileID uuid.UUID, active bool) error {
	return nil
}

func (stubTeamService) Get(ctx context.Context, profileID uuid.UUID) (*models.Profile, error) {
	panic("unimplemented")
}

func (stubTeamService) List(ctx context.Context, filters users.ProfileFilters) ([]models.Profile, error) {
	return []models.Profile{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "router-test-secret",
			Issuer:            "apexbuild-test",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		nil, // redis rate-limit store; policies are disabled in tests
		stubSessionChecker{},
		nil, // prometheus registry
		Services{
			Team:    stubTeamService{},
			Contact: stubContactService{},
		},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.AppRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID:    uuid.New(),
		ProfileID: uuid.New(),
		Role:      role,
		JTI:       session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveAlwaysUp(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestTeamGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	engineer := httptest.NewRequest(http.MethodGet, "/api/v1/team", nil)
	engineer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.AppRoleEngineer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, engineer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/v1/team", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.AppRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestPublicContactRejectsBadPayload(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/public/contact", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload got %d", resp.Code)
	}
}

func TestPublicContactAcceptsSubmission(t *testing.T) {
	router := newTestRouter(testConfig())
	body := `{"name":"Dana Smith","email":"dana@example.com","message":"Need a quote for a warehouse build."}`
	req := httptest.NewRequest(http.MethodPost, "/api/public/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for valid submission got %d", resp.Code)
	}
}

func TestStaffRouteRejectsClientRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.AppRoleClient))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for client create got %d", resp.Code)
	}
}
