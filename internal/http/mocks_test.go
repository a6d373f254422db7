package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"finance-tracker/internal/config"
	"finance-tracker/internal/domain"
	"finance-tracker/internal/repository"
	"finance-tracker/internal/service"
)

type mockUserRepo struct {
	mu        sync.Mutex
	usersByID map[string]domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{usersByID: make(map[string]domain.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.usersByID {
		if u.Email == user.Email && u.DeletedAt == nil {
			return repository.ErrDuplicate
		}
	}
	m.usersByID[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.usersByID {
		if u.Email == email && u.DeletedAt == nil {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *mockUserRepo) GetLatestByEmail(ctx context.Context, email string) (domain.User, error) {
	if user, err := m.GetByEmail(ctx, email); err == nil {
		return user, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.usersByID {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *mockUserRepo) ListPending(_ context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []domain.User
	for _, u := range m.usersByID {
		if !u.Verified && u.DeletedAt == nil {
			users = append(users, u)
		}
	}
	return users, nil
}

func (m *mockUserRepo) MarkVerified(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok || user.Verified || user.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	user.Verified = true
	user.UpdatedAt = at
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) DeletePending(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok || user.Verified || user.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	delete(m.usersByID, id)
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, passwordHash string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok || user.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = at
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok || user.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	user.DeletedAt = &at
	m.usersByID[id] = user
	return nil
}

type mockEmailSender struct {
	lastTo   string
	lastLink string
	err      error
}

func (m *mockEmailSender) SendPasswordReset(_ context.Context, toEmail string, link string, _ time.Time) error {
	m.lastTo = toEmail
	m.lastLink = link
	return m.err
}

type mockLimiter struct {
	allow bool
}

func (m *mockLimiter) Allow(_ context.Context, _ string) bool {
	return m.allow
}

// authFixture arma el router del servicio de autenticacion con servicios reales
// sobre repositorios en memoria.
type authFixture struct {
	repo   *mockUserRepo
	sender *mockEmailSender
	hasher *service.PasswordHasher
	auth   *service.AuthService
	router *gin.Engine
}

func newAuthFixture(t *testing.T, limiter service.RateLimiter) *authFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newMockUserRepo()
	sender := &mockEmailSender{}
	hasher := service.NewPasswordHasher(4)
	tokens, err := service.NewJWTService([]config.SigningKey{{ID: "test", Secret: []byte("test-secret")}}, "test", "test-issuer", time.Hour)
	if err != nil {
		t.Fatalf("new jwt service: %v", err)
	}

	logger := zap.NewNop()
	authSvc := service.NewAuthService(logger, repo, hasher, tokens)
	registration := service.NewRegistrationService(logger, repo, hasher, nil, "admin@example.com")
	userSvc := service.NewUserService(logger, repo, hasher, service.UserServiceOptions{
		EmailSender:  sender,
		ResetLimiter: limiter,
	})

	router := NewAuthRouter(logger, NewAuthHandler(logger, authSvc, registration), NewUserHandler(logger, userSvc), authSvc)
	return &authFixture{repo: repo, sender: sender, hasher: hasher, auth: authSvc, router: router}
}

func (f *authFixture) seed(t *testing.T, id, email, password string, verified bool, role domain.Role) {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	now := time.Now().UTC()
	if err := f.repo.Create(context.Background(), domain.User{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		Verified:     verified,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func (f *authFixture) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := performRequest(f.router, http.MethodPost, "/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected status 200, got %d: %s", email, rec.Code, rec.Body.String())
	}
	var resp service.TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.AccessToken
}

func performRequest(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}
