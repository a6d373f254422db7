package http

import (
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

	"finance-tracker/internal/domain"
	"finance-tracker/internal/relay"
	"finance-tracker/internal/repository"
	"finance-tracker/internal/service"
)

type stubVerifier struct {
	identities map[string]domain.Identity
	err        error
}

func (s *stubVerifier) Verify(_ context.Context, token string) (domain.Identity, error) {
	if s.err != nil {
		return domain.Identity{}, s.err
	}
	identity, ok := s.identities[token]
	if !ok {
		return domain.Identity{}, service.ErrInvalidToken
	}
	return identity, nil
}

type memExpenseRepo struct {
	mu       sync.Mutex
	expenses []domain.Expense
}

func (m *memExpenseRepo) Create(_ context.Context, e domain.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expenses = append(m.expenses, e)
	return nil
}

func (m *memExpenseRepo) ListByUser(_ context.Context, userID string) ([]domain.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Expense{}
	for _, e := range m.expenses {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memExpenseRepo) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.expenses {
		if e.ID == id && e.UserID == userID {
			m.expenses = append(m.expenses[:i], m.expenses[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

type memCategoryRepo struct {
	mu         sync.Mutex
	categories []domain.Category
}

func (m *memCategoryRepo) Create(_ context.Context, c domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.categories {
		if existing.UserID == c.UserID && existing.Name == c.Name {
			return repository.ErrDuplicate
		}
	}
	m.categories = append(m.categories, c)
	return nil
}

func (m *memCategoryRepo) CreateMany(ctx context.Context, categories []domain.Category) error {
	for _, c := range categories {
		_ = m.Create(ctx, c)
	}
	return nil
}

func (m *memCategoryRepo) ListByUser(_ context.Context, userID string) ([]domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Category
	for _, c := range m.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCategoryRepo) Delete(_ context.Context, userID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.categories {
		if c.UserID == userID && c.Name == name {
			m.categories = append(m.categories[:i], m.categories[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func setupLedgerRouter(verifier IdentityVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	ledger := service.NewLedgerService(logger, &memExpenseRepo{}, &memCategoryRepo{}, nil)
	return NewLedgerRouter(logger, NewLedgerHandler(logger, ledger), verifier)
}

func ledgerVerifier() *stubVerifier {
	return &stubVerifier{identities: map[string]domain.Identity{
		"alice-token": {UserID: "alice", Email: "alice@example.com", Role: domain.RoleUser},
		"bob-token":   {UserID: "bob", Email: "bob@example.com", Role: domain.RoleUser},
	}}
}

func TestLedgerHandlerExpenses(t *testing.T) {
	r := setupLedgerRouter(ledgerVerifier())

	rec := performRequest(r, http.MethodPost, "/expense", "alice-token", map[string]any{
		"amount":   "12.50",
		"category": "Food",
		"date":     "2026-01-15",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.Expense
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode expense: %v", err)
	}
	if created.Amount != 12.5 || created.UserID != "alice" || created.Currency != "USD" {
		t.Fatalf("unexpected expense: %+v", created)
	}
	if !created.OccurredAt.Equal(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", created.OccurredAt)
	}

	rec = performRequest(r, http.MethodGet, "/expenses", "bob-token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var bobs []domain.Expense
	if err := json.Unmarshal(rec.Body.Bytes(), &bobs); err != nil {
		t.Fatalf("decode expenses: %v", err)
	}
	if len(bobs) != 0 {
		t.Fatalf("expected bob to see no expenses, got %+v", bobs)
	}

	rec = performRequest(r, http.MethodDelete, "/expenses/"+created.ID, "bob-token", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 deleting another user's expense, got %d", rec.Code)
	}
	rec = performRequest(r, http.MethodDelete, "/expenses/"+created.ID, "alice-token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestLedgerHandlerCreateExpense_Invalid(t *testing.T) {
	r := setupLedgerRouter(ledgerVerifier())
	cases := map[string]map[string]any{
		"missing category": {"amount": 10},
		"negative amount":  {"amount": -3, "category": "Food"},
		"bad amount":       {"amount": "abc", "category": "Food"},
		"bad date":         {"amount": 3, "category": "Food", "date": "yesterday"},
		"nan amount":       {"amount": "NaN", "category": "Food"},
		"inf amount":       {"amount": "Inf", "category": "Food"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := performRequest(r, http.MethodPost, "/expense", "alice-token", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rec.Code)
			}
		})
	}

	rec := performRequest(r, http.MethodGet, "/expenses", "alice-token", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "[]" {
		t.Fatalf("expected empty listing, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestLedgerHandlerCategories(t *testing.T) {
	r := setupLedgerRouter(ledgerVerifier())

	rec := performRequest(r, http.MethodPost, "/categories", "alice-token", map[string]string{"category": "Travel"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}
	rec = performRequest(r, http.MethodPost, "/categories", "alice-token", map[string]string{"category": "Travel"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for duplicate, got %d", rec.Code)
	}

	rec = performRequest(r, http.MethodGet, "/categories", "alice-token", nil)
	var names []string
	if err := json.Unmarshal(rec.Body.Bytes(), &names); err != nil {
		t.Fatalf("decode categories: %v", err)
	}
	if len(names) != 1 || names[0] != "Travel" {
		t.Fatalf("unexpected categories: %+v", names)
	}

	rec = performRequest(r, http.MethodDelete, "/categories/Travel", "bob-token", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for another user's category, got %d", rec.Code)
	}
	rec = performRequest(r, http.MethodDelete, "/categories/Travel", "alice-token", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestLedgerRouter_RequiresToken(t *testing.T) {
	r := setupLedgerRouter(ledgerVerifier())

	rec := performRequest(r, http.MethodGet, "/expenses", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without token, got %d", rec.Code)
	}
	rec = performRequest(r, http.MethodGet, "/expenses", "unknown-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for rejected token, got %d", rec.Code)
	}
	rec = performRequest(r, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected health to be public, got %d", rec.Code)
	}
}

func TestLedgerRouter_FailsClosedWhenAuthorityUnreachable(t *testing.T) {
	authority := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	baseURL := authority.URL
	authority.Close()

	r := setupLedgerRouter(relay.NewClient(baseURL, 500*time.Millisecond, zap.NewNop()))
	rec := performRequest(r, http.MethodGet, "/expenses", "any-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 when authority is down, got %d", rec.Code)
	}
}

func TestLedgerRouter_RelayEndToEnd(t *testing.T) {
	f := newAuthFixture(t, nil)
	f.seed(t, "u1", "user@example.com", "secret", true, domain.RoleUser)
	token := f.login(t, "user@example.com", "secret")

	authority := httptest.NewServer(f.router)
	defer authority.Close()

	r := setupLedgerRouter(relay.NewClient(authority.URL, time.Second, zap.NewNop()))
	rec := performRequest(r, http.MethodPost, "/categories", token, map[string]string{"category": "Food"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201 through relay, got %d: %s", rec.Code, rec.Body.String())
	}

	if err := f.repo.SoftDelete(context.Background(), "u1", time.Now().UTC()); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	rec = performRequest(r, http.MethodGet, "/categories", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 after deletion, got %d", rec.Code)
	}
}
