package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"finance-tracker/internal/domain"
	"finance-tracker/internal/repository"
)

// mockUserRepo reproduce en memoria el indice unico parcial sobre email.
type mockUserRepo struct {
	mu        sync.Mutex
	usersByID map[string]domain.User
	getErr    error
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
	if m.getErr != nil {
		return domain.User{}, m.getErr
	}
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.User{}, m.getErr
	}
	for _, u := range m.usersByID {
		if u.Email == email && u.DeletedAt == nil {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *mockUserRepo) GetLatestByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.User{}, m.getErr
	}
	var latest *domain.User
	for _, u := range m.usersByID {
		if u.Email != email {
			continue
		}
		if u.DeletedAt == nil {
			return u, nil
		}
		if latest == nil || u.DeletedAt.After(*latest.DeletedAt) {
			candidate := u
			latest = &candidate
		}
	}
	if latest == nil {
		return domain.User{}, pgx.ErrNoRows
	}
	return *latest, nil
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

type mockNotifier struct {
	mu     sync.Mutex
	events []domain.UserApprovedEvent
	err    error
}

func (m *mockNotifier) UserApproved(_ context.Context, event domain.UserApprovedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.err
}

type mockEmailSender struct {
	lastTo      string
	lastLink    string
	lastExpires time.Time
	err         error
}

func (m *mockEmailSender) SendPasswordReset(_ context.Context, toEmail string, link string, expiresAt time.Time) error {
	m.lastTo = toEmail
	m.lastLink = link
	m.lastExpires = expiresAt
	return m.err
}

var errStoreDown = errors.New("store down")

func testHasher() *PasswordHasher {
	return NewPasswordHasher(4)
}
