package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"finance-tracker/internal/domain"
	"finance-tracker/internal/repository"
)

// LedgerService gestiona gastos y categorias; todo queda acotado al userID
// del llamante.
type LedgerService struct {
	logger            *zap.Logger
	expenses          repository.ExpenseRepository
	categories        repository.CategoryRepository
	defaultCategories []string
}

func NewLedgerService(logger *zap.Logger, expenses repository.ExpenseRepository, categories repository.CategoryRepository, defaultCategories []string) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		logger:            logger,
		expenses:          expenses,
		categories:        categories,
		defaultCategories: defaultCategories,
	}
}

type CreateExpenseInput struct {
	Amount      float64
	Currency    string
	Category    string
	Description string
	Type        string
	OccurredAt  time.Time
}

func (s *LedgerService) CreateExpense(ctx context.Context, owner domain.Identity, input CreateExpenseInput) (domain.Expense, error) {
	category := strings.TrimSpace(input.Category)
	if category == "" || !validAmount(input.Amount) {
		return domain.Expense{}, ErrInvalidInput
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "USD"
	}
	kind := strings.ToLower(strings.TrimSpace(input.Type))
	if kind == "" {
		kind = "expense"
	}
	if kind != "expense" && kind != "income" {
		return domain.Expense{}, ErrInvalidInput
	}
	now := time.Now().UTC()
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}

	expense := domain.Expense{
		ID:          uuid.NewString(),
		UserID:      owner.UserID,
		Amount:      input.Amount,
		Currency:    currency,
		Category:    category,
		Description: strings.TrimSpace(input.Description),
		Type:        kind,
		OccurredAt:  occurredAt.UTC(),
		CreatedAt:   now,
	}
	if err := s.expenses.Create(ctx, expense); err != nil {
		return domain.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return expense, nil
}

// validAmount exige un importe positivo y finito; NaN o Inf no se pueden
// serializar en JSON.
func validAmount(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (s *LedgerService) ListExpenses(ctx context.Context, owner domain.Identity) ([]domain.Expense, error) {
	return s.expenses.ListByUser(ctx, owner.UserID)
}

func (s *LedgerService) DeleteExpense(ctx context.Context, owner domain.Identity, id string) error {
	if err := s.expenses.Delete(ctx, owner.UserID, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

func (s *LedgerService) CreateCategory(ctx context.Context, owner domain.Identity, name string) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, ErrInvalidInput
	}
	category := domain.Category{UserID: owner.UserID, Name: name, CreatedAt: time.Now().UTC()}
	if err := s.categories.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.Category{}, ErrDuplicateCategory
		}
		return domain.Category{}, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

func (s *LedgerService) ListCategories(ctx context.Context, owner domain.Identity) ([]domain.Category, error) {
	return s.categories.ListByUser(ctx, owner.UserID)
}

func (s *LedgerService) DeleteCategory(ctx context.Context, owner domain.Identity, name string) error {
	if err := s.categories.Delete(ctx, owner.UserID, strings.TrimSpace(name)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// MaterializeProfile siembra las categorias por defecto de un usuario recien
// aprobado. Es idempotente: reprocesar el evento no duplica categorias.
func (s *LedgerService) MaterializeProfile(ctx context.Context, event domain.UserApprovedEvent) error {
	if strings.TrimSpace(event.UserID) == "" {
		return ErrInvalidInput
	}
	if len(s.defaultCategories) == 0 {
		return nil
	}
	now := time.Now().UTC()
	categories := make([]domain.Category, 0, len(s.defaultCategories))
	for _, name := range s.defaultCategories {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		categories = append(categories, domain.Category{UserID: event.UserID, Name: name, CreatedAt: now})
	}
	if err := s.categories.CreateMany(ctx, categories); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	s.logger.Info("ledger profile materialized", zap.String("user_id", event.UserID), zap.Int("categories", len(categories)))
	return nil
}
