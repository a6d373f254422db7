package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"finance-tracker/internal/domain"
	"finance-tracker/internal/repository"
)

// ApprovalNotifier avisa a otros servicios que un usuario fue aprobado.
type ApprovalNotifier interface {
	UserApproved(ctx context.Context, event domain.UserApprovedEvent) error
}

type noopNotifier struct{}

func (noopNotifier) UserApproved(context.Context, domain.UserApprovedEvent) error { return nil }

// RegistrationService implementa el flujo de alta con aprobacion de un
// administrador: Requested -> Active | Rejected.
type RegistrationService struct {
	logger     *zap.Logger
	users      repository.UserRepository
	hasher     *PasswordHasher
	notifier   ApprovalNotifier
	adminEmail string
	now        func() time.Time
}

func NewRegistrationService(logger *zap.Logger, users repository.UserRepository, hasher *PasswordHasher, notifier ApprovalNotifier, adminEmail string) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &RegistrationService{
		logger:     logger,
		users:      users,
		hasher:     hasher,
		notifier:   notifier,
		adminEmail: normalizeEmail(adminEmail),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Register crea un registro pendiente. La unicidad del email la garantiza el
// indice unico del store; la consulta previa solo evita hashear en vano.
func (s *RegistrationService) Register(ctx context.Context, emailAddr, password string) (domain.User, error) {
	if s.users == nil || s.hasher == nil {
		return domain.User{}, errors.New("registration service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	if !isValidEmail(emailAddr) {
		return domain.User{}, ErrInvalidEmail
	}
	if password == "" {
		return domain.User{}, ErrEmptyPassword
	}

	if _, err := s.users.GetByEmail(ctx, emailAddr); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.User{}, err
	}

	role := domain.RoleUser
	if s.adminEmail != "" && emailAddr == s.adminEmail {
		role = domain.RoleAdmin
	}

	now := s.now()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		PasswordHash: hash,
		Verified:     false,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered, pending approval", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return user, nil
}

// ListPending devuelve los registros pendientes. Solo administradores.
func (s *RegistrationService) ListPending(ctx context.Context, caller domain.Identity) ([]domain.PendingUser, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	users, err := s.users.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	pending := make([]domain.PendingUser, 0, len(users))
	for _, u := range users {
		pending = append(pending, domain.PendingUser{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt})
	}
	return pending, nil
}

// Decide aprueba o rechaza un registro pendiente. Solo administradores.
// La aprobacion es durable antes de notificar; un fallo al notificar se
// registra y no revierte la aprobacion.
func (s *RegistrationService) Decide(ctx context.Context, caller domain.Identity, userID string, approve bool) error {
	if !caller.IsAdmin() {
		return ErrForbidden
	}
	if userID == "" {
		return ErrNotFound
	}

	if !approve {
		if err := s.users.DeletePending(ctx, userID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("reject user: %w", err)
		}
		s.logger.Info("pending user rejected", zap.String("user_id", userID), zap.String("admin", caller.Email))
		return nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	approvedAt := s.now()
	if err := s.users.MarkVerified(ctx, userID, approvedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("approve user: %w", err)
	}
	s.logger.Info("pending user approved", zap.String("user_id", userID), zap.String("admin", caller.Email))

	// La aprobacion ya es durable; la notificacion no depende de que el
	// cliente siga conectado.
	event := domain.UserApprovedEvent{UserID: user.ID, Email: user.Email, ApprovedAt: approvedAt}
	if err := s.notifier.UserApproved(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("approval notification failed", zap.String("user_id", userID), zap.Error(err))
	}
	return nil
}
