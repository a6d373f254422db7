package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"finance-tracker/internal/domain"
	"finance-tracker/internal/email"
	"finance-tracker/internal/repository"
)

// UserService coordina la gestion de contraseñas y el alta del administrador.
type UserService struct {
	logger       *zap.Logger
	users        repository.UserRepository
	hasher       *PasswordHasher
	emailSender  email.Sender
	resetTokens  ResetTokenStore
	resetLimiter RateLimiter
	resetTTL     time.Duration
	resetBaseURL string
}

// UserServiceOptions agrupa las dependencias opcionales de UserService.
type UserServiceOptions struct {
	EmailSender  email.Sender
	ResetTokens  ResetTokenStore
	ResetLimiter RateLimiter
	ResetTTL     time.Duration
	ResetBaseURL string
}

const defaultResetTTL = 30 * time.Minute

func NewUserService(logger *zap.Logger, users repository.UserRepository, hasher *PasswordHasher, opts UserServiceOptions) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.EmailSender == nil {
		opts.EmailSender = email.NewLogSender(logger)
	}
	if opts.ResetTokens == nil {
		opts.ResetTokens = NewMemoryResetTokenStore()
	}
	if opts.ResetLimiter == nil {
		opts.ResetLimiter = NewMemoryRateLimiter(10*time.Minute, 3)
	}
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = defaultResetTTL
	}
	return &UserService{
		logger:       logger,
		users:        users,
		hasher:       hasher,
		emailSender:  opts.EmailSender,
		resetTokens:  opts.ResetTokens,
		resetLimiter: opts.ResetLimiter,
		resetTTL:     opts.ResetTTL,
		resetBaseURL: opts.ResetBaseURL,
	}
}

// EnsureAdmin crea la cuenta de administrador ya verificada si todavia no
// existe un registro vivo con ese email.
func (s *UserService) EnsureAdmin(ctx context.Context, emailAddr, password string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return nil
	}
	if _, err := s.users.GetByEmail(ctx, emailAddr); err == nil {
		return nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	admin := domain.User{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		PasswordHash: hash,
		Verified:     true,
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil
		}
		return fmt.Errorf("create admin: %w", err)
	}
	s.logger.Info("admin account created", zap.String("email", emailAddr))
	return nil
}

// ChangePassword actualiza la contraseña del usuario autenticado. El email del
// cuerpo debe coincidir con el del token.
func (s *UserService) ChangePassword(ctx context.Context, caller domain.Identity, emailAddr, newPassword string) error {
	if normalizeEmail(emailAddr) != normalizeEmail(caller.Email) {
		return ErrForbidden
	}
	if newPassword == "" {
		return ErrEmptyPassword
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, caller.UserID, hash, time.Now().UTC()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUnknownSubject
		}
		return fmt.Errorf("update password: %w", err)
	}
	s.logger.Info("password updated", zap.String("user_id", caller.UserID))
	return nil
}

// DeleteUser elimina logicamente una cuenta. Solo administradores. Los tokens
// emitidos para la cuenta dejan de verificar en la siguiente llamada.
func (s *UserService) DeleteUser(ctx context.Context, caller domain.Identity, userID string) error {
	if !caller.IsAdmin() {
		return ErrForbidden
	}
	if strings.TrimSpace(userID) == "" {
		return ErrNotFound
	}
	if err := s.users.SoftDelete(ctx, userID, time.Now().UTC()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.Info("user deleted", zap.String("user_id", userID), zap.String("admin", caller.Email))
	return nil
}

// ForgotPassword genera un token de restablecimiento y entrega el enlace por
// el Sender configurado.
func (s *UserService) ForgotPassword(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return ErrInvalidEmail
	}
	if !s.resetLimiter.Allow(ctx, emailAddr) {
		return ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	token, err := generateResetToken()
	if err != nil {
		return err
	}
	expiresAt := time.Now().UTC().Add(s.resetTTL)
	if err := s.resetTokens.Store(ctx, token, user.ID, s.resetTTL); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if err := s.emailSender.SendPasswordReset(ctx, user.Email, s.resetLink(token), expiresAt); err != nil {
		s.logger.Warn("send password reset failed", zap.Error(err), zap.String("email", user.Email))
		return fmt.Errorf("send reset link: %w", err)
	}
	return nil
}

// ResetPassword consume el token de restablecimiento y fija la nueva contraseña.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}
	if newPassword == "" {
		return ErrEmptyPassword
	}

	userID, err := s.resetTokens.Consume(ctx, token)
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if userID == "" {
		return ErrInvalidToken
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash, time.Now().UTC()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidToken
		}
		return fmt.Errorf("update password: %w", err)
	}
	s.logger.Info("password reset completed", zap.String("user_id", userID))
	return nil
}

func (s *UserService) resetLink(token string) string {
	base := s.resetBaseURL
	if base == "" {
		return token
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token)
}

func generateResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// normalizeEmail fija la politica de emails: sin espacios y en minusculas.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}
