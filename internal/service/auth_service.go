package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"finance-tracker/internal/domain"
	"finance-tracker/internal/repository"
)

// AuthService valida credenciales, emite tokens y resuelve tokens a identidades.
type AuthService struct {
	logger *zap.Logger
	users  repository.UserRepository
	hasher *PasswordHasher
	tokens *JWTService
}

func NewAuthService(logger *zap.Logger, users repository.UserRepository, hasher *PasswordHasher, tokens *JWTService) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		logger: logger,
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

// TokenResponse es el cuerpo devuelto por POST /login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

const bearerTokenType = "bearer"

// Authenticate comprueba email y contraseña. Usuario inexistente y contraseña
// incorrecta producen el mismo ErrInvalidCredentials; el estado de la cuenta
// solo se informa despues de validar la contraseña.
func (s *AuthService) Authenticate(ctx context.Context, emailAddr, password string) (domain.Identity, error) {
	if s.users == nil || s.hasher == nil {
		return domain.Identity{}, errors.New("auth service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return domain.Identity{}, ErrInvalidCredentials
	}

	user, err := s.users.GetLatestByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Identity{}, ErrInvalidCredentials
		}
		return domain.Identity{}, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.logger.Error("stored password hash unreadable", zap.String("user_id", user.ID), zap.Error(err))
		return domain.Identity{}, ErrInvalidCredentials
	}
	if !ok {
		return domain.Identity{}, ErrInvalidCredentials
	}

	if user.DeletedAt != nil {
		return domain.Identity{}, ErrAccountDeleted
	}
	if !user.Verified {
		return domain.Identity{}, ErrAccountPendingApproval
	}
	return domain.IdentityOf(user), nil
}

// Login autentica y emite un access token cuyo subject es el email.
func (s *AuthService) Login(ctx context.Context, emailAddr, password string) (TokenResponse, domain.Identity, error) {
	identity, err := s.Authenticate(ctx, emailAddr, password)
	if err != nil {
		return TokenResponse{}, domain.Identity{}, err
	}
	if s.tokens == nil {
		return TokenResponse{}, domain.Identity{}, errors.New("jwt not configured")
	}
	token, err := s.tokens.Issue(identity.Email)
	if err != nil {
		return TokenResponse{}, domain.Identity{}, fmt.Errorf("issue token: %w", err)
	}
	return TokenResponse{AccessToken: token, TokenType: bearerTokenType}, identity, nil
}

// Verify decodifica el token y vuelve a resolver el subject contra el store en
// cada llamada: eliminar la cuenta revoca todos sus tokens sin lista negra.
// Solo cuentas verificadas y tokens emitidos despues de su alta.
func (s *AuthService) Verify(ctx context.Context, token string) (domain.Identity, error) {
	if s.users == nil || s.tokens == nil {
		return domain.Identity{}, errors.New("auth service not configured")
	}

	claims, err := s.tokens.Decode(token)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return domain.Identity{}, ErrInvalidToken
	}

	user, err := s.users.GetByEmail(ctx, normalizeEmail(subject))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Identity{}, ErrUnknownSubject
		}
		return domain.Identity{}, fmt.Errorf("lookup subject: %w", err)
	}
	if !user.Live() || !user.Verified {
		return domain.Identity{}, ErrUnknownSubject
	}
	// El subject es el email: un token anterior al registro actual pertenece a
	// una cuenta previa con el mismo email.
	if claims.IssuedAt == nil || claims.IssuedAt.Time.Before(user.CreatedAt.Truncate(time.Second)) {
		return domain.Identity{}, fmt.Errorf("%w: token predates account", ErrInvalidToken)
	}
	return domain.IdentityOf(user), nil
}
