package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"finance-tracker/internal/config"
)

// JWTService emite y valida tokens firmados con HS256. El keyring es inmutable
// despues de construido; se firma siempre con la clave activa y se acepta
// cualquier clave del keyring por su kid.
type JWTService struct {
	keys      map[string][]byte
	activeKID string
	issuer    string
	ttl       time.Duration
	now       func() time.Time
}

// Claims es el conjunto de claims del token; el subject es el email.
type Claims struct {
	jwt.RegisteredClaims
}

var (
	ErrJWTInvalid = errors.New("jwt invalid")
	ErrJWTExpired = errors.New("jwt expired")
)

// NewJWTService construye el codec. Un ttl igual a cero emite tokens sin exp.
func NewJWTService(keys []config.SigningKey, activeKID, issuer string, ttl time.Duration) (*JWTService, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: empty keyring", config.ErrInvalidSigningKeys)
	}
	ring := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if k.ID == "" || len(k.Secret) == 0 {
			return nil, fmt.Errorf("%w: empty kid or secret", config.ErrInvalidSigningKeys)
		}
		ring[k.ID] = append([]byte(nil), k.Secret...)
	}
	if _, ok := ring[activeKID]; !ok {
		return nil, fmt.Errorf("%w: active kid %q not in keyring", config.ErrInvalidSigningKeys, activeKID)
	}
	if ttl < 0 {
		ttl = 0
	}
	return &JWTService{
		keys:      ring,
		activeKID: activeKID,
		issuer:    issuer,
		ttl:       ttl,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Issue firma un token para el subject indicado.
func (s *JWTService) Issue(subject string) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", ErrJWTInvalid
	}
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   s.issuer,
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = s.activeKID
	return token.SignedString(s.keys[s.activeKID])
}

// Decode valida firma, algoritmo, emisor y expiracion. Devuelve ErrJWTExpired
// o ErrJWTInvalid; nunca entra en panico ante entradas malformadas.
func (s *JWTService) Decode(tokenString string) (Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrJWTInvalid
	}
	var claims Claims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	parser := jwt.NewParser(opts...)
	_, err := parser.ParseWithClaims(tokenString, &claims, s.keyFor)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrJWTExpired
		}
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

// keyFor elige la clave por kid; tokens sin kid se validan con la clave activa.
func (s *JWTService) keyFor(token *jwt.Token) (any, error) {
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return s.keys[s.activeKID], nil
	}
	key, ok := s.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown kid %q", kid)
	}
	return key, nil
}
