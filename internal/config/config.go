package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// AuthConfig centraliza la configuración del servicio de autenticación.
type AuthConfig struct {
	HTTPPort      string        `env:"HTTP_PORT" envDefault:"8002"`
	DatabaseURL   string        `env:"DATABASE_URL,required"`
	SigningKeys   string        `env:"JWT_SIGNING_KEYS,required,notEmpty"`
	ActiveKeyID   string        `env:"JWT_ACTIVE_KID"`
	TokenIssuer   string        `env:"JWT_ISSUER" envDefault:"finance-tracker-auth"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"0s"`
	AdminEmail    string        `env:"ADMIN_EMAIL"`
	AdminPassword string        `env:"ADMIN_PASSWORD"`
	BcryptCost    int           `env:"BCRYPT_COST" envDefault:"10"`
	ResetTokenTTL time.Duration `env:"RESET_TOKEN_TTL" envDefault:"30m"`
	ResetBaseURL  string        `env:"RESET_BASE_URL" envDefault:"http://127.0.0.1:5173/reset-password"`
	SMTPHost      string        `env:"SMTP_HOST"`
	SMTPPort      int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser      string        `env:"SMTP_USER"`
	SMTPPass      string        `env:"SMTP_PASS"`
	SMTPFrom      string        `env:"SMTP_FROM"`
	SMTPFromName  string        `env:"SMTP_FROM_NAME"`
	SMTPUseTLS    bool          `env:"SMTP_USE_TLS" envDefault:"false"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	KafkaBrokers  []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic    string        `env:"KAFKA_APPROVALS_TOPIC" envDefault:"user.approved"`
}

// LedgerConfig centraliza la configuración del servicio de gastos.
type LedgerConfig struct {
	HTTPPort          string        `env:"HTTP_PORT" envDefault:"8001"`
	DatabaseURL       string        `env:"DATABASE_URL,required"`
	AuthServiceURL    string        `env:"AUTH_SERVICE_URL" envDefault:"http://127.0.0.1:8002"`
	AuthVerifyTimeout time.Duration `env:"AUTH_VERIFY_TIMEOUT" envDefault:"3s"`
	DefaultCategories []string      `env:"DEFAULT_CATEGORIES" envSeparator:"," envDefault:"Food,Transport,Housing,Utilities,Entertainment"`
	KafkaBrokers      []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic        string        `env:"KAFKA_APPROVALS_TOPIC" envDefault:"user.approved"`
	KafkaGroupID      string        `env:"KAFKA_GROUP_ID" envDefault:"ledger-service"`
}

// SigningKey es una clave HMAC con su identificador de version.
type SigningKey struct {
	ID     string
	Secret []byte
}

var ErrInvalidSigningKeys = errors.New("invalid signing keys")

// LoadAuthConfig carga la configuración desde variables de entorno.
func LoadAuthConfig() (*AuthConfig, error) {
	var cfg AuthConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadLedgerConfig carga la configuración desde variables de entorno.
func LoadLedgerConfig() (*LedgerConfig, error) {
	var cfg LedgerConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Keyring interpreta JWT_SIGNING_KEYS ("kid:secret,kid2:secret2") y devuelve
// las claves junto con el kid activo. Si JWT_ACTIVE_KID esta vacio se usa la
// primera clave de la lista.
func (c *AuthConfig) Keyring() ([]SigningKey, string, error) {
	keys, err := ParseSigningKeys(c.SigningKeys)
	if err != nil {
		return nil, "", err
	}
	active := strings.TrimSpace(c.ActiveKeyID)
	if active == "" {
		return keys, keys[0].ID, nil
	}
	for _, k := range keys {
		if k.ID == active {
			return keys, active, nil
		}
	}
	return nil, "", fmt.Errorf("%w: active kid %q not in keyring", ErrInvalidSigningKeys, active)
}

func ParseSigningKeys(raw string) ([]SigningKey, error) {
	var keys []SigningKey
	seen := make(map[string]struct{})
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		kid, secret, ok := strings.Cut(entry, ":")
		kid = strings.TrimSpace(kid)
		secret = strings.TrimSpace(secret)
		if !ok || kid == "" || secret == "" {
			return nil, fmt.Errorf("%w: entry must be kid:secret", ErrInvalidSigningKeys)
		}
		if _, dup := seen[kid]; dup {
			return nil, fmt.Errorf("%w: duplicate kid %q", ErrInvalidSigningKeys, kid)
		}
		seen[kid] = struct{}{}
		keys = append(keys, SigningKey{ID: kid, Secret: []byte(secret)})
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: keyring is empty", ErrInvalidSigningKeys)
	}
	return keys, nil
}
