package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"finance-tracker/internal/domain"
	"finance-tracker/internal/service"
)

const defaultTimeout = 3 * time.Second

// Client resuelve la identidad del llamante delegando en GET /verify-token del
// servicio de autenticacion. Nunca decodifica el token localmente.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient construye el cliente. Un timeout no positivo usa el valor por defecto.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Verify devuelve la identidad asociada al token. Cualquier respuesta distinta
// de 200 es service.ErrInvalidToken; errores de red, timeouts o cuerpos
// ilegibles son service.ErrNetworkUnavailable. Ambos casos deniegan el acceso.
func (c *Client) Verify(ctx context.Context, token string) (domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Identity{}, service.ErrInvalidToken
	}

	endpoint := c.baseURL + "/verify-token?" + url.Values{"token": {token}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: create request: %v", service.ErrNetworkUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("identity authority unreachable", zap.Error(err))
		return domain.Identity{}, fmt.Errorf("%w: %v", service.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: read response: %v", service.ErrNetworkUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return domain.Identity{}, fmt.Errorf("%w: status=%d", service.ErrInvalidToken, resp.StatusCode)
	}

	var identity domain.Identity
	if err := json.Unmarshal(body, &identity); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: unmarshal response: %v", service.ErrNetworkUnavailable, err)
	}
	if identity.UserID == "" || identity.Email == "" {
		return domain.Identity{}, fmt.Errorf("%w: incomplete identity", service.ErrInvalidToken)
	}
	return identity, nil
}
