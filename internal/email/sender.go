package email

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sender define la interfaz para envio de enlaces de restablecimiento.
type Sender interface {
	SendPasswordReset(ctx context.Context, toEmail string, link string, expiresAt time.Time) error
}

// logSender simula el envio: registra el enlace en el log en lugar de mandarlo.
type logSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logSender{logger: logger}
}

func (s *logSender) SendPasswordReset(_ context.Context, toEmail string, link string, expiresAt time.Time) error {
	s.logger.Info("password reset link generated",
		zap.String("email", toEmail),
		zap.String("link", link),
		zap.Time("expires_at", expiresAt),
	)
	return nil
}
