package mail

import (
	"context"

	"github.com/nkiryanov/videoroom/internal/logger"
)

// Deliver registration token to the user out of band
type Sender interface {
	SendRegToken(ctx context.Context, email string, token string) error
}

// Sender that delivers nothing. Used until real delivery is configured
type NoMail struct {
	logger logger.Logger
}

func NewNoMail(l logger.Logger) *NoMail {
	if l == nil {
		l = logger.NewNoOpLogger()
	}
	return &NoMail{logger: l}
}

func (m *NoMail) SendRegToken(_ context.Context, email string, _ string) error {
	m.logger.Debug("Registration mail delivery skipped", "email", email)
	return nil
}
