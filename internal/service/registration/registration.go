package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/videoroom/internal/apperrors"
	"github.com/nkiryanov/videoroom/internal/logger"
	"github.com/nkiryanov/videoroom/internal/models"
	"github.com/nkiryanov/videoroom/internal/repository"
	"github.com/nkiryanov/videoroom/internal/service/mail"
)

const DefaultTokenTTL = 900 * time.Second

// Completes registration for the accepted token
// Returned false means registration was not completed and the token is rejected
type Finalizer interface {
	FinalizeSignup(ctx context.Context, tokenID int64) (bool, error)
}

// Finalizer that accepts every valid token and changes nothing
type AcceptAll struct{}

func (AcceptAll) FinalizeSignup(context.Context, int64) (bool, error) {
	return true, nil
}

// Registration service with sensible defaults
type Config struct {
	// How long issued token is valid
	// If not set than DefaultTokenTTL is used
	TokenTTL time.Duration

	// Reject token after first successful check
	// By default token may be checked any times until it expires
	SingleUse bool

	// Clock, time.Now if not set
	Now func() time.Time
}

type Service struct {
	ttl       time.Duration
	singleUse bool
	now       func() time.Time

	storage   repository.Storage
	mailer    mail.Sender
	finalizer Finalizer
	logger    logger.Logger
}

// rollback marker: finalizer rejected the token, so keep it unused
var errNotFinalized = errors.New("registration not finalized")

func New(cfg Config, storage repository.Storage, mailer mail.Sender, finalizer Finalizer, l logger.Logger) (*Service, error) {
	if storage == nil {
		return nil, errors.New("storage must not be nil")
	}

	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}
	if mailer == nil {
		mailer = mail.NewNoMail(l)
	}
	if finalizer == nil {
		finalizer = AcceptAll{}
	}

	return &Service{
		ttl:       cfg.TokenTTL,
		singleUse: cfg.SingleUse,
		now:       cfg.Now,
		storage:   storage,
		mailer:    mailer,
		finalizer: finalizer,
		logger:    l,
	}, nil
}

// Issue new registration token for email and send it to the user
func (s *Service) RequestSignup(ctx context.Context, email string) (models.RegToken, error) {
	// pg keeps microseconds only
	now := s.now().Truncate(time.Microsecond)

	token, err := s.storage.RegToken().Create(ctx, models.RegToken{
		Email:     email,
		Token:     uuid.NewString(),
		CreatedAt: now,
		ExpiredAt: now.Add(s.ttl),
	})
	if err != nil {
		return token, fmt.Errorf("error while saving registration token. Err: %w", err)
	}

	err = s.mailer.SendRegToken(ctx, email, token.Token)
	if err != nil {
		return token, fmt.Errorf("error while sending registration token. Err: %w", err)
	}

	s.logger.Info("Registration token issued", "token_id", token.ID, "expired_at", token.ExpiredAt)
	return token, nil
}

// Check token and finalize registration if it is still valid
// Unknown, expired (or used for single-use tokens) token is not an error: false returned
func (s *Service) CheckSignup(ctx context.Context, tokenString string) (bool, error) {
	if !s.singleUse {
		return s.checkSignup(ctx, s.storage, tokenString)
	}

	var ok bool
	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		var err error
		ok, err = s.checkSignup(ctx, st, tokenString)
		if err == nil && !ok {
			return errNotFinalized
		}
		return err
	})

	switch {
	case errors.Is(err, errNotFinalized):
		return false, nil
	case err != nil:
		return false, err
	default:
		return ok, nil
	}
}

func (s *Service) checkSignup(ctx context.Context, st repository.Storage, tokenString string) (bool, error) {
	tokens, err := st.RegToken().ListByToken(ctx, tokenString)
	if err != nil {
		return false, fmt.Errorf("error while looking up registration token. Err: %w", err)
	}

	now := s.now()
	for _, token := range tokens {
		if token.IsExpired(now) {
			continue
		}

		if s.singleUse {
			_, err := st.RegToken().MarkUsed(ctx, token.ID)
			switch {
			case errors.Is(err, apperrors.ErrRegTokenIsUsed):
				s.logger.Debug("Registration token is used already", "token_id", token.ID)
				return false, nil
			case err != nil:
				return false, fmt.Errorf("error while marking registration token used. Err: %w", err)
			}
		}

		return s.FinalizeSignup(ctx, token.ID)
	}

	s.logger.Debug("Registration token not found or expired", "matched", len(tokens))
	return false, nil
}

// Finalize registration bound to the token
func (s *Service) FinalizeSignup(ctx context.Context, tokenID int64) (bool, error) {
	ok, err := s.finalizer.FinalizeSignup(ctx, tokenID)
	if err != nil {
		return false, fmt.Errorf("error while finalizing registration. Err: %w", err)
	}

	s.logger.Info("Registration checked", "token_id", tokenID, "finalized", ok)
	return ok, nil
}
