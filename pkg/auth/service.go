// Package auth implements the credential verifier: local login, Google
// federated login, refresh-token exchange and the password-reset request
// flow. Every success path ends in token issuance; every failure maps to a
// stable domain error.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wardenhq/warden/pkg/apperr"
	"github.com/wardenhq/warden/pkg/identity"
	"github.com/wardenhq/warden/pkg/mail"
	"github.com/wardenhq/warden/pkg/observability"
	"github.com/wardenhq/warden/pkg/token"
)

// FederatedIdentity is the verified subject of an external ID token.
type FederatedIdentity struct {
	Subject string
	Email   string
}

// IDTokenVerifier validates an external identity token and extracts its
// subject. Implemented by GoogleVerifier; tests substitute a fake.
type IDTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*FederatedIdentity, error)
}

// GoogleLoginRequest carries the fields the frontend obtains from the Google
// sign-in widget.
type GoogleLoginRequest struct {
	ID       string `json:"id"`
	IDToken  string `json:"idToken"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoUrl"`
	Provider string `json:"provider"`
}

// Service verifies credentials and issues token pairs.
type Service struct {
	users       *identity.UserStore
	issuer      *token.Issuer
	mailer      mail.Mailer
	verifier    IDTokenVerifier
	resetTokens *identity.ResetTokenGenerator
	origin      string
	logger      *observability.Logger
	metrics     *observability.Metrics
}

// NewService creates the auth service.
func NewService(users *identity.UserStore, issuer *token.Issuer, mailer mail.Mailer, verifier IDTokenVerifier, resetTokens *identity.ResetTokenGenerator, origin string, logger *observability.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		users:       users,
		issuer:      issuer,
		mailer:      mailer,
		verifier:    verifier,
		resetTokens: resetTokens,
		origin:      origin,
		logger:      logger,
		metrics:     metrics,
	}
}

// Login authenticates a local account by username or email plus password.
func (s *Service) Login(ctx context.Context, usernameOrEmail, password string) (*token.Pair, error) {
	user, err := s.users.GetByUsername(ctx, usernameOrEmail)
	if errors.Is(err, identity.ErrNotFound) {
		user, err = s.users.GetByEmail(ctx, usernameOrEmail)
	}
	if errors.Is(err, identity.ErrNotFound) {
		s.metrics.LoginsTotal.WithLabelValues("local", "failure").Inc()
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if user.PasswordHash == "" || identity.VerifyPassword(user.PasswordHash, password) != nil {
		s.metrics.LoginsTotal.WithLabelValues("local", "failure").Inc()
		return nil, apperr.ErrInvalidLogin
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}
	s.metrics.LoginsTotal.WithLabelValues("local", "success").Inc()
	return pair, nil
}

// LoginGoogle authenticates a Google sign-in: the ID token is verified
// against the configured client id, then the federated identity is linked to
// an existing account by (provider, subject), by email, or to a freshly
// provisioned account. The verified token's email wins over the request's.
func (s *Service) LoginGoogle(ctx context.Context, req GoogleLoginRequest) (*token.Pair, error) {
	ident, err := s.verifier.Verify(ctx, req.IDToken)
	if err != nil {
		s.metrics.LoginsTotal.WithLabelValues("google", "failure").Inc()
		s.logger.WithError(err).Warn("federated token verification failed")
		return nil, apperr.ErrFederatedLogin
	}

	provider := req.Provider
	if provider == "" {
		provider = identity.GoogleProvider
	}

	user, err := s.users.GetByLogin(ctx, provider, ident.Subject)
	if errors.Is(err, identity.ErrNotFound) {
		user, err = s.users.GetByEmail(ctx, ident.Email)
	}
	if errors.Is(err, identity.ErrNotFound) {
		user = &identity.User{
			Username:      ident.Email,
			Email:         ident.Email,
			Name:          req.Name,
			Surname:       req.Surname,
			SecurityStamp: identity.NewSecurityStamp(),
		}
		if req.PhotoURL != "" {
			user.PhotoURL = &req.PhotoURL
		}
		err = s.users.Create(ctx, user)
	}
	if err != nil {
		s.metrics.LoginsTotal.WithLabelValues("google", "failure").Inc()
		s.logger.WithError(err).Warn("federated account provisioning failed")
		return nil, apperr.ErrFederatedLogin
	}

	login := &identity.Login{Provider: provider, ProviderKey: ident.Subject, UserID: user.ID}
	if err := s.users.AddLogin(ctx, login); err != nil {
		s.metrics.LoginsTotal.WithLabelValues("google", "failure").Inc()
		return nil, apperr.ErrFederatedLogin
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}
	s.metrics.LoginsTotal.WithLabelValues("google", "success").Inc()
	return pair, nil
}

// Refresh exchanges a stored refresh token for a fresh pair, rotating the
// stored token. An unknown token and an expired one fail differently so the
// client knows whether to re-authenticate.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*token.Pair, error) {
	user, err := s.users.GetByRefreshToken(ctx, refreshToken)
	if errors.Is(err, identity.ErrNotFound) {
		s.metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if user.RefreshTokenExpiration == nil || !user.RefreshTokenExpiration.After(time.Now()) {
		s.metrics.TokenRefreshTotal.WithLabelValues("expired").Inc()
		return nil, apperr.ErrRefreshTokenExpired
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}
	s.metrics.TokenRefreshTotal.WithLabelValues("success").Inc()
	return pair, nil
}

// RequestPasswordReset mails a reset link when the address belongs to an
// account. The caller gets the same answer either way, so the endpoint does
// not reveal which addresses exist.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	s.metrics.PasswordResetTotal.WithLabelValues("requested").Inc()

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, identity.ErrNotFound) {
		s.logger.WithField("email", email).Debug("password reset requested for unknown address")
		return nil
	}
	if err != nil {
		return err
	}

	resetToken := s.resetTokens.Generate(user.ID, user.SecurityStamp, time.Now())
	link := mail.ResetLink(s.origin, user.ID.String(), resetToken)
	if err := s.mailer.Send(ctx, user.Email, "Reset your password", mail.ResetBody(link)); err != nil {
		return fmt.Errorf("failed to send reset mail: %w", err)
	}

	s.metrics.PasswordResetTotal.WithLabelValues("sent").Inc()
	return nil
}

// VerifyResetToken reports whether a reset token is currently valid for the
// user. Tokens die when they expire or when the password changes underneath
// them.
func (s *Service) VerifyResetToken(ctx context.Context, userID, resetToken string) (bool, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return false, apperr.ErrUserNotFound
	}

	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, identity.ErrNotFound) {
		return false, apperr.ErrUserNotFound
	}
	if err != nil {
		return false, err
	}

	return s.resetTokens.Verify(resetToken, user.ID, user.SecurityStamp, time.Now()), nil
}

// issuePair mints a token pair and persists the refresh token with its
// expiration, overwriting whatever was stored before.
func (s *Service) issuePair(ctx context.Context, user *identity.User) (*token.Pair, error) {
	pair, err := s.issuer.CreatePair(user.Username, user.Email)
	if err != nil {
		return nil, err
	}

	expiration := s.issuer.RefreshExpiration(pair.AccessTokenExpiration)
	if err := s.users.UpdateRefreshToken(ctx, user.ID, pair.RefreshToken, expiration); err != nil {
		return nil, fmt.Errorf("failed to persist refresh token: %w", err)
	}
	return pair, nil
}
