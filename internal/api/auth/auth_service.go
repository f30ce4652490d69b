package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/markbates/goth"
	"golang.org/x/crypto/bcrypt"

	"github.com/littlesteps-app/backoffice/app/observability/metrics"
	"github.com/littlesteps-app/backoffice/internal/notify"
	"github.com/littlesteps-app/backoffice/internal/types"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService defines the interface for the login and verification flows.
type AuthService interface {
	// LoginEmail authenticates an active user by email and password.
	LoginEmail(ctx context.Context, email, password string) (*LoginResult, error)

	// LoginPhone starts the OTP flow for a phone number, creating a NEW user
	// on first contact.
	LoginPhone(ctx context.Context, phone string) (*OTPChallenge, error)

	// VerifyOTP completes a phone login, activating NEW users.
	VerifyOTP(ctx context.Context, otpToken, otpCode string) (*LoginResult, error)

	// GetOrCreateUserFromProvider logs in a federated identity, creating the
	// user on first contact.
	GetOrCreateUserFromProvider(ctx context.Context, provider string, providerUser goth.User) (*LoginResult, error)

	// RequestContactChange issues an OTP challenge bound to a new email or
	// phone for the given user.
	RequestContactChange(ctx context.Context, userID int64, newEmail, newPhone string) (*OTPChallenge, error)

	// ConfirmContactChange applies the email/phone change the OTP token binds.
	ConfirmContactChange(ctx context.Context, otpToken, otpCode string) error
}

// AuthServiceImpl implements the AuthService interface.
type AuthServiceImpl struct {
	logger   *slog.Logger
	repo     AuthRepo
	roles    RoleSource
	tokens   *Tokens
	notifier notify.Sender
}

func NewAuthService(repo AuthRepo, roles RoleSource, tokens *Tokens, notifier notify.Sender, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger:   logger,
		repo:     repo,
		roles:    roles,
		tokens:   tokens,
		notifier: notifier,
	}
}

// LoginEmail authenticates an active user by email and password. Unknown
// email, wrong password and non-ACTIVATED status all fail the same way so
// callers cannot enumerate accounts.
func (s *AuthServiceImpl) LoginEmail(ctx context.Context, email, password string) (*LoginResult, error) {
	m := metrics.Get()
	m.LoginAttemptsTotal.Add(ctx, 1)

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			m.LoginFailuresTotal.Add(ctx, 1)
			return nil, types.ErrUnauthenticated
		}
		return nil, fmt.Errorf("email login: %w", err)
	}

	if user.Status != types.StatusActivated || user.PasswordHash == nil {
		s.logger.WarnContext(ctx, "Email login refused", slog.Int64("user_id", user.ID), slog.String("status", string(user.Status)))
		m.LoginFailuresTotal.Add(ctx, 1)
		return nil, types.ErrUnauthenticated
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		m.LoginFailuresTotal.Add(ctx, 1)
		return nil, types.ErrUnauthenticated
	}

	return s.loginResult(ctx, user)
}

// LoginPhone starts the OTP flow: unknown numbers get a NEW user with the
// default role; deleted and deactivated accounts are refused.
func (s *AuthServiceImpl) LoginPhone(ctx context.Context, phone string) (*OTPChallenge, error) {
	m := metrics.Get()
	m.LoginAttemptsTotal.Add(ctx, 1)

	user, err := s.repo.GetUserByPhone(ctx, phone)
	switch {
	case errors.Is(err, types.ErrNotFound):
		user, err = s.repo.CreatePhoneUser(ctx, phone, types.DefaultRoleCode)
		if err != nil {
			return nil, fmt.Errorf("phone login: %w", err)
		}
		s.logger.InfoContext(ctx, "Created user for first-time phone login", slog.Int64("user_id", user.ID))
	case err != nil:
		return nil, fmt.Errorf("phone login: %w", err)
	}

	if user.DeletedAt != nil {
		s.logger.WarnContext(ctx, "Phone login refused for deleted user", slog.Int64("user_id", user.ID))
		m.LoginFailuresTotal.Add(ctx, 1)
		return nil, types.ErrUnauthenticated
	}
	if user.Status == types.StatusDeactivated {
		s.logger.WarnContext(ctx, "Phone login refused for deactivated user", slog.Int64("user_id", user.ID))
		m.LoginFailuresTotal.Add(ctx, 1)
		return nil, types.ErrUnauthenticated
	}

	code := GenerateOTPCode()
	token, err := s.tokens.SignOTPToken(code, OTPPayload{UserID: user.ID, Phone: phone, Purpose: OTPPurposeLogin})
	if err != nil {
		return nil, fmt.Errorf("phone login: %w", err)
	}

	if err := s.notifier.SendSMS(ctx, phone, "Your verification code is "+code); err != nil {
		return nil, fmt.Errorf("phone login: deliver code: %w", err)
	}
	m.OTPIssuedTotal.Add(ctx, 1)

	return &OTPChallenge{OTPToken: token}, nil
}

// VerifyOTP completes a phone login. The token stays retryable until its
// expiry: a failed attempt changes no state.
func (s *AuthServiceImpl) VerifyOTP(ctx context.Context, otpToken, otpCode string) (*LoginResult, error) {
	m := metrics.Get()

	claims, err := s.tokens.VerifyOTPToken(otpCode, otpToken, OTPPurposeLogin)
	if err != nil {
		m.OTPFailuresTotal.Add(ctx, 1)
		return nil, types.ErrUnauthenticated
	}

	user, err := s.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			m.OTPFailuresTotal.Add(ctx, 1)
			return nil, types.ErrUnauthenticated
		}
		return nil, fmt.Errorf("otp verify: %w", err)
	}
	if user.Status == types.StatusDeactivated {
		m.OTPFailuresTotal.Add(ctx, 1)
		return nil, types.ErrUnauthenticated
	}

	if user.Status == types.StatusNew {
		if err := s.repo.ActivateUser(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("otp verify: %w", err)
		}
		user.Status = types.StatusActivated
	}
	m.OTPVerifiedTotal.Add(ctx, 1)

	return s.loginResult(ctx, user)
}

// GetOrCreateUserFromProvider resolves a federated identity: by
// (provider, social_id) first, then by verified provider email, creating an
// ACTIVATED user when neither matches.
func (s *AuthServiceImpl) GetOrCreateUserFromProvider(ctx context.Context, provider string, providerUser goth.User) (*LoginResult, error) {
	user, err := s.repo.GetUserBySocial(ctx, provider, providerUser.UserID)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return nil, fmt.Errorf("social login: %w", err)
	}

	if user == nil && providerUser.Email != "" {
		user, err = s.repo.GetUserByEmail(ctx, providerUser.Email)
		if err != nil && !errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("social login: %w", err)
		}
	}

	if user == nil {
		var email, firstname, lastname *string
		if providerUser.Email != "" {
			email = &providerUser.Email
		}
		if providerUser.FirstName != "" {
			firstname = &providerUser.FirstName
		}
		if providerUser.LastName != "" {
			lastname = &providerUser.LastName
		}
		user, err = s.repo.CreateSocialUser(ctx, provider, providerUser.UserID, email, firstname, lastname)
		if err != nil {
			return nil, fmt.Errorf("social login: %w", err)
		}
		s.logger.InfoContext(ctx, "Created user from federated login",
			slog.Int64("user_id", user.ID), slog.String("provider", provider))
	}

	if user.Status == types.StatusDeactivated || user.DeletedAt != nil {
		return nil, types.ErrUnauthenticated
	}

	return s.loginResult(ctx, user)
}

// RequestContactChange issues an OTP challenge bound to exactly one new
// contact point and delivers the code there.
func (s *AuthServiceImpl) RequestContactChange(ctx context.Context, userID int64, newEmail, newPhone string) (*OTPChallenge, error) {
	if (newEmail == "") == (newPhone == "") {
		return nil, fmt.Errorf("%w: exactly one of new_email or new_phone is required", types.ErrBadRequest)
	}

	code := GenerateOTPCode()
	token, err := s.tokens.SignOTPToken(code, OTPPayload{UserID: userID, Email: newEmail, Phone: newPhone, Purpose: OTPPurposeContactChange})
	if err != nil {
		return nil, fmt.Errorf("contact change: %w", err)
	}

	if newEmail != "" {
		err = s.notifier.SendEmail(ctx, newEmail, "Confirm your new email", "Your verification code is "+code)
	} else {
		err = s.notifier.SendSMS(ctx, newPhone, "Your verification code is "+code)
	}
	if err != nil {
		return nil, fmt.Errorf("contact change: deliver code: %w", err)
	}
	metrics.Get().OTPIssuedTotal.Add(ctx, 1)

	return &OTPChallenge{OTPToken: token}, nil
}

// ConfirmContactChange applies the change the verified token binds.
func (s *AuthServiceImpl) ConfirmContactChange(ctx context.Context, otpToken, otpCode string) error {
	m := metrics.Get()

	claims, err := s.tokens.VerifyOTPToken(otpCode, otpToken, OTPPurposeContactChange)
	if err != nil {
		m.OTPFailuresTotal.Add(ctx, 1)
		return types.ErrUnauthenticated
	}

	switch {
	case claims.Email != "":
		err = s.repo.UpdateEmail(ctx, claims.UserID, claims.Email)
	case claims.Phone != "":
		err = s.repo.UpdatePhone(ctx, claims.UserID, claims.Phone)
	default:
		return types.ErrUnauthenticated
	}
	if err != nil {
		return fmt.Errorf("contact change: %w", err)
	}
	m.OTPVerifiedTotal.Add(ctx, 1)
	return nil
}

// loginResult builds the access-token-bearing response shared by every
// successful login path.
func (s *AuthServiceImpl) loginResult(ctx context.Context, user *types.User) (*LoginResult, error) {
	perms := s.permissionsFor(ctx, user.RoleCode)

	token, err := s.tokens.SignAccessToken(user.ID, user.RoleCode)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &LoginResult{
		ID:          user.ID,
		Firstname:   user.Firstname,
		Lastname:    user.Lastname,
		Email:       user.Email,
		RoleCode:    user.RoleCode,
		Permissions: perms,
		AccessToken: token,
	}, nil
}

func (s *AuthServiceImpl) permissionsFor(ctx context.Context, roleCode string) []types.Permission {
	role, err := s.roles.GetByCode(ctx, roleCode)
	if err != nil {
		s.logger.WarnContext(ctx, "Role lookup failed, returning empty permissions",
			slog.String("role_code", roleCode), slog.Any("error", err))
		return []types.Permission{}
	}
	return role.Permissions
}
