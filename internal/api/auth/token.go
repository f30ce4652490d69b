package auth

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/littlesteps-app/backoffice/config"
	"github.com/littlesteps-app/backoffice/internal/types"
)

const defaultOTPTokenTTL = 5 * time.Minute

// Tokens signs and verifies the three token families: access tokens (bearer
// credential), client tokens (api-token header) and OTP tokens.
type Tokens struct {
	cfg config.AuthConfig
}

func NewTokens(cfg config.AuthConfig) *Tokens {
	if cfg.SecretKey == "" || cfg.ClientSecretKey == "" {
		panic("auth secret keys cannot be empty")
	}
	return &Tokens{cfg: cfg}
}

// SignAccessToken issues the bearer credential for an authenticated user.
func (t *Tokens) SignAccessToken(userID int64, roleCode string) (string, error) {
	now := time.Now()
	claims := &AccessClaims{
		UserID:   userID,
		RoleCode: roleCode,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.cfg.AccessTokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(t.cfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return token, nil
}

// VerifyAccessToken parses and validates a bearer token. Every failure mode
// collapses to ErrUnauthenticated.
func (t *Tokens) VerifyAccessToken(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	err := t.verify(raw, claims, []byte(t.cfg.SecretKey),
		jwt.WithIssuer(t.cfg.Issuer),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// SignClientToken issues an api-token identifying a calling client
// application/environment. Issued out-of-band, long-lived.
func (t *Tokens) SignClientToken(client, env string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &ClientClaims{
		Client: client,
		Env:    env,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(t.cfg.ClientSecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign client token: %w", err)
	}
	return token, nil
}

func (t *Tokens) VerifyClientToken(raw string) (*ClientClaims, error) {
	claims := &ClientClaims{}
	if err := t.verify(raw, claims, []byte(t.cfg.ClientSecretKey)); err != nil {
		return nil, err
	}
	return claims, nil
}

// GenerateOTPCode returns a 4-digit numeric code. Not cryptographically
// hardened: the code is never a standalone credential, it is folded into the
// OTP token's signing secret and bounded by the token's short expiry.
func GenerateOTPCode() string {
	return fmt.Sprintf("%04d", rand.IntN(10000))
}

// SignOTPToken signs the payload with secret+code as the effective key. The
// resulting token is unverifiable without knowing the code.
func (t *Tokens) SignOTPToken(code string, payload OTPPayload) (string, error) {
	ttl := t.cfg.OTPTokenTTL
	if ttl <= 0 {
		ttl = defaultOTPTokenTTL
	}
	now := time.Now()
	claims := &OTPClaims{
		UserID:  payload.UserID,
		Phone:   payload.Phone,
		Email:   payload.Email,
		Purpose: payload.Purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.otpSecret(code))
	if err != nil {
		return "", fmt.Errorf("failed to sign otp token: %w", err)
	}
	return token, nil
}

// VerifyOTPToken re-derives secret+code and verifies the token, then checks
// that it was issued for the given purpose. Wrong code, tampered token,
// elapsed expiry and purpose mismatch are indistinguishable to the caller:
// all collapse to ErrUnauthenticated so probing codes leaks nothing.
func (t *Tokens) VerifyOTPToken(code, raw, purpose string) (*OTPClaims, error) {
	claims := &OTPClaims{}
	if err := t.verify(raw, claims, t.otpSecret(code)); err != nil {
		return nil, types.ErrUnauthenticated
	}
	if claims.Purpose != purpose {
		return nil, types.ErrUnauthenticated
	}
	return claims, nil
}

func (t *Tokens) otpSecret(code string) []byte {
	return []byte(t.cfg.SecretKey + code)
}

func (t *Tokens) verify(raw string, claims jwt.Claims, secret []byte, opts ...jwt.ParserOption) error {
	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrUnauthenticated, err)
	}
	if !token.Valid {
		return types.ErrUnauthenticated
	}
	return nil
}
