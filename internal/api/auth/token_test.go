package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlesteps-app/backoffice/config"
	"github.com/littlesteps-app/backoffice/internal/types"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		SecretKey:       "test-secret-key",
		ClientSecretKey: "test-client-secret",
		AccessTokenTTL:  15 * time.Minute,
		OTPTokenTTL:     5 * time.Minute,
		Issuer:          "littlesteps-backoffice",
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tokens := NewTokens(testAuthConfig())

	raw, err := tokens.SignAccessToken(42, "parent")
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	claims, err := tokens.VerifyAccessToken(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "parent", claims.RoleCode)
	assert.Equal(t, "littlesteps-backoffice", claims.Issuer)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	tokens := NewTokens(testAuthConfig())
	raw, err := tokens.SignAccessToken(42, "parent")
	require.NoError(t, err)

	other := testAuthConfig()
	other.SecretKey = "a-different-secret"
	_, err = NewTokens(other).VerifyAccessToken(raw)
	assert.ErrorIs(t, err, types.ErrUnauthenticated)
}

func TestAccessTokenExpired(t *testing.T) {
	cfg := testAuthConfig()
	cfg.AccessTokenTTL = -time.Minute
	tokens := NewTokens(cfg)

	raw, err := tokens.SignAccessToken(42, "parent")
	require.NoError(t, err)

	_, err = tokens.VerifyAccessToken(raw)
	assert.ErrorIs(t, err, types.ErrUnauthenticated)
}

func TestAccessTokenWrongIssuer(t *testing.T) {
	cfg := testAuthConfig()
	cfg.Issuer = "someone-else"
	raw, err := NewTokens(cfg).SignAccessToken(42, "parent")
	require.NoError(t, err)

	_, err = NewTokens(testAuthConfig()).VerifyAccessToken(raw)
	assert.ErrorIs(t, err, types.ErrUnauthenticated)
}

func TestClientTokenRoundTrip(t *testing.T) {
	tokens := NewTokens(testAuthConfig())

	raw, err := tokens.SignClientToken("mobile-app", "prod", time.Hour)
	require.NoError(t, err)

	claims, err := tokens.VerifyClientToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "mobile-app", claims.Client)
	assert.Equal(t, "prod", claims.Env)
	assert.NotEmpty(t, claims.ID)
}

func TestClientTokenRejectsAccessToken(t *testing.T) {
	// The two families sign with different keys; a bearer token must never
	// pass as an api token.
	tokens := NewTokens(testAuthConfig())
	raw, err := tokens.SignAccessToken(42, "parent")
	require.NoError(t, err)

	_, err = tokens.VerifyClientToken(raw)
	assert.ErrorIs(t, err, types.ErrUnauthenticated)
}

func TestGenerateOTPCodeFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := GenerateOTPCode()
		assert.Len(t, code, 4)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9', "code %q must be numeric", code)
		}
	}
}

func TestOTPTokenRoundTrip(t *testing.T) {
	tokens := NewTokens(testAuthConfig())

	raw, err := tokens.SignOTPToken("1234", OTPPayload{UserID: 7, Phone: "+351910000000", Purpose: OTPPurposeLogin})
	require.NoError(t, err)

	claims, err := tokens.VerifyOTPToken("1234", raw, OTPPurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "+351910000000", claims.Phone)
}

func TestOTPTokenWrongCode(t *testing.T) {
	tokens := NewTokens(testAuthConfig())

	raw, err := tokens.SignOTPToken("1234", OTPPayload{UserID: 7, Phone: "+351910000000", Purpose: OTPPurposeLogin})
	require.NoError(t, err)

	_, err = tokens.VerifyOTPToken("4321", raw, OTPPurposeLogin)
	assert.ErrorIs(t, err, types.ErrUnauthenticated)
}

func TestOTPTokenTampered(t *testing.T) {
	tokens := NewTokens(testAuthConfig())

	raw, err := tokens.SignOTPToken("1234", OTPPayload{UserID: 7, Phone: "+351910000000", Purpose: OTPPurposeLogin})
	require.NoError(t, err)

	tampered := raw[:len(raw)-2] + "xx"
	_, err = tokens.VerifyOTPToken("1234", tampered, OTPPurposeLogin)
	assert.ErrorIs(t, err, types.ErrUnauthenticated)
}

func TestOTPTokenExpired(t *testing.T) {
	cfg := testAuthConfig()
	cfg.OTPTokenTTL = -time.Minute
	tokens := NewTokens(cfg)

	raw, err := tokens.SignOTPToken("1234", OTPPayload{UserID: 7, Purpose: OTPPurposeLogin})
	require.NoError(t, err)

	_, err = tokens.VerifyOTPToken("1234", raw, OTPPurposeLogin)
	assert.ErrorIs(t, err, types.ErrUnauthenticated)
}

func TestOTPTokenWrongPurpose(t *testing.T) {
	// A token minted for one flow must not verify in another, even with the
	// right code.
	tokens := NewTokens(testAuthConfig())

	raw, err := tokens.SignOTPToken("1234", OTPPayload{UserID: 7, Email: "new@example.com", Purpose: OTPPurposeContactChange})
	require.NoError(t, err)

	_, err = tokens.VerifyOTPToken("1234", raw, OTPPurposeLogin)
	assert.ErrorIs(t, err, types.ErrUnauthenticated)

	claims, err := tokens.VerifyOTPToken("1234", raw, OTPPurposeContactChange)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", claims.Email)
}
