package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	"github.com/littlesteps-app/backoffice/internal/types"
)

// AccessClaims is the bearer-token payload: who the caller is and which
// role decides what they may do.
type AccessClaims struct {
	UserID   int64  `json:"user_id"`
	RoleCode string `json:"role_code"`
	jwt.RegisteredClaims
}

// ClientClaims identifies the calling client application/environment; it is
// carried in the api-token header, separate from the user's bearer token.
type ClientClaims struct {
	Client string `json:"client"`
	Env    string `json:"env,omitempty"`
	jwt.RegisteredClaims
}

// OTP token purposes. Each verifying endpoint names the purpose it accepts,
// so a challenge issued for one flow cannot be replayed against another.
const (
	OTPPurposeLogin         = "login"
	OTPPurposeContactChange = "contact-change"
)

// OTPPayload is what an OTP token binds: the user, the contact point being
// verified and the flow the token was issued for. The code itself is never
// part of the payload, it is folded into the signing secret.
type OTPPayload struct {
	UserID  int64
	Phone   string
	Email   string
	Purpose string
}

type OTPClaims struct {
	UserID  int64  `json:"user_id"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// LoginRequest is the unified login body; Type selects the flow.
type LoginRequest struct {
	Type     string `json:"type"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// OTPVerifyRequest completes a phone login or a contact change.
type OTPVerifyRequest struct {
	OTPToken string `json:"otp_token"`
	OTPCode  string `json:"otp_code"`
}

// ContactChangeRequest starts an email/phone change confirmation flow.
// Exactly one of the two fields must be set.
type ContactChangeRequest struct {
	NewEmail string `json:"new_email,omitempty"`
	NewPhone string `json:"new_phone,omitempty"`
}

// LoginResult is the access-token-bearing response shape shared by email
// login, OTP verification and federated login.
type LoginResult struct {
	ID          int64              `json:"id"`
	Firstname   *string            `json:"firstname,omitempty"`
	Lastname    *string            `json:"lastname,omitempty"`
	Email       *string            `json:"email,omitempty"`
	RoleCode    string             `json:"role_code"`
	Permissions []types.Permission `json:"permissions"`
	AccessToken string             `json:"access_token"`
}

// OTPChallenge is the phone-login response. The numeric code travels only
// through the SMS boundary, never here.
type OTPChallenge struct {
	OTPToken string `json:"otp_token"`
}

// RoleSource resolves a role code to its permission list. Satisfied by the
// role repository.
type RoleSource interface {
	GetByCode(ctx context.Context, code string) (*types.Role, error)
}

// Caller is the authenticated identity attached to the request context.
type Caller struct {
	UserID   int64
	RoleCode string
}

func (c Caller) IsAdmin() bool {
	return c.RoleCode == types.AdminRoleCode
}
