package types

import "time"

type UserStatus string

const (
	StatusNew         UserStatus = "NEW"
	StatusActivated   UserStatus = "ACTIVATED"
	StatusDeactivated UserStatus = "DEACTIVATED"
)

// User is the identity record. Email and phone are pointers because either
// may be absent (phone-only signups have no email and vice versa); when
// present they are unique among non-soft-deleted users.
type User struct {
	ID           int64      `json:"id"`
	Firstname    *string    `json:"firstname,omitempty"`
	Lastname     *string    `json:"lastname,omitempty"`
	Email        *string    `json:"email,omitempty"`
	Phone        *string    `json:"phone,omitempty"`
	PasswordHash *string    `json:"-"`
	RoleCode     string     `json:"role_code"`
	Status       UserStatus `json:"status"`
	Provider     *string    `json:"provider,omitempty"`
	SocialID     *string    `json:"social_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// CreateUserParams defines the fields accepted on admin user creation.
type CreateUserParams struct {
	Firstname *string `json:"firstname,omitempty"`
	Lastname  *string `json:"lastname,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Password  *string `json:"password,omitempty"`
	RoleCode  string  `json:"role_code"`
}

// UpdateUserParams defines the mutable fields; pointers distinguish
// "not provided" from an explicit empty value.
type UpdateUserParams struct {
	Firstname *string     `json:"firstname,omitempty"`
	Lastname  *string     `json:"lastname,omitempty"`
	Email     *string     `json:"email,omitempty"`
	Phone     *string     `json:"phone,omitempty"`
	Password  *string     `json:"password,omitempty"`
	RoleCode  *string     `json:"role_code,omitempty"`
	Status    *UserStatus `json:"status,omitempty"`
}
