package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// AdminRoleCode is the role treated as a universal allow by the
// authorization guard.
const AdminRoleCode = "admin"

// DefaultRoleCode is assigned to self-signup and first-time phone logins.
const DefaultRoleCode = "parent"

// Actions is a permission action set that unmarshals from either a single
// JSON string ("read") or a list (["read","list"]).
type Actions []string

func (a *Actions) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = Actions{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("permission action must be a string or a list of strings: %w", err)
	}
	*a = Actions(many)
	return nil
}

func (a Actions) MarshalJSON() ([]byte, error) {
	if len(a) == 1 {
		return json.Marshal(a[0])
	}
	return json.Marshal([]string(a))
}

// Permission grants a role a set of actions over a resource type.
// Resource "*" and action "*" are wildcards.
type Permission struct {
	Resource string  `json:"resource"`
	Action   Actions `json:"action"`
}

// Role is the authorization grouping, identified everywhere by its stable
// string code.
type Role struct {
	ID          int64        `json:"id"`
	Code        string       `json:"code"`
	Name        string       `json:"name"`
	Description *string      `json:"description,omitempty"`
	Permissions []Permission `json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// CreateRoleParams defines the fields accepted on role creation.
type CreateRoleParams struct {
	Code        string       `json:"code"`
	Name        string       `json:"name"`
	Description *string      `json:"description,omitempty"`
	Permissions []Permission `json:"permissions"`
}

// UpdateRoleParams defines the mutable role fields.
type UpdateRoleParams struct {
	Name        *string       `json:"name,omitempty"`
	Description *string       `json:"description,omitempty"`
	Permissions *[]Permission `json:"permissions,omitempty"`
}
