package types

import (
	"encoding/json"
	"time"
)

// AppConfig is a keyed configuration record with a free-form JSON value.
type AppConfig struct {
	ID          int64           `json:"id"`
	Key         string          `json:"key"`
	Value       json.RawMessage `json:"value"`
	Description *string         `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty"`
}

type CreateAppConfigParams struct {
	Key         string          `json:"key"`
	Value       json.RawMessage `json:"value"`
	Description *string         `json:"description,omitempty"`
}

type UpdateAppConfigParams struct {
	Value       json.RawMessage `json:"value,omitempty"`
	Description *string         `json:"description,omitempty"`
}
