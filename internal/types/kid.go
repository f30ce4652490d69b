package types

import "time"

// Kid is a child profile owned by a parent user.
type Kid struct {
	ID        int64      `json:"id"`
	ParentID  int64      `json:"parent_id"`
	Firstname string     `json:"firstname"`
	Lastname  *string    `json:"lastname,omitempty"`
	Birthdate *time.Time `json:"birthdate,omitempty"`
	AvatarURL *string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

type CreateKidParams struct {
	ParentID  int64      `json:"parent_id,omitempty"`
	Firstname string     `json:"firstname"`
	Lastname  *string    `json:"lastname,omitempty"`
	Birthdate *time.Time `json:"birthdate,omitempty"`
	AvatarURL *string    `json:"avatar_url,omitempty"`
}

type UpdateKidParams struct {
	Firstname *string    `json:"firstname,omitempty"`
	Lastname  *string    `json:"lastname,omitempty"`
	Birthdate *time.Time `json:"birthdate,omitempty"`
	AvatarURL *string    `json:"avatar_url,omitempty"`
}
