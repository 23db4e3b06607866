package domain

import "time"

// User represents an account and, viewed from the outside, a channel
type User struct {
	ID               string    `json:"_id" db:"id"`
	Username         string    `json:"username" db:"username"`
	Email            string    `json:"email" db:"email"`
	FullName         string    `json:"fullName" db:"full_name"`
	Avatar           string    `json:"avatar" db:"avatar"`
	CoverImage       string    `json:"coverImage" db:"cover_image"`
	PasswordHash     string    `json:"-" db:"password_hash"`
	RefreshTokenHash *string   `json:"-" db:"refresh_token_hash"`
	WatchHistory     []string  `json:"watchHistory" db:"-"`
	CreatedAt        time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time `json:"updatedAt" db:"updated_at"`
}

// Sanitized returns a copy of the user without credential fields.
func (u User) Sanitized() SanitizedUser {
	history := u.WatchHistory
	if history == nil {
		history = []string{}
	}

	return SanitizedUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FullName:     u.FullName,
		Avatar:       u.Avatar,
		CoverImage:   u.CoverImage,
		WatchHistory: history,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// SanitizedUser is the only user shape returned to clients
type SanitizedUser struct {
	ID           string    `json:"_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Avatar       string    `json:"avatar"`
	CoverImage   string    `json:"coverImage"`
	WatchHistory []string  `json:"watchHistory"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserUpdate holds the fields of a partial profile update; nil means unchanged
type UserUpdate struct {
	FullName   *string
	Email      *string
	Avatar     *string
	CoverImage *string
}

// IsEmpty reports whether no field is set
func (u UserUpdate) IsEmpty() bool {
	return u.FullName == nil && u.Email == nil && u.Avatar == nil && u.CoverImage == nil
}
