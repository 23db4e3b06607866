package dto

// RegisterRequest represents a multipart registration request. AvatarPath and
// CoverImagePath are the temp-dir locations of the uploaded files, set by the handler.
type RegisterRequest struct {
	FullName       string `form:"fullName" json:"fullName"`
	Email          string `form:"email" json:"email"`
	Username       string `form:"username" json:"username"`
	Password       string `form:"password" json:"password"`
	AvatarPath     string `form:"-" json:"-"`
	CoverImagePath string `form:"-" json:"-"`
}

// LoginRequest represents a login request; either username or email identifies the user
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// RefreshRequest carries the refresh token when it is not sent as a cookie
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// UpdateAccountRequest represents a partial profile update; nil fields are left unchanged
type UpdateAccountRequest struct {
	FullName *string `json:"fullName"`
	Email    *string `json:"email"`
}
