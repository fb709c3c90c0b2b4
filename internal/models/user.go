package models

const DefaultProfileImage = "/default-profile.png"

type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email,omitempty"`
	ProfileImage string `json:"profile_image"`
	IsAdmin      bool   `json:"is_admin"`
	PasswordHash string `json:"-"`
}

// Session binds an opaque bearer token to a user. With the default
// single-session policy a user has at most one row at a time.
type Session struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
}
