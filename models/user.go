package models

// User is a registered account. PasswordHash is a bcrypt hash and never leaves the server.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}
