package identity

import "time"

// User represents a registered wallet owner.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Credentials carries sign-in input.
type Credentials struct {
	Email    string
	Password string
}
