// Package domain holds the chat entities and the rules that keep them valid.
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const MaxUsernameLen = 36

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

type UserID string

// User is the identity resolved by the auth layer. It is never mutated after creation.
type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(username string, isAdmin bool) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	id := UserID(uuid.NewString())
	return &User{ID: id, Username: username, IsAdmin: isAdmin}, nil
}

func ValidateUsername(username string) error {
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}
