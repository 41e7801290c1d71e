package domain

import (
	"errors"
	"strings"
	"time"
)

const (
	MinPasswordLength = 8
	maxEmailLength    = 320
)

var (
	ErrInvalidEmail = errors.New("email must contain '@'")
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	ErrInvalidID    = errors.New("user id must be greater than zero")
)

// User is a registered buyer. Orders reference users by ID.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser builds an active user from an already hashed password.
func NewUser(email, passwordHash string, now time.Time) (*User, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	return &User{
		Email:        normalized,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeEmail trims and lower-cases the address and checks its basic shape.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || len(email) > maxEmailLength {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// ValidatePassword enforces the minimum password length before hashing.
func ValidatePassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
