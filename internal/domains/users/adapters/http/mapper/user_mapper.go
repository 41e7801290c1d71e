package mapper

import (
	"time"

	userdomain "github.com/Apurer/flash-sale-engine/internal/domains/users/domain"
)

// User is the transport-level user payload. The password hash never leaves the service.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// RegisterRequest is the body of POST /v1/users.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// FromDomainUser converts a domain user into a transport representation.
func FromDomainUser(user *userdomain.User) User {
	if user == nil {
		return User{}
	}
	return User{
		ID:        user.ID,
		Email:     user.Email,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	}
}
