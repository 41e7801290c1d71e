package ports

import (
	"context"

	"github.com/Apurer/flash-sale-engine/internal/domains/users/domain"
)

// Service exposes user bounded context use cases to adapters.
type Service interface {
	Register(ctx context.Context, email, password string) (*domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	// Exists reports whether id names a registered user. It backs the sales buyer check.
	Exists(ctx context.Context, id int64) (bool, error)
}
