package catalog

import (
	"context"

	"github.com/google/uuid"
)

// UnknownLabel is the sentinel used when a reference cannot be resolved.
const UnknownLabel = "Unknown"

// Roles stored on user records.
const (
	RoleServiceUser     = "Service User"
	RoleServiceProvider = "Service Provider"
)

// UserInfo is the denormalized display view of a user.
type UserInfo struct {
	ID       uuid.UUID
	FullName string
	Email    string
}

// ServiceInfo is the denormalized display view of a service listing.
type ServiceInfo struct {
	ID           uuid.UUID
	ServiceName  string
	City         string
	CategoryName string
}

// Resolver looks up externally-owned identity and catalog records.
// Implementations are read-only; resolution failures surface as ErrNotFound
// and callers degrade to UnknownLabel rather than failing.
type Resolver interface {
	// UserByID resolves display fields for a user.
	UserByID(ctx context.Context, id uuid.UUID) (*UserInfo, error)

	// ServiceByID resolves display fields for a service listing, including
	// its category name when the category link still resolves.
	ServiceByID(ctx context.Context, id uuid.UUID) (*ServiceInfo, error)

	// CountUsersByRole counts users grouped by their role literal.
	CountUsersByRole(ctx context.Context) (map[string]int64, error)
}
