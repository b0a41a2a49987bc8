package user

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for user-related business logic.
type Service interface {
	RegisterUser(ctx context.Context, req RegisterRequest) (*User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	// MarkSetupDone records that the user finished creating their first store.
	MarkSetupDone(ctx context.Context, id uuid.UUID) error
	SetupDone(ctx context.Context, id uuid.UUID) (bool, error)
}
