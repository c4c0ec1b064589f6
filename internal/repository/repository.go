package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"smplanner/marketing-app/internal/domain"
)

// Error constants for the repository layer.
var (
	ErrNotFound     = RepositoryError("not found")
	ErrConflict     = RepositoryError("conflict")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with consultant
// accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// ClientRepository defines the interface for interacting with client
// records. The embedded marketing plan travels with the client document, so
// there is no separate plan repository.
type ClientRepository interface {
	// Create inserts the client. An ID is generated unless the caller
	// already set one (the replica pull path preserves IDs).
	Create(ctx context.Context, client *domain.Client) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Client, error)
	// GetByRecordName resolves the stable record name used by the cloud
	// replica.
	GetByRecordName(ctx context.Context, recordName string) (*domain.Client, error)
	// ListByConsultant returns the consultant's clients sorted by last
	// name ascending. Always reads the store; nothing is cached.
	ListByConsultant(ctx context.Context, consultantID primitive.ObjectID) ([]domain.Client, error)
	Update(ctx context.Context, client *domain.Client) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}
