package storage

import (
	"context"

	"github.com/kurihiro0119/github-access-portal/internal/domain"
)

// Storage is the abstract interface for the persistence layer
type Storage interface {
	// Access request operations
	SaveAccessRequest(ctx context.Context, req *domain.AccessRequest) error
	GetAccessRequest(ctx context.Context, id string) (*domain.AccessRequest, error)

	// ListAccessRequests returns requests newest first
	ListAccessRequests(ctx context.Context, filter domain.AccessRequestFilter) ([]*domain.AccessRequest, error)

	// Migration
	Migrate(ctx context.Context) error

	// Connection management
	Close() error
}

// DefaultListLimit caps listings when the filter sets no limit
const DefaultListLimit = 100
