// Package githubapp wraps the GitHub REST endpoints used to grant repository
// access, authenticated as a GitHub App installation.
package githubapp

import (
	"context"

	"github.com/pkg/errors"

	"github.com/kurihiro0119/github-access-portal/internal/domain"
)

var (
	// ErrNotFound is returned when GitHub answers 404.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited is returned when GitHub rejects a call for rate limiting.
	ErrRateLimited = errors.New("rate limited")
)

// Repository is the subset of repository data the service reads
type Repository struct {
	FullName string
	Private  bool
	HTMLURL  string
}

// User is the subset of user data the service reads
type User struct {
	Login string
	Name  string
	Type  string
}

// AddCollaboratorResult carries the raw outcome of the add collaborator call.
// GitHub answers 201 with an invitation for new collaborators and 204 when
// an existing collaborator's permission was set.
type AddCollaboratorResult struct {
	StatusCode    int
	InvitationURL string
}

// Client defines the GitHub operations needed to grant access
type Client interface {
	// GetRepository returns the repository if the installation can see it
	GetRepository(ctx context.Context, repo domain.RepoRef) (*Repository, error)

	// GetUser looks up a user by login
	GetUser(ctx context.Context, login string) (*User, error)

	// FindUserByEmail resolves a public e-mail address to a user
	FindUserByEmail(ctx context.Context, email string) (*User, error)

	// GetPermission returns the user's current permission on the repository
	GetPermission(ctx context.Context, repo domain.RepoRef, login string) (domain.Permission, error)

	// AddCollaborator invites the user or updates their permission
	AddCollaborator(ctx context.Context, repo domain.RepoRef, login, permission string) (*AddCollaboratorResult, error)
}

// Factory creates a GitHub client for a single grant
type Factory func(ctx context.Context) (Client, error)
