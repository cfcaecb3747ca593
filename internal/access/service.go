// Package access implements granting GitHub repository access.
package access

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kurihiro0119/github-access-portal/internal/domain"
	apperrors "github.com/kurihiro0119/github-access-portal/internal/errors"
	"github.com/kurihiro0119/github-access-portal/internal/githubapp"
	"github.com/kurihiro0119/github-access-portal/internal/observability"
	"github.com/kurihiro0119/github-access-portal/internal/storage"
)

// Service defines the access request operations
type Service interface {
	// GrantAccess adds or updates the collaborator and records the attempt.
	// The returned request is non-nil whenever the attempt was recorded.
	GrantAccess(ctx context.Context, input domain.GrantInput, principal string) (*domain.AccessRequest, *domain.GrantResult, error)

	// ListRequests returns recorded requests newest first
	ListRequests(ctx context.Context, filter domain.AccessRequestFilter) ([]*domain.AccessRequest, error)

	// GetRequest returns one recorded request
	GetRequest(ctx context.Context, id string) (*domain.AccessRequest, error)
}

// service implements the Service interface
type service struct {
	log       logrus.FieldLogger
	newClient githubapp.Factory
	store     storage.Storage
	parser    *RepoURLParser
	now       func() time.Time
}

// NewService creates a new access service. host is the GitHub host accepted
// in repository URLs.
func NewService(log logrus.FieldLogger, factory githubapp.Factory, store storage.Storage, host string) Service {
	return &service{
		log:       log.WithField("component", "access_service"),
		newClient: factory,
		store:     store,
		parser:    NewRepoURLParser(host),
		now:       time.Now,
	}
}

// GrantAccess adds or updates the collaborator and records the attempt
func (s *service) GrantAccess(ctx context.Context, input domain.GrantInput, principal string) (*domain.AccessRequest, *domain.GrantResult, error) {
	start := time.Now()

	req := &domain.AccessRequest{
		ID:             uuid.New().String(),
		GithubIdentity: strings.TrimSpace(input.GithubIdentity),
		Project:        input.Project,
		RepoURL:        strings.TrimSpace(input.RepoURL),
		AccessType:     input.AccessType,
		CreatedBy:      principal,
		CreatedAt:      s.now().UTC(),
	}

	log := s.log.WithFields(logrus.Fields{
		"request_id": req.ID,
		"identity":   req.GithubIdentity,
		"repo_url":   req.RepoURL,
		"access":     req.AccessType,
		"created_by": principal,
	})

	result, err := s.grant(ctx, log, req)

	var label string
	if err != nil {
		req.Status = domain.RequestStatusFailed
		req.Message = apperrors.MessageOf(err)
		label = strings.ToLower(string(apperrors.CodeOf(err)))
		log.WithError(err).Warn("Access grant failed")
	} else {
		req.Status = domain.RequestStatusGranted
		req.Message = result.Message
		req.InvitationURL = result.InvitationURL
		req.WasAlreadyCollaborator = result.WasAlreadyCollaborator
		if result.PreviousPermission != nil {
			previous := string(*result.PreviousPermission)
			req.PreviousPermission = &previous
		}
		label = string(result.Outcome)
		log.WithField("outcome", result.Outcome).Info(result.Message)
	}

	observability.GrantsTotal.WithLabelValues(string(req.AccessType), label).Inc()
	observability.GrantDuration.WithLabelValues(string(req.AccessType)).Observe(time.Since(start).Seconds())

	// Record even when the caller went away; the grant may already have happened.
	if saveErr := s.store.SaveAccessRequest(context.WithoutCancel(ctx), req); saveErr != nil {
		log.WithError(saveErr).Error("Failed to record access request")
	}

	if err != nil {
		return req, nil, err
	}
	return req, result, nil
}

func (s *service) grant(ctx context.Context, log logrus.FieldLogger, req *domain.AccessRequest) (*domain.GrantResult, error) {
	// The HTTP handler checks these too; this covers callers outside the API.
	if req.GithubIdentity == "" || req.RepoURL == "" || req.AccessType == "" {
		return nil, apperrors.NewBadRequestError("Missing required fields: githubIdentity, repoUrl, or accessType")
	}

	accessType, err := domain.ParseAccessType(string(req.AccessType))
	if err != nil {
		return nil, apperrors.NewBadRequestError(err.Error())
	}

	repo, ok := s.parser.Parse(req.RepoURL)
	if !ok {
		return nil, apperrors.NewBadRequestError("Invalid GitHub repo URL")
	}

	client, err := s.newClient(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to create GitHub client", err)
	}

	login := req.GithubIdentity
	if strings.Contains(login, "@") {
		user, err := client.FindUserByEmail(ctx, login)
		if err != nil {
			return nil, lookupError(err, apperrors.NewUserNotFoundError(login), "User lookup error")
		}
		log.WithField("login", user.Login).Debug("Resolved e-mail to login")
		login = user.Login
	}

	if _, err := client.GetRepository(ctx, repo); err != nil {
		notFound := apperrors.NewNotFoundError(fmt.Sprintf("Repository %s not found or not accessible by the GitHub App", repo))
		return nil, lookupError(err, notFound, "Repository access error")
	}

	user, err := client.GetUser(ctx, login)
	if err != nil {
		return nil, lookupError(err, apperrors.NewUserNotFoundError(login), "User lookup error")
	}
	login = user.Login

	var previous *domain.Permission
	permission, err := client.GetPermission(ctx, repo, login)
	switch {
	case err == nil && permission != domain.PermissionNone:
		previous = &permission
		log.WithField("permission", permission).Debug("User is already a collaborator")
	case err == nil, errors.Is(err, githubapp.ErrNotFound):
		log.Debug("User is not yet a collaborator")
	default:
		// Not fatal: the add call below is authoritative.
		log.WithError(err).Warn("Failed to check collaborator permission")
	}

	// GetPermissionLevel reports effective permission, which includes org
	// base and team grants, so the add call is made even when it already matches.
	added, err := client.AddCollaborator(ctx, repo, login, accessType.GitHubPermission())
	if err != nil {
		notFound := apperrors.NewNotFoundError(fmt.Sprintf("Cannot add collaborator to %s. Repository may not exist or app may not have admin access.", repo))
		return nil, lookupError(err, notFound, "Failed to add collaborator")
	}

	return Classify(login, repo, accessType, added, previous)
}

// Classify turns the add collaborator response into a result without
// querying GitHub again. previous is the permission held before the call, nil
// when the user was not a collaborator.
func Classify(login string, repo domain.RepoRef, accessType domain.AccessType, added *githubapp.AddCollaboratorResult, previous *domain.Permission) (*domain.GrantResult, error) {
	result := &domain.GrantResult{
		WasAlreadyCollaborator: previous != nil,
		PreviousPermission:     previous,
	}

	switch {
	case added.StatusCode != http.StatusCreated && added.StatusCode != http.StatusNoContent:
		return nil, apperrors.NewUpstreamError(fmt.Sprintf("Unexpected response status: %d", added.StatusCode), nil)
	case added.StatusCode == http.StatusCreated && added.InvitationURL != "":
		invitationURL := added.InvitationURL
		result.Message = fmt.Sprintf("Invitation sent to %s for %s", login, repo)
		result.InvitationURL = &invitationURL
		result.Outcome = domain.OutcomeInvited
	case added.StatusCode == http.StatusNoContent && previous != nil && previous.Grants(accessType):
		result.Message = fmt.Sprintf("%s already has %s access to %s", login, accessType, repo)
		result.Outcome = domain.OutcomeUnchanged
	case added.StatusCode == http.StatusNoContent && previous != nil:
		result.Message = fmt.Sprintf("Permission updated for %s on %s from %s to %s", login, repo, *previous, accessType)
		result.Outcome = domain.OutcomeUpdated
	case added.StatusCode == http.StatusNoContent:
		result.Message = fmt.Sprintf("Access granted to %s for %s", login, repo)
		result.Outcome = domain.OutcomeGranted
	default:
		result.Message = fmt.Sprintf("Access request processed for %s on %s", login, repo)
		result.Outcome = domain.OutcomeProcessed
	}

	return result, nil
}

// lookupError maps a GitHub client error onto the application error space
func lookupError(err error, notFound *apperrors.AppError, prefix string) error {
	switch {
	case errors.Is(err, githubapp.ErrNotFound):
		return notFound
	case errors.Is(err, githubapp.ErrRateLimited):
		return apperrors.NewRateLimitedError(fmt.Sprintf("%s: GitHub API rate limit exceeded", prefix))
	default:
		return apperrors.NewUpstreamError(fmt.Sprintf("%s: %v", prefix, err), err)
	}
}

// ListRequests returns recorded requests newest first
func (s *service) ListRequests(ctx context.Context, filter domain.AccessRequestFilter) ([]*domain.AccessRequest, error) {
	reqs, err := s.store.ListAccessRequests(ctx, filter)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to list access requests", err)
	}
	return reqs, nil
}

// GetRequest returns one recorded request
func (s *service) GetRequest(ctx context.Context, id string) (*domain.AccessRequest, error) {
	return s.store.GetAccessRequest(ctx, id)
}
