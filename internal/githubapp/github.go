package githubapp

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/go-github/v55/github"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kurihiro0119/github-access-portal/internal/domain"
	"github.com/kurihiro0119/github-access-portal/internal/observability"
)

// githubClient implements Client using the GitHub REST API
type githubClient struct {
	client      *github.Client
	rateLimiter RateLimiter
	log         logrus.FieldLogger
}

// NewClient wraps an authenticated go-github client
func NewClient(log logrus.FieldLogger, client *github.Client, rateLimiter RateLimiter) Client {
	return &githubClient{
		client:      client,
		rateLimiter: rateLimiter,
		log:         log.WithField("component", "github_client"),
	}
}

// GetRepository returns the repository if the installation can see it
func (c *githubClient) GetRepository(ctx context.Context, repo domain.RepoRef) (*Repository, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	r, resp, err := c.client.Repositories.Get(ctx, repo.Owner, repo.Name)
	c.observe("repos.get", resp)
	if err != nil {
		return nil, wrapError(resp, err, "get repository %s", repo)
	}

	c.log.WithField("repo", r.GetFullName()).Debug("Repository found")

	return &Repository{
		FullName: r.GetFullName(),
		Private:  r.GetPrivate(),
		HTMLURL:  r.GetHTMLURL(),
	}, nil
}

// GetUser looks up a user by login
func (c *githubClient) GetUser(ctx context.Context, login string) (*User, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	u, resp, err := c.client.Users.Get(ctx, login)
	c.observe("users.get", resp)
	if err != nil {
		return nil, wrapError(resp, err, "get user %s", login)
	}

	return &User{
		Login: u.GetLogin(),
		Name:  u.GetName(),
		Type:  u.GetType(),
	}, nil
}

// FindUserByEmail resolves a public e-mail address to a user
func (c *githubClient) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, resp, err := c.client.Search.Users(ctx, email+" in:email", &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: 2},
	})
	c.observe("search.users", resp)
	if err != nil {
		return nil, wrapError(resp, err, "search user %s", email)
	}

	if len(result.Users) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "no user with e-mail %s", email)
	}
	if len(result.Users) > 1 {
		return nil, errors.Errorf("e-mail %s matches %d users", email, result.GetTotal())
	}

	u := result.Users[0]
	return &User{
		Login: u.GetLogin(),
		Name:  u.GetName(),
		Type:  u.GetType(),
	}, nil
}

// GetPermission returns the user's current permission on the repository
func (c *githubClient) GetPermission(ctx context.Context, repo domain.RepoRef, login string) (domain.Permission, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", err
	}

	level, resp, err := c.client.Repositories.GetPermissionLevel(ctx, repo.Owner, repo.Name, login)
	c.observe("collaborators.permission", resp)
	if err != nil {
		return "", wrapError(resp, err, "get permission of %s on %s", login, repo)
	}

	permission := domain.Permission(level.GetPermission())
	if permission == "" {
		permission = domain.PermissionNone
	}
	return permission, nil
}

// AddCollaborator invites the user or updates their permission
func (c *githubClient) AddCollaborator(ctx context.Context, repo domain.RepoRef, login, permission string) (*AddCollaboratorResult, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	invitation, resp, err := c.client.Repositories.AddCollaborator(ctx, repo.Owner, repo.Name, login, &github.RepositoryAddCollaboratorOptions{
		Permission: permission,
	})
	c.observe("collaborators.add", resp)
	if err != nil {
		return nil, wrapError(resp, err, "add collaborator %s to %s", login, repo)
	}

	result := &AddCollaboratorResult{StatusCode: resp.StatusCode}
	if invitation != nil {
		result.InvitationURL = invitation.GetHTMLURL()
	}

	c.log.WithFields(logrus.Fields{
		"repo":       repo.FullName(),
		"user":       login,
		"permission": permission,
		"status":     resp.StatusCode,
	}).Debug("Add collaborator response")

	return result, nil
}

// observe records the call and updates the rate limiter from the response
func (c *githubClient) observe(endpoint string, resp *github.Response) {
	status := "error"
	if resp != nil && resp.Response != nil {
		status = strconv.Itoa(resp.StatusCode)
		if resp.Rate.Limit > 0 {
			c.rateLimiter.UpdateLimit(resp.Rate.Remaining, resp.Rate.Reset.Time)
		}
	}
	observability.GitHubCallsTotal.WithLabelValues(endpoint, status).Inc()
}

// wrapError maps GitHub failures onto ErrNotFound and ErrRateLimited
func wrapError(resp *github.Response, err error, format string, args ...interface{}) error {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return errors.Wrapf(ErrRateLimited, format+": %v", append(args, err)...)
	}
	if resp != nil && resp.Response != nil && resp.StatusCode == http.StatusNotFound {
		return errors.Wrapf(ErrNotFound, format, args...)
	}
	return errors.Wrapf(err, format, args...)
}
