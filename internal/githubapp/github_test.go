package githubapp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-access-portal/internal/domain"
)

var testRepo = domain.RepoRef{Owner: "acme", Name: "widgets"}

func newTestClient(t *testing.T, mux *http.ServeMux) (Client, RateLimiter) {
	t.Helper()

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	log := logrus.New()
	log.SetOutput(io.Discard)

	factory, err := NewFactory(log, Options{Token: "test-token", APIURL: server.URL})
	require.NoError(t, err)

	client, err := factory(context.Background())
	require.NoError(t, err)

	return client, client.(*githubClient).rateLimiter
}

func TestGetRepository(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Remaining", "4321")
		w.Header().Set("X-RateLimit-Reset", "1893456000")
		fmt.Fprint(w, `{"full_name":"acme/widgets","private":true,"html_url":"https://github.com/acme/widgets"}`)
	})
	client, limiter := newTestClient(t, mux)

	repo, err := client.GetRepository(context.Background(), testRepo)
	require.NoError(t, err)

	assert.Equal(t, "acme/widgets", repo.FullName)
	assert.True(t, repo.Private)

	remaining, _ := limiterState(limiter)
	assert.Equal(t, 4321, remaining)
}

func TestGetRepositoryNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})
	client, _ := newTestClient(t, mux)

	_, err := client.GetRepository(context.Background(), testRepo)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "get repository acme/widgets")
}

func TestGetRepositoryServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	})
	client, _ := newTestClient(t, mux)

	_, err := client.GetRepository(context.Background(), testRepo)

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestGetUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/octocat", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"login":"octocat","name":"The Octocat","type":"User"}`)
	})
	client, _ := newTestClient(t, mux)

	user, err := client.GetUser(context.Background(), "octocat")
	require.NoError(t, err)

	assert.Equal(t, "octocat", user.Login)
	assert.Equal(t, "The Octocat", user.Name)
}

func TestFindUserByEmail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/users", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("q") {
		case "octo@example.com in:email":
			fmt.Fprint(w, `{"total_count":1,"items":[{"login":"octocat"}]}`)
		default:
			fmt.Fprint(w, `{"total_count":0,"items":[]}`)
		}
	})
	client, _ := newTestClient(t, mux)

	user, err := client.FindUserByEmail(context.Background(), "octo@example.com")
	require.NoError(t, err)
	assert.Equal(t, "octocat", user.Login)

	_, err = client.FindUserByEmail(context.Background(), "nobody@example.com")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetPermission(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/collaborators/octocat/permission", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"permission":"write","user":{"login":"octocat"}}`)
	})
	mux.HandleFunc("/repos/acme/widgets/collaborators/stranger/permission", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})
	client, _ := newTestClient(t, mux)

	permission, err := client.GetPermission(context.Background(), testRepo, "octocat")
	require.NoError(t, err)
	assert.Equal(t, domain.PermissionWrite, permission)

	_, err = client.GetPermission(context.Background(), testRepo, "stranger")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAddCollaboratorInvitation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/collaborators/octocat", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"permission":"push"}`, string(body))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":1,"html_url":"https://github.com/acme/widgets/invitations"}`)
	})
	client, _ := newTestClient(t, mux)

	result, err := client.AddCollaborator(context.Background(), testRepo, "octocat", "push")
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, result.StatusCode)
	assert.Equal(t, "https://github.com/acme/widgets/invitations", result.InvitationURL)
}

func TestAddCollaboratorExisting(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/collaborators/octocat", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	client, _ := newTestClient(t, mux)

	result, err := client.AddCollaborator(context.Background(), testRepo, "octocat", "admin")
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, result.StatusCode)
	assert.Empty(t, result.InvitationURL)
}

func TestAddCollaboratorRateLimited(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/collaborators/octocat", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", "1893456000")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"API rate limit exceeded"}`)
	})
	client, _ := newTestClient(t, mux)

	_, err := client.AddCollaborator(context.Background(), testRepo, "octocat", "pull")

	assert.True(t, errors.Is(err, ErrRateLimited))
}

func TestNewFactoryWithoutCredentials(t *testing.T) {
	_, err := NewFactory(logrus.New(), Options{})
	assert.Error(t, err)
}

func TestNewFactoryRejectsMalformedKey(t *testing.T) {
	_, err := NewFactory(logrus.New(), Options{
		AppID:          1,
		InstallationID: 2,
		PrivateKey:     []byte("not a key"),
	})
	assert.Error(t, err)
}
