package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-access-portal/internal/domain"
)

func TestGrantAccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/github-access/access", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		var input domain.GrantInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		assert.Equal(t, "octocat", input.GithubIdentity)
		assert.Equal(t, domain.AccessTypeRead, input.AccessType)

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"message":"Invitation sent to octocat for acme/widgets","invitationUrl":"https://github.com/acme/widgets/invitations","wasAlreadyCollaborator":false,"previousPermission":null,"request":{"id":"req-1","status":"granted"}}`)
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", WithToken("token-1"))
	resp, err := c.GrantAccess(context.Background(), domain.GrantInput{
		GithubIdentity: "octocat",
		Project:        "widgets",
		RepoURL:        "https://github.com/acme/widgets",
		AccessType:     domain.AccessTypeRead,
	})
	require.NoError(t, err)

	assert.Equal(t, "Invitation sent to octocat for acme/widgets", resp.Message)
	require.NotNil(t, resp.InvitationURL)
	assert.False(t, resp.WasAlreadyCollaborator)
	assert.Nil(t, resp.PreviousPermission)
	require.NotNil(t, resp.Request)
	assert.Equal(t, "req-1", resp.Request.ID)
}

func TestGrantAccessError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"GitHub user ghost not found","code":"USER_NOT_FOUND"}`)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).GrantAccess(context.Background(), domain.GrantInput{GithubIdentity: "ghost"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "USER_NOT_FOUND", apiErr.Code)
	assert.Equal(t, "GitHub user ghost not found", err.Error())
}

func TestListRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "widgets", r.URL.Query().Get("project"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Empty(t, r.URL.Query().Get("githubIdentity"))
		fmt.Fprint(w, `{"items":[{"id":"req-2"},{"id":"req-1"}]}`)
	}))
	defer server.Close()

	reqs, err := NewClient(server.URL).ListRequests(context.Background(), ListOptions{Project: "widgets", Limit: 20})
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "req-2", reqs[0].ID)
}

func TestGetRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/github-access/access/req-1" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"not found","code":"NOT_FOUND"}`)
			return
		}
		fmt.Fprint(w, `{"data":{"id":"req-1","project":"widgets"}}`)
	}))
	defer server.Close()

	c := NewClient(server.URL)

	req, err := c.GetRequest(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, "widgets", req.Project)

	_, err = c.GetRequest(context.Background(), "req-2")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	status := "ok"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"status":%q}`, status)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	assert.NoError(t, c.HealthCheck(context.Background()))

	status = "degraded"
	assert.Error(t, c.HealthCheck(context.Background()))
}

func TestNonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewClient(server.URL).HealthCheck(context.Background())
	require.Error(t, err)
	assert.Equal(t, "bad gateway", err.Error())
}
