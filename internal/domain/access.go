package domain

import (
	"fmt"
	"strings"
	"time"
)

// AccessType represents the access level requested for a repository
type AccessType string

const (
	AccessTypeRead  AccessType = "read"
	AccessTypeWrite AccessType = "write"
	AccessTypeAdmin AccessType = "admin"
)

// AccessTypes lists the accepted access types in ascending order of privilege
var AccessTypes = []AccessType{AccessTypeRead, AccessTypeWrite, AccessTypeAdmin}

// ParseAccessType validates a raw access type value
func ParseAccessType(s string) (AccessType, error) {
	switch AccessType(strings.ToLower(strings.TrimSpace(s))) {
	case AccessTypeRead:
		return AccessTypeRead, nil
	case AccessTypeWrite:
		return AccessTypeWrite, nil
	case AccessTypeAdmin:
		return AccessTypeAdmin, nil
	}
	return "", fmt.Errorf("invalid access type %q: must be one of read, write, admin", s)
}

// GitHubPermission returns the permission name expected by the add collaborator endpoint
func (a AccessType) GitHubPermission() string {
	switch a {
	case AccessTypeRead:
		return "pull"
	case AccessTypeWrite:
		return "push"
	default:
		return string(a)
	}
}

// Permission is the collaborator permission GitHub reports for a user
type Permission string

const (
	PermissionNone  Permission = "none"
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
	PermissionAdmin Permission = "admin"
)

// Grants reports whether the permission is exactly the given access type
func (p Permission) Grants(a AccessType) bool {
	return string(p) == string(a)
}

// RequestStatus is the recorded outcome of an access request
type RequestStatus string

const (
	RequestStatusGranted RequestStatus = "granted"
	RequestStatusFailed  RequestStatus = "failed"
)

// AccessRequest represents one access grant attempt
type AccessRequest struct {
	ID                     string        `json:"id" db:"id"`
	GithubIdentity         string        `json:"githubIdentity" db:"github_identity"`
	Project                string        `json:"project" db:"project"`
	RepoURL                string        `json:"repoUrl" db:"repo_url"`
	AccessType             AccessType    `json:"accessType" db:"access_type"`
	CreatedBy              string        `json:"createdBy" db:"created_by"`
	CreatedAt              time.Time     `json:"createdAt" db:"created_at"`
	Status                 RequestStatus `json:"status" db:"status"`
	Message                string        `json:"message" db:"message"`
	InvitationURL          *string       `json:"invitationUrl,omitempty" db:"invitation_url"`
	WasAlreadyCollaborator bool          `json:"wasAlreadyCollaborator" db:"was_already_collaborator"`
	PreviousPermission     *string       `json:"previousPermission,omitempty" db:"previous_permission"`
}

// GrantInput is the caller-supplied part of an access request
type GrantInput struct {
	GithubIdentity string     `json:"githubIdentity"`
	Project        string     `json:"project"`
	RepoURL        string     `json:"repoUrl"`
	AccessType     AccessType `json:"accessType"`
}

// GrantOutcome classifies how GitHub handled the collaborator call
type GrantOutcome string

const (
	OutcomeInvited   GrantOutcome = "invited"
	OutcomeUpdated   GrantOutcome = "updated"
	OutcomeGranted   GrantOutcome = "granted"
	OutcomeUnchanged GrantOutcome = "unchanged"
	OutcomeProcessed GrantOutcome = "processed"
)

// GrantResult describes the result of a successful grant
type GrantResult struct {
	Message                string       `json:"message"`
	InvitationURL          *string      `json:"invitationUrl"`
	WasAlreadyCollaborator bool         `json:"wasAlreadyCollaborator"`
	PreviousPermission     *Permission  `json:"previousPermission"`
	Outcome                GrantOutcome `json:"outcome"`
}

// AccessRequestFilter narrows a request listing
type AccessRequestFilter struct {
	Project        string
	GithubIdentity string
	Limit          int
}

// GrantResponse is the body returned for a successful grant
type GrantResponse struct {
	GrantResult
	Request *AccessRequest `json:"request"`
}
