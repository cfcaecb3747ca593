package storage

import (
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/kurihiro0119/github-access-portal/internal/domain"
)

// AccessRequestColumns is the column list shared by the SQL adapters
const AccessRequestColumns = `id, github_identity, project, repo_url, access_type, created_by, created_at,
	status, message, invitation_url, was_already_collaborator, previous_permission`

// InsertAccessRequestSQL upserts an access request using named parameters
const InsertAccessRequestSQL = `
	INSERT INTO access_requests (` + AccessRequestColumns + `)
	VALUES (:id, :github_identity, :project, :repo_url, :access_type, :created_by, :created_at,
		:status, :message, :invitation_url, :was_already_collaborator, :previous_permission)
	ON CONFLICT (id) DO UPDATE SET
		status = excluded.status,
		message = excluded.message,
		invitation_url = excluded.invitation_url,
		was_already_collaborator = excluded.was_already_collaborator,
		previous_permission = excluded.previous_permission`

// BuildListQuery returns the listing query and its arguments, bound for the
// given database driver
func BuildListQuery(db *sqlx.DB, filter domain.AccessRequestFilter) (string, []interface{}) {
	var where []string
	var args []interface{}

	if filter.Project != "" {
		where = append(where, "project = ?")
		args = append(args, filter.Project)
	}
	if filter.GithubIdentity != "" {
		where = append(where, "github_identity = ?")
		args = append(args, filter.GithubIdentity)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := "SELECT " + AccessRequestColumns + " FROM access_requests"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	return db.Rebind(query), args
}
