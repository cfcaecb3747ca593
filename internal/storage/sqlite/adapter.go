package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kurihiro0119/github-access-portal/internal/domain"
	apperrors "github.com/kurihiro0119/github-access-portal/internal/errors"
	"github.com/kurihiro0119/github-access-portal/internal/storage"
)

// sqliteStorage implements the Storage interface for SQLite
type sqliteStorage struct {
	db *sqlx.DB
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (storage.Storage, error) {
	db, err := sqlx.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &sqliteStorage{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Migrate runs database migrations
func (s *sqliteStorage) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS access_requests (
		id TEXT PRIMARY KEY,
		github_identity TEXT NOT NULL,
		project TEXT NOT NULL,
		repo_url TEXT NOT NULL,
		access_type TEXT NOT NULL,
		created_by TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		status TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		invitation_url TEXT,
		was_already_collaborator BOOLEAN NOT NULL DEFAULT 0,
		previous_permission TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_access_requests_project ON access_requests(project);
	CREATE INDEX IF NOT EXISTS idx_access_requests_identity ON access_requests(github_identity);
	CREATE INDEX IF NOT EXISTS idx_access_requests_created_at ON access_requests(created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveAccessRequest inserts or updates an access request
func (s *sqliteStorage) SaveAccessRequest(ctx context.Context, req *domain.AccessRequest) error {
	if _, err := s.db.NamedExecContext(ctx, storage.InsertAccessRequestSQL, req); err != nil {
		return fmt.Errorf("failed to save access request %s: %w", req.ID, err)
	}
	return nil
}

// GetAccessRequest returns one access request by ID
func (s *sqliteStorage) GetAccessRequest(ctx context.Context, id string) (*domain.AccessRequest, error) {
	var req domain.AccessRequest
	err := s.db.GetContext(ctx, &req, s.db.Rebind("SELECT "+storage.AccessRequestColumns+" FROM access_requests WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("access request %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get access request %s: %w", id, err)
	}
	return &req, nil
}

// ListAccessRequests returns access requests newest first
func (s *sqliteStorage) ListAccessRequests(ctx context.Context, filter domain.AccessRequestFilter) ([]*domain.AccessRequest, error) {
	query, args := storage.BuildListQuery(s.db, filter)

	reqs := []*domain.AccessRequest{}
	if err := s.db.SelectContext(ctx, &reqs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list access requests: %w", err)
	}
	return reqs, nil
}

// Close closes the database connection
func (s *sqliteStorage) Close() error {
	return s.db.Close()
}
