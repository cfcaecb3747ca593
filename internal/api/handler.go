package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kurihiro0119/github-access-portal/internal/access"
	"github.com/kurihiro0119/github-access-portal/internal/domain"
	apperrors "github.com/kurihiro0119/github-access-portal/internal/errors"
	"github.com/kurihiro0119/github-access-portal/internal/storage"
)

// Handler handles API requests
type Handler struct {
	service access.Service
	log     logrus.FieldLogger
}

// NewHandler creates a new API handler
func NewHandler(log logrus.FieldLogger, service access.Service) *Handler {
	return &Handler{
		service: service,
		log:     log.WithField("component", "api"),
	}
}

// grantRequest is the body of an access request
type grantRequest struct {
	GithubIdentity string `json:"githubIdentity"`
	Project        string `json:"project"`
	RepoURL        string `json:"repoUrl"`
	AccessType     string `json:"accessType"`
}

// GrantAccess adds the requester as a repository collaborator
// POST /api/github-access/access
func (h *Handler) GrantAccess(c *gin.Context) {
	var body grantRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.log.WithError(err).Debug("Rejected access request body")
		respondError(c, apperrors.NewBadRequestError("Invalid request body: "+err.Error()))
		return
	}

	if strings.TrimSpace(body.GithubIdentity) == "" || strings.TrimSpace(body.RepoURL) == "" || strings.TrimSpace(body.AccessType) == "" {
		respondError(c, apperrors.NewBadRequestError("Missing required fields: githubIdentity, repoUrl, or accessType"))
		return
	}

	accessType, err := domain.ParseAccessType(body.AccessType)
	if err != nil {
		respondError(c, apperrors.NewBadRequestError(err.Error()))
		return
	}

	req, result, err := h.service.GrantAccess(c.Request.Context(), domain.GrantInput{
		GithubIdentity: body.GithubIdentity,
		Project:        body.Project,
		RepoURL:        body.RepoURL,
		AccessType:     accessType,
	}, Principal(c))
	if err != nil {
		respondGrantError(c, err)
		return
	}

	c.JSON(http.StatusCreated, domain.GrantResponse{
		GrantResult: *result,
		Request:     req,
	})
}

// ListRequests returns recorded access requests, newest first
// GET /api/github-access/access
func (h *Handler) ListRequests(c *gin.Context) {
	filter := domain.AccessRequestFilter{
		Project:        c.Query("project"),
		GithubIdentity: c.Query("githubIdentity"),
		Limit:          parseIntQuery(c, "limit", storage.DefaultListLimit),
	}

	reqs, err := h.service.ListRequests(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": reqs,
	})
}

// GetRequest returns one recorded access request
// GET /api/github-access/access/:id
func (h *Handler) GetRequest(c *gin.Context) {
	req, err := h.service.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": req,
	})
}

// HealthCheck returns the health status of the API
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// parseIntQuery parses an integer query parameter with a default value
func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.Query(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

// respondGrantError sends the error of a failed grant. Only validation
// failures are client errors; everything else is reported as 500 with the
// code telling the cases apart.
func respondGrantError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if apperrors.IsBadRequest(err) {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{
		"error": apperrors.MessageOf(err),
		"code":  apperrors.CodeOf(err),
	})
}

// respondError sends an error response
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperrors.CodeOf(err) {
	case apperrors.ErrCodeNotFound, apperrors.ErrCodeUserNotFound:
		status = http.StatusNotFound
	case apperrors.ErrCodeUnauthorized:
		status = http.StatusUnauthorized
	case apperrors.ErrCodeForbidden:
		status = http.StatusForbidden
	case apperrors.ErrCodeBadRequest:
		status = http.StatusBadRequest
	case apperrors.ErrCodeRateLimited:
		status = http.StatusTooManyRequests
	}
	c.JSON(status, gin.H{
		"error": apperrors.MessageOf(err),
		"code":  apperrors.CodeOf(err),
	})
}
