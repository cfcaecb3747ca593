package access

import (
	"regexp"
	"strings"

	"github.com/kurihiro0119/github-access-portal/internal/domain"
)

// RepoURLParser extracts owner/repo from HTTPS and SSH repository URLs.
// Query strings, fragments and characters GitHub does not allow in names are
// rejected.
type RepoURLParser struct {
	pattern *regexp.Regexp
}

// NewRepoURLParser creates a parser for repositories hosted on host
func NewRepoURLParser(host string) *RepoURLParser {
	if host == "" {
		host = "github.com"
	}
	return &RepoURLParser{
		pattern: regexp.MustCompile(`(?:^|[/@.])` + regexp.QuoteMeta(host) + `[:/]([A-Za-z0-9][A-Za-z0-9_-]*)/([A-Za-z0-9._-]+?)(?:\.git)?/?$`),
	}
}

// Parse returns the repository a URL points at
func (p *RepoURLParser) Parse(repoURL string) (domain.RepoRef, bool) {
	match := p.pattern.FindStringSubmatch(strings.TrimSpace(repoURL))
	// dot segments would be resolved away when the API path is built
	if match == nil || match[2] == "." || match[2] == ".." {
		return domain.RepoRef{}, false
	}
	return domain.RepoRef{Owner: match[1], Name: match[2]}, true
}
