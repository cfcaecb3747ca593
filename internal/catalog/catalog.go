// Package catalog reads Group entities from the developer-portal catalog and
// derives the projects and repositories offered for access requests.
package catalog

import (
	"context"
	"strings"

	"github.com/kurihiro0119/github-access-portal/internal/domain"
)

// Source loads Group entities
type Source interface {
	Groups(ctx context.Context) ([]domain.Group, error)
}

// entity is the catalog wire shape shared by the HTTP and file sources
type entity struct {
	APIVersion string `json:"apiVersion" yaml:"apiVersion"`
	Kind       string `json:"kind" yaml:"kind"`
	Metadata   struct {
		Name  string        `json:"name" yaml:"name"`
		Links []domain.Link `json:"links,omitempty" yaml:"links,omitempty"`
	} `json:"metadata" yaml:"metadata"`
	Spec struct {
		Type     string   `json:"type" yaml:"type"`
		Children []string `json:"children,omitempty" yaml:"children,omitempty"`
		Profile  struct {
			DisplayName string `json:"displayName,omitempty" yaml:"displayName,omitempty"`
		} `json:"profile" yaml:"profile"`
	} `json:"spec" yaml:"spec"`
}

func (e *entity) isGroup() bool {
	return strings.EqualFold(e.Kind, "Group")
}

func (e *entity) toGroup() domain.Group {
	return domain.Group{
		Name:        e.Metadata.Name,
		Type:        e.Spec.Type,
		DisplayName: e.Spec.Profile.DisplayName,
		Children:    e.Spec.Children,
		Links:       e.Metadata.Links,
	}
}

// ParentGroups returns the groups named exactly "internal" or "external"
func ParentGroups(groups []domain.Group) []domain.Group {
	var parents []domain.Group
	for _, g := range groups {
		if g.Name == domain.GroupInternal || g.Name == domain.GroupExternal {
			parents = append(parents, g)
		}
	}
	return parents
}

// FindGroup returns the group with the given name
func FindGroup(groups []domain.Group, name string) (domain.Group, bool) {
	for _, g := range groups {
		if g.Name == name {
			return g, true
		}
	}
	return domain.Group{}, false
}

// ChildProjects returns the project names listed under a parent group
func ChildProjects(groups []domain.Group, parent string) []string {
	g, ok := FindGroup(groups, parent)
	if !ok {
		return nil
	}
	return g.Children
}

// SourceCodeLinks returns the repository options declared on a project group
func SourceCodeLinks(groups []domain.Group, project string) []domain.RepoOption {
	g, ok := FindGroup(groups, project)
	if !ok {
		return nil
	}

	var repos []domain.RepoOption
	for _, link := range g.Links {
		if link.Type != domain.LinkTypeSourceCode {
			continue
		}
		title := link.Title
		if title == "" {
			title = link.URL
		}
		repos = append(repos, domain.RepoOption{URL: link.URL, Title: title})
	}
	return repos
}
