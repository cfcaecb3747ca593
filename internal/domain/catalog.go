package domain

// Group parent names whose children are offered as projects
const (
	GroupInternal = "internal"
	GroupExternal = "external"
)

// LinkTypeSourceCode marks a catalog link pointing at a repository
const LinkTypeSourceCode = "source-code"

// Link is a link declared on a catalog entity
type Link struct {
	URL   string `json:"url" yaml:"url"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	Type  string `json:"type,omitempty" yaml:"type,omitempty"`
}

// Group is a catalog Group entity reduced to what access requests need
type Group struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	DisplayName string   `json:"displayName,omitempty"`
	Children    []string `json:"children,omitempty"`
	Links       []Link   `json:"links,omitempty"`
}

// RepoOption is a selectable repository for a project
type RepoOption struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}
