package domain

// RepoRef identifies a GitHub repository
type RepoRef struct {
	Owner string
	Name  string
}

// FullName returns owner/name
func (r RepoRef) FullName() string {
	return r.Owner + "/" + r.Name
}

func (r RepoRef) String() string {
	return r.FullName()
}
