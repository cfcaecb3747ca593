// Package form implements the access request form as a headless state
// machine. Front ends (the CLI today) drive it by calling its methods and
// rendering Snapshot.
package form

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/kurihiro0119/github-access-portal/internal/catalog"
	"github.com/kurihiro0119/github-access-portal/internal/domain"
)

// State is a step of the form lifecycle
type State string

const (
	StateIdle            State = "idle"
	StateLoadingGroups   State = "loading-groups"
	StateGroupsLoaded    State = "groups-loaded"
	StateProjectSelected State = "project-selected"
	StateRepoSelectable  State = "repo-selectable"
	StateSubmitting      State = "submitting"
)

// SuccessMessage is shown after a grant call succeeds
const SuccessMessage = "Access request submitted successfully!"

// Severity of a notification
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is a dismissible message shown to the user
type Notification struct {
	Message  string
	Severity Severity
}

// Values are the fields the user fills in
type Values struct {
	GithubIdentity string
	ParentGroup    string
	Project        string
	RepoURL        string
	AccessType     domain.AccessType
}

// Snapshot is a read-only copy of the form for rendering
type Snapshot struct {
	State        State
	Values       Values
	ParentGroups []domain.Group
	Projects     []string
	Repos        []domain.RepoOption
	Notification *Notification
}

// Submitter sends a grant request to the backend
type Submitter interface {
	GrantAccess(ctx context.Context, input domain.GrantInput) (*domain.GrantResponse, error)
}

var (
	// ErrBusy is returned when an operation is attempted while loading or submitting
	ErrBusy = errors.New("form is busy")
	// ErrIncomplete is returned by Submit when a required field is empty
	ErrIncomplete = errors.New("all fields are required")
)

// Form holds the access request form state
type Form struct {
	mu sync.Mutex

	log       logrus.FieldLogger
	source    catalog.Source
	submitter Submitter

	state        State
	values       Values
	groups       []domain.Group
	parents      []domain.Group
	projects     []string
	repos        []domain.RepoOption
	notification *Notification
}

// New creates an idle form
func New(log logrus.FieldLogger, source catalog.Source, submitter Submitter) *Form {
	return &Form{
		log:       log.WithField("component", "access_form"),
		source:    source,
		submitter: submitter,
		state:     StateIdle,
	}
}

// LoadGroups fetches all catalog groups and offers the internal and external
// parents for selection
func (f *Form) LoadGroups(ctx context.Context) error {
	f.mu.Lock()
	if f.busy() {
		f.mu.Unlock()
		return ErrBusy
	}
	f.state = StateLoadingGroups
	f.mu.Unlock()

	groups, err := f.source.Groups(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.state = StateIdle
		f.notify(SeverityError, err.Error())
		f.log.WithError(err).Error("Failed to load groups")
		return err
	}

	f.groups = groups
	f.parents = catalog.ParentGroups(groups)
	f.state = StateGroupsLoaded
	f.log.WithField("groups", len(groups)).Debug("Loaded catalog groups")
	return nil
}

// SelectParentGroup chooses internal or external projects. The project and
// repository are cleared.
func (f *Form) SelectParentGroup(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.busy() {
		return ErrBusy
	}
	if f.state == StateIdle {
		return fmt.Errorf("groups are not loaded")
	}

	f.values.ParentGroup = name
	f.values.Project = ""
	f.values.RepoURL = ""
	f.repos = nil
	f.projects = nil

	if name == "" {
		f.state = StateGroupsLoaded
		return nil
	}

	if _, ok := catalog.FindGroup(f.parents, name); !ok {
		f.values.ParentGroup = ""
		f.state = StateGroupsLoaded
		return fmt.Errorf("unknown project group %q", name)
	}

	f.projects = catalog.ChildProjects(f.groups, name)
	if len(f.projects) == 0 {
		f.log.WithField("group", name).Warn("No children found for group")
	}
	f.state = StateGroupsLoaded
	return nil
}

// SelectProject chooses a project and offers its source-code links. The
// repository is cleared.
func (f *Form) SelectProject(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.busy() {
		return ErrBusy
	}

	if name != "" && !contains(f.projects, name) {
		return fmt.Errorf("unknown project %q", name)
	}

	f.values.Project = name
	f.values.RepoURL = ""
	f.repos = nil
	if name == "" {
		f.state = StateGroupsLoaded
		return nil
	}

	f.repos = catalog.SourceCodeLinks(f.groups, name)
	if len(f.repos) > 0 {
		f.state = StateRepoSelectable
	} else {
		f.state = StateProjectSelected
	}
	return nil
}

// SelectRepo chooses one of the offered repositories
func (f *Form) SelectRepo(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.busy() {
		return ErrBusy
	}
	for _, r := range f.repos {
		if r.URL == url {
			f.values.RepoURL = url
			return nil
		}
	}
	return fmt.Errorf("repository %q is not offered for project %q", url, f.values.Project)
}

// SetIdentity sets the GitHub username or e-mail address
func (f *Form) SetIdentity(identity string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values.GithubIdentity = strings.TrimSpace(identity)
}

// SetAccessType sets the requested access level
func (f *Form) SetAccessType(raw string) error {
	accessType, err := domain.ParseAccessType(raw)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.values.AccessType = accessType
	return nil
}

// Submit sends the request once. On success the form is reset and a success
// notification shown; on failure the values are kept and the error shown.
func (f *Form) Submit(ctx context.Context) (*domain.GrantResponse, error) {
	f.mu.Lock()
	if f.busy() {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	v := f.values
	if v.GithubIdentity == "" || v.Project == "" || v.RepoURL == "" || v.AccessType == "" {
		f.mu.Unlock()
		return nil, ErrIncomplete
	}
	previous := f.state
	f.state = StateSubmitting
	f.mu.Unlock()

	resp, err := f.submitter.GrantAccess(ctx, domain.GrantInput{
		GithubIdentity: v.GithubIdentity,
		Project:        v.Project,
		RepoURL:        v.RepoURL,
		AccessType:     v.AccessType,
	})

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.state = previous
		f.notify(SeverityError, err.Error())
		f.log.WithError(err).Error("Failed to submit access request")
		return nil, err
	}

	f.values = Values{}
	f.projects = nil
	f.repos = nil
	f.state = StateGroupsLoaded
	f.notify(SeveritySuccess, SuccessMessage)
	return resp, nil
}

// DismissNotification clears the current notification
func (f *Form) DismissNotification() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notification = nil
}

// Snapshot returns a copy of the current form
func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := Snapshot{
		State:        f.state,
		Values:       f.values,
		ParentGroups: append([]domain.Group(nil), f.parents...),
		Projects:     append([]string(nil), f.projects...),
		Repos:        append([]domain.RepoOption(nil), f.repos...),
	}
	if f.notification != nil {
		n := *f.notification
		s.Notification = &n
	}
	return s
}

func (f *Form) busy() bool {
	return f.state == StateLoadingGroups || f.state == StateSubmitting
}

func (f *Form) notify(severity Severity, message string) {
	f.notification = &Notification{Message: message, Severity: severity}
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
