package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kurihiro0119/github-access-portal/internal/catalog"
	"github.com/kurihiro0119/github-access-portal/internal/config"
	"github.com/kurihiro0119/github-access-portal/internal/domain"
	"github.com/kurihiro0119/github-access-portal/internal/form"
	"github.com/kurihiro0119/github-access-portal/internal/observability"
	"github.com/kurihiro0119/github-access-portal/pkg/client"
)

var (
	cfgFile    string
	outputJSON bool
	logLevel   string

	parentGroup string
	project     string
	repoURL     string
	identity    string
	accessType  string

	filterProject  string
	filterIdentity string
	limit          int
)

var rootCmd = &cobra.Command{
	Use:   "github-access",
	Short: "GitHub repository access requests",
	Long: `A CLI tool for requesting GitHub repository access through the access portal.

Projects and repositories come from the developer-portal catalog; requests are
sent to the access portal API, which grants access as a GitHub App.`,
	SilenceUsage: true,
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List project groups",
	Long:  `List the internal and external groups whose children are offered as projects.`,
	Args:  cobra.NoArgs,
	RunE:  runGroups,
}

var projectsCmd = &cobra.Command{
	Use:   "projects [group]",
	Short: "List projects of a group",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjects,
}

var reposCmd = &cobra.Command{
	Use:   "repos [project]",
	Short: "List repositories of a project",
	Long:  `List the source-code links declared on a project.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRepos,
}

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Request repository access",
	Long: `Request access to a project repository.

The repository must be one of the project's source-code links. The access
level is one of read, write or admin.`,
	Args: cobra.NoArgs,
	RunE: runRequest,
}

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "List recorded access requests",
	Args:  cobra.NoArgs,
	RunE:  runRequests,
}

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show an access request",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	requestCmd.Flags().StringVar(&parentGroup, "parent", "", "project group (internal or external)")
	requestCmd.Flags().StringVar(&project, "project", "", "project name")
	requestCmd.Flags().StringVar(&repoURL, "repo", "", "repository URL (defaults to the only repository of the project)")
	requestCmd.Flags().StringVar(&identity, "identity", "", "GitHub username or e-mail address")
	requestCmd.Flags().StringVar(&accessType, "access", "", "access level: read, write or admin")
	_ = requestCmd.MarkFlagRequired("parent")
	_ = requestCmd.MarkFlagRequired("project")
	_ = requestCmd.MarkFlagRequired("identity")
	_ = requestCmd.MarkFlagRequired("access")

	requestsCmd.Flags().StringVar(&filterProject, "project", "", "only requests for this project")
	requestsCmd.Flags().StringVar(&filterIdentity, "identity", "", "only requests for this GitHub identity")
	requestsCmd.Flags().IntVar(&limit, "limit", 0, "maximum number of requests")

	rootCmd.AddCommand(groupsCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(reposCmd)
	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(requestsCmd)
	rootCmd.AddCommand(showCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env bundles what every command needs
type env struct {
	cfg *config.Config
	log *logrus.Logger
}

func setup() (*env, error) {
	var files []string
	if cfgFile != "" {
		files = append(files, cfgFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	log, err := observability.NewLogger(os.Stderr, level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	return &env{cfg: cfg, log: log}, nil
}

func (e *env) catalogSource() (catalog.Source, error) {
	switch {
	case e.cfg.CatalogFile != "":
		return catalog.NewFileSource(e.cfg.CatalogFile), nil
	case e.cfg.CatalogURL != "":
		return catalog.NewHTTPSource(e.log, e.cfg.CatalogURL, e.cfg.CatalogToken), nil
	default:
		return nil, fmt.Errorf("either CATALOG_FILE or CATALOG_URL must be set")
	}
}

func (e *env) apiClient() *client.Client {
	return client.NewClient(e.cfg.APIEndpoint, client.WithToken(e.cfg.APIToken))
}

func (e *env) groups(ctx context.Context) ([]domain.Group, error) {
	source, err := e.catalogSource()
	if err != nil {
		return nil, err
	}
	groups, err := source.Groups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load groups: %w", err)
	}
	return groups, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runGroups(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}

	groups, err := e.groups(cmd.Context())
	if err != nil {
		return err
	}
	parents := catalog.ParentGroups(groups)

	if outputJSON {
		return printJSON(parents)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Group", "Display Name", "Projects"})
	for _, g := range parents {
		table.Append([]string{g.Name, g.DisplayName, fmt.Sprintf("%d", len(g.Children))})
	}
	table.Render()

	return nil
}

func runProjects(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}

	groups, err := e.groups(cmd.Context())
	if err != nil {
		return err
	}
	if _, ok := catalog.FindGroup(catalog.ParentGroups(groups), args[0]); !ok {
		return fmt.Errorf("unknown project group %q", args[0])
	}
	projects := catalog.ChildProjects(groups, args[0])

	if outputJSON {
		return printJSON(projects)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Project", "Repositories"})
	for _, p := range projects {
		table.Append([]string{p, fmt.Sprintf("%d", len(catalog.SourceCodeLinks(groups, p)))})
	}
	table.Render()

	return nil
}

func runRepos(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}

	groups, err := e.groups(cmd.Context())
	if err != nil {
		return err
	}
	repos := catalog.SourceCodeLinks(groups, args[0])

	if outputJSON {
		return printJSON(repos)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Title", "URL"})
	for _, r := range repos {
		table.Append([]string{r.Title, r.URL})
	}
	table.Render()

	return nil
}

func runRequest(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}

	source, err := e.catalogSource()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	f := form.New(e.log, source, e.apiClient())
	if err := f.LoadGroups(ctx); err != nil {
		return fmt.Errorf("failed to load groups: %w", err)
	}
	if err := f.SelectParentGroup(parentGroup); err != nil {
		return err
	}
	if err := f.SelectProject(project); err != nil {
		return err
	}

	repo := repoURL
	if repo == "" {
		repos := f.Snapshot().Repos
		if len(repos) != 1 {
			return fmt.Errorf("project %q has %d repositories, choose one with --repo", project, len(repos))
		}
		repo = repos[0].URL
	}
	if err := f.SelectRepo(repo); err != nil {
		return err
	}
	f.SetIdentity(identity)
	if err := f.SetAccessType(accessType); err != nil {
		return err
	}

	resp, err := f.Submit(ctx)
	if err != nil {
		return err
	}

	if outputJSON {
		return printJSON(resp)
	}

	if n := f.Snapshot().Notification; n != nil {
		fmt.Println(n.Message)
	}
	fmt.Println(resp.Message)
	if resp.InvitationURL != nil {
		fmt.Printf("Invitation: %s\n", *resp.InvitationURL)
	}
	if resp.Request != nil {
		fmt.Printf("Request ID: %s\n", resp.Request.ID)
	}

	return nil
}

func runRequests(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}

	reqs, err := e.apiClient().ListRequests(cmd.Context(), client.ListOptions{
		Project:        filterProject,
		GithubIdentity: filterIdentity,
		Limit:          limit,
	})
	if err != nil {
		return fmt.Errorf("failed to list requests: %w", err)
	}

	if outputJSON {
		return printJSON(reqs)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Created", "Identity", "Project", "Repository", "Access", "Status"})
	for _, r := range reqs {
		table.Append([]string{
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.GithubIdentity,
			r.Project,
			r.RepoURL,
			string(r.AccessType),
			string(r.Status),
		})
	}
	table.Render()

	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}

	req, err := e.apiClient().GetRequest(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get request: %w", err)
	}

	if outputJSON {
		return printJSON(req)
	}

	fmt.Printf("\nAccess Request: %s\n\n", req.ID)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Field", "Value"})
	table.Append([]string{"Identity", req.GithubIdentity})
	table.Append([]string{"Project", req.Project})
	table.Append([]string{"Repository", req.RepoURL})
	table.Append([]string{"Access", string(req.AccessType)})
	table.Append([]string{"Requested By", req.CreatedBy})
	table.Append([]string{"Created", req.CreatedAt.Local().Format(time.RFC3339)})
	table.Append([]string{"Status", string(req.Status)})
	table.Append([]string{"Message", req.Message})
	table.Append([]string{"Already Collaborator", fmt.Sprintf("%t", req.WasAlreadyCollaborator)})
	if req.PreviousPermission != nil {
		table.Append([]string{"Previous Permission", *req.PreviousPermission})
	}
	if req.InvitationURL != nil {
		table.Append([]string{"Invitation", *req.InvitationURL})
	}
	table.Render()

	return nil
}
