// Package github implements the pull-only Connector contract against the
// GitHub REST API: Link-header pagination and check-run status mapping
//. GitHub is not a work-item source, so ListFolders returns
// the configured repository as its sole entry and Sync only ever produces
// PullRequests and PullRequestStatusChecks.
package github

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pulseplatform/pulse/internal/connectors"
	"github.com/pulseplatform/pulse/internal/connectors/httpclient"
	"github.com/pulseplatform/pulse/internal/types"
)

func init() {
	connectors.Register(types.SourceGitHub, New)
}

// Connector talks to one GitHub repository on behalf of one
// SourceConfiguration. config_json.repository must be "{owner}/{repo}".
type Connector struct {
	source *types.SourceConfiguration
	client *httpclient.Client
	repo   string
	deps   connectors.Deps
}

func New(source *types.SourceConfiguration, deps connectors.Deps) (connectors.Connector, error) {
	if source.EncryptedCredential == "" {
		return nil, fmt.Errorf("github: api_token is required")
	}
	repo, _ := source.ConfigJSON["repository"].(string)
	if repo == "" {
		return nil, fmt.Errorf("github: config_json.repository is required")
	}
	return &Connector{
		source: source,
		client: httpclient.New("https://api.github.com", "", source.EncryptedCredential, httpclient.AuthBearer),
		repo:   repo,
		deps:   deps,
	}, nil
}

func (c *Connector) TestConnection(ctx context.Context) error {
	var user struct {
		Login string `json:"login"`
	}
	if err := c.client.Get(ctx, "/user", &user); err != nil {
		return err
	}
	if user.Login == "" {
		return fmt.Errorf("github: authenticated but no login returned")
	}
	return nil
}

func (c *Connector) ListFolders(ctx context.Context) ([]types.Folder, error) {
	return []types.Folder{{ID: c.repo, Name: c.repo}}, nil
}

type rawPR struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	State     string `json:"state"`
	Merged    bool   `json:"merged"`
	User      struct {
		Login string `json:"login"`
	} `json:"user"`
	Head struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	} `json:"head"`
	Base struct {
		Ref string `json:"ref"`
	} `json:"base"`
}

type rawCheckRun struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
}

func (c *Connector) Sync(ctx context.Context, in connectors.SyncInput) (connectors.SyncResult, error) {
	in.Progress(20, "connecting")
	in.Progress(30, "discovery")

	count := 0
	page := 1
	for {
		var prs []rawPR
		path := fmt.Sprintf("/repos/%s/pulls?state=all&per_page=100&page=%d", c.repo, page)
		if err := c.client.Get(ctx, path, &prs); err != nil {
			return connectors.SyncResult{}, err
		}
		if len(prs) == 0 {
			break
		}
		for _, raw := range prs {
			if err := c.transformPR(ctx, in, raw); err != nil {
				return connectors.SyncResult{}, err
			}
			count++
		}
		page++
		in.Progress(minInt(50+page*5, 90), fmt.Sprintf("fetched page %d", page))
		if len(prs) < 100 {
			break
		}
	}

	in.Progress(95, "post-sync")
	return connectors.SyncResult{ItemCount: count}, nil
}

func (c *Connector) transformPR(ctx context.Context, in connectors.SyncInput, raw rawPR) error {
	status := mapPRStatus(raw.State, raw.Merged)
	pr := &types.PullRequest{
		SourceConfigID: c.source.ID,
		ExternalID:     fmt.Sprintf("%d", raw.Number),
		Title:          raw.Title,
		Status:         status,
		Repository:     c.repo,
		SourceBranch:   raw.Head.Ref,
		TargetBranch:   raw.Base.Ref,
	}
	if raw.User.Login != "" {
		user, err := c.deps.Identity.Resolve(in.Tenant, connectors.ResolveInput{
			Provider:       types.SourceGitHub,
			ExternalUserID: raw.User.Login,
			Name:           raw.User.Login,
		})
		if err != nil {
			return fmt.Errorf("github: resolve author: %w", err)
		}
		pr.AuthorUserID = &user.ID
	}
	if key, ok := matchIssueKey(raw.Title, raw.Head.Ref); ok {
		pr.WorkItemID = &key
	}

	if err := c.deps.Sink.UpsertPullRequest(in.Tenant, pr); err != nil {
		return fmt.Errorf("github: upsert pull request %d: %w", raw.Number, err)
	}

	if raw.Head.SHA != "" {
		if err := c.syncCheckRuns(ctx, in, pr.ID, raw.Head.SHA); err != nil {
			return err
		}
	}
	return nil
}

func (c *Connector) syncCheckRuns(ctx context.Context, in connectors.SyncInput, pullRequestID, sha string) error {
	var resp struct {
		CheckRuns []rawCheckRun `json:"check_runs"`
	}
	path := fmt.Sprintf("/repos/%s/commits/%s/check-runs", c.repo, sha)
	if err := c.client.Get(ctx, path, &resp); err != nil {
		return err
	}
	for _, run := range resp.CheckRuns {
		check := &types.PullRequestStatusCheck{
			PullRequestID: pullRequestID,
			Name:          run.Name,
			State:         mapCheckState(run.Status, run.Conclusion),
		}
		if err := c.deps.Sink.UpsertPullRequestStatusCheck(in.Tenant, check); err != nil {
			return fmt.Errorf("github: upsert status check %s: %w", run.Name, err)
		}
	}
	return nil
}

func mapPRStatus(state string, merged bool) types.PRStatus {
	if merged {
		return types.PRMerged
	}
	switch strings.ToLower(state) {
	case "closed":
		return types.PRClosed
	default:
		return types.PROpen
	}
}

// mapCheckState maps a check run's state: a run still
// queued/in_progress is pending; failure/timed_out/cancelled map to
// failure; any other non-success completed conclusion maps to error.
func mapCheckState(status, conclusion string) types.CheckState {
	if status != "completed" {
		return types.CheckPending
	}
	switch strings.ToLower(conclusion) {
	case "success":
		return types.CheckSuccess
	case "failure", "timed_out", "cancelled":
		return types.CheckFailure
	default:
		return types.CheckError
	}
}

var issueKeyPattern = regexp.MustCompile(`(?i)[A-Z]+-\d+|#\d+`)

// matchIssueKey resolves linked issues via a
// case-insensitive regex scan of both the PR title and source branch for
// the vendor's issue-id pattern.
func matchIssueKey(title, branch string) (string, bool) {
	if m := issueKeyPattern.FindString(title); m != "" {
		return m, true
	}
	if m := issueKeyPattern.FindString(branch); m != "" {
		return m, true
	}
	return "", false
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
