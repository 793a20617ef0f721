// Package ado implements the Connector contract against Azure DevOps:
// PAT authentication, organization/project URL parsing, per-team
// iteration discovery, and Custom.* field mapping.
package ado

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pulseplatform/pulse/internal/compliance"
	"github.com/pulseplatform/pulse/internal/connectors"
	"github.com/pulseplatform/pulse/internal/connectors/httpclient"
	"github.com/pulseplatform/pulse/internal/types"
)

const pageSize = 200

func init() {
	connectors.Register(types.SourceADO, New)
}

// Connector talks to one Azure DevOps organization/project on behalf of
// one SourceConfiguration.
type Connector struct {
	source      *types.SourceConfiguration
	client      *httpclient.Client
	org, proj   string
	deps        connectors.Deps
}

func New(source *types.SourceConfiguration, deps connectors.Deps) (connectors.Connector, error) {
	if source.EncryptedCredential == "" {
		return nil, fmt.Errorf("ado: api_token (PAT) is required")
	}
	org, proj, err := parseOrgProject(source.BaseURL)
	if err != nil {
		return nil, err
	}
	return &Connector{
		source: source,
		client: httpclient.New(source.BaseURL, "", source.EncryptedCredential, httpclient.AuthBasic),
		org:    org,
		proj:   proj,
		deps:   deps,
	}, nil
}

// parseOrgProject parses the base URL into an
// organization and optional project. Accepts
// https://dev.azure.com/{org}/{project} or https://dev.azure.com/{org}.
func parseOrgProject(baseURL string) (org, project string, err error) {
	trimmed := strings.TrimSuffix(baseURL, "/")
	idx := strings.Index(trimmed, "dev.azure.com/")
	if idx < 0 {
		return "", "", fmt.Errorf("ado: base_url must point at dev.azure.com, got %q", baseURL)
	}
	rest := trimmed[idx+len("dev.azure.com/"):]
	parts := strings.SplitN(rest, "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("ado: base_url missing organization segment")
	}
	org = parts[0]
	if len(parts) == 2 {
		project = parts[1]
	}
	return org, project, nil
}

func (c *Connector) TestConnection(ctx context.Context) error {
	var resp struct {
		Count int `json:"count"`
	}
	if err := c.client.Get(ctx, "/_apis/projects?api-version=7.0", &resp); err != nil {
		return err
	}
	return nil
}

func (c *Connector) ListFolders(ctx context.Context) ([]types.Folder, error) {
	var resp struct {
		Value []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"value"`
	}
	if err := c.client.Get(ctx, "/_apis/projects?api-version=7.0", &resp); err != nil {
		return nil, err
	}
	folders := make([]types.Folder, 0, len(resp.Value))
	for _, p := range resp.Value {
		folders = append(folders, types.Folder{ID: p.ID, Name: p.Name})
	}
	return folders, nil
}

// discoverIteration tries "{project} Team" first,
// enumerate other teams if that one has no active iteration.
func (c *Connector) discoverIteration(ctx context.Context, project string) (string, error) {
	candidates := []string{project + " Team"}

	var teamsResp struct {
		Value []struct {
			Name string `json:"name"`
		} `json:"value"`
	}
	if err := c.client.Get(ctx, fmt.Sprintf("/_apis/projects/%s/teams?api-version=7.0", project), &teamsResp); err == nil {
		for _, t := range teamsResp.Value {
			candidates = append(candidates, t.Name)
		}
	}

	for _, team := range candidates {
		var iterResp struct {
			Value []struct {
				Name string `json:"name"`
			} `json:"value"`
		}
		path := fmt.Sprintf("/%s/_apis/work/teamsettings/iterations?api-version=7.0&$timeframe=current", teamEscape(team))
		if err := c.client.Get(ctx, path, &iterResp); err != nil {
			continue
		}
		if len(iterResp.Value) > 0 {
			return iterResp.Value[0].Name, nil
		}
	}
	return "", nil
}

func teamEscape(team string) string {
	return strings.ReplaceAll(team, " ", "%20")
}

type rawWorkItem struct {
	ID     int `json:"id"`
	Fields struct {
		Title        string  `json:"System.Title"`
		Description  string  `json:"System.Description"`
		WorkItemType string  `json:"System.WorkItemType"`
		State        string  `json:"System.State"`
		AssignedTo   *adoUser `json:"System.AssignedTo"`
		Parent       *int    `json:"System.Parent"`
		StoryPoints  *float64 `json:"Microsoft.VSTS.Scheduling.StoryPoints"`

		ACQuality           string  `json:"Custom.ACQuality"`
		UnitTestingStatus   string  `json:"Custom.UnitTestingStatus"`
		ReviewerDMTSignoff  bool    `json:"Custom.ReviewerDMTSignoff"`
		AIUsagePercentage   *float64 `json:"Custom.AIUsagePercentage"`
		CoveragePercentage  *float64 `json:"Custom.CoveragePercentageChange"`
		DMTExceptionRequired bool   `json:"Custom.DMTExceptionRequired"`
	} `json:"fields"`
}

type adoUser struct {
	Descriptor  string `json:"descriptor"`
	UniqueName  string `json:"uniqueName"`
	DisplayName string `json:"displayName"`
}

func (c *Connector) Sync(ctx context.Context, in connectors.SyncInput) (connectors.SyncResult, error) {
	project := c.proj
	if project == "" {
		return connectors.SyncResult{}, fmt.Errorf("ado: no project configured in base_url")
	}
	in.Progress(20, "connecting")

	iteration, err := c.discoverIteration(ctx, project)
	if err != nil {
		return connectors.SyncResult{}, err
	}
	in.Progress(30, "discovery")

	ids, err := c.queryWorkItemIDs(ctx, project)
	if err != nil {
		return connectors.SyncResult{}, err
	}

	count := 0
	for batchStart := 0; batchStart < len(ids); batchStart += pageSize {
		end := minInt(batchStart+pageSize, len(ids))
		batch := ids[batchStart:end]

		items, err := c.fetchWorkItemBatch(ctx, batch)
		if err != nil {
			return connectors.SyncResult{}, err
		}
		for _, raw := range items {
			if err := c.transformWorkItem(in, raw, iteration); err != nil {
				return connectors.SyncResult{}, err
			}
			count++
		}
		pct := 50 + end*40/maxInt(len(ids), 1)
		in.Progress(minInt(pct, 90), fmt.Sprintf("fetched %d/%d work items", end, len(ids)))
	}

	in.Progress(95, "post-sync")
	return connectors.SyncResult{ItemCount: count}, nil
}

func (c *Connector) queryWorkItemIDs(ctx context.Context, project string) ([]int, error) {
	var resp struct {
		WorkItems []struct {
			ID int `json:"id"`
		} `json:"workItems"`
	}
	wiql := map[string]string{
		"query": fmt.Sprintf("Select [System.Id] From WorkItems Where [System.TeamProject] = '%s'", project),
	}
	if err := c.client.Post(ctx, fmt.Sprintf("/%s/_apis/wit/wiql?api-version=7.0", project), wiql, &resp); err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(resp.WorkItems))
	for _, w := range resp.WorkItems {
		ids = append(ids, w.ID)
	}
	return ids, nil
}

func (c *Connector) fetchWorkItemBatch(ctx context.Context, ids []int) ([]rawWorkItem, error) {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = strconv.Itoa(id)
	}
	var resp struct {
		Value []rawWorkItem `json:"value"`
	}
	path := fmt.Sprintf("/_apis/wit/workitems?ids=%s&api-version=7.0", strings.Join(strs, ","))
	if err := c.client.Get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

func (c *Connector) transformWorkItem(in connectors.SyncInput, raw rawWorkItem, iteration string) error {
	item := &types.WorkItem{
		SourceConfigID:     c.source.ID,
		ExternalID:         strconv.Itoa(raw.ID),
		Title:              raw.Fields.Title,
		Description:        raw.Fields.Description,
		ItemType:           mapWorkItemType(raw.Fields.WorkItemType),
		Status:             raw.Fields.State,
		StatusCategory:     mapState(raw.Fields.State),
		StoryPoints:        raw.Fields.StoryPoints,
		ACQuality:          types.ACQuality(strings.ToLower(raw.Fields.ACQuality)),
		UnitTestingStatus:  types.UnitTestingStatus(strings.ToLower(raw.Fields.UnitTestingStatus)),
		ReviewerDMTSignoff: raw.Fields.ReviewerDMTSignoff,
		CoveragePercent:    raw.Fields.CoveragePercentage,
		AIUsagePercent:     raw.Fields.AIUsagePercentage,
	}
	if raw.Fields.Parent != nil {
		p := strconv.Itoa(*raw.Fields.Parent)
		item.ParentID = &p
	}
	if iteration != "" {
		item.SprintID = &iteration
	}
	if raw.Fields.AssignedTo != nil {
		a := raw.Fields.AssignedTo
		item.AssigneeEmail = a.UniqueName
		item.AssigneeName = a.DisplayName
		user, err := c.deps.Identity.Resolve(in.Tenant, connectors.ResolveInput{
			Provider:       types.SourceADO,
			ExternalUserID: a.Descriptor,
			Email:          a.UniqueName,
			Name:           a.DisplayName,
		})
		if err != nil {
			return fmt.Errorf("ado: resolve assignee: %w", err)
		}
		item.AssigneeUserID = &user.ID
	}

	compliance.Evaluate(item, c.source.CoverageThreshold)
	if err := c.deps.Sink.UpsertWorkItem(in.Tenant, item); err != nil {
		return fmt.Errorf("ado: upsert work item %d: %w", raw.ID, err)
	}
	return nil
}

func mapWorkItemType(adoType string) types.ItemType {
	switch strings.ToLower(adoType) {
	case "bug":
		return types.ItemBug
	case "epic":
		return types.ItemEpic
	case "user story", "product backlog item":
		return types.ItemStory
	default:
		return types.ItemTask
	}
}

func mapState(state string) types.StatusCategory {
	switch strings.ToLower(state) {
	case "closed", "done", "resolved":
		return types.StatusDone
	case "active", "committed", "in progress":
		return types.StatusInProgress
	default:
		return types.StatusTodo
	}
}

// prCompletedToMerged maps Azure DevOps' Completed status to merged
// for pull requests.
func prCompletedToMerged(status string, closedAt *time.Time) (types.PRStatus, *time.Time) {
	switch strings.ToLower(status) {
	case "completed":
		return types.PRMerged, closedAt
	case "abandoned":
		return types.PRAbandoned, nil
	default:
		return types.PRActive, nil
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
