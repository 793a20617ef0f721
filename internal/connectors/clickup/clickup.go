// Package clickup implements the Connector contract against the ClickUp
// API: sprint-folder detection, parent/child point summing, and
// orderindex-resolved custom dropdown fields.
package clickup

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pulseplatform/pulse/internal/connectors"
	"github.com/pulseplatform/pulse/internal/connectors/httpclient"
	"github.com/pulseplatform/pulse/internal/compliance"
	"github.com/pulseplatform/pulse/internal/types"
)

const pageSize = 100

func init() {
	connectors.Register(types.SourceClickUp, New)
}

// Connector talks to one ClickUp workspace on behalf of one SourceConfiguration.
type Connector struct {
	source *types.SourceConfiguration
	client *httpclient.Client
	deps   connectors.Deps
}

// New builds a clickup.Connector, satisfying connectors.Constructor.
func New(source *types.SourceConfiguration, deps connectors.Deps) (connectors.Connector, error) {
	if source.EncryptedCredential == "" {
		return nil, fmt.Errorf("clickup: api_token is required")
	}
	return &Connector{
		source: source,
		client: httpclient.New(source.BaseURL, "", source.EncryptedCredential, httpclient.AuthBearer),
		deps:   deps,
	}, nil
}

func (c *Connector) TestConnection(ctx context.Context) error {
	var me struct {
		User struct {
			ID int `json:"id"`
		} `json:"user"`
	}
	if err := c.client.Get(ctx, "/user", &me); err != nil {
		return err
	}
	if me.User.ID == 0 {
		return fmt.Errorf("clickup: authenticated but no user id returned")
	}
	return nil
}

func (c *Connector) ListFolders(ctx context.Context) ([]types.Folder, error) {
	var spaces struct {
		Spaces []struct {
			ID string `json:"id"`
		} `json:"spaces"`
	}
	if err := c.client.Get(ctx, "/team/"+c.source.WorkspaceID+"/space", &spaces); err != nil {
		return nil, err
	}

	var folders []types.Folder
	for _, space := range spaces.Spaces {
		var resp struct {
			Folders []rawFolder `json:"folders"`
		}
		if err := c.client.Get(ctx, "/space/"+space.ID+"/folder", &resp); err != nil {
			return nil, err
		}
		for _, f := range resp.Folders {
			folders = append(folders, types.Folder{ID: f.ID, Name: f.Name})
		}
	}
	return folders, nil
}

type rawFolder struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	IsSprintFlag bool       `json:"is_sprint_folder"`
	Lists        []rawList  `json:"lists"`
}

type rawList struct {
	ID string `json:"id"`
}

// isSprintFolder treats a folder as a sprint when it is explicitly
// flagged is_sprint_folder, or whose name contains "sprint" (case
// insensitive), groups its lists into Sprint rows.
func isSprintFolder(f rawFolder) bool {
	return f.IsSprintFlag || strings.Contains(strings.ToLower(f.Name), "sprint")
}

// sprintKey is the stable Sprint.ExternalID for a ClickUp list inside a
// sprint folder.
func sprintKey(listID string) string {
	return "clickup_sprint_" + listID
}

func (c *Connector) Sync(ctx context.Context, in connectors.SyncInput) (connectors.SyncResult, error) {
	folderID := c.source.ActiveFolderID()
	if folderID == "" {
		return connectors.SyncResult{}, fmt.Errorf("clickup: no active_folder_id configured")
	}
	in.Progress(20, "connecting")

	var folder rawFolder
	if err := c.client.Get(ctx, "/folder/"+folderID, &folder); err != nil {
		return connectors.SyncResult{}, err
	}
	in.Progress(25, "discovery")

	sprintFolder := isSprintFolder(folder)
	if sprintFolder {
		for _, list := range folder.Lists {
			if err := c.deps.Sink.UpsertSprint(in.Tenant, &types.Sprint{
				ExternalID: sprintKey(list.ID),
			}); err != nil {
				return connectors.SyncResult{}, err
			}
		}
	}

	byParent := map[string][]*types.WorkItem{}
	count := 0
	total := len(folder.Lists)
	for i, list := range folder.Lists {
		items, err := c.syncList(ctx, in, list.ID, sprintFolder)
		if err != nil {
			return connectors.SyncResult{}, err
		}
		for _, item := range items {
			if item.HasParent() {
				byParent[*item.ParentID] = append(byParent[*item.ParentID], item)
			}
		}
		count += len(items)
		pct := 50 + (i+1)*40/maxInt(total, 1)
		in.Progress(pct, fmt.Sprintf("fetched list %s", list.ID))
	}

	c.backfillParents(in, byParent)

	in.Progress(95, "post-sync")
	return connectors.SyncResult{ItemCount: count}, nil
}

type rawTask struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	TextContent string          `json:"text_content"`
	Parent      string          `json:"parent"`
	Points      *float64        `json:"points"`
	Status      rawTaskStatus   `json:"status"`
	Assignees   []rawAssignee   `json:"assignees"`
	CustomFields []rawCustomFld `json:"custom_fields"`
}

type rawTaskStatus struct {
	Status string `json:"status"`
	Type   string `json:"type"` // "open", "custom", "closed"
}

type rawAssignee struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Name  string `json:"username"`
}

type rawCustomFld struct {
	Name  string   `json:"name"`
	Value any      `json:"value"`
	Type  string   `json:"type"`
	Options []struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		OrderIndex int    `json:"orderindex"`
	} `json:"type_config_options"`
}

func (c *Connector) syncList(ctx context.Context, in connectors.SyncInput, listID string, sprintFolder bool) ([]*types.WorkItem, error) {
	var items []*types.WorkItem
	for page := 0; ; page++ {
		var resp struct {
			Tasks []rawTask `json:"tasks"`
		}
		path := fmt.Sprintf("/list/%s/task?subtasks=true&include_closed=true&page=%d&limit=%d", listID, page, pageSize)
		if err := c.client.Get(ctx, path, &resp); err != nil {
			return nil, err
		}
		if len(resp.Tasks) == 0 {
			break
		}
		for _, raw := range resp.Tasks {
			item, err := c.transformTask(in, raw, listID, sprintFolder)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		if len(resp.Tasks) < pageSize {
			break
		}
	}
	return items, nil
}

func (c *Connector) transformTask(in connectors.SyncInput, raw rawTask, listID string, sprintFolder bool) (*types.WorkItem, error) {
	item := &types.WorkItem{
		SourceConfigID: c.source.ID,
		ExternalID:     raw.ID,
		Title:          raw.Name,
		Description:    raw.TextContent,
		ItemType:       types.ItemTask,
		Status:         raw.Status.Status,
		StatusCategory: mapStatusCategory(raw.Status.Type),
		StoryPoints:    raw.Points,
	}
	if raw.Parent != "" {
		item.ParentID = &raw.Parent
	}
	if sprintFolder {
		key := sprintKey(listID)
		item.SprintID = &key
	}
	if len(raw.Assignees) > 0 {
		a := raw.Assignees[0]
		item.AssigneeEmail = a.Email
		item.AssigneeName = a.Name
		user, err := c.deps.Identity.Resolve(in.Tenant, connectors.ResolveInput{
			Provider:       types.SourceClickUp,
			ExternalUserID: strconv.Itoa(a.ID),
			Email:          a.Email,
			Name:           a.Name,
		})
		if err != nil {
			return nil, fmt.Errorf("clickup: resolve assignee: %w", err)
		}
		item.AssigneeUserID = &user.ID
	}

	applyCustomFields(item, raw.CustomFields)
	compliance.Evaluate(item, c.source.CoverageThreshold)

	if err := c.deps.Sink.UpsertWorkItem(in.Tenant, item); err != nil {
		return nil, fmt.Errorf("clickup: upsert work item %s: %w", raw.ID, err)
	}
	return item, nil
}

func mapStatusCategory(clickupType string) types.StatusCategory {
	switch clickupType {
	case "closed", "done":
		return types.StatusDone
	case "custom":
		return types.StatusInProgress
	default:
		return types.StatusTodo
	}
}

// resolveDropdown maps a dropdown custom field's raw orderindex/id value to
// its option name via orderindex or id, never the raw index.
func resolveDropdown(f rawCustomFld) string {
	var idx int
	switch v := f.Value.(type) {
	case float64:
		idx = int(v)
	case string:
		for _, opt := range f.Options {
			if opt.ID == v {
				return opt.Name
			}
		}
		return v
	default:
		return ""
	}
	for _, opt := range f.Options {
		if opt.OrderIndex == idx {
			return opt.Name
		}
	}
	return ""
}

func applyCustomFields(item *types.WorkItem, fields []rawCustomFld) {
	for _, f := range fields {
		switch strings.ToLower(f.Name) {
		case "ac quality", "ac_quality":
			item.ACQuality = types.ACQuality(strings.ToLower(resolveDropdown(f)))
		case "unit testing status", "unit_testing_status":
			item.UnitTestingStatus = types.UnitTestingStatus(strings.ToLower(resolveDropdown(f)))
		case "coverage", "coverage_percent":
			if v, ok := f.Value.(float64); ok {
				item.CoveragePercent = &v
			}
		case "ai usage", "ai_usage_percent":
			if v, ok := f.Value.(float64); ok {
				item.AIUsagePercent = &v
			}
		case "reviewer dmt signoff":
			if v, ok := f.Value.(bool); ok {
				item.ReviewerDMTSignoff = v
			}
		}
	}
}

// backfillParents implements the post-sync pass: sum child story_points
// into a parent whose own points are null/zero, and average
// ai_usage_percent across children.
func (c *Connector) backfillParents(in connectors.SyncInput, byParent map[string][]*types.WorkItem) {
	for parentID, children := range byParent {
		parent, err := c.lookupParent(in, parentID)
		if err != nil || parent == nil {
			continue
		}

		needsPoints := parent.StoryPoints == nil || *parent.StoryPoints == 0
		if needsPoints {
			var sum float64
			for _, child := range children {
				sum += child.StoryPointsValue()
			}
			parent.StoryPoints = &sum
		}

		var total float64
		var n int
		for _, child := range children {
			if child.AIUsagePercent != nil {
				total += *child.AIUsagePercent
				n++
			}
		}
		if n > 0 {
			avg := total / float64(n)
			parent.AIUsagePercent = &avg
		}

		compliance.Evaluate(parent, c.source.CoverageThreshold)
		c.deps.Sink.UpsertWorkItem(in.Tenant, parent)
	}
}

func (c *Connector) lookupParent(in connectors.SyncInput, parentID string) (*types.WorkItem, error) {
	return c.deps.Sink.GetWorkItemByExternalID(in.Tenant, c.source.ID, parentID)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
