// Package jira implements the Connector contract against the Jira REST
// API: board-enumerated sprint discovery, changelog-based started_at
// reconstruction, and ADF description flattening.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pulseplatform/pulse/internal/compliance"
	"github.com/pulseplatform/pulse/internal/connectors"
	"github.com/pulseplatform/pulse/internal/connectors/httpclient"
	"github.com/pulseplatform/pulse/internal/types"
)

const pageSize = 50

func init() {
	connectors.Register(types.SourceJira, New)
}

// Connector talks to one Jira Cloud/Server site on behalf of one
// SourceConfiguration.
type Connector struct {
	source *types.SourceConfiguration
	client *httpclient.Client
	deps   connectors.Deps
}

func New(source *types.SourceConfiguration, deps connectors.Deps) (connectors.Connector, error) {
	if source.Username == "" || source.EncryptedCredential == "" {
		return nil, fmt.Errorf("jira: username and api_token are required")
	}
	return &Connector{
		source: source,
		client: httpclient.New(source.BaseURL, source.Username, source.EncryptedCredential, httpclient.AuthBasic),
		deps:   deps,
	}, nil
}

func (c *Connector) TestConnection(ctx context.Context) error {
	var me struct {
		AccountID string `json:"accountId"`
	}
	if err := c.client.Get(ctx, "/rest/api/3/myself", &me); err != nil {
		return err
	}
	if me.AccountID == "" {
		return fmt.Errorf("jira: authenticated but no accountId returned")
	}
	return nil
}

func (c *Connector) ListFolders(ctx context.Context) ([]types.Folder, error) {
	var resp struct {
		Values []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"values"`
	}
	if err := c.client.Get(ctx, "/rest/agile/1.0/board", &resp); err != nil {
		return nil, err
	}
	folders := make([]types.Folder, 0, len(resp.Values))
	for _, b := range resp.Values {
		folders = append(folders, types.Folder{ID: strconv.Itoa(b.ID), Name: b.Name})
	}
	return folders, nil
}

type rawIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Summary     string          `json:"summary"`
		Description json.RawMessage `json:"description"`
		IssueType   struct{ Name string } `json:"issuetype"`
		Status      struct {
			Name           string `json:"name"`
			StatusCategory struct {
				Key string `json:"key"`
			} `json:"statusCategory"`
		} `json:"status"`
		Assignee *struct {
			AccountID    string `json:"accountId"`
			EmailAddress string `json:"emailAddress"`
			DisplayName  string `json:"displayName"`
		} `json:"assignee"`
		Parent *struct {
			Key string `json:"key"`
		} `json:"parent"`
	} `json:"fields"`
	Changelog struct {
		Histories []changeHistory `json:"histories"`
	} `json:"changelog"`
}

type changeHistory struct {
	Created string      `json:"created"`
	Items   []changeItem `json:"items"`
}

type changeItem struct {
	Field    string `json:"field"`
	ToString string `json:"toString"`
}

func (c *Connector) Sync(ctx context.Context, in connectors.SyncInput) (connectors.SyncResult, error) {
	boardID := c.source.ActiveFolderID()
	if boardID == "" {
		return connectors.SyncResult{}, fmt.Errorf("jira: no active_folder_id (board) configured")
	}
	in.Progress(20, "connecting")

	sprintName, err := c.discoverActiveSprint(ctx, boardID)
	if err != nil {
		return connectors.SyncResult{}, err
	}
	in.Progress(30, "discovery")

	count := 0
	startAt := 0
	for {
		var page struct {
			Issues     []rawIssue `json:"issues"`
			Total      int        `json:"total"`
			MaxResults int        `json:"maxResults"`
		}
		path := fmt.Sprintf("/rest/agile/1.0/board/%s/issue?startAt=%d&maxResults=%d&expand=changelog", boardID, startAt, pageSize)
		if err := c.client.Get(ctx, path, &page); err != nil {
			return connectors.SyncResult{}, err
		}
		if len(page.Issues) == 0 {
			break
		}
		for _, raw := range page.Issues {
			if err := c.transformIssue(in, raw, sprintName); err != nil {
				return connectors.SyncResult{}, err
			}
			count++
		}
		startAt += len(page.Issues)
		pct := 50 + startAt*40/maxInt(page.Total, 1)
		in.Progress(minInt(pct, 90), fmt.Sprintf("fetched %d/%d issues", startAt, page.Total))
		if startAt >= page.Total {
			break
		}
	}

	in.Progress(95, "post-sync")
	return connectors.SyncResult{ItemCount: count}, nil
}

// discoverActiveSprint scans the board's sprint field for the currently
// active sprint name by scanning customfield_* values,
// simplified here to the dedicated sprint-query endpoint Jira Agile
// exposes for the same data.
func (c *Connector) discoverActiveSprint(ctx context.Context, boardID string) (string, error) {
	var resp struct {
		Values []struct {
			Name  string `json:"name"`
			State string `json:"state"`
		} `json:"values"`
	}
	if err := c.client.Get(ctx, "/rest/agile/1.0/board/"+boardID+"/sprint?state=active", &resp); err != nil {
		return "", err
	}
	if len(resp.Values) == 0 {
		return "", nil
	}
	return resp.Values[0].Name, nil
}

func (c *Connector) transformIssue(in connectors.SyncInput, raw rawIssue, sprintName string) error {
	item := &types.WorkItem{
		SourceConfigID: c.source.ID,
		ExternalID:     raw.Key,
		Title:          raw.Fields.Summary,
		Description:    flattenADF(raw.Fields.Description),
		ItemType:       mapIssueType(raw.Fields.IssueType.Name),
		Status:         raw.Fields.Status.Name,
		StatusCategory: mapStatusCategory(raw.Fields.Status.StatusCategory.Key),
	}
	if raw.Fields.Parent != nil {
		item.ParentID = &raw.Fields.Parent.Key
	}
	if sprintName != "" {
		item.SprintID = &sprintName
	}
	if raw.Fields.Assignee != nil {
		a := raw.Fields.Assignee
		item.AssigneeEmail = a.EmailAddress
		item.AssigneeName = a.DisplayName
		user, err := c.deps.Identity.Resolve(in.Tenant, connectors.ResolveInput{
			Provider:       types.SourceJira,
			ExternalUserID: a.AccountID,
			Email:          a.EmailAddress,
			Name:           a.DisplayName,
		})
		if err != nil {
			return fmt.Errorf("jira: resolve assignee: %w", err)
		}
		item.AssigneeUserID = &user.ID
	}

	if started, ok := reconstructStartedAt(raw.Changelog.Histories); ok {
		item.StartedAt = &started
	}

	compliance.Evaluate(item, c.source.CoverageThreshold)
	if err := c.deps.Sink.UpsertWorkItem(in.Tenant, item); err != nil {
		return fmt.Errorf("jira: upsert work item %s: %w", raw.Key, err)
	}
	return nil
}

func mapIssueType(name string) types.ItemType {
	switch strings.ToLower(name) {
	case "bug":
		return types.ItemBug
	case "epic":
		return types.ItemEpic
	case "story":
		return types.ItemStory
	default:
		return types.ItemTask
	}
}

func mapStatusCategory(key string) types.StatusCategory {
	switch key {
	case "done":
		return types.StatusDone
	case "indeterminate":
		return types.StatusInProgress
	default:
		return types.StatusTodo
	}
}

var inProgressPattern = regexp.MustCompile(`(?i)in progress|active|development`)

// reconstructStartedAt derives started_at as the
// first changelog transition into a status whose name matches
// "in progress"/"active"/"development". Histories are assumed in
// chronological order, as the Jira API returns them.
func reconstructStartedAt(histories []changeHistory) (time.Time, bool) {
	for _, h := range histories {
		for _, item := range h.Items {
			if item.Field != "status" {
				continue
			}
			if inProgressPattern.MatchString(item.ToString) {
				t, err := time.Parse("2006-01-02T15:04:05.000-0700", h.Created)
				if err != nil {
					continue
				}
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// flattenADF concatenates every "text" leaf in an Atlassian Document
// Format description. Falls back to treating the raw value
// as a plain string for servers that still return one.
func flattenADF(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var node adfNode
	if err := json.Unmarshal(raw, &node); err != nil {
		return ""
	}
	var sb strings.Builder
	collectADFText(node, &sb)
	return strings.TrimSpace(sb.String())
}

type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text"`
	Content []adfNode `json:"content"`
}

func collectADFText(n adfNode, sb *strings.Builder) {
	if n.Type == "text" {
		sb.WriteString(n.Text)
		sb.WriteString(" ")
	}
	for _, child := range n.Content {
		collectADFText(child, sb)
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
