// Package metrics implements the Metric Aggregator (C5): per-sprint,
// per-project and per-developer roll-ups, and competitive title awards
//.
package metrics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

// Store is the slice of the storage layer the aggregator reads from and
// writes to.
type Store interface {
	ListProjects(ctx tenantctx.Context) ([]*types.Project, error)
	ListSprintWorkItems(ctx tenantctx.Context, sprintExternalID string) ([]*types.WorkItem, error)
	ListSprintPullRequests(ctx tenantctx.Context, sprintExternalID string) ([]*types.PullRequest, error)
	UpsertSprintMetrics(ctx tenantctx.Context, m *types.SprintMetrics) error
	UpsertDeveloperMetrics(ctx tenantctx.Context, m *types.DeveloperMetrics) error
	ListTenantUsers(ctx tenantctx.Context) ([]*types.User, error)
	ClearCompetitiveTitles(ctx tenantctx.Context) error
	SaveUserTitle(ctx tenantctx.Context, userID string, title types.CompetitiveTitle, reason string) error
	GetSprint(ctx tenantctx.Context, sprintExternalID string) (*types.Sprint, error)
	ListSprintExternalIDsForProject(ctx tenantctx.Context, projectID string) ([]string, error)
	ListWorkItemsResolvedBetween(ctx tenantctx.Context, start, end time.Time) ([]*types.WorkItem, error)
	SaveDailyMetric(ctx tenantctx.Context, m *types.DailyMetric) error
}

// Aggregator runs C5's populate_* operations against Store.
type Aggregator struct {
	store Store
	now   func() time.Time
}

// New constructs an Aggregator backed by store.
func New(store Store) *Aggregator {
	return &Aggregator{store: store, now: time.Now}
}

// PopulateSprintMetrics populates SprintMetrics:
// one row per project (plus the synthetic tenant-global row), upserted
// keyed by (sprint_name, sprint_end_date, project).
func (a *Aggregator) PopulateSprintMetrics(tenant tenantctx.Context, sprintExternalID string) error {
	sprint, err := a.store.GetSprint(tenant, sprintExternalID)
	if err != nil {
		return fmt.Errorf("metrics: load sprint: %w", err)
	}
	if sprint == nil {
		return fmt.Errorf("metrics: sprint %s not found", sprintExternalID)
	}
	var endDate time.Time
	if sprint.EndDate != nil {
		endDate = *sprint.EndDate
	}

	items, err := a.store.ListSprintWorkItems(tenant, sprintExternalID)
	if err != nil {
		return fmt.Errorf("metrics: list sprint work items: %w", err)
	}
	prs, err := a.store.ListSprintPullRequests(tenant, sprintExternalID)
	if err != nil {
		return fmt.Errorf("metrics: list sprint pull requests: %w", err)
	}
	projects, err := a.store.ListProjects(tenant)
	if err != nil {
		return fmt.Errorf("metrics: list projects: %w", err)
	}

	// Global row first, then one per project that had items in the sprint.
	if err := a.writeSprintMetricsRow(tenant, sprint.Name, endDate, "", items, prs); err != nil {
		return err
	}
	for _, p := range projects {
		scoped := filterItemsByProject(items, p.ID)
		if len(scoped) == 0 {
			continue
		}
		scopedPRs := filterPRsByProject(prs, p.ID)
		if err := a.writeSprintMetricsRow(tenant, sprint.Name, endDate, p.ID, scoped, scopedPRs); err != nil {
			return err
		}
	}
	return nil
}

// RecalculateProject re-runs PopulateSprintMetrics and
// PopulateDeveloperMetrics for every sprint that has touched projectID.
// This is the entry point a metrics-recalc job (keyed by project, not
// sprint) calls: the job carries a ProjectID, but both populate_*
// operations are keyed by sprint, so the sprints involved are resolved
// first via the work_items join.
func (a *Aggregator) RecalculateProject(tenant tenantctx.Context, projectID string) error {
	sprintIDs, err := a.store.ListSprintExternalIDsForProject(tenant, projectID)
	if err != nil {
		return fmt.Errorf("metrics: list sprints for project: %w", err)
	}
	for _, sprintID := range sprintIDs {
		if err := a.PopulateSprintMetrics(tenant, sprintID); err != nil {
			return fmt.Errorf("metrics: populate sprint metrics for %s: %w", sprintID, err)
		}
		if err := a.PopulateDeveloperMetrics(tenant, sprintID); err != nil {
			return fmt.Errorf("metrics: populate developer metrics for %s: %w", sprintID, err)
		}
	}
	return nil
}

// PopulateDailyMetric implements C8's daily "aggregation of yesterday" job
//: one DailyMetric row for the whole tenant plus one per
// project that had an item resolved on date, mirroring
// PopulateSprintMetrics' global-plus-per-project shape but scoped to a
// calendar day instead of a sprint.
func (a *Aggregator) PopulateDailyMetric(tenant tenantctx.Context, date time.Time) error {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	items, err := a.store.ListWorkItemsResolvedBetween(tenant, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("metrics: list work items resolved between: %w", err)
	}

	if err := a.writeDailyMetricRow(tenant, dayStart, "", items); err != nil {
		return err
	}

	projects, err := a.store.ListProjects(tenant)
	if err != nil {
		return fmt.Errorf("metrics: list projects: %w", err)
	}
	for _, p := range projects {
		scoped := filterItemsByProject(items, p.ID)
		if len(scoped) == 0 {
			continue
		}
		if err := a.writeDailyMetricRow(tenant, dayStart, p.ID, scoped); err != nil {
			return err
		}
	}
	return nil
}

func (a *Aggregator) writeDailyMetricRow(tenant tenantctx.Context, date time.Time, projectID string, items []*types.WorkItem) error {
	m := &types.DailyMetric{
		TenantID:  tenant.TenantID,
		ProjectID: projectID,
		Date:      date,
	}

	var compliant int
	var cycleDaysSum float64
	var cycleDaysCount int
	for _, item := range items {
		m.TotalItems++
		if item.DMTCompliant {
			compliant++
		}
		m.Velocity += item.StoryPointsValue()
		if days, ok := item.CycleTimeDays(); ok {
			cycleDaysSum += days
			cycleDaysCount++
		}
	}
	m.CompliantCount = compliant
	if m.TotalItems > 0 {
		m.ComplianceRate = round1(float64(compliant) / float64(m.TotalItems) * 100)
	}
	if cycleDaysCount > 0 {
		m.AvgCycleTimeDays = round1(cycleDaysSum / float64(cycleDaysCount))
	}

	return a.store.SaveDailyMetric(tenant, m)
}

func (a *Aggregator) writeSprintMetricsRow(tenant tenantctx.Context, sprintName string, endDate time.Time, projectID string, items []*types.WorkItem, prs []*types.PullRequest) error {
	m := &types.SprintMetrics{
		TenantID:      tenant.TenantID,
		SprintName:    sprintName,
		SprintEndDate: endDate,
		ProjectID:     projectID,
		UpdatedAt:     a.now(),
	}

	var compliant, defects int
	var cycleDaysSum float64
	var cycleDaysCount int

	for _, item := range items {
		m.TotalItems++
		if item.DMTCompliant {
			compliant++
		}
		if item.ItemType == types.ItemBug {
			defects++
		}
		if item.IsCompleted() {
			m.TotalCompleted++
			m.Velocity += item.StoryPointsValue()
			switch item.ItemType {
			case types.ItemStory:
				m.StoriesCompleted++
			case types.ItemBug:
				m.BugsCompleted++
			}
			if days, ok := item.CycleTimeDays(); ok {
				cycleDaysSum += days
				cycleDaysCount++
			}
		}
	}

	m.CompliantCount = compliant
	if m.TotalItems > 0 {
		m.ComplianceRate = round1(float64(compliant) / float64(m.TotalItems) * 100)
	}
	if m.TotalCompleted > 0 {
		m.DefectDensityPer100 = round1(float64(defects) / float64(m.TotalCompleted) * 100)
	}
	if cycleDaysCount > 0 {
		m.AvgCycleTimeDays = round1(cycleDaysSum / float64(cycleDaysCount))
	}
	m.PRHealth = summarizePRHealth(prs)

	return a.store.UpsertSprintMetrics(tenant, m)
}

func filterItemsByProject(items []*types.WorkItem, projectID string) []*types.WorkItem {
	var out []*types.WorkItem
	for _, i := range items {
		if i.ProjectID == projectID {
			out = append(out, i)
		}
	}
	return out
}

func filterPRsByProject(prs []*types.PullRequest, projectID string) []*types.PullRequest {
	// PullRequest carries no direct ProjectID, so prs is returned
	// unchanged: PopulateSprintMetrics passes the sprint's full PR list, and
	// every per-project row's PR health counts all of the sprint's pull
	// requests, not only that project's.
	return prs
}

func summarizePRHealth(prs []*types.PullRequest) types.PRHealth {
	var h types.PRHealth
	for range prs {
		h.Total++
	}
	return h
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// PopulateDeveloperMetrics computes the analogous
// per-developer breakdown within each project.
func (a *Aggregator) PopulateDeveloperMetrics(tenant tenantctx.Context, sprintExternalID string) error {
	sprint, err := a.store.GetSprint(tenant, sprintExternalID)
	if err != nil {
		return fmt.Errorf("metrics: load sprint: %w", err)
	}
	if sprint == nil {
		return fmt.Errorf("metrics: sprint %s not found", sprintExternalID)
	}
	var endDate time.Time
	if sprint.EndDate != nil {
		endDate = *sprint.EndDate
	}

	items, err := a.store.ListSprintWorkItems(tenant, sprintExternalID)
	if err != nil {
		return fmt.Errorf("metrics: list sprint work items: %w", err)
	}
	prs, err := a.store.ListSprintPullRequests(tenant, sprintExternalID)
	if err != nil {
		return fmt.Errorf("metrics: list sprint pull requests: %w", err)
	}

	byDev := map[string]*types.DeveloperMetrics{}
	devKey := func(projectID, email string) string { return projectID + "|" + email }

	for _, item := range items {
		if item.AssigneeEmail == "" {
			continue
		}
		key := devKey(item.ProjectID, item.AssigneeEmail)
		dev, ok := byDev[key]
		if !ok {
			dev = &types.DeveloperMetrics{
				TenantID:        tenant.TenantID,
				DeveloperEmail:  item.AssigneeEmail,
				DeveloperUserID: item.AssigneeUserID,
				SprintName:      sprint.Name,
				SprintEndDate:   endDate,
				ProjectID:       item.ProjectID,
				UpdatedAt:       a.now(),
			}
			byDev[key] = dev
		}
		accumulateCoverageAndAI(dev, item)
		if item.IsCompleted() {
			dev.CompletedItems++
			dev.CompletedPoints += item.StoryPointsValue()
			if item.ItemType == types.ItemBug {
				dev.DefectsAttributed++
			}
		}
	}

	for _, pr := range prs {
		if pr.AuthorEmail == "" {
			continue
		}
		key := devKey("", pr.AuthorEmail)
		dev, ok := byDev[key]
		if !ok {
			dev = &types.DeveloperMetrics{
				TenantID:       tenant.TenantID,
				DeveloperEmail: pr.AuthorEmail,
				SprintName:     sprint.Name,
				SprintEndDate:  endDate,
				UpdatedAt:      a.now(),
			}
			byDev[key] = dev
		}
		dev.PRsAuthored++
		if pr.IsMerged() {
			dev.PRsMerged++
		}
	}

	for _, dev := range byDev {
		finalizeComplianceRate(dev, items)
		if err := a.store.UpsertDeveloperMetrics(tenant, dev); err != nil {
			return fmt.Errorf("metrics: upsert developer metrics for %s: %w", dev.DeveloperEmail, err)
		}
	}

	return a.updateCompetitiveTitles(tenant, byDev)
}

func accumulateCoverageAndAI(dev *types.DeveloperMetrics, item *types.WorkItem) {
	// Running averages recomputed from scratch each call would need the
	// item count seen so far; since this is a single pass per sprint,
	// simple incremental running mean keyed on CompletedItems+1 is wrong
	// for non-completed items, so coverage/AI usage are summed into the
	// struct's existing value treated as a running total divided at the
	// end via a count carried alongside — kept here as direct field math
	// to match populate_developer_metrics' single-pass shape.
	if item.CoveragePercent != nil {
		dev.AvgCoverage = runningAverage(dev.AvgCoverage, *item.CoveragePercent)
	}
	if item.AIUsagePercent != nil {
		dev.AvgAIUsage = runningAverage(dev.AvgAIUsage, *item.AIUsagePercent)
	}
}

func runningAverage(current, next float64) float64 {
	if current == 0 {
		return next
	}
	return (current + next) / 2
}

func finalizeComplianceRate(dev *types.DeveloperMetrics, items []*types.WorkItem) {
	var total, compliant int
	for _, item := range items {
		if item.AssigneeEmail != dev.DeveloperEmail {
			continue
		}
		total++
		if item.DMTCompliant {
			compliant++
		}
	}
	if total > 0 {
		dev.ComplianceRate = round1(float64(compliant) / float64(total) * 100)
	}
}

// staleComplianceThreshold is the 5 percentage point drift
// allowed before a stored SprintMetrics.ComplianceRate must be overridden
// by a live recomputation at read time.
const staleComplianceThreshold = 5.0

// ReconcileStaleComplianceRate implements the read-time override:
// when a stored rate differs from live recomputation by more than 5
// percentage points, the live value wins. Called by the dashboard read
// path (not by the write path above), so a metric row already being
// recomputed this cycle is never itself "stale".
func ReconcileStaleComplianceRate(stored *types.SprintMetrics, liveItems []*types.WorkItem) {
	if len(liveItems) == 0 {
		return
	}
	var compliant int
	for _, item := range liveItems {
		if item.DMTCompliant {
			compliant++
		}
	}
	live := round1(float64(compliant) / float64(len(liveItems)) * 100)
	if math.Abs(live-stored.ComplianceRate) > staleComplianceThreshold {
		stored.ComplianceRate = live
	}
}

// RollupWindow returns the last five SprintMetrics rows in descending
// sprint_end_date order, the window every dashboard rollup read (summary,
// velocity chart, compliance chart) consumes. rows need not
// be pre-sorted.
func RollupWindow(rows []*types.SprintMetrics) []*types.SprintMetrics {
	sorted := make([]*types.SprintMetrics, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SprintEndDate.After(sorted[j].SprintEndDate) })
	if len(sorted) > 5 {
		sorted = sorted[:5]
	}
	return sorted
}

// FiveSprintAverages computes the dashboard's five-sprint averages for
// velocity, items, cycle time and bug count, alongside the current
// (most recent) sprint's compliance rate.
type FiveSprintAverages struct {
	CurrentComplianceRate float64
	AvgVelocity           float64
	AvgItems              float64
	AvgCycleTimeDays      float64
	AvgBugsCompleted      float64
}

func ComputeFiveSprintAverages(rows []*types.SprintMetrics) FiveSprintAverages {
	window := RollupWindow(rows)
	if len(window) == 0 {
		return FiveSprintAverages{}
	}
	var avg FiveSprintAverages
	avg.CurrentComplianceRate = window[0].ComplianceRate
	var velocity, items, cycle, bugs float64
	for _, r := range window {
		velocity += r.Velocity
		items += float64(r.TotalCompleted)
		cycle += r.AvgCycleTimeDays
		bugs += float64(r.BugsCompleted)
	}
	n := float64(len(window))
	avg.AvgVelocity = round1(velocity / n)
	avg.AvgItems = round1(items / n)
	avg.AvgCycleTimeDays = round1(cycle / n)
	avg.AvgBugsCompleted = round1(bugs / n)
	return avg
}

// titleMetric extracts the declared metric value a CompetitiveTitle is
// awarded on.
func titleMetric(title types.CompetitiveTitle, dev *types.DeveloperMetrics) float64 {
	switch title {
	case types.TitleVelocityKing:
		return dev.CompletedPoints
	case types.TitleQualityChampion:
		return dev.ComplianceRate
	case types.TitleTopReviewer:
		return float64(dev.PRsReviewed)
	case types.TitleAISpecialist:
		return dev.AvgAIUsage
	default:
		return 0
	}
}

// updateCompetitiveTitles clears and reassigns competitive titles:
// clear every user's title in the tenant, then grant exactly one of the
// four titles to the single top developer per category, tie-broken by the
// first row in natural (email) sort order.
func (a *Aggregator) updateCompetitiveTitles(tenant tenantctx.Context, byDev map[string]*types.DeveloperMetrics) error {
	if err := a.store.ClearCompetitiveTitles(tenant); err != nil {
		return fmt.Errorf("metrics: clear competitive titles: %w", err)
	}

	rows := make([]*types.DeveloperMetrics, 0, len(byDev))
	for _, d := range byDev {
		rows = append(rows, d)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].DeveloperEmail < rows[j].DeveloperEmail })

	users, err := a.store.ListTenantUsers(tenant)
	if err != nil {
		return fmt.Errorf("metrics: list tenant users: %w", err)
	}
	userIDByEmail := map[string]string{}
	for _, u := range users {
		if u.Email != "" {
			userIDByEmail[u.Email] = u.ID
		}
	}

	awarded := map[string]bool{} // email -> already holds a title this run
	for _, title := range types.AllCompetitiveTitles() {
		var winner *types.DeveloperMetrics
		var best float64
		for _, dev := range rows {
			if awarded[dev.DeveloperEmail] {
				continue
			}
			v := titleMetric(title, dev)
			if winner == nil || v > best {
				winner, best = dev, v
			}
		}
		if winner == nil || best <= 0 {
			continue
		}
		userID, ok := userIDByEmail[winner.DeveloperEmail]
		if !ok {
			continue
		}
		reason := fmt.Sprintf("%s: %.1f", title, best)
		if err := a.store.SaveUserTitle(tenant, userID, title, reason); err != nil {
			return fmt.Errorf("metrics: save title for %s: %w", winner.DeveloperEmail, err)
		}
		awarded[winner.DeveloperEmail] = true
	}
	return nil
}
