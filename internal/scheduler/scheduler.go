package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/pulseplatform/pulse/internal/types"
)

// TenantLister is the slice of the storage layer the scheduler needs to
// fan daily jobs out across every active tenant.
type TenantLister interface {
	ListActiveTenants() ([]*types.Tenant, error)
	ListProjectsForTenant(tenantID string) ([]*types.Project, error)
	ListSourcesForTenant(tenantID string) ([]*types.SourceConfiguration, error)
}

// dailyTriggerHour is the UTC hour the retention sweep and DailyMetric
// aggregation fire at: daily 02:00 UTC.
const dailyTriggerHour = 2

// JobQueue is the slice of Queue the scheduler enqueues onto; narrowed to
// an interface so tests can swap in a fake without a live JetStream
// context.
type JobQueue interface {
	EnqueueSync(tenantID, sourceID, projectID, reason string) error
	EnqueueMetricsRecalc(tenantID, projectID string) error
	EnqueueRetentionSweep(tenantID string) error
	EnqueueAIInsightRefresh(tenantID, projectID string) error
}

// Scheduler runs a ticker loop that fires the daily retention sweep and
// per-tenant DailyMetric aggregation once per UTC day, in addition to
// accepting on-demand enqueues via its Queue.
type Scheduler struct {
	tenants       TenantLister
	queue         JobQueue
	checkInterval time.Duration
	now           func() time.Time

	lastDailyRun time.Time
}

// New builds a Scheduler. checkInterval controls how often the ticker
// wakes to check whether the daily trigger hour has passed; one minute
// is a reasonable default in production.
func New(tenants TenantLister, queue JobQueue, checkInterval time.Duration) *Scheduler {
	return &Scheduler{
		tenants:       tenants,
		queue:         queue,
		checkInterval: checkInterval,
		now:           time.Now,
	}
}

// Start runs the scheduler loop until ctx is cancelled, mirroring the
// teacher's CleanupService.Start ticker-with-ctx.Done shape.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	log.Println("[scheduler] started")

	for {
		select {
		case <-ctx.Done():
			log.Println("[scheduler] stopped")
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick fires the daily jobs at most once per UTC calendar day, once the
// trigger hour has passed.
func (s *Scheduler) tick() {
	now := s.now().UTC()
	if now.Hour() < dailyTriggerHour {
		return
	}
	if sameUTCDay(s.lastDailyRun, now) {
		return
	}

	s.runDailyJobs()
	s.lastDailyRun = now
}

func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// runDailyJobs enqueues, for every active tenant, the retention sweep
// (whose job also runs the tenant's DailyMetric aggregation for the
// previous day) and a metrics recalculation for each of its projects.
// Per-tenant failures are logged and skipped rather than aborting the
// whole run, so one misbehaving tenant never blocks another's daily jobs.
func (s *Scheduler) runDailyJobs() {
	tenants, err := s.tenants.ListActiveTenants()
	if err != nil {
		log.Printf("[scheduler] failed to list active tenants: %v", err)
		return
	}

	for _, tenant := range tenants {
		if err := s.queue.EnqueueRetentionSweep(tenant.ID); err != nil {
			log.Printf("[scheduler] failed to enqueue retention sweep for tenant %s: %v", tenant.ID, err)
		}

		projects, err := s.tenants.ListProjectsForTenant(tenant.ID)
		if err != nil {
			log.Printf("[scheduler] failed to list projects for tenant %s: %v", tenant.ID, err)
			continue
		}
		for _, project := range projects {
			if err := s.queue.EnqueueMetricsRecalc(tenant.ID, project.ID); err != nil {
				log.Printf("[scheduler] failed to enqueue daily metrics for tenant %s project %s: %v", tenant.ID, project.ID, err)
			}
		}
	}
}

// TriggerSyncNow enqueues an on-demand sync for every source configured
// for tenantID.
func (s *Scheduler) TriggerSyncNow(tenantID string) error {
	sources, err := s.tenants.ListSourcesForTenant(tenantID)
	if err != nil {
		return err
	}
	for _, src := range sources {
		if err := s.queue.EnqueueSync(tenantID, src.ID, src.ProjectID, "on_demand"); err != nil {
			log.Printf("[scheduler] failed to enqueue on-demand sync for source %s: %v", src.ID, err)
		}
	}
	return nil
}
