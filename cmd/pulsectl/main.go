// Command pulsectl is the operator CLI against a pulse database: listing
// tenants/sources, triggering an on-demand sync, running a tenant's
// retention sweep synchronously, and tailing recent TaskLog rows.
// Flag-based action dispatch plus a
// -json toggle, but driven through the storage.Store abstraction rather
// than raw SQL, since this repo already has one.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/pulseplatform/pulse/internal/config"
	"github.com/pulseplatform/pulse/internal/scheduler"
	"github.com/pulseplatform/pulse/internal/storage"
	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

func main() {
	configPath := flag.String("config", "configs/pulse.yaml", "Configuration file")
	tenantID := flag.String("tenant", "", "Tenant ID")
	sourceID := flag.String("source", "", "Source ID, for sync trigger")
	limit := flag.Int("limit", 20, "Row limit, for tasklog tail")
	jsonOutput := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		usage()
		os.Exit(1)
	}
	resource, action := args[0], args[1]

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pulsectl: %v\n", err)
		os.Exit(1)
	}
	store, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pulsectl: open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case resource == "tenants" && action == "list":
		err = cmdTenantsList(store, *jsonOutput)
	case resource == "sources" && action == "list":
		err = cmdSourcesList(store, *tenantID, *jsonOutput)
	case resource == "sync" && action == "trigger":
		err = cmdSyncTrigger(store, cfg, *tenantID, *sourceID)
	case resource == "retention" && action == "run":
		err = cmdRetentionRun(store, *tenantID)
	case resource == "tasklog" && action == "tail":
		err = cmdTaskLogTail(store, *tenantID, *limit, *jsonOutput)
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "pulsectl: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: pulsectl <resource> <action> [flags]")
	fmt.Fprintln(os.Stderr, "  tenants list")
	fmt.Fprintln(os.Stderr, "  sources list -tenant <id>")
	fmt.Fprintln(os.Stderr, "  sync trigger -tenant <id> -source <id>")
	fmt.Fprintln(os.Stderr, "  retention run -tenant <id>")
	fmt.Fprintln(os.Stderr, "  tasklog tail -tenant <id> [-limit 20]")
}

func cmdTenantsList(store storage.Store, asJSON bool) error {
	tenants, err := store.ListAllTenants()
	if err != nil {
		return err
	}
	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(tenants)
	}
	for _, t := range tenants {
		fmt.Printf("%s\t%s\t%s\n", t.ID, t.Slug, t.Status)
	}
	return nil
}

func cmdSourcesList(store storage.Store, tenantID string, asJSON bool) error {
	if tenantID == "" {
		return fmt.Errorf("-tenant is required")
	}
	sources, err := store.ListSourcesForTenant(tenantID)
	if err != nil {
		return err
	}
	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(sources)
	}
	for _, s := range sources {
		fmt.Printf("%s\t%s\t%s\t%s\n", s.ID, s.SourceType, s.ProjectID, s.SyncStatus)
	}
	return nil
}

func cmdSyncTrigger(store storage.Store, cfg config.Config, tenantID, sourceID string) error {
	if tenantID == "" || sourceID == "" {
		return fmt.Errorf("-tenant and -source are required")
	}
	tenant, err := tenantctx.New(tenantID, "")
	if err != nil {
		return err
	}
	source, err := store.GetSourceConfig(tenant, sourceID)
	if err != nil {
		return fmt.Errorf("look up source: %w", err)
	}

	conn, err := natsgo.Connect(cfg.NATSURL, natsgo.Name("pulsectl"))
	if err != nil {
		return fmt.Errorf("connect to nats at %s: %w", cfg.NATSURL, err)
	}
	defer conn.Close()

	js, err := conn.JetStream()
	if err != nil {
		return fmt.Errorf("jetstream context: %w", err)
	}

	queue := scheduler.NewQueue(js)
	if err := queue.EnqueueSync(tenantID, sourceID, source.ProjectID, "on_demand"); err != nil {
		return err
	}
	fmt.Printf("enqueued sync for source %s\n", sourceID)
	return nil
}

func cmdRetentionRun(store storage.Store, tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("-tenant is required")
	}
	t, err := store.GetTenant(tenantID)
	if err != nil {
		return fmt.Errorf("look up tenant: %w", err)
	}
	tenant, err := tenantctx.New(t.ID, t.Slug)
	if err != nil {
		return err
	}
	if err := scheduler.RunRetentionSweep(store, tenant, t.Retention, time.Now()); err != nil {
		return err
	}
	fmt.Printf("retention sweep complete for tenant %s\n", tenantID)
	return nil
}

func cmdTaskLogTail(store storage.Store, tenantID string, limit int, asJSON bool) error {
	if tenantID == "" {
		return fmt.Errorf("-tenant is required")
	}
	t, err := store.GetTenant(tenantID)
	if err != nil {
		return fmt.Errorf("look up tenant: %w", err)
	}
	tenant, err := tenantctx.New(t.ID, t.Slug)
	if err != nil {
		return err
	}
	logs, err := store.ListRecentTaskLogs(tenant, limit)
	if err != nil {
		return err
	}
	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(logs)
	}
	for _, l := range logs {
		status := string(l.Status)
		if l.Status == types.TaskFailed {
			status += ": " + l.ErrorMessage
		}
		fmt.Printf("%s\t%s\t%s\t%dms\t%s\n", l.StartedAt.Format(time.RFC3339), l.TaskName, l.TargetID, l.DurationMS, status)
	}
	return nil
}
