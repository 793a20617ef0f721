// Command sync-bridge is the standalone job-execution companion to
// cmd/pulse: it drains the same SYNC, METRICS and AI_INSIGHTS JetStream
// streams, sharing cmd/pulse's queue group, so running one or more
// sync-bridge processes alongside the daemon spreads sync/metrics/AI
// work across nodes instead of running it all on the API process.
// Progress and alert events are published back onto the telemetry
// subject cmd/pulse relays into its WebSocket fan-out, never into a
// local bus this process doesn't have.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	natsgo "github.com/nats-io/nats.go"

	_ "github.com/pulseplatform/pulse/internal/connectors/ado"
	_ "github.com/pulseplatform/pulse/internal/connectors/clickup"
	_ "github.com/pulseplatform/pulse/internal/connectors/github"
	_ "github.com/pulseplatform/pulse/internal/connectors/jira"

	"github.com/pulseplatform/pulse/internal/bus"
	"github.com/pulseplatform/pulse/internal/config"
	"github.com/pulseplatform/pulse/internal/connectors"
	"github.com/pulseplatform/pulse/internal/identity"
	"github.com/pulseplatform/pulse/internal/metrics"
	"github.com/pulseplatform/pulse/internal/notifications"
	"github.com/pulseplatform/pulse/internal/scheduler"
	"github.com/pulseplatform/pulse/internal/storage"
	"github.com/pulseplatform/pulse/internal/sync"
	"github.com/pulseplatform/pulse/internal/worker"
)

func main() {
	configPath := flag.String("config", "configs/pulse.yaml", "Configuration file, shared with cmd/pulse")
	natsURL := flag.String("nats", "", "NATS URL, overrides config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[sync-bridge] %v", err)
	}
	if *natsURL != "" {
		cfg.NATSURL = *natsURL
	}

	store, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[sync-bridge] open database: %v", err)
	}
	defer store.Close()

	conn, err := natsgo.Connect(cfg.NATSURL, natsgo.Name("pulse-sync-bridge"))
	if err != nil {
		log.Fatalf("[sync-bridge] connect to nats at %s: %v", cfg.NATSURL, err)
	}
	defer conn.Close()
	log.Printf("[sync-bridge] connected to %s", cfg.NATSURL)

	js, err := conn.JetStream()
	if err != nil {
		log.Fatalf("[sync-bridge] jetstream context: %v", err)
	}

	router := notifications.BuildRouter(cfg.Notifications)
	forwarder := bus.NewNATSForwarder(conn)
	alertingPublisher := notifications.NewAlertingPublisher(forwarder, router)

	jobQueue := scheduler.NewQueue(js)
	metricEnqueuer := scheduler.NewMetricEnqueuer(jobQueue, store)
	orchestrator := sync.New(store, alertingPublisher, metricEnqueuer, connectors.Deps{
		Identity: identity.NewConnectorAdapter(identity.New(store)),
		Sink:     store,
	}, nil)
	aggregator := metrics.New(store)
	aiFactory := worker.NewAIWorkerFactory(store, forwarder, cfg.AIDefaults)

	dispatcher := worker.New(store, store, orchestrator, aggregator, store, aiFactory)
	subs, err := dispatcher.Start(js)
	if err != nil {
		log.Fatalf("[sync-bridge] start job dispatcher: %v", err)
	}
	defer func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}()

	log.Println("[sync-bridge] draining sync/metrics/ai_insights streams, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[sync-bridge] shutting down")
}
