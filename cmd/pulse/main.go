// Command pulse is the platform daemon: HTTP+WebSocket API, embedded
// NATS JetStream broker, the Job Scheduler's ticker loop, and an
// embedded worker.Dispatcher that executes sync/metrics/AI jobs
// in-process. A deployment that wants to scale job execution out across
// nodes runs additional cmd/sync-bridge processes against this same
// NATS URL; this daemon still runs its own dispatcher regardless, so a
// single-node deployment never needs the bridge at all.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	natsgo "github.com/nats-io/nats.go"

	_ "github.com/pulseplatform/pulse/internal/connectors/ado"
	_ "github.com/pulseplatform/pulse/internal/connectors/clickup"
	_ "github.com/pulseplatform/pulse/internal/connectors/github"
	_ "github.com/pulseplatform/pulse/internal/connectors/jira"

	"github.com/pulseplatform/pulse/internal/bus"
	"github.com/pulseplatform/pulse/internal/config"
	"github.com/pulseplatform/pulse/internal/connectors"
	"github.com/pulseplatform/pulse/internal/identity"
	"github.com/pulseplatform/pulse/internal/instance"
	"github.com/pulseplatform/pulse/internal/metrics"
	pulsenats "github.com/pulseplatform/pulse/internal/nats"
	"github.com/pulseplatform/pulse/internal/notifications"
	"github.com/pulseplatform/pulse/internal/scheduler"
	"github.com/pulseplatform/pulse/internal/server"
	"github.com/pulseplatform/pulse/internal/storage"
	"github.com/pulseplatform/pulse/internal/sync"
	"github.com/pulseplatform/pulse/internal/worker"
)

func main() {
	configPath := flag.String("config", "configs/pulse.yaml", "Configuration file")
	listenAddr := flag.String("listen", "", "HTTP listen address, overrides config")
	natsPort := flag.Int("nats-port", 4222, "Embedded NATS server port")
	dataDir := flag.String("data-dir", "data", "Directory for JetStream file storage and the PID file")
	conflictStrategy := flag.String("on-conflict", "", "What to do if another instance is already running: exit, kill, port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pulse: %v\n", err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "pulse: create data dir: %v\n", err)
		os.Exit(1)
	}

	port := listenPort(cfg.ListenAddr)
	pidFilePath := filepath.Join(*dataDir, "pulse.pid")
	instanceMgr := instance.NewManager(pidFilePath, port)

	existing, err := instanceMgr.Acquire()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pulse: %v\n", err)
		os.Exit(1)
	}
	if existing != nil {
		if err := instance.ResolveConflict(instanceMgr, existing, instance.ConflictStrategy(*conflictStrategy)); err != nil {
			fmt.Fprintf(os.Stderr, "pulse: %v\n", err)
			os.Exit(1)
		}
		if _, err := instanceMgr.Acquire(); err != nil {
			fmt.Fprintf(os.Stderr, "pulse: failed to acquire lock after resolving conflict: %v\n", err)
			os.Exit(1)
		}
	}
	defer instanceMgr.Release()

	store, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pulse: open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	embeddedNATS, err := pulsenats.NewEmbeddedServer(pulsenats.EmbeddedServerConfig{
		Port:      *natsPort,
		JetStream: true,
		DataDir:   filepath.Join(*dataDir, "jetstream"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "pulse: configure embedded nats: %v\n", err)
		os.Exit(1)
	}
	if err := embeddedNATS.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "pulse: start embedded nats: %v\n", err)
		os.Exit(1)
	}
	defer embeddedNATS.Shutdown()

	conn, err := natsgo.Connect(embeddedNATS.URL(), natsgo.Name("pulse-daemon"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "pulse: connect to embedded nats: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	streamManager, err := pulsenats.NewStreamManager(conn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pulse: build stream manager: %v\n", err)
		os.Exit(1)
	}
	if err := streamManager.SetupStreams(); err != nil {
		fmt.Fprintf(os.Stderr, "pulse: set up jetstream streams: %v\n", err)
		os.Exit(1)
	}
	js, err := conn.JetStream()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pulse: jetstream context: %v\n", err)
		os.Exit(1)
	}

	progressBus := bus.New(nil)
	adminBus := bus.NewAdminBus(nil)

	relaySub, err := bus.RelayToLocalBus(conn, progressBus)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pulse: subscribe telemetry relay: %v\n", err)
		os.Exit(1)
	}
	defer relaySub.Unsubscribe()

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
		fmt.Fprintf(os.Stderr, "pulse: start job dispatcher: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}()

	jobScheduler := scheduler.New(store, jobQueue, time.Minute)
	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	go jobScheduler.Start(schedulerCtx)

	auth := server.NewHMACAuthenticator(cfg.AuthSecret)
	srv := server.New(store, progressBus, adminBus, auth)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(cfg.ListenAddr)
	}()

	started := false
	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		select {
		case err := <-serverErr:
			fmt.Fprintf(os.Stderr, "pulse: server failed to start: %v\n", err)
			os.Exit(1)
		default:
		}
		if probeHealth(port) {
			started = true
			break
		}
	}
	if !started {
		fmt.Fprintf(os.Stderr, "pulse: server did not become ready within timeout\n")
		os.Exit(1)
	}
	log.Printf("[pulse] listening on %s", cfg.ListenAddr)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			log.Printf("[pulse] server error: %v", err)
		}
	case <-shutdown:
		log.Println("[pulse] shutting down (signal received)")
	}

	cancelScheduler()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[pulse] server shutdown error: %v", err)
	}

	log.Println("[pulse] stopped")
}

func listenPort(addr string) int {
	port := 8080
	fmt.Sscanf(addr, ":%d", &port)
	return port
}

func probeHealth(port int) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/api/health", port))
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
