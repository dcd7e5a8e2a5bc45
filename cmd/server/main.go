package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/aym-n/SneakByte/pkg/api"
	"github.com/aym-n/SneakByte/pkg/bots"
	"github.com/aym-n/SneakByte/pkg/discovery"
	"github.com/aym-n/SneakByte/pkg/frontend"
	"github.com/aym-n/SneakByte/pkg/game/constants"
	"github.com/aym-n/SneakByte/pkg/log"
	"github.com/aym-n/SneakByte/pkg/queue"
	"github.com/aym-n/SneakByte/pkg/registry"
	"github.com/aym-n/SneakByte/pkg/repositories"
	"github.com/aym-n/SneakByte/pkg/session"
	"github.com/aym-n/SneakByte/pkg/version"
	"github.com/aym-n/SneakByte/pkg/workers"
)

func main() {
	port := flag.Int("port", constants.FrontendPort, "Port for the frontend channel and API")
	discoveryPort := flag.Int("discovery-port", constants.DiscoveryPort, "UDP port bots listen on for discovery")
	announceInterval := flag.Duration("announce-interval", constants.BroadcastInterval, "Discovery announce interval")
	botTimeout := flag.Duration("bot-timeout", constants.BotTimeout, "Time before a silent bot is removed")
	moveInterval := flag.Duration("move-interval", constants.MoveRequestInterval, "Move request interval per bot")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}

	logger := log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLogLevel)
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", parsedLogLevel)

	log.Info("Starting server version %s", version.Get())
	ctx := context.Background()

	botRegistry := registry.NewBotRegistry(*botTimeout)

	// The gateway is created after the session manager; the closure is only
	// invoked once discovery starts.
	var gateway *frontend.Gateway
	broadcaster := discovery.NewBroadcaster(discovery.NewBroadcasterOptions{
		Registry:         botRegistry,
		Port:             *discoveryPort,
		AnnounceMessage:  constants.DiscoveryMessage,
		AnnounceInterval: *announceInterval,
		OnChange: func(records []registry.BotRecord) {
			gateway.BroadcastBotList(records)
		},
	})

	dialer := bots.NewDialer(bots.NewDialerOptions{
		GridSize:     constants.GridSize,
		GameSpeed:    constants.GameSpeed,
		MoveInterval: *moveInterval,
	})
	connector := session.ConnectorFunc(func(ctx context.Context, record registry.BotRecord, playerNum int, source bots.StateSource, hooks bots.Hooks) (session.Conn, error) {
		return dialer.Connect(ctx, record, playerNum, source, hooks)
	})

	resultsQueue := queue.NewInMemoryQueue(100)

	manager := session.NewManager(session.NewManagerOptions{
		Registry:  botRegistry,
		Discovery: broadcaster,
		Connector: connector,
		Results:   resultsQueue,
	})

	gateway = frontend.NewGateway(frontend.NewGatewayOptions{
		Registry:   botRegistry,
		Controller: manager,
	})
	manager.SetNotifier(gateway)

	repository := newRepository(ctx)
	defer repository.Close(ctx)

	ratingsWorker := workers.NewRatingsWorker(workers.NewRatingsWorkerOptions{
		Results:    resultsQueue,
		Repository: repository,
		Interval:   time.Second,
	})
	go ratingsWorker.Start(ctx)

	if err := broadcaster.Start(ctx); err != nil {
		panic(fmt.Sprintf("Failed to start discovery: %v", err))
	}

	server := api.NewServer(api.NewServerOptions{
		Port:       *port,
		Gateway:    gateway,
		Registry:   botRegistry,
		Repository: repository,
	})
	server.Start()
}

// newRepository selects the ratings backend: Postgres when DATABASE_URL is
// set, otherwise an in-memory SQLite store that lives with the process.
func newRepository(ctx context.Context) repositories.Repository {
	if connStr := os.Getenv("DATABASE_URL"); connStr != "" {
		repository, err := repositories.NewPostgresRepository(ctx, connStr)
		if err != nil {
			panic(fmt.Sprintf("Failed to connect to database: %v", err))
		}
		return repository
	}

	repository, err := repositories.NewSQLiteRepository(ctx, ":memory:")
	if err != nil {
		panic(fmt.Sprintf("Failed to open ratings store: %v", err))
	}
	return repository
}
