// Package main runs the long-lived token dispenser: scan the pool contract,
// plan a distribution round, submit it through the node wallet and advance
// the round counter on a block cadence.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"token-dispenser/internal/config"
	"token-dispenser/internal/domain"
	"token-dispenser/internal/driver"
	"token-dispenser/internal/node"
	"token-dispenser/internal/observability"
	"token-dispenser/internal/planner"
	"token-dispenser/internal/storage"
	chstore "token-dispenser/internal/storage/clickhouse"
	"token-dispenser/internal/storage/memory"
	"token-dispenser/internal/storage/migrations"
	pgstore "token-dispenser/internal/storage/postgres"
)

// stores holds the storage implementations the driver uses.
type stores struct {
	rounds  storage.RoundStore
	plans   storage.PlanRecordStore
	history storage.DistributionHistoryStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	configPath := flag.String("config", os.Getenv("DISPENSER_CONFIG"), "Path to bot_info.json config file")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")

	flag.Parse()

	logger := log.New(os.Stdout, "[dispenser] ", log.LstdFlags|log.Lshortfile)

	if *configPath == "" {
		logger.Fatal("--config is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Node.NodeURL == "" {
		logger.Fatal("config is missing node.node_url")
	}

	logger.Printf("Pool address: %s", cfg.PoolContractAddress)
	logger.Printf("Tokens: %d, recipients: %d, blocks between dispense: %d",
		len(cfg.Tokens), len(cfg.RecipientWallets), cfg.BlocksBetweenDispense)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Node access
	client := node.NewClient(cfg.Node.NodeURL, node.WithAPIKey(cfg.Node.APIKey))
	scanner := node.NewScanner(client, cfg.PoolContractAddress,
		log.New(os.Stdout, "[scanner] ", log.LstdFlags))
	submitter := node.NewSubmitter(client,
		log.New(os.Stdout, "[submitter] ", log.LstdFlags))

	// Optional block feed paces rounds by real blocks
	var heights <-chan int64
	if cfg.Node.WSUrl != "" {
		feed, err := node.NewBlockFeed(ctx, cfg.Node.WSUrl, nil,
			log.New(os.Stdout, "[blockfeed] ", log.LstdFlags))
		if err != nil {
			logger.Fatalf("Failed to connect block feed: %v", err)
		}
		defer feed.Close()
		heights = feed.Heights()
	} else {
		logger.Println("No ws_url configured, falling back to timer-based rounds")
	}

	p, err := planner.New(domain.DefaultLedgerParams, cfg.PoolContractAddress,
		log.New(os.Stdout, "[planner] ", log.LstdFlags))
	if err != nil {
		logger.Fatalf("Failed to create planner: %v", err)
	}

	runner, err := driver.New(driver.Options{
		Planner:               p,
		Scanner:               scanner,
		Checker:               client,
		Submitter:             submitter,
		Configs:               cfg.TokenConfigs(),
		Recipients:            cfg.RecipientWallets,
		Rounds:                st.rounds,
		Plans:                 st.plans,
		History:               st.history,
		Metrics:               observability.DefaultMetrics,
		Logger:                log.New(os.Stdout, "[driver] ", log.LstdFlags),
		BlocksBetweenDispense: int(cfg.BlocksBetweenDispense),
		Heights:               heights,
	})
	if err != nil {
		logger.Fatalf("Failed to create runner: %v", err)
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		}
	}()

	go startHTTPServer(*metricsAddr, logger)

	if err := runner.Run(ctx); err != nil {
		logger.Fatalf("Runner error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores wires storage: in-memory, or postgres for the round counter
// and plan records plus optional clickhouse history.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*stores, func(), error) {
	if useMemory {
		return &stores{
			rounds:  memory.NewRoundStore(),
			plans:   memory.NewPlanRecordStore(),
			history: memory.NewDistributionHistoryStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	st := &stores{
		rounds: pgstore.NewRoundStore(pool),
		plans:  pgstore.NewPlanRecordStore(pool),
	}
	cleanup := func() { pool.Close() }

	// History is optional: without clickhouse the memory store keeps the
	// rows for the life of the process.
	if clickhouseDSN == "" {
		st.history = memory.NewDistributionHistoryStore()
		return st, cleanup, nil
	}

	chConn, err := chstore.NewConn(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	if err := migrations.RunClickhouseMigrations(ctx, chConn); err != nil {
		chConn.Close()
		pool.Close()
		return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	st.history = chstore.NewDistributionHistoryStore(chConn)
	return st, func() {
		chConn.Close()
		pool.Close()
	}, nil
}

// startHTTPServer serves health and Prometheus metrics.
func startHTTPServer(addr string, logger *log.Logger) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("HTTP server error: %v", err)
	}
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
