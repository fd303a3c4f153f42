package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/updownlabs/updown/params"
	"github.com/updownlabs/updown/pkg/api"
	"github.com/updownlabs/updown/pkg/core"
	"github.com/updownlabs/updown/pkg/core/account"
	"github.com/updownlabs/updown/pkg/core/market"
	"github.com/updownlabs/updown/pkg/core/position"
	"github.com/updownlabs/updown/pkg/storage"
	"github.com/updownlabs/updown/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile)

	// ---- Storage (optional: empty DB_PATH runs in-memory) ----
	var store *storage.Store
	if cfg.Node.DBPath != "" {
		store, err = storage.Open(cfg.Node.DBPath)
		if err != nil {
			sugar.Fatalw("storage_open_failed", "path", cfg.Node.DBPath, "err", err)
		}
		defer store.Close()
		sugar.Infow("storage_opened", "path", cfg.Node.DBPath)
	}

	// Store is a concrete type: pass nil interfaces when persistence is off.
	var (
		marketStore   market.Store
		positionStore position.Store
		accountStore  account.Store
	)
	if store != nil {
		marketStore = store
		positionStore = store
		accountStore = store
	}

	// ---- Core ----
	registry, err := market.NewRegistry(marketStore)
	if err != nil {
		sugar.Fatalw("registry_recovery_failed", "err", err)
	}
	ledger, err := position.NewLedger(positionStore)
	if err != nil {
		sugar.Fatalw("ledger_recovery_failed", "err", err)
	}
	vault, err := account.NewVault(accountStore)
	if err != nil {
		sugar.Fatalw("vault_recovery_failed", "err", err)
	}

	engine, err := core.NewEngine(core.Config{
		Admin:    cfg.Platform.Admin,
		Oracle:   cfg.Platform.Oracle,
		FeeBps:   cfg.Platform.FeeBps,
		MinStake: cfg.Platform.MinStake,
	}, registry, ledger, vault, util.RealClock{}, sugar)
	if err != nil {
		sugar.Fatalw("engine_init_failed", "err", err)
	}

	sugar.Infow("engine_ready",
		"markets", registry.Count(),
		"positions", ledger.Count(),
		"accounts", vault.Count(),
		"fee_bps", cfg.Platform.FeeBps,
		"min_stake", cfg.Platform.MinStake,
	)

	// ---- API ----
	server := api.NewServer(engine, vault, sugar)
	go func() {
		if err := server.Start(cfg.Node.ListenAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	// Wait for shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	sugar.Infow("shutting_down")
}
