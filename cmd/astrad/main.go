// Command astrad runs the Run Orchestration Kernel: the HTTP control plane
// that turns a user query into a classified intent, a chat reply, or a
// supervised multi-step run, and drives that run to completion.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/astra-ai/kernel/pkg/api"
	"github.com/astra-ai/kernel/pkg/brain"
	"github.com/astra-ai/kernel/pkg/bridge"
	"github.com/astra-ai/kernel/pkg/chat"
	"github.com/astra-ai/kernel/pkg/config"
	"github.com/astra-ai/kernel/pkg/events"
	"github.com/astra-ai/kernel/pkg/executor"
	"github.com/astra-ai/kernel/pkg/intent"
	"github.com/astra-ai/kernel/pkg/memory"
	"github.com/astra-ai/kernel/pkg/planner"
	"github.com/astra-ai/kernel/pkg/research"
	"github.com/astra-ai/kernel/pkg/runengine"
	"github.com/astra-ai/kernel/pkg/skill"
	"github.com/astra-ai/kernel/pkg/snapshot"
	"github.com/astra-ai/kernel/pkg/store"
	"github.com/astra-ai/kernel/pkg/telemetry"
	"github.com/astra-ai/kernel/pkg/version"
)

func main() {
	dataDir := flag.String("data-dir", envOr("ASTRA_DATA_DIR", "./data"), "path to the kernel's data directory (.env, vault, episodic memory DB)")
	dev := flag.Bool("dev", false, "use text log format instead of JSON")
	memStore := flag.Bool("mem-store", false, "use an in-process memory store instead of Postgres (development only)")
	flag.Parse()

	logger := configureLogger(*dev)
	slog.SetDefault(logger)
	logger.Info("astrad starting", "version", version.Full(), "data_dir", *dataDir)

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		logger.Error("failed to create data directory", "data_dir", *dataDir, "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*dataDir)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := telemetry.Setup(version.AppName, version.GitCommit)
	if err != nil {
		logger.Error("failed to set up telemetry", "error", err)
		os.Exit(1)
	}

	s, closeStore, err := openStore(ctx, cfg, *memStore)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	bus := events.NewBus(s)
	brainRouter := brain.NewRouter(&cfg.Brain, bus)
	interpreter := memory.NewInterpreter(brainRouter)
	intentRouter := intent.NewRouter(brainRouter, bus)

	researchSkill := research.NewSkill(brainRouter, bus, s, &cfg.Chat, nil, nil)
	chatLoop := chat.NewLoop(brainRouter, interpreter, bus, s, &cfg.Chat, &cfg.Memory, researchSkill)

	bridgeClient := bridge.NewHTTPClient(cfg.Executor.BridgeAddr, 30*time.Second)
	brainAdapter := executor.NewBrainAdapter(brainRouter)
	computerRunner := executor.NewRunner(s, bus, bridgeClient, brainAdapter, cfg.Executor, cfg.RunEngine.ApprovalPollMS)

	registry := skill.NewRegistry(map[string]runengine.Dispatcher{
		"web_research":        skill.NewResearchAdapter(researchSkill, cfg.Chat.ResearchDepth, cfg.Chat.MaxResearchRounds),
		"chat_response":       skill.NewChatAdapter(chatLoop, ""),
		"memory_save":         skill.NewMemoryAdapter(interpreter, s, bus),
		"computer_actions":    computerRunner,
		"browser_research_ui": computerRunner,
		"file_organize":       computerRunner,
		"code_assist":         computerRunner,
	})

	engine := runengine.NewEngine(s, bus, planner.NewPlanner(), registry, cfg.RunEngine)

	guard := api.NewGuard(cfg.Auth, s)
	if _, err := guard.EnsureSessionToken(ctx); err != nil {
		logger.Error("failed to mint session token", "error", err)
		os.Exit(1)
	}

	srv := api.NewServer(api.Deps{
		Store:     s,
		Bus:       bus,
		Auth:      guard,
		Engine:    engine,
		Intent:    intentRouter,
		Chat:      chatLoop,
		Snapshots: snapshot.NewBuilder(s),
		Vault:     api.NewVault(filepath.Join(*dataDir, "vault.bin")),
	})

	go func() {
		logger.Info("http server listening", "addr", cfg.ListenAddr)
		if err := srv.Start(cfg.ListenAddr); err != nil {
			logger.Error("http server stopped", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	cancel()
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown error", "error", err)
	}
	logger.Info("astrad stopped")
}

func openStore(ctx context.Context, cfg *config.Config, useMemory bool) (store.Store, func(), error) {
	if useMemory {
		return store.NewMemoryStore(), func() {}, nil
	}
	pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return pg, func() { pg.Close() }, nil
}

func configureLogger(useDev bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if useDev {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
