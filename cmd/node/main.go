// Command node starts a Skill Bloom ledger node.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/tolelom/skillbloom/config"
	"github.com/tolelom/skillbloom/internal/node"
	"github.com/tolelom/skillbloom/storage"
	"github.com/tolelom/skillbloom/wallet"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	keyPath := flag.String("key", "validator.key", "path to keystore file")
	genKey := flag.Bool("genkey", false, "generate a new validator key and exit")
	flag.Parse()

	// The keystore password comes from the environment; CLI flags leak via ps.
	password := os.Getenv("SKILLBLOOM_PASSWORD")

	if *genKey {
		w, err := wallet.Generate()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := wallet.SaveKey(*keyPath, password, w.PrivKey()); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("Generated key. Validator address: %s\n", w.Address().Hex())
		fmt.Printf("Saved to: %s\n", *keyPath)
		return
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if password == "" {
		logger.Warn("SKILLBLOOM_PASSWORD not set, keystore uses an empty password")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *keyPath, password, logger); err != nil {
		logger.Error("fatal", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, keyPath, password string, logger *zap.Logger) error {
	key, err := wallet.LoadKey(keyPath, password)
	if err != nil {
		return fmt.Errorf("load key: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("mkdir data dir: %w", err)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "chain"))
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	n, err := node.New(cfg, db, key, logger)
	if err != nil {
		return err
	}
	logger.Info("node starting",
		zap.String("node_id", cfg.NodeID),
		zap.String("validator", key.Address().Hex()),
		zap.String("rpc", cfg.RPCAddr()),
		zap.Int64("height", n.Chain.Height()),
		zap.Bool("rpc_auth", cfg.RPCAuthToken != ""))

	return n.Run(ctx)
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = lvl
	}
	return cfg.Build()
}
