// Package node assembles a ledger node from its configuration: storage,
// chain, executor, consensus engine, indexer and RPC surface.
package node

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tolelom/skillbloom/config"
	"github.com/tolelom/skillbloom/consensus"
	"github.com/tolelom/skillbloom/core"
	"github.com/tolelom/skillbloom/crypto"
	"github.com/tolelom/skillbloom/events"
	"github.com/tolelom/skillbloom/indexer"
	"github.com/tolelom/skillbloom/metrics"
	"github.com/tolelom/skillbloom/rpc"
	"github.com/tolelom/skillbloom/storage"
	"github.com/tolelom/skillbloom/vm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	// Import VM modules to trigger their init() self-registration.
	_ "github.com/tolelom/skillbloom/vm/modules/economy"
	_ "github.com/tolelom/skillbloom/vm/modules/player"
	_ "github.com/tolelom/skillbloom/vm/modules/skill"
	_ "github.com/tolelom/skillbloom/vm/modules/tournament"
)

// Node is a fully wired ledger node.
type Node struct {
	Config   *config.Config
	Chain    *core.Blockchain
	State    *storage.StateDB // written only by the consensus engine
	Reader   *storage.StateDB // committed-state reader for queries
	Mempool  *core.Mempool
	Emitter  *events.Emitter
	Indexer  *indexer.Indexer
	Engine   *consensus.PoA
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	Handler  *rpc.Handler

	logger *zap.Logger
}

// New wires a node over db. A fresh database is initialised with the
// genesis block signed by key.
func New(cfg *config.Config, db storage.DB, key *crypto.PrivateKey, logger *zap.Logger) (*Node, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	state := storage.NewStateDB(db)
	bc := core.NewBlockchain(storage.NewBlockStore(db))
	if err := bc.Init(); err != nil {
		return nil, fmt.Errorf("blockchain init: %w", err)
	}

	emitter := events.NewEmitter(logger)
	idx := indexer.New(db, emitter, logger)

	if bc.Tip() == nil {
		genesis, err := config.CreateGenesisBlock(cfg, state, key)
		if err != nil {
			return nil, fmt.Errorf("genesis: %w", err)
		}
		if err := bc.AddBlock(genesis, nil); err != nil {
			return nil, fmt.Errorf("add genesis: %w", err)
		}
		announceSeedSkills(emitter, cfg)
		logger.Info("genesis block committed",
			zap.String("hash", genesis.Hash),
			zap.String("chain_id", cfg.Genesis.ChainID),
			zap.Int("skills", len(cfg.Genesis.Skills)))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	mempool := core.NewMempool(cfg.MempoolSize)
	exec := vm.NewExecutor(state, cfg.Genesis.ChainID, logger)

	engine, err := consensus.New(consensus.Deps{
		Config:   cfg,
		Chain:    bc,
		State:    state,
		Mempool:  mempool,
		Executor: exec,
		Emitter:  emitter,
		Metrics:  m,
		Key:      key,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("consensus: %w", err)
	}

	reader := storage.NewStateDB(db)
	handler := rpc.NewHandler(bc, mempool, reader, bc, idx, cfg.Genesis.ChainID, logger)

	return &Node{
		Config:   cfg,
		Chain:    bc,
		State:    state,
		Reader:   reader,
		Mempool:  mempool,
		Emitter:  emitter,
		Indexer:  idx,
		Engine:   engine,
		Metrics:  m,
		Registry: reg,
		Handler:  handler,
		logger:   logger,
	}, nil
}

// announceSeedSkills publishes the genesis skill catalog so subscribers see
// seed skills the same way as skills created by transactions.
func announceSeedSkills(emitter *events.Emitter, cfg *config.Config) {
	roles, _ := cfg.Genesis.Roles()
	for i, s := range cfg.Genesis.Skills {
		emitter.Emit(events.Event{
			Type: events.EventSkillCreated,
			Data: map[string]any{
				"skill_id": uint64(i),
				"owner":    roles.Owner,
				"name":     s.Name,
				"branch":   string(s.Branch),
			},
		})
	}
}

// NewServer returns the RPC server of the node bound to the configured
// address.
func (n *Node) NewServer() *rpc.Server {
	return rpc.NewServer(n.Config.RPCAddr(), n.Handler, n.Config.RPCAuthToken, n.Registry, n.logger)
}

// Run serves RPC and produces blocks until ctx is done.
func (n *Node) Run(ctx context.Context) error {
	srv := n.NewServer()
	if err := srv.Start(); err != nil {
		return fmt.Errorf("rpc start: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n.logger.Info("consensus running", zap.Duration("interval", n.Config.BlockInterval))
		return n.Engine.Run(gctx, n.Config.BlockInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		if err := srv.Stop(); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("rpc stop: %w", err)
		}
		return nil
	})
	return g.Wait()
}
