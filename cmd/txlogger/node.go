package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/txlogger/contracts/thankyoucoin"
	"github.com/nspcc-dev/txlogger/contracts/txlogger"
	"github.com/nspcc-dev/txlogger/deploy"
	"github.com/nspcc-dev/txlogger/internal/config"
	"github.com/nspcc-dev/txlogger/internal/indexer"
	"github.com/nspcc-dev/txlogger/internal/tracing"
	"github.com/nspcc-dev/txlogger/settlement"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

const tracingShutdownTimeout = 5 * time.Second

// node is a local ledger with both contracts deployed.
type node struct {
	log       *zap.Logger
	ledger    *settlement.Ledger
	contracts *deploy.Contracts
	index     *indexer.Store

	shutdownTracing func(context.Context) error
}

func openNode(ctx context.Context, c *cli.Context) (*node, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return nil, err
	}

	log, err := cfg.Logger.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	dbCfg, err := cfg.Storage.DBConfiguration()
	if err != nil {
		return nil, err
	}

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("set up tracing: %w", err)
	}

	store, err := settlement.OpenStore(dbCfg)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, err
	}

	n := &node{log: log, shutdownTracing: shutdownTracing}

	n.ledger, err = settlement.New(settlement.Prm{
		Store:  store,
		Logger: log,
	})
	if err != nil {
		_ = store.Close()
		_ = shutdownTracing(ctx)
		return nil, fmt.Errorf("init ledger: %w", err)
	}

	deployer, _ := cfg.DeployerAccount()
	coinPrm, _ := cfg.Token.Params()
	gwPrm, _ := cfg.Gateway.Params()

	n.contracts, err = deploy.Deploy(ctx, deploy.Prm{
		Logger:   log,
		Ledger:   n.ledger,
		Deployer: deployer,
		Coin:     coinPrm,
		Gateway:  gwPrm,
	})
	if err != nil {
		n.close()
		return nil, err
	}

	if cfg.Indexer.Path != "" {
		n.index, err = indexer.Open(ctx, indexer.Prm{
			Path:    cfg.Indexer.Path,
			Gateway: n.contracts.GatewayHash,
			Logger:  log,
		})
		if err != nil {
			n.close()
			return nil, fmt.Errorf("open transfer index: %w", err)
		}
		n.ledger.AddObserver(n.index)
	}

	return n, nil
}

func (n *node) close() {
	if n.index != nil {
		if err := n.index.Close(); err != nil {
			n.log.Warn("failed to close transfer index", zap.Error(err))
		}
	}
	if err := n.ledger.Close(); err != nil {
		n.log.Warn("failed to close ledger", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
	defer cancel()
	if err := n.shutdownTracing(ctx); err != nil {
		n.log.Warn("failed to flush traces", zap.Error(err))
	}
	_ = n.log.Sync()
}

// gatewayDecimals returns precision of amounts settled by the gateway.
func (n *node) gatewayDecimals() int {
	if n.contracts.Gateway.Mode() == txlogger.ModeToken {
		return thankyoucoin.Decimals
	}
	return settlement.NativeDecimals
}

// attachedValue returns native value to attach to the gateway request moving
// the total amount.
func (n *node) attachedValue(total int64) int64 {
	if n.contracts.Gateway.Mode() == txlogger.ModeNative {
		return total
	}
	return 0
}

// withNode runs the command against the opened node.
func withNode(f func(ctx context.Context, c *cli.Context, n *node) error) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		ctx := context.Background()

		n, err := openNode(ctx, c)
		if err != nil {
			return err
		}
		defer n.close()

		return f(ctx, c, n)
	}
}

func accountFlagValue(c *cli.Context, name string) (util.Uint160, error) {
	s := c.String(name)
	if s == "" {
		return util.Uint160{}, fmt.Errorf("missing --%s", name)
	}
	h, err := address.StringToUint160(s)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("invalid --%s address: %w", name, err)
	}
	return h, nil
}

func amountFlagValue(c *cli.Context, prec int) (int64, error) {
	s := c.String("amount")
	if s == "" {
		return 0, errors.New("missing --amount")
	}
	return config.ParseAmount(s, prec)
}
