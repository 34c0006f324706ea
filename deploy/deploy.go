package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/txlogger/common"
	"github.com/nspcc-dev/txlogger/contracts/thankyoucoin"
	"github.com/nspcc-dev/txlogger/contracts/txlogger"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// A set of contract names the contracts are deployed under.
const (
	NameThankYouCoin = "thankyoucoin"
	NameTxLogger     = "txlogger"
)

// Ledger groups services of the settlement runtime required for deployment.
type Ledger interface {
	// Deploy registers the contract and runs its deployment hook on behalf of
	// the deployer.
	Deploy(ctx context.Context, deployer util.Uint160, name string, c any) (util.Uint160, error)
}

// CoinPrm groups deployment parameters of the ThankYouCoin contract.
type CoinPrm struct {
	// Receives the initial supply, defaults to the deployer.
	Owner util.Uint160

	// Minting capability, direct calls of the Owner if not set.
	Minter common.Authorizer

	// Amount issued to the Owner on the first deployment.
	InitialSupply int64
}

// GatewayPrm groups deployment parameters of the transfer gateway contract.
type GatewayPrm struct {
	Mode          txlogger.Mode
	MinimumAmount int64
}

// Prm groups all parameters of the deployment procedure.
type Prm struct {
	// Writes progress into the log.
	Logger *zap.Logger

	// Ledger to deploy the contracts to.
	Ledger Ledger

	// Account the contracts are deployed by. Contract hashes depend on it.
	Deployer util.Uint160

	// Optional registerer of the contract metrics.
	Registerer prometheus.Registerer

	Coin    CoinPrm
	Gateway GatewayPrm
}

// Contracts groups deployed contracts along with their hashes.
type Contracts struct {
	Coin     *thankyoucoin.Contract
	CoinHash util.Uint160

	Gateway     *txlogger.Contract
	GatewayHash util.Uint160
}

// Deploy deploys ThankYouCoin and the transfer gateway to the ledger. In token
// mode, the gateway settles in ThankYouCoin.
//
// Contracts already deployed to the persistent ledger state are updated, so
// Deploy is expected to be called on every start of the application.
func Deploy(ctx context.Context, prm Prm) (*Contracts, error) {
	if prm.Ledger == nil {
		return nil, errors.New("missing ledger")
	}
	if prm.Logger == nil {
		prm.Logger = zap.NewNop()
	}
	if prm.Coin.Owner.Equals(util.Uint160{}) {
		prm.Coin.Owner = prm.Deployer
	}

	var (
		res Contracts
		err error
	)

	res.Coin, err = thankyoucoin.New(thankyoucoin.Prm{
		Owner:         prm.Coin.Owner,
		Minter:        prm.Coin.Minter,
		InitialSupply: prm.Coin.InitialSupply,
		Logger:        prm.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init ThankYouCoin contract: %w", err)
	}

	prm.Logger.Info("deploying ThankYouCoin contract...",
		zap.String("owner", address.Uint160ToString(prm.Coin.Owner)))

	res.CoinHash, err = prm.Ledger.Deploy(ctx, prm.Deployer, NameThankYouCoin, res.Coin)
	if err != nil {
		return nil, fmt.Errorf("deploy ThankYouCoin contract: %w", err)
	}

	prm.Logger.Info("ThankYouCoin contract successfully deployed", zap.Stringer("address", res.CoinHash))

	gwPrm := txlogger.Prm{
		Mode:          prm.Gateway.Mode,
		MinimumAmount: prm.Gateway.MinimumAmount,
		Logger:        prm.Logger,
		Registerer:    prm.Registerer,
	}
	if gwPrm.Mode == txlogger.ModeToken {
		gwPrm.Token = res.CoinHash
		gwPrm.Asset = res.Coin
	}

	res.Gateway, err = txlogger.New(gwPrm)
	if err != nil {
		return nil, fmt.Errorf("init gateway contract: %w", err)
	}

	prm.Logger.Info("deploying gateway contract...",
		zap.Stringer("mode", gwPrm.Mode), zap.Int64("minimum", gwPrm.MinimumAmount))

	res.GatewayHash, err = prm.Ledger.Deploy(ctx, prm.Deployer, NameTxLogger, res.Gateway)
	if err != nil {
		return nil, fmt.Errorf("deploy gateway contract: %w", err)
	}

	prm.Logger.Info("gateway contract successfully deployed", zap.Stringer("address", res.GatewayHash))

	return &res, nil
}
