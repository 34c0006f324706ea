package deploy

import (
	"context"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/txlogger/contracts/thankyoucoin"
	"github.com/nspcc-dev/txlogger/contracts/txlogger"
	rpctyc "github.com/nspcc-dev/txlogger/rpc/thankyoucoin"
	rpctxlogger "github.com/nspcc-dev/txlogger/rpc/txlogger"
	"github.com/nspcc-dev/txlogger/settlement"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newAccount(t testing.TB) util.Uint160 {
	k, err := keys.NewPrivateKey()
	require.NoError(t, err)
	return k.GetScriptHash()
}

func TestDeploy(t *testing.T) {
	var (
		ctx      = context.Background()
		store    = storage.NewMemoryStore()
		deployer = newAccount(t)
	)

	newLedger := func() *settlement.Ledger {
		l, err := settlement.New(settlement.Prm{Store: store, Logger: zaptest.NewLogger(t)})
		require.NoError(t, err)
		return l
	}

	prm := Prm{
		Logger:   zaptest.NewLogger(t),
		Deployer: deployer,
		Coin:     CoinPrm{InitialSupply: thankyoucoin.InitialSupply},
		Gateway:  GatewayPrm{Mode: txlogger.ModeToken, MinimumAmount: 10},
	}

	t.Run("missing ledger", func(t *testing.T) {
		_, err := Deploy(ctx, prm)
		require.Error(t, err)
	})

	l := newLedger()
	prm.Ledger = l

	res, err := Deploy(ctx, prm)
	require.NoError(t, err)
	require.Equal(t, settlement.ContractHash(deployer, NameThankYouCoin), res.CoinHash)
	require.Equal(t, settlement.ContractHash(deployer, NameTxLogger), res.GatewayHash)
	require.Equal(t, res.CoinHash, res.Gateway.Token())

	coin := rpctyc.New(l, deployer, res.CoinHash, res.Coin)

	balance, err := coin.BalanceOf(ctx, deployer)
	require.NoError(t, err)
	require.EqualValues(t, thankyoucoin.InitialSupply, balance)

	t.Run("same ledger", func(t *testing.T) {
		_, err := Deploy(ctx, prm)
		require.ErrorIs(t, err, settlement.ErrAlreadyDeployed)
	})

	t.Run("redeploy on restart", func(t *testing.T) {
		holder := newAccount(t)

		_, err := coin.Transfer(ctx, holder, 100)
		require.NoError(t, err)

		_, err = rpctyc.New(l, holder, res.CoinHash, res.Coin).Approve(ctx, res.GatewayHash, 50)
		require.NoError(t, err)

		prm := prm
		prm.Ledger = newLedger()

		res2, err := Deploy(ctx, prm)
		require.NoError(t, err)
		require.Equal(t, res.CoinHash, res2.CoinHash)
		require.Equal(t, res.GatewayHash, res2.GatewayHash)

		coin := rpctyc.NewReader(prm.Ledger.(*settlement.Ledger), res2.CoinHash, res2.Coin)

		supply, err := coin.TotalSupply(ctx)
		require.NoError(t, err)
		require.EqualValues(t, thankyoucoin.InitialSupply, supply, "initial supply is issued once")

		receiver := newAccount(t)
		gw := rpctxlogger.New(prm.Ledger.(*settlement.Ledger), holder, res2.GatewayHash, res2.Gateway)

		receipt, err := gw.SendFunds(ctx, receiver, 50, 0)
		require.NoError(t, err)
		require.Equal(t, txlogger.StateCommitted, receipt.State)
		require.Len(t, receipt.Records, 1)

		balance, err := coin.BalanceOf(ctx, receiver)
		require.NoError(t, err)
		require.EqualValues(t, 50, balance)
	})

	t.Run("invalid gateway parameters", func(t *testing.T) {
		prm := prm
		prm.Ledger = settlementLedger(t)
		prm.Gateway.MinimumAmount = 0

		_, err := Deploy(ctx, prm)
		require.Error(t, err)
	})
}

func settlementLedger(t testing.TB) *settlement.Ledger {
	l, err := settlement.New(settlement.Prm{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	return l
}
