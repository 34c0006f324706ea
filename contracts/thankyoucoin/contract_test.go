package thankyoucoin

import (
	"context"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/txlogger/common"
	"github.com/nspcc-dev/txlogger/settlement"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type env struct {
	t     *testing.T
	store storage.Store
	l     *settlement.Ledger
	c     *Contract
	hash  util.Uint160
	owner util.Uint160
}

func newAccount(t testing.TB) util.Uint160 {
	k, err := keys.NewPrivateKey()
	require.NoError(t, err)
	return k.GetScriptHash()
}

func newEnv(t *testing.T, prm Prm) *env {
	store := storage.NewMemoryStore()

	l, err := settlement.New(settlement.Prm{Store: store, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	if prm.Owner.Equals(util.Uint160{}) {
		prm.Owner = newAccount(t)
	}
	prm.Logger = zaptest.NewLogger(t)

	c, err := New(prm)
	require.NoError(t, err)

	h, err := l.Deploy(context.Background(), prm.Owner, "thankyoucoin", c)
	require.NoError(t, err)

	return &env{t: t, store: store, l: l, c: c, hash: h, owner: prm.Owner}
}

func (e *env) invoke(sender util.Uint160, fn func(ic *settlement.Context) error) (*settlement.AppExecResult, error) {
	return e.l.Invoke(context.Background(), settlement.Transaction{Sender: sender, Contract: e.hash}, fn)
}

func (e *env) view(fn func(ic *settlement.Context)) {
	require.NoError(e.t, e.l.View(context.Background(), e.hash, func(ic *settlement.Context) error {
		fn(ic)
		return nil
	}))
}

func (e *env) balance(acc util.Uint160) int64 {
	var res int64
	e.view(func(ic *settlement.Context) { res = e.c.BalanceOf(ic, acc) })
	return res
}

func (e *env) allowance(owner, spender util.Uint160) int64 {
	var res int64
	e.view(func(ic *settlement.Context) { res = e.c.Allowance(ic, owner, spender) })
	return res
}

func (e *env) supply() int64 {
	var res int64
	e.view(func(ic *settlement.Context) { res = e.c.TotalSupply(ic) })
	return res
}

// checkSupply checks that balances of all holders sum up to the total supply.
func (e *env) checkSupply() {
	var sum int64
	e.view(func(ic *settlement.Context) {
		ic.Storage().Find([]byte{accPrefix}, func(_, v []byte) bool {
			var acc Account
			require.NoError(e.t, stackitem.DeserializeConvertible(v, &acc))
			require.Positive(e.t, acc.Balance)
			sum += acc.Balance
			return true
		})
	})
	require.Equal(e.t, e.supply(), sum)
}

func TestNew(t *testing.T) {
	_, err := New(Prm{InitialSupply: -1})
	require.Error(t, err)

	_, err = New(Prm{InitialSupply: 1})
	require.Error(t, err)

	c, err := New(Prm{})
	require.NoError(t, err)
	require.Equal(t, "ThankYouCoin", c.Name())
	require.Equal(t, "TYC", c.Symbol())
	require.Equal(t, 6, c.Decimals())
	require.Equal(t, common.Version, c.Version())
}

func TestDeploy(t *testing.T) {
	e := newEnv(t, Prm{InitialSupply: InitialSupply})

	require.EqualValues(t, 1024_000_000, e.balance(e.owner))
	require.EqualValues(t, InitialSupply, e.supply())
	e.checkSupply()

	t.Run("update keeps supply", func(t *testing.T) {
		c, err := New(Prm{Owner: e.owner, InitialSupply: InitialSupply})
		require.NoError(t, err)

		// new Ledger over the same store sees the contract deployed
		l, err := settlement.New(settlement.Prm{Store: e.store})
		require.NoError(t, err)

		h, err := l.Deploy(context.Background(), e.owner, "thankyoucoin", c)
		require.NoError(t, err)
		require.Equal(t, e.hash, h)

		require.NoError(t, l.View(context.Background(), h, func(ic *settlement.Context) error {
			require.EqualValues(t, InitialSupply, c.TotalSupply(ic))
			return nil
		}))
	})
}

func TestMint(t *testing.T) {
	var (
		e        = newEnv(t, Prm{})
		receiver = newAccount(t)
		stranger = newAccount(t)
	)

	_, err := e.invoke(stranger, func(ic *settlement.Context) error {
		return e.c.Mint(ic, receiver, 10)
	})
	require.ErrorIs(t, err, common.ErrNotAuthorized)
	require.Zero(t, e.balance(receiver))

	_, err = e.invoke(e.owner, func(ic *settlement.Context) error {
		return e.c.Mint(ic, receiver, -1)
	})
	require.ErrorIs(t, err, common.ErrInvalidArgument)

	res, err := e.invoke(e.owner, func(ic *settlement.Context) error {
		return e.c.Mint(ic, receiver, 10)
	})
	require.NoError(t, err)
	require.Len(t, res.Notifications, 1)
	require.Equal(t, EventTransfer, res.Notifications[0].Name)
	require.Equal(t, stackitem.Null{}, res.Notifications[0].Item.Value().([]stackitem.Item)[0])

	require.EqualValues(t, 10, e.balance(receiver))
	require.EqualValues(t, 10, e.supply())
	e.checkSupply()

	t.Run("custom minter", func(t *testing.T) {
		minter := newAccount(t)
		e := newEnv(t, Prm{Minter: common.OwnerWitness(minter)})

		_, err := e.invoke(e.owner, func(ic *settlement.Context) error {
			return e.c.Mint(ic, receiver, 1)
		})
		require.ErrorIs(t, err, common.ErrNotAuthorized)

		_, err = e.invoke(minter, func(ic *settlement.Context) error {
			return e.c.Mint(ic, receiver, 1)
		})
		require.NoError(t, err)
		require.EqualValues(t, 1, e.balance(receiver))
	})
}

func TestApprove(t *testing.T) {
	var (
		e       = newEnv(t, Prm{})
		holder  = newAccount(t)
		spender = newAccount(t)
	)

	approve := func(amount int64) error {
		_, err := e.invoke(holder, func(ic *settlement.Context) error {
			return e.c.Approve(ic, spender, amount)
		})
		return err
	}

	require.NoError(t, approve(40))
	require.EqualValues(t, 40, e.allowance(holder, spender))

	require.NoError(t, approve(15))
	require.EqualValues(t, 15, e.allowance(holder, spender), "approve must replace")

	require.NoError(t, approve(0))
	require.Zero(t, e.allowance(holder, spender))

	require.ErrorIs(t, approve(-1), common.ErrInvalidArgument)

	_, err := e.invoke(holder, func(ic *settlement.Context) error {
		return e.c.Approve(ic, util.Uint160{}, 1)
	})
	require.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestTransfer(t *testing.T) {
	var (
		e        = newEnv(t, Prm{InitialSupply: 100})
		receiver = newAccount(t)
	)

	transfer := func(from util.Uint160, amount int64) error {
		_, err := e.invoke(from, func(ic *settlement.Context) error {
			return e.c.Transfer(ic, receiver, amount)
		})
		return err
	}

	require.ErrorIs(t, transfer(e.owner, 101), common.ErrInsufficientBalance)
	require.NoError(t, transfer(e.owner, 30))
	require.NoError(t, transfer(e.owner, 70))

	require.Zero(t, e.balance(e.owner))
	require.EqualValues(t, 100, e.balance(receiver))
	e.checkSupply()
}

func TestTransferFrom(t *testing.T) {
	var (
		e        = newEnv(t, Prm{InitialSupply: 100})
		spender  = newAccount(t)
		receiver = newAccount(t)
	)

	approve := func(amount int64) {
		_, err := e.invoke(e.owner, func(ic *settlement.Context) error {
			return e.c.Approve(ic, spender, amount)
		})
		require.NoError(t, err)
	}

	transferFrom := func(amount int64) error {
		_, err := e.invoke(spender, func(ic *settlement.Context) error {
			return e.c.TransferFrom(ic, e.owner, receiver, amount)
		})
		return err
	}

	t.Run("no allowance", func(t *testing.T) {
		err := transferFrom(1)
		require.ErrorIs(t, err, common.ErrInsufficientAllowance)
	})

	t.Run("allowance checked first", func(t *testing.T) {
		approve(50)
		err := transferFrom(200)
		require.ErrorIs(t, err, common.ErrInsufficientAllowance)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		approve(500)
		err := transferFrom(101)
		require.ErrorIs(t, err, common.ErrInsufficientBalance)
		require.EqualValues(t, 500, e.allowance(e.owner, spender))
	})

	t.Run("success", func(t *testing.T) {
		approve(40)
		require.NoError(t, transferFrom(25))

		require.EqualValues(t, 15, e.allowance(e.owner, spender))
		require.EqualValues(t, 75, e.balance(e.owner))
		require.EqualValues(t, 25, e.balance(receiver))
		e.checkSupply()

		require.NoError(t, transferFrom(15))
		require.Zero(t, e.allowance(e.owner, spender))
		require.ErrorIs(t, transferFrom(1), common.ErrInsufficientAllowance)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		approve(10)
		require.ErrorIs(t, transferFrom(-1), common.ErrInvalidArgument)

		_, err := e.invoke(spender, func(ic *settlement.Context) error {
			return e.c.TransferFrom(ic, util.Uint160{}, receiver, 1)
		})
		require.ErrorIs(t, err, common.ErrInvalidArgument)
	})

	t.Run("failed invocation reverts allowance", func(t *testing.T) {
		approve(10)
		_, err := e.invoke(spender, func(ic *settlement.Context) error {
			if err := e.c.TransferFrom(ic, e.owner, receiver, 10); err != nil {
				return err
			}
			return common.ErrTransactionFailed
		})
		require.ErrorIs(t, err, common.ErrTransactionFailed)
		require.EqualValues(t, 10, e.allowance(e.owner, spender))
		e.checkSupply()
	})
}
