package txlogger

import (
	"context"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/txlogger/common"
	"github.com/nspcc-dev/txlogger/contracts/txlogger"
	"github.com/nspcc-dev/txlogger/settlement"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newAccount(t testing.TB) util.Uint160 {
	k, err := keys.NewPrivateKey()
	require.NoError(t, err)
	return k.GetScriptHash()
}

func TestContract(t *testing.T) {
	ctx := context.Background()

	l, err := settlement.New(settlement.Prm{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	gw, err := txlogger.New(txlogger.Prm{Mode: txlogger.ModeNative, MinimumAmount: 5})
	require.NoError(t, err)

	h, err := l.Deploy(ctx, newAccount(t), "txlogger", gw)
	require.NoError(t, err)

	sender := newAccount(t)
	_, err = l.Deposit(ctx, sender, 100)
	require.NoError(t, err)

	c := New(l, sender, h, gw)
	require.Equal(t, h, c.Hash())
	require.Equal(t, txlogger.ModeNative, c.Mode())
	require.EqualValues(t, 5, c.MinimumAmount())
	require.Zero(t, c.Token())

	t.Run("committed", func(t *testing.T) {
		receiver := newAccount(t)

		r, err := c.SendFunds(ctx, receiver, 0, 10)
		require.NoError(t, err)
		require.Equal(t, txlogger.StateCommitted, r.State)
		require.Equal(t, vmstate.Halt, r.VMState)
		require.Equal(t, []common.TransferRecord{{
			Sender:    sender,
			Receiver:  receiver,
			Amount:    10,
			Timestamp: r.Timestamp,
		}}, r.Records)
	})

	t.Run("rejected", func(t *testing.T) {
		r, err := c.SendMultiFunds(ctx, []util.Uint160{newAccount(t)}, []int64{1}, 1)
		require.ErrorIs(t, err, common.ErrMinimumTransferAmountNotMet)
		require.Equal(t, txlogger.StateRejected, r.State)
		require.Equal(t, vmstate.Fault, r.VMState)
		require.Empty(t, r.Records)
	})

	t.Run("not admitted", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		r, err := c.SendFunds(canceled, newAccount(t), 0, 10)
		require.ErrorIs(t, err, context.Canceled)
		require.Nil(t, r)
	})

	balance, err := c.Balance(ctx)
	require.NoError(t, err)
	require.Zero(t, balance)
}

func TestTransactionSentEventsFromApplicationLog(t *testing.T) {
	_, err := TransactionSentEventsFromApplicationLog(nil)
	require.Error(t, err)

	rec := common.TransferRecord{Sender: util.Uint160{1}, Receiver: util.Uint160{2}, Amount: 3, Timestamp: 4}
	item, err := rec.ToStackItem()
	require.NoError(t, err)

	res := &settlement.AppExecResult{Notifications: []state.NotificationEvent{
		{Name: "Transfer", Item: stackitem.NewArray(nil)},
		{Name: common.EventTransactionSent, Item: item.(*stackitem.Array)},
	}}

	records, err := TransactionSentEventsFromApplicationLog(res)
	require.NoError(t, err)
	require.Equal(t, []common.TransferRecord{rec}, records)
}
