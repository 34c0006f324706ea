package indexer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/txlogger/common"
	"github.com/nspcc-dev/txlogger/contracts/txlogger"
	"github.com/nspcc-dev/txlogger/deploy"
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

func openTempStore(t *testing.T, gateway util.Uint160) *Store {
	s, err := Open(context.Background(), Prm{
		Path:    filepath.Join(t.TempDir(), "index.db"),
		Gateway: gateway,
		Logger:  zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sentEvent(gateway util.Uint160, r common.TransferRecord) state.NotificationEvent {
	item, _ := r.ToStackItem()
	return state.NotificationEvent{
		ScriptHash: gateway,
		Name:       common.EventTransactionSent,
		Item:       item.(*stackitem.Array),
	}
}

func TestOpen(t *testing.T) {
	_, err := Open(context.Background(), Prm{})
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "index.db")

	s, err := Open(context.Background(), Prm{Path: path})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// migrations are applied once
	s, err = Open(context.Background(), Prm{Path: path})
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestStore_Index(t *testing.T) {
	var (
		ctx     = context.Background()
		gateway = newAccount(t)
		other   = newAccount(t)
		sender  = newAccount(t)
		r1, r2  = newAccount(t), newAccount(t)
		s       = openTempStore(t, gateway)
		id      = uuid.New()
		records = []common.TransferRecord{
			{Sender: sender, Receiver: r1, Amount: 10, Timestamp: 1000},
			{Sender: sender, Receiver: r2, Amount: 20, Timestamp: 1000},
		}
	)

	res := &settlement.AppExecResult{
		ID:    id,
		State: vmstate.Halt,
		Notifications: []state.NotificationEvent{
			sentEvent(gateway, records[0]),
			{ScriptHash: gateway, Name: "Other", Item: stackitem.NewArray(nil)},
			sentEvent(other, common.TransferRecord{Sender: sender, Receiver: r1, Amount: 99, Timestamp: 1000}),
			sentEvent(gateway, records[1]),
		},
	}

	n, err := s.Index(ctx, res)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// repeated indexing is ignored
	_, err = s.Index(ctx, res)
	require.NoError(t, err)

	transfers, err := s.ByTx(ctx, id)
	require.NoError(t, err)
	require.Len(t, transfers, 2)
	for i := range transfers {
		require.Equal(t, records[i], transfers[i].TransferRecord)
		require.Equal(t, i, transfers[i].Leg)
		require.Equal(t, id, transfers[i].TxID)
		require.Equal(t, gateway, transfers[i].Gateway)
	}

	transfers, err = s.ByReceiver(ctx, r2, 10)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	require.Equal(t, records[1], transfers[0].TransferRecord)

	_, err = s.BySender(ctx, sender, 0)
	require.Error(t, err)

	t.Run("faulted invocation", func(t *testing.T) {
		s.OnPersist(&settlement.AppExecResult{
			ID:            uuid.New(),
			State:         vmstate.Fault,
			Notifications: []state.NotificationEvent{sentEvent(gateway, records[0])},
		})

		transfers, err := s.BySender(ctx, sender, 10)
		require.NoError(t, err)
		require.Len(t, transfers, 2)
	})

	t.Run("malformed event", func(t *testing.T) {
		_, err := s.Index(ctx, &settlement.AppExecResult{
			ID:    uuid.New(),
			State: vmstate.Halt,
			Notifications: []state.NotificationEvent{{
				ScriptHash: gateway,
				Name:       common.EventTransactionSent,
				Item:       stackitem.NewArray([]stackitem.Item{stackitem.Make(1)}),
			}},
		})
		require.Error(t, err)
	})
}

func TestStore_OnPersist(t *testing.T) {
	var (
		ctx      = context.Background()
		deployer = newAccount(t)
		clk      = clock.NewMock()
	)

	clk.Set(time.UnixMilli(1_700_000_000_000))

	l, err := settlement.New(settlement.Prm{Clock: clk, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	cs, err := deploy.Deploy(ctx, deploy.Prm{
		Ledger:   l,
		Deployer: deployer,
		Gateway:  deploy.GatewayPrm{Mode: txlogger.ModeNative, MinimumAmount: 1},
	})
	require.NoError(t, err)

	s := openTempStore(t, cs.GatewayHash)
	l.AddObserver(s)

	sender := newAccount(t)
	_, err = l.Deposit(ctx, sender, 100)
	require.NoError(t, err)

	gw := rpctxlogger.New(l, sender, cs.GatewayHash, cs.Gateway)

	receivers := []util.Uint160{newAccount(t), newAccount(t), newAccount(t)}
	receipt, err := gw.SendMultiFunds(ctx, receivers, []int64{10, 20, 30}, 60)
	require.NoError(t, err)

	_, err = gw.SendMultiFunds(ctx, receivers, []int64{10, 20, 30}, 30)
	require.ErrorIs(t, err, common.ErrInsufficientOrExcessFunds)

	transfers, err := s.BySender(ctx, sender, 10)
	require.NoError(t, err)
	require.Len(t, transfers, 3)

	transfers, err = s.ByTx(ctx, receipt.ID)
	require.NoError(t, err)
	require.Len(t, transfers, 3)
	for i := range transfers {
		require.Equal(t, receipt.Records[i], transfers[i].TransferRecord)
		require.EqualValues(t, 1_700_000_000_000, transfers[i].Timestamp)
	}
}
