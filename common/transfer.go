package common

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// EventTransactionSent is the name of the notification produced by the
// gateway for every committed leg of a request.
const EventTransactionSent = "TransactionSent"

// TransferRecord describes a single successfully settled leg. Records are
// emitted, never stored by the gateway itself.
type TransferRecord struct {
	Sender   util.Uint160
	Receiver util.Uint160
	Amount   int64
	// Commit instant of the whole request in milliseconds, shared by all
	// records of the request.
	Timestamp uint64
}

var errInvalidRecord = errors.New("invalid transfer record")

// ToStackItem implements stackitem.Convertible. Resulting array follows
// TransactionSent notification parameters order.
func (r TransferRecord) ToStackItem() (stackitem.Item, error) {
	return stackitem.NewArray([]stackitem.Item{
		stackitem.NewByteArray(r.Sender.BytesBE()),
		stackitem.NewByteArray(r.Receiver.BytesBE()),
		stackitem.NewBigInteger(big.NewInt(r.Amount)),
		stackitem.NewBigInteger(new(big.Int).SetUint64(r.Timestamp)),
	}), nil
}

// FromStackItem implements stackitem.Convertible.
func (r *TransferRecord) FromStackItem(item stackitem.Item) error {
	arr, ok := item.Value().([]stackitem.Item)
	if !ok || len(arr) != 4 {
		return fmt.Errorf("%w: expected 4-element array", errInvalidRecord)
	}

	var err error

	r.Sender, err = hashFromItem(arr[0])
	if err != nil {
		return fmt.Errorf("%w: sender: %w", errInvalidRecord, err)
	}

	r.Receiver, err = hashFromItem(arr[1])
	if err != nil {
		return fmt.Errorf("%w: receiver: %w", errInvalidRecord, err)
	}

	amount, err := arr[2].TryInteger()
	if err != nil || !amount.IsInt64() {
		return fmt.Errorf("%w: amount is not a 64-bit integer", errInvalidRecord)
	}
	r.Amount = amount.Int64()

	ts, err := arr[3].TryInteger()
	if err != nil || !ts.IsUint64() {
		return fmt.Errorf("%w: timestamp is not an unsigned 64-bit integer", errInvalidRecord)
	}
	r.Timestamp = ts.Uint64()

	return nil
}

// TransferRecordFromEvent parses TransactionSent notification.
func TransferRecordFromEvent(ev state.NotificationEvent) (TransferRecord, error) {
	var r TransferRecord

	if ev.Name != EventTransactionSent {
		return r, fmt.Errorf("%w: unexpected event %q", errInvalidRecord, ev.Name)
	}
	if ev.Item == nil {
		return r, fmt.Errorf("%w: empty event", errInvalidRecord)
	}

	return r, r.FromStackItem(ev.Item)
}

func hashFromItem(item stackitem.Item) (util.Uint160, error) {
	b, err := item.TryBytes()
	if err != nil {
		return util.Uint160{}, err
	}
	return util.Uint160DecodeBytesBE(b)
}
