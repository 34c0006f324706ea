// Package payrecv contains a contract receiving native payments in tests.
package payrecv

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/txlogger/common"
	"github.com/nspcc-dev/txlogger/settlement"
)

var key = []byte("key")

// Call is a payment received by the Receiver.
type Call struct {
	From   util.Uint160
	Amount int64
}

// ToStackItem implements stackitem.Convertible.
func (c *Call) ToStackItem() (stackitem.Item, error) {
	return stackitem.NewStruct([]stackitem.Item{
		stackitem.NewByteArray(c.From.BytesBE()),
		stackitem.NewBigInteger(big.NewInt(c.Amount)),
	}), nil
}

// FromStackItem implements stackitem.Convertible.
func (c *Call) FromStackItem(item stackitem.Item) error {
	fields, ok := item.Value().([]stackitem.Item)
	if !ok || len(fields) != 2 {
		return errors.New("invalid call structure")
	}

	b, err := fields[0].TryBytes()
	if err != nil {
		return err
	}
	c.From, err = util.Uint160DecodeBytesBE(b)
	if err != nil {
		return err
	}

	amount, err := fields[1].TryInteger()
	if err != nil {
		return err
	}
	c.Amount = amount.Int64()

	return nil
}

// Receiver accepts native payments and remembers the last one. Rejecting
// receiver panics after storing the payment, so nothing it did is kept.
type Receiver struct {
	Reject bool
}

// OnPayment implements settlement.PaymentReceiver.
func (r *Receiver) OnPayment(ic *settlement.Context, from util.Uint160, amount int64, _ any) error {
	err := common.SetSerialized(ic.Storage(), key, &Call{From: from, Amount: amount})
	if err != nil {
		return err
	}
	if r.Reject {
		panic(fmt.Sprintf("payment of %d rejected", amount))
	}
	return nil
}

// Get returns the last accepted payment, zero Call if there is none.
func (r *Receiver) Get(ic *settlement.Context) Call {
	var c Call
	ok, err := common.GetSerialized(ic.Storage(), key, &c)
	if err != nil {
		panic(err)
	}
	if !ok {
		return Call{}
	}
	return c
}
