// Package txlogger contains client wrappers for the transfer gateway
// contract.
package txlogger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/txlogger/common"
	"github.com/nspcc-dev/txlogger/contracts/txlogger"
	"github.com/nspcc-dev/txlogger/settlement"
)

// Receipt describes processed transfer request.
type Receipt struct {
	// Invocation identifier, zero if the request hasn't been admitted.
	ID uuid.UUID

	// Terminal state of the request.
	State txlogger.State

	// VM state of the invocation.
	VMState vmstate.State

	// Commit instant in milliseconds.
	Timestamp uint64

	// Records of the settled transfers, empty for failed requests.
	Records []common.TransferRecord
}

// Invoker is used by ContractReader to call various safe methods.
type Invoker interface {
	View(ctx context.Context, contract util.Uint160, fn settlement.Invocation) error
}

// Actor is used by Contract to call state-changing methods.
type Actor interface {
	Invoker

	Invoke(ctx context.Context, tx settlement.Transaction, fn settlement.Invocation) (*settlement.AppExecResult, error)
}

// ContractReader implements safe contract methods.
type ContractReader struct {
	invoker Invoker
	hash    util.Uint160
	c       *txlogger.Contract
}

// Contract implements all contract methods. Requests are sent on behalf of
// the sender.
type Contract struct {
	ContractReader
	actor  Actor
	sender util.Uint160
}

// NewReader creates an instance of ContractReader using provided contract
// deployed under the hash and the given Invoker.
func NewReader(invoker Invoker, hash util.Uint160, c *txlogger.Contract) *ContractReader {
	return &ContractReader{invoker, hash, c}
}

// New creates an instance of Contract using provided contract deployed under
// the hash and the given Actor.
func New(actor Actor, sender util.Uint160, hash util.Uint160, c *txlogger.Contract) *Contract {
	return &Contract{ContractReader{actor, hash, c}, actor, sender}
}

// Hash returns hash of the gateway.
func (c *ContractReader) Hash() util.Uint160 {
	return c.hash
}

// Mode returns settlement mode of the gateway.
func (c *ContractReader) Mode() txlogger.Mode {
	return c.c.Mode()
}

// MinimumAmount returns minimum amount of a single leg.
func (c *ContractReader) MinimumAmount() int64 {
	return c.c.MinimumAmount()
}

// Token returns hash of the asset contract, zero in native mode.
func (c *ContractReader) Token() util.Uint160 {
	return c.c.Token()
}

// Version returns version of the contract.
func (c *ContractReader) Version() int {
	return c.c.Version()
}

// Balance returns native value held by the gateway outside of requests.
func (c *ContractReader) Balance(ctx context.Context) (int64, error) {
	var res int64
	err := c.invoker.View(ctx, c.hash, func(ic *settlement.Context) error {
		res = ic.NativeBalanceOf(c.hash)
		return nil
	})
	return res, err
}

// SendFunds invokes `sendFunds` method of the contract with value attached.
// Receipt is returned along with the error for admitted requests.
func (c *Contract) SendFunds(ctx context.Context, receiver util.Uint160, amount int64, value int64) (*Receipt, error) {
	var records []common.TransferRecord

	res, err := c.actor.Invoke(ctx, settlement.Transaction{Sender: c.sender, Contract: c.hash, Value: value},
		func(ic *settlement.Context) error {
			var err error
			records, err = c.c.SendFunds(ic, receiver, amount)
			return err
		})

	return receipt(res, records, err)
}

// SendMultiFunds invokes `sendMultiFunds` method of the contract with value
// attached. Receipt is returned along with the error for admitted requests.
func (c *Contract) SendMultiFunds(ctx context.Context, receivers []util.Uint160, amounts []int64, value int64) (*Receipt, error) {
	var records []common.TransferRecord

	res, err := c.actor.Invoke(ctx, settlement.Transaction{Sender: c.sender, Contract: c.hash, Value: value},
		func(ic *settlement.Context) error {
			var err error
			records, err = c.c.SendMultiFunds(ic, receivers, amounts)
			return err
		})

	return receipt(res, records, err)
}

func receipt(res *settlement.AppExecResult, records []common.TransferRecord, err error) (*Receipt, error) {
	if res == nil {
		return nil, err
	}

	r := &Receipt{
		ID:        res.ID,
		State:     txlogger.StateOf(err),
		VMState:   res.State,
		Timestamp: res.Timestamp,
	}
	if err == nil {
		r.Records = records
	}

	return r, err
}

// TransactionSentEventsFromApplicationLog retrieves a set of all emitted
// events with "TransactionSent" name from the provided
// [settlement.AppExecResult].
func TransactionSentEventsFromApplicationLog(log *settlement.AppExecResult) ([]common.TransferRecord, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []common.TransferRecord
	for i, e := range log.Notifications {
		if e.Name != common.EventTransactionSent {
			continue
		}
		r, err := common.TransferRecordFromEvent(e)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize TransactionSent event (event #%d): %w", i, err)
		}
		res = append(res, r)
	}

	return res, nil
}
