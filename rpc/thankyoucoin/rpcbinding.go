// Package thankyoucoin contains client wrappers for ThankYouCoin contract.
package thankyoucoin

import (
	"context"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/txlogger/contracts/thankyoucoin"
	"github.com/nspcc-dev/txlogger/settlement"
)

// TransferEvent represents "Transfer" event emitted by the contract. From is
// zero for issued tokens.
type TransferEvent struct {
	From   util.Uint160
	To     util.Uint160
	Amount int64
}

// ApprovalEvent represents "Approval" event emitted by the contract.
type ApprovalEvent struct {
	Owner   util.Uint160
	Spender util.Uint160
	Amount  int64
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
	c       *thankyoucoin.Contract
}

// Contract implements all contract methods. State-changing methods are
// invoked on behalf of the sender.
type Contract struct {
	ContractReader
	actor  Actor
	sender util.Uint160
}

// NewReader creates an instance of ContractReader using provided contract
// deployed under the hash and the given Invoker.
func NewReader(invoker Invoker, hash util.Uint160, c *thankyoucoin.Contract) *ContractReader {
	return &ContractReader{invoker, hash, c}
}

// New creates an instance of Contract using provided contract deployed under
// the hash and the given Actor.
func New(actor Actor, sender util.Uint160, hash util.Uint160, c *thankyoucoin.Contract) *Contract {
	return &Contract{ContractReader{actor, hash, c}, actor, sender}
}

// Hash returns hash of the contract.
func (c *ContractReader) Hash() util.Uint160 {
	return c.hash
}

// Name returns human-readable name of the token.
func (c *ContractReader) Name() string {
	return c.c.Name()
}

// Symbol returns ticker symbol of the token.
func (c *ContractReader) Symbol() string {
	return c.c.Symbol()
}

// Decimals returns precision of the token.
func (c *ContractReader) Decimals() int {
	return c.c.Decimals()
}

// Version returns version of the contract.
func (c *ContractReader) Version() int {
	return c.c.Version()
}

// TotalSupply invokes `totalSupply` method of contract.
func (c *ContractReader) TotalSupply(ctx context.Context) (int64, error) {
	var res int64
	err := c.invoker.View(ctx, c.hash, func(ic *settlement.Context) error {
		res = c.c.TotalSupply(ic)
		return nil
	})
	return res, err
}

// BalanceOf invokes `balanceOf` method of contract.
func (c *ContractReader) BalanceOf(ctx context.Context, account util.Uint160) (int64, error) {
	var res int64
	err := c.invoker.View(ctx, c.hash, func(ic *settlement.Context) error {
		res = c.c.BalanceOf(ic, account)
		return nil
	})
	return res, err
}

// Allowance invokes `allowance` method of contract.
func (c *ContractReader) Allowance(ctx context.Context, owner, spender util.Uint160) (int64, error) {
	var res int64
	err := c.invoker.View(ctx, c.hash, func(ic *settlement.Context) error {
		res = c.c.Allowance(ic, owner, spender)
		return nil
	})
	return res, err
}

// Mint invokes `mint` method of the contract. The result is returned for
// failed invocations too if the invocation has been admitted.
func (c *Contract) Mint(ctx context.Context, to util.Uint160, amount int64) (*settlement.AppExecResult, error) {
	return c.invoke(ctx, func(ic *settlement.Context) error {
		return c.c.Mint(ic, to, amount)
	})
}

// Approve invokes `approve` method of the contract.
func (c *Contract) Approve(ctx context.Context, spender util.Uint160, amount int64) (*settlement.AppExecResult, error) {
	return c.invoke(ctx, func(ic *settlement.Context) error {
		return c.c.Approve(ic, spender, amount)
	})
}

// Transfer invokes `transfer` method of the contract.
func (c *Contract) Transfer(ctx context.Context, to util.Uint160, amount int64) (*settlement.AppExecResult, error) {
	return c.invoke(ctx, func(ic *settlement.Context) error {
		return c.c.Transfer(ic, to, amount)
	})
}

// TransferFrom invokes `transferFrom` method of the contract.
func (c *Contract) TransferFrom(ctx context.Context, from, to util.Uint160, amount int64) (*settlement.AppExecResult, error) {
	return c.invoke(ctx, func(ic *settlement.Context) error {
		return c.c.TransferFrom(ic, from, to, amount)
	})
}

func (c *Contract) invoke(ctx context.Context, fn settlement.Invocation) (*settlement.AppExecResult, error) {
	return c.actor.Invoke(ctx, settlement.Transaction{Sender: c.sender, Contract: c.hash}, fn)
}

// TransferEventsFromApplicationLog retrieves a set of all emitted events
// with "Transfer" name from the provided [settlement.AppExecResult].
func TransferEventsFromApplicationLog(log *settlement.AppExecResult) ([]*TransferEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*TransferEvent
	for i, e := range log.Notifications {
		if e.Name != thankyoucoin.EventTransfer {
			continue
		}
		event := new(TransferEvent)
		err := event.FromStackItem(e.Item)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize TransferEvent from stackitem (event #%d): %w", i, err)
		}
		res = append(res, event)
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to TransferEvent or
// returns an error if it's not possible to do to so.
func (e *TransferEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventFields(item, 3)
	if err != nil {
		return err
	}

	if _, ok := arr[0].(stackitem.Null); !ok {
		e.From, err = hashFromItem(arr[0])
		if err != nil {
			return fmt.Errorf("field From: %w", err)
		}
	}

	e.To, err = hashFromItem(arr[1])
	if err != nil {
		return fmt.Errorf("field To: %w", err)
	}

	e.Amount, err = int64FromItem(arr[2])
	if err != nil {
		return fmt.Errorf("field Amount: %w", err)
	}

	return nil
}

// ApprovalEventsFromApplicationLog retrieves a set of all emitted events
// with "Approval" name from the provided [settlement.AppExecResult].
func ApprovalEventsFromApplicationLog(log *settlement.AppExecResult) ([]*ApprovalEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*ApprovalEvent
	for i, e := range log.Notifications {
		if e.Name != thankyoucoin.EventApproval {
			continue
		}
		event := new(ApprovalEvent)
		err := event.FromStackItem(e.Item)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize ApprovalEvent from stackitem (event #%d): %w", i, err)
		}
		res = append(res, event)
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to ApprovalEvent or
// returns an error if it's not possible to do to so.
func (e *ApprovalEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventFields(item, 3)
	if err != nil {
		return err
	}

	e.Owner, err = hashFromItem(arr[0])
	if err != nil {
		return fmt.Errorf("field Owner: %w", err)
	}

	e.Spender, err = hashFromItem(arr[1])
	if err != nil {
		return fmt.Errorf("field Spender: %w", err)
	}

	e.Amount, err = int64FromItem(arr[2])
	if err != nil {
		return fmt.Errorf("field Amount: %w", err)
	}

	return nil
}

func eventFields(item *stackitem.Array, n int) ([]stackitem.Item, error) {
	if item == nil {
		return nil, errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return nil, errors.New("not an array")
	}
	if len(arr) != n {
		return nil, errors.New("wrong number of structure elements")
	}
	return arr, nil
}

func hashFromItem(item stackitem.Item) (util.Uint160, error) {
	b, err := item.TryBytes()
	if err != nil {
		return util.Uint160{}, err
	}
	return util.Uint160DecodeBytesBE(b)
}

func int64FromItem(item stackitem.Item) (int64, error) {
	bi, err := item.TryInteger()
	if err != nil {
		return 0, err
	}
	if !bi.IsInt64() {
		return 0, errors.New("not a 64-bit integer")
	}
	return bi.Int64(), nil
}
