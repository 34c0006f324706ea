package settlement

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"go.uber.org/zap"
)

// Context is an execution frame of the contract within the Ledger invocation.
// Context is not safe for concurrent use and must not be retained after the
// invocation body returns.
type Context struct {
	ledger *Ledger
	id     uuid.UUID
	time   uint64

	calling   util.Uint160
	executing util.Uint160
	value     int64

	store    *storage.MemCachedStore
	readOnly bool

	notifications []state.NotificationEvent
	commitHooks   []func()

	log *zap.Logger
}

// TxID returns identifier of the current invocation. It is zero for read-only
// views.
func (ic *Context) TxID() uuid.UUID {
	return ic.id
}

// Time returns commit timestamp of the current invocation in milliseconds.
// All frames of the invocation share the same timestamp.
func (ic *Context) Time() uint64 {
	return ic.time
}

// CallingScriptHash returns the account or the contract which called the
// executing one.
func (ic *Context) CallingScriptHash() util.Uint160 {
	return ic.calling
}

// ExecutingScriptHash returns hash of the executing contract.
func (ic *Context) ExecutingScriptHash() util.Uint160 {
	return ic.executing
}

// CheckWitness checks whether h is the direct caller of the executing
// contract. Witness of the invocation sender is not valid in contracts called
// by other contracts.
func (ic *Context) CheckWitness(h util.Uint160) bool {
	return ic.calling.Equals(h)
}

// Value returns native value attached to the current call. Value is already
// accounted on the executing contract balance.
func (ic *Context) Value() int64 {
	return ic.value
}

// Logger returns logger of the invocation.
func (ic *Context) Logger() *zap.Logger {
	return ic.log
}

// Storage returns storage of the executing contract.
func (ic *Context) Storage() Storage {
	return Storage{
		store:    ic.store,
		prefix:   append([]byte{prefixContract}, ic.executing.BytesBE()...),
		readOnly: ic.readOnly,
	}
}

// Notify produces notification of the executing contract. Arguments must be
// nil or convertible by stackitem.Make.
func (ic *Context) Notify(name string, args ...any) {
	items := make([]stackitem.Item, len(args))
	for i := range args {
		if args[i] == nil {
			items[i] = stackitem.Null{}
			continue
		}
		items[i] = stackitem.Make(args[i])
	}

	ic.notifications = append(ic.notifications, state.NotificationEvent{
		ScriptHash: ic.executing,
		Name:       name,
		Item:       stackitem.NewArray(items),
	})
}

// OnCommit schedules f to be called once the invocation is persisted. f is
// dropped if the frame or the invocation fails, and is never called in
// read-only views. Hooks are called in the order of scheduling and must not
// invoke the Ledger.
func (ic *Context) OnCommit(f func()) {
	ic.commitHooks = append(ic.commitHooks, f)
}

// NativeBalanceOf returns native balance of the account.
func (ic *Context) NativeBalanceOf(h util.Uint160) int64 {
	return getInt(ic.store, nativeKey(h))
}

// TransferNative pushes amount of native value from the executing contract to
// the receiver. If the receiver is a contract, its PaymentReceiver hook is
// called with the given data.
//
// TransferNative is atomic: on error, no value leaves the executing contract
// and nothing done by the receiver hook is kept.
func (ic *Context) TransferNative(to util.Uint160, amount int64, data any) error {
	from := ic.executing

	err := ic.frame(to, func(c *Context) error {
		err := c.moveNative(from, to, amount)
		if err != nil {
			return err
		}

		ctr, ok := ic.ledger.contracts[to]
		if !ok {
			return nil
		}

		r, ok := ctr.(PaymentReceiver)
		if !ok {
			return ErrNotPayable
		}

		return r.OnPayment(c, from, amount, data)
	})
	if err != nil {
		ic.log.Debug("native transfer failed",
			zap.String("from", address.Uint160ToString(from)),
			zap.String("to", address.Uint160ToString(to)),
			zap.Int64("amount", amount),
			zap.Error(err))
		return fmt.Errorf("transfer %d to %s: %w", amount, address.Uint160ToString(to), err)
	}

	return nil
}

// Call executes fn in the frame of the contract h called by the executing
// contract. Changes made by fn are kept only if it succeeds.
func (ic *Context) Call(h util.Uint160, fn Invocation) error {
	if _, ok := ic.ledger.contracts[h]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownContract, h.StringLE())
	}

	return ic.frame(h, fn)
}

func (ic *Context) frame(executing util.Uint160, fn Invocation) error {
	child := &Context{
		ledger:    ic.ledger,
		id:        ic.id,
		time:      ic.time,
		calling:   ic.executing,
		executing: executing,
		store:     storage.NewMemCachedStore(ic.store),
		readOnly:  ic.readOnly,
		log:       ic.log,
	}

	err := child.run(fn)
	if err != nil {
		return err
	}

	_, err = child.store.PersistSync()
	if err != nil {
		return fmt.Errorf("persist call frame: %w", err)
	}

	ic.notifications = append(ic.notifications, child.notifications...)
	ic.commitHooks = append(ic.commitHooks, child.commitHooks...)

	return nil
}

// run executes fn turning panics into errors.
func (ic *Context) run(fn Invocation) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if e, ok := r.(error); ok {
			err = fmt.Errorf("contract panic: %w", e)
		} else {
			err = fmt.Errorf("contract panic: %v", r)
		}
	}()

	return fn(ic)
}

func (ic *Context) moveNative(from, to util.Uint160, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("%w: negative amount %d", ErrInvalidValue, amount)
	}
	if to.Equals(util.Uint160{}) {
		return fmt.Errorf("%w: zero receiver", ErrInvalidValue)
	}
	if ic.readOnly {
		return ErrReadOnly
	}

	balance := ic.NativeBalanceOf(from)
	if balance < amount {
		return fmt.Errorf("%w: %s has %d, %d required",
			ErrInsufficientFunds, address.Uint160ToString(from), balance, amount)
	}

	if from.Equals(to) {
		return nil
	}

	// sum of balances never exceeds the supply, so no overflow here
	putInt(ic.store, nativeKey(from), balance-amount)
	putInt(ic.store, nativeKey(to), ic.NativeBalanceOf(to)+amount)

	return nil
}

// Storage is a storage view of a single contract. Storage panics on backing
// store failures and on changes in read-only invocations, which aborts the
// invocation.
type Storage struct {
	store    *storage.MemCachedStore
	prefix   []byte
	readOnly bool
}

// Get returns value stored under the key or nil if there is none.
func (s Storage) Get(key []byte) []byte {
	v, err := s.store.Get(s.key(key))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil
		}
		panic(fmt.Errorf("storage get: %w", err))
	}
	return v
}

// Put stores the value under the key.
func (s Storage) Put(key, value []byte) {
	s.checkWritable()
	s.store.Put(s.key(key), slices.Clone(value))
}

// Delete removes the value under the key.
func (s Storage) Delete(key []byte) {
	s.checkWritable()
	s.store.Delete(s.key(key))
}

// Find calls f for every key-value pair with the key prefix until f returns
// false. Keys are passed without the prefix. Passed slices must not be
// retained.
func (s Storage) Find(prefix []byte, f func(k, v []byte) bool) {
	full := s.key(prefix)
	s.store.Seek(storage.SeekRange{Prefix: full}, func(k, v []byte) bool {
		return f(bytes.TrimPrefix(k, full), v)
	})
}

func (s Storage) key(k []byte) []byte {
	res := make([]byte, 0, len(s.prefix)+len(k))
	return append(append(res, s.prefix...), k...)
}

func (s Storage) checkWritable() {
	if s.readOnly {
		panic(ErrReadOnly)
	}
}
