package settlement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/core/storage/dbconfig"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/encoding/bigint"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// NativeDecimals is the precision of native value.
const NativeDecimals = 8

// EventDeposit is the name of the notification produced by Ledger.Deposit.
const EventDeposit = "Deposit"

// Storage key prefixes of the backing store.
const (
	prefixNativeBalance byte = 0x01
	prefixNativeSupply  byte = 0x02
	prefixContract      byte = 0x10
	prefixDeployed      byte = 0x20
	prefixTime          byte = 0x30
)

const tracerName = "github.com/nspcc-dev/txlogger/settlement"

// Transaction describes a single request to the Ledger.
type Transaction struct {
	// Account the invocation is made on behalf of.
	Sender util.Uint160
	// Invoked contract. Zero hash means no contract, such invocation can't
	// carry native value.
	Contract util.Uint160
	// Native value moved from Sender to Contract before the invocation body is
	// executed.
	Value int64
}

// Invocation is a body of the Ledger invocation.
type Invocation func(ic *Context) error

// AppExecResult is a result of the Ledger invocation.
type AppExecResult struct {
	ID       uuid.UUID
	Sender   util.Uint160
	Contract util.Uint160
	Value    int64
	// Commit instant in milliseconds.
	Timestamp      uint64
	State          vmstate.State
	FaultException string
	// Notifications produced by the invocation, empty on fault.
	Notifications []state.NotificationEvent
}

// PaymentReceiver is implemented by contracts accepting native value pushed
// with Context.TransferNative. Returned error rejects the payment.
type PaymentReceiver interface {
	OnPayment(ic *Context, from util.Uint160, amount int64, data any) error
}

// Deployer is implemented by contracts that need to initialize their storage.
// isUpdate is true if the contract has already been deployed to the backing
// store before.
type Deployer interface {
	OnDeploy(ic *Context, isUpdate bool) error
}

// Observer is notified about every committed invocation. Observers are called
// synchronously in commit order and must not invoke the Ledger.
type Observer interface {
	OnPersist(res *AppExecResult)
}

// ObserverFunc is a functional Observer.
type ObserverFunc func(res *AppExecResult)

// OnPersist implements Observer.
func (f ObserverFunc) OnPersist(res *AppExecResult) { f(res) }

// Prm groups Ledger parameters.
type Prm struct {
	// Backing store. In-memory store is used if not set.
	Store storage.Store

	// Source of commit timestamps. System clock is used if not set.
	Clock clock.Clock

	// Writes invocation results into the log.
	Logger *zap.Logger

	// Optional registerer of the Ledger metrics.
	Registerer prometheus.Registerer

	// Provider of the invocation tracer. Global provider is used if not set.
	TracerProvider trace.TracerProvider
}

// Ledger executes invocations against the backing store one at a time, each
// one either completely or not at all.
//
// Ledger instances must be constructed using New.
type Ledger struct {
	store   storage.Store
	clock   clock.Clock
	log     *zap.Logger
	metrics *metrics
	tracer  trace.Tracer

	// single admission slot, everything below is accessed by the holder only
	admit chan struct{}

	contracts map[util.Uint160]any
	observers []Observer
	lastTime  uint64
}

// OpenStore opens backing store described by the configuration.
func OpenStore(cfg dbconfig.DBConfiguration) (storage.Store, error) {
	st, err := storage.NewStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Type, err)
	}
	return st, nil
}

// New constructs Ledger over the store from Prm.
func New(prm Prm) (*Ledger, error) {
	l := &Ledger{
		store:     prm.Store,
		clock:     prm.Clock,
		log:       prm.Logger,
		metrics:   newMetrics(prm.Registerer),
		admit:     make(chan struct{}, 1),
		contracts: make(map[util.Uint160]any),
	}

	if l.store == nil {
		l.store = storage.NewMemoryStore()
	}
	if l.clock == nil {
		l.clock = clock.New()
	}
	if l.log == nil {
		l.log = zap.NewNop()
	}
	if prm.TracerProvider == nil {
		prm.TracerProvider = otel.GetTracerProvider()
	}
	l.tracer = prm.TracerProvider.Tracer(tracerName)

	raw, err := l.store.Get([]byte{prefixTime})
	switch {
	case err == nil:
		l.lastTime = bigint.FromBytes(raw).Uint64()
	case !errors.Is(err, storage.ErrKeyNotFound):
		return nil, fmt.Errorf("read latest commit time: %w", err)
	}

	return l, nil
}

// Close closes the backing store.
func (l *Ledger) Close() error {
	return l.store.Close()
}

// AddObserver subscribes o to committed invocations.
func (l *Ledger) AddObserver(o Observer) {
	l.admit <- struct{}{}
	l.observers = append(l.observers, o)
	<-l.admit
}

// ContractHash returns hash the contract with the given name gets when
// deployed by the deployer.
func ContractHash(deployer util.Uint160, name string) util.Uint160 {
	return state.CreateContractHash(deployer, 0, name)
}

// Deploy registers contract c under the given name and returns its hash (see
// ContractHash). If c implements Deployer, OnDeploy is executed within an
// invocation made by the deployer; the contract is unregistered back if the
// invocation fails.
func (l *Ledger) Deploy(ctx context.Context, deployer util.Uint160, name string, c any) (util.Uint160, error) {
	h := ContractHash(deployer, name)

	err := l.acquire(ctx)
	if err != nil {
		return h, err
	}
	defer l.release()

	if _, ok := l.contracts[h]; ok {
		return h, fmt.Errorf("%w: %s", ErrAlreadyDeployed, name)
	}

	l.contracts[h] = c

	_, err = l.invoke(ctx, Transaction{Sender: deployer, Contract: h}, func(ic *Context) error {
		key := append([]byte{prefixDeployed}, h.BytesBE()...)
		_, err := ic.store.Get(key)
		isUpdate := err == nil

		ic.store.Put(key, []byte{1})

		if d, ok := c.(Deployer); ok {
			return d.OnDeploy(ic, isUpdate)
		}
		return nil
	})
	if err != nil {
		delete(l.contracts, h)
		return h, fmt.Errorf("deploy %s: %w", name, err)
	}

	l.log.Info("contract deployed", zap.String("name", name), zap.Stringer("hash", h))

	return h, nil
}

// Invoke executes fn within a new invocation described by tx. If tx carries
// native value, it is moved from the sender to the invoked contract first.
//
// The invocation is committed only if fn returns no error and doesn't panic.
// Otherwise, all changes made by the invocation are discarded and the error is
// returned along with the FAULT result. Errors returned before the invocation
// is admitted (invalid transaction, context done) come with nil result.
//
// Context is consulted only while waiting for admission; admitted invocation
// always runs to the end.
func (l *Ledger) Invoke(ctx context.Context, tx Transaction, fn Invocation) (*AppExecResult, error) {
	if tx.Value < 0 {
		return nil, fmt.Errorf("%w: negative value %d", ErrInvalidValue, tx.Value)
	}

	err := l.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer l.release()

	if tx.Contract.Equals(util.Uint160{}) {
		if tx.Value != 0 {
			return nil, fmt.Errorf("%w: value sent to no contract", ErrInvalidValue)
		}
	} else if _, ok := l.contracts[tx.Contract]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContract, tx.Contract.StringLE())
	}

	return l.invoke(ctx, tx, fn)
}

// Deposit issues amount of native value to the account.
func (l *Ledger) Deposit(ctx context.Context, to util.Uint160, amount int64) (*AppExecResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: non-positive deposit %d", ErrInvalidValue, amount)
	}

	err := l.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer l.release()

	return l.invoke(ctx, Transaction{Sender: to}, func(ic *Context) error {
		supply := getInt(ic.store, []byte{prefixNativeSupply})
		if supply > math.MaxInt64-amount {
			return fmt.Errorf("%w: native supply overflow", ErrInvalidValue)
		}

		putInt(ic.store, []byte{prefixNativeSupply}, supply+amount)
		putInt(ic.store, nativeKey(to), ic.NativeBalanceOf(to)+amount)

		ic.Notify(EventDeposit, to, amount)

		return nil
	})
}

// View executes fn on behalf of the contract against the latest committed
// state. Changes are forbidden.
func (l *Ledger) View(ctx context.Context, contract util.Uint160, fn Invocation) error {
	err := l.acquire(ctx)
	if err != nil {
		return err
	}
	defer l.release()

	ic := &Context{
		ledger:    l,
		time:      l.lastTime,
		executing: contract,
		store:     storage.NewMemCachedStore(l.store),
		readOnly:  true,
		log:       l.log,
	}

	return ic.run(fn)
}

// NativeBalanceOf returns native balance of the account.
func (l *Ledger) NativeBalanceOf(ctx context.Context, acc util.Uint160) (int64, error) {
	var res int64
	err := l.View(ctx, util.Uint160{}, func(ic *Context) error {
		res = ic.NativeBalanceOf(acc)
		return nil
	})
	return res, err
}

// NativeSupply returns total amount of native value deposited to the Ledger.
func (l *Ledger) NativeSupply(ctx context.Context) (int64, error) {
	var res int64
	err := l.View(ctx, util.Uint160{}, func(ic *Context) error {
		res = getInt(ic.store, []byte{prefixNativeSupply})
		return nil
	})
	return res, err
}

func (l *Ledger) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case l.admit <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Ledger) release() {
	<-l.admit
}

// nextTime returns commit timestamp which is never less than the previous one.
func (l *Ledger) nextTime() uint64 {
	now := l.clock.Now().UnixMilli()
	if now < 0 || uint64(now) < l.lastTime {
		return l.lastTime
	}
	return uint64(now)
}

// invoke must be called with the admission slot held.
func (l *Ledger) invoke(ctx context.Context, tx Transaction, fn Invocation) (*AppExecResult, error) {
	start := l.clock.Now()

	res := &AppExecResult{
		ID:        uuid.New(),
		Sender:    tx.Sender,
		Contract:  tx.Contract,
		Value:     tx.Value,
		Timestamp: l.nextTime(),
	}

	_, span := l.tracer.Start(ctx, "settlement.invoke", trace.WithAttributes(
		attribute.String("tx", res.ID.String()),
		attribute.String("sender", address.Uint160ToString(tx.Sender)),
		attribute.String("contract", tx.Contract.StringLE()),
		attribute.Int64("value", tx.Value),
	))
	defer span.End()

	log := l.log.With(
		zap.Stringer("tx", res.ID),
		zap.String("sender", address.Uint160ToString(tx.Sender)),
	)

	ic := &Context{
		ledger:    l,
		id:        res.ID,
		time:      res.Timestamp,
		calling:   tx.Sender,
		executing: tx.Contract,
		value:     tx.Value,
		store:     storage.NewMemCachedStore(l.store),
		log:       log,
	}

	err := ic.run(func(ic *Context) error {
		if tx.Value > 0 {
			if err := ic.moveNative(tx.Sender, tx.Contract, tx.Value); err != nil {
				return fmt.Errorf("attach value: %w", err)
			}
		}
		return fn(ic)
	})
	if err == nil {
		putUint(ic.store, []byte{prefixTime}, res.Timestamp)

		_, err = ic.store.PersistSync()
		if err != nil {
			err = fmt.Errorf("persist invocation: %w", err)
		}
	}

	l.metrics.duration.Observe(l.clock.Now().Sub(start).Seconds())

	if err != nil {
		res.State = vmstate.Fault
		res.FaultException = err.Error()

		l.metrics.invocations.WithLabelValues(res.State.String()).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, res.FaultException)
		log.Info("invocation aborted", zap.Error(err))

		return res, err
	}

	l.lastTime = res.Timestamp

	res.State = vmstate.Halt
	res.Notifications = ic.notifications

	l.metrics.invocations.WithLabelValues(res.State.String()).Inc()
	span.SetAttributes(attribute.Int("notifications", len(res.Notifications)))
	log.Debug("invocation committed", zap.Int("notifications", len(res.Notifications)))

	for _, f := range ic.commitHooks {
		f()
	}
	for _, o := range l.observers {
		o.OnPersist(res)
	}

	return res, nil
}

func nativeKey(h util.Uint160) []byte {
	return append([]byte{prefixNativeBalance}, h.BytesBE()...)
}

func getInt(st *storage.MemCachedStore, key []byte) int64 {
	raw, err := st.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return 0
		}
		panic(fmt.Errorf("read %x: %w", key, err))
	}
	return bigint.FromBytes(raw).Int64()
}

func putInt(st *storage.MemCachedStore, key []byte, v int64) {
	if v == 0 {
		st.Delete(key)
		return
	}
	st.Put(key, bigint.ToBytes(big.NewInt(v)))
}

func putUint(st *storage.MemCachedStore, key []byte, v uint64) {
	st.Put(key, bigint.ToBytes(new(big.Int).SetUint64(v)))
}
