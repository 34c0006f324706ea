package txlogger

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/txlogger/common"
	"github.com/nspcc-dev/txlogger/settlement"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	methodSendFunds      = "sendFunds"
	methodSendMultiFunds = "sendMultiFunds"
)

// ErrDirectPayment is returned to native payments made to the gateway outside
// of the transfer requests.
var ErrDirectPayment = errors.New("gateway does not accept direct payments")

// Asset is the token contract the gateway settles in token mode.
type Asset interface {
	// BalanceOf returns token balance of the account.
	BalanceOf(ic *settlement.Context, account util.Uint160) int64
	// TransferFrom moves amount of tokens from one account to another on
	// behalf of the caller. It must fail with common.ErrInsufficientAllowance
	// or common.ErrInsufficientBalance kind errors when the move isn't
	// allowed.
	TransferFrom(ic *settlement.Context, from, to util.Uint160, amount int64) error
}

// Prm groups gateway parameters. All of them are fixed for the lifetime of
// the gateway.
type Prm struct {
	Mode Mode

	// Minimum amount of every leg, at least 1.
	MinimumAmount int64

	// Hash and implementation of the asset contract deployed to the same
	// Ledger. Token mode only.
	Token util.Uint160
	Asset Asset

	Logger *zap.Logger

	// Optional registerer of the gateway metrics.
	Registerer prometheus.Registerer
}

// Contract is the transfer gateway contract. Its methods must be called
// within the contract frame of a settlement invocation.
type Contract struct {
	mode    Mode
	minimum int64
	token   util.Uint160
	asset   Asset

	log     *zap.Logger
	metrics *metrics
}

// New creates the gateway from Prm.
func New(prm Prm) (*Contract, error) {
	if prm.MinimumAmount < 1 {
		return nil, fmt.Errorf("minimum amount must be positive, got %d", prm.MinimumAmount)
	}

	switch prm.Mode {
	case ModeNative:
		if prm.Asset != nil || !prm.Token.Equals(util.Uint160{}) {
			return nil, errors.New("asset contract is set in native mode")
		}
	case ModeToken:
		if prm.Asset == nil || prm.Token.Equals(util.Uint160{}) {
			return nil, errors.New("asset contract is required in token mode")
		}
	default:
		return nil, fmt.Errorf("invalid settlement mode %s", prm.Mode)
	}

	c := &Contract{
		mode:    prm.Mode,
		minimum: prm.MinimumAmount,
		token:   prm.Token,
		asset:   prm.Asset,
		log:     prm.Logger,
		metrics: newMetrics(prm.Registerer),
	}

	if c.log == nil {
		c.log = zap.NewNop()
	}

	return c, nil
}

// Mode returns settlement mode of the gateway.
func (c *Contract) Mode() Mode {
	return c.mode
}

// MinimumAmount returns minimum amount of a single leg.
func (c *Contract) MinimumAmount() int64 {
	return c.minimum
}

// Token returns hash of the asset contract. It is zero in native mode.
func (c *Contract) Token() util.Uint160 {
	return c.token
}

// Version returns the version of the contract.
func (c *Contract) Version() int {
	return common.Version
}

// OnDeploy implements settlement.Deployer.
func (c *Contract) OnDeploy(ic *settlement.Context, isUpdate bool) error {
	st := ic.Storage()
	key := []byte("Version")

	if isUpdate {
		if err := common.CheckVersion(int(common.GetInt(st, key))); err != nil {
			return err
		}
	}

	common.PutInt(st, key, common.Version)
	c.log.Debug("txlogger contract deployed",
		zap.Bool("update", isUpdate),
		zap.Stringer("mode", c.mode),
		zap.Int64("minimum", c.minimum))

	return nil
}

// OnPayment implements settlement.PaymentReceiver. The gateway accepts
// native value only attached to its own invocations, so all direct payments
// are rejected.
func (c *Contract) OnPayment(_ *settlement.Context, _ util.Uint160, _ int64, _ any) error {
	return ErrDirectPayment
}

// SendFunds sends amount to the receiver on behalf of the caller. In native
// mode, the amount is the value attached to the invocation and the amount
// parameter is ignored. In token mode, amount of tokens is pulled from the
// caller with the asset contract TransferFrom, the caller must approve the
// gateway to spend them beforehand. Token mode requests must not carry native
// value, otherwise they fail with common.ErrInsufficientOrExcessFunds.
//
// It returns the record of the settled transfer and produces TransactionSent
// notification.
func (c *Contract) SendFunds(ic *settlement.Context, receiver util.Uint160, amount int64) ([]common.TransferRecord, error) {
	if c.mode == ModeNative {
		amount = ic.Value()
	}

	return c.process(ic, methodSendFunds, []util.Uint160{receiver}, []int64{amount})
}

// SendMultiFunds sends amounts[i] to receivers[i] on behalf of the caller,
// all or nothing. In native mode, the value attached to the invocation must
// be equal to the sum of amounts. In token mode, no value may be attached,
// common.ErrInsufficientOrExcessFunds is returned otherwise.
//
// It returns records of the settled transfers in receiver order and produces
// TransactionSent notification for each of them.
func (c *Contract) SendMultiFunds(ic *settlement.Context, receivers []util.Uint160, amounts []int64) ([]common.TransferRecord, error) {
	return c.process(ic, methodSendMultiFunds, receivers, amounts)
}

// request tracks processing of a single gateway call.
type request struct {
	state State
	log   *zap.Logger
}

func (r *request) set(s State, fields ...zap.Field) {
	r.state = s
	r.log.Debug("request state changed", append(fields, zap.Stringer("state", s))...)
}

func (c *Contract) process(ic *settlement.Context, method string, receivers []util.Uint160, amounts []int64) ([]common.TransferRecord, error) {
	var (
		self   = ic.ExecutingScriptHash()
		sender = ic.CallingScriptHash()
		req    = &request{log: ic.Logger().With(
			zap.String("method", method),
			zap.String("gateway", address.Uint160ToString(self)),
		)}
		// value the gateway has had before this request
		initial = ic.NativeBalanceOf(self) - ic.Value()
	)

	req.set(StateReceived, zap.Int("legs", len(receivers)), zap.Int64("value", ic.Value()))

	req.set(StateValidating)

	err := c.validate(ic.Value(), receivers, amounts)
	if err != nil {
		req.set(StateRejected, zap.Error(err))
		c.finish(req, method, err)
		return nil, err
	}

	for i := range receivers {
		req.set(StateExecuting, zap.Int("leg", i))

		err = c.settle(ic, sender, receivers[i], amounts[i])
		if err != nil {
			err = legError(i, err)
			req.set(StateAbortedRollback, zap.Error(err))
			c.finish(req, method, err)
			return nil, err
		}

		req.set(StateLegCommitted, zap.Int("leg", i))
	}

	if residual := ic.NativeBalanceOf(self) - initial; residual != 0 {
		err = common.ErrTransactionFailed.WithCause(fmt.Errorf("residual gateway balance %d", residual))
		req.set(StateAbortedRollback, zap.Error(err))
		c.finish(req, method, err)
		return nil, err
	}

	var (
		ts      = ic.Time()
		records = make([]common.TransferRecord, len(receivers))
	)

	for i := range receivers {
		records[i] = common.TransferRecord{
			Sender:    sender,
			Receiver:  receivers[i],
			Amount:    amounts[i],
			Timestamp: ts,
		}

		ic.Notify(common.EventTransactionSent,
			sender, receivers[i], amounts[i], new(big.Int).SetUint64(ts))
	}

	req.set(StateCommitted)
	ic.OnCommit(func() {
		c.finish(req, method, nil)
		c.metrics.legs.Add(float64(len(records)))
	})

	return records, nil
}

// validate checks the request without changing any state.
func (c *Contract) validate(value int64, receivers []util.Uint160, amounts []int64) error {
	if len(receivers) != len(amounts) {
		return common.ErrMismatchedReceiversAndAmounts.WithCause(
			fmt.Errorf("%d receivers, %d amounts", len(receivers), len(amounts)))
	}

	switch c.mode {
	case ModeNative:
		total, ok := sum(amounts)
		if !ok {
			return common.ErrInsufficientOrExcessFunds.WithCause(errors.New("total amount overflow"))
		}
		if value != total {
			return common.ErrInsufficientOrExcessFunds.WithCause(
				fmt.Errorf("attached %d, total %d", value, total))
		}
	case ModeToken:
		if value != 0 {
			return common.ErrInsufficientOrExcessFunds.WithCause(
				fmt.Errorf("attached %d in token mode", value))
		}
	}

	for i := range amounts {
		if amounts[i] < c.minimum {
			return common.ErrMinimumTransferAmountNotMet.AtLeg(i).WithCause(
				fmt.Errorf("amount %d, minimum %d", amounts[i], c.minimum))
		}
	}

	return nil
}

// settle executes a single leg.
func (c *Contract) settle(ic *settlement.Context, sender, receiver util.Uint160, amount int64) error {
	if c.mode == ModeNative {
		err := ic.TransferNative(receiver, amount, nil)
		if err != nil {
			return common.ErrTransactionFailed.WithCause(err)
		}
		return nil
	}

	return ic.Call(c.token, func(ic *settlement.Context) error {
		return c.asset.TransferFrom(ic, sender, receiver, amount)
	})
}

func (c *Contract) finish(req *request, method string, err error) {
	c.metrics.requests.WithLabelValues(method, req.state.String()).Inc()
	if err != nil {
		req.log.Info("transfer request failed", zap.Stringer("state", req.state), zap.Error(err))
	}
}

// legError binds err to the i-th leg keeping its kind. Errors of unknown kind
// become TransactionFailed.
func legError(i int, err error) error {
	var e *common.Error
	if errors.As(err, &e) {
		return e.AtLeg(i)
	}
	return common.ErrTransactionFailed.AtLeg(i).WithCause(err)
}

// sum returns the total of amounts, false on int64 overflow. Negative amounts
// are summed as is, they are rejected by the threshold check.
func sum(amounts []int64) (int64, bool) {
	var total int64
	for _, a := range amounts {
		if a > 0 && total > math.MaxInt64-a || a < 0 && total < math.MinInt64-a {
			return 0, false
		}
		total += a
	}
	return total, true
}
