package common

import (
	"errors"
	"strconv"
)

// Kind enumerates all reasons a transfer request or an asset operation can be
// rejected with. The set is closed: callers switch over it exhaustively.
type Kind uint8

const (
	_ Kind = iota
	// KindMinimumTransferAmountNotMet is reported when any leg carries less
	// than the configured gateway threshold.
	KindMinimumTransferAmountNotMet
	// KindMismatchedReceiversAndAmounts is reported when batch receiver and
	// amount lists differ in length.
	KindMismatchedReceiversAndAmounts
	// KindInsufficientOrExcessFunds is reported when attached native value
	// doesn't match the requested total exactly.
	KindInsufficientOrExcessFunds
	// KindTransactionFailed is reported when the native settlement primitive
	// refuses a leg.
	KindTransactionFailed
	// KindInsufficientAllowance is reported when the spender is not allowed to
	// move the requested amount of tokens.
	KindInsufficientAllowance
	// KindInsufficientBalance is reported when the token holder doesn't have
	// the requested amount.
	KindInsufficientBalance
	// KindNotAuthorized is reported when a privileged asset operation is
	// invoked without the required capability.
	KindNotAuthorized
	// KindInvalidArgument is reported for malformed input such as negative
	// amounts or zero accounts.
	KindInvalidArgument
)

var kindNames = [...]string{
	KindMinimumTransferAmountNotMet:   "MinimumTransferAmountNotMet",
	KindMismatchedReceiversAndAmounts: "MismatchedReceiversAndAmounts",
	KindInsufficientOrExcessFunds:     "InsufficientOrExcessFunds",
	KindTransactionFailed:             "TransactionFailed",
	KindInsufficientAllowance:         "InsufficientAllowance",
	KindInsufficientBalance:           "InsufficientBalance",
	KindNotAuthorized:                 "NotAuthorized",
	KindInvalidArgument:               "InvalidArgument",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k == 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// NoLeg is the Error.Leg value of errors which are not tied to a particular
// request leg.
const NoLeg = -1

// Error is a rejection reason. It carries the minimal context needed by the
// caller: which leg of the request failed (NoLeg if none) and the underlying
// cause, if any.
//
// Error values match each other with errors.Is by Kind only, so the exported
// sentinels can be used to check the reason of any returned error.
type Error struct {
	Kind  Kind
	Leg   int
	Cause error
}

var (
	// ErrMinimumTransferAmountNotMet is a sentinel for KindMinimumTransferAmountNotMet.
	ErrMinimumTransferAmountNotMet = NewError(KindMinimumTransferAmountNotMet)
	// ErrMismatchedReceiversAndAmounts is a sentinel for KindMismatchedReceiversAndAmounts.
	ErrMismatchedReceiversAndAmounts = NewError(KindMismatchedReceiversAndAmounts)
	// ErrInsufficientOrExcessFunds is a sentinel for KindInsufficientOrExcessFunds.
	ErrInsufficientOrExcessFunds = NewError(KindInsufficientOrExcessFunds)
	// ErrTransactionFailed is a sentinel for KindTransactionFailed.
	ErrTransactionFailed = NewError(KindTransactionFailed)
	// ErrInsufficientAllowance is a sentinel for KindInsufficientAllowance.
	ErrInsufficientAllowance = NewError(KindInsufficientAllowance)
	// ErrInsufficientBalance is a sentinel for KindInsufficientBalance.
	ErrInsufficientBalance = NewError(KindInsufficientBalance)
	// ErrNotAuthorized is a sentinel for KindNotAuthorized.
	ErrNotAuthorized = NewError(KindNotAuthorized)
	// ErrInvalidArgument is a sentinel for KindInvalidArgument.
	ErrInvalidArgument = NewError(KindInvalidArgument)
)

// NewError returns Error of the given kind not tied to any leg.
func NewError(k Kind) *Error {
	return &Error{Kind: k, Leg: NoLeg}
}

// AtLeg returns a copy of e bound to the i-th leg.
func (e *Error) AtLeg(i int) *Error {
	res := *e
	res.Leg = i
	return &res
}

// WithCause returns a copy of e wrapping the cause.
func (e *Error) WithCause(cause error) *Error {
	res := *e
	res.Cause = cause
	return &res
}

// Error implements error interface.
func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Leg != NoLeg {
		msg += " at leg " + strconv.Itoa(e.Leg)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or zero Kind if
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// LegOf returns the leg index of the first *Error in err's chain, or NoLeg.
func LegOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Leg
	}
	return NoLeg
}
