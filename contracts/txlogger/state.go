package txlogger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nspcc-dev/txlogger/common"
)

// Mode is a settlement mode of the gateway.
type Mode uint8

const (
	// ModeNative settles in native value attached to the invocation.
	ModeNative Mode = iota
	// ModeToken settles in asset contract tokens moved with TransferFrom.
	ModeToken
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeNative:
		return "native"
	case ModeToken:
		return "token"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// ParseMode parses the result of Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "native":
		return ModeNative, nil
	case "token":
		return ModeToken, nil
	default:
		return 0, fmt.Errorf("unknown settlement mode %q", s)
	}
}

// State is a stage of the request processing.
type State uint8

// Request states. Rejected, AbortedRollback and Committed are terminal.
const (
	StateReceived State = iota
	StateValidating
	StateRejected
	StateExecuting
	StateLegCommitted
	StateAbortedRollback
	StateCommitted
)

var stateNames = [...]string{
	StateReceived:        "Received",
	StateValidating:      "Validating",
	StateRejected:        "Rejected",
	StateExecuting:       "Executing",
	StateLegCommitted:    "LegCommitted",
	StateAbortedRollback: "AbortedRollback",
	StateCommitted:       "Committed",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", uint8(s))
	}
	return stateNames[s]
}

// Terminal checks whether s is a final state of the request.
func (s State) Terminal() bool {
	return s == StateRejected || s == StateAbortedRollback || s == StateCommitted
}

// StateOf returns the terminal state of the request finished with err.
// Requests failed before any leg has started are Rejected.
func StateOf(err error) State {
	if err == nil {
		return StateCommitted
	}

	var e *common.Error
	if !errors.As(err, &e) {
		return StateAbortedRollback
	}

	switch e.Kind {
	case common.KindMinimumTransferAmountNotMet,
		common.KindMismatchedReceiversAndAmounts,
		common.KindInsufficientOrExcessFunds:
		return StateRejected
	default:
		return StateAbortedRollback
	}
}
