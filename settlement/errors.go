package settlement

import "errors"

var (
	// ErrInsufficientFunds is returned when an account can't cover native value
	// it is about to send.
	ErrInsufficientFunds = errors.New("insufficient native funds")
	// ErrNotPayable is returned when native value is pushed to a contract that
	// doesn't accept payments.
	ErrNotPayable = errors.New("contract does not accept payments")
	// ErrUnknownContract is returned when invoked or called contract is not
	// deployed to the Ledger.
	ErrUnknownContract = errors.New("unknown contract")
	// ErrInvalidValue is returned for negative or overflowing native amounts.
	ErrInvalidValue = errors.New("invalid native value")
	// ErrReadOnly is raised when a read-only invocation tries to change state.
	ErrReadOnly = errors.New("state change in read-only context")
	// ErrAlreadyDeployed is returned when a contract with the same hash is
	// deployed twice to the same Ledger.
	ErrAlreadyDeployed = errors.New("contract is already deployed")
)
