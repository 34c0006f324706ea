package common

import (
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/txlogger/settlement"
)

// Authorizer is a capability checked by contracts before privileged
// operations. It returns ErrNotAuthorized-kind error if the current caller
// is not allowed to proceed.
type Authorizer interface {
	Authorize(ic *settlement.Context) error
}

// AuthorizerFunc is a functional Authorizer.
type AuthorizerFunc func(ic *settlement.Context) error

// Authorize implements Authorizer.
func (f AuthorizerFunc) Authorize(ic *settlement.Context) error { return f(ic) }

// OwnerWitness returns Authorizer passing only direct calls made by the owner.
func OwnerWitness(owner util.Uint160) Authorizer {
	return AuthorizerFunc(func(ic *settlement.Context) error {
		return CheckOwnerWitness(ic, owner)
	})
}

// CheckOwnerWitness checks witness of the owner. It returns ErrNotAuthorized
// on fail.
func CheckOwnerWitness(ic *settlement.Context, owner util.Uint160) error {
	if !ic.CheckWitness(owner) {
		return ErrNotAuthorized
	}
	return nil
}
