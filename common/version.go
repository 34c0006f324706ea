package common

import (
	"errors"
	"fmt"
)

const (
	major = 0
	minor = 2
	patch = 0

	// Versions from which an update should be performed.
	// These should be used in a group (so prevMinor can be equal to minor if there are
	// any migration routines.
	prevMajor = 0
	prevMinor = 1
	prevPatch = 0

	Version = major*1_000_000 + minor*1_000 + patch

	PrevVersion = prevMajor*1_000_000 + prevMinor*1_000 + prevPatch
)

var (
	// ErrVersionMismatch is returned by CheckVersion when stored state is too
	// old to be migrated.
	ErrVersionMismatch = errors.New("previous version mismatch")

	// ErrDowngrade is returned by CheckVersion when stored state is newer than
	// the running code.
	ErrDowngrade = errors.New("contract state is of a newer version")
)

// CheckVersion checks that the contract state of version from can be served
// by the current code.
func CheckVersion(from int) error {
	if from < PrevVersion {
		return fmt.Errorf("%w: expected >=%d, got %d", ErrVersionMismatch, PrevVersion, from)
	}
	if from > Version {
		return fmt.Errorf("%w: %d > %d", ErrDowngrade, from, Version)
	}
	return nil
}

// VersionString returns human-readable form of the version number.
func VersionString(v int) string {
	return fmt.Sprintf("%d.%d.%d", v/1_000_000, v/1_000%1_000, v%1_000)
}
