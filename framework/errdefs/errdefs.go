// Package errdefs declares the error kinds shared by every framework package.
//
// Packages declare their own sentinels by wrapping one of the kinds below, so
// callers can match either the precise failure or its kind:
//
//	var ErrAlreadyBuilt = fmt.Errorf("%w: target is already built", errdefs.ErrLifecycle)
//
//	if errors.Is(err, errdefs.ErrLifecycle) { ... }
package errdefs

import "errors"

// ── Kinds ─────────────────────────────────────────────────────────────────────

var (
	// ErrValidation reports a config property that is missing or malformed.
	ErrValidation = errors.New("validation error")

	// ErrLifecycle reports a factory operation that is illegal in its current state.
	ErrLifecycle = errors.New("lifecycle error")

	// ErrDependency reports a dependency that is missing, unresolvable or circular.
	ErrDependency = errors.New("dependency error")

	// ErrRegistration reports a value that cannot be registered.
	ErrRegistration = errors.New("registration error")

	// ErrNotFound reports a strict lookup of an unknown name.
	ErrNotFound = errors.New("not found")
)

// IsValidation reports whether err is of the validation kind.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsLifecycle reports whether err is of the lifecycle kind.
func IsLifecycle(err error) bool { return errors.Is(err, ErrLifecycle) }

// IsDependency reports whether err is of the dependency kind.
func IsDependency(err error) bool { return errors.Is(err, ErrDependency) }

// IsRegistration reports whether err is of the registration kind.
func IsRegistration(err error) bool { return errors.Is(err, ErrRegistration) }

// IsNotFound reports whether err is of the not-found kind.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
