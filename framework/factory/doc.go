// Package factory implements the lazy object lifecycle underneath every component.
//
// # States
//
// A Factory is either unbuilt or built. Build moves it to built, Finalize moves
// it back, and the cycle may repeat: every Build after a Finalize produces a
// fresh target.
//
//	Build    : fails with ErrAlreadyBuilt when built, ErrUndefinedBuilder without a builder
//	Resolve  : returns the target, building it on first use (idempotent)
//	Finalize : no-op when unbuilt; otherwise runs the finalizer and resets
//	Use      : Resolve, run a function, always Finalize
//
// # Hooks
//
// BeforeBuild, AfterBuild, BeforeFinalize and AfterFinalize hooks run in
// registration order around the corresponding step. They observe; they cannot
// cancel the step.
//
// # Concurrency
//
// Each factory holds its own mutex across a build, so concurrent first calls to
// Resolve run the builder once. The context passed to the builder records the
// build chain; resolving a factory that is already on the chain fails with
// ErrCircularDependency instead of deadlocking.
//
// # Automatic finalization
//
// With AutoFinalize the finalizer is registered through runtime.AddCleanup and
// runs when the factory becomes unreachable while built. Collection timing is
// up to the runtime, so treat it as a safety net only.
package factory
