package factory

import "log/slog"

// Option configures a Factory.
type Option func(*Factory)

// WithName labels the factory in logs and cycle errors.
func WithName(name string) Option {
	return func(f *Factory) { f.name = name }
}

// WithFinalizer sets the function that releases the target.
func WithFinalizer(fn Finalizer) Option {
	return func(f *Factory) { f.finalizer = fn }
}

// AutoFinalize asks the runtime to run the finalizer once the factory itself
// is garbage collected while still holding a target. This is best effort:
// prefer Use or an explicit Finalize.
func AutoFinalize() Option {
	return func(f *Factory) { f.auto = true }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithHook registers a hook at construction time.
func WithHook(event Event, hook Hook) Option {
	return func(f *Factory) { f.hooks[event] = append(f.hooks[event], hook) }
}
