package factory

// Event names a lifecycle point.
type Event string

const (
	BeforeBuild    Event = "before_build"
	AfterBuild     Event = "after_build"
	BeforeFinalize Event = "before_finalize"
	AfterFinalize  Event = "after_finalize"
)

// Hook observes a lifecycle event. It receives the target, or nil for
// BeforeBuild. Hooks run while the factory is locked and must not call
// back into it.
type Hook func(target any)
