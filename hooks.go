package tavernkit

import "sync"

// BeforeBuildHook runs once, first, against the mutable BuildContext (can
// inject extra lorebooks, seed variables, etc). Returning an error aborts
// the build.
type BeforeBuildHook func(ctx *BuildContext) error

// AfterBuildHook runs once, last, after trimming, with the finished Plan.
// Errors are collected into Plan.Warnings rather than failing the build —
// by the time after_build runs the plan already exists and handing the
// caller a nil Plan over a telemetry-sink hiccup would be worse than the
// warning (§5).
type AfterBuildHook func(ctx *BuildContext, plan *Plan) error

// HookRegistry holds the host's before/after build hooks. Hooks run in
// registration order.
type HookRegistry struct {
	mu     sync.Mutex
	before []BeforeBuildHook
	after  []AfterBuildHook
}

// NewHookRegistry returns an empty registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{}
}

// Before registers a before_build hook.
func (r *HookRegistry) Before(h BeforeBuildHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.before = append(r.before, h)
}

// After registers an after_build hook.
func (r *HookRegistry) After(h AfterBuildHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.after = append(r.after, h)
}

func (r *HookRegistry) snapshot() ([]BeforeBuildHook, []AfterBuildHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]BeforeBuildHook(nil), r.before...), append([]AfterBuildHook(nil), r.after...)
}
