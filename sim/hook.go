package sim

// HookPos names a place in the code where hooks are invoked. Positions are
// compared by pointer.
type HookPos struct {
	Name string
}

// HookPosBeforeEvent and HookPosAfterEvent wrap every event an engine
// handles.
var (
	HookPosBeforeEvent = &HookPos{Name: "BeforeEvent"}
	HookPosAfterEvent  = &HookPos{Name: "AfterEvent"}
)

// HookCtx describes one hook invocation.
type HookCtx struct {
	Domain Hookable
	Now    VTimeInSec
	Pos    *HookPos
	Item   any
	Detail any
}

// A Hook observes a Hookable.
type Hook interface {
	Func(ctx HookCtx)
}

// Hookable is anything hooks can be attached to.
type Hookable interface {
	AcceptHook(hook Hook)
	NumHooks() int
}

// HookableBase implements Hookable. Embed it and call InvokeHook.
type HookableBase struct {
	hooks []Hook
}

// AcceptHook attaches a hook.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.hooks = append(h.hooks, hook)
}

// NumHooks returns how many hooks are attached.
func (h *HookableBase) NumHooks() int {
	return len(h.hooks)
}

// InvokeHook calls the hooks in the order they were attached.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}
