package reconcile

import (
	"context"
	"reflect"

	"github.com/AnatoleLucet/reconcile/internal"
	"github.com/AnatoleLucet/reconcile/internal/lane"
)

func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}

	return v.(T)
}

type (
	// Child is anything a component can render: a *Element, a string, a number,
	// a list made with List, or nil.
	Child     = internal.Child
	Props     = internal.Props
	Element   = internal.Element
	Component = internal.Component
	Hooks     = internal.Hooks

	Host             = internal.Host
	ContainerClearer = internal.ContainerClearer
	CommitObserver   = internal.CommitObserver
	Mounter          = internal.Mounter

	CommitStats = internal.CommitStats
	TreeNode    = internal.TreeNode
	Flags       = internal.Flags

	Lanes    = lane.Lanes
	Priority = lane.Priority
)

const (
	SyncPriority            = lane.SyncPriority
	InputDiscretePriority   = lane.InputDiscretePriority
	InputContinuousPriority = lane.InputContinuousPriority
	DefaultPriority         = lane.DefaultPriority
	TransitionPriority      = lane.TransitionPriority
	IdlePriority            = lane.IdlePriority
)

var (
	ErrNestedUpdateLimit        = internal.ErrNestedUpdateLimit
	ErrNestedPassiveUpdateLimit = internal.ErrNestedPassiveUpdateLimit
	ErrTooManyRerenders         = internal.ErrTooManyRerenders
	ErrInvalidHookCall          = internal.ErrInvalidHookCall
	ErrHookOrder                = internal.ErrHookOrder
	ErrWrongGoroutine           = internal.ErrWrongGoroutine
	ErrRootUnmounted            = internal.ErrRootUnmounted
	ErrRenderInProgress         = internal.ErrRenderInProgress
	ErrInvalidChild             = internal.ErrInvalidChild
	ErrInvalidElementType       = internal.ErrInvalidElementType
)

type (
	RenderError = internal.RenderError
	EffectError = internal.EffectError
	HostError   = internal.HostError
)

// Runtime schedules and renders the roots created from it. It must be used from the
// goroutine that created it (or that calls Run), except for Post.
type Runtime struct {
	rt *internal.Runtime
}

// NewRuntime creates an independent runtime.
func NewRuntime(opts ...Option) *Runtime {
	o := newOptions(opts)
	return &Runtime{internal.NewRuntime(o.build())}
}

// Default returns the runtime of the calling goroutine.
func Default() *Runtime {
	return &Runtime{internal.GetRuntime()}
}

// CreateRoot creates a root rendering into container through host.
func (r *Runtime) CreateRoot(host Host, container any) *Root {
	return &Root{rt: r.rt, root: r.rt.CreateRoot(host, container)}
}

// Batch runs fn and renders the sync updates it schedules once, after the outermost batch.
func (r *Runtime) Batch(fn func()) error {
	return r.rt.Batch(fn)
}

// WithPriority runs fn so that updates scheduled inside use priority p.
// Anything below SyncPriority renders concurrently, through the scheduler.
func (r *Runtime) WithPriority(p Priority, fn func()) error {
	return r.rt.WithPriority(p, fn)
}

// StartTransition marks the updates scheduled inside fn as a transition.
func (r *Runtime) StartTransition(fn func()) error {
	return r.rt.StartTransition(fn)
}

// Flush runs scheduled work until nothing is ready.
func (r *Runtime) Flush() error {
	return r.rt.Flush()
}

// FlushSlice runs one time slice of scheduled work and reports whether more is ready.
func (r *Runtime) FlushSlice() (bool, error) {
	return r.rt.FlushSlice()
}

// Run drives the runtime until ctx is done.
func (r *Runtime) Run(ctx context.Context) error {
	return r.rt.Run(ctx)
}

// Post queues fn to run on the goroutine driving Run. Safe for concurrent use.
func (r *Runtime) Post(fn func()) {
	r.rt.Post(fn)
}

func (r *Runtime) Logger() *Logger {
	return r.rt.Logger()
}

// ReleaseDefault forgets the calling goroutine's default runtime, so the next Default
// call starts a fresh one.
func ReleaseDefault() {
	internal.ReleaseRuntime()
}

// CreateRoot creates a root on the default runtime.
func CreateRoot(host Host, container any) *Root {
	return Default().CreateRoot(host, container)
}

// Root is one mounted tree.
type Root struct {
	rt   *internal.Runtime
	root *internal.RenderRoot
}

// Render schedules child as the content of the root. Callbacks run once the change is committed.
func (r *Root) Render(child Child, callbacks ...func()) error {
	return r.rt.UpdateContainer(r.root, child, callbacks...)
}

// ForceUpdate schedules a render pass even though nothing changed.
func (r *Root) ForceUpdate() error {
	return r.rt.ForceUpdate(r.root)
}

// Unmount removes the tree from its container and releases it.
func (r *Root) Unmount() error {
	return r.rt.Unmount(r.root)
}

func (r *Root) ID() string {
	return r.root.ID
}

// LastCommit reports what the most recent commit did to the host.
func (r *Root) LastCommit() CommitStats {
	return r.root.LastCommit()
}

// Pending returns the lanes with work still scheduled on the root.
func (r *Root) Pending() Lanes {
	return r.root.PendingLanes()
}

// Tree returns a snapshot of the committed tree, or nil after Unmount.
func (r *Root) Tree() *TreeNode {
	return r.rt.Tree(r.root)
}

// H describes a host element (typ is a tag) or a component (typ is a *Component).
func H(typ any, props Props, children ...Child) *Element {
	return &Element{Type: typ, Props: props, Children: children}
}

// Keyed returns a copy of el with a key, used to match it across renders of a list.
func Keyed(key string, el *Element) *Element {
	c := *el
	c.Key = key
	return &c
}

func Text(s string) Child {
	return s
}

// List groups children without a wrapping element.
func List(children ...Child) Child {
	return children
}

// NewComponent declares a component. render is called with the element's props.
func NewComponent(name string, render func(h *Hooks, props Props) Child) *Component {
	return &Component{Name: name, Render: render}
}

// Deps builds an effect or memo dependency list. Deps() means "only on mount".
func Deps(values ...any) []any {
	if values == nil {
		return []any{}
	}
	return values
}

func UseState[T any](h *Hooks, initial T) (T, func(T)) {
	v, dispatch := h.UseState(initial)
	return as[T](v), func(next T) { dispatch(next) }
}

// UseStateFunc is UseState with an updater setter, computed from the latest state.
func UseStateFunc[T any](h *Hooks, initial T) (T, func(func(prev T) T)) {
	v, dispatch := h.UseState(initial)
	return as[T](v), func(update func(prev T) T) {
		dispatch(func(prev any) any { return update(as[T](prev)) })
	}
}

func UseReducer[S, A any](h *Hooks, reduce func(state S, action A) S, initial S) (S, func(A)) {
	v, dispatch := h.UseReducer(func(state, action any) any {
		return reduce(as[S](state), as[A](action))
	}, initial)
	return as[S](v), func(action A) { dispatch(action) }
}

// UseEffect runs create after the commit, once the host is settled. A nil deps runs it
// after every commit.
func UseEffect(h *Hooks, create func() func(), deps []any) {
	h.UseEffect(create, deps)
}

// UseLayoutEffect runs create during the commit, right after the host was mutated.
func UseLayoutEffect(h *Hooks, create func() func(), deps []any) {
	h.UseLayoutEffect(create, deps)
}

type Ref[T any] struct {
	Current T
}

func UseRef[T any](h *Hooks, initial T) *Ref[T] {
	slot := h.UseRef(nil)
	if slot.Current == nil {
		slot.Current = &Ref[T]{Current: initial}
	}
	return slot.Current.(*Ref[T])
}

func UseMemo[T any](h *Hooks, compute func() T, deps []any) T {
	return as[T](h.UseMemo(func() any { return compute() }, deps))
}

func UseContext[T any](h *Hooks, ctx *Context[T]) T {
	return as[T](h.UseContext(ctx.ctx))
}

// Context passes a value to every component below its providers.
type Context[T any] struct {
	ctx *internal.Context
}

// NewContext creates a context whose consumers read def when no provider is above them.
func NewContext[T any](def T) *Context[T] {
	name := reflect.TypeFor[T]().String()
	return &Context[T]{internal.NewContext("Context["+name+"]", def)}
}

// Provider makes value visible to the consumers among children.
func (c *Context[T]) Provider(value T, children ...Child) *Element {
	return &Element{Type: c.ctx, Props: Props{"value": value}, Children: children}
}

func (c *Context[T]) Default() T {
	return as[T](c.ctx.Default)
}
