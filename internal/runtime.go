package internal

import (
	"context"
	"errors"
	"os"

	"github.com/AnatoleLucet/reconcile/internal/config"
	"github.com/AnatoleLucet/reconcile/internal/lane"
	"github.com/AnatoleLucet/reconcile/internal/logging"
	"github.com/AnatoleLucet/reconcile/internal/scheduler"
	mapset "github.com/deckarep/golang-set/v2"
)

type Options struct {
	Clock   scheduler.Clock
	Logger  *logging.Logger
	Config  *config.Config
	OnError func(error)
}

// Runtime owns every root, the node arena, the scheduler and the state of the pass in progress.
// It is bound to the goroutine that created it; only Post may be called from elsewhere.
type Runtime struct {
	owner int64

	nodes     *Arena
	scheduler *scheduler.Scheduler
	tracker   *Tracker
	batcher   *Batcher
	contexts  *ContextStack
	passive   *EffectQueue
	syncQueue *SyncQueue
	roots     mapset.Set[*RenderRoot]

	limits  config.LimitsConfig
	logger  *logging.Logger
	onError func(error)

	executionContext executionContext

	// the pass in progress
	wipRoot              *RenderRoot
	wip                  NodeID
	wipRootRenderLanes   lane.Lanes
	subtreeRenderLanes   lane.Lanes
	wipRootIncludedLanes lane.Lanes
	wipRootSkippedLanes  lane.Lanes
	wipRootUpdatedLanes  lane.Lanes
	exitStatus           exitStatus
	renderErr            *RenderError
	passCreated          []NodeID
	didReceiveUpdate     bool

	// commit in progress
	stats *CommitStats

	nestedUpdateCount        int
	rootWithNestedUpdates    *RenderRoot
	nestedPassiveUpdateCount int

	rootDoesHavePassiveEffects    bool
	rootWithPendingPassiveEffects *RenderRoot
	pendingPassiveEffectsLanes    lane.Lanes
	pendingDeletions              []NodeID

	updatePriority lane.Priority
	inTransition   bool
	transitionLane lane.Lane

	// errors collected while an entry point runs
	depth int
	errs  []error
}

func NewRuntime(opts Options) *Runtime {
	cfg := config.Default()
	if opts.Config != nil {
		cfg = *opts.Config
	}

	logger := opts.Logger
	if logger == nil {
		logger, _ = logging.FromConfig(os.Stderr, cfg.Log.Level)
	}

	s := scheduler.NewScheduler(opts.Clock)
	s.SetYieldInterval(cfg.Scheduler.YieldInterval())

	return &Runtime{
		owner:     ownerID(),
		nodes:     NewArena(),
		scheduler: s,
		tracker:   NewTracker(),
		batcher:   NewBatcher(),
		contexts:  NewContextStack(),
		passive:   NewEffectQueue(),
		syncQueue: NewSyncQueue(),
		roots:     mapset.NewThreadUnsafeSet[*RenderRoot](),
		limits:    cfg.Limits,
		logger:    logger,
		onError:   opts.OnError,
	}
}

func (r *Runtime) checkOwner() error {
	if ownerID() != r.owner {
		return ErrWrongGoroutine
	}
	return nil
}

// entry runs fn as a public entry point. The outermost entry returns every error
// reported while it ran, joined.
func (r *Runtime) entry(fn func() error) error {
	if err := r.checkOwner(); err != nil {
		return err
	}

	r.depth++
	err := func() error {
		defer func() { r.depth-- }()
		return fn()
	}()

	if r.depth > 0 {
		return err
	}

	errs := r.errs
	r.errs = nil
	return errors.Join(append([]error{err}, errs...)...)
}

// report records an error that must not stop the engine. Outside of an entry point it is only
// logged and handed to the error handler.
func (r *Runtime) report(err error) {
	if err == nil {
		return
	}
	if r.depth > 0 {
		r.errs = append(r.errs, err)
	}

	b := r.logger.Err()
	if errors.Is(err, ErrNestedUpdateLimit) || errors.Is(err, ErrNestedPassiveUpdateLimit) {
		b = r.logger.Crit()
	}
	b.Err(err).Log("render engine error")

	if r.onError != nil {
		r.onError(err)
	}
}

func (r *Runtime) Scheduler() *scheduler.Scheduler {
	return r.scheduler
}

func (r *Runtime) Logger() *logging.Logger {
	return r.logger
}

// Nodes is the number of live nodes in the arena, committed and in progress.
func (r *Runtime) Nodes() int {
	return r.nodes.Len()
}

// WithPriority runs fn so that the updates it schedules use lane priority p.
func (r *Runtime) WithPriority(p lane.Priority, fn func()) error {
	return r.entry(func() error {
		prev := r.updatePriority
		r.updatePriority = p
		defer func() { r.updatePriority = prev }()

		r.scheduler.RunWithPriority(schedulerPriority(p), func() {
			r.batcher.Batch(fn, r.endBatch)
		})
		return nil
	})
}

// StartTransition runs fn so that the updates it schedules share one transition lane.
func (r *Runtime) StartTransition(fn func()) error {
	return r.entry(func() error {
		prevTransition, prevLane := r.inTransition, r.transitionLane
		r.inTransition, r.transitionLane = true, lane.NoLane
		defer func() { r.inTransition, r.transitionLane = prevTransition, prevLane }()

		r.batcher.Batch(fn, r.endBatch)
		return nil
	})
}

// Flush runs posted functions, sync work and every ready task until the scheduler is idle.
// Delayed tasks that are not due yet stay queued.
func (r *Runtime) Flush() error {
	return r.entry(func() error {
		r.scheduler.DrainPosted()
		r.flushSyncCallbackQueue()
		r.scheduler.Flush()
		return nil
	})
}

// FlushSlice runs one time slice of scheduled work and reports whether ready work remains.
func (r *Runtime) FlushSlice() (bool, error) {
	var more bool
	err := r.entry(func() error {
		more = r.scheduler.FlushSlice()
		return nil
	})
	return more, err
}

// Run drives the scheduler until ctx is done. The calling goroutine becomes the owner of the runtime.
func (r *Runtime) Run(ctx context.Context) error {
	r.owner = ownerID()
	return r.scheduler.Run(ctx)
}

// Post queues fn onto the goroutine running Run. It is safe to call from any goroutine.
func (r *Runtime) Post(fn func()) {
	r.scheduler.Post(fn)
}
