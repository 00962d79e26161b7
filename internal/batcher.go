package internal

// Batcher holds back sync-lane rendering while a batch is open. Batches nest; only the
// outermost one flushes.
type Batcher struct {
	depth    int
	deferred int
}

func NewBatcher() *Batcher {
	return &Batcher{}
}

func (b *Batcher) IsBatching() bool {
	return b.depth > 0
}

// Defer counts a sync update left for the outermost batch to render.
func (b *Batcher) Defer() {
	b.deferred++
}

// Batch runs fn. Once the outermost batch returns, flush is called with the number of
// deferred updates, even when that number is zero.
func (b *Batcher) Batch(fn func(), flush func(deferred int)) {
	b.depth++
	defer func() {
		b.depth--
		if b.depth > 0 {
			return
		}
		n := b.deferred
		b.deferred = 0
		flush(n)
	}()

	fn()
}

func (r *Runtime) endBatch(deferred int) {
	if deferred > 0 {
		r.logger.Debug().
			Int("updates", deferred).
			Int("roots", r.syncQueue.Len()).
			Log("batch flush")
	}
	r.flushSyncCallbackQueue()
}

// Batch runs fn and renders the sync updates it scheduled once, when the outermost batch returns.
func (r *Runtime) Batch(fn func()) error {
	return r.entry(func() error {
		r.batcher.Batch(fn, r.endBatch)
		return nil
	})
}
