package lane

import "time"

// Bookkeeping is the lane state a render root keeps between passes.
// Per-lane arrays are indexed by bit position.
type Bookkeeping struct {
	Pending   Lanes
	Suspended Lanes
	Pinged    Lanes
	Expired   Lanes
	Entangled Lanes

	EventTimes      [TotalLanes]time.Duration
	ExpirationTimes [TotalLanes]time.Duration
	Entanglements   [TotalLanes]Lanes
}

func NewBookkeeping() *Bookkeeping {
	b := &Bookkeeping{}
	for i := range TotalLanes {
		b.EventTimes[i] = NoTimestamp
		b.ExpirationTimes[i] = NoTimestamp
	}
	return b
}

// MarkUpdated records a new update on lane at eventTime.
func (b *Bookkeeping) MarkUpdated(lane Lane, eventTime time.Duration) {
	b.Pending |= lane

	// an update unblocks every lane of equal or lower priority
	higher := lane - 1
	b.Suspended &= higher
	b.Pinged &= higher

	if index := Index(lane); index >= 0 {
		b.EventTimes[index] = eventTime
	}
}

// MarkFinished keeps only remaining as pending and clears the slots of every lane that finished.
func (b *Bookkeeping) MarkFinished(remaining Lanes) {
	done := b.Pending &^ remaining
	b.Pending = remaining

	b.Suspended = NoLanes
	b.Pinged = NoLanes

	b.Expired &= remaining
	b.Entangled &= remaining

	done.Each(func(index int, _ Lane) {
		b.Entanglements[index] = NoLanes
		b.EventTimes[index] = NoTimestamp
		b.ExpirationTimes[index] = NoTimestamp
	})
}

// MarkStarvedAsExpired gives every pending lane a deadline and moves lanes past it into Expired.
func (b *Bookkeeping) MarkStarvedAsExpired(now time.Duration) {
	b.Pending.Each(func(index int, lane Lane) {
		deadline := b.ExpirationTimes[index]
		if deadline == NoTimestamp {
			if lane&b.Suspended == NoLanes || lane&b.Pinged != NoLanes {
				b.ExpirationTimes[index] = ExpirationTime(PriorityOf(lane), now)
			}
			return
		}
		if deadline <= now {
			b.Expired |= lane
		}
	})
}

// MarkSuspended parks lanes until a newer update or a ping unblocks them.
func (b *Bookkeeping) MarkSuspended(lanes Lanes) {
	b.Suspended |= lanes
	b.Pinged &^= lanes
	b.Expired &^= lanes

	lanes.Each(func(index int, _ Lane) {
		b.ExpirationTimes[index] = NoTimestamp
	})
}

func (b *Bookkeeping) MarkPinged(lanes Lanes) {
	b.Pinged |= b.Suspended & lanes
}

// MarkExpired forces lanes to be rendered synchronously.
func (b *Bookkeeping) MarkExpired(lanes Lanes) {
	b.Expired |= lanes & b.Pending
}

// MarkEntangled ties lanes together so selecting any of them selects all of them.
func (b *Bookkeeping) MarkEntangled(lanes Lanes) {
	b.Entangled |= lanes
	lanes.Each(func(index int, _ Lane) {
		b.Entanglements[index] |= lanes
	})
}

func (b *Bookkeeping) HasPending() bool {
	return b.Pending != NoLanes
}

// NextLanes selects the lanes the next pass should render. When a pass over wip is already
// in flight and the selection is not more urgent, wip is returned so the pass can continue.
func (b *Bookkeeping) NextLanes(wip Lanes) (Lanes, Priority) {
	if b.Pending == NoLanes {
		return NoLanes, NoPriority
	}

	next, priority := NoLanes, NoPriority

	if b.Expired != NoLanes {
		next, priority = b.Expired, SyncPriority
	} else if nonIdle := b.Pending & NonIdleLanes; nonIdle != NoLanes {
		if unblocked := nonIdle &^ b.Suspended; unblocked != NoLanes {
			next, priority = HighestPriorityLanes(unblocked)
		} else if pinged := nonIdle & b.Pinged; pinged != NoLanes {
			next, priority = HighestPriorityLanes(pinged)
		}
	} else {
		if unblocked := b.Pending &^ b.Suspended; unblocked != NoLanes {
			next, priority = HighestPriorityLanes(unblocked)
		} else if b.Pinged != NoLanes {
			next, priority = HighestPriorityLanes(b.Pinged)
		}
	}

	if next == NoLanes {
		return NoLanes, NoPriority
	}

	// include every pending lane at least as urgent as the selection
	next = b.Pending & EqualOrHigherPriority(next)

	if wip != NoLanes && wip != next && wip&b.Suspended == NoLanes {
		if _, wipPriority := HighestPriorityLanes(wip); priority <= wipPriority {
			return wip, wipPriority
		}
	}

	if b.Entangled != NoLanes {
		(next & b.Entangled).Each(func(index int, _ Lane) {
			next |= b.Entanglements[index]
		})
	}

	return next, priority
}
