package lane

import (
	"math/bits"
	"strings"
	"time"
)

// Lanes is a set of update priorities. Each bit is one lane, lower bits are more urgent.
type Lanes uint32

// Lane is a Lanes value with a single bit set.
type Lane = Lanes

const TotalLanes = 31

const (
	NoLanes Lanes = 0
	NoLane  Lane  = 0

	SyncLane        Lane = 1 << 0
	SyncBatchedLane Lane = 1 << 1

	InputDiscreteHydrationLane Lane  = 1 << 2
	InputDiscreteLanes         Lanes = 0b11 << 3

	InputContinuousHydrationLane Lane  = 1 << 5
	InputContinuousLanes         Lanes = 0b11 << 6

	DefaultHydrationLane Lane  = 1 << 8
	DefaultLanes         Lanes = 0b111 << 9

	TransitionHydrationLane Lane  = 1 << 12
	TransitionLanes         Lanes = 0b111111111 << 13

	RetryLanes    Lanes = 0b1111 << 22
	SomeRetryLane Lane  = 1 << 25

	SelectiveHydrationLane Lane = 1 << 26

	NonIdleLanes Lanes = 1<<27 - 1

	IdleHydrationLane Lane  = 1 << 27
	IdleLanes         Lanes = 0b11 << 28

	OffscreenLane Lane = 1 << 30
)

// NoTimestamp marks an empty event-time or expiration-time slot.
const NoTimestamp time.Duration = -1

// Priority is the ordinal of a lane band, higher is more urgent.
type Priority uint8

const (
	NoPriority Priority = iota
	OffscreenPriority
	IdlePriority
	IdleHydrationPriority
	SelectiveHydrationPriority
	RetryPriority
	TransitionPriority
	TransitionHydrationPriority
	DefaultPriority
	DefaultHydrationPriority
	InputContinuousPriority
	InputContinuousHydrationPriority
	InputDiscretePriority
	InputDiscreteHydrationPriority
	SyncBatchedPriority
	SyncPriority
)

var priorityNames = [...]string{
	NoPriority:                       "none",
	OffscreenPriority:                "offscreen",
	IdlePriority:                     "idle",
	IdleHydrationPriority:            "idle-hydration",
	SelectiveHydrationPriority:       "selective-hydration",
	RetryPriority:                    "retry",
	TransitionPriority:               "transition",
	TransitionHydrationPriority:      "transition-hydration",
	DefaultPriority:                  "default",
	DefaultHydrationPriority:         "default-hydration",
	InputContinuousPriority:          "input-continuous",
	InputContinuousHydrationPriority: "input-continuous-hydration",
	InputDiscretePriority:            "input-discrete",
	InputDiscreteHydrationPriority:   "input-discrete-hydration",
	SyncBatchedPriority:              "sync-batched",
	SyncPriority:                     "sync",
}

func (p Priority) String() string {
	if int(p) < len(priorityNames) {
		return priorityNames[p]
	}
	return "unknown"
}

func Merge(a, b Lanes) Lanes { return a | b }

func IncludesSome(a, b Lanes) bool { return a&b != NoLanes }

func IsSubset(set, subset Lanes) bool { return set&subset == subset }

func Remove(set, subset Lanes) Lanes { return set &^ subset }

func Intersect(a, b Lanes) Lanes { return a & b }

func (l Lanes) Has(other Lanes) bool { return IncludesSome(l, other) }

func (l Lanes) IsEmpty() bool { return l == NoLanes }

// HighestPriorityLanes returns the most urgent non-empty band of l and its priority.
// Multi-bit bands are returned whole so same-priority updates render together.
func HighestPriorityLanes(l Lanes) (Lanes, Priority) {
	switch {
	case l&SyncLane != 0:
		return SyncLane, SyncPriority
	case l&SyncBatchedLane != 0:
		return SyncBatchedLane, SyncBatchedPriority
	case l&InputDiscreteHydrationLane != 0:
		return InputDiscreteHydrationLane, InputDiscreteHydrationPriority
	case l&InputDiscreteLanes != 0:
		return l & InputDiscreteLanes, InputDiscretePriority
	case l&InputContinuousHydrationLane != 0:
		return InputContinuousHydrationLane, InputContinuousHydrationPriority
	case l&InputContinuousLanes != 0:
		return l & InputContinuousLanes, InputContinuousPriority
	case l&DefaultHydrationLane != 0:
		return DefaultHydrationLane, DefaultHydrationPriority
	case l&DefaultLanes != 0:
		return l & DefaultLanes, DefaultPriority
	case l&TransitionHydrationLane != 0:
		return TransitionHydrationLane, TransitionHydrationPriority
	case l&TransitionLanes != 0:
		return l & TransitionLanes, TransitionPriority
	case l&RetryLanes != 0:
		return l & RetryLanes, RetryPriority
	case l&SelectiveHydrationLane != 0:
		return SelectiveHydrationLane, SelectiveHydrationPriority
	case l&IdleHydrationLane != 0:
		return IdleHydrationLane, IdleHydrationPriority
	case l&IdleLanes != 0:
		return l & IdleLanes, IdlePriority
	case l&OffscreenLane != 0:
		return OffscreenLane, OffscreenPriority
	}

	// unreachable for valid masks, fall back to the whole set
	return l, DefaultPriority
}

// PriorityOf is the priority of the most urgent band in l.
func PriorityOf(l Lanes) Priority {
	if l == NoLanes {
		return NoPriority
	}
	_, p := HighestPriorityLanes(l)
	return p
}

// HighestPriorityLane isolates the lowest set bit.
func HighestPriorityLane(l Lanes) Lane {
	return l & -l
}

// PickArbitraryLane returns the most significant set bit.
func PickArbitraryLane(l Lanes) Lane {
	if l == NoLanes {
		return NoLane
	}
	return 1 << Index(l)
}

// Index is the bit position of the most significant lane in l, or -1.
func Index(l Lanes) int {
	return bits.Len32(uint32(l)) - 1
}

// EqualOrHigherPriority returns every lane at least as urgent as the least urgent lane of l.
func EqualOrHigherPriority(l Lanes) Lanes {
	lowest := PickArbitraryLane(l)
	if lowest == NoLane {
		return NoLanes
	}
	return lowest<<1 - 1
}

// Each iterates the single lanes of l from most significant to least.
func (l Lanes) Each(fn func(index int, lane Lane)) {
	for l > 0 {
		index := Index(l)
		lane := Lane(1) << index
		fn(index, lane)
		l &^= lane
	}
}

func (l Lanes) String() string {
	if l == NoLanes {
		return "none"
	}

	var parts []string
	rest := l
	for rest != NoLanes {
		band, p := HighestPriorityLanes(rest)
		if band == NoLanes {
			break
		}
		parts = append(parts, p.String())
		rest &^= band
	}
	return strings.Join(parts, "|")
}

// FindUpdateLane picks a lane for a new update of the given priority that does not
// collide with lanes currently being rendered, falling back to the next band down.
func FindUpdateLane(p Priority, wip Lanes) Lane {
	switch p {
	case SyncPriority:
		return SyncLane
	case SyncBatchedPriority:
		return SyncBatchedLane
	case InputDiscretePriority:
		if lane := PickArbitraryLane(InputDiscreteLanes &^ wip); lane != NoLane {
			return lane
		}
		return FindUpdateLane(InputContinuousPriority, wip)
	case InputContinuousPriority:
		if lane := PickArbitraryLane(InputContinuousLanes &^ wip); lane != NoLane {
			return lane
		}
		return FindUpdateLane(DefaultPriority, wip)
	case DefaultPriority:
		if lane := PickArbitraryLane(DefaultLanes &^ wip); lane != NoLane {
			return lane
		}
		if lane := PickArbitraryLane(TransitionLanes &^ wip); lane != NoLane {
			return lane
		}
		return PickArbitraryLane(DefaultLanes)
	case TransitionPriority:
		return FindTransitionLane(wip, NoLanes)
	case RetryPriority:
		if lane := PickArbitraryLane(RetryLanes &^ wip); lane != NoLane {
			return lane
		}
		return SomeRetryLane
	case IdlePriority:
		if lane := PickArbitraryLane(IdleLanes &^ wip); lane != NoLane {
			return lane
		}
		return PickArbitraryLane(IdleLanes)
	case OffscreenPriority:
		return OffscreenLane
	}

	return SyncLane
}

// FindTransitionLane picks a transition lane that is neither rendering nor pending.
func FindTransitionLane(wip, pending Lanes) Lane {
	if lane := PickArbitraryLane(TransitionLanes &^ (wip | pending)); lane != NoLane {
		return lane
	}
	if lane := PickArbitraryLane(TransitionLanes &^ wip); lane != NoLane {
		return lane
	}
	return PickArbitraryLane(TransitionLanes)
}

// ExpirationTime is when a lane of priority p becomes starved, or NoTimestamp if it never does.
func ExpirationTime(p Priority, now time.Duration) time.Duration {
	switch {
	case p >= InputContinuousPriority:
		return now + 250*time.Millisecond
	case p >= TransitionPriority:
		return now + 5000*time.Millisecond
	default:
		return NoTimestamp
	}
}
