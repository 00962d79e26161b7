package internal

import "strings"

// Flags are the effects a node needs applied during commit.
type Flags uint16

const (
	NoFlags       Flags = 0
	PerformedWork Flags = 1 << (iota - 1) // the node's render function ran this pass
	Placement                             // insert or move the host instance
	UpdateFlag                            // apply a payload, or run layout effects
	ChildDeletion                         // Deletions holds removed children
	Snapshot                              // read host state before mutation
	Passive                               // passive effects to flush
	Callback                              // update queue callbacks to run
)

const (
	BeforeMutationMask = Snapshot | Passive
	MutationMask       = Placement | UpdateFlag | ChildDeletion
	LayoutMask         = UpdateFlag | Callback
	PassiveMask        = Passive | ChildDeletion
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{PerformedWork, "performed"},
	{Placement, "placement"},
	{UpdateFlag, "update"},
	{ChildDeletion, "deletion"},
	{Snapshot, "snapshot"},
	{Passive, "passive"},
	{Callback, "callback"},
}

func (f Flags) has(flag Flags) bool {
	return f&flag != 0
}

func (f *Flags) set(flag Flags) {
	*f |= flag
}

func (f *Flags) clear(flag Flags) {
	*f &^= flag
}

func (f Flags) String() string {
	if f == NoFlags {
		return "none"
	}

	var names []string
	for _, fn := range flagNames {
		if f.has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, "|")
}
