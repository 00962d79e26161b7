package internal

// Host is the renderer the engine drives. Instances are opaque to the engine.
type Host interface {
	CreateInstance(typ string, props Props) any
	CreateText(text string) any

	AppendChild(parent, child any)
	InsertBefore(parent, child, before any)
	RemoveChild(parent, child any)

	// PrepareUpdate diffs props and returns a payload, or nil when nothing changed.
	PrepareUpdate(instance any, typ string, oldProps, newProps Props) any
	// CommitUpdate applies a payload from PrepareUpdate, or the new content of a text instance.
	CommitUpdate(instance any, payload any)

	// FinalizeInitial runs once a new instance has its children. Returning true asks for
	// a CommitMount call after the instance is attached.
	FinalizeInitial(instance any, typ string, props Props) bool
}

// ContainerClearer empties a container before the first tree is placed in it.
type ContainerClearer interface {
	ClearContainer(container any)
}

// CommitObserver brackets the mutation phase of every commit.
type CommitObserver interface {
	PrepareForCommit(container any)
	ResetAfterCommit(container any)
}

// Mounter receives instances whose FinalizeInitial returned true.
type Mounter interface {
	CommitMount(instance any, typ string, props Props)
}

func (r *Runtime) hostCall(op string, fn func()) {
	defer func() {
		if v := recover(); v != nil {
			r.report(&HostError{Op: op, Value: v})
		}
	}()
	fn()
}
