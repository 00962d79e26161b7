//go:build !wasm

package internal

import (
	"sync"

	"github.com/petermattis/goid"
)

// goroutine id -> *Runtime
var runtimes sync.Map

// GetRuntime returns the runtime owned by the calling goroutine, creating it on first use.
func GetRuntime() *Runtime {
	id := ownerID()
	if r, ok := runtimes.Load(id); ok {
		return r.(*Runtime)
	}

	r, _ := runtimes.LoadOrStore(id, NewRuntime(Options{}))
	return r.(*Runtime)
}

// ReleaseRuntime drops the calling goroutine's runtime from the registry. Roots already
// created from it keep their reference.
func ReleaseRuntime() {
	runtimes.Delete(ownerID())
}

func ownerID() int64 {
	return goid.Get()
}
