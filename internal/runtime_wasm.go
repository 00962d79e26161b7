//go:build wasm

package internal

import "sync"

var (
	globalMu      sync.Mutex
	globalRuntime *Runtime
)

// GetRuntime returns the single runtime shared by every goroutine.
func GetRuntime() *Runtime {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalRuntime == nil {
		globalRuntime = NewRuntime(Options{})
	}
	return globalRuntime
}

func ReleaseRuntime() {
	globalMu.Lock()
	globalRuntime = nil
	globalMu.Unlock()
}

// js/wasm runs everything on one thread; callbacks from the browser arrive on fresh goroutines.
func ownerID() int64 {
	return 0
}
