package daily

import (
	"sync"
)

// The Daily engine has one process-wide context shared by every call client.
// It is created by the first Initialize and torn down by the last Release.
var globalContext struct {
	mu   sync.Mutex
	refs int
	gen  uint64
}

func acquireContext() {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	if globalContext.refs == 0 {
		globalContext.gen++
	}
	globalContext.refs++
}

func releaseContext() {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	if globalContext.refs > 0 {
		globalContext.refs--
	}
}

// ContextRefs returns how many engines currently hold the process-wide context.
func ContextRefs() int {
	globalContext.mu.Lock()
	defer globalContext.mu.Unlock()
	return globalContext.refs
}
