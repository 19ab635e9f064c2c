package gateway

import "sync"

// The process-wide gateway slot. Initialized exactly once at startup;
// accessors fail loudly rather than lazily re-creating the instance.
var (
	globalMu sync.RWMutex
	global   Broadcaster
)

// Init installs the process gateway. Panics on a second call: double
// initialization means two servers are fighting over one slot.
func Init(b Broadcaster) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global != nil {
		panic("gateway: Init called twice")
	}
	global = b
}

// Get returns the process gateway. Panics when called before Init.
func Get() Broadcaster {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if global == nil {
		panic("gateway: Get called before Init")
	}
	return global
}

// Shutdown clears the slot during graceful drain so late senders fail
// loudly instead of writing into a dead server.
func Shutdown() {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = nil
}
