package module

import (
	"slices"
	"sync"
)

// process-wide registry filled once at startup by main
var (
	mu  sync.RWMutex
	reg = map[string]any{}
)

// Register stores the port set of a module; a second call for name replaces the first
func Register(name string, ports any) {
	mu.Lock()
	reg[name] = ports
	mu.Unlock()
}

// RegisterAll registers every module under its own name
func RegisterAll(mods ...Module) {
	for _, m := range mods {
		Register(m.Name(), m.Ports())
	}
}

// PortsAs fetches the port set registered under name as T
func PortsAs[T any](name string) (T, bool) {
	mu.RLock()
	v, ok := reg[name]
	mu.RUnlock()
	out, ok2 := v.(T)
	return out, ok && ok2
}

// Names lists registered modules in sorted order
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(reg))
	for k := range reg {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Reset clears the registry for tests
func Reset() {
	mu.Lock()
	reg = map[string]any{}
	mu.Unlock()
}
