package modkit

// Module is the common surface for pipeline modules that expose ports to their neighbours
// keep this tiny so modules stay decoupled
type Module interface {
	// Ports returns a module specific port set for cross wiring
	Ports() any

	// Name returns the module name
	Name() string
}
