package processor

import (
	"fmt"
	"sync"
)

// Factory creates a new instance of a processor.
type Factory func() Processor

type namedFactory struct {
	name    string
	factory Factory
}

var (
	registryLock      sync.Mutex
	registeredPlugins []namedFactory
)

// RegisterProcessor registers the given annotation processor factory under the
// given name. Registering a name a second time replaces the earlier factory.
func RegisterProcessor(name string, f Factory) {
	registryLock.Lock()
	defer registryLock.Unlock()
	for i := range registeredPlugins {
		if registeredPlugins[i].name == name {
			registeredPlugins[i].factory = f
			return
		}
	}
	registeredPlugins = append(registeredPlugins, namedFactory{name: name, factory: f})
}

// AllRegisteredProcessors returns the names of all registered processors, in
// the order they were registered.
func AllRegisteredProcessors() []string {
	registryLock.Lock()
	defer registryLock.Unlock()
	names := make([]string, len(registeredPlugins))
	for i, p := range registeredPlugins {
		names[i] = p.name
	}
	return names
}

// NewProcessors creates one instance of each named processor.
func NewProcessors(names ...string) ([]Processor, error) {
	registryLock.Lock()
	defer registryLock.Unlock()
	procs := make([]Processor, 0, len(names))
	for _, name := range names {
		var f Factory
		for _, p := range registeredPlugins {
			if p.name == name {
				f = p.factory
				break
			}
		}
		if f == nil {
			return nil, fmt.Errorf("no processor named %q", name)
		}
		procs = append(procs, f())
	}
	return procs, nil
}
