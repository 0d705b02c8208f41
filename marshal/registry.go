package marshal

import (
	"reflect"
	"sync"

	"xdao.co/graphwire/rdf"
)

// Factory returns a new empty instance of a registered type.
type Factory func() Object

// Registry maps rdf:type tags to factories. Lookups pick the first declared
// tag that has a factory; nodes without one become *Obj.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	factories map[string]Factory
	tags      map[reflect.Type]string
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory), tags: make(map[reflect.Type]string)}
}

// Register binds tag to f. The Go type f returns is also remembered so its
// tag is written on serialize.
func (r *Registry) Register(tag string, f Factory) error {
	if tag == "" {
		return rdf.NewError(rdf.KindRegistry, "GW-REG-001", "empty type tag")
	}
	if f == nil {
		return rdf.Errorf(rdf.KindRegistry, "GW-REG-002", "nil factory for %s", tag)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[tag]; ok {
		return rdf.Errorf(rdf.KindRegistry, "GW-REG-003", "type %s already registered", tag)
	}
	r.factories[tag] = f
	r.order = append(r.order, tag)
	if sample := f(); sample != nil {
		t := reflect.TypeOf(sample)
		if _, ok := r.tags[t]; !ok {
			r.tags[t] = tag
		}
	}
	return nil
}

// MustRegister is Register that panics, for package-level setup.
func (r *Registry) MustRegister(tag string, f Factory) {
	if err := r.Register(tag, f); err != nil {
		panic(err)
	}
}

// Resolve instantiates the class for a node declaring tags. The returned tag
// is empty when nothing matched.
func (r *Registry) Resolve(tags []string) (Object, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range tags {
		if f, ok := r.factories[t]; ok {
			if obj := f(); obj != nil {
				return obj, t
			}
		}
	}
	return &Obj{}, ""
}

// TagFor returns the tag registered for obj's Go type.
func (r *Registry) TagFor(obj Object) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tag, ok := r.tags[reflect.TypeOf(obj)]
	return tag, ok
}

// Types returns the registered tags in registration order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
