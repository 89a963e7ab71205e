// Package registry maps filter names to filters.
//
// Names are arbitrary byte strings compared byte for byte. A registry owns
// the filters it holds: Delete hands ownership back to the caller, who must
// Destroy the filter or re-register it.
package registry

import (
	"errors"
	"sync"

	filter "github.com/brown-csci1270/bloomdb/pkg/filter"
	list "github.com/brown-csci1270/bloomdb/pkg/list"
	memory "github.com/brown-csci1270/bloomdb/pkg/memory"
)

var (
	ErrKeyAlreadyExists = errors.New("key already exist")
	ErrKeyNotFound      = errors.New("key not exist")
)

// Bytes charged per entry on top of the name itself.
const NodeOverhead int64 = 64

type entry struct {
	name   string
	filter *filter.Filter
}

// Registry is an insertion-ordered set of named filters.
type Registry struct {
	mtx     sync.RWMutex
	alloc   memory.Allocator
	order   *list.List[*entry]
	entries map[string]*list.Link[*entry]
}

// New creates an empty registry charging its nodes to alloc.
func New(alloc memory.Allocator) *Registry {
	return &Registry{
		alloc:   alloc,
		order:   list.NewList[*entry](),
		entries: make(map[string]*list.Link[*entry]),
	}
}

func nodeCost(name string) int64 {
	return NodeOverhead + int64(len(name))
}

// Add registers f under name. On error the registry is unchanged and the
// caller still owns f.
func (r *Registry) Add(name string, f *filter.Filter) error {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if _, ok := r.entries[name]; ok {
		return ErrKeyAlreadyExists
	}
	if err := r.alloc.Reserve(nodeCost(name)); err != nil {
		return err
	}
	r.entries[name] = r.order.PushTail(&entry{name: name, filter: f})
	return nil
}

// Find returns the filter registered under name. The registry keeps
// ownership.
func (r *Registry) Find(name string) (*filter.Filter, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	link, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return link.GetKey().filter, true
}

// Delete unregisters name and returns its filter to the caller.
func (r *Registry) Delete(name string) (*filter.Filter, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	link, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	link.PopSelf()
	delete(r.entries, name)
	r.alloc.Release(nodeCost(name))
	return link.GetKey().filter, true
}

// Len returns the number of registered filters.
func (r *Registry) Len() int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return r.order.Len()
}

// Names returns every registered name in insertion order.
func (r *Registry) Names() []string {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	names := make([]string, 0, r.order.Len())
	r.order.Map(func(link *list.Link[*entry]) {
		names = append(names, link.GetKey().name)
	})
	return names
}

// Swap exchanges the contents of r and other. Both must share an allocator.
func (r *Registry) Swap(other *Registry) {
	if r == other {
		return
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	other.mtx.Lock()
	defer other.mtx.Unlock()
	r.order, other.order = other.order, r.order
	r.entries, other.entries = other.entries, r.entries
}

// Range calls fn for each entry in insertion order, stopping at the first
// error. fn must not call back into the registry.
func (r *Registry) Range(fn func(name string, f *filter.Filter) error) error {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	for cur := r.order.PeekHead(); cur != nil; cur = cur.GetNext() {
		e := cur.GetKey()
		if err := fn(e.name, e.filter); err != nil {
			return err
		}
	}
	return nil
}
