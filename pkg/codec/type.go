package codec

import (
	"fmt"
	"io"

	filter "github.com/brown-csci1270/bloomdb/pkg/filter"
	memory "github.com/brown-csci1270/bloomdb/pkg/memory"
)

// Type bundles the callbacks a host needs to hold filters as opaque values:
// free, save and load.
type Type struct {
	alloc memory.Allocator
}

// NewType creates the callbacks, allocating loaded filters from alloc.
func NewType(alloc memory.Allocator) Type {
	return Type{alloc: alloc}
}

// Free destroys f.
func (t Type) Free(f *filter.Filter) {
	f.Destroy()
}

// Save writes f as a record.
func (t Type) Save(w io.Writer, f *filter.Filter) error {
	return Encode(w, f)
}

// Load reads a record the host stored under encver.
func (t Type) Load(r io.Reader, encver int) (*filter.Filter, error) {
	if encver != Version {
		return nil, fmt.Errorf("%w: encoding version %d, want %d", ErrDecodeFailure, encver, Version)
	}
	return Decode(r, t.alloc)
}
