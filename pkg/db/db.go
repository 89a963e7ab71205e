package db

import (
	"os"
	"path/filepath"

	codec "github.com/brown-csci1270/bloomdb/pkg/codec"
	concurrency "github.com/brown-csci1270/bloomdb/pkg/concurrency"
	config "github.com/brown-csci1270/bloomdb/pkg/config"
	filter "github.com/brown-csci1270/bloomdb/pkg/filter"
	logger "github.com/brown-csci1270/bloomdb/pkg/logger"
	memory "github.com/brown-csci1270/bloomdb/pkg/memory"
	registry "github.com/brown-csci1270/bloomdb/pkg/registry"
	snapshot "github.com/brown-csci1270/bloomdb/pkg/snapshot"
)

// Store is the command surface shared by Database and the durable wrapper in
// package recovery.
type Store interface {
	Create(name string, elemCount int64, errRate float64) error
	Add(name string, items ...[]byte) (int, error)
	Check(name string, item []byte) (bool, error)
	Destroy(names ...string) int
	Info(name string) (filter.Stats, error)
	Names() []string
}

// Database holds every named filter along with the allocator backing them.
type Database struct {
	basepath string
	alloc    memory.Allocator
	filters  *registry.Registry
	lm       *concurrency.LockManager
	typ      codec.Type
}

// Opens a database given a data folder. Filters are charged to alloc.
func Open(folder string, alloc memory.Allocator) (*Database, error) {
	// Make the data directory.
	if err := os.MkdirAll(folder, 0775); err != nil {
		return nil, err
	}
	return &Database{
		basepath: folder,
		alloc:    alloc,
		filters:  registry.New(alloc),
		lm:       concurrency.NewLockManager(),
		typ:      codec.NewType(alloc),
	}, nil
}

// Returns the basepath of the database.
func (db *Database) GetBasePath() string {
	return db.basepath
}

// Path of the snapshot file inside the data folder.
func (db *Database) SnapshotPath() string {
	return filepath.Join(db.basepath, config.SnapshotFileName)
}

// Create a filter sized for elemCount items at errRate under name.
func (db *Database) Create(name string, elemCount int64, errRate float64) error {
	db.lm.Lock(name, concurrency.W_LOCK)
	defer db.lm.Unlock(name, concurrency.W_LOCK)
	if _, found := db.filters.Find(name); found {
		return ErrKeyAlreadyExists
	}
	f, err := filter.Create(db.alloc, elemCount, errRate)
	if err != nil {
		return err
	}
	if err := db.filters.Add(name, f); err != nil {
		db.typ.Free(f)
		return err
	}
	logger.Sugar.Debugf("created filter %q: hash_times=%d bit_length=%d", name, f.HashTimes(), f.BitLength())
	return nil
}

// Add items to the named filter. Returns the number of items processed.
func (db *Database) Add(name string, items ...[]byte) (int, error) {
	db.lm.Lock(name, concurrency.W_LOCK)
	defer db.lm.Unlock(name, concurrency.W_LOCK)
	f, found := db.filters.Find(name)
	if !found {
		return 0, ErrKeyNotFound
	}
	return f.Add(items...), nil
}

// Check whether item may be in the named filter.
func (db *Database) Check(name string, item []byte) (bool, error) {
	db.lm.Lock(name, concurrency.R_LOCK)
	defer db.lm.Unlock(name, concurrency.R_LOCK)
	f, found := db.filters.Find(name)
	if !found {
		return false, ErrKeyNotFound
	}
	return f.Check(item), nil
}

// Destroy the named filters. Returns how many existed.
func (db *Database) Destroy(names ...string) int {
	count := 0
	for _, name := range names {
		db.lm.Lock(name, concurrency.W_LOCK)
		if f, found := db.filters.Delete(name); found {
			db.typ.Free(f)
			count++
		}
		db.lm.Unlock(name, concurrency.W_LOCK)
	}
	return count
}

// Info reports the parameters and fill level of the named filter.
func (db *Database) Info(name string) (filter.Stats, error) {
	db.lm.Lock(name, concurrency.R_LOCK)
	defer db.lm.Unlock(name, concurrency.R_LOCK)
	f, found := db.filters.Find(name)
	if !found {
		return filter.Stats{}, ErrKeyNotFound
	}
	return f.Stats(), nil
}

// Names of all filters in creation order.
func (db *Database) Names() []string {
	return db.filters.Names()
}

// SaveSnapshot writes every filter to SnapshotPath. Each filter is read
// locked while the snapshot is encoded.
func (db *Database) SaveSnapshot(opts snapshot.Options) error {
	names := db.filters.Names()
	entries := make([]snapshot.Entry, 0, len(names))
	for _, name := range names {
		db.lm.Lock(name, concurrency.R_LOCK)
		defer db.lm.Unlock(name, concurrency.R_LOCK)
		if f, found := db.filters.Find(name); found {
			entries = append(entries, snapshot.Entry{Name: name, Filter: f})
		}
	}
	return snapshot.Write(db.SnapshotPath(), entries, db.typ, opts)
}

// LoadSnapshot replaces the current filters with those in SnapshotPath. A
// missing snapshot leaves the database empty and is not an error. On any
// other failure the current filters are left as they were.
func (db *Database) LoadSnapshot(opts snapshot.Options) error {
	entries, err := snapshot.Read(db.SnapshotPath(), db.typ, opts)
	if snapshot.IsNotExist(err) {
		logger.Sugar.Infof("no snapshot at %s", db.SnapshotPath())
		db.clear()
		return nil
	}
	if err != nil {
		return err
	}
	staged := registry.New(db.alloc)
	for i, e := range entries {
		if err := staged.Add(e.Name, e.Filter); err != nil {
			for _, rest := range entries[i:] {
				db.typ.Free(rest.Filter)
			}
			db.drain(staged)
			return err
		}
	}
	// staged holds the previous filters after the swap.
	db.filters.Swap(staged)
	db.drain(staged)
	return nil
}

// Remove and destroy every filter.
func (db *Database) clear() {
	db.drain(db.filters)
}

// Destroy every filter in reg, waiting out any command still using one.
func (db *Database) drain(reg *registry.Registry) {
	for _, name := range reg.Names() {
		db.lm.Lock(name, concurrency.W_LOCK)
		if f, found := reg.Delete(name); found {
			db.typ.Free(f)
		}
		db.lm.Unlock(name, concurrency.W_LOCK)
	}
}

// Close destroys every filter, releasing their memory.
func (db *Database) Close() error {
	db.clear()
	return nil
}
