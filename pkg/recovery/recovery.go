package recovery

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	db "github.com/brown-csci1270/bloomdb/pkg/db"
	filter "github.com/brown-csci1270/bloomdb/pkg/filter"
	logger "github.com/brown-csci1270/bloomdb/pkg/logger"
	snapshot "github.com/brown-csci1270/bloomdb/pkg/snapshot"

	uuid "github.com/google/uuid"
)

// Manager makes a database durable. Every successful mutation is appended to
// the log before the caller sees the result; Checkpoint folds the log into a
// snapshot.
type Manager struct {
	d    *db.Database
	opts snapshot.Options
	fd   *os.File
	mtx  sync.Mutex
}

var _ db.Store = (*Manager)(nil)

// Construct a recovery manager.
func NewRecoveryManager(d *db.Database, logName string, opts snapshot.Options) (*Manager, error) {
	fd, err := os.OpenFile(logName, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return nil, err
	}
	rm := &Manager{d: d, opts: opts, fd: fd}
	if err := rm.terminateTornLine(); err != nil {
		fd.Close()
		return nil, err
	}
	return rm, nil
}

// Start a fresh line if the last write was cut short, so the torn line is
// not glued to the next log.
func (rm *Manager) terminateTornLine() error {
	fstats, err := rm.fd.Stat()
	if err != nil {
		return err
	}
	if fstats.Size() == 0 {
		return nil
	}
	last := make([]byte, 1)
	if _, err := rm.fd.ReadAt(last, fstats.Size()-1); err != nil && err != io.EOF {
		return err
	}
	if last[0] == '\n' {
		return nil
	}
	return rm.writeToBuffer("\n")
}

// Write the string `s` to the log file. Expects rm.mtx to be locked
func (rm *Manager) writeToBuffer(s string) error {
	_, err := rm.fd.WriteString(s)
	if err != nil {
		return err
	}
	err = rm.fd.Sync()
	return err
}

// Create a filter and log it.
func (rm *Manager) Create(name string, elemCount int64, errRate float64) error {
	rm.mtx.Lock()
	defer rm.mtx.Unlock()
	if err := rm.d.Create(name, elemCount, errRate); err != nil {
		return err
	}
	log := createLog{name, elemCount, errRate}
	if err := rm.writeToBuffer(log.toString()); err != nil {
		// Not durable, so not created.
		rm.d.Destroy(name)
		return err
	}
	return nil
}

// Add items to a filter and log them. Bits cannot be cleared, so if the log
// write fails the items stay in memory and the error is returned; they are
// lost on the next recovery unless added again.
func (rm *Manager) Add(name string, items ...[]byte) (int, error) {
	rm.mtx.Lock()
	defer rm.mtx.Unlock()
	added, err := rm.d.Add(name, items...)
	if err != nil || added == 0 {
		return added, err
	}
	log := addLog{name, items}
	return added, rm.writeToBuffer(log.toString())
}

// Check does not mutate and is not logged.
func (rm *Manager) Check(name string, item []byte) (bool, error) {
	return rm.d.Check(name, item)
}

// Destroy filters and log the ones that existed.
func (rm *Manager) Destroy(names ...string) int {
	rm.mtx.Lock()
	defer rm.mtx.Unlock()
	destroyed := make([]string, 0, len(names))
	for _, name := range names {
		if rm.d.Destroy(name) == 1 {
			destroyed = append(destroyed, name)
		}
	}
	if len(destroyed) > 0 {
		log := destroyLog{destroyed}
		if err := rm.writeToBuffer(log.toString()); err != nil {
			logger.Sugar.Errorf("failed to log destroy of %q: %v", destroyed, err)
		}
	}
	return len(destroyed)
}

// Info reports the stats of a filter.
func (rm *Manager) Info(name string) (filter.Stats, error) {
	return rm.d.Info(name)
}

// Names of every filter.
func (rm *Manager) Names() []string {
	return rm.d.Names()
}

// Write a snapshot of every filter, then a checkpoint log.
func (rm *Manager) Checkpoint() error {
	rm.mtx.Lock()
	defer rm.mtx.Unlock()
	if err := rm.d.SaveSnapshot(rm.opts); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	log := checkpointLog{uuid.New()}
	if err := rm.writeToBuffer(log.toString()); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	logger.Sugar.Infof("checkpoint %s written", log.id)
	return nil
}

// Redo a given log's action against the database, bypassing the log.
func (rm *Manager) Redo(log Log) error {
	switch log := log.(type) {
	case *createLog:
		return rm.d.Create(log.name, log.elemCount, log.errRate)
	case *addLog:
		_, err := rm.d.Add(log.name, log.items...)
		return err
	case *destroyLog:
		rm.d.Destroy(log.names...)
		return nil
	default:
		return errors.New("can only redo create, add and destroy logs")
	}
}

// Restore the latest snapshot, then replay every log written after the most
// recent checkpoint.
func (rm *Manager) Recover() error {
	rm.mtx.Lock()
	defer rm.mtx.Unlock()
	if err := rm.d.LoadSnapshot(rm.opts); err != nil {
		return fmt.Errorf("recover: %w", err)
	}
	logs, found, err := rm.readLogs()
	if err != nil {
		return fmt.Errorf("recover: %w", err)
	}
	if !found {
		logger.Sugar.Infof("no checkpoint in log, replaying from the start")
	}
	for _, log := range logs {
		if err := rm.Redo(log); err != nil {
			logger.Sugar.Warnf("skipping log %q: %v", log.toString(), err)
		}
	}
	logger.Sugar.Infof("recovered %d filters from %d logs", len(rm.d.Names()), len(logs))
	return nil
}

// Close the log file.
func (rm *Manager) Close() error {
	rm.mtx.Lock()
	defer rm.mtx.Unlock()
	return rm.fd.Close()
}
