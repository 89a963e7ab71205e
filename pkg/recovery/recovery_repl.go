package recovery

import (
	"fmt"
	"io"
	"strings"

	db "github.com/brown-csci1270/bloomdb/pkg/db"
	repl "github.com/brown-csci1270/bloomdb/pkg/repl"
)

// Recovery REPL: the filter commands, logged through rm, plus checkpoint.
func RecoveryREPL(rm *Manager) *repl.REPL {
	r := db.DatabaseRepl(rm)
	r.AddCommand("checkpoint", func(payload string, replConfig *repl.REPLConfig) error {
		return HandleCheckpoint(rm, payload, replConfig.GetWriter())
	}, "Snapshot every filter and mark the log. usage: checkpoint")
	return r
}

// Handle checkpoint.
func HandleCheckpoint(rm *Manager, payload string, w io.Writer) (err error) {
	fields := strings.Fields(payload)
	// Usage: checkpoint
	if len(fields) != 1 {
		return fmt.Errorf("usage: checkpoint")
	}
	if err = rm.Checkpoint(); err != nil {
		return err
	}
	io.WriteString(w, "OK\n")
	return nil
}
