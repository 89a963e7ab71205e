package db

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	repl "github.com/brown-csci1270/bloomdb/pkg/repl"
)

// Creates a Bloom filter REPL over the given store.
func DatabaseRepl(s Store) *repl.REPL {
	r := repl.NewRepl()
	r.AddCommand("bloomfilter.create", func(payload string, replConfig *repl.REPLConfig) error {
		return HandleCreate(s, payload, replConfig.GetWriter())
	}, "Create a filter. usage: bloomfilter.create <name> <capacity> <error_rate>")
	r.AddCommand("bloomfilter.add", func(payload string, replConfig *repl.REPLConfig) error {
		return HandleAdd(s, payload, replConfig.GetWriter())
	}, "Add items to a filter. usage: bloomfilter.add <name> <item> [item ...]")
	r.AddCommand("bloomfilter.check", func(payload string, replConfig *repl.REPLConfig) error {
		return HandleCheck(s, payload, replConfig.GetWriter())
	}, "Check whether an item may be in a filter. usage: bloomfilter.check <name> <item>")
	r.AddCommand("bloomfilter.destroy", func(payload string, replConfig *repl.REPLConfig) error {
		return HandleDestroy(s, payload, replConfig.GetWriter())
	}, "Destroy filters. usage: bloomfilter.destroy <name> [name ...]")
	r.AddCommand("bloomfilter.info", func(payload string, replConfig *repl.REPLConfig) error {
		return HandleInfo(s, payload, replConfig.GetWriter())
	}, "Print the parameters and fill level of a filter. usage: bloomfilter.info <name>")
	r.AddCommand("bloomfilter.list", func(payload string, replConfig *repl.REPLConfig) error {
		return HandleList(s, payload, replConfig.GetWriter())
	}, "List all filters. usage: bloomfilter.list")
	return r
}

func arityError(cmd string) error {
	return fmt.Errorf("wrong number of arguments for '%s' command", strings.ToLower(cmd))
}

// Handle create.
func HandleCreate(s Store, payload string, w io.Writer) (err error) {
	fields := strings.Fields(payload)
	// Usage: bloomfilter.create <name> <capacity> <error_rate>
	if len(fields) != 4 {
		return arityError(fields[0])
	}
	elemCount, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return ErrWrongParamType
	}
	errRate, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return ErrWrongParamType
	}
	if err = s.Create(fields[1], elemCount, errRate); err != nil {
		return err
	}
	io.WriteString(w, "OK\n")
	return nil
}

// Handle add.
func HandleAdd(s Store, payload string, w io.Writer) (err error) {
	fields := strings.Fields(payload)
	// Usage: bloomfilter.add <name> <item> [item ...]
	if len(fields) < 3 {
		return arityError(fields[0])
	}
	items := make([][]byte, 0, len(fields)-2)
	for _, item := range fields[2:] {
		items = append(items, []byte(item))
	}
	added, err := s.Add(fields[1], items...)
	if err != nil {
		return err
	}
	io.WriteString(w, fmt.Sprintf("%d\n", added))
	return nil
}

// Handle check.
func HandleCheck(s Store, payload string, w io.Writer) (err error) {
	fields := strings.Fields(payload)
	// Usage: bloomfilter.check <name> <item>
	if len(fields) != 3 {
		return arityError(fields[0])
	}
	found, err := s.Check(fields[1], []byte(fields[2]))
	if err != nil {
		return err
	}
	if found {
		io.WriteString(w, "1\n")
	} else {
		io.WriteString(w, "0\n")
	}
	return nil
}

// Handle destroy.
func HandleDestroy(s Store, payload string, w io.Writer) (err error) {
	fields := strings.Fields(payload)
	// Usage: bloomfilter.destroy <name> [name ...]
	if len(fields) < 2 {
		return arityError(fields[0])
	}
	io.WriteString(w, fmt.Sprintf("%d\n", s.Destroy(fields[1:]...)))
	return nil
}

// Handle info.
func HandleInfo(s Store, payload string, w io.Writer) (err error) {
	fields := strings.Fields(payload)
	// Usage: bloomfilter.info <name>
	if len(fields) != 2 {
		return arityError(fields[0])
	}
	st, err := s.Info(fields[1])
	if err != nil {
		return err
	}
	io.WriteString(w, fmt.Sprintf("hash_times: %d\nbit_length: %d\nsize: %d\nbits_set: %d\nfill_ratio: %.4f\nestimated_count: %.0f\n",
		st.HashTimes, st.BitLength, st.Size, st.BitsSet, st.FillRatio, st.EstimatedCount))
	return nil
}

// Handle list.
func HandleList(s Store, payload string, w io.Writer) (err error) {
	fields := strings.Fields(payload)
	// Usage: bloomfilter.list
	if len(fields) != 1 {
		return arityError(fields[0])
	}
	for _, name := range s.Names() {
		io.WriteString(w, strconv.Quote(name)+"\n")
	}
	return nil
}
