package recovery

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	uuid "github.com/google/uuid"
)

/*
   Logs come in the following forms, one per line. Names and items are
   Go-quoted so arbitrary bytes survive the round trip.

   CREATE log -- a filter was created:
   < create "name" capacity error_rate >

   ADD log -- items were added to a filter:
   < add "name" "item" ["item" ...] >

   DESTROY log -- the listed filters existed and were destroyed:
   < destroy "name" ["name" ...] >

   CHECKPOINT log -- a snapshot covering every earlier log was written:
   < checkpoint uuid >
*/

// A log.
type Log interface {
	toString() string
}

var quotedPattern string = `"(?:[^"\\]|\\.)*"`

var uuidPattern string = "[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}"

var (
	createExp     = regexp.MustCompile(fmt.Sprintf(`^< create (%s) (-?\d+) (\S+) >$`, quotedPattern))
	addExp        = regexp.MustCompile(fmt.Sprintf(`^< add (%s)((?: %s)+) >$`, quotedPattern, quotedPattern))
	destroyExp    = regexp.MustCompile(fmt.Sprintf(`^< destroy((?: %s)+) >$`, quotedPattern))
	checkpointExp = regexp.MustCompile(fmt.Sprintf(`^< checkpoint (%s) >$`, uuidPattern))
	quotedExp     = regexp.MustCompile(quotedPattern)
)

var errParse = errors.New("could not parse log")

// Convert a textual log to its respective struct.
func FromString(s string) (Log, error) {
	s = strings.TrimSuffix(s, "\n")
	switch {
	case createExp.MatchString(s):
		expStrs := createExp.FindStringSubmatch(s)
		name, err := strconv.Unquote(expStrs[1])
		if err != nil {
			return nil, errParse
		}
		elemCount, err := strconv.ParseInt(expStrs[2], 10, 64)
		if err != nil {
			return nil, errParse
		}
		errRate, err := strconv.ParseFloat(expStrs[3], 64)
		if err != nil {
			return nil, errParse
		}
		return &createLog{name: name, elemCount: elemCount, errRate: errRate}, nil
	case addExp.MatchString(s):
		expStrs := addExp.FindStringSubmatch(s)
		name, err := strconv.Unquote(expStrs[1])
		if err != nil {
			return nil, errParse
		}
		items, err := unquoteAll(expStrs[2])
		if err != nil {
			return nil, err
		}
		log := &addLog{name: name, items: make([][]byte, len(items))}
		for i, item := range items {
			log.items[i] = []byte(item)
		}
		return log, nil
	case destroyExp.MatchString(s):
		names, err := unquoteAll(destroyExp.FindStringSubmatch(s)[1])
		if err != nil {
			return nil, err
		}
		return &destroyLog{names: names}, nil
	case checkpointExp.MatchString(s):
		id := uuid.MustParse(checkpointExp.FindStringSubmatch(s)[1])
		return &checkpointLog{id: id}, nil
	default:
		return nil, errParse
	}
}

func unquoteAll(s string) ([]string, error) {
	quoted := quotedExp.FindAllString(s, -1)
	out := make([]string, len(quoted))
	for i, q := range quoted {
		unq, err := strconv.Unquote(q)
		if err != nil {
			return nil, errParse
		}
		out[i] = unq
	}
	return out, nil
}

func quoteAll(strs []string) string {
	var sb strings.Builder
	for _, s := range strs {
		sb.WriteString(" " + strconv.Quote(s))
	}
	return sb.String()
}

// Log for a filter creation.
type createLog struct {
	name      string
	elemCount int64
	errRate   float64
}

func (cl *createLog) toString() string {
	return fmt.Sprintf("< create %s %d %s >\n", strconv.Quote(cl.name), cl.elemCount, strconv.FormatFloat(cl.errRate, 'g', -1, 64))
}

// Log for added items.
type addLog struct {
	name  string
	items [][]byte
}

func (al *addLog) toString() string {
	items := make([]string, len(al.items))
	for i, item := range al.items {
		items[i] = string(item)
	}
	return fmt.Sprintf("< add %s%s >\n", strconv.Quote(al.name), quoteAll(items))
}

// Log for destroyed filters.
type destroyLog struct {
	names []string
}

func (dl *destroyLog) toString() string {
	return fmt.Sprintf("< destroy%s >\n", quoteAll(dl.names))
}

// Log for a checkpoint.
type checkpointLog struct {
	id uuid.UUID
}

func (cl *checkpointLog) toString() string {
	return fmt.Sprintf("< checkpoint %s >\n", cl.id.String())
}
