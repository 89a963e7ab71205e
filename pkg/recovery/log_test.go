package recovery

import (
	"testing"

	uuid "github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestLogRoundTrip(t *testing.T) {
	logs := []Log{
		&createLog{name: "f1", elemCount: 100, errRate: 0.05},
		&createLog{name: `we"ird \ name`, elemCount: 1, errRate: 1e-7},
		&addLog{name: "f1", items: [][]byte{[]byte("a"), []byte("b c"), []byte("")}},
		&addLog{name: "bin", items: [][]byte{{0x00, 0xff, '\n'}, []byte("é")}},
		&destroyLog{names: []string{"f1"}},
		&destroyLog{names: []string{"a", "> b <", "new\nline"}},
		&checkpointLog{id: uuid.New()},
	}
	for _, log := range logs {
		s := log.toString()
		require.Equal(t, byte('\n'), s[len(s)-1])
		got, err := FromString(s[:len(s)-1])
		require.NoError(t, err, s)
		require.Equal(t, log, got)
	}
}

func TestLogFormat(t *testing.T) {
	require.Equal(t, "< create \"f1\" 100 0.05 >\n", (&createLog{"f1", 100, 0.05}).toString())
	require.Equal(t, "< add \"f1\" \"a\" \"b\" >\n", (&addLog{"f1", [][]byte{[]byte("a"), []byte("b")}}).toString())
	require.Equal(t, "< destroy \"a\" \"b\" >\n", (&destroyLog{[]string{"a", "b"}}).toString())
}

func TestFromStringRejects(t *testing.T) {
	for _, s := range []string{
		"",
		"garbage",
		"< create f1 100 0.05 >",
		"< create \"f1\" 100 >",
		"< create \"f1\" 100 abc >",
		"< add \"f1\" >",
		"< add \"f1\" \"a >",
		"< destroy >",
		"< checkpoint nope >",
	} {
		_, err := FromString(s)
		require.Error(t, err, s)
	}
}
