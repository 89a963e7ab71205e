package recovery

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	config "github.com/brown-csci1270/bloomdb/pkg/config"
	db "github.com/brown-csci1270/bloomdb/pkg/db"
	memory "github.com/brown-csci1270/bloomdb/pkg/memory"
	snapshot "github.com/brown-csci1270/bloomdb/pkg/snapshot"
	uuid "github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func logPath(dir string) string {
	return filepath.Join(dir, config.LogFileName)
}

// Open a database and recovery manager over dir, replaying whatever is there.
func setupRecovery(t *testing.T, dir string) *Manager {
	d, err := db.Open(dir, memory.Unlimited())
	require.NoError(t, err)
	rm, err := NewRecoveryManager(d, logPath(dir), snapshot.Options{})
	require.NoError(t, err)
	t.Cleanup(func() {
		rm.Close()
		d.Close()
	})
	require.NoError(t, rm.Recover())
	return rm
}

func TestOnlySuccessfulMutationsAreLogged(t *testing.T) {
	dir := t.TempDir()
	rm := setupRecovery(t, dir)
	require.NoError(t, rm.Create("f1", 100, 0.05))
	require.ErrorIs(t, rm.Create("f1", 10, 0.1), db.ErrKeyAlreadyExists)
	require.ErrorIs(t, rm.Create("bad", 0, 0.1), db.ErrInvalidParams)
	_, err := rm.Add("f1", []byte("a"), []byte("b"))
	require.NoError(t, err)
	_, err = rm.Add("missing", []byte("x"))
	require.ErrorIs(t, err, db.ErrKeyNotFound)
	found, err := rm.Check("f1", []byte("a"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 1, rm.Destroy("f1", "nope"))
	require.Equal(t, 0, rm.Destroy("nope"))

	contents, err := os.ReadFile(logPath(dir))
	require.NoError(t, err)
	require.Equal(t, "< create \"f1\" 100 0.05 >\n"+
		"< add \"f1\" \"a\" \"b\" >\n"+
		"< destroy \"f1\" >\n", string(contents))
}

func TestRecoverWithoutCheckpoint(t *testing.T) {
	dir := t.TempDir()
	rm := setupRecovery(t, dir)
	require.NoError(t, rm.Create("keep", 100, 0.05))
	require.NoError(t, rm.Create("gone", 100, 0.05))
	_, err := rm.Add("keep", []byte("a"), []byte("b"), []byte("c"))
	require.NoError(t, err)
	require.Equal(t, 1, rm.Destroy("gone"))
	before, err := rm.Info("keep")
	require.NoError(t, err)

	recovered := setupRecovery(t, dir)
	require.Equal(t, []string{"keep"}, recovered.Names())
	after, err := recovered.Info("keep")
	require.NoError(t, err)
	require.Equal(t, before, after)
	for _, item := range []string{"a", "b", "c"} {
		found, err := recovered.Check("keep", []byte(item))
		require.NoError(t, err)
		require.True(t, found, item)
	}
	found, err := recovered.Check("keep", []byte("z"))
	require.NoError(t, err)
	require.False(t, found)
}

func TestRecoverAfterCheckpoint(t *testing.T) {
	dir := t.TempDir()
	rm := setupRecovery(t, dir)
	require.NoError(t, rm.Create("a", 100, 0.05))
	require.NoError(t, rm.Create("tmp", 10, 0.1))
	_, err := rm.Add("a", []byte("x"))
	require.NoError(t, err)
	require.NoError(t, rm.Checkpoint())
	_, err = os.Stat(filepath.Join(dir, config.SnapshotFileName))
	require.NoError(t, err)

	_, err = rm.Add("a", []byte("y"))
	require.NoError(t, err)
	require.Equal(t, 1, rm.Destroy("tmp"))
	require.NoError(t, rm.Create("b", 10, 0.1))

	recovered := setupRecovery(t, dir)
	require.Equal(t, []string{"a", "b"}, recovered.Names())
	for _, item := range []string{"x", "y"} {
		found, err := recovered.Check("a", []byte(item))
		require.NoError(t, err)
		require.True(t, found, item)
	}

	// Only the logs after the checkpoint are replayed.
	logs, found, err := recovered.readLogs()
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, logs, 3)
	require.IsType(t, &addLog{}, logs[0])
	require.IsType(t, &createLog{}, logs[2])
}

func TestRecoverSkipsTornLine(t *testing.T) {
	dir := t.TempDir()
	torn := "< create \"f\" 10 0.1 >\n< add \"f\" \"a"
	require.NoError(t, os.WriteFile(logPath(dir), []byte(torn), 0666))

	rm := setupRecovery(t, dir)
	require.Equal(t, []string{"f"}, rm.Names())
	found, err := rm.Check("f", []byte("a"))
	require.NoError(t, err)
	require.False(t, found)

	// New logs start on their own line.
	_, err = rm.Add("f", []byte("b"))
	require.NoError(t, err)
	recovered := setupRecovery(t, dir)
	found, err = recovered.Check("f", []byte("b"))
	require.NoError(t, err)
	require.True(t, found)
}

func TestRecoveryRepl(t *testing.T) {
	dir := t.TempDir()
	rm := setupRecovery(t, dir)
	var out bytes.Buffer
	in := strings.NewReader(strings.Join([]string{
		"bloomfilter.create f 10 0.1",
		"bloomfilter.add f hello",
		"checkpoint",
		"checkpoint now",
		"bloomfilter.check f hello",
	}, "\n") + "\n")
	RecoveryREPL(rm).RunIO(in, &out, uuid.New(), "")
	require.Equal(t, "OK\n1\nOK\n(error) usage: checkpoint\n1\n\n", out.String())

	recovered := setupRecovery(t, dir)
	found, err := recovered.Check("f", []byte("hello"))
	require.NoError(t, err)
	require.True(t, found)
}

func TestCreateUndoneWhenLogFails(t *testing.T) {
	dir := t.TempDir()
	rm := setupRecovery(t, dir)
	require.NoError(t, rm.Create("kept", 10, 0.1))
	require.NoError(t, rm.fd.Close())

	require.Error(t, rm.Create("lost", 10, 0.1))
	require.Equal(t, []string{"kept"}, rm.Names())
	_, err := rm.Info("lost")
	require.ErrorIs(t, err, db.ErrKeyNotFound)
}
