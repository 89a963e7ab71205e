package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBudgetAllocAndFree(t *testing.T) {
	b := NewBudget(100)
	buf, err := b.Alloc(60)
	require.NoError(t, err)
	require.Len(t, buf, 60)
	for _, c := range buf {
		require.Zero(t, c)
	}
	require.Equal(t, int64(60), b.Used())

	_, err = b.Alloc(41)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.Equal(t, int64(60), b.Used())

	b.Free(buf)
	require.Zero(t, b.Used())

	_, err = b.Alloc(100)
	require.NoError(t, err)
}

func TestBudgetRejectsAbsurdSizes(t *testing.T) {
	b := Unlimited()
	_, err := b.Alloc(-1)
	require.ErrorIs(t, err, ErrOutOfMemory)
	_, err = b.Alloc(MaxAlloc + 1)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.ErrorIs(t, b.Reserve(1<<40), ErrOutOfMemory)
	require.Zero(t, b.Used())
}

func TestBudgetReserveRelease(t *testing.T) {
	b := NewBudget(10)
	require.NoError(t, b.Reserve(10))
	require.ErrorIs(t, b.Reserve(1), ErrOutOfMemory)
	b.Release(4)
	require.NoError(t, b.Reserve(4))
	b.Release(100)
	require.Zero(t, b.Used())
}
