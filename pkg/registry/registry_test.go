package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	filter "github.com/brown-csci1270/bloomdb/pkg/filter"
	memory "github.com/brown-csci1270/bloomdb/pkg/memory"
	"github.com/stretchr/testify/require"
)

func newFilter(t *testing.T) *filter.Filter {
	f, err := filter.Create(memory.Unlimited(), 100, 0.05)
	require.NoError(t, err)
	return f
}

func TestAddFind(t *testing.T) {
	r := New(memory.Unlimited())
	f := newFilter(t)
	require.NoError(t, r.Add("f1", f))

	got, ok := r.Find("f1")
	require.True(t, ok)
	require.Same(t, f, got)

	_, ok = r.Find("f2")
	require.False(t, ok)
}

func TestUniqueness(t *testing.T) {
	r := New(memory.Unlimited())
	f1, f2 := newFilter(t), newFilter(t)
	require.NoError(t, r.Add("name", f1))
	require.ErrorIs(t, r.Add("name", f2), ErrKeyAlreadyExists)

	got, ok := r.Find("name")
	require.True(t, ok)
	require.Same(t, f1, got)
	require.Equal(t, 1, r.Len())
}

func TestNamesAreExactBytes(t *testing.T) {
	r := New(memory.Unlimited())
	require.NoError(t, r.Add("a\x00b", newFilter(t)))
	require.NoError(t, r.Add("a", newFilter(t)))
	require.NoError(t, r.Add("A", newFilter(t)))
	require.NoError(t, r.Add("", newFilter(t)))
	require.Equal(t, 4, r.Len())

	_, ok := r.Find("a\x00")
	require.False(t, ok)
	_, ok = r.Find("")
	require.True(t, ok)
}

func TestDelete(t *testing.T) {
	r := New(memory.Unlimited())
	f := newFilter(t)
	require.NoError(t, r.Add("f1", f))

	got, ok := r.Delete("f1")
	require.True(t, ok)
	require.Same(t, f, got)
	_, ok = r.Find("f1")
	require.False(t, ok)

	got, ok = r.Delete("f1")
	require.False(t, ok)
	require.Nil(t, got)
	require.Zero(t, r.Len())

	// The name is free again.
	require.NoError(t, r.Add("f1", f))
}

func TestInsertionOrder(t *testing.T) {
	r := New(memory.Unlimited())
	for _, name := range []string{"c", "a", "b", "d"} {
		require.NoError(t, r.Add(name, newFilter(t)))
	}
	r.Delete("a")
	require.Equal(t, []string{"c", "b", "d"}, r.Names())

	var seen []string
	require.NoError(t, r.Range(func(name string, f *filter.Filter) error {
		seen = append(seen, name)
		return nil
	}))
	require.Equal(t, []string{"c", "b", "d"}, seen)

	stop := errors.New("stop")
	seen = nil
	err := r.Range(func(name string, f *filter.Filter) error {
		seen = append(seen, name)
		return stop
	})
	require.ErrorIs(t, err, stop)
	require.Equal(t, []string{"c"}, seen)
}

func TestAddOutOfMemoryLeavesFilterWithCaller(t *testing.T) {
	budget := memory.NewBudget(NodeOverhead + 2)
	r := New(budget)
	require.NoError(t, r.Add("ok", newFilter(t)))

	f := newFilter(t)
	require.ErrorIs(t, r.Add("x", f), memory.ErrOutOfMemory)
	_, ok := r.Find("x")
	require.False(t, ok)

	// Still usable by the caller.
	f.Add([]byte("a"))
	require.True(t, f.Check([]byte("a")))

	// Deleting refunds the node.
	r.Delete("ok")
	require.Zero(t, budget.Used())
	require.NoError(t, r.Add("x", f))
}

func TestConcurrentAddDelete(t *testing.T) {
	r := New(memory.Unlimited())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				name := fmt.Sprintf("%d-%d", i, j)
				if err := r.Add(name, nil); err != nil {
					t.Error(err)
					return
				}
				if j%2 == 0 {
					r.Delete(name)
				}
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, 8*25, r.Len())
}

func TestSwap(t *testing.T) {
	budget := memory.Unlimited()
	live := New(budget)
	staged := New(budget)
	require.NoError(t, live.Add("old", newFilter(t)))
	require.NoError(t, staged.Add("new1", newFilter(t)))
	require.NoError(t, staged.Add("new2", newFilter(t)))

	live.Swap(staged)
	require.Equal(t, []string{"new1", "new2"}, live.Names())
	require.Equal(t, []string{"old"}, staged.Names())
	_, ok := live.Find("old")
	require.False(t, ok)
	_, ok = staged.Find("old")
	require.True(t, ok)

	live.Swap(live)
	require.Equal(t, 2, live.Len())
}
