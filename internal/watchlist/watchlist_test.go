package watchlist

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/procwatch/internal/domain"
)

func TestWatchlist_SetAndAll(t *testing.T) {
	w := New()
	require.NoError(t, w.Set("nginx", "/usr/sbin/nginx"))
	require.NoError(t, w.Set("redis-server", "/usr/bin/redis-server /etc/redis.conf"))

	assert.Equal(t, []domain.WatchTarget{
		{Name: "nginx", Command: "/usr/sbin/nginx"},
		{Name: "redis-server", Command: "/usr/bin/redis-server /etc/redis.conf"},
	}, w.All())
	assert.Equal(t, 2, w.Len())
}

func TestWatchlist_ReplaceKeepsPosition(t *testing.T) {
	w := New()
	require.NoError(t, w.Set("a", "/bin/a"))
	require.NoError(t, w.Set("b", "/bin/b"))
	require.NoError(t, w.Set("a", "/opt/a --new"))

	assert.Equal(t, []string{"a", "b"}, w.Names())
	got, ok := w.Get("a")
	require.True(t, ok)
	assert.Equal(t, "/opt/a --new", got.Command)
	assert.Equal(t, 2, w.Len())
}

func TestWatchlist_SetRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		command string
	}{
		{name: "empty name", target: "", command: "/bin/a"},
		{name: "empty command", target: "a", command: ""},
		{name: "blank command", target: "a", command: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New()
			err := w.Set(tt.target, tt.command)
			assert.ErrorIs(t, err, domain.ErrInvalidTarget)
			assert.Zero(t, w.Len())
		})
	}
}

func TestWatchlist_NameIsCaseSensitive(t *testing.T) {
	w := New()
	require.NoError(t, w.Set("App", "/bin/App"))
	require.NoError(t, w.Set("app", "/bin/app"))

	assert.Equal(t, 2, w.Len())
}

func TestWatchlist_Remove(t *testing.T) {
	w, err := NewWithTargets(
		domain.WatchTarget{Name: "a", Command: "/bin/a"},
		domain.WatchTarget{Name: "b", Command: "/bin/b"},
		domain.WatchTarget{Name: "c", Command: "/bin/c"},
	)
	require.NoError(t, err)

	assert.True(t, w.Remove("b"))
	assert.False(t, w.Remove("b"))
	assert.Equal(t, []string{"a", "c"}, w.Names())

	_, ok := w.Get("b")
	assert.False(t, ok)
}

func TestWatchlist_AllReturnsCopy(t *testing.T) {
	w := New()
	require.NoError(t, w.Set("a", "/bin/a"))

	snapshot := w.All()
	snapshot[0].Command = "mutated"
	require.NoError(t, w.Set("b", "/bin/b"))

	got, _ := w.Get("a")
	assert.Equal(t, "/bin/a", got.Command)
	assert.Len(t, snapshot, 1, "later Set must not show up in an earlier copy")
}

func TestNewWithTargets_InvalidTarget(t *testing.T) {
	_, err := NewWithTargets(domain.WatchTarget{Name: "a"})
	assert.ErrorIs(t, err, domain.ErrInvalidTarget)
}

// TestWatchlist_ConcurrentSetDuringIteration runs writers against readers
// iterating copies; run with -race.
func TestWatchlist_ConcurrentSetDuringIteration(t *testing.T) {
	w := New()
	require.NoError(t, w.Set("seed", "/bin/seed"))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = w.Set(fmt.Sprintf("t%d-%d", i, j%10), "/bin/true")
			}
		}(i)
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				targets := w.All()
				if assert.NotEmpty(t, targets) {
					assert.Equal(t, "seed", targets[0].Name)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1+4*10, w.Len())
}
