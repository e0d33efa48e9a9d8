package crawl

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateDeduplicates(t *testing.T) {
	t.Parallel()

	s := NewState(10)
	require.True(t, s.TrySave("1005001"))
	require.False(t, s.TrySave("1005001"))
	require.True(t, s.TrySave("1005002"))
	require.Equal(t, 2, s.Saved())
}

func TestStateEnforcesTarget(t *testing.T) {
	t.Parallel()

	s := NewState(3)
	for i := 0; i < 3; i++ {
		require.True(t, s.TrySave(fmt.Sprintf("id-%d", i)))
	}
	require.True(t, s.TargetReached())
	require.False(t, s.TrySave("id-99"))
	require.Equal(t, 3, s.Saved())
}

func TestStateConcurrentSaversNeverOvershoot(t *testing.T) {
	t.Parallel()

	const target = 50
	s := NewState(target)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.TrySave(fmt.Sprintf("w%d-%d", w, i))
			}
		}()
	}
	wg.Wait()

	require.Equal(t, target, s.Saved())
	require.True(t, s.TargetReached())
}
