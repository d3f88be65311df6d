package orchestrator_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"driveaudit/internal/orchestrator"
	"driveaudit/pkg/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AcquireReleaseCycle(t *testing.T) {
	t.Parallel()

	r := orchestrator.NewRegistry()
	id := domain.JobID(uuid.New())

	require.False(t, r.Active(id))
	require.True(t, r.TryAcquire(id))
	require.True(t, r.Active(id))
	require.False(t, r.TryAcquire(id))

	r.Release(id)
	require.False(t, r.Active(id))
	require.True(t, r.TryAcquire(id))
}

func TestRegistry_ConcurrentAcquireHasOneWinner(t *testing.T) {
	t.Parallel()

	r := orchestrator.NewRegistry()
	id := domain.JobID(uuid.New())

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.TryAcquire(id) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
}

func TestRegistry_IndependentJobs(t *testing.T) {
	t.Parallel()

	r := orchestrator.NewRegistry()
	a := domain.JobID(uuid.New())
	b := domain.JobID(uuid.New())

	require.True(t, r.TryAcquire(a))
	require.True(t, r.TryAcquire(b))

	r.Release(a)
	require.False(t, r.Active(a))
	require.True(t, r.Active(b))
}
