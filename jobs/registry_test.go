package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/robbyt/go-shapescript"
	"github.com/robbyt/go-shapescript/options"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const script = `def main(args):
    return Shape(datasources.Box(Vector3(0, 0, 0), Vector3(1, 2, 3)))
`

func starlarkFactory() (*shapescript.Evaluator, error) {
	return shapescript.NewStarlarkEvaluator(options.WithLogHandler(slog.DiscardHandler))
}

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(slog.DiscardHandler, starlarkFactory)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRegistryLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRegistry(t)

	id, err := r.Open()
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, r.Jobs())

	err = r.Do(ctx, id, func(ev *shapescript.Evaluator) error {
		res := ev.Eval(ctx, script, nil, nil)
		if !res.Success {
			return res.Err
		}
		return nil
	})
	require.NoError(t, err)

	var active bool
	require.NoError(t, r.Do(ctx, id, func(ev *shapescript.Evaluator) error {
		active = ev.Context() != nil
		return nil
	}))
	assert.True(t, active)

	require.NoError(t, r.Clear(id))
	assert.Empty(t, r.Jobs())

	err = r.Do(ctx, id, func(*shapescript.Evaluator) error { return nil })
	require.ErrorIs(t, err, ErrJobNotFound)
	require.ErrorIs(t, r.Clear(id), ErrJobNotFound)
}

func TestRegistryJobsAreIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRegistry(t)

	a, err := r.Open()
	require.NoError(t, err)
	b, err := r.Open()
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	require.NoError(t, r.Do(ctx, a, func(ev *shapescript.Evaluator) error {
		require.True(t, ev.Eval(ctx, script, nil, nil).Success)
		return nil
	}))
	require.NoError(t, r.Do(ctx, b, func(ev *shapescript.Evaluator) error {
		res := ev.Reeval(ctx, script, nil, nil)
		assert.ErrorIs(t, res.Err, shapescript.ErrInvalidState)
		return nil
	}))
}

func TestRegistrySerializesCalls(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRegistry(t)
	id, err := r.Open()
	require.NoError(t, err)

	var inFlight, maxInFlight int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Do(ctx, id, func(ev *shapescript.Evaluator) error {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					m := atomic.LoadInt32(&maxInFlight)
					if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
						break
					}
				}
				ev.Eval(ctx, script, nil, nil)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInFlight)
}

func TestRegistryErrors(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry(slog.DiscardHandler, nil)
	require.ErrorIs(t, err, ErrNoFactory)

	failing, err := NewRegistry(slog.DiscardHandler, func() (*shapescript.Evaluator, error) {
		return nil, errors.New("no engine")
	})
	require.NoError(t, err)
	_, err = failing.Open()
	require.Error(t, err)

	r := newRegistry(t)
	id, err := r.Open()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = r.Do(ctx, id, func(*shapescript.Evaluator) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}
