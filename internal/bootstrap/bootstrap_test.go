package bootstrap

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestApp_Run(t *testing.T) {
	t.Run("run returns nil", func(t *testing.T) {
		app := New(zap.NewNop())
		err := app.Run(context.Background(), func(ctx context.Context) error {
			return nil
		})
		assert.NoError(t, err)
	})

	t.Run("run returns error", func(t *testing.T) {
		app := New(zap.NewNop())
		want := errors.New("run failed")
		err := app.Run(context.Background(), func(ctx context.Context) error {
			return want
		})
		assert.ErrorIs(t, err, want)
	})

	t.Run("shutdown hooks run in LIFO order on context cancel", func(t *testing.T) {
		app := New(zap.NewNop())
		var mu sync.Mutex
		var order []string
		for _, name := range []string{"database", "worker pool", "http server"} {
			app.AddShutdownHook(name, func(ctx context.Context) error {
				mu.Lock()
				defer mu.Unlock()
				order = append(order, name)
				return nil
			})
		}

		ctx, cancel := context.WithCancel(context.Background())
		err := app.Run(ctx, func(ctx context.Context) error {
			cancel()
			<-ctx.Done()
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"http server", "worker pool", "database"}, order)
	})

	t.Run("hooks also run when run returns first", func(t *testing.T) {
		app := New(zap.NewNop())
		hookCalled := false
		app.AddShutdownHook("logger", func(ctx context.Context) error {
			hookCalled = true
			return nil
		})
		require.NoError(t, app.Run(context.Background(), func(ctx context.Context) error { return nil }))
		assert.True(t, hookCalled)
	})

	t.Run("hook registered from inside run callback", func(t *testing.T) {
		app := New(zap.NewNop())
		hookCalled := false

		ctx, cancel := context.WithCancel(context.Background())
		err := app.Run(ctx, func(ctx context.Context) error {
			app.AddShutdownHook("late", func(ctx context.Context) error {
				hookCalled = true
				return nil
			})
			cancel()
			<-ctx.Done()
			return nil
		})
		require.NoError(t, err)
		assert.True(t, hookCalled)
	})

	t.Run("hook errors are joined", func(t *testing.T) {
		app := New(zap.NewNop())
		want := errors.New("close failed")
		app.AddShutdownHook("database", func(ctx context.Context) error { return want })

		err := app.Run(context.Background(), func(ctx context.Context) error { return nil })
		assert.ErrorIs(t, err, want)
		assert.Contains(t, err.Error(), "database")
	})
}
