package dbtest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) Snapshot() func() {
	c.mu.Lock()
	saved := c.n
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.n = saved
		c.mu.Unlock()
	}
}

func (c *counter) inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	c := &counter{}
	m := NewTxManager(c)

	require.NoError(t, m.WithinTx(context.Background(), func(ctx context.Context) error {
		assert.True(t, InTx(ctx))
		c.inc()
		return nil
	}))

	boom := errors.New("boom")
	err := m.WithinTx(context.Background(), func(ctx context.Context) error {
		c.inc()
		c.inc()
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, c.n)

	commits, rollbacks := m.Stats()
	assert.Equal(t, 1, commits)
	assert.Equal(t, 1, rollbacks)
	assert.False(t, InTx(context.Background()))
}

func TestNestedWithinTxJoinsOuter(t *testing.T) {
	c := &counter{}
	m := NewTxManager(c)

	err := m.WithinTx(context.Background(), func(ctx context.Context) error {
		c.inc()
		return m.WithinTx(ctx, func(ctx context.Context) error {
			c.inc()
			return errors.New("inner failure")
		})
	})
	require.Error(t, err)
	assert.Equal(t, 0, c.n)
}
