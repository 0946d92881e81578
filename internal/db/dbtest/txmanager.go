// Package dbtest provides an in-memory stand-in for db.TxManager.
package dbtest

import (
	"context"
	"sync"
)

// Snapshotter is implemented by in-memory stores that can be rolled back.
// Snapshot returns a function restoring the state captured at call time.
type Snapshotter interface {
	Snapshot() (restore func())
}

type txKey struct{}

// TxManager serializes units of work with a single mutex and restores every
// registered store when a unit fails.
type TxManager struct {
	mu     sync.Mutex
	stores []Snapshotter

	statsMu   sync.Mutex
	commits   int
	rollbacks int
}

func NewTxManager(stores ...Snapshotter) *TxManager {
	return &TxManager{stores: stores}
}

func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	restores := make([]func(), len(m.stores))
	for i, s := range m.stores {
		restores[i] = s.Snapshot()
	}

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		m.statsMu.Lock()
		m.rollbacks++
		m.statsMu.Unlock()
		return err
	}

	m.statsMu.Lock()
	m.commits++
	m.statsMu.Unlock()
	return nil
}

// Stats returns the number of committed and rolled back units.
func (m *TxManager) Stats() (commits, rollbacks int) {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	return m.commits, m.rollbacks
}

// InTx reports whether ctx was produced by WithinTx.
func InTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}
