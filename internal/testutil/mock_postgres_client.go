package testutil

import (
	"context"
	"sync"

	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/postgres"
	"github.com/netbill/netbill/internal/types"
)

var _ postgres.IClient = (*MockPostgresClient)(nil) // Ensure MockPostgresClient implements IClient

type mockTx struct{}

// MockPostgresClient emulates transactions over the in-memory stores.
// Transactions are serialized and a failed transaction restores every registered store.
type MockPostgresClient struct {
	mu     sync.Mutex
	stores []Snapshotter
	logger *logger.Logger

	commits   int
	rollbacks int
}

// NewMockPostgresClient creates a new mock postgres client
func NewMockPostgresClient(logger *logger.Logger, stores ...Snapshotter) *MockPostgresClient {
	return &MockPostgresClient{
		stores: stores,
		logger: logger,
	}
}

// WithTx executes the given function within a transaction
func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) (err error) {
	// If we're already in a transaction, reuse it
	if _, ok := ctx.Value(types.CtxDBTransaction).(*mockTx); ok {
		return fn(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	restores := make([]func(), 0, len(c.stores))
	for _, s := range c.stores {
		restores = append(restores, s.Snapshot())
	}

	defer func() {
		if r := recover(); r != nil {
			c.rollback(restores)
			panic(r)
		}
	}()

	txCtx := context.WithValue(ctx, types.CtxDBTransaction, &mockTx{})
	if err := fn(txCtx); err != nil {
		c.logger.Debugw("rolling back mock transaction", "error", err)
		c.rollback(restores)
		return err
	}

	c.commits++
	return nil
}

func (c *MockPostgresClient) rollback(restores []func()) {
	for _, restore := range restores {
		restore()
	}
	c.rollbacks++
}

// Commits returns the number of committed top level transactions
func (c *MockPostgresClient) Commits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commits
}

// Rollbacks returns the number of rolled back top level transactions
func (c *MockPostgresClient) Rollbacks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollbacks
}
