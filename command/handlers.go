package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/hollyburn/indieauth-store/core"
	sqlstore "github.com/hollyburn/indieauth-store/store/sql"
)

// ScopeCleanupCommand runs the scope sweep in its own transactional scope
// and publishes the three-valued result to the collector, when one rides on
// the context.
type ScopeCleanupCommand struct {
	store sqlstore.DataStore
}

func NewScopeCleanupCommand(store sqlstore.DataStore) *ScopeCleanupCommand {
	return &ScopeCleanupCommand{store: store}
}

func (c *ScopeCleanupCommand) Execute(ctx context.Context, msg ScopeCleanupMessage) error {
	if c == nil || c.store == nil {
		return commandDependencyError("command: scope cleanup store is required")
	}
	var result core.CleanupResult
	err := c.store.Context(ctx, func(ctx context.Context, tx *sqlstore.Tx) error {
		var sweepErr error
		result, sweepErr = c.store.ScopeCleanup(ctx, tx, msg.MinInterval)
		return sweepErr
	})
	if err != nil {
		return err
	}
	storeResult(ctx, result)
	return nil
}

type TokenCleanupCommand struct {
	store sqlstore.DataStore
}

func NewTokenCleanupCommand(store sqlstore.DataStore) *TokenCleanupCommand {
	return &TokenCleanupCommand{store: store}
}

func (c *TokenCleanupCommand) Execute(ctx context.Context, msg TokenCleanupMessage) error {
	if c == nil || c.store == nil {
		return commandDependencyError("command: token cleanup store is required")
	}
	var result core.CleanupResult
	err := c.store.Context(ctx, func(ctx context.Context, tx *sqlstore.Tx) error {
		var sweepErr error
		result, sweepErr = c.store.TokenCleanup(ctx, tx, msg.Grace, msg.MinInterval)
		return sweepErr
	})
	if err != nil {
		return err
	}
	storeResult(ctx, result)
	return nil
}

type PurgeTablesCommand struct {
	store sqlstore.DataStore
}

func NewPurgeTablesCommand(store sqlstore.DataStore) *PurgeTablesCommand {
	return &PurgeTablesCommand{store: store}
}

func (c *PurgeTablesCommand) Execute(ctx context.Context, msg PurgeTablesMessage) error {
	if c == nil || c.store == nil {
		return commandDependencyError("command: purge store is required")
	}
	return c.store.PurgeTables(ctx, msg.Force)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
