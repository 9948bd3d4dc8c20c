package command

import (
	"fmt"
	"time"
)

const (
	TypeScopeCleanup = "store.command.scope.cleanup"
	TypeTokenCleanup = "store.command.token.cleanup"
	TypePurgeTables  = "store.command.purge_tables"
)

// ScopeCleanupMessage asks for one throttled sweep of unreferenced,
// non-permanent scopes.
type ScopeCleanupMessage struct {
	MinInterval time.Duration
}

func (ScopeCleanupMessage) Type() string { return TypeScopeCleanup }

func (m ScopeCleanupMessage) Validate() error {
	if m.MinInterval < 0 {
		return fmt.Errorf("command: min interval must not be negative")
	}
	return nil
}

// TokenCleanupMessage asks for one throttled sweep of tokens expired more
// than Grace ago. Grace may be negative to sweep just-expired rows.
type TokenCleanupMessage struct {
	Grace       time.Duration
	MinInterval time.Duration
}

func (TokenCleanupMessage) Type() string { return TypeTokenCleanup }

func (m TokenCleanupMessage) Validate() error {
	if m.MinInterval < 0 {
		return fmt.Errorf("command: min interval must not be negative")
	}
	return nil
}

// PurgeTablesMessage wipes every domain table. Test harness traffic only;
// the store refuses it unless purging is enabled in configuration.
type PurgeTablesMessage struct {
	Force bool
}

func (PurgeTablesMessage) Type() string { return TypePurgeTables }

func (m PurgeTablesMessage) Validate() error {
	if !m.Force {
		return fmt.Errorf("command: purge requires force")
	}
	return nil
}
