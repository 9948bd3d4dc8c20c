package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ScopeCleanupMessage] = (*ScopeCleanupCommand)(nil)
	_ gocmd.Commander[TokenCleanupMessage] = (*TokenCleanupCommand)(nil)
	_ gocmd.Commander[PurgeTablesMessage]  = (*PurgeTablesCommand)(nil)
)
