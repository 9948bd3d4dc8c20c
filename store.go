// Package indieauthstore is the persistence and lifecycle core of an
// IndieAuth authorization and token endpoint: schema-versioned migrations,
// a backend-agnostic transactional data store over Postgres and SQLite, and
// the token, scope, and ticket lifecycle operations on top of it.
package indieauthstore

import (
	"github.com/hollyburn/indieauth-store/core"
	"github.com/hollyburn/indieauth-store/migrations"
	sqlstore "github.com/hollyburn/indieauth-store/store/sql"
)

type Config = core.Config

type Resource = core.Resource
type Authentication = core.Authentication
type Scope = core.Scope
type Token = core.Token
type RedeemCodeInput = core.RedeemCodeInput
type RefreshedToken = core.RefreshedToken
type TicketToken = core.TicketToken
type TicketRedeemInput = core.TicketRedeemInput
type AlmanacEntry = core.AlmanacEntry
type ProfilesScopesView = core.ProfilesScopesView
type CleanupResult = core.CleanupResult

type DataStore = sqlstore.DataStore
type Tx = sqlstore.Tx
type Option = sqlstore.Option
type CachedResourceStore = sqlstore.CachedResourceStore

type SchemaRange = migrations.Range

var (
	WithLogger          = sqlstore.WithLogger
	WithLoggerProvider  = sqlstore.WithLoggerProvider
	WithMetricsRecorder = sqlstore.WithMetricsRecorder
	WithMigrationsFS    = sqlstore.WithMigrationsFS

	RegisterBackend = sqlstore.RegisterBackend

	NewCachedResourceStore = sqlstore.NewCachedResourceStore
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// SupportedSchemaRange reports the schema versions this build can operate.
func SupportedSchemaRange() SchemaRange {
	return sqlstore.SupportedSchemaRange
}

// New resolves cfg.Driver against the backend registry and returns an
// uninitialized store. Callers run Initialize before first use.
func New(cfg Config, options ...Option) (DataStore, error) {
	return sqlstore.New(cfg, options...)
}
