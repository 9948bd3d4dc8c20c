package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hollyburn/indieauth-store/core"
	"github.com/hollyburn/indieauth-store/migrations"
)

// Constructor builds a backend from resolved configuration.
type Constructor func(cfg core.Config, options ...Option) (DataStore, error)

var (
	backendsMu sync.RWMutex
	backends   = map[string]Constructor{}
)

func init() {
	RegisterBackend(migrations.DialectPostgres, NewPostgres)
	RegisterBackend(migrations.DialectSQLite, NewSQLite)
	// driver-name spelling accepted as an alias
	RegisterBackend("sqlite3", NewSQLite)
}

// RegisterBackend maps a backend identifier to its constructor. Later
// registrations replace earlier ones, which lets tests install fakes.
func RegisterBackend(name string, ctor Constructor) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" || ctor == nil {
		return
	}
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = ctor
}

// New resolves cfg.Driver against the registry, once, at startup.
func New(cfg core.Config, options ...Option) (DataStore, error) {
	name := strings.TrimSpace(strings.ToLower(cfg.Driver))
	backendsMu.RLock()
	ctor, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, core.NewStoreError(
			fmt.Sprintf("sqlstore: backend %q is not registered", cfg.Driver),
			goerrors.CategoryNotFound,
			core.StoreErrorUnknownBackend,
		)
	}
	return ctor(cfg, options...)
}

// NewPostgres opens a lib/pq pool speaking the pgdialect.
func NewPostgres(cfg core.Config, options ...Option) (DataStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, core.StoreErrorMapper(err)
	}
	sqlDB, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, core.StoreErrorMapper(err)
	}
	client, err := persistence.New(persistenceConfig{cfg: cfg, driver: "postgres"}, sqlDB, pgdialect.New())
	if err != nil {
		_ = sqlDB.Close()
		return nil, core.StoreErrorMapper(err)
	}
	return newStore(cfg, migrations.DialectPostgres, client, options...)
}

// NewSQLite opens an embedded sqlite database. The pool is pinned to a
// single connection so shared-cache memory databases behave.
func NewSQLite(cfg core.Config, options ...Option) (DataStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, core.StoreErrorMapper(err)
	}
	sqlDB, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, core.StoreErrorMapper(err)
	}
	sqlDB.SetMaxOpenConns(1)

	client, err := persistence.New(persistenceConfig{cfg: cfg, driver: "sqlite3"}, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		return nil, core.StoreErrorMapper(err)
	}
	return newStore(cfg, migrations.DialectSQLite, client, options...)
}

// persistenceConfig adapts core.Config to the go-persistence-bun contract.
type persistenceConfig struct {
	cfg    core.Config
	driver string
}

func (c persistenceConfig) GetDebug() bool {
	return strings.EqualFold(strings.TrimSpace(c.cfg.QueryLogLevel), "debug")
}

func (c persistenceConfig) GetDriver() string {
	return c.driver
}

func (c persistenceConfig) GetServer() string {
	return c.cfg.DSN
}

func (c persistenceConfig) GetPingTimeout() time.Duration {
	if c.cfg.PingTimeoutSeconds > 0 {
		return time.Duration(c.cfg.PingTimeoutSeconds) * time.Second
	}
	return 5 * time.Second
}

func (c persistenceConfig) GetOtelIdentifier() string {
	return "indieauth-store"
}
