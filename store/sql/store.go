package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	goerrors "github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/hollyburn/indieauth-store/core"
	"github.com/hollyburn/indieauth-store/migrations"
)

// SupportedSchemaRange is the inclusive window of schema versions this build
// operates. Initialize migrates an older database up to Max and refuses a
// database newer than Max.
var SupportedSchemaRange = migrations.Range{Min: "1.0.0", Max: "1.1.1"}

// Tx is the transactional scope every domain operation runs in. It is
// produced only by (*Store).Context and cannot be built by callers, so no
// operation can escape its transaction.
type Tx struct {
	bt bun.Tx
}

// Store is the bun-backed DataStore implementation shared by the postgres
// and sqlite backends; the constructors differ only in driver, dialect, and
// migration tree.
type Store struct {
	cfg     core.Config
	dialect string

	client *persistence.Client
	db     *bun.DB
	fsys   fs.FS

	logger   core.Logger
	provider core.LoggerProvider
	metrics  core.MetricsRecorder

	resources repository.Repository[*resourceRecord]
	tickets   repository.Repository[*ticketTokenRecord]

	unitsOfWork atomic.Int64
	closeOnce   sync.Once
	closeErr    error
}

// Option adjusts a Store before first use.
type Option func(*Store)

func WithLogger(logger core.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(s *Store) {
		s.provider = provider
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(s *Store) {
		s.metrics = recorder
	}
}

// WithMigrationsFS overrides the embedded migration tree for this backend's
// dialect. The tree must follow the version-directory layout.
func WithMigrationsFS(fsys fs.FS) Option {
	return func(s *Store) {
		s.fsys = fsys
	}
}

func newStore(cfg core.Config, dialect string, client *persistence.Client, options ...Option) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	}
	db := client.DB()
	if db == nil {
		return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
	}

	s := &Store{
		cfg:     cfg,
		dialect: dialect,
		client:  client,
		db:      db,
		metrics: core.NopMetricsRecorder{},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	s.provider, s.logger = core.ResolveLogger(s.provider, s.logger)

	if s.fsys == nil {
		specs, err := migrations.Filesystems()
		if err != nil {
			return nil, err
		}
		for _, spec := range specs {
			if spec.Dialect == dialect {
				s.fsys = spec.FS
			}
		}
		if s.fsys == nil {
			return nil, fmt.Errorf("sqlstore: no migration filesystem for dialect %q", dialect)
		}
	}

	if err := s.initRepositories(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initRepositories() error {
	resourceRepo := repository.NewRepository[*resourceRecord](s.db, resourceHandlers())
	if validator, ok := resourceRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid resource repository wiring: %w", err)
		}
	}
	ticketRepo := repository.NewRepository[*ticketTokenRecord](s.db, ticketTokenHandlers())
	if validator, ok := ticketRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid ticket repository wiring: %w", err)
		}
	}
	s.resources = resourceRepo
	s.tickets = ticketRepo
	return nil
}

// DB exposes the underlying bun handle for callers wiring extra tooling
// (query hooks, fixtures). Domain operations never use it directly.
func (s *Store) DB() *bun.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// Initialize pings the backend, then applies every unapplied migration in
// the supported range, one transaction per schema version. A database newer
// than the supported range aborts startup.
func (s *Store) Initialize(ctx context.Context) error {
	if s == nil || s.db == nil {
		return notReadyError()
	}
	startedAt := time.Now()

	if err := s.HealthCheck(ctx); err != nil {
		return core.StoreErrorMapper(fmt.Errorf("sqlstore: initial health check failed: %w", err))
	}
	if err := s.ensureSchemaVersionTable(ctx); err != nil {
		return core.StoreErrorMapper(fmt.Errorf("sqlstore: schema version bootstrap failed: %w", err))
	}

	current, err := s.currentSchemaVersion(ctx)
	if err != nil {
		return core.StoreErrorMapper(err)
	}
	if migrations.Compare(current, SupportedSchemaRange.Max) > 0 {
		return core.NewStoreError(
			fmt.Sprintf("sqlstore: installed schema version %s is newer than supported %s", current, SupportedSchemaRange.Max),
			goerrors.CategoryConflict,
			core.StoreErrorUnsupportedSchema,
		)
	}

	pending := migrations.Unapplied(s.fsys, current, SupportedSchemaRange)
	for _, version := range pending {
		if err := s.applyMigration(ctx, version); err != nil {
			return core.StoreErrorMapper(fmt.Errorf("sqlstore: migration %s failed: %w", version, err))
		}
	}

	s.observe(ctx, startedAt, "initialize", nil, map[string]any{
		"dialect":          s.dialect,
		"schema_from":      current,
		"schema_to":        SupportedSchemaRange.Max,
		"applied_versions": len(pending),
	})
	return nil
}

func (s *Store) ensureSchemaVersionTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_versions (
		major INTEGER NOT NULL,
		minor INTEGER NOT NULL,
		patch INTEGER NOT NULL,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (major, minor, patch)
	)`)
	return err
}

func (s *Store) currentSchemaVersion(ctx context.Context) (string, error) {
	rec := &schemaVersionRecord{}
	err := s.db.NewSelect().
		Model(rec).
		OrderExpr("major DESC, minor DESC, patch DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return "0.0.0", nil
		}
		return "", err
	}
	return migrations.Version{Major: rec.Major, Minor: rec.Minor, Patch: rec.Patch}.String(), nil
}

// applyMigration runs one version's payload files and the version bookkeeping
// row in a single transaction, so a failed step leaves no partial state.
func (s *Store) applyMigration(ctx context.Context, version string) error {
	parsed, err := migrations.Parse(version)
	if err != nil {
		return err
	}
	files, err := migrations.PayloadFiles(s.fsys, version)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("sqlstore: version %s has no payload files", version)
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, name := range files {
			payload, readErr := fs.ReadFile(s.fsys, version+"/"+name)
			if readErr != nil {
				return readErr
			}
			if _, execErr := tx.ExecContext(ctx, string(payload)); execErr != nil {
				return fmt.Errorf("%s: %w", name, execErr)
			}
		}
		_, insErr := tx.NewInsert().
			Model(&schemaVersionRecord{
				Major:     parsed.Major,
				Minor:     parsed.Minor,
				Patch:     parsed.Patch,
				AppliedAt: time.Now().UTC(),
			}).
			Exec(ctx)
		return insErr
	})
}

// Context acquires one backend transaction, hands fn a scope bound to it,
// commits on nil return, and rolls back on error. The scope handle is invalid
// once Context returns.
func (s *Store) Context(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	if s == nil || s.db == nil {
		return notReadyError()
	}
	if fn == nil {
		return core.NewStoreError("sqlstore: context function is required", goerrors.CategoryBadInput, core.StoreErrorBadInput)
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, bt bun.Tx) error {
		return fn(ctx, &Tx{bt: bt})
	})
	if err != nil {
		return err
	}
	s.noteUnitOfWork(ctx)
	return nil
}

// noteUnitOfWork drives the embedded-engine optimization knob: every
// OptimizeThreshold committed scopes, ask sqlite to re-plan its statistics.
func (s *Store) noteUnitOfWork(ctx context.Context) {
	if s.dialect != migrations.DialectSQLite || s.cfg.OptimizeThreshold <= 0 {
		return
	}
	count := s.unitsOfWork.Add(1)
	if count%int64(s.cfg.OptimizeThreshold) != 0 {
		return
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		s.logError(ctx, "storage optimize failed", map[string]any{"error": err.Error()})
	}
}

// HealthCheck is a cheap liveness probe that fails closed on connectivity
// loss.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s == nil || s.db == nil {
		return notReadyError()
	}
	timeout := time.Duration(s.cfg.PingTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var one int
	return s.db.NewRaw("SELECT 1").Scan(ctx, &one)
}

// PurgeTables wipes every domain table. It requires both the enable_purge
// config flag and the explicit force argument; schema bookkeeping survives.
func (s *Store) PurgeTables(ctx context.Context, force bool) error {
	if s == nil || s.db == nil {
		return notReadyError()
	}
	if !s.cfg.EnablePurge {
		return core.NewStoreError("sqlstore: purge is not enabled for this store", goerrors.CategoryOperation, core.StoreErrorNotReady)
	}
	if !force {
		return core.NewStoreError("sqlstore: purge requires explicit confirmation", goerrors.CategoryBadInput, core.StoreErrorBadInput)
	}

	startedAt := time.Now()
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, table := range []string{
			"token_scopes",
			"tokens",
			"ticket_tokens",
			"profile_scopes",
			"profiles",
			"scopes",
			"almanac",
			"resources",
			"authentications",
		} {
			if _, execErr := tx.ExecContext(ctx, "DELETE FROM "+table); execErr != nil {
				return execErr
			}
		}
		return nil
	})
	s.observe(ctx, startedAt, "purge_tables", err, map[string]any{"dialect": s.dialect})
	return err
}

// Close releases the connection pool. Safe to call more than once.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		if s.client != nil {
			s.closeErr = s.client.Close()
		}
	})
	return s.closeErr
}

func notReadyError() error {
	return core.NewStoreError("sqlstore: store is not initialized", goerrors.CategoryOperation, core.StoreErrorNotReady)
}

func (s *Store) observe(ctx context.Context, startedAt time.Time, operation string, err error, fields map[string]any) {
	if s == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	contextFields := cloneFields(fields)
	contextFields["event_type"] = operation
	contextFields["status"] = status
	contextFields["duration_ms"] = time.Since(startedAt).Milliseconds()
	if err != nil {
		contextFields["error"] = err.Error()
	}

	tags := map[string]string{
		"operation": operation,
		"status":    status,
		"dialect":   s.dialect,
	}
	if s.metrics != nil {
		s.metrics.IncCounter(ctx, "store."+operation+".total", 1, tags)
		s.metrics.ObserveHistogram(ctx, "store."+operation+".duration_ms", float64(time.Since(startedAt).Milliseconds()), tags)
	}

	if err != nil {
		s.logError(ctx, operation+" failed", contextFields)
		return
	}
	s.logInfo(ctx, operation+" succeeded", contextFields)
}

func (s *Store) logInfo(ctx context.Context, message string, fields map[string]any) {
	s.logWithLevel(ctx, "info", message, fields)
}

func (s *Store) logError(ctx context.Context, message string, fields map[string]any) {
	s.logWithLevel(ctx, "error", message, fields)
}

func (s *Store) logWithLevel(ctx context.Context, level string, message string, fields map[string]any) {
	if s == nil || s.logger == nil {
		return
	}
	logger := s.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(core.FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		logger.Error(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}
