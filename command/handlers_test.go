package command

import (
	"context"
	"errors"
	"testing"
	"time"

	gocmd "github.com/goliatone/go-command"

	"github.com/hollyburn/indieauth-store/core"
	sqlstore "github.com/hollyburn/indieauth-store/store/sql"
)

type stubMaintenanceStore struct {
	sqlstore.DataStore
	scopeResult core.CleanupResult
	tokenResult core.CleanupResult
	scopeErr    error
	tokenErr    error
	purgeForce  *bool
	purgeErr    error

	scopeInterval time.Duration
	tokenGrace    time.Duration
	tokenInterval time.Duration
}

func (s *stubMaintenanceStore) Context(ctx context.Context, fn func(context.Context, *sqlstore.Tx) error) error {
	return fn(ctx, nil)
}

func (s *stubMaintenanceStore) ScopeCleanup(_ context.Context, _ *sqlstore.Tx, minInterval time.Duration) (core.CleanupResult, error) {
	s.scopeInterval = minInterval
	if s.scopeErr != nil {
		return core.CleanupResult{}, s.scopeErr
	}
	return s.scopeResult, nil
}

func (s *stubMaintenanceStore) TokenCleanup(_ context.Context, _ *sqlstore.Tx, grace time.Duration, minInterval time.Duration) (core.CleanupResult, error) {
	s.tokenGrace = grace
	s.tokenInterval = minInterval
	if s.tokenErr != nil {
		return core.CleanupResult{}, s.tokenErr
	}
	return s.tokenResult, nil
}

func (s *stubMaintenanceStore) PurgeTables(_ context.Context, force bool) error {
	s.purgeForce = &force
	return s.purgeErr
}

func TestMessageContracts(t *testing.T) {
	if (ScopeCleanupMessage{}).Type() != TypeScopeCleanup {
		t.Fatalf("unexpected scope cleanup type")
	}
	if (TokenCleanupMessage{}).Type() != TypeTokenCleanup {
		t.Fatalf("unexpected token cleanup type")
	}
	if (PurgeTablesMessage{}).Type() != TypePurgeTables {
		t.Fatalf("unexpected purge type")
	}

	if err := (ScopeCleanupMessage{MinInterval: time.Hour}).Validate(); err != nil {
		t.Fatalf("expected valid scope message, got %v", err)
	}
	if err := (ScopeCleanupMessage{MinInterval: -time.Second}).Validate(); err == nil {
		t.Fatalf("expected negative interval to fail")
	}
	if err := (TokenCleanupMessage{Grace: -time.Minute}).Validate(); err != nil {
		t.Fatalf("expected negative grace to be allowed, got %v", err)
	}
	if err := (TokenCleanupMessage{MinInterval: -time.Second}).Validate(); err == nil {
		t.Fatalf("expected negative interval to fail")
	}
	if err := (PurgeTablesMessage{}).Validate(); err == nil {
		t.Fatalf("expected purge without force to fail validation")
	}
	if err := (PurgeTablesMessage{Force: true}).Validate(); err != nil {
		t.Fatalf("expected forced purge message to validate, got %v", err)
	}
}

func TestScopeCleanupCommand_PublishesResult(t *testing.T) {
	store := &stubMaintenanceStore{scopeResult: core.CleanupResult{Removed: 3}}
	cmd := NewScopeCleanupCommand(store)

	collector := gocmd.NewResult[core.CleanupResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := cmd.Execute(ctx, ScopeCleanupMessage{MinInterval: time.Hour}); err != nil {
		t.Fatalf("execute scope cleanup: %v", err)
	}
	if store.scopeInterval != time.Hour {
		t.Fatalf("expected interval to pass through, got %v", store.scopeInterval)
	}

	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result.Skipped || result.Removed != 3 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestScopeCleanupCommand_PropagatesSweepError(t *testing.T) {
	sweepErr := errors.New("sweep failed")
	cmd := NewScopeCleanupCommand(&stubMaintenanceStore{scopeErr: sweepErr})

	if err := cmd.Execute(context.Background(), ScopeCleanupMessage{}); !errors.Is(err, sweepErr) {
		t.Fatalf("expected sweep error, got %v", err)
	}
}

func TestTokenCleanupCommand_PublishesResult(t *testing.T) {
	store := &stubMaintenanceStore{tokenResult: core.CleanupResult{Skipped: true}}
	cmd := NewTokenCleanupCommand(store)

	collector := gocmd.NewResult[core.CleanupResult]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := cmd.Execute(ctx, TokenCleanupMessage{Grace: 10 * time.Minute, MinInterval: time.Hour}); err != nil {
		t.Fatalf("execute token cleanup: %v", err)
	}
	if store.tokenGrace != 10*time.Minute || store.tokenInterval != time.Hour {
		t.Fatalf("expected parameters to pass through, got %v %v", store.tokenGrace, store.tokenInterval)
	}

	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if !result.Skipped {
		t.Fatalf("expected skipped result, got %+v", result)
	}
}

func TestCommands_WorkWithoutCollector(t *testing.T) {
	cmd := NewTokenCleanupCommand(&stubMaintenanceStore{tokenResult: core.CleanupResult{Removed: 1}})
	if err := cmd.Execute(context.Background(), TokenCleanupMessage{}); err != nil {
		t.Fatalf("execute without collector: %v", err)
	}
}

func TestPurgeTablesCommand_DelegatesForce(t *testing.T) {
	store := &stubMaintenanceStore{}
	cmd := NewPurgeTablesCommand(store)

	if err := cmd.Execute(context.Background(), PurgeTablesMessage{Force: true}); err != nil {
		t.Fatalf("execute purge: %v", err)
	}
	if store.purgeForce == nil || !*store.purgeForce {
		t.Fatalf("expected forced purge delegation")
	}
}

func TestCommands_RequireStore(t *testing.T) {
	if err := (&ScopeCleanupCommand{}).Execute(context.Background(), ScopeCleanupMessage{}); err == nil {
		t.Fatalf("expected missing store to fail")
	}
	if err := (&TokenCleanupCommand{}).Execute(context.Background(), TokenCleanupMessage{}); err == nil {
		t.Fatalf("expected missing store to fail")
	}
	if err := (&PurgeTablesCommand{}).Execute(context.Background(), PurgeTablesMessage{Force: true}); err == nil {
		t.Fatalf("expected missing store to fail")
	}
}
