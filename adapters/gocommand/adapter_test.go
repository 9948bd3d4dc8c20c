package gocommand

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-command"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"

	storecommand "github.com/hollyburn/indieauth-store/command"
	"github.com/hollyburn/indieauth-store/core"
	sqlstore "github.com/hollyburn/indieauth-store/store/sql"
)

type okMessage struct{}

func (okMessage) Type() string { return "store.command.ok" }

type invalidMessage struct{}

func (invalidMessage) Type() string { return "" }

type failingMessage struct{}

func (failingMessage) Type() string { return "store.command.fail" }

func (failingMessage) Validate() error { return errors.New("invalid payload") }

type dispatchMessage struct {
	ID string
}

func (dispatchMessage) Type() string { return "store.command.test" }

type queueMessage struct{}

func (queueMessage) Type() string { return "store.command.queue" }

func TestValidateMessageContract(t *testing.T) {
	if err := ValidateMessageContract(okMessage{}); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
	if err := ValidateMessageContract(invalidMessage{}); err == nil {
		t.Fatalf("expected empty type to fail contract validation")
	}
	if err := ValidateMessageContract(failingMessage{}); err == nil {
		t.Fatalf("expected Validate() failure to bubble")
	}
}

func TestRegistryAndDispatchWiring(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	executed := 0
	customResolverCalled := 0

	cmd := command.CommandFunc[dispatchMessage](func(context.Context, dispatchMessage) error {
		executed++
		return nil
	})

	subscription := SubscribeCommand[dispatchMessage](cmd)
	defer subscription.Unsubscribe()
	if err := adapter.RegisterCommand(cmd); err != nil {
		t.Fatalf("register command: %v", err)
	}
	if err := adapter.AddResolver("custom", func(any, command.CommandMeta, *command.Registry) error {
		customResolverCalled++
		return nil
	}); err != nil {
		t.Fatalf("add resolver: %v", err)
	}
	if !adapter.HasResolver("custom") {
		t.Fatalf("expected custom resolver to be registered")
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}
	if customResolverCalled == 0 {
		t.Fatalf("expected resolver hook to run during initialization")
	}

	if err := Dispatch(context.Background(), dispatchMessage{ID: "m1"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if executed != 1 {
		t.Fatalf("expected command execution count=1, got %d", executed)
	}
}

func TestQueueResolverHookWiring(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	queueRegistry := jobqueuecommand.NewRegistry()

	cmd := command.CommandFunc[queueMessage](func(context.Context, queueMessage) error { return nil })

	if err := adapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	if err := adapter.RegisterCommand(cmd); err != nil {
		t.Fatalf("register command: %v", err)
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	if _, ok := queueRegistry.Get("store.command.queue"); !ok {
		t.Fatalf("expected command to be mirrored into queue registry")
	}
}

func TestRegisterMaintenanceDispatch(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	store := &sweepingStore{}

	subs, err := RegisterMaintenance(adapter, store)
	if err != nil {
		t.Fatalf("register maintenance: %v", err)
	}
	defer subs.Unsubscribe()

	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	if err := Dispatch(context.Background(), storecommand.ScopeCleanupMessage{MinInterval: time.Hour}); err != nil {
		t.Fatalf("dispatch scope cleanup: %v", err)
	}
	if store.scopeSweeps != 1 {
		t.Fatalf("expected one scope sweep, got %d", store.scopeSweeps)
	}

	if err := Dispatch(context.Background(), storecommand.TokenCleanupMessage{Grace: time.Minute}); err != nil {
		t.Fatalf("dispatch token cleanup: %v", err)
	}
	if store.tokenSweeps != 1 {
		t.Fatalf("expected one token sweep, got %d", store.tokenSweeps)
	}
}

// sweepingStore stubs the transactional surface the maintenance commands touch.
type sweepingStore struct {
	sqlstore.DataStore
	scopeSweeps int
	tokenSweeps int
}

func (s *sweepingStore) Context(ctx context.Context, fn func(context.Context, *sqlstore.Tx) error) error {
	return fn(ctx, nil)
}

func (s *sweepingStore) ScopeCleanup(context.Context, *sqlstore.Tx, time.Duration) (core.CleanupResult, error) {
	s.scopeSweeps++
	return core.CleanupResult{Removed: 1}, nil
}

func (s *sweepingStore) TokenCleanup(context.Context, *sqlstore.Tx, time.Duration, time.Duration) (core.CleanupResult, error) {
	s.tokenSweeps++
	return core.CleanupResult{Removed: 2}, nil
}
