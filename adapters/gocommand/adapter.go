package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"

	storecommand "github.com/hollyburn/indieauth-store/command"
	sqlstore "github.com/hollyburn/indieauth-store/store/sql"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func SubscribeCommand[T any](cmd command.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

// MaintenanceSubscriptions holds the dispatcher subscriptions for the store
// sweep commands so callers can unsubscribe on shutdown.
type MaintenanceSubscriptions struct {
	ScopeCleanup commanddispatcher.Subscription
	TokenCleanup commanddispatcher.Subscription
	PurgeTables  commanddispatcher.Subscription
}

func (s MaintenanceSubscriptions) Unsubscribe() {
	for _, sub := range []commanddispatcher.Subscription{s.ScopeCleanup, s.TokenCleanup, s.PurgeTables} {
		if sub != nil {
			sub.Unsubscribe()
		}
	}
}

// RegisterMaintenance registers and subscribes the store maintenance commands
// on the shared dispatcher.
func RegisterMaintenance(
	adapter *RegistryAdapter,
	store sqlstore.DataStore,
	runnerOpts ...runner.Option,
) (MaintenanceSubscriptions, error) {
	var subs MaintenanceSubscriptions
	if adapter == nil || adapter.registry == nil {
		return subs, fmt.Errorf("gocommand: registry is not configured")
	}
	if store == nil {
		return subs, fmt.Errorf("gocommand: data store is required")
	}

	scopeCmd := storecommand.NewScopeCleanupCommand(store)
	tokenCmd := storecommand.NewTokenCleanupCommand(store)
	purgeCmd := storecommand.NewPurgeTablesCommand(store)

	subs.ScopeCleanup = SubscribeCommand[storecommand.ScopeCleanupMessage](scopeCmd, runnerOpts...)
	subs.TokenCleanup = SubscribeCommand[storecommand.TokenCleanupMessage](tokenCmd, runnerOpts...)
	subs.PurgeTables = SubscribeCommand[storecommand.PurgeTablesMessage](purgeCmd, runnerOpts...)

	for _, cmd := range []any{scopeCmd, tokenCmd, purgeCmd} {
		if err := adapter.RegisterCommand(cmd); err != nil {
			subs.Unsubscribe()
			return MaintenanceSubscriptions{}, err
		}
	}
	return subs, nil
}
