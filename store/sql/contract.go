package sqlstore

import (
	"context"
	"time"

	"github.com/hollyburn/indieauth-store/core"
)

// DataStore is the backend contract: lifecycle plus every domain operation.
// Domain operations run inside a scope produced by Context and never acquire
// scopes of their own; absence is reported as a nil result, expected business
// no-ops as typed results, never as errors.
type DataStore interface {
	Initialize(ctx context.Context) error
	Context(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error
	HealthCheck(ctx context.Context) error
	PurgeTables(ctx context.Context, force bool) error
	Close() error

	// credential & resource store
	ResourceUpsert(ctx context.Context, tx *Tx, resourceID string, secret string, description string) (string, error)
	ResourceGet(ctx context.Context, tx *Tx, resourceID string) (*core.Resource, error)
	AuthenticationUpsert(ctx context.Context, tx *Tx, identifier string, credential string, otpKey *string) error
	AuthenticationUpdateCredential(ctx context.Context, tx *Tx, identifier string, credential string) error
	AuthenticationUpdateOTPKey(ctx context.Context, tx *Tx, identifier string, otpKey *string) error
	AuthenticationGet(ctx context.Context, tx *Tx, identifier string) (*core.Authentication, error)
	AuthenticationSuccess(ctx context.Context, tx *Tx, identifier string) error
	ProfileIdentifierInsert(ctx context.Context, tx *Tx, profile string, identifier string) error
	ProfileIsValid(ctx context.Context, tx *Tx, profile string) (bool, error)

	// scope registry
	ScopeUpsert(ctx context.Context, tx *Tx, scope core.Scope) error
	ScopeDelete(ctx context.Context, tx *Tx, name string) (bool, error)
	ProfileScopeInsert(ctx context.Context, tx *Tx, profile string, scopeName string) error
	ProfileScopesSetAll(ctx context.Context, tx *Tx, profile string, scopeNames []string) error
	ProfilesScopesByIdentifier(ctx context.Context, tx *Tx, identifier string) (core.ProfilesScopesView, error)
	ScopeCleanup(ctx context.Context, tx *Tx, minInterval time.Duration) (core.CleanupResult, error)

	// token/code engine
	RedeemCode(ctx context.Context, tx *Tx, in core.RedeemCodeInput) (bool, error)
	TokenGetByCodeID(ctx context.Context, tx *Tx, codeID string) (*core.Token, error)
	TokensGetByIdentifier(ctx context.Context, tx *Tx, identifier string) ([]core.Token, error)
	TokenRevokeByCodeID(ctx context.Context, tx *Tx, codeID string, revokedBy string) error
	TokenRefreshRevokeByCodeID(ctx context.Context, tx *Tx, codeID string) error
	RefreshCode(ctx context.Context, tx *Tx, codeID string, now time.Time, removeScopes []string) (*core.RefreshedToken, error)
	TokenCleanup(ctx context.Context, tx *Tx, grace time.Duration, minInterval time.Duration) (core.CleanupResult, error)

	// ticket ledger & almanac
	TicketRedeemed(ctx context.Context, tx *Tx, in core.TicketRedeemInput) (*core.TicketToken, error)
	TicketTokenGetUnpublished(ctx context.Context, tx *Tx) ([]core.TicketToken, error)
	TicketTokenPublished(ctx context.Context, tx *Tx, ticket string, token string) error
	AlmanacUpsert(ctx context.Context, tx *Tx, event string, date time.Time) error
	AlmanacGetAll(ctx context.Context, tx *Tx) ([]core.AlmanacEntry, error)
}
