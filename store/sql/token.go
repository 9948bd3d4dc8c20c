package sqlstore

import (
	"context"
	"database/sql"
	"slices"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	"github.com/hollyburn/indieauth-store/core"
)

// RedeemCode inserts a new token/code row if and only if no row with that
// code id exists. A duplicate redemption never creates a second row: the
// existing row is marked revoked as a double-spend response and the call
// reports false. The insert-if-absent rides on the primary key, so a
// concurrent double-submission resolves to exactly one inserter.
func (s *Store) RedeemCode(ctx context.Context, tx *Tx, in core.RedeemCodeInput) (bool, error) {
	if err := requireScope(tx); err != nil {
		return false, err
	}
	if err := in.Validate(); err != nil {
		return false, core.StoreErrorMapper(err)
	}

	created := in.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	created = created.UTC()

	record := &tokenRecord{
		CodeID:                 strings.TrimSpace(in.CodeID),
		IsToken:                in.IsToken,
		ClientID:               in.ClientID,
		Profile:                in.Profile,
		Identifier:             in.Identifier,
		CreatedAt:              created,
		LifespanSeconds:        in.LifespanSeconds,
		RefreshLifespanSeconds: in.RefreshLifespanSeconds,
		ProfileData:            in.ProfileData,
		Resource:               in.Resource,
	}
	if in.LifespanSeconds != nil {
		expires := created.Add(time.Duration(*in.LifespanSeconds) * time.Second)
		record.ExpiresAt = &expires
	}
	if in.RefreshLifespanSeconds != nil {
		refreshExpires := created.Add(time.Duration(*in.RefreshLifespanSeconds) * time.Second)
		record.RefreshExpiresAt = &refreshExpires
	}

	res, err := tx.bt.NewInsert().
		Model(record).
		On("CONFLICT (code_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	inserted, _ := res.RowsAffected()
	if inserted == 0 {
		// Double spend: revoke whatever holds this code id and bail.
		if _, revokeErr := tx.bt.NewUpdate().
			Model((*tokenRecord)(nil)).
			Set("is_revoked = ?", true).
			Where("code_id = ?", record.CodeID).
			Exec(ctx); revokeErr != nil {
			return false, revokeErr
		}
		s.logError(ctx, "duplicate code redemption revoked", map[string]any{
			"code_id":   record.CodeID,
			"client_id": record.ClientID,
		})
		return false, nil
	}

	scopes := normalizeScopeNames(in.Scopes)
	if len(scopes) > 0 {
		if err := s.ensureScopes(ctx, tx, scopes); err != nil {
			return false, err
		}
		bindings := make([]tokenScopeRecord, 0, len(scopes))
		for _, name := range scopes {
			bindings = append(bindings, tokenScopeRecord{
				CodeID:    record.CodeID,
				ScopeName: name,
			})
		}
		if _, err := tx.bt.NewInsert().
			Model(&bindings).
			Exec(ctx); err != nil {
			return false, err
		}
	}
	return true, nil
}

// TokenGetByCodeID returns nil when the code id is unknown.
func (s *Store) TokenGetByCodeID(ctx context.Context, tx *Tx, codeID string) (*core.Token, error) {
	if err := requireScope(tx); err != nil {
		return nil, err
	}
	record := &tokenRecord{}
	err := tx.bt.NewSelect().
		Model(record).
		Where("code_id = ?", strings.TrimSpace(codeID)).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	scopes, err := s.tokenScopes(ctx, tx, record.CodeID)
	if err != nil {
		return nil, err
	}
	out := record.toDomain(scopes)
	return &out, nil
}

// TokensGetByIdentifier lists every token/code row the identifier owns,
// oldest first.
func (s *Store) TokensGetByIdentifier(ctx context.Context, tx *Tx, identifier string) ([]core.Token, error) {
	if err := requireScope(tx); err != nil {
		return nil, err
	}
	var records []tokenRecord
	if err := tx.bt.NewSelect().
		Model(&records).
		Where("identifier = ?", strings.TrimSpace(identifier)).
		OrderExpr("created_at ASC, code_id ASC").
		Scan(ctx); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []core.Token{}, nil
	}

	codeIDs := make([]string, 0, len(records))
	for _, record := range records {
		codeIDs = append(codeIDs, record.CodeID)
	}
	var bindings []tokenScopeRecord
	if err := tx.bt.NewSelect().
		Model(&bindings).
		Where("code_id IN (?)", bun.In(codeIDs)).
		OrderExpr("scope_name ASC").
		Scan(ctx); err != nil {
		return nil, err
	}
	scopesByCode := make(map[string][]string, len(records))
	for _, binding := range bindings {
		scopesByCode[binding.CodeID] = append(scopesByCode[binding.CodeID], binding.ScopeName)
	}

	tokens := make([]core.Token, 0, len(records))
	for i := range records {
		tokens = append(tokens, records[i].toDomain(scopesByCode[records[i].CodeID]))
	}
	return tokens, nil
}

// TokenRevokeByCodeID marks a token revoked. Revoking an already-revoked or
// unknown token is a no-op.
func (s *Store) TokenRevokeByCodeID(ctx context.Context, tx *Tx, codeID string, revokedBy string) error {
	if err := requireScope(tx); err != nil {
		return err
	}
	codeID = strings.TrimSpace(codeID)
	if codeID == "" {
		return codeIDRequiredError()
	}
	res, err := tx.bt.NewUpdate().
		Model((*tokenRecord)(nil)).
		Set("is_revoked = ?", true).
		Where("code_id = ?", codeID).
		Where("NOT is_revoked").
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected > 0 {
		s.logInfo(ctx, "token revoked", map[string]any{
			"code_id":    codeID,
			"revoked_by": revokedBy,
		})
	}
	return nil
}

// TokenRefreshRevokeByCodeID withdraws only the refresh capability: the
// token stays valid for its current lifetime but can no longer be renewed.
func (s *Store) TokenRefreshRevokeByCodeID(ctx context.Context, tx *Tx, codeID string) error {
	if err := requireScope(tx); err != nil {
		return err
	}
	codeID = strings.TrimSpace(codeID)
	if codeID == "" {
		return codeIDRequiredError()
	}
	_, err := tx.bt.NewUpdate().
		Model((*tokenRecord)(nil)).
		Set("refresh_expires_at = NULL").
		Set("refresh_lifespan_seconds = NULL").
		Where("code_id = ?", codeID).
		Exec(ctx)
	return err
}

// RefreshCode extends a refreshable token from now and optionally narrows
// its scope set; scopes can only shrink on refresh. It returns nil when the
// token is unknown, revoked, not refreshable, or past its refresh window.
func (s *Store) RefreshCode(ctx context.Context, tx *Tx, codeID string, now time.Time, removeScopes []string) (*core.RefreshedToken, error) {
	if err := requireScope(tx); err != nil {
		return nil, err
	}
	codeID = strings.TrimSpace(codeID)
	if codeID == "" {
		return nil, codeIDRequiredError()
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	record := &tokenRecord{}
	err := tx.bt.NewSelect().
		Model(record).
		Where("code_id = ?", codeID).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if record.IsRevoked {
		return nil, nil
	}
	if record.RefreshExpiresAt == nil || record.RefreshLifespanSeconds == nil {
		return nil, nil
	}
	if now.After(*record.RefreshExpiresAt) {
		return nil, nil
	}

	refreshed := &core.RefreshedToken{}
	update := tx.bt.NewUpdate().
		Model((*tokenRecord)(nil)).
		Where("code_id = ?", codeID)

	if record.LifespanSeconds != nil {
		expires := now.Add(time.Duration(*record.LifespanSeconds) * time.Second)
		refreshed.ExpiresAt = &expires
		update = update.Set("expires_at = ?", expires)
	}
	refreshExpires := now.Add(time.Duration(*record.RefreshLifespanSeconds) * time.Second)
	refreshed.RefreshExpiresAt = &refreshExpires
	update = update.Set("refresh_expires_at = ?", refreshExpires)

	if _, err := update.Exec(ctx); err != nil {
		return nil, err
	}

	remove := normalizeScopeNames(removeScopes)
	if len(remove) > 0 {
		if _, err := tx.bt.NewDelete().
			Model((*tokenScopeRecord)(nil)).
			Where("code_id = ?", codeID).
			Where("scope_name IN (?)", bun.In(remove)).
			Exec(ctx); err != nil {
			return nil, err
		}
		current, err := s.tokenScopes(ctx, tx, codeID)
		if err != nil {
			return nil, err
		}
		refreshed.Scopes = current
	}
	return refreshed, nil
}

// TokenCleanup deletes tokens whose expiry passed more than grace ago. A
// negative grace sweeps rows the moment they expire, which test harnesses
// use to exercise the sweep without waiting.
func (s *Store) TokenCleanup(ctx context.Context, tx *Tx, grace time.Duration, minInterval time.Duration) (core.CleanupResult, error) {
	if err := requireScope(tx); err != nil {
		return core.CleanupResult{}, err
	}
	startedAt := time.Now()
	now := startedAt.UTC()

	throttled, err := s.cleanupThrottled(ctx, tx, core.AlmanacEventTokenCleanup, now, minInterval)
	if err != nil {
		return core.CleanupResult{}, err
	}
	if throttled {
		return core.CleanupResult{Skipped: true}, nil
	}

	cutoff := now.Add(-grace)
	res, err := tx.bt.NewDelete().
		Model((*tokenRecord)(nil)).
		Where("expires_at IS NOT NULL").
		Where("expires_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return core.CleanupResult{}, err
	}
	removed, _ := res.RowsAffected()

	if err := s.AlmanacUpsert(ctx, tx, core.AlmanacEventTokenCleanup, now); err != nil {
		return core.CleanupResult{}, err
	}
	s.observe(ctx, startedAt, "token_cleanup", nil, map[string]any{"removed": removed})
	return core.CleanupResult{Removed: removed}, nil
}

func (s *Store) tokenScopes(ctx context.Context, tx *Tx, codeID string) ([]string, error) {
	var bindings []tokenScopeRecord
	if err := tx.bt.NewSelect().
		Model(&bindings).
		Where("code_id = ?", codeID).
		OrderExpr("scope_name ASC").
		Scan(ctx); err != nil {
		return nil, err
	}
	scopes := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		scopes = append(scopes, binding.ScopeName)
	}
	slices.Sort(scopes)
	return scopes, nil
}

func codeIDRequiredError() error {
	return core.NewStoreError("sqlstore: code id is required", goerrors.CategoryBadInput, core.StoreErrorBadInput)
}
