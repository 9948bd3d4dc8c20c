package sqlstore

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	"github.com/hollyburn/indieauth-store/core"
)

// ScopeUpsert creates or updates a scope by name.
func (s *Store) ScopeUpsert(ctx context.Context, tx *Tx, scope core.Scope) error {
	if err := requireScope(tx); err != nil {
		return err
	}
	name := strings.TrimSpace(scope.Name)
	if name == "" {
		return core.NewStoreError("sqlstore: scope name is required", goerrors.CategoryBadInput, core.StoreErrorBadInput)
	}
	_, err := tx.bt.NewInsert().
		Model(&scopeRecord{
			Name:        name,
			Application: scope.Application,
			Description: scope.Description,
			IsPermanent: scope.IsPermanent,
		}).
		On("CONFLICT (name) DO UPDATE").
		Set("application = EXCLUDED.application").
		Set("description = EXCLUDED.description").
		Set("is_permanent = EXCLUDED.is_permanent").
		Exec(ctx)
	return err
}

// ScopeDelete removes a scope unless something still references it. A scope
// bound to any profile or live token reports false and stays put; deleting a
// scope that does not exist is a silent no-op.
func (s *Store) ScopeDelete(ctx context.Context, tx *Tx, name string) (bool, error) {
	if err := requireScope(tx); err != nil {
		return false, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return false, core.NewStoreError("sqlstore: scope name is required", goerrors.CategoryBadInput, core.StoreErrorBadInput)
	}

	inUse, err := s.scopeInUse(ctx, tx, name)
	if err != nil {
		return false, err
	}
	if inUse {
		return false, nil
	}

	_, err = tx.bt.NewDelete().
		Model((*scopeRecord)(nil)).
		Where("name = ?", name).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) scopeInUse(ctx context.Context, tx *Tx, name string) (bool, error) {
	profileCount, err := tx.bt.NewSelect().
		Model((*profileScopeRecord)(nil)).
		Where("scope_name = ?", name).
		Count(ctx)
	if err != nil {
		return false, err
	}
	if profileCount > 0 {
		return true, nil
	}
	tokenCount, err := tx.bt.NewSelect().
		Model((*tokenScopeRecord)(nil)).
		Where("scope_name = ?", name).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return tokenCount > 0, nil
}

// ProfileScopeInsert binds a scope to a profile, registering the scope first
// when it is unknown. Re-inserting an existing binding has no effect.
func (s *Store) ProfileScopeInsert(ctx context.Context, tx *Tx, profile string, scopeName string) error {
	if err := requireScope(tx); err != nil {
		return err
	}
	profile = strings.TrimSpace(profile)
	scopeName = strings.TrimSpace(scopeName)
	if profile == "" || scopeName == "" {
		return core.NewStoreError("sqlstore: profile and scope name are required", goerrors.CategoryBadInput, core.StoreErrorBadInput)
	}
	if err := s.ensureScopes(ctx, tx, []string{scopeName}); err != nil {
		return err
	}
	_, err := tx.bt.NewInsert().
		Model(&profileScopeRecord{
			Profile:   profile,
			ScopeName: scopeName,
		}).
		On("CONFLICT (profile, scope_name) DO NOTHING").
		Exec(ctx)
	return err
}

// ProfileScopesSetAll replaces a profile's entire bound-scope set in one
// step. An empty list clears all bindings without touching the profile.
func (s *Store) ProfileScopesSetAll(ctx context.Context, tx *Tx, profile string, scopeNames []string) error {
	if err := requireScope(tx); err != nil {
		return err
	}
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return core.NewStoreError("sqlstore: profile is required", goerrors.CategoryBadInput, core.StoreErrorBadInput)
	}

	if _, err := tx.bt.NewDelete().
		Model((*profileScopeRecord)(nil)).
		Where("profile = ?", profile).
		Exec(ctx); err != nil {
		return err
	}

	names := normalizeScopeNames(scopeNames)
	if len(names) == 0 {
		return nil
	}
	if err := s.ensureScopes(ctx, tx, names); err != nil {
		return err
	}

	bindings := make([]profileScopeRecord, 0, len(names))
	for _, name := range names {
		bindings = append(bindings, profileScopeRecord{
			Profile:   profile,
			ScopeName: name,
		})
	}
	_, err := tx.bt.NewInsert().
		Model(&bindings).
		Exec(ctx)
	return err
}

// ProfilesScopesByIdentifier assembles the denormalized view callers need:
// every profile the identifier owns, each profile's scopes, and the reverse
// scope-to-profiles index.
func (s *Store) ProfilesScopesByIdentifier(ctx context.Context, tx *Tx, identifier string) (core.ProfilesScopesView, error) {
	view := core.ProfilesScopesView{
		Profiles:      []string{},
		ProfileScopes: map[string][]string{},
		ScopeIndex:    map[string][]string{},
	}
	if err := requireScope(tx); err != nil {
		return view, err
	}

	var profileRecords []profileRecord
	if err := tx.bt.NewSelect().
		Model(&profileRecords).
		Where("identifier = ?", strings.TrimSpace(identifier)).
		OrderExpr("profile ASC").
		Scan(ctx); err != nil {
		return view, err
	}
	if len(profileRecords) == 0 {
		return view, nil
	}

	profiles := make([]string, 0, len(profileRecords))
	for _, record := range profileRecords {
		profiles = append(profiles, record.Profile)
		view.ProfileScopes[record.Profile] = []string{}
	}
	view.Profiles = profiles

	var bindings []profileScopeRecord
	if err := tx.bt.NewSelect().
		Model(&bindings).
		Where("profile IN (?)", bun.In(profiles)).
		OrderExpr("profile ASC, scope_name ASC").
		Scan(ctx); err != nil {
		return view, err
	}

	for _, binding := range bindings {
		view.ProfileScopes[binding.Profile] = append(view.ProfileScopes[binding.Profile], binding.ScopeName)
		view.ScopeIndex[binding.ScopeName] = append(view.ScopeIndex[binding.ScopeName], binding.Profile)
	}
	return view, nil
}

// ScopeCleanup deletes every non-permanent scope nothing references, unless
// the almanac says a sweep ran within minInterval.
func (s *Store) ScopeCleanup(ctx context.Context, tx *Tx, minInterval time.Duration) (core.CleanupResult, error) {
	if err := requireScope(tx); err != nil {
		return core.CleanupResult{}, err
	}
	startedAt := time.Now()
	now := startedAt.UTC()

	throttled, err := s.cleanupThrottled(ctx, tx, core.AlmanacEventScopeCleanup, now, minInterval)
	if err != nil {
		return core.CleanupResult{}, err
	}
	if throttled {
		return core.CleanupResult{Skipped: true}, nil
	}

	res, err := tx.bt.NewDelete().
		Model((*scopeRecord)(nil)).
		Where("NOT is_permanent").
		Where("name NOT IN (SELECT scope_name FROM profile_scopes)").
		Where("name NOT IN (SELECT scope_name FROM token_scopes)").
		Exec(ctx)
	if err != nil {
		return core.CleanupResult{}, err
	}
	removed, _ := res.RowsAffected()

	if err := s.AlmanacUpsert(ctx, tx, core.AlmanacEventScopeCleanup, now); err != nil {
		return core.CleanupResult{}, err
	}
	s.observe(ctx, startedAt, "scope_cleanup", nil, map[string]any{"removed": removed})
	return core.CleanupResult{Removed: removed}, nil
}

// cleanupThrottled checks the almanac inside the sweep's own transaction so
// the throttle read and the sweep cannot race each other.
func (s *Store) cleanupThrottled(ctx context.Context, tx *Tx, event string, now time.Time, minInterval time.Duration) (bool, error) {
	if minInterval <= 0 {
		return false, nil
	}
	last, err := s.almanacGet(ctx, tx, event)
	if err != nil {
		return false, err
	}
	if last.IsZero() {
		return false, nil
	}
	return now.Sub(last) < minInterval, nil
}

// ensureScopes registers any unknown scope names so bindings and token scope
// sets always reference existing scopes. Known scopes keep their metadata.
func (s *Store) ensureScopes(ctx context.Context, tx *Tx, names []string) error {
	for _, name := range names {
		_, err := tx.bt.NewInsert().
			Model(&scopeRecord{Name: name}).
			On("CONFLICT (name) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

func normalizeScopeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
