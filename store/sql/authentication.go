package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/hollyburn/indieauth-store/core"
)

// AuthenticationUpsert stores the credential material for an identifier,
// replacing both the credential and the OTP key on an existing record.
func (s *Store) AuthenticationUpsert(ctx context.Context, tx *Tx, identifier string, credential string, otpKey *string) error {
	if err := requireScope(tx); err != nil {
		return err
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return identifierRequiredError()
	}
	_, err := tx.bt.NewInsert().
		Model(&authenticationRecord{
			Identifier: identifier,
			Credential: credential,
			OTPKey:     otpKey,
			CreatedAt:  time.Now().UTC(),
		}).
		On("CONFLICT (identifier) DO UPDATE").
		Set("credential = EXCLUDED.credential").
		Set("otp_key = EXCLUDED.otp_key").
		Exec(ctx)
	return err
}

// AuthenticationUpdateCredential replaces only the credential; the OTP key
// is untouched. Updating an absent identifier is a no-op.
func (s *Store) AuthenticationUpdateCredential(ctx context.Context, tx *Tx, identifier string, credential string) error {
	if err := requireScope(tx); err != nil {
		return err
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return identifierRequiredError()
	}
	_, err := tx.bt.NewUpdate().
		Model((*authenticationRecord)(nil)).
		Set("credential = ?", credential).
		Where("identifier = ?", identifier).
		Exec(ctx)
	return err
}

// AuthenticationUpdateOTPKey replaces only the OTP key; nil clears it.
func (s *Store) AuthenticationUpdateOTPKey(ctx context.Context, tx *Tx, identifier string, otpKey *string) error {
	if err := requireScope(tx); err != nil {
		return err
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return identifierRequiredError()
	}
	_, err := tx.bt.NewUpdate().
		Model((*authenticationRecord)(nil)).
		Set("otp_key = ?", otpKey).
		Where("identifier = ?", identifier).
		Exec(ctx)
	return err
}

// AuthenticationGet returns nil when the identifier is unknown.
func (s *Store) AuthenticationGet(ctx context.Context, tx *Tx, identifier string) (*core.Authentication, error) {
	if err := requireScope(tx); err != nil {
		return nil, err
	}
	record := &authenticationRecord{}
	err := tx.bt.NewSelect().
		Model(record).
		Where("identifier = ?", strings.TrimSpace(identifier)).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	out := record.toDomain()
	return &out, nil
}

// AuthenticationSuccess stamps the last-authentication time without touching
// credential or OTP material.
func (s *Store) AuthenticationSuccess(ctx context.Context, tx *Tx, identifier string) error {
	if err := requireScope(tx); err != nil {
		return err
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return identifierRequiredError()
	}
	_, err := tx.bt.NewUpdate().
		Model((*authenticationRecord)(nil)).
		Set("last_authenticated_at = ?", time.Now().UTC()).
		Where("identifier = ?", identifier).
		Exec(ctx)
	return err
}

// ProfileIdentifierInsert records that an identifier owns a profile URL.
// Re-inserting an existing relation has no effect.
func (s *Store) ProfileIdentifierInsert(ctx context.Context, tx *Tx, profile string, identifier string) error {
	if err := requireScope(tx); err != nil {
		return err
	}
	if err := core.ValidateProfileURL(profile); err != nil {
		return core.StoreErrorMapper(err)
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return identifierRequiredError()
	}
	_, err := tx.bt.NewInsert().
		Model(&profileRecord{
			Profile:    strings.TrimSpace(profile),
			Identifier: identifier,
		}).
		On("CONFLICT (profile) DO NOTHING").
		Exec(ctx)
	return err
}

// ProfileIsValid reports whether any identifier owns the profile.
func (s *Store) ProfileIsValid(ctx context.Context, tx *Tx, profile string) (bool, error) {
	if err := requireScope(tx); err != nil {
		return false, err
	}
	count, err := tx.bt.NewSelect().
		Model((*profileRecord)(nil)).
		Where("profile = ?", strings.TrimSpace(profile)).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func identifierRequiredError() error {
	return core.NewStoreError("sqlstore: identifier is required", goerrors.CategoryBadInput, core.StoreErrorBadInput)
}
