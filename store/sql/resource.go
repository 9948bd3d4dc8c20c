package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/hollyburn/indieauth-store/core"
)

// ResourceUpsert creates a resource server registration, generating an id
// when none is supplied, or updates an existing one in place. It returns the
// effective id either way.
func (s *Store) ResourceUpsert(ctx context.Context, tx *Tx, resourceID string, secret string, description string) (string, error) {
	if err := requireScope(tx); err != nil {
		return "", err
	}
	if strings.TrimSpace(secret) == "" {
		return "", core.NewStoreError("sqlstore: resource secret is required", goerrors.CategoryBadInput, core.StoreErrorBadInput)
	}
	now := time.Now().UTC()

	id := strings.TrimSpace(resourceID)
	if id == "" {
		record := &resourceRecord{
			ID:          uuid.NewString(),
			Secret:      secret,
			Description: description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		created, err := s.resources.CreateTx(ctx, tx.bt, record)
		if err != nil {
			return "", err
		}
		return created.ID, nil
	}

	_, err := tx.bt.NewInsert().
		Model(&resourceRecord{
			ID:          id,
			Secret:      secret,
			Description: description,
			CreatedAt:   now,
			UpdatedAt:   now,
		}).
		On("CONFLICT (id) DO UPDATE").
		Set("secret = EXCLUDED.secret").
		Set("description = EXCLUDED.description").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ResourceGet returns nil, not an error, when no such resource exists.
func (s *Store) ResourceGet(ctx context.Context, tx *Tx, resourceID string) (*core.Resource, error) {
	if err := requireScope(tx); err != nil {
		return nil, err
	}
	record := &resourceRecord{}
	err := tx.bt.NewSelect().
		Model(record).
		Where("id = ?", strings.TrimSpace(resourceID)).
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

func requireScope(tx *Tx) error {
	if tx == nil {
		return core.NewStoreError("sqlstore: transactional scope is required", goerrors.CategoryBadInput, core.StoreErrorBadInput)
	}
	return nil
}
