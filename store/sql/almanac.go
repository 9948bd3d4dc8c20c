package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/hollyburn/indieauth-store/core"
)

// AlmanacUpsert records the last-occurrence timestamp for a named
// maintenance event.
func (s *Store) AlmanacUpsert(ctx context.Context, tx *Tx, event string, date time.Time) error {
	if err := requireScope(tx); err != nil {
		return err
	}
	event = strings.TrimSpace(event)
	if event == "" {
		return core.NewStoreError("sqlstore: almanac event is required", goerrors.CategoryBadInput, core.StoreErrorBadInput)
	}
	if date.IsZero() {
		date = time.Now()
	}
	_, err := tx.bt.NewInsert().
		Model(&almanacRecord{
			Event: event,
			Date:  date.UTC(),
		}).
		On("CONFLICT (event) DO UPDATE").
		Set("date = EXCLUDED.date").
		Exec(ctx)
	return err
}

// AlmanacGetAll returns the full ledger, ordered by event name.
func (s *Store) AlmanacGetAll(ctx context.Context, tx *Tx) ([]core.AlmanacEntry, error) {
	if err := requireScope(tx); err != nil {
		return nil, err
	}
	var records []almanacRecord
	if err := tx.bt.NewSelect().
		Model(&records).
		OrderExpr("event ASC").
		Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]core.AlmanacEntry, 0, len(records))
	for i := range records {
		out = append(out, records[i].toDomain())
	}
	return out, nil
}

// almanacGet returns the zero time when the event has never been recorded.
func (s *Store) almanacGet(ctx context.Context, tx *Tx, event string) (time.Time, error) {
	record := &almanacRecord{}
	err := tx.bt.NewSelect().
		Model(record).
		Where("event = ?", event).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return record.Date, nil
}
