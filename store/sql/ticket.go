package sqlstore

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/hollyburn/indieauth-store/core"
)

// TicketRedeemed records a third-party ticket redemption as an unpublished
// ledger entry with a generated ticket id.
func (s *Store) TicketRedeemed(ctx context.Context, tx *Tx, in core.TicketRedeemInput) (*core.TicketToken, error) {
	if err := requireScope(tx); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, core.StoreErrorMapper(err)
	}

	record := &ticketTokenRecord{
		TicketID:  uuid.NewString(),
		Subject:   strings.TrimSpace(in.Subject),
		Resource:  strings.TrimSpace(in.Resource),
		Iss:       strings.TrimSpace(in.Iss),
		Ticket:    in.Ticket,
		Token:     in.Token,
		CreatedAt: time.Now().UTC(),
		Published: false,
	}
	created, err := s.tickets.CreateTx(ctx, tx.bt, record)
	if err != nil {
		return nil, err
	}
	out := created.toDomain()
	return &out, nil
}

// TicketTokenGetUnpublished lists every ledger entry not yet published
// downstream, oldest first.
func (s *Store) TicketTokenGetUnpublished(ctx context.Context, tx *Tx) ([]core.TicketToken, error) {
	if err := requireScope(tx); err != nil {
		return nil, err
	}
	var records []ticketTokenRecord
	if err := tx.bt.NewSelect().
		Model(&records).
		Where("NOT published").
		OrderExpr("created_at ASC, ticket_id ASC").
		Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]core.TicketToken, 0, len(records))
	for i := range records {
		out = append(out, records[i].toDomain())
	}
	return out, nil
}

// TicketTokenPublished flips the published flag for the matching ticket and
// token pair. The transition is one-way; repeating it is a no-op.
func (s *Store) TicketTokenPublished(ctx context.Context, tx *Tx, ticket string, token string) error {
	if err := requireScope(tx); err != nil {
		return err
	}
	if strings.TrimSpace(ticket) == "" || strings.TrimSpace(token) == "" {
		return core.NewStoreError("sqlstore: ticket and token are required", goerrors.CategoryBadInput, core.StoreErrorBadInput)
	}
	_, err := tx.bt.NewUpdate().
		Model((*ticketTokenRecord)(nil)).
		Set("published = ?", true).
		Where("ticket = ?", ticket).
		Where("token = ?", token).
		Where("NOT published").
		Exec(ctx)
	return err
}
