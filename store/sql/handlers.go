package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func resourceHandlers() repository.ModelHandlers[*resourceRecord] {
	return repository.ModelHandlers[*resourceRecord]{
		NewRecord: func() *resourceRecord {
			return &resourceRecord{}
		},
		GetID: func(record *resourceRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *resourceRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(record *resourceRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ID)
		},
	}
}

func ticketTokenHandlers() repository.ModelHandlers[*ticketTokenRecord] {
	return repository.ModelHandlers[*ticketTokenRecord]{
		NewRecord: func() *ticketTokenRecord {
			return &ticketTokenRecord{}
		},
		GetID: func(record *ticketTokenRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.TicketID)
		},
		SetID: func(record *ticketTokenRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.TicketID = id.String()
		},
		GetIdentifier: func() string {
			return "ticket_id"
		},
		GetIdentifierValue: func(record *ticketTokenRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.TicketID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
