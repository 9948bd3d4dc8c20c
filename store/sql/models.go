package sqlstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/hollyburn/indieauth-store/core"
)

type schemaVersionRecord struct {
	bun.BaseModel `bun:"table:schema_versions,alias:sv"`

	Major     int       `bun:"major,notnull"`
	Minor     int       `bun:"minor,notnull"`
	Patch     int       `bun:"patch,notnull"`
	AppliedAt time.Time `bun:"applied_at,nullzero,notnull,default:current_timestamp"`
}

type authenticationRecord struct {
	bun.BaseModel `bun:"table:authentications,alias:au"`

	Identifier          string     `bun:"identifier,pk"`
	Credential          string     `bun:"credential,notnull"`
	OTPKey              *string    `bun:"otp_key"`
	LastAuthenticatedAt *time.Time `bun:"last_authenticated_at,nullzero"`
	CreatedAt           time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (r *authenticationRecord) toDomain() core.Authentication {
	return core.Authentication{
		Identifier:        r.Identifier,
		Credential:        r.Credential,
		OTPKey:            r.OTPKey,
		LastAuthenticated: r.LastAuthenticatedAt,
		CreatedAt:         r.CreatedAt,
	}
}

type resourceRecord struct {
	bun.BaseModel `bun:"table:resources,alias:re"`

	ID          string    `bun:"id,pk"`
	Secret      string    `bun:"secret,notnull"`
	Description string    `bun:"description,notnull"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *resourceRecord) toDomain() core.Resource {
	return core.Resource{
		ResourceID:  r.ID,
		Secret:      r.Secret,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type profileRecord struct {
	bun.BaseModel `bun:"table:profiles,alias:pr"`

	Profile    string `bun:"profile,pk"`
	Identifier string `bun:"identifier,notnull"`
}

type scopeRecord struct {
	bun.BaseModel `bun:"table:scopes,alias:sc"`

	Name        string `bun:"name,pk"`
	Application string `bun:"application,notnull"`
	Description string `bun:"description,notnull"`
	IsPermanent bool   `bun:"is_permanent,notnull"`
}

func (r *scopeRecord) toDomain() core.Scope {
	return core.Scope{
		Name:        r.Name,
		Application: r.Application,
		Description: r.Description,
		IsPermanent: r.IsPermanent,
	}
}

type profileScopeRecord struct {
	bun.BaseModel `bun:"table:profile_scopes,alias:ps"`

	Profile   string `bun:"profile,notnull"`
	ScopeName string `bun:"scope_name,notnull"`
}

type tokenRecord struct {
	bun.BaseModel `bun:"table:tokens,alias:tk"`

	CodeID                 string     `bun:"code_id,pk"`
	IsToken                bool       `bun:"is_token,notnull"`
	ClientID               string     `bun:"client_id,notnull"`
	Profile                string     `bun:"profile,notnull"`
	Identifier             string     `bun:"identifier,notnull"`
	CreatedAt              time.Time  `bun:"created_at,notnull"`
	ExpiresAt              *time.Time `bun:"expires_at,nullzero"`
	RefreshExpiresAt       *time.Time `bun:"refresh_expires_at,nullzero"`
	LifespanSeconds        *int64     `bun:"lifespan_seconds"`
	RefreshLifespanSeconds *int64     `bun:"refresh_lifespan_seconds"`
	ProfileData            string     `bun:"profile_data"`
	IsRevoked              bool       `bun:"is_revoked,notnull"`
	Resource               string     `bun:"resource"`
}

func (r *tokenRecord) toDomain(scopes []string) core.Token {
	return core.Token{
		CodeID:                 r.CodeID,
		IsToken:                r.IsToken,
		ClientID:               r.ClientID,
		Profile:                r.Profile,
		Identifier:             r.Identifier,
		Scopes:                 scopes,
		CreatedAt:              r.CreatedAt,
		ExpiresAt:              r.ExpiresAt,
		RefreshExpiresAt:       r.RefreshExpiresAt,
		LifespanSeconds:        r.LifespanSeconds,
		RefreshLifespanSeconds: r.RefreshLifespanSeconds,
		ProfileData:            r.ProfileData,
		IsRevoked:              r.IsRevoked,
		Resource:               r.Resource,
	}
}

type tokenScopeRecord struct {
	bun.BaseModel `bun:"table:token_scopes,alias:ts"`

	CodeID    string `bun:"code_id,notnull"`
	ScopeName string `bun:"scope_name,notnull"`
}

type ticketTokenRecord struct {
	bun.BaseModel `bun:"table:ticket_tokens,alias:tt"`

	TicketID  string    `bun:"ticket_id,pk"`
	Subject   string    `bun:"subject,notnull"`
	Resource  string    `bun:"resource,notnull"`
	Iss       string    `bun:"iss,notnull"`
	Ticket    string    `bun:"ticket,notnull"`
	Token     string    `bun:"token,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	Published bool      `bun:"published,notnull"`
}

func (r *ticketTokenRecord) toDomain() core.TicketToken {
	return core.TicketToken{
		TicketID:  r.TicketID,
		Subject:   r.Subject,
		Resource:  r.Resource,
		Iss:       r.Iss,
		Ticket:    r.Ticket,
		Token:     r.Token,
		CreatedAt: r.CreatedAt,
		Published: r.Published,
	}
}

type almanacRecord struct {
	bun.BaseModel `bun:"table:almanac,alias:al"`

	Event string    `bun:"event,pk"`
	Date  time.Time `bun:"date,notnull"`
}

func (r *almanacRecord) toDomain() core.AlmanacEntry {
	return core.AlmanacEntry{
		Event: r.Event,
		Date:  r.Date,
	}
}
