package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Resource is a registered resource server entitled to verify tokens against
// a shared secret.
type Resource struct {
	ResourceID  string
	Secret      string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Authentication stores opaque credential material for one identifier. The
// store never interprets the credential or OTP key; hashing policy belongs to
// the caller.
type Authentication struct {
	Identifier        string
	Credential        string
	OTPKey            *string
	LastAuthenticated *time.Time
	CreatedAt         time.Time
}

// Scope is a named capability grant attachable to profiles and tokens.
// Permanent scopes are exempt from cleanup sweeps.
type Scope struct {
	Name        string
	Application string
	Description string
	IsPermanent bool
}

// Token is an authorization code or access token row. IsToken distinguishes a
// live access token from a pending profile code. Expiry is derived from
// CreatedAt plus the stored lifespans; a nil lifespan means non-expiring, a
// nil refresh lifespan means not refreshable.
type Token struct {
	CodeID                 string
	IsToken                bool
	ClientID               string
	Profile                string
	Identifier             string
	Scopes                 []string
	CreatedAt              time.Time
	ExpiresAt              *time.Time
	RefreshExpiresAt       *time.Time
	LifespanSeconds        *int64
	RefreshLifespanSeconds *int64
	ProfileData            string
	IsRevoked              bool
	Resource               string
}

// RedeemCodeInput carries everything a redemption writes. CodeID is the
// idempotency key: at most one live row per CodeID ever exists.
type RedeemCodeInput struct {
	CodeID                 string
	CreatedAt              time.Time
	IsToken                bool
	ClientID               string
	Profile                string
	Identifier             string
	Scopes                 []string
	LifespanSeconds        *int64
	RefreshLifespanSeconds *int64
	ProfileData            string
	Resource               string
}

func (in RedeemCodeInput) Validate() error {
	if strings.TrimSpace(in.CodeID) == "" {
		return fmt.Errorf("core: code id is required")
	}
	if strings.TrimSpace(in.ClientID) == "" {
		return fmt.Errorf("core: client id is required")
	}
	if strings.TrimSpace(in.Profile) == "" {
		return fmt.Errorf("core: profile is required")
	}
	if strings.TrimSpace(in.Identifier) == "" {
		return fmt.Errorf("core: identifier is required")
	}
	return nil
}

// RefreshedToken reports the outcome of a successful refresh. Scopes is nil
// when the scope set was left unchanged.
type RefreshedToken struct {
	ExpiresAt        *time.Time
	RefreshExpiresAt *time.Time
	Scopes           []string
}

// TicketToken records one third-party ticket redemption and whether the
// resulting token has been published downstream.
type TicketToken struct {
	TicketID  string
	Subject   string
	Resource  string
	Iss       string
	Ticket    string
	Token     string
	CreatedAt time.Time
	Published bool
}

type TicketRedeemInput struct {
	Subject  string
	Resource string
	Iss      string
	Ticket   string
	Token    string
}

func (in TicketRedeemInput) Validate() error {
	if strings.TrimSpace(in.Subject) == "" {
		return fmt.Errorf("core: ticket subject is required")
	}
	if strings.TrimSpace(in.Resource) == "" {
		return fmt.Errorf("core: ticket resource is required")
	}
	if strings.TrimSpace(in.Ticket) == "" {
		return fmt.Errorf("core: ticket value is required")
	}
	if strings.TrimSpace(in.Token) == "" {
		return fmt.Errorf("core: ticket token is required")
	}
	return nil
}

// AlmanacEntry is the last-occurrence timestamp of a named maintenance event.
type AlmanacEntry struct {
	Event string
	Date  time.Time
}

// Almanac event names for the built-in maintenance sweeps.
const (
	AlmanacEventScopeCleanup = "scope_cleanup"
	AlmanacEventTokenCleanup = "token_cleanup"
)

// ProfilesScopesView is the denormalized profile/scope picture for one
// identifier: every owned profile, each profile's bound scopes, and the
// reverse scope-to-profiles index.
type ProfilesScopesView struct {
	Profiles      []string
	ProfileScopes map[string][]string
	ScopeIndex    map[string][]string
}

// CleanupResult is the three-valued outcome of a throttled sweep: Skipped
// when the almanac says the sweep ran too recently, otherwise the number of
// rows removed (possibly zero).
type CleanupResult struct {
	Skipped bool
	Removed int64
}

// ValidateProfileURL enforces the IndieAuth profile shape: an absolute http
// or https URL.
func ValidateProfileURL(profile string) error {
	parsed, err := url.Parse(strings.TrimSpace(profile))
	if err != nil {
		return fmt.Errorf("core: invalid profile url %q: %w", profile, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("core: profile url %q must be http or https", profile)
	}
	if parsed.Host == "" {
		return fmt.Errorf("core: profile url %q is missing a host", profile)
	}
	return nil
}
