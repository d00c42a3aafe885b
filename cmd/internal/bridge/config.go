package bridge

import "strings"

const (
	// DefaultServerDomain is the Matrix server name appended to
	// provisioned localparts.
	DefaultServerDomain = "crabba.net"
)

// DefaultStaleDomains lists server names from earlier deployments.
// Identities minted against any of these are treated as stale and
// re-provisioned on the current domain.
var DefaultStaleDomains = []string{"localhost"}

// Config carries the bridge's operational knobs. Zero values fall
// back to the package defaults; the app layer populates it from the
// environment.
type Config struct {
	// ServerDomain is the Matrix server name for new identities.
	ServerDomain string

	// StaleDomains are server names considered legacy. An identity
	// whose messaging ID points at one of them is silently migrated.
	StaleDomains []string

	// AutoProvision allows ExchangeToken to provision or heal an
	// identity on the fly. When false a missing or stale identity is
	// a hard failure.
	AutoProvision bool

	// AdminToken, when set, is a Synapse admin access token used to
	// reset the password of an already-registered user so the stored
	// credential is known-good. Optional.
	AdminToken string

	// SyncKey, when set, must be presented by provisioning callers in
	// the X-Sync-Key header. Empty disables the check.
	SyncKey string

	// MaxBodyBytes caps request bodies on the provisioning endpoint.
	MaxBodyBytes int64

	// TrustProxy enables X-Forwarded-For / X-Real-IP for audit IPs.
	TrustProxy bool
}

// DefaultMaxBodyBytes bounds provisioning request bodies.
const DefaultMaxBodyBytes int64 = 16 << 10

func (c Config) maxBodyBytes() int64 {
	if c.MaxBodyBytes > 0 {
		return c.MaxBodyBytes
	}
	return DefaultMaxBodyBytes
}

func (c Config) serverDomain() string {
	if c.ServerDomain != "" {
		return c.ServerDomain
	}
	return DefaultServerDomain
}

func (c Config) isStaleDomain(domain string) bool {
	stale := c.StaleDomains
	if stale == nil {
		stale = DefaultStaleDomains
	}
	for _, d := range stale {
		if strings.EqualFold(domain, d) {
			return true
		}
	}
	return false
}
