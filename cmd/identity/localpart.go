package identity

import (
	"fmt"
	"strings"
)

const (
	// MinLocalpartLength and MaxLocalpartLength bound the user-facing
	// handle. The upper bound keeps full user IDs well under the Matrix
	// 255-byte identifier limit for any reasonable domain.
	MinLocalpartLength = 3
	MaxLocalpartLength = 24
)

// localpartChars is the set of characters permitted in Matrix localparts
// (per the Matrix spec: a-z, 0-9, and the symbols . _ = - /).
var localpartChars [256]bool

func init() {
	for c := byte('a'); c <= 'z'; c++ {
		localpartChars[c] = true
	}
	for c := byte('0'); c <= '9'; c++ {
		localpartChars[c] = true
	}
	localpartChars['.'] = true
	localpartChars['_'] = true
	localpartChars['='] = true
	localpartChars['-'] = true
	localpartChars['/'] = true
}

// SanitizeLocalpart lowercases s and strips every character outside the
// Matrix localpart charset. It does not enforce length bounds; callers
// validate the result with ValidateLocalpart.
func SanitizeLocalpart(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if localpartChars[s[i]] {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// ValidateLocalpart enforces Crabba's handle rules: charset
// [a-z0-9_=\-./], length 3..24, and no leading '_' or '.'.
func ValidateLocalpart(localpart string) error {
	const op = "identity.ValidateLocalpart"

	if len(localpart) < MinLocalpartLength {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: fmt.Sprintf("localpart %q is shorter than %d characters", localpart, MinLocalpartLength)}
	}
	if len(localpart) > MaxLocalpartLength {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: fmt.Sprintf("localpart is %d characters, maximum is %d", len(localpart), MaxLocalpartLength)}
	}
	for i := 0; i < len(localpart); i++ {
		if !localpartChars[localpart[i]] {
			return OpError{Op: op, Kind: ErrInvalidInput, Msg: fmt.Sprintf("invalid character %q at position %d", localpart[i], i)}
		}
	}
	if localpart[0] == '_' || localpart[0] == '.' {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: fmt.Sprintf("localpart %q must not start with %q", localpart, localpart[0])}
	}
	return nil
}

// LocalpartFromEmail derives a candidate localpart from the local part
// of an email address. The result is sanitized and truncated to the
// maximum length; it may still fail ValidateLocalpart (e.g. "ab@x.com").
func LocalpartFromEmail(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	local = SanitizeLocalpart(local)
	if len(local) > MaxLocalpartLength {
		local = local[:MaxLocalpartLength]
	}
	return local
}

// FormatUserID constructs a fully qualified Matrix user ID
// (@localpart:domain) from its parts.
func FormatUserID(localpart, domain string) string {
	return "@" + localpart + ":" + domain
}

// SplitUserID extracts localpart and domain from @localpart:domain.
func SplitUserID(userID string) (localpart, domain string, err error) {
	if len(userID) < 2 || userID[0] != '@' {
		return "", "", fmt.Errorf("invalid user ID %q: must start with @", userID)
	}
	colon := strings.Index(userID[1:], ":")
	if colon < 0 {
		return "", "", fmt.Errorf("invalid user ID %q: missing :domain", userID)
	}
	localpart = userID[1 : 1+colon]
	domain = userID[2+colon:]
	if localpart == "" {
		return "", "", fmt.Errorf("invalid user ID %q: empty localpart", userID)
	}
	if domain == "" {
		return "", "", fmt.Errorf("invalid user ID %q: empty domain", userID)
	}
	return localpart, domain, nil
}

// NormalizeUsername performs case-insensitive canonicalization for
// uniqueness comparisons.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
