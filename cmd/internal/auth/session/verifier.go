package session

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultCookieName matches the auth provider's access-token cookie.
const DefaultCookieName = "sb-access-token"

// Claims is the verified subset of the provider's token the bridge
// cares about: the stable account ID and the account email.
type Claims struct {
	AccountID string
	Email     string
}

type providerClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Verifier validates external-session JWTs with the provider's shared
// HS256 secret.
type Verifier struct {
	secret     []byte
	cookieName string
	parser     *jwt.Parser
}

// NewVerifier constructs a Verifier. cookieName may be empty to accept
// only bearer tokens.
func NewVerifier(secret []byte, cookieName string) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty signing secret", ErrConfig)
	}
	return &Verifier{
		secret:     secret,
		cookieName: strings.TrimSpace(cookieName),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(30*time.Second),
		),
	}, nil
}

// VerifyRequest extracts and verifies the session credential from an
// incoming request. The Authorization bearer token wins over the
// cookie when both are present.
func (v *Verifier) VerifyRequest(r *http.Request) (Claims, error) {
	token := bearerToken(r)
	if token == "" && v.cookieName != "" {
		if c, err := r.Cookie(v.cookieName); err == nil {
			token = strings.TrimSpace(c.Value)
		}
	}
	if token == "" {
		return Claims{}, ErrNoSession
	}
	return v.Verify(token)
}

// Verify validates a raw token string and returns the bridge-relevant claims.
func (v *Verifier) Verify(token string) (Claims, error) {
	claims := &providerClaims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidSession
	}

	accountID := strings.TrimSpace(claims.Subject)
	if accountID == "" {
		return Claims{}, ErrInvalidSession
	}

	return Claims{
		AccountID: accountID,
		Email:     strings.TrimSpace(claims.Email),
	}, nil
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
