// Package session verifies sessions issued by the external auth
// provider. The bridge never creates sessions itself — it only
// validates the provider's HS256 JWT (bearer header or session cookie)
// and extracts the stable account ID and email from its claims.
package session
