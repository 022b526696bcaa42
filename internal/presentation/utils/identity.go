package utils

import (
	"net"
	"net/http"
	"strings"

	"github.com/pulsewall/pulsewall/internal/infrastructure/auth"
)

// IdentityFromRequest parses the bearer token, if any. A missing, malformed
// or expired token yields nil; handlers decide whether that is an error.
func IdentityFromRequest(r *http.Request, verifier *auth.Verifier) *auth.Identity {
	header := r.Header.Get("Authorization")

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil
	}

	identity, err := verifier.Parse(token)
	if err != nil {
		return nil
	}

	return identity
}

// VoterKey resolves who a ballot belongs to: the authenticated user when a
// valid bearer token is present, otherwise the originating network address.
// Anonymous callers behind a shared address therefore share one vote.
func VoterKey(r *http.Request, verifier *auth.Verifier) string {
	if identity := IdentityFromRequest(r, verifier); identity != nil {
		return identity.UserID
	}

	return OriginAddr(r)
}

// OriginAddr is the client address without the ephemeral port. Behind a
// proxy this relies on the RealIP middleware having rewritten RemoteAddr.
func OriginAddr(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}

	return r.RemoteAddr
}
