// Package auth verifies identity tokens minted by the external auth service.
// Tokens are compact HMAC-signed strings: base64url(userID|role|expiresUnix)
// followed by "." and the base64url signature. The service only verifies;
// Issue exists for tooling and tests.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

const RoleOrganizer = "organizer"

type Identity struct {
	UserID string
	Role   string
}

func (i *Identity) IsOrganizer() bool {
	return i != nil && i.Role == RoleOrganizer
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Issue(userID, role string, ttl time.Duration) string {
	payload := fmt.Sprintf("%s|%s|%d", userID, role, time.Now().Add(ttl).Unix())
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return encoded + "." + v.sign(encoded)
}

func (v *Verifier) Parse(token string) (*Identity, error) {
	encoded, sig, ok := strings.Cut(token, ".")
	if !ok {
		return nil, ErrInvalidToken
	}

	if !hmac.Equal([]byte(v.sign(encoded)), []byte(sig)) {
		return nil, ErrInvalidToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidToken
	}

	parts := strings.Split(string(raw), "|")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}

	expires, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if time.Now().Unix() > expires {
		return nil, ErrTokenExpired
	}

	return &Identity{UserID: parts[0], Role: parts[1]}, nil
}

func (v *Verifier) sign(payload string) string {
	h := hmac.New(sha256.New, v.secret)
	h.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
