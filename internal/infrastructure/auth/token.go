package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken means no credential was presented at all.
	ErrMissingToken = errors.New("auth: missing token")
	// ErrInvalidToken covers bad signature, malformed payload, expiry and a
	// missing subject claim.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Identity is the verified principal behind a connection or request. It is
// resolved once during the handshake and never changes afterwards.
type Identity struct {
	UserID string
	Role   string
}

const defaultRole = "USER"

// Verifier validates HS256 bearer tokens issued by the auth service.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify checks signature and expiry and extracts the identity. The subject
// claim is required; the role claim defaults to USER when absent.
func (v *Verifier) Verify(raw string) (Identity, error) {
	raw = StripBearer(raw)
	if raw == "" {
		return Identity{}, ErrMissingToken
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, fmt.Errorf("%w: subject claim missing", ErrInvalidToken)
	}

	role, _ := claims["role"].(string)
	if role == "" {
		role = defaultRole
	}

	return Identity{UserID: sub, Role: role}, nil
}

// Issue signs a token for the given user. The server itself only verifies;
// this exists for the auth collaborator boundary and for tests.
func (v *Verifier) Issue(userID string, role string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(ttl).Unix(),
	}
	if role != "" {
		claims["role"] = role
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// StripBearer removes an optional "Bearer " prefix, case-insensitively.
func StripBearer(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}

// TokenFromRequest pulls the handshake credential from either the dedicated
// auth query field or the Authorization header. The query field wins when both
// are present. An empty string means no credential was supplied.
func TokenFromRequest(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	return r.Header.Get("Authorization")
}
