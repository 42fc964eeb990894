package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func TestVerifyRoundTrip(t *testing.T) {
	v := NewVerifier("test-secret")

	token, err := v.Issue("user-1", "ADMIN", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	id, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != "user-1" || id.Role != "ADMIN" {
		t.Errorf("got identity %+v", id)
	}
}

func TestVerifyBearerPrefix(t *testing.T) {
	v := NewVerifier("test-secret")
	token, _ := v.Issue("user-1", "", time.Hour)

	id, err := v.Verify("Bearer " + token)
	if err != nil {
		t.Fatalf("verify with prefix: %v", err)
	}
	if id.UserID != "user-1" {
		t.Errorf("got user %q", id.UserID)
	}
	if id.Role != "USER" {
		t.Errorf("role should default to USER, got %q", id.Role)
	}
}

func TestVerifyFailures(t *testing.T) {
	v := NewVerifier("test-secret")

	expired, _ := v.Issue("user-1", "", -time.Minute)
	wrongKey, _ := NewVerifier("other-secret").Issue("user-1", "", time.Hour)
	noSubject, _ := v.Issue("", "", time.Hour)

	cases := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", "", ErrMissingToken},
		{"bearer only", "Bearer ", ErrMissingToken},
		{"garbage", "not-a-token", ErrInvalidToken},
		{"expired", expired, ErrInvalidToken},
		{"wrong signature", wrongKey, ErrInvalidToken},
		{"missing subject", noSubject, ErrInvalidToken},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Verify(tc.raw)
			if !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?token=abc", nil)
	if got := TokenFromRequest(r); got != "abc" {
		t.Errorf("query token: got %q", got)
	}

	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer xyz")
	if got := StripBearer(TokenFromRequest(r)); got != "xyz" {
		t.Errorf("header token: got %q", got)
	}

	r = httptest.NewRequest("GET", "/ws", nil)
	if got := TokenFromRequest(r); got != "" {
		t.Errorf("no token: got %q", got)
	}
}
