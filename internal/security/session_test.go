package security

import (
	"errors"
	"testing"
	"time"
)

func TestSessionIssuer_IssueAndValidate_HMAC(t *testing.T) {
	s := NewTestSessionIssuer()
	token, exp, err := s.Issue("acc-1", "ada@example.com", "user")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if d := time.Until(exp); d < 7*24*time.Hour-time.Minute || d > 7*24*time.Hour {
		t.Errorf("expiry in %v, want ~7d", d)
	}
	claims, err := s.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "acc-1" || claims.Email != "ada@example.com" || claims.Role != "user" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.ID == "" {
		t.Error("jti should be set")
	}
}

func TestSessionIssuer_IssueAndValidate_KeyPairs(t *testing.T) {
	rs, err := NewTestKeyPairSessionIssuer()
	if err != nil {
		t.Fatalf("NewTestKeyPairSessionIssuer: %v", err)
	}
	ecPriv, _ := ParsePrivateKey(testECPrivateKeyPEM)
	ecPub, _ := ParsePublicKey(testECPublicKeyPEM)
	es, err := NewKeyPairSessionIssuer(ecPriv, ecPub, "test-issuer", "test-audience", time.Hour)
	if err != nil {
		t.Fatalf("NewKeyPairSessionIssuer EC: %v", err)
	}
	for name, s := range map[string]*SessionIssuer{"RS256": rs, "ES256": es} {
		t.Run(name, func(t *testing.T) {
			token, _, err := s.Issue("acc-2", "b@example.com", "admin")
			if err != nil {
				t.Fatalf("Issue: %v", err)
			}
			claims, err := s.Validate(token)
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if claims.Role != "admin" {
				t.Errorf("Role = %q, want admin", claims.Role)
			}
		})
	}
}

func TestNewKeyPairSessionIssuer_MismatchedKeys(t *testing.T) {
	rsaPriv, _ := ParsePrivateKey(testPrivateKeyPEM)
	ecPub, _ := ParsePublicKey(testECPublicKeyPEM)
	if _, err := NewKeyPairSessionIssuer(rsaPriv, ecPub, "i", "a", time.Hour); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("want ErrInvalidKey, got %v", err)
	}
	if _, err := NewKeyPairSessionIssuer(nil, ecPub, "i", "a", time.Hour); !errors.Is(err, ErrNoSigningKey) {
		t.Fatalf("want ErrNoSigningKey, got %v", err)
	}
	if _, err := NewHMACSessionIssuer(nil, "i", "a", time.Hour); !errors.Is(err, ErrNoSigningKey) {
		t.Fatalf("want ErrNoSigningKey, got %v", err)
	}
}

func TestSessionIssuer_ValidateRejects(t *testing.T) {
	s := NewTestSessionIssuer()
	token, _, err := s.Issue("acc-1", "ada@example.com", "user")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	otherSecret, _ := NewHMACSessionIssuer([]byte("other"), "test-issuer", "test-audience", time.Hour)
	otherIssuer, _ := NewHMACSessionIssuer([]byte("test-session-secret"), "someone-else", "test-audience", time.Hour)
	otherAudience, _ := NewHMACSessionIssuer([]byte("test-session-secret"), "test-issuer", "mobile", time.Hour)
	rs, _ := NewTestKeyPairSessionIssuer()

	expired := NewTestSessionIssuer()
	expired.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }

	cases := []struct {
		name string
		s    *SessionIssuer
		tok  string
	}{
		{"garbage", s, "not-a-jwt"},
		{"empty", s, ""},
		{"wrong secret", otherSecret, token},
		{"wrong issuer", otherIssuer, token},
		{"wrong audience", otherAudience, token},
		{"algorithm switch", rs, token},
		{"expired", expired, token},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.s.Validate(tc.tok); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("want ErrInvalidToken, got %v", err)
			}
		})
	}
}
