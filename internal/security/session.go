package security

import (
	"crypto"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a session token is malformed, expired or signed by someone else.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNoSigningKey is returned when an issuer is built without usable key material.
	ErrNoSigningKey = errors.New("no signing key")
)

// SessionClaims is the payload of a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// SessionIssuer issues and validates session JWTs. It signs with HS256 when
// built from a shared secret, or RS256/ES256 when built from a key pair.
type SessionIssuer struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	issuer    string
	audience  string
	ttl       time.Duration
	now       func() time.Time
}

// NewHMACSessionIssuer returns an issuer that signs with HS256 using secret.
func NewHMACSessionIssuer(secret []byte, issuer, audience string, ttl time.Duration) (*SessionIssuer, error) {
	if len(secret) == 0 {
		return nil, ErrNoSigningKey
	}
	return &SessionIssuer{
		method:    jwt.SigningMethodHS256,
		signKey:   secret,
		verifyKey: secret,
		issuer:    issuer,
		audience:  audience,
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

// NewKeyPairSessionIssuer returns an issuer that signs with the private key (RS256 or ES256)
// and validates with the public key. Both keys must be of the same family.
func NewKeyPairSessionIssuer(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, ttl time.Duration) (*SessionIssuer, error) {
	if privateKey == nil || publicKey == nil {
		return nil, ErrNoSigningKey
	}
	method := SigningMethodFor(privateKey.Public())
	if method == nil || method != SigningMethodFor(publicKey) {
		return nil, ErrInvalidKey
	}
	return &SessionIssuer{
		method:    method,
		signKey:   privateKey,
		verifyKey: publicKey,
		issuer:    issuer,
		audience:  audience,
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

// TTL is the lifetime of issued tokens.
func (s *SessionIssuer) TTL() time.Duration {
	return s.ttl
}

// Issue signs a session token for the account. Returns the token and its expiry.
func (s *SessionIssuer) Issue(accountID, email, role string) (string, time.Time, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   accountID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: email,
		Role:  role,
	}
	token, err := jwt.NewWithClaims(s.method, claims).SignedString(s.signKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate parses the token and checks signature, algorithm, expiry, issuer and audience.
func (s *SessionIssuer) Validate(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.verifyKey, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
