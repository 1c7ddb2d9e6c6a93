package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token is malformed, expired, tampered
// with, or of the wrong kind. All verification failures collapse to this one
// error so callers cannot distinguish an expired token from a forged one.
var ErrInvalidToken = errors.New("invalid token")

// TokenKind discriminates access tokens from refresh tokens. Both kinds are
// signed with the same key; the embedded kind tag is what lets callers reject
// an access token presented where a refresh token is required, and vice versa.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Claims holds JWT claims for both token kinds.
type Claims struct {
	jwt.RegisteredClaims
	Kind TokenKind `json:"kind"`
}

// TokenProvider issues and validates JWT access and refresh tokens using RS256 or ES256.
// The key pair is loaded once at startup and is immutable for the process lifetime;
// construct distinct providers with distinct keys in tests.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenProvider returns a TokenProvider that signs with the given private key (RS256 or ES256).
// issuer and audience are set on claims and checked on validation.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, accessTTL, refreshTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTTL returns the configured access token lifetime.
func (p *TokenProvider) AccessTTL() time.Duration { return p.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (p *TokenProvider) RefreshTTL() time.Duration { return p.refreshTTL }

// IssueAccess issues a short-lived access JWT for the given user.
// Returns the token string and its expiration time.
func (p *TokenProvider) IssueAccess(userID string) (token string, expiresAt time.Time, err error) {
	return p.issue(userID, TokenKindAccess, p.accessTTL)
}

// IssueRefresh issues a long-lived refresh JWT for the given user. The token
// string doubles as the persistence key for the server-side refresh record.
func (p *TokenProvider) IssueRefresh(userID string) (token string, expiresAt time.Time, err error) {
	return p.issue(userID, TokenKindRefresh, p.refreshTTL)
}

func (p *TokenProvider) issue(userID string, kind TokenKind, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Kind: kind,
	}
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", time.Time{}, ErrInvalidToken
	}
	t := jwt.NewWithClaims(method, claims)
	signed, err := t.SignedString(p.privateKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateAccess parses and validates an access token (signature, exp, iss, aud, kind).
// Returns the subject user ID, or ErrInvalidToken for every failure mode.
func (p *TokenProvider) ValidateAccess(tokenString string) (userID string, err error) {
	return p.validate(tokenString, TokenKindAccess)
}

// ValidateRefresh parses and validates a refresh token (signature, exp, iss, aud, kind).
// Returns the subject user ID, or ErrInvalidToken for every failure mode.
func (p *TokenProvider) ValidateRefresh(tokenString string) (userID string, err error) {
	return p.validate(tokenString, TokenKindRefresh)
}

func (p *TokenProvider) validate(tokenString string, kind TokenKind) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
			return p.publicKey, nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); ok {
			return p.publicKey, nil
		}
		return nil, ErrInvalidToken
	})
	if err != nil {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Kind != kind {
		return "", ErrInvalidToken
	}
	if claims.Issuer != p.issuer {
		return "", ErrInvalidToken
	}
	audOk := false
	for _, a := range claims.Audience {
		if a == p.audience {
			audOk = true
			break
		}
	}
	if !audOk {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
