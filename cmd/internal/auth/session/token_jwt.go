package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the identity envelope carried by an access token.
// It is fully self-contained: verification never touches storage.
type AccessClaims struct {
	UserID    string
	Email     string
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Issuer    string
}

// AccessTokenManager issues and verifies short-lived access tokens.
type AccessTokenManager interface {
	Issue(userID, email, sessionID string, now time.Time) (token string, exp time.Time, err error)
	Verify(token string, now time.Time) (AccessClaims, error)
}

type jwtClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	SessionID string `json:"sid"`
}

type hs256Manager struct {
	issuer    string
	secret    []byte
	ttl       time.Duration
	clockSkew time.Duration
}

// NewHS256Manager builds an AccessTokenManager signing HS256 JWTs.
func NewHS256Manager(cfg Config) (AccessTokenManager, error) {
	if len(cfg.Secret) < 32 || cfg.Issuer == "" || cfg.AccessTTL <= 0 {
		return nil, ErrConfig
	}
	return &hs256Manager{
		issuer:    cfg.Issuer,
		secret:    cfg.Secret,
		ttl:       cfg.AccessTTL,
		clockSkew: cfg.ClockSkew,
	}, nil
}

func (m *hs256Manager) Issue(userID, email, sessionID string, now time.Time) (string, time.Time, error) {
	exp := now.Add(m.ttl)

	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email:     email,
		SessionID: sessionID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (m *hs256Manager) Verify(tokenString string, now time.Time) (AccessClaims, error) {
	claims := &jwtClaims{}

	tok, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil || !tok.Valid {
		return AccessClaims{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return AccessClaims{}, ErrInvalidToken
	}

	out := AccessClaims{
		UserID:    claims.Subject,
		Email:     claims.Email,
		SessionID: claims.SessionID,
		Issuer:    claims.Issuer,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
