package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TokenTypeBearer is the scheme stored with every issued record and
	// expected on the Authorization header.
	TokenTypeBearer = "Bearer"

	useAccess  = "access"
	useRefresh = "refresh"
)

var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token is expired")
)

// Claims is the fixed signed payload. The subject is the user's phone
// number and UserID its surrogate id; there is no open-ended claim bag.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"userId"`
	TokenUse string `json:"use"`
}

// Codec signs and verifies compact HS256 tokens. It is stateless and safe
// for concurrent use.
type Codec struct {
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewCodec(key []byte, accessTTL, refreshTTL time.Duration) *Codec {
	return &Codec{
		key:        key,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (c *Codec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess signs a short-lived access token for the account.
func (c *Codec) IssueAccess(account Account) (string, error) {
	return c.issue(account, useAccess, c.accessTTL)
}

// IssueRefresh signs a refresh token. Refresh tokens carry their own
// signature and expiry so that the refresh flow never has to trust a bare
// store lookup.
func (c *Codec) IssueRefresh(account Account) (string, error) {
	return c.issue(account, useRefresh, c.refreshTTL)
}

func (c *Codec) issue(account Account, use string, ttl time.Duration) (string, error) {
	if account.PhoneNumber == "" {
		return "", fmt.Errorf("issue token: account has no phone number")
	}

	now := c.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			// The jti keeps two tokens for the same account issued within
			// clock resolution from colliding byte for byte.
			ID:        uuid.NewString(),
			Subject:   account.PhoneNumber,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:   account.ID,
		TokenUse: use,
	})

	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Validate checks signature and structure only. Expiry is deliberately a
// separate step (IsExpired) so callers can tell a forged token from a
// merely stale one, and the refresh flow can still read the subject out of
// an expired access token.
func (c *Codec) Validate(tokenString string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !token.Valid {
		return Claims{}, ErrTokenInvalid
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return Claims{}, ErrTokenInvalid
	}

	return claims, nil
}

// IsExpired reports whether a correctly signed token has passed its expiry.
func (c *Codec) IsExpired(tokenString string) (bool, error) {
	claims, err := c.Validate(tokenString)
	if err != nil {
		return false, err
	}

	return c.expired(claims), nil
}

// ExtractSubject returns the subject of a correctly signed token, expired
// or not.
func (c *Codec) ExtractSubject(tokenString string) (string, error) {
	claims, err := c.Validate(tokenString)
	if err != nil {
		return "", err
	}

	return claims.Subject, nil
}

// ValidateFresh is Validate plus the use and expiry checks, with
// ErrTokenExpired kept distinct from ErrTokenInvalid.
func (c *Codec) ValidateFresh(tokenString, use string) (Claims, error) {
	claims, err := c.Validate(tokenString)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenUse != use {
		return Claims{}, ErrTokenInvalid
	}
	if c.expired(claims) {
		return Claims{}, ErrTokenExpired
	}

	return claims, nil
}

func (c *Codec) expired(claims Claims) bool {
	return !claims.ExpiresAt.Time.After(c.now())
}
