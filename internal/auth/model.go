package auth

import (
	"context"
	"errors"
	"time"
)

// Account is the slice of a user record the session core needs. The full
// user entity is owned by the user package; auth only ever sees this
// read-only view through the Directory interface.
type Account struct {
	ID             string
	PhoneNumber    string
	PasswordHash   string
	RoleID         int64
	Role           string
	Active         bool
	HasSocialLogin bool
}

// Directory resolves accounts at login time and inside the request gate.
// Implementations return ErrNotFound when no account matches.
type Directory interface {
	AccountByPhone(ctx context.Context, phoneNumber string) (Account, error)
	AccountByID(ctx context.Context, id string) (Account, error)
}

// PasswordHasher is the one-way hash capability used to verify credentials.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID          string
	PhoneNumber string
	Role        string
	Active      bool
}

// TokenRecord is one issued session as persisted by the token store.
type TokenRecord struct {
	ID                    string
	Token                 string
	RefreshToken          string
	TokenType             string
	ExpirationDate        time.Time
	RefreshExpirationDate time.Time
	Revoked               bool
	Expired               bool
	IsMobile              bool
	UserID                string
	CreatedAt             time.Time
}

var ErrNotFound = errors.New("record not found")
