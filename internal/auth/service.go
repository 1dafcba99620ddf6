package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidCredentials covers unknown phone numbers, wrong passwords
	// and role mismatches alike: the caller never learns which one failed.
	ErrInvalidCredentials = errors.New("invalid phone number or password")

	// ErrUserLocked is surfaced distinctly so clients can show a useful
	// message for blocked accounts.
	ErrUserLocked = errors.New("user is locked")
)

// Service orchestrates the login and refresh flows: credential checks
// against the directory, token issuance via the codec, and recording via
// the token store.
type Service struct {
	directory Directory
	hasher    PasswordHasher
	codec     *Codec
	store     TokenStore
}

func NewService(directory Directory, hasher PasswordHasher, codec *Codec, store TokenStore) *Service {
	return &Service{
		directory: directory,
		hasher:    hasher,
		codec:     codec,
		store:     store,
	}
}

// Login verifies credentials and records a fresh token pair, evicting the
// user's weakest existing session if the quota is already full.
func (s *Service) Login(ctx context.Context, phoneNumber, password string, roleID int64, isMobile bool) (TokenRecord, Principal, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" || password == "" {
		return TokenRecord{}, Principal{}, ErrInvalidCredentials
	}

	account, err := s.directory.AccountByPhone(ctx, phoneNumber)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenRecord{}, Principal{}, ErrInvalidCredentials
		}
		return TokenRecord{}, Principal{}, err
	}

	// Accounts linked to an external identity provider have no local
	// password to check.
	if !account.HasSocialLogin && !s.hasher.Verify(password, account.PasswordHash) {
		return TokenRecord{}, Principal{}, ErrInvalidCredentials
	}

	if roleID != account.RoleID {
		return TokenRecord{}, Principal{}, ErrInvalidCredentials
	}

	if !account.Active {
		return TokenRecord{}, Principal{}, ErrUserLocked
	}

	record, err := s.issueAndRecord(ctx, account, isMobile)
	if err != nil {
		return TokenRecord{}, Principal{}, err
	}

	return record, principalFor(account), nil
}

// RefreshSession rotates the token pair referenced by refreshToken. The
// refresh token's own signature and expiry are verified before the store is
// consulted; a lookup match alone is not enough.
func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (TokenRecord, Principal, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenRecord{}, Principal{}, ErrTokenInvalid
	}

	claims, err := s.codec.ValidateFresh(refreshToken, useRefresh)
	if err != nil {
		return TokenRecord{}, Principal{}, err
	}

	account, err := s.directory.AccountByPhone(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenRecord{}, Principal{}, ErrNotFound
		}
		return TokenRecord{}, Principal{}, err
	}

	newAccess, err := s.codec.IssueAccess(account)
	if err != nil {
		return TokenRecord{}, Principal{}, fmt.Errorf("issue access token: %w", err)
	}
	newRefresh, err := s.codec.IssueRefresh(account)
	if err != nil {
		return TokenRecord{}, Principal{}, fmt.Errorf("issue refresh token: %w", err)
	}

	record, err := s.store.Refresh(ctx, refreshToken, account.ID, newAccess, newRefresh)
	if err != nil {
		return TokenRecord{}, Principal{}, err
	}

	return record, principalFor(account), nil
}

func (s *Service) issueAndRecord(ctx context.Context, account Account, isMobile bool) (TokenRecord, error) {
	access, err := s.codec.IssueAccess(account)
	if err != nil {
		return TokenRecord{}, fmt.Errorf("issue access token: %w", err)
	}

	refresh, err := s.codec.IssueRefresh(account)
	if err != nil {
		return TokenRecord{}, fmt.Errorf("issue refresh token: %w", err)
	}

	return s.store.Add(ctx, account.ID, access, refresh, isMobile)
}

func principalFor(account Account) Principal {
	return Principal{
		ID:          account.ID,
		PhoneNumber: account.PhoneNumber,
		Role:        account.Role,
		Active:      account.Active,
	}
}
