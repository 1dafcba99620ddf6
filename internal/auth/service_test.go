package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	byPhone map[string]Account
}

func (d *fakeDirectory) AccountByPhone(_ context.Context, phoneNumber string) (Account, error) {
	account, ok := d.byPhone[phoneNumber]
	if !ok {
		return Account{}, ErrNotFound
	}
	return account, nil
}

func (d *fakeDirectory) AccountByID(_ context.Context, id string) (Account, error) {
	for _, account := range d.byPhone {
		if account.ID == id {
			return account, nil
		}
	}
	return Account{}, ErrNotFound
}

func newTestService(t *testing.T) (*Service, *MemoryTokenStore, *Codec, Account) {
	t.Helper()

	hasher := BcryptHasher{}
	digest, err := hasher.Hash("correct-horse")
	require.NoError(t, err)

	account := Account{
		ID:           "0190a8b2-2222-7000-8000-000000000002",
		PhoneNumber:  "+84901234567",
		PasswordHash: digest,
		RoleID:       1,
		Role:         "user",
		Active:       true,
	}

	directory := &fakeDirectory{byPhone: map[string]Account{account.PhoneNumber: account}}
	codec := testCodec()
	store := newTestStore()

	return NewService(directory, hasher, codec, store), store, codec, account
}

func TestServiceLogin_Success(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	service, store, codec, account := newTestService(t)

	record, principal, err := service.Login(ctx, account.PhoneNumber, "correct-horse", 1, true)
	require.NoError(t, err)

	assert.Equal(t, TokenTypeBearer, record.TokenType)
	assert.True(t, record.IsMobile)
	assert.Equal(t, account.ID, principal.ID)
	assert.Equal(t, "user", principal.Role)

	claims, err := codec.Validate(record.Token)
	require.NoError(t, err)
	assert.Equal(t, account.PhoneNumber, claims.Subject)

	records, err := store.FindByUser(ctx, account.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestServiceLogin_Failures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("unknown phone looks like bad password", func(t *testing.T) {
		service, _, _, _ := newTestService(t)
		_, _, err := service.Login(ctx, "+84000000000", "whatever", 1, false)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		service, _, _, account := newTestService(t)
		_, _, err := service.Login(ctx, account.PhoneNumber, "wrong", 1, false)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("role mismatch", func(t *testing.T) {
		service, _, _, account := newTestService(t)
		_, _, err := service.Login(ctx, account.PhoneNumber, "correct-horse", 2, false)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("empty credentials", func(t *testing.T) {
		service, _, _, _ := newTestService(t)
		_, _, err := service.Login(ctx, "", "", 1, false)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestServiceLogin_LockedUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	service, _, _, account := newTestService(t)

	locked := account
	locked.Active = false
	service.directory.(*fakeDirectory).byPhone[account.PhoneNumber] = locked

	_, _, err := service.Login(ctx, account.PhoneNumber, "correct-horse", 1, false)
	assert.ErrorIs(t, err, ErrUserLocked)
}

func TestServiceLogin_SocialAccountSkipsPassword(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	service, _, _, account := newTestService(t)

	social := account
	social.HasSocialLogin = true
	social.PasswordHash = ""
	service.directory.(*fakeDirectory).byPhone[account.PhoneNumber] = social

	_, _, err := service.Login(ctx, account.PhoneNumber, "anything", 1, false)
	require.NoError(t, err)
}

func TestServiceRefreshSession_RotatesPair(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	service, store, _, account := newTestService(t)

	record, _, err := service.Login(ctx, account.PhoneNumber, "correct-horse", 1, false)
	require.NoError(t, err)

	rotated, principal, err := service.RefreshSession(ctx, record.RefreshToken)
	require.NoError(t, err)

	assert.Equal(t, record.ID, rotated.ID)
	assert.NotEqual(t, record.Token, rotated.Token)
	assert.NotEqual(t, record.RefreshToken, rotated.RefreshToken)
	assert.Equal(t, account.ID, principal.ID)

	records, err := store.FindByUser(ctx, account.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestServiceRefreshSession_RejectsBadTokens(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	service, _, codec, account := newTestService(t)

	record, _, err := service.Login(ctx, account.PhoneNumber, "correct-horse", 1, false)
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		_, _, err := service.RefreshSession(ctx, "")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		_, _, err := service.RefreshSession(ctx, record.Token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("tampered", func(t *testing.T) {
		_, _, err := service.RefreshSession(ctx, record.RefreshToken+"x")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("expired refresh token rejected before store lookup", func(t *testing.T) {
		codec.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
		defer func() { codec.now = time.Now }()

		_, _, err := service.RefreshSession(ctx, record.RefreshToken)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("valid signature but unknown to the store", func(t *testing.T) {
		foreign, err := codec.IssueRefresh(account)
		require.NoError(t, err)

		_, _, err = service.RefreshSession(ctx, foreign)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
