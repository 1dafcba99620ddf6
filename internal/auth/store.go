package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxTokensPerUser caps live sessions per user. The cap is enforced inside
// Add, never lazily, so the table can never hold more live rows than this.
const MaxTokensPerUser = 3

// TokenStore persists issued token records and applies the per-user quota.
type TokenStore interface {
	Add(ctx context.Context, userID, token, refreshToken string, isMobile bool) (TokenRecord, error)
	FindByUser(ctx context.Context, userID string) ([]TokenRecord, error)
	FindByRefreshToken(ctx context.Context, refreshToken string) (TokenRecord, error)
	Delete(ctx context.Context, id string) error
	Refresh(ctx context.Context, refreshToken, userID, newToken, newRefreshToken string) (TokenRecord, error)
}

// pickEvictionVictim chooses which record to drop when a user is at quota.
// Records must be ordered oldest first. Non-mobile sessions go before
// mobile ones; within a class the oldest loses.
func pickEvictionVictim(records []TokenRecord) TokenRecord {
	for _, record := range records {
		if !record.IsMobile {
			return record
		}
	}

	return records[0]
}

// PostgresTokenStore keeps token records in the tokens table. Add serializes
// per user with an advisory transaction lock: row locks alone cannot fence
// off inserts by concurrent logins (a user with no rows has nothing to
// lock), the advisory lock can.
type PostgresTokenStore struct {
	db         *sql.DB
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewPostgresTokenStore(db *sql.DB, accessTTL, refreshTTL time.Duration) *PostgresTokenStore {
	return &PostgresTokenStore{
		db:         db,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

const tokenColumns = `id, token, refresh_token, token_type, expiration_date,
	refresh_expiration_date, revoked, expired, is_mobile, user_id, created_at`

func scanToken(row interface{ Scan(...any) error }) (TokenRecord, error) {
	var record TokenRecord
	err := row.Scan(
		&record.ID, &record.Token, &record.RefreshToken, &record.TokenType,
		&record.ExpirationDate, &record.RefreshExpirationDate,
		&record.Revoked, &record.Expired, &record.IsMobile,
		&record.UserID, &record.CreatedAt,
	)
	return record, err
}

func (s *PostgresTokenStore) Add(ctx context.Context, userID, token, refreshToken string, isMobile bool) (TokenRecord, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return TokenRecord{}, fmt.Errorf("generate token id: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return TokenRecord{}, fmt.Errorf("begin add token tx: %w", err)
	}
	defer tx.Rollback()

	// The advisory lock is released at commit/rollback. It covers the whole
	// check-evict-insert sequence, including the fresh-user case where the
	// token set is empty and FOR UPDATE would lock nothing.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
		return TokenRecord{}, fmt.Errorf("lock user token set: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT `+tokenColumns+`
		FROM tokens
		WHERE user_id = $1
		ORDER BY created_at ASC
		FOR UPDATE
	`, userID)
	if err != nil {
		return TokenRecord{}, fmt.Errorf("lock user tokens: %w", err)
	}

	existing, err := collectTokens(rows)
	if err != nil {
		return TokenRecord{}, err
	}

	if len(existing) >= MaxTokensPerUser {
		victim := pickEvictionVictim(existing)
		if _, err := tx.ExecContext(ctx, `DELETE FROM tokens WHERE id = $1`, victim.ID); err != nil {
			return TokenRecord{}, fmt.Errorf("evict token: %w", err)
		}
	}

	now := s.now().UTC()
	record := TokenRecord{
		ID:                    id.String(),
		Token:                 token,
		RefreshToken:          refreshToken,
		TokenType:             TokenTypeBearer,
		ExpirationDate:        now.Add(s.accessTTL),
		RefreshExpirationDate: now.Add(s.refreshTTL),
		IsMobile:              isMobile,
		UserID:                userID,
		CreatedAt:             now,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tokens (id, token, refresh_token, token_type, expiration_date,
			refresh_expiration_date, revoked, expired, is_mobile, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, false, $7, $8, $9)
	`, record.ID, record.Token, record.RefreshToken, record.TokenType,
		record.ExpirationDate, record.RefreshExpirationDate,
		record.IsMobile, record.UserID, record.CreatedAt)
	if err != nil {
		return TokenRecord{}, fmt.Errorf("insert token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return TokenRecord{}, fmt.Errorf("commit add token tx: %w", err)
	}

	return record, nil
}

func (s *PostgresTokenStore) FindByUser(ctx context.Context, userID string) ([]TokenRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+tokenColumns+`
		FROM tokens
		WHERE user_id = $1
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query tokens by user: %w", err)
	}

	return collectTokens(rows)
}

func (s *PostgresTokenStore) FindByRefreshToken(ctx context.Context, refreshToken string) (TokenRecord, error) {
	record, err := scanToken(s.db.QueryRowContext(ctx, `
		SELECT `+tokenColumns+`
		FROM tokens
		WHERE refresh_token = $1
	`, refreshToken))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TokenRecord{}, ErrNotFound
		}
		return TokenRecord{}, fmt.Errorf("query token by refresh token: %w", err)
	}

	return record, nil
}

func (s *PostgresTokenStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete token rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Refresh replaces the stored token pair in place: same row, same owner,
// same device class, new token values and expirations.
func (s *PostgresTokenStore) Refresh(ctx context.Context, refreshToken, userID, newToken, newRefreshToken string) (TokenRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return TokenRecord{}, fmt.Errorf("begin refresh tx: %w", err)
	}
	defer tx.Rollback()

	record, err := scanToken(tx.QueryRowContext(ctx, `
		SELECT `+tokenColumns+`
		FROM tokens
		WHERE refresh_token = $1
		FOR UPDATE
	`, refreshToken))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TokenRecord{}, ErrNotFound
		}
		return TokenRecord{}, fmt.Errorf("lock token by refresh token: %w", err)
	}

	if record.UserID != userID {
		return TokenRecord{}, ErrNotFound
	}

	now := s.now().UTC()
	record.Token = newToken
	record.RefreshToken = newRefreshToken
	record.ExpirationDate = now.Add(s.accessTTL)
	record.RefreshExpirationDate = now.Add(s.refreshTTL)

	_, err = tx.ExecContext(ctx, `
		UPDATE tokens
		SET token = $2, refresh_token = $3, expiration_date = $4, refresh_expiration_date = $5
		WHERE id = $1
	`, record.ID, record.Token, record.RefreshToken, record.ExpirationDate, record.RefreshExpirationDate)
	if err != nil {
		return TokenRecord{}, fmt.Errorf("update token pair: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return TokenRecord{}, fmt.Errorf("commit refresh tx: %w", err)
	}

	return record, nil
}

func collectTokens(rows *sql.Rows) ([]TokenRecord, error) {
	defer rows.Close()

	records := make([]TokenRecord, 0)
	for rows.Next() {
		record, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}

	return records, nil
}
