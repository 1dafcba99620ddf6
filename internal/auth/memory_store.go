package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryTokenStore is a mutex-guarded TokenStore for tests and local runs
// without Postgres. It applies the same quota and eviction rules as the
// Postgres store; the mutex makes Add's check-then-insert atomic.
type MemoryTokenStore struct {
	mu         sync.Mutex
	byUser     map[string][]TokenRecord
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewMemoryTokenStore(accessTTL, refreshTTL time.Duration) *MemoryTokenStore {
	return &MemoryTokenStore{
		byUser:     make(map[string][]TokenRecord),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (s *MemoryTokenStore) Add(ctx context.Context, userID, token, refreshToken string, isMobile bool) (TokenRecord, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return TokenRecord{}, fmt.Errorf("generate token id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.byUser[userID]
	if len(records) >= MaxTokensPerUser {
		victim := pickEvictionVictim(records)
		records = deleteRecord(records, victim.ID)
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

	s.byUser[userID] = append(records, record)

	return record, nil
}

func (s *MemoryTokenStore) FindByUser(ctx context.Context, userID string) ([]TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.byUser[userID]
	out := make([]TokenRecord, len(records))
	copy(out, records)

	return out, nil
}

func (s *MemoryTokenStore) FindByRefreshToken(ctx context.Context, refreshToken string) (TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, records := range s.byUser {
		for _, record := range records {
			if record.RefreshToken == refreshToken {
				return record, nil
			}
		}
	}

	return TokenRecord{}, ErrNotFound
}

func (s *MemoryTokenStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for userID, records := range s.byUser {
		next := deleteRecord(records, id)
		if len(next) != len(records) {
			s.byUser[userID] = next
			return nil
		}
	}

	return ErrNotFound
}

func (s *MemoryTokenStore) Refresh(ctx context.Context, refreshToken, userID, newToken, newRefreshToken string) (TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.byUser[userID]
	for i, record := range records {
		if record.RefreshToken != refreshToken {
			continue
		}

		now := s.now().UTC()
		record.Token = newToken
		record.RefreshToken = newRefreshToken
		record.ExpirationDate = now.Add(s.accessTTL)
		record.RefreshExpirationDate = now.Add(s.refreshTTL)
		records[i] = record

		return record, nil
	}

	return TokenRecord{}, ErrNotFound
}

func deleteRecord(records []TokenRecord, id string) []TokenRecord {
	out := records[:0:0]
	for _, record := range records {
		if record.ID != id {
			out = append(out, record)
		}
	}

	return out
}
