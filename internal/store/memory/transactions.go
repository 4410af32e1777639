package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"parking-facility/internal/recorder"
)

type TransactionStore struct {
	mu        sync.RWMutex
	bySession map[string]*recorder.Transaction
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{bySession: make(map[string]*recorder.Transaction)}
}

func (s *TransactionStore) Record(_ context.Context, tx recorder.Transaction) (*recorder.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.bySession[tx.SessionID]; ok {
		out := *existing
		return &out, nil
	}

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	stored := tx
	s.bySession[tx.SessionID] = &stored
	return &tx, nil
}

func (s *TransactionStore) GetBySession(_ context.Context, sessionID string) (*recorder.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.bySession[sessionID]
	if !ok {
		return nil, fmt.Errorf("memory: session %s: %w", sessionID, recorder.ErrNotFound)
	}
	out := *tx
	return &out, nil
}

func (s *TransactionStore) List(_ context.Context) ([]*recorder.Transaction, error) {
	s.mu.RLock()
	out := make([]*recorder.Transaction, 0, len(s.bySession))
	for _, tx := range s.bySession {
		c := *tx
		out = append(out, &c)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
