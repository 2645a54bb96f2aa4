package store

import (
	"context"
	"strings"
	"sync"
)

type PaymentsStore struct {
	mu       sync.RWMutex
	payments map[string]PaymentRecord
}

func NewPaymentsStore() *PaymentsStore {
	return &PaymentsStore{
		payments: make(map[string]PaymentRecord),
	}
}

func (s *PaymentsStore) Get(ctx context.Context, id string) (PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.payments[id]
	if !ok {
		return PaymentRecord{}, ErrNotFound
	}
	return rec.clone(), nil
}

// Upsert creates the record if needed and merges the patch into it.
func (s *PaymentsStore) Upsert(ctx context.Context, id string, patch Patch) (PaymentRecord, error) {
	if strings.TrimSpace(id) == "" {
		return PaymentRecord{}, ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.payments[id]
	if !ok {
		rec = PaymentRecord{Identifier: id}
	}
	rec.apply(patch)
	s.payments[id] = rec
	return rec.clone(), nil
}

// Update merges the patch only into an existing record.
func (s *PaymentsStore) Update(ctx context.Context, id string, patch Patch) (PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.payments[id]
	if !ok {
		return PaymentRecord{}, ErrNotFound
	}
	rec.apply(patch)
	s.payments[id] = rec
	return rec.clone(), nil
}

func (s *PaymentsStore) All(ctx context.Context) (map[string]PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]PaymentRecord, len(s.payments))
	for id, rec := range s.payments {
		out[id] = rec.clone()
	}
	return out, nil
}

func (s *PaymentsStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.payments)
}
