package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("resource not found")
	ErrInvalidID = errors.New("payment identifier is required")
)

// PaymentsRepository is the keyed cache every flow consults before the provider.
// Implementations must apply each Patch as one atomic read-modify-write.
type PaymentsRepository interface {
	Get(ctx context.Context, id string) (PaymentRecord, error)
	Upsert(ctx context.Context, id string, patch Patch) (PaymentRecord, error)
	Update(ctx context.Context, id string, patch Patch) (PaymentRecord, error)
	All(ctx context.Context) (map[string]PaymentRecord, error)
	Count(ctx context.Context) int
}

type Storage struct {
	Payments PaymentsRepository
}

// NewStorage returns process-local storage. Contents are lost on restart and
// nothing is ever evicted, so memory grows with the number of payments seen.
func NewStorage() Storage {
	return Storage{
		Payments: NewPaymentsStore(),
	}
}
