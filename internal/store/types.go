package store

import (
	"maps"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusCreated   Status = "created"
	StatusApproved  Status = "approved"
	StatusCompleted Status = "completed"
)

// rank orders the locally driven lifecycle. Provider event names rank 0.
func (s Status) rank() int {
	switch s {
	case StatusCreated:
		return 1
	case StatusApproved:
		return 2
	case StatusCompleted:
		return 3
	default:
		return 0
	}
}

// IsLifecycle reports whether s is one of created, approved or completed.
func (s Status) IsLifecycle() bool { return s.rank() > 0 }

type PaymentRecord struct {
	Identifier  string          `json:"identifier"`
	Amount      decimal.Decimal `json:"amount"`
	Memo        string          `json:"memo,omitempty"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	UserUID     string          `json:"userUid,omitempty"`
	Status      Status          `json:"status"`
	LastEvent   string          `json:"lastEvent,omitempty"`
	TxID        string          `json:"txid,omitempty"`
	CreatedAt   *time.Time      `json:"createdAt,omitempty"`
	ApprovedAt  *time.Time      `json:"approvedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	UpdatedAt   *time.Time      `json:"updatedAt,omitempty"`
}

// Patch lists the fields to change. Nil fields are left untouched.
type Patch struct {
	Amount      *decimal.Decimal
	Memo        *string
	Metadata    map[string]any
	UserUID     *string
	Status      *Status
	LastEvent   *string
	TxID        *string
	CreatedAt   *time.Time
	ApprovedAt  *time.Time
	CompletedAt *time.Time
	UpdatedAt   *time.Time

	// ForceStatus lets provider notifications overwrite status regardless of
	// lifecycle order.
	ForceStatus bool
}

func (r PaymentRecord) clone() PaymentRecord {
	out := r
	if r.Metadata != nil {
		out.Metadata = maps.Clone(r.Metadata)
	}
	out.CreatedAt = cloneTime(r.CreatedAt)
	out.ApprovedAt = cloneTime(r.ApprovedAt)
	out.CompletedAt = cloneTime(r.CompletedAt)
	out.UpdatedAt = cloneTime(r.UpdatedAt)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// apply merges p into r. Transition timestamps are written once and kept.
func (r *PaymentRecord) apply(p Patch) {
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.Memo != nil {
		r.Memo = *p.Memo
	}
	if p.Metadata != nil {
		r.Metadata = maps.Clone(p.Metadata)
	}
	if p.UserUID != nil {
		r.UserUID = *p.UserUID
	}
	if p.Status != nil && (p.ForceStatus || canAdvance(r.Status, *p.Status)) {
		r.Status = *p.Status
	}
	if p.LastEvent != nil {
		r.LastEvent = *p.LastEvent
	}
	if p.TxID != nil {
		r.TxID = *p.TxID
	}
	if p.CreatedAt != nil && r.CreatedAt == nil {
		r.CreatedAt = cloneTime(p.CreatedAt)
	}
	if p.ApprovedAt != nil && r.ApprovedAt == nil {
		r.ApprovedAt = cloneTime(p.ApprovedAt)
	}
	if p.CompletedAt != nil && r.CompletedAt == nil {
		r.CompletedAt = cloneTime(p.CompletedAt)
	}
	if p.UpdatedAt != nil {
		r.UpdatedAt = cloneTime(p.UpdatedAt)
	}
}

func canAdvance(from, to Status) bool {
	if !to.IsLifecycle() || !from.IsLifecycle() {
		return true
	}
	return to.rank() >= from.rank()
}

// Ptr is a small helper for building patches.
func Ptr[T any](v T) *T { return &v }
