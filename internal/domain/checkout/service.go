package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pipay/internal/events"
	"pipay/internal/payments"
	"pipay/internal/store"
)

// Service drives a payment through create, approve and complete against the
// provider and keeps the local record store in step.
type Service struct {
	gateway   payments.PaymentGateway
	signer    Signer
	payments  store.PaymentsRepository
	publisher events.Publisher
	logger    *zap.SugaredLogger
	now       func() time.Time
}

func NewService(
	gateway payments.PaymentGateway,
	signer Signer,
	repo store.PaymentsRepository,
	publisher events.Publisher,
	logger *zap.SugaredLogger,
) *Service {
	return &Service{
		gateway:   gateway,
		signer:    signer,
		payments:  repo,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the time source used for record timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.logger.Infow("creating payment", "userUid", in.UserUID, "amount", in.Amount.String(), "memo", in.Memo)

	pay, err := s.gateway.CreatePayment(ctx, payments.CreatePaymentRequest{
		Amount:   in.Amount,
		Memo:     in.Memo,
		Metadata: in.Metadata,
		UserUID:  in.UserUID,
	})
	if err != nil {
		return nil, err
	}

	amount := in.Amount
	if pay.Amount.Valid {
		amount = pay.Amount.Decimal
	}
	memo := pay.Memo
	if memo == "" {
		memo = in.Memo
	}

	now := s.now()
	rec, err := s.payments.Upsert(ctx, pay.Identifier, store.Patch{
		Amount:    &amount,
		Memo:      &memo,
		Metadata:  in.Metadata,
		UserUID:   &in.UserUID,
		Status:    store.Ptr(store.StatusCreated),
		CreatedAt: &now,
	})
	if err != nil {
		return nil, fmt.Errorf("cache created payment: %w", err)
	}

	s.logger.Infow("payment created", "paymentId", pay.Identifier)
	s.publish(ctx, events.TypePaymentCreated, rec)

	return &CreateResult{
		PaymentID:      pay.Identifier,
		Amount:         amount,
		Memo:           memo,
		ProviderStatus: pay.Status,
		UserUID:        in.UserUID,
		Record:         rec,
	}, nil
}

// Approve signs "{paymentID}_{amount}" and submits the approval. It never
// calls the provider's approve endpoint without a resolved amount.
func (s *Service) Approve(ctx context.Context, paymentID string, hint decimal.NullDecimal) (*ApproveResult, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, invalid("paymentId", "is required")
	}

	amount, source, err := s.resolveAmount(ctx, paymentID, hint)
	if err != nil {
		return nil, err
	}

	signature, err := s.signer.Sign(paymentID, amount)
	if err != nil {
		return nil, fmt.Errorf("sign approval for %s: %w", paymentID, err)
	}

	raw, err := s.gateway.ApprovePayment(ctx, paymentID, signature)
	if err != nil {
		s.logger.Errorw("payment approval rejected", "paymentId", paymentID, "err", err)
		return nil, err
	}

	now := s.now()
	rec, err := s.payments.Upsert(ctx, paymentID, store.Patch{
		Amount:     &amount,
		Status:     store.Ptr(store.StatusApproved),
		ApprovedAt: &now,
	})
	if err != nil {
		return nil, fmt.Errorf("cache approved payment: %w", err)
	}

	s.logger.Infow("payment approved", "paymentId", paymentID, "amount", amount.String(), "amountSource", source)
	s.publish(ctx, events.TypePaymentApproved, rec)

	return &ApproveResult{
		PaymentID:    paymentID,
		Signature:    signature,
		Amount:       amount,
		AmountSource: source,
		Provider:     raw,
	}, nil
}

// resolveAmount tries the caller's hint, then the cache, then the provider.
func (s *Service) resolveAmount(ctx context.Context, paymentID string, hint decimal.NullDecimal) (decimal.Decimal, AmountSource, error) {
	if hint.Valid && hint.Decimal.IsPositive() {
		return hint.Decimal, AmountFromHint, nil
	}

	rec, err := s.payments.Get(ctx, paymentID)
	switch {
	case err == nil && rec.Amount.IsPositive():
		return rec.Amount, AmountFromCache, nil
	case err != nil && !errors.Is(err, store.ErrNotFound):
		s.logger.Warnw("payment cache read failed", "paymentId", paymentID, "err", err)
	}

	pay, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		s.logger.Warnw("provider lookup for amount failed", "paymentId", paymentID, "err", err)
		return decimal.Decimal{}, "", fmt.Errorf("%w for %s: provider lookup: %w", ErrMissingAmount, paymentID, err)
	}
	if pay.Amount.Valid && pay.Amount.Decimal.IsPositive() {
		return pay.Amount.Decimal, AmountFromProvider, nil
	}
	return decimal.Decimal{}, "", fmt.Errorf("%w for %s", ErrMissingAmount, paymentID)
}

// Complete finalizes the payment with the provider. Ordering against Approve is
// left to the provider to enforce.
func (s *Service) Complete(ctx context.Context, paymentID, txid string) (*CompleteResult, error) {
	paymentID = strings.TrimSpace(paymentID)
	txid = strings.TrimSpace(txid)
	if paymentID == "" {
		return nil, invalid("paymentId", "is required")
	}
	if txid == "" {
		return nil, invalid("txid", "is required")
	}

	s.logger.Infow("completing payment", "paymentId", paymentID, "txid", txid)

	raw, err := s.gateway.CompletePayment(ctx, paymentID, txid)
	if err != nil {
		s.logger.Errorw("payment completion rejected", "paymentId", paymentID, "err", err)
		return nil, err
	}

	now := s.now()
	rec, err := s.payments.Upsert(ctx, paymentID, store.Patch{
		Status:      store.Ptr(store.StatusCompleted),
		TxID:        &txid,
		CompletedAt: &now,
	})
	if err != nil {
		return nil, fmt.Errorf("cache completed payment: %w", err)
	}

	s.logger.Infow("payment completed", "paymentId", paymentID)
	s.publish(ctx, events.TypePaymentCompleted, rec)

	return &CompleteResult{PaymentID: paymentID, TxID: txid, Provider: raw}, nil
}

// Lookup serves the cached record when present, otherwise the provider's view.
// A provider that answers with an error status yields an "unknown" placeholder.
func (s *Service) Lookup(ctx context.Context, paymentID string) (LookupResult, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return LookupResult{}, invalid("paymentId", "is required")
	}

	rec, err := s.payments.Get(ctx, paymentID)
	if err == nil {
		return LookupResult{Source: LookupCache, Record: &rec}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return LookupResult{}, err
	}

	pay, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		var perr *payments.ProviderError
		if errors.As(err, &perr) {
			return LookupResult{
				Source: LookupUnknown,
				Miss: &UnknownPayment{
					Identifier: paymentID,
					Status:     "unknown",
					Message:    "payment not found",
				},
			}, nil
		}
		return LookupResult{}, err
	}
	return LookupResult{Source: LookupProvider, Remote: pay.Raw}, nil
}

func (s *Service) List(ctx context.Context) (map[string]store.PaymentRecord, error) {
	return s.payments.All(ctx)
}

func (s *Service) publish(ctx context.Context, typ string, rec store.PaymentRecord) {
	if s.publisher == nil {
		return
	}
	e := events.NewEvent(typ, rec.Identifier, s.now())
	e.Status = string(rec.Status)
	e.Amount = rec.Amount
	e.TxID = rec.TxID
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warnw("failed to publish payment event", "type", typ, "paymentId", rec.Identifier, "err", err)
	}
}
