package webhooks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pipay/internal/domain/checkout"
	"pipay/internal/events"
	"pipay/internal/store"
)

const (
	DefaultDelay   = 100 * time.Millisecond
	DefaultTimeout = 30 * time.Second
)

var ErrClosed = errors.New("webhooks: reconciler closed")

type Approver interface {
	Approve(ctx context.Context, paymentID string, hint decimal.NullDecimal) (*checkout.ApproveResult, error)
}

type Config struct {
	AutoApprove bool
	Delay       time.Duration
	Timeout     time.Duration
}

// Reconciler applies provider notifications to the record store after the
// delivery has been acknowledged.
type Reconciler struct {
	approver  Approver
	payments  store.PaymentsRepository
	publisher events.Publisher
	logger    *zap.SugaredLogger
	cfg       Config

	now   func() time.Time
	after func(d time.Duration, f func())

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	scheduled atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
}

func NewReconciler(
	approver Approver,
	repo store.PaymentsRepository,
	publisher events.Publisher,
	logger *zap.SugaredLogger,
	cfg Config,
) *Reconciler {
	if cfg.Delay < 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Reconciler{
		approver:  approver,
		payments:  repo,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// Schedule queues n for processing after the configured delay and returns
// immediately. It fails only once Close has been called.
func (r *Reconciler) Schedule(n Notification) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.wg.Add(1)
	r.mu.Unlock()

	r.scheduled.Add(1)
	r.after(r.cfg.Delay, func() {
		defer r.wg.Done()
		r.run(n)
	})
	return nil
}

func (r *Reconciler) run(n Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.Timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			r.failed.Add(1)
			r.logger.Errorw("webhook processing panicked", "deliveryId", n.DeliveryID, "event", n.Event, "paymentId", n.PaymentID, "panic", rec)
		}
	}()

	if err := r.Process(ctx, n); err != nil {
		r.failed.Add(1)
		r.logger.Errorw("webhook processing failed", "deliveryId", n.DeliveryID, "event", n.Event, "paymentId", n.PaymentID, "err", err)
		return
	}
	r.processed.Add(1)
}

// Process reconciles one notification synchronously. Unknown payment ids leave
// the store untouched.
func (r *Reconciler) Process(ctx context.Context, n Notification) error {
	if n.PaymentID == "" {
		r.logger.Warnw("webhook without payment identifier", "deliveryId", n.DeliveryID, "event", n.Event)
		return nil
	}

	if r.cfg.AutoApprove && n.Event == EventPaymentCreated {
		if _, err := r.approver.Approve(ctx, n.PaymentID, n.Amount); err != nil {
			r.failed.Add(1)
			r.logger.Errorw("webhook auto-approve failed", "paymentId", n.PaymentID, "err", err)
		} else {
			r.logger.Infow("payment auto-approved from webhook", "paymentId", n.PaymentID)
		}
	}

	now := r.now()
	patch := store.Patch{
		LastEvent:   &n.Event,
		UpdatedAt:   &now,
		ForceStatus: true,
	}
	if status := n.TargetStatus(); status != "" {
		patch.Status = store.Ptr(store.Status(status))
	}

	rec, err := r.payments.Update(ctx, n.PaymentID, patch)
	if errors.Is(err, store.ErrNotFound) {
		r.logger.Infow("webhook for unknown payment ignored", "paymentId", n.PaymentID, "event", n.Event)
		return nil
	}
	if err != nil {
		return fmt.Errorf("update payment %s: %w", n.PaymentID, err)
	}

	r.logger.Infow("webhook reconciled", "paymentId", n.PaymentID, "event", n.Event, "status", rec.Status)

	if n.Event == EventPaymentCompleted {
		if term, ok := rec.Metadata["queryTerm"].(string); ok && term != "" {
			r.logger.Infow("completed payment search term", "paymentId", n.PaymentID, "queryTerm", term)
		}
	}

	if r.publisher != nil {
		e := events.NewEvent(events.TypeWebhookPrefix+n.Event, n.PaymentID, now)
		e.Status = string(rec.Status)
		e.Amount = rec.Amount
		e.TxID = rec.TxID
		if err := r.publisher.Publish(ctx, e); err != nil {
			r.logger.Warnw("failed to publish webhook event", "paymentId", n.PaymentID, "err", err)
		}
	}
	return nil
}

// Close stops accepting notifications and waits for scheduled ones to finish
// or for ctx to expire.
func (r *Reconciler) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type Stats struct {
	Scheduled int64 `json:"scheduled"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

func (r *Reconciler) Stats() Stats {
	return Stats{
		Scheduled: r.scheduled.Load(),
		Processed: r.processed.Load(),
		Failed:    r.failed.Load(),
	}
}
