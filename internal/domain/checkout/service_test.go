package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pipay/internal/events"
	"pipay/internal/payments"
	"pipay/internal/payments/mocks"
	"pipay/internal/signing"
	"pipay/internal/store"
)

type recordingSigner struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (s *recordingSigner) Sign(paymentID string, amount decimal.Decimal) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	msg := signing.Message(paymentID, amount)
	s.messages = append(s.messages, msg)
	return "sig(" + msg + ")", nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type fixture struct {
	gateway   *mocks.PaymentGateway
	signer    *recordingSigner
	repo      *store.PaymentsStore
	publisher *recordingPublisher
	svc       *Service
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		gateway:   mocks.NewPaymentGateway(t),
		signer:    &recordingSigner{},
		repo:      store.NewPaymentsStore(),
		publisher: &recordingPublisher{},
	}
	f.svc = NewService(f.gateway, f.signer, f.repo, f.publisher, zap.NewNop().Sugar()).
		WithClock(func() time.Time { return fixedNow })
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func hint(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("caches created record", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("CreatePayment", mock.Anything, mock.MatchedBy(func(r payments.CreatePaymentRequest) bool {
			return r.Amount.Equal(dec("2.5")) && r.Memo == "coffee" && r.UserUID == "u1"
		})).Return(&payments.Payment{
			Identifier: "pay_1",
			Amount:     hint("2.5"),
			Memo:       "coffee",
			Status:     json.RawMessage(`{"developer_approved":false}`),
		}, nil).Once()

		res, err := f.svc.Create(ctx, CreateInput{
			Amount:   dec("2.5"),
			Memo:     "coffee",
			UserUID:  "u1",
			Metadata: map[string]any{"queryTerm": "beans"},
		})
		require.NoError(t, err)
		require.Equal(t, "pay_1", res.PaymentID)
		require.JSONEq(t, `{"developer_approved":false}`, string(res.ProviderStatus))

		rec, err := f.repo.Get(ctx, "pay_1")
		require.NoError(t, err)
		require.Equal(t, store.StatusCreated, rec.Status)
		require.True(t, rec.Amount.Equal(dec("2.5")))
		require.Equal(t, "u1", rec.UserUID)
		require.Equal(t, "beans", rec.Metadata["queryTerm"])
		require.NotNil(t, rec.CreatedAt)
		require.Equal(t, []string{events.TypePaymentCreated}, f.publisher.types())
	})

	t.Run("rejects invalid input before calling provider", func(t *testing.T) {
		f := newFixture(t)
		cases := []CreateInput{
			{Amount: dec("0"), Memo: "m", UserUID: "u"},
			{Amount: dec("-1"), Memo: "m", UserUID: "u"},
			{Amount: dec("1"), Memo: " ", UserUID: "u"},
			{Amount: dec("1"), Memo: "m"},
		}
		for _, in := range cases {
			_, err := f.svc.Create(ctx, in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		}
		f.gateway.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
	})

	t.Run("provider failure leaves cache untouched", func(t *testing.T) {
		f := newFixture(t)
		perr := &payments.ProviderError{Op: payments.OpCreate, StatusCode: 401}
		f.gateway.On("CreatePayment", mock.Anything, mock.Anything).Return(nil, perr).Once()

		_, err := f.svc.Create(ctx, CreateInput{Amount: dec("1"), Memo: "m", UserUID: "u"})
		require.ErrorIs(t, err, perr)
		require.Zero(t, f.repo.Count(ctx))
	})
}

func TestService_Approve(t *testing.T) {
	ctx := context.Background()

	t.Run("hint amount is signed in canonical form", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("ApprovePayment", mock.Anything, "P1", "sig(P1_1.5)").
			Return(json.RawMessage(`{"identifier":"P1"}`), nil).Once()

		res, err := f.svc.Approve(ctx, "P1", hint("1.50"))
		require.NoError(t, err)
		require.Equal(t, []string{"P1_1.5"}, f.signer.messages)
		require.Equal(t, AmountFromHint, res.AmountSource)
		require.Equal(t, "sig(P1_1.5)", res.Signature)

		rec, err := f.repo.Get(ctx, "P1")
		require.NoError(t, err)
		require.Equal(t, store.StatusApproved, rec.Status)
		require.True(t, rec.Amount.Equal(dec("1.5")))
		require.Equal(t, fixedNow, *rec.ApprovedAt)
		require.Equal(t, []string{events.TypePaymentApproved}, f.publisher.types())
		f.gateway.AssertNotCalled(t, "GetPayment", mock.Anything, mock.Anything)
	})

	t.Run("cached amount is used when no hint", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.repo.Upsert(ctx, "P2", store.Patch{Amount: store.Ptr(dec("1.5")), Status: store.Ptr(store.StatusCreated)})
		require.NoError(t, err)
		f.gateway.On("ApprovePayment", mock.Anything, "P2", "sig(P2_1.5)").Return(json.RawMessage(`{}`), nil).Once()

		res, err := f.svc.Approve(ctx, "P2", decimal.NullDecimal{})
		require.NoError(t, err)
		require.Equal(t, AmountFromCache, res.AmountSource)
		f.gateway.AssertNotCalled(t, "GetPayment", mock.Anything, mock.Anything)
	})

	t.Run("provider lookup resolves amount", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("GetPayment", mock.Anything, "P3").Return(&payments.Payment{Identifier: "P3", Amount: hint("0.25")}, nil).Once()
		f.gateway.On("ApprovePayment", mock.Anything, "P3", "sig(P3_0.25)").Return(json.RawMessage(`{}`), nil).Once()

		res, err := f.svc.Approve(ctx, "P3", hint("0"))
		require.NoError(t, err)
		require.Equal(t, AmountFromProvider, res.AmountSource)
		require.True(t, res.Amount.Equal(dec("0.25")))
	})

	t.Run("missing amount never reaches approve", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("GetPayment", mock.Anything, "P4").Return(&payments.Payment{Identifier: "P4"}, nil).Once()

		_, err := f.svc.Approve(ctx, "P4", decimal.NullDecimal{})
		require.ErrorIs(t, err, ErrMissingAmount)
		f.gateway.AssertNotCalled(t, "ApprovePayment", mock.Anything, mock.Anything, mock.Anything)
		require.Empty(t, f.signer.messages)
	})

	t.Run("failed lookup becomes missing amount", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("GetPayment", mock.Anything, "P5").
			Return(nil, &payments.TimeoutError{Op: payments.OpLookup, After: time.Second}).Once()

		_, err := f.svc.Approve(ctx, "P5", decimal.NullDecimal{})
		require.ErrorIs(t, err, ErrMissingAmount)
		var terr *payments.TimeoutError
		require.ErrorAs(t, err, &terr)
		require.Equal(t, payments.OpLookup, terr.Op)
		f.gateway.AssertNotCalled(t, "ApprovePayment", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("signing failure never reaches approve", func(t *testing.T) {
		f := newFixture(t)
		f.svc.signer = signing.New("")

		_, err := f.svc.Approve(ctx, "P6", hint("1"))
		require.ErrorIs(t, err, signing.ErrNoKey)
		f.gateway.AssertNotCalled(t, "ApprovePayment", mock.Anything, mock.Anything, mock.Anything)
		_, err = f.repo.Get(ctx, "P6")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("provider rejection leaves record unchanged", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.repo.Upsert(ctx, "P7", store.Patch{Amount: store.Ptr(dec("1")), Status: store.Ptr(store.StatusCreated)})
		require.NoError(t, err)
		perr := &payments.ProviderError{Op: payments.OpApprove, StatusCode: 400, Message: "already approved"}
		f.gateway.On("ApprovePayment", mock.Anything, "P7", mock.Anything).Return(nil, perr).Once()

		_, err = f.svc.Approve(ctx, "P7", decimal.NullDecimal{})
		var got *payments.ProviderError
		require.ErrorAs(t, err, &got)
		require.Equal(t, payments.OpApprove, got.Op)

		rec, err := f.repo.Get(ctx, "P7")
		require.NoError(t, err)
		require.Equal(t, store.StatusCreated, rec.Status)
		require.Nil(t, rec.ApprovedAt)
		require.Empty(t, f.publisher.types())
	})

	t.Run("blank id is a validation error", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Approve(ctx, "  ", hint("1"))
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, "paymentId", verr.Field)
	})
}

func TestService_Complete(t *testing.T) {
	ctx := context.Background()

	t.Run("marks record completed", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.repo.Upsert(ctx, "P1", store.Patch{Amount: store.Ptr(dec("1")), Status: store.Ptr(store.StatusApproved)})
		require.NoError(t, err)
		f.gateway.On("CompletePayment", mock.Anything, "P1", "tx_9").Return(json.RawMessage(`{"ok":true}`), nil).Once()

		res, err := f.svc.Complete(ctx, "P1", "tx_9")
		require.NoError(t, err)
		require.JSONEq(t, `{"ok":true}`, string(res.Provider))

		rec, err := f.repo.Get(ctx, "P1")
		require.NoError(t, err)
		require.Equal(t, store.StatusCompleted, rec.Status)
		require.Equal(t, "tx_9", rec.TxID)
		require.True(t, rec.Amount.Equal(dec("1")))
		require.NotNil(t, rec.CompletedAt)
		require.Equal(t, []string{events.TypePaymentCompleted}, f.publisher.types())
	})

	t.Run("unknown id is still cached", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("CompletePayment", mock.Anything, "P2", "tx").Return(json.RawMessage(`{}`), nil).Once()

		_, err := f.svc.Complete(ctx, "P2", "tx")
		require.NoError(t, err)
		rec, err := f.repo.Get(ctx, "P2")
		require.NoError(t, err)
		require.Equal(t, store.StatusCompleted, rec.Status)
	})

	t.Run("provider rejection surfaces as provider error", func(t *testing.T) {
		f := newFixture(t)
		perr := &payments.ProviderError{Op: payments.OpComplete, StatusCode: 400, Payload: json.RawMessage(`{"error":"bad txid"}`)}
		f.gateway.On("CompletePayment", mock.Anything, "P3", "tx").Return(nil, perr).Once()

		_, err := f.svc.Complete(ctx, "P3", "tx")
		var got *payments.ProviderError
		require.ErrorAs(t, err, &got)
		require.Equal(t, 400, got.StatusCode)
		require.Zero(t, f.repo.Count(ctx))
	})

	t.Run("missing txid", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Complete(ctx, "P4", "")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, "txid", verr.Field)
	})
}

func TestService_Lookup(t *testing.T) {
	ctx := context.Background()

	t.Run("cache hit skips provider", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.repo.Upsert(ctx, "P1", store.Patch{Status: store.Ptr(store.StatusCreated)})
		require.NoError(t, err)

		res, err := f.svc.Lookup(ctx, "P1")
		require.NoError(t, err)
		require.Equal(t, LookupCache, res.Source)
		require.Equal(t, "P1", res.Data().(*store.PaymentRecord).Identifier)
	})

	t.Run("provider body passes through", func(t *testing.T) {
		f := newFixture(t)
		raw := json.RawMessage(`{"identifier":"P2","amount":4}`)
		f.gateway.On("GetPayment", mock.Anything, "P2").Return(&payments.Payment{Identifier: "P2", Raw: raw}, nil).Once()

		res, err := f.svc.Lookup(ctx, "P2")
		require.NoError(t, err)
		require.Equal(t, LookupProvider, res.Source)
		require.Equal(t, raw, res.Data())
	})

	t.Run("provider miss yields unknown placeholder", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.On("GetPayment", mock.Anything, "P3").
			Return(nil, &payments.ProviderError{Op: payments.OpLookup, StatusCode: 404}).Once()

		res, err := f.svc.Lookup(ctx, "P3")
		require.NoError(t, err)
		require.Equal(t, LookupUnknown, res.Source)
		require.Equal(t, &UnknownPayment{Identifier: "P3", Status: "unknown", Message: "payment not found"}, res.Data())
	})

	t.Run("timeout is returned", func(t *testing.T) {
		f := newFixture(t)
		terr := &payments.TimeoutError{Op: payments.OpLookup, After: time.Second, Err: context.DeadlineExceeded}
		f.gateway.On("GetPayment", mock.Anything, "P4").Return(nil, terr).Once()

		_, err := f.svc.Lookup(ctx, "P4")
		require.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, id := range []string{"a", "b"} {
		_, err := f.repo.Upsert(ctx, id, store.Patch{Status: store.Ptr(store.StatusCreated)})
		require.NoError(t, err)
	}

	all, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Contains(t, all, "a")
}
