package signing

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) (*ecdsa.PrivateKey, []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	return key, der
}

func verify(t *testing.T, key *ecdsa.PrivateKey, msg, sig string) {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(sig)
	require.NoError(t, err)
	digest := sha256.Sum256([]byte(msg))
	require.True(t, ecdsa.VerifyASN1(&key.PublicKey, digest[:], raw), "signature does not verify for %q", msg)
}

func TestMessage(t *testing.T) {
	require.Equal(t, "pay_1_1.5", Message("pay_1", decimal.NewFromFloat(1.5)))
	require.Equal(t, "pay_1_2", Message("pay_1", decimal.RequireFromString("2.00")))
	require.Equal(t, "pay_1_0.1", Message("pay_1", decimal.RequireFromString("0.10")))
}

func TestSigner_Sign(t *testing.T) {
	key, der := newKey(t)
	amount := decimal.NewFromFloat(1.5)

	t.Run("armored pem", func(t *testing.T) {
		armored := string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))
		s := New(armored)
		require.Equal(t, "pem", s.Strategy())

		sig, err := s.Sign("pay_1", amount)
		require.NoError(t, err)
		verify(t, key, "pay_1_1.5", sig)
	})

	t.Run("bare body gets synthesized armor", func(t *testing.T) {
		body := base64.StdEncoding.EncodeToString(der)
		// providers hand out keys wrapped across lines
		wrapped := body[:20] + "\n  " + body[20:40] + "\n" + body[40:]
		s := New(wrapped)
		require.Equal(t, "pem", s.Strategy())

		sig, err := s.Sign("pay_2", amount)
		require.NoError(t, err)
		verify(t, key, "pay_2_1.5", sig)
	})

	t.Run("pkcs8 body", func(t *testing.T) {
		pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
		require.NoError(t, err)
		s := New(base64.StdEncoding.EncodeToString(pkcs8))
		require.NotEmpty(t, s.Strategy())

		sig, err := s.Sign("pay_3", amount)
		require.NoError(t, err)
		verify(t, key, "pay_3_1.5", sig)
	})

	t.Run("falls back to raw base64 when armor cannot be decoded", func(t *testing.T) {
		require.NotZero(t, len(der)%3, "unpadded encoding needs a length not divisible by 3")
		s := New(base64.RawURLEncoding.EncodeToString(der))

		attempts := s.Attempts()
		require.Len(t, attempts, 2)
		require.Equal(t, "pem", attempts[0].Strategy)
		require.Error(t, attempts[0].Err)
		require.Equal(t, "raw-base64", attempts[1].Strategy)
		require.True(t, attempts[1].OK())
		require.Equal(t, "raw-base64", s.Strategy())

		sig, err := s.Sign("pay_4", amount)
		require.NoError(t, err)
		verify(t, key, "pay_4_1.5", sig)
	})

	t.Run("deterministic for a fixed key", func(t *testing.T) {
		s := New(base64.StdEncoding.EncodeToString(der))
		first, err := s.Sign("pay_5", amount)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := s.Sign("pay_5", amount)
			require.NoError(t, err)
			require.Equal(t, first, again)
		}

		other, err := s.Sign("pay_5", decimal.NewFromInt(2))
		require.NoError(t, err)
		require.NotEqual(t, first, other)
	})
}

func TestSigner_Errors(t *testing.T) {
	t.Run("no key configured", func(t *testing.T) {
		s := New("   ")
		require.False(t, s.Configured())

		sig, err := s.Sign("pay_1", decimal.NewFromInt(1))
		require.ErrorIs(t, err, ErrNoKey)
		require.Empty(t, sig)
	})

	t.Run("garbage key reports every strategy", func(t *testing.T) {
		s := New("definitely-not-a-key!!")
		require.True(t, s.Configured())
		require.Empty(t, s.Strategy())

		sig, err := s.Sign("pay_1", decimal.NewFromInt(1))
		require.Empty(t, sig)

		var signErr *Error
		require.True(t, errors.As(err, &signErr))
		require.Equal(t, "pay_1", signErr.PaymentID)
		require.Len(t, signErr.Attempts, 2)
		require.True(t, strings.Contains(err.Error(), "pem:"))
		require.True(t, strings.Contains(err.Error(), "raw-base64:"))
	})

	t.Run("failed chain is decoded once", func(t *testing.T) {
		calls := 0
		chain := []Strategy{
			{Name: "broken", Decode: func(string) (*ecdsa.PrivateKey, error) { calls++; return nil, errors.New("nope") }},
		}
		s := NewWithStrategies("anything", chain)
		require.Equal(t, 1, calls)

		for i := 0; i < 2; i++ {
			_, err := s.Sign("pay_1", decimal.NewFromInt(1))
			var signErr *Error
			require.ErrorAs(t, err, &signErr)
			require.Len(t, signErr.Attempts, 1)
			require.Equal(t, "broken", signErr.Attempts[0].Strategy)
		}
		require.Equal(t, 1, calls)
	})

	t.Run("custom strategy chain", func(t *testing.T) {
		key, _ := newKey(t)
		calls := 0
		chain := []Strategy{
			{Name: "broken", Decode: func(string) (*ecdsa.PrivateKey, error) { calls++; return nil, errors.New("nope") }},
			{Name: "fixed", Decode: func(string) (*ecdsa.PrivateKey, error) { calls++; return key, nil }},
			{Name: "unreached", Decode: func(string) (*ecdsa.PrivateKey, error) { calls++; return nil, nil }},
		}
		s := NewWithStrategies("anything", chain)
		require.Equal(t, 2, calls)
		require.Equal(t, "fixed", s.Strategy())

		sig, err := s.Sign("pay_9", decimal.NewFromInt(3))
		require.NoError(t, err)
		verify(t, key, "pay_9_3", sig)
	})
}
