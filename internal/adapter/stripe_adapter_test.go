package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(14999), ToMinorUnits(149.99))
	assert.Equal(t, int64(6000), ToMinorUnits(60))
	assert.Equal(t, int64(0), ToMinorUnits(0))
	// Binary float representation of 0.1+0.2 style amounts must still round
	// to the exact cent.
	assert.Equal(t, int64(30), ToMinorUnits(0.1+0.2))
	assert.Equal(t, int64(2999), ToMinorUnits(29.99))
}

func TestMockStripeAdapter_CreateRefund(t *testing.T) {
	mock := NewMockStripeAdapter(zap.NewNop())

	result, err := mock.CreateRefund(context.Background(), "pi_test", 14999, "test", "refund-pi_test")
	require.NoError(t, err)
	assert.Equal(t, RefundSucceeded, result.Status)
	assert.NotEmpty(t, result.RefundID)
}

func TestMockStripeAdapter_CreateRefund_IdempotencyReplay(t *testing.T) {
	mock := NewMockStripeAdapter(zap.NewNop())

	first, err := mock.CreateRefund(context.Background(), "pi_test", 14999, "test", "refund-pi_test")
	require.NoError(t, err)

	replayed, err := mock.CreateRefund(context.Background(), "pi_test", 14999, "test", "refund-pi_test")
	require.NoError(t, err)
	assert.Equal(t, first.RefundID, replayed.RefundID, "same key must replay the original refund")

	other, err := mock.CreateRefund(context.Background(), "pi_other", 5000, "test", "refund-pi_other")
	require.NoError(t, err)
	assert.NotEqual(t, first.RefundID, other.RefundID)
}
