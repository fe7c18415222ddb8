package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fortebank/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deliveryRecorder struct {
	acked    bool
	rejected bool
	requeued bool
}

func (d *deliveryRecorder) ack() error {
	d.acked = true
	return nil
}

func (d *deliveryRecorder) reject(requeue bool) error {
	d.rejected = true
	d.requeued = requeue
	return nil
}

func postingBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(PostingMessage{
		AccountID: "acc-1",
		Type:      models.Credit,
		Amount:    10000,
		Subtype:   models.SubtypeDeposit,
		Reference: "TXN-1",
	})
	require.NoError(t, err)
	return body
}

func TestSettleDelivery(t *testing.T) {
	ctx := context.Background()

	t.Run("success acks", func(t *testing.T) {
		rec := &deliveryRecorder{}
		handled := false
		settleDelivery(ctx, postingBody(t), false, rec.ack, rec.reject, func(ctx context.Context, msg PostingMessage) error {
			handled = true
			assert.Equal(t, "TXN-1", msg.Reference)
			return nil
		})

		assert.True(t, handled)
		assert.True(t, rec.acked)
		assert.False(t, rec.rejected)
	})

	t.Run("first failure requeues", func(t *testing.T) {
		rec := &deliveryRecorder{}
		settleDelivery(ctx, postingBody(t), false, rec.ack, rec.reject, func(ctx context.Context, msg PostingMessage) error {
			return errors.New("store unavailable")
		})

		assert.False(t, rec.acked)
		assert.True(t, rec.rejected)
		assert.True(t, rec.requeued, "a transient failure gets a second attempt")
	})

	t.Run("redelivered failure drops", func(t *testing.T) {
		rec := &deliveryRecorder{}
		settleDelivery(ctx, postingBody(t), true, rec.ack, rec.reject, func(ctx context.Context, msg PostingMessage) error {
			return errors.New("store unavailable")
		})

		assert.False(t, rec.acked)
		assert.True(t, rec.rejected)
		assert.False(t, rec.requeued, "a second failure must not loop forever")
	})

	t.Run("poison body drops without requeue", func(t *testing.T) {
		rec := &deliveryRecorder{}
		settleDelivery(ctx, []byte("not json"), false, rec.ack, rec.reject, func(ctx context.Context, msg PostingMessage) error {
			t.Fatal("handler must not run for an unparseable body")
			return nil
		})

		assert.False(t, rec.acked)
		assert.True(t, rec.rejected)
		assert.False(t, rec.requeued)
	})
}
