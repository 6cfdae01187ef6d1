package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFulfillmentStatus_Progression(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusAccepted))
	assert.True(t, StatusPending.CanTransitionTo(StatusDelivered))
	assert.True(t, StatusAccepted.CanTransitionTo(StatusTransit))
	assert.True(t, StatusTransit.CanTransitionTo(StatusTransit))
	assert.False(t, StatusTransit.CanTransitionTo(StatusPending))
	assert.False(t, StatusDelivered.CanTransitionTo(StatusCancelled))
}

func TestFulfillmentStatus_CancelledAbsorbs(t *testing.T) {
	for _, s := range []FulfillmentStatus{StatusPending, StatusAccepted, StatusTransit} {
		assert.True(t, s.CanTransitionTo(StatusCancelled), s)
	}
	assert.False(t, StatusCancelled.CanTransitionTo(StatusPending))
	assert.True(t, StatusCancelled.IsTerminal())
	assert.Equal(t, -1, StatusCancelled.Step())
}

func TestFulfillmentStatus_IsValid(t *testing.T) {
	assert.True(t, StatusTransit.IsValid())
	assert.True(t, StatusCancelled.IsValid())
	assert.False(t, FulfillmentStatus("lost").IsValid())
	assert.Equal(t, 3, StatusDelivered.Step())
}
