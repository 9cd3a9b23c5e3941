package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrack(t *testing.T) {
	for i, status := range FulfillmentSteps {
		t.Run(string(status), func(t *testing.T) {
			tracking := Track(&Order{OrderNumber: "ORD42", OrderStatus: status})

			assert.False(t, tracking.Cancelled)
			require.Len(t, tracking.Steps, len(FulfillmentSteps))
			for j, step := range tracking.Steps {
				switch {
				case j < i:
					assert.Equal(t, StepCompleted, step.State)
				case j == i:
					assert.Equal(t, StepCurrent, step.State)
				default:
					assert.Equal(t, StepUpcoming, step.State)
				}
				assert.NotEmpty(t, step.Label)
			}

			current, ok := tracking.CurrentStep()
			require.True(t, ok)
			assert.Equal(t, status, current.Status)
		})
	}
}

func TestTrackCancelled(t *testing.T) {
	tracking := Track(&Order{OrderNumber: "ORD42", OrderStatus: OrderStatusCancelled})

	assert.True(t, tracking.Cancelled)
	assert.Empty(t, tracking.Steps)
	assert.NotEmpty(t, tracking.Message)

	_, ok := tracking.CurrentStep()
	assert.False(t, ok)
}
