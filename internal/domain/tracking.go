package domain

// StepState is how far an order has got relative to one tracking step.
type StepState string

const (
	StepCompleted StepState = "completed"
	StepCurrent   StepState = "current"
	StepUpcoming  StepState = "upcoming"
)

// TrackingStep is one row of the tracking view
type TrackingStep struct {
	Status      OrderStatus `json:"status"`
	Label       string      `json:"label"`
	Description string      `json:"description"`
	State       StepState   `json:"state"`
}

// Tracking is the customer-facing progress of an order. A cancelled order
// has no steps.
type Tracking struct {
	OrderNumber string         `json:"order_number"`
	Status      OrderStatus    `json:"status"`
	Cancelled   bool           `json:"cancelled"`
	Message     string         `json:"message,omitempty"`
	Steps       []TrackingStep `json:"steps,omitempty"`
}

var stepText = map[OrderStatus][2]string{
	OrderStatusPending:   {"Order Placed", "Your order has been placed successfully"},
	OrderStatusConfirmed: {"Order Confirmed", "Seller confirmed your order"},
	OrderStatusPacked:    {"Packed", "Items are packed and ready to ship"},
	OrderStatusShipped:   {"Out for Delivery", "Your order is on the way"},
	OrderStatusDelivered: {"Delivered", "Order delivered successfully"},
}

// Track projects an order status onto the fixed fulfillment steps.
func Track(order *Order) Tracking {
	t := Tracking{
		OrderNumber: order.OrderNumber,
		Status:      order.OrderStatus,
	}

	if order.OrderStatus == OrderStatusCancelled {
		t.Cancelled = true
		t.Message = "This order has been cancelled"
		return t
	}

	current := order.OrderStatus.StepIndex()
	t.Steps = make([]TrackingStep, 0, len(FulfillmentSteps))
	for i, status := range FulfillmentSteps {
		state := StepUpcoming
		switch {
		case i < current:
			state = StepCompleted
		case i == current:
			state = StepCurrent
		}
		text := stepText[status]
		t.Steps = append(t.Steps, TrackingStep{
			Status:      status,
			Label:       text[0],
			Description: text[1],
			State:       state,
		})
	}

	return t
}

// CurrentStep returns the step in StepCurrent state, if any.
func (t Tracking) CurrentStep() (TrackingStep, bool) {
	for _, step := range t.Steps {
		if step.State == StepCurrent {
			return step, true
		}
	}
	return TrackingStep{}, false
}
