package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishJSON(t *testing.T) {
	bus := NewEventBus()

	var got []*Event
	bus.Subscribe(EventBookingCreated, func(event *Event) error {
		got = append(got, event)
		return nil
	})

	payload := BookingEventPayload{
		BookingID:    42,
		ScheduleID:   7,
		CustomerID:   100,
		Participants: 2,
		Status:       "PENDING",
		Date:         time.Date(2026, 9, 5, 9, 0, 0, 0, time.UTC),
		TotalPrice:   500,
	}
	require.NoError(t, bus.PublishJSON(EventBookingCreated, payload))

	require.Len(t, got, 1)
	assert.Equal(t, EventBookingCreated, got[0].Type)
	assert.False(t, got[0].CreatedAt.IsZero())

	var decoded BookingEventPayload
	require.NoError(t, json.Unmarshal(got[0].Payload, &decoded))
	assert.Equal(t, payload, decoded)
}

func TestEventBus_OnlyMatchingTypeDelivered(t *testing.T) {
	bus := NewEventBus()

	created := 0
	cancelled := 0
	bus.Subscribe(EventBookingCreated, func(*Event) error { created++; return nil })
	bus.Subscribe(EventBookingCancelled, func(*Event) error { cancelled++; return nil })

	require.NoError(t, bus.PublishJSON(EventBookingCreated, BookingEventPayload{BookingID: 1}))

	assert.Equal(t, 1, created)
	assert.Zero(t, cancelled)
}

func TestEventBus_MultipleSubscribers(t *testing.T) {
	bus := NewEventBus()

	calls := 0
	bus.Subscribe(EventPaymentSettled, func(*Event) error { calls++; return nil })
	bus.Subscribe(EventPaymentSettled, func(*Event) error { calls++; return nil })

	require.NoError(t, bus.PublishJSON(EventPaymentSettled, PaymentEventPayload{PaymentID: "p1"}))
	assert.Equal(t, 2, calls)
}

func TestEventBus_NilBusIsNoop(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventBookingCreated, BookingEventPayload{}))
}
