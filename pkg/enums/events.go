package enums

// EventTopic names a pub/sub channel on the event bus.
type EventTopic string

const (
	TopicOrderEvents    EventTopic = "order_events"
	TopicPaymentEvents  EventTopic = "payment_events"
	TopicDeliveryEvents EventTopic = "delivery_events"
	TopicCartEvents     EventTopic = "cart_events"
	TopicPromoEvents    EventTopic = "promo_events"
)

var validEventTopics = []EventTopic{
	TopicOrderEvents,
	TopicPaymentEvents,
	TopicDeliveryEvents,
	TopicCartEvents,
	TopicPromoEvents,
}

// String implements fmt.Stringer.
func (t EventTopic) String() string {
	return string(t)
}

// IsValid reports whether the value is a known EventTopic.
func (t EventTopic) IsValid() bool {
	for _, candidate := range validEventTopics {
		if candidate == t {
			return true
		}
	}
	return false
}

// EventType is the discriminant injected into every published event payload.
type EventType string

const (
	EventOrderCreated       EventType = "order_created"
	EventOrderStatusChanged EventType = "order_status_changed"
	EventOrderCancelled     EventType = "order_cancelled"
	EventOrderDelayed       EventType = "order_delayed"
	EventPaymentSuccessful  EventType = "payment_successful"
	EventPaymentFailed      EventType = "payment_failed"
)

var validEventTypes = []EventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderCancelled,
	EventOrderDelayed,
	EventPaymentSuccessful,
	EventPaymentFailed,
}

// String implements fmt.Stringer.
func (t EventType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known EventType.
func (t EventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}
