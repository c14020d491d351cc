package enums

import "fmt"

// NotificationType categorizes a user-facing notification.
type NotificationType string

const (
	NotificationTypeOrderUpdate    NotificationType = "order_update"
	NotificationTypePaymentUpdate  NotificationType = "payment_update"
	NotificationTypeDeliveryUpdate NotificationType = "delivery_update"
	NotificationTypeCartReminder   NotificationType = "cart_reminder"
	NotificationTypePromotion      NotificationType = "promotion"
	NotificationTypeSystem         NotificationType = "system"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderUpdate,
	NotificationTypePaymentUpdate,
	NotificationTypeDeliveryUpdate,
	NotificationTypeCartReminder,
	NotificationTypePromotion,
	NotificationTypeSystem,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

// NotificationPriority ranks delivery urgency.
type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityMedium NotificationPriority = "medium"
	NotificationPriorityHigh   NotificationPriority = "high"
	NotificationPriorityUrgent NotificationPriority = "urgent"
)

var validNotificationPriorities = []NotificationPriority{
	NotificationPriorityLow,
	NotificationPriorityMedium,
	NotificationPriorityHigh,
	NotificationPriorityUrgent,
}

// String implements fmt.Stringer.
func (n NotificationPriority) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationPriority.
func (n NotificationPriority) IsValid() bool {
	for _, candidate := range validNotificationPriorities {
		if candidate == n {
			return true
		}
	}
	return false
}

// NotificationChannel names a delivery channel for a notification.
type NotificationChannel string

const (
	NotificationChannelWebsocket NotificationChannel = "websocket"
	NotificationChannelEmail     NotificationChannel = "email"
)

// String implements fmt.Stringer.
func (n NotificationChannel) String() string {
	return string(n)
}
