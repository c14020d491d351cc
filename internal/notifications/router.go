package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pizzabox/pizzabox-backend/internal/mailer"
	"github.com/pizzabox/pizzabox-backend/pkg/bus"
	"github.com/pizzabox/pizzabox-backend/pkg/db/models"
	"github.com/pizzabox/pizzabox-backend/pkg/enums"
	pkgerrors "github.com/pizzabox/pizzabox-backend/pkg/errors"
	"github.com/pizzabox/pizzabox-backend/pkg/logger"
)

// WirePayload is what the hub pushes over a websocket. Data carries the
// originating event payload untouched.
type WirePayload struct {
	NotificationID *uuid.UUID                 `json:"notification_id,omitempty"`
	Type           enums.NotificationType     `json:"type"`
	Priority       enums.NotificationPriority `json:"priority"`
	Title          string                     `json:"title"`
	Message        string                     `json:"message"`
	Data           json.RawMessage            `json:"data,omitempty"`
	OrderNo        string                     `json:"order_no,omitempty"`
	SentAt         time.Time                  `json:"sent_at"`
}

// Stored user notifications disappear from listings after this long.
const notificationTTL = 48 * time.Hour

// userTemplate describes the customer-facing rendering of one event type.
// Message tokens like {order_no} are filled from the event payload.
type userTemplate struct {
	Type     enums.NotificationType
	Priority enums.NotificationPriority
	Title    string
	Message  string
	Persist  bool
}

// adminTemplate is the admin-dashboard variant. Admin pushes are live-only
// and never stored.
type adminTemplate struct {
	Priority enums.NotificationPriority
	Title    string
	Message  string
}

type route struct {
	user  *userTemplate
	admin *adminTemplate
}

var routeTable = map[enums.EventType]route{
	enums.EventOrderCreated: {
		user: &userTemplate{
			Type:     enums.NotificationTypeOrderUpdate,
			Priority: enums.NotificationPriorityMedium,
			Title:    "Order placed",
			Message:  "Your order {order_no} has been placed and is awaiting confirmation.",
			Persist:  true,
		},
		admin: &adminTemplate{
			Priority: enums.NotificationPriorityHigh,
			Title:    "New order",
			Message:  "Order {order_no} placed for {total} ({item_count} items, {method}).",
		},
	},
	enums.EventOrderStatusChanged: {
		user: &userTemplate{
			Type:     enums.NotificationTypeOrderUpdate,
			Priority: enums.NotificationPriorityMedium,
			Title:    "Order update",
			// the emitting service words the transition
			Message: "{status_message}",
			Persist: true,
		},
		admin: &adminTemplate{
			Priority: enums.NotificationPriorityLow,
			Title:    "Order status changed",
			Message:  "Order {order_no} moved from {from_status} to {to_status}.",
		},
	},
	enums.EventOrderCancelled: {
		user: &userTemplate{
			Type:     enums.NotificationTypeOrderUpdate,
			Priority: enums.NotificationPriorityHigh,
			Title:    "Order cancelled",
			Message:  "Your order {order_no} has been cancelled.",
			Persist:  true,
		},
		admin: &adminTemplate{
			Priority: enums.NotificationPriorityMedium,
			Title:    "Order cancelled",
			Message:  "Order {order_no} was cancelled by the customer.",
		},
	},
	enums.EventPaymentSuccessful: {
		user: &userTemplate{
			Type:     enums.NotificationTypePaymentUpdate,
			Priority: enums.NotificationPriorityHigh,
			Title:    "Payment received",
			Message:  "We received your payment of {amount} for order {order_no}.",
			Persist:  true,
		},
		admin: &adminTemplate{
			Priority: enums.NotificationPriorityMedium,
			Title:    "Payment received",
			Message:  "Payment of {amount} confirmed for order {order_no}.",
		},
	},
	enums.EventPaymentFailed: {
		user: &userTemplate{
			Type:     enums.NotificationTypePaymentUpdate,
			Priority: enums.NotificationPriorityUrgent,
			Title:    "Payment failed",
			Message:  "Your payment for order {order_no} failed: {reason}. Please try again.",
			Persist:  true,
		},
		admin: &adminTemplate{
			Priority: enums.NotificationPriorityHigh,
			Title:    "Payment failed",
			Message:  "Payment for order {order_no} failed: {reason}.",
		},
	},
}

// Router turns bus messages into stored notifications and live websocket
// pushes. Rendering problems are logged per event; the listener never stops.
type Router struct {
	repo   Repository
	hub    *Hub
	logg   *logger.Logger
	mailer mailer.Mailer
	opsTo  string
}

func NewRouter(repo Repository, hub *Hub, logg *logger.Logger) (*Router, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if hub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "hub required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Router{repo: repo, hub: hub, logg: logg}, nil
}

// AttachMailer sends a mail copy of every high priority admin notification to
// the ops inbox. Delivery is fire-and-forget.
func (r *Router) AttachMailer(m mailer.Mailer, to string) {
	r.mailer = m
	r.opsTo = to
}

// Route dispatches one bus message. Unknown event types are dropped with a
// log line; a failure on the user variant does not stop the admin fan-out.
func (r *Router) Route(ctx context.Context, msg bus.Message) {
	logCtx := r.logg.WithEventType(ctx, msg.EventType.String())

	rt, ok := routeTable[msg.EventType]
	if !ok {
		r.logg.Warn(logCtx, "dropping event with no notification route")
		return
	}

	var fields map[string]any
	if err := json.Unmarshal(msg.Data, &fields); err != nil {
		r.logg.Error(logCtx, "dropping undecodable event payload", err)
		return
	}

	if rt.user != nil {
		if err := r.routeUser(logCtx, rt.user, msg, fields); err != nil {
			r.logg.Error(logCtx, "user notification failed", err)
		}
	}
	if rt.admin != nil {
		if err := r.routeAdmin(logCtx, rt.admin, fields); err != nil {
			r.logg.Error(logCtx, "admin notification failed", err)
		}
	}
}

func (r *Router) routeUser(ctx context.Context, tpl *userTemplate, msg bus.Message, fields map[string]any) error {
	userID, ok := userIDFrom(fields)
	if !ok {
		r.logg.Warn(ctx, "event has no user, skipping user notification")
		return nil
	}

	title, err := render(tpl.Title, fields)
	if err != nil {
		return err
	}
	message, err := render(tpl.Message, fields)
	if err != nil {
		return err
	}

	payload := WirePayload{
		Type:     tpl.Type,
		Priority: tpl.Priority,
		Title:    title,
		Message:  message,
		Data:     msg.Data,
		SentAt:   time.Now(),
	}
	if orderNo, ok := fields["order_no"].(string); ok {
		payload.OrderNo = orderNo
	}

	if tpl.Persist {
		expiresAt := time.Now().Add(notificationTTL)
		row := models.Notification{
			ID:        uuid.New(),
			UserID:    &userID,
			Type:      tpl.Type,
			Priority:  tpl.Priority,
			Title:     title,
			Message:   message,
			Data:      msg.Data,
			ExpiresAt: &expiresAt,
		}
		if payload.OrderNo != "" {
			row.OrderNo = &payload.OrderNo
		}
		if err := r.repo.Create(ctx, &row); err != nil {
			return fmt.Errorf("persist notification: %w", err)
		}
		payload.NotificationID = &row.ID
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	r.hub.SendToUser(userID, raw)
	return nil
}

func (r *Router) routeAdmin(ctx context.Context, tpl *adminTemplate, fields map[string]any) error {
	title, err := render(tpl.Title, fields)
	if err != nil {
		return err
	}
	message, err := render(tpl.Message, fields)
	if err != nil {
		return err
	}

	payload := WirePayload{
		Type:     enums.NotificationTypeSystem,
		Priority: tpl.Priority,
		Title:    title,
		Message:  message,
		SentAt:   time.Now(),
	}
	if orderNo, ok := fields["order_no"].(string); ok {
		payload.OrderNo = orderNo
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	r.hub.SendToAdmin(raw)

	if r.mailer != nil && tpl.Priority == enums.NotificationPriorityHigh {
		r.mailer.Send(ctx, mailer.Message{To: r.opsTo, Subject: title, Body: message})
	}
	return nil
}

func userIDFrom(fields map[string]any) (uuid.UUID, bool) {
	raw, ok := fields["user_id"].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// render substitutes {field} tokens from the event payload. A token with no
// matching field is an error.
func render(template string, fields map[string]any) (string, error) {
	var out strings.Builder
	rest := template
	for {
		start := strings.IndexByte(rest, '{')
		if start < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		out.WriteString(rest[:start])
		name := rest[start+1 : start+end]
		value, ok := fields[name]
		if !ok {
			return "", fmt.Errorf("template field %q missing from event payload", name)
		}
		out.WriteString(stringify(value))
		rest = rest[start+end+1:]
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
