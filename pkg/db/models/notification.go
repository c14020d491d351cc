package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/pizzabox/pizzabox-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to users.
// Data carries the originating event payload; rows past ExpiresAt are
// hidden from listings.
type Notification struct {
	ID        uuid.UUID                  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    *uuid.UUID                 `gorm:"column:user_id;type:uuid;index"`
	Type      enums.NotificationType     `gorm:"column:type;type:text;not null"`
	Priority  enums.NotificationPriority `gorm:"column:priority;type:text;not null;default:'medium'"`
	Title     string                     `gorm:"type:text;not null"`
	Message   string                     `gorm:"type:text;not null"`
	Data      json.RawMessage            `gorm:"column:data;type:jsonb"`
	OrderNo   *string                    `gorm:"column:order_no"`
	ReadAt    *time.Time                 `gorm:"column:read_at"`
	ExpiresAt *time.Time                 `gorm:"column:expires_at"`
	CreatedAt time.Time                  `gorm:"column:created_at;autoCreateTime"`
}
