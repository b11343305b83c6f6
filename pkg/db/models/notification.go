package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/ordercore-backend/pkg/enums"
)

// Notification stores an in-app message addressed to one user.
type Notification struct {
	ID        uuid.UUID              `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID              `gorm:"type:uuid;not null;index" json:"user_id"`
	Type      enums.NotificationType `gorm:"type:varchar(32);not null" json:"type"`
	Title     string                 `gorm:"type:text;not null" json:"title"`
	Content   string                 `gorm:"type:text;not null" json:"content"`
	Link      *string                `gorm:"type:text" json:"link,omitempty"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `gorm:"autoCreateTime" json:"created_at"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}

// OperationLog is an append-only audit row.
type OperationLog struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID        `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Username   string            `gorm:"type:text;not null;default:''" json:"username"`
	Action     enums.AuditAction `gorm:"type:varchar(32);not null" json:"action"`
	TargetType string            `gorm:"type:varchar(32);not null" json:"target_type"`
	TargetID   string            `gorm:"type:text;not null" json:"target_id"`
	Content    string            `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
}

func (l *OperationLog) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
