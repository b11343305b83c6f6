package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every persisted model in dependency order, used for AutoMigrate.
func All() []any {
	return []any{
		&Product{},
		&Order{},
		&OrderItem{},
		&OrderHistory{},
		&Payment{},
		&GatewayTrade{},
		&Notification{},
		&OperationLog{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}

// AutoMigrate creates the schema through GORM. Only used with the sqlite driver.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(All()...)
}
