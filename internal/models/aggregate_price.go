package models

import (
	"time"
)

// AggregatePrice is the denormalized value of one entity under one price source.
// There is exactly one row per (entity, source type) once the entity has been aggregated.
type AggregatePrice struct {
	EntityID     string            `json:"entity_id" gorm:"primaryKey"`
	SourceType   SourceType        `json:"source_type" gorm:"primaryKey"`
	EntityKind   EntityKind        `json:"entity_kind" gorm:"not null;index"`
	UpdatedAt    time.Time         `json:"updated_at" gorm:"index"`
	Data         map[string]string `json:"data" gorm:"type:text;serializer:json"`
	DataMissing  map[string]int    `json:"data_missing" gorm:"type:text;serializer:json"`
	Price        string            `json:"price" gorm:"not null;default:'0.00'"`
	PriceMissing int               `json:"price_missing" gorm:"not null;default:0"`
}

func (AggregatePrice) TableName() string { return "entity_prices" }

// EntityPricesResponse is the API response for an entity's stored aggregate rows
type EntityPricesResponse struct {
	EntityID   string           `json:"entity_id"`
	EntityKind EntityKind       `json:"entity_kind"`
	Recomputed bool             `json:"recomputed"`
	Outcome    string           `json:"outcome"`
	Prices     []AggregatePrice `json:"prices"`
}
