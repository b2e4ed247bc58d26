package models

import (
	"time"

	"gorm.io/datatypes"
)

// StoreEntry is one key of the durable local store when it is backed by SQL.
type StoreEntry struct {
	Namespace string         `gorm:"primaryKey;size:64" json:"namespace"`
	Key       string         `gorm:"column:entry_key;primaryKey;size:191" json:"key"`
	Value     datatypes.JSON `gorm:"type:json" json:"value"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TableName returns the table name for StoreEntry.
func (StoreEntry) TableName() string {
	return "store_entries"
}
