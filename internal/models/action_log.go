package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActionLog is append-only: entries are written once per successful board
// or task mutation and never updated through the service.
type ActionLog struct {
	gorm.Model

	UserID    uint   `gorm:"not null;index"`
	BoardID   uint   `gorm:"not null;index"`
	TaskID    *uint  `gorm:"index"`
	Action    string `gorm:"not null"` // "created", "updated", "deleted", "assigned", "moved"
	Details   string
	Metadata  datatypes.JSON `gorm:"type:jsonb"` // snapshot of the mutated entity
	Timestamp time.Time      `gorm:"not null;index"`

	// Relationships
	User User  `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Task *Task `gorm:"foreignKey:TaskID;constraint:OnUpdate:Cascade,OnDelete:SET NULL"`
}
