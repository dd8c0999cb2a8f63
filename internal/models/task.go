package models

import (
	"time"

	"gorm.io/gorm"
)

// Task titles are stored trimmed and lower-cased. The composite unique
// index scopes title uniqueness to the board.
type Task struct {
	gorm.Model

	Title        string `gorm:"not null;uniqueIndex:idx_board_title"`
	Description  string `gorm:"not null"`
	BoardID      uint   `gorm:"not null;index;uniqueIndex:idx_board_title"`
	AssignedToID *uint  `gorm:"index"`
	Status       string `gorm:"not null;default:todo"` // "todo", "in-progress", "done"
	Priority     string `gorm:"not null;default:medium"` // "high", "medium", "low"
	LastModified time.Time

	// Relationships
	Board      Board `gorm:"foreignKey:BoardID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
	AssignedTo *User `gorm:"foreignKey:AssignedToID;constraint:OnUpdate:Cascade,OnDelete:SET NULL"`
}
