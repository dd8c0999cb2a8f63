package models

import "gorm.io/gorm"

// BoardMembership rows are never updated, only inserted and deleted, so
// ascending ID is the order members joined the board. The owner's row is
// inserted at board creation and therefore always sorts first.
type BoardMembership struct {
	gorm.Model

	UserID  uint `gorm:"not null;uniqueIndex:idx_user_board"`
	BoardID uint `gorm:"not null;uniqueIndex:idx_user_board"`

	// Relationships
	User  User  `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Board Board `gorm:"foreignKey:BoardID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
