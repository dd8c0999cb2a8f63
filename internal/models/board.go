package models

import "gorm.io/gorm"

// Board names are stored trimmed and lower-cased; the unique index is what
// makes name uniqueness hold under concurrent creates.
type Board struct {
	gorm.Model

	Name    string `gorm:"uniqueIndex;not null"`
	OwnerID uint   `gorm:"not null;index"`

	// Optional outgoing activity notifications
	DiscordWebhook string
	SlackWebhook   string

	// Relationships
	Owner       User              `gorm:"foreignKey:OwnerID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Memberships []BoardMembership `gorm:"foreignKey:BoardID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Tasks       []Task            `gorm:"foreignKey:BoardID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
