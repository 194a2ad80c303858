package models

import (
	"time"

	"gorm.io/gorm"
)

type Pet struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UUID         string         `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	UserID       uint           `gorm:"not null;index" json:"user_id"`
	Name         string         `gorm:"type:varchar(100);not null" json:"name" validate:"required,min=1,max=100"`
	Species      string         `gorm:"type:varchar(50);default:''" json:"species" validate:"max=50"`
	Breed        string         `gorm:"type:varchar(100);default:''" json:"breed" validate:"max=100"`
	PhotoKey     string         `gorm:"type:varchar(255);not null" json:"photo_key"`
	PhotoMime    string         `gorm:"type:varchar(50);default:''" json:"photo_mime"`
	IsPublic     bool           `gorm:"default:false;index" json:"is_public"`
	ShareLink    string         `gorm:"type:varchar(20);uniqueIndex" json:"share_link"`
	ViewCount    int64          `gorm:"default:0" json:"view_count"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// PetPersona holds the AI-generated character for a pet: an illustrated
// portrait plus a short lore text. Regenerating either one is a costed
// operation gated by the entitlement ledger.
type PetPersona struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	PetID           uint           `gorm:"uniqueIndex" json:"pet_id"`
	Title           string         `gorm:"type:varchar(150);default:''" json:"title"`
	Lore            string         `gorm:"type:text" json:"lore"`
	PortraitKey     string         `gorm:"type:varchar(255);default:''" json:"portrait_key"`
	LoreRegenCount  int            `gorm:"default:0" json:"lore_regen_count"`
	ImageRegenCount int            `gorm:"default:0" json:"image_regen_count"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}
