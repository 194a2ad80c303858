package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	StoryStatusDraft      = "draft"
	StoryStatusGenerating = "generating"
	StoryStatusComplete   = "complete"
	StoryStatusFailed     = "failed"
)

type Story struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UUID      string         `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	PetID     uint           `gorm:"not null;index" json:"pet_id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Title     string         `gorm:"type:varchar(200);default:''" json:"title"`
	Status    string         `gorm:"type:varchar(20);default:'draft';index" json:"status"`
	IsPublic  bool           `gorm:"default:false;index" json:"is_public"`
	ShareLink string         `gorm:"type:varchar(20);uniqueIndex" json:"share_link"`
	ViewCount int64          `gorm:"default:0" json:"view_count"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Chapters []StoryChapter `gorm:"foreignKey:StoryID" json:"chapters,omitempty"`
}

// StoryChapter is one illustrated chapter of a pet story. Chapter text and
// illustration are produced by separate costed generation calls, so the
// illustration key may lag behind the text.
type StoryChapter struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	StoryID         uint           `gorm:"not null;index:idx_story_chapters_story_number,priority:1" json:"story_id"`
	Number          int            `gorm:"not null;index:idx_story_chapters_story_number,priority:2" json:"number"`
	Title           string         `gorm:"type:varchar(200);default:''" json:"title"`
	Body            string         `gorm:"type:text" json:"body"`
	IllustrationKey string         `gorm:"type:varchar(255);default:''" json:"illustration_key"`
	ImageRegenCount int            `gorm:"default:0" json:"image_regen_count"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}
