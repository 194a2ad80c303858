package repository

import (
	"github.com/PawTalesApp/PawTales/app/models"
	"gorm.io/gorm"
)

// storyRepository implements the StoryRepository interface
type storyRepository struct {
	db *gorm.DB
}

// NewStoryRepository creates a new story repository instance
func NewStoryRepository(db *gorm.DB) StoryRepository {
	return &storyRepository{db: db}
}

func (r *storyRepository) Create(story *models.Story) error {
	return r.db.Create(story).Error
}

func (r *storyRepository) GetByID(id uint) (*models.Story, error) {
	var story models.Story
	err := r.db.First(&story, id).Error
	if err != nil {
		return nil, err
	}
	return &story, nil
}

func (r *storyRepository) GetByUUID(uuid string) (*models.Story, error) {
	var story models.Story
	err := r.db.Where("uuid = ?", uuid).First(&story).Error
	if err != nil {
		return nil, err
	}
	return &story, nil
}

func (r *storyRepository) GetByShareLink(shareLink string) (*models.Story, error) {
	var story models.Story
	err := r.db.Where("share_link = ? AND is_public = ?", shareLink, true).First(&story).Error
	if err != nil {
		return nil, err
	}
	return &story, nil
}

func (r *storyRepository) GetByUserID(userID uint, offset, limit int) ([]models.Story, error) {
	var stories []models.Story
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Offset(offset).Limit(limit).Find(&stories).Error
	return stories, err
}

func (r *storyRepository) GetPublicStories(offset, limit int) ([]models.Story, error) {
	var stories []models.Story
	err := r.db.Where("is_public = ? AND status = ?", true, models.StoryStatusComplete).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&stories).Error
	return stories, err
}

func (r *storyRepository) Update(story *models.Story) error {
	return r.db.Save(story).Error
}

// Delete soft deletes a story and its chapters
func (r *storyRepository) Delete(id uint) error {
	if err := r.db.Where("story_id = ?", id).Delete(&models.StoryChapter{}).Error; err != nil {
		return err
	}
	return r.db.Delete(&models.Story{}, id).Error
}

func (r *storyRepository) GetChapters(storyID uint) ([]models.StoryChapter, error) {
	var chapters []models.StoryChapter
	err := r.db.Where("story_id = ?", storyID).Order("number ASC").Find(&chapters).Error
	return chapters, err
}

func (r *storyRepository) GetChapter(storyID uint, number int) (*models.StoryChapter, error) {
	var chapter models.StoryChapter
	err := r.db.Where("story_id = ? AND number = ?", storyID, number).First(&chapter).Error
	if err != nil {
		return nil, err
	}
	return &chapter, nil
}

// SaveChapter creates or updates one chapter row
func (r *storyRepository) SaveChapter(chapter *models.StoryChapter) error {
	return r.db.Save(chapter).Error
}

func (r *storyRepository) CountChapters(storyID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.StoryChapter{}).Where("story_id = ?", storyID).Count(&count).Error
	return count, err
}

// AddViewCount applies a batched increment from the redis counter flush
func (r *storyRepository) AddViewCount(id uint, delta int64) error {
	return r.db.Model(&models.Story{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", delta)).Error
}
