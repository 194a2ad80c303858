package repository

import (
	"github.com/PawTalesApp/PawTales/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByActivationToken(token string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// PetRepository defines the interface for pet-related database operations
type PetRepository interface {
	Create(pet *models.Pet) error
	GetByID(id uint) (*models.Pet, error)
	GetByUUID(uuid string) (*models.Pet, error)
	GetByShareLink(shareLink string) (*models.Pet, error)
	GetByUserID(userID uint) ([]models.Pet, error)
	CountByUserID(userID uint) (int64, error)
	Update(pet *models.Pet) error
	Delete(id uint) error
	GetPersona(petID uint) (*models.PetPersona, error)
	SavePersona(persona *models.PetPersona) error
}

// StoryRepository defines the interface for story-related database operations
type StoryRepository interface {
	Create(story *models.Story) error
	GetByID(id uint) (*models.Story, error)
	GetByUUID(uuid string) (*models.Story, error)
	GetByShareLink(shareLink string) (*models.Story, error)
	GetByUserID(userID uint, offset, limit int) ([]models.Story, error)
	GetPublicStories(offset, limit int) ([]models.Story, error)
	Update(story *models.Story) error
	Delete(id uint) error
	GetChapters(storyID uint) ([]models.StoryChapter, error)
	GetChapter(storyID uint, number int) (*models.StoryChapter, error)
	SaveChapter(chapter *models.StoryChapter) error
	CountChapters(storyID uint) (int64, error)
	AddViewCount(id uint, delta int64) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User  UserRepository
	Pet   PetRepository
	Story StoryRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:  NewUserRepository(db),
		Pet:   NewPetRepository(db),
		Story: NewStoryRepository(db),
	}
}
