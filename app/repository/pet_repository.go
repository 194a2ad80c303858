package repository

import (
	"github.com/PawTalesApp/PawTales/app/models"
	"gorm.io/gorm"
)

// petRepository implements the PetRepository interface
type petRepository struct {
	db *gorm.DB
}

// NewPetRepository creates a new pet repository instance
func NewPetRepository(db *gorm.DB) PetRepository {
	return &petRepository{db: db}
}

func (r *petRepository) Create(pet *models.Pet) error {
	return r.db.Create(pet).Error
}

func (r *petRepository) GetByID(id uint) (*models.Pet, error) {
	var pet models.Pet
	err := r.db.First(&pet, id).Error
	if err != nil {
		return nil, err
	}
	return &pet, nil
}

func (r *petRepository) GetByUUID(uuid string) (*models.Pet, error) {
	var pet models.Pet
	err := r.db.Where("uuid = ?", uuid).First(&pet).Error
	if err != nil {
		return nil, err
	}
	return &pet, nil
}

func (r *petRepository) GetByShareLink(shareLink string) (*models.Pet, error) {
	var pet models.Pet
	err := r.db.Where("share_link = ? AND is_public = ?", shareLink, true).First(&pet).Error
	if err != nil {
		return nil, err
	}
	return &pet, nil
}

func (r *petRepository) GetByUserID(userID uint) ([]models.Pet, error) {
	var pets []models.Pet
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&pets).Error
	return pets, err
}

func (r *petRepository) CountByUserID(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Pet{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *petRepository) Update(pet *models.Pet) error {
	return r.db.Save(pet).Error
}

// Delete soft deletes a pet and its persona
func (r *petRepository) Delete(id uint) error {
	if err := r.db.Where("pet_id = ?", id).Delete(&models.PetPersona{}).Error; err != nil {
		return err
	}
	return r.db.Delete(&models.Pet{}, id).Error
}

func (r *petRepository) GetPersona(petID uint) (*models.PetPersona, error) {
	var persona models.PetPersona
	err := r.db.Where("pet_id = ?", petID).First(&persona).Error
	if err != nil {
		return nil, err
	}
	return &persona, nil
}

// SavePersona creates or updates the persona row for a pet
func (r *petRepository) SavePersona(persona *models.PetPersona) error {
	return r.db.Save(persona).Error
}
