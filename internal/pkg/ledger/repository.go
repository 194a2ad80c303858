package ledger

import (
	"github.com/PawTalesApp/PawTales/app/models"
	"gorm.io/gorm"
)

// Repository provides DB operations used by the entitlement ledger. All
// mutations are point-updates so concurrent consumers never rewrite whole
// rows past each other.
type Repository interface {
	GetOrCreateByUserID(userID uint) (*models.UserEntitlement, error)
	GetByUserID(userID uint) (*models.UserEntitlement, error)
	GetByBillingCustomerID(customerID string) (*models.UserEntitlement, error)
	// DecrementCredit applies an atomic storage-level decrement guarded by
	// credit_balance > 0 and reports whether a row was changed.
	DecrementCredit(userID uint) (bool, error)
	SetPlan(userID uint, plan string) error
	ActivatePro(userID uint, customerID string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a ledger repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetOrCreateByUserID(userID uint) (*models.UserEntitlement, error) {
	return models.GetOrCreateUserEntitlement(r.db, userID)
}

func (r *gormRepository) GetByUserID(userID uint) (*models.UserEntitlement, error) {
	var ue models.UserEntitlement
	err := r.db.Where("user_id = ?", userID).First(&ue).Error
	if err != nil {
		return nil, err
	}
	return &ue, nil
}

func (r *gormRepository) GetByBillingCustomerID(customerID string) (*models.UserEntitlement, error) {
	var ue models.UserEntitlement
	err := r.db.Where("billing_customer_id = ? AND billing_customer_id <> ''", customerID).First(&ue).Error
	if err != nil {
		return nil, err
	}
	return &ue, nil
}

func (r *gormRepository) DecrementCredit(userID uint) (bool, error) {
	tx := r.db.Model(&models.UserEntitlement{}).
		Where("user_id = ? AND credit_balance > 0", userID).
		UpdateColumn("credit_balance", gorm.Expr("credit_balance - 1"))
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) SetPlan(userID uint, plan string) error {
	return r.db.Model(&models.UserEntitlement{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{"plan": plan}).Error
}

func (r *gormRepository) ActivatePro(userID uint, customerID string) error {
	updates := map[string]interface{}{
		"plan":           "pro",
		"credit_balance": models.CreditUnlimitedSentinel,
	}
	if customerID != "" {
		updates["billing_customer_id"] = customerID
	}
	return r.db.Model(&models.UserEntitlement{}).
		Where("user_id = ?", userID).
		Updates(updates).Error
}
