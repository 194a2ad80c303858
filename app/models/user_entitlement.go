package models

import (
	"time"

	"gorm.io/gorm"
)

// Default number of story/persona generations a fresh free account may spend.
const FreeStartingCredits = 5

// CreditUnlimitedSentinel is written to credit_balance when an account goes
// pro. The value is advisory only; plan is the single authority and the
// balance must not be interpreted while plan is "pro".
const CreditUnlimitedSentinel = -1

// UserEntitlement stores per-user plan tier and the consumable generation
// credit balance. One row per user, mutated via point-updates only so the
// storage layer keeps decrement atomicity.
type UserEntitlement struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	UserID            uint           `gorm:"uniqueIndex" json:"user_id"`
	Plan              string         `gorm:"type:varchar(50);default:'free'" json:"plan"`
	CreditBalance     int            `gorm:"default:5" json:"credit_balance"`
	BillingCustomerID string         `gorm:"type:varchar(191);default:'';index" json:"-"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// GetOrCreateUserEntitlement returns existing entitlement state or creates the
// free-tier default with the starting credit allotment.
func GetOrCreateUserEntitlement(db *gorm.DB, userID uint) (*UserEntitlement, error) {
	var ue UserEntitlement
	if err := db.Where("user_id = ?", userID).First(&ue).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			ue = UserEntitlement{UserID: userID, Plan: "free", CreditBalance: FreeStartingCredits}
			if err := db.Create(&ue).Error; err != nil {
				return nil, err
			}
			return &ue, nil
		}
		return nil, err
	}
	return &ue, nil
}

// HasBillingCustomer reports whether the user ever completed a checkout and
// is therefore resolvable by billing customer reference.
func (ue *UserEntitlement) HasBillingCustomer() bool {
	return ue != nil && ue.BillingCustomerID != ""
}
