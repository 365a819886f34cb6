package auth

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// AdminUser is a staff account row. Roles is free-form ("support", "owner");
// nothing in the support subsystem branches on it yet, it exists so accounts
// created today survive a permissions model later.
type AdminUser struct {
	ID           string         `gorm:"primaryKey"`
	Email        string         `gorm:"uniqueIndex;not null"`
	PasswordHash string         `gorm:"not null"`
	Roles        pq.StringArray `gorm:"type:text[]"`
	CreatedAt    int64          `gorm:"autoCreateTime:milli"`
}

// BeforeCreate assigns a UUID when the caller did not set one.
func (a *AdminUser) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}
