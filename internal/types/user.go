package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password     string         `gorm:"not null;column:password" json:"-"`
	FullName     string         `gorm:"column:full_name" json:"full_name"`
	IsAdmin      bool           `gorm:"column:is_admin;not null;default:false" json:"is_admin"`
	IsAgencyUser bool           `gorm:"column:is_agency_user;not null;default:false" json:"is_agency_user"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }
