package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Report struct {
	ID                  uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID              *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	User                *User          `gorm:"constraint:OnDelete:SET NULL;foreignKey:UserID;references:ID" json:"user,omitempty"`
	IncidentDescription string         `gorm:"column:incident_description;not null" json:"incident_description"`
	Language            string         `gorm:"column:language;not null;default:'en'" json:"language"`
	Status              string         `gorm:"column:status;not null;default:'submitted'" json:"status"`
	IsAnonymous         bool           `gorm:"column:is_anonymous;not null;default:false" json:"is_anonymous"`
	VerificationCode    string         `gorm:"column:verification_code" json:"-"`
	AIAnalysisResults   datatypes.JSON `gorm:"column:ai_analysis_results;type:jsonb" json:"ai_analysis_results,omitempty"`
	SubmittedDate       time.Time      `gorm:"column:submitted_date;not null;default:now()" json:"submitted_date"`
	CreatedAt           time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Evidence []Evidence `gorm:"constraint:OnDelete:CASCADE;foreignKey:ReportID;references:ID" json:"evidence,omitempty"`
}

func (Report) TableName() string { return "report" }

// OwnedBy reports whether userID is the authenticated owner of the report.
// Anonymous reports have no owner; only admins can act on them after creation.
func (r *Report) OwnedBy(userID uuid.UUID) bool {
	return r != nil && r.UserID != nil && *r.UserID == userID
}
