// internal/models/application.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Application is the current-state projection of one license request. It is
// only ever mutated through the transition engine and never deleted.
type Application struct {
	UID                 uuid.UUID   `json:"application_uid" gorm:"column:uid;type:uuid;primaryKey"`
	ApplicantName       string      `json:"applicant_name" gorm:"size:255;not null"`
	ApplicantNationalID string      `json:"applicant_national_id" gorm:"size:64;not null;index"`
	ApplicantEmail      string      `json:"applicant_email,omitempty" gorm:"size:255"`
	ApplicantPhone      string      `json:"applicant_phone,omitempty" gorm:"size:32"`
	ApplicantAddress    string      `json:"applicant_address,omitempty" gorm:"type:text"`
	FirearmID           string      `json:"firearm_id" gorm:"size:128;not null"`
	FirearmDescription  string      `json:"firearm_description,omitempty" gorm:"type:text"`
	OfficerIdentity     string      `json:"officer_identity" gorm:"size:255;not null;index"`
	DealerIdentity      string      `json:"dealer_identity" gorm:"size:255;not null;index"`
	AttachmentKeys      StringArray `json:"attachment_keys"`
	Status              Status      `json:"status" gorm:"type:varchar(32);not null;index"`
	Revision            int64       `json:"revision" gorm:"not null"`
	CreatedAt           time.Time   `json:"created_at" gorm:"not null"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

func (Application) TableName() string {
	return "applications"
}
