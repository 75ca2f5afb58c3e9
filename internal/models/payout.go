package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PayoutRecord is written when an admin moves a gig from paid to paid-out.
type PayoutRecord struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	GigID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"gigId"`
	FreelancerID uuid.UUID `gorm:"type:uuid;not null;index" json:"freelancerId"`
	Amount       int64     `gorm:"not null" json:"amount"`
	UPIID        string    `gorm:"column:upi_id;type:varchar(100)" json:"upiId"`
	ProcessedBy  uuid.UUID `gorm:"type:uuid;not null" json:"processedBy"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (p *PayoutRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
