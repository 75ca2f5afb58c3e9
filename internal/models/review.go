package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Review struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	GigID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"gigId"`
	ClientID     uuid.UUID `gorm:"type:uuid;not null;index" json:"clientId"`
	FreelancerID uuid.UUID `gorm:"type:uuid;not null;index" json:"freelancerId"`

	Rating  int    `gorm:"not null;check:chk_reviews_rating,rating >= 1 AND rating <= 5" json:"rating"`
	Comment string `gorm:"type:text;not null" json:"comment"`

	CreatedAt time.Time `json:"createdAt"`

	// Relations
	Gig        *Gig  `gorm:"foreignKey:GigID" json:"gig,omitempty"`
	Client     *Party `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Freelancer *Party `gorm:"foreignKey:FreelancerID" json:"freelancer,omitempty"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}
