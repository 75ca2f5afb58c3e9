package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalAccepted ProposalStatus = "accepted"
	ProposalRejected ProposalStatus = "rejected"
)

type Proposal struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	GigID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_proposals_gig_freelancer" json:"gigId"`
	FreelancerID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_proposals_gig_freelancer;index" json:"freelancerId"`
	BidAmount    int64          `gorm:"not null" json:"bidAmount"`
	Message      string         `gorm:"type:text;not null" json:"message"`
	Status       ProposalStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	AppliedAt    time.Time      `json:"appliedAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`

	// Relations
	Gig        *Gig  `gorm:"foreignKey:GigID" json:"gig,omitempty"`
	Freelancer *Party `gorm:"foreignKey:FreelancerID" json:"freelancer,omitempty"`
}

func (p *Proposal) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.AppliedAt.IsZero() {
		p.AppliedAt = time.Now()
	}
	return
}
