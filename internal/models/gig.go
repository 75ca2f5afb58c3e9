package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GigStatus string

const (
	GigOpen       GigStatus = "open"
	GigInProgress GigStatus = "in progress"
	GigCompleted  GigStatus = "completed"
	GigPaid       GigStatus = "paid"
	GigPaidOut    GigStatus = "paid-out"
)

var GigStatuses = []GigStatus{GigOpen, GigInProgress, GigCompleted, GigPaid, GigPaidOut}

// Next returns the only status a gig may move to from s.
func (s GigStatus) Next() (GigStatus, bool) {
	for i, st := range GigStatuses {
		if st == s && i+1 < len(GigStatuses) {
			return GigStatuses[i+1], true
		}
	}
	return "", false
}

type Gig struct {
	ID          uuid.UUID                   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title       string                      `gorm:"not null" json:"title"`
	Description string                      `gorm:"type:text;not null" json:"description"`
	Budget      int64                       `gorm:"not null" json:"budget"`
	Duration    string                      `gorm:"not null" json:"duration"`
	Skills      datatypes.JSONSlice[string] `json:"skills"`
	Location    string                      `gorm:"not null;index" json:"location"`

	PostedByID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"postedById"`
	HiredFreelancerID *uuid.UUID `gorm:"type:uuid;index" json:"hiredFreelancerId"`
	Status            GigStatus  `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	FinalAmount       *int64     `json:"finalAmount"`

	PostedAt  time.Time `gorm:"index" json:"postedAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relations
	PostedBy        *Party `gorm:"foreignKey:PostedByID" json:"postedBy,omitempty"`
	HiredFreelancer *Party `gorm:"foreignKey:HiredFreelancerID" json:"hiredFreelancer,omitempty"`
}

func (g *Gig) BeforeCreate(tx *gorm.DB) (err error) {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.PostedAt.IsZero() {
		g.PostedAt = time.Now()
	}
	return
}

// IsParty reports whether userID is the gig's client or its hired freelancer.
func (g *Gig) IsParty(userID uuid.UUID) bool {
	if g.PostedByID == userID {
		return true
	}
	return g.HiredFreelancerID != nil && *g.HiredFreelancerID == userID
}

// Counterpart returns the other participant of the gig conversation.
func (g *Gig) Counterpart(userID uuid.UUID) (uuid.UUID, bool) {
	if g.HiredFreelancerID == nil {
		return uuid.Nil, false
	}
	switch userID {
	case g.PostedByID:
		return *g.HiredFreelancerID, true
	case *g.HiredFreelancerID:
		return g.PostedByID, true
	}
	return uuid.Nil, false
}
