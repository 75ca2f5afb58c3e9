package models

import "github.com/google/uuid"

// GigFilter narrows the public listing of open gigs.
type GigFilter struct {
	Skills    []string
	Location  string
	MaxBudget *int64
}

type GigQuery struct {
	PostedByID        *uuid.UUID
	HiredFreelancerID *uuid.UUID
	Statuses          []GigStatus
	WithParties       bool
}

type ProposalQuery struct {
	GigID          *uuid.UUID
	FreelancerID   *uuid.UUID
	Status         ProposalStatus
	WithGig        bool
	WithFreelancer bool
}

type ReviewQuery struct {
	GigID        *uuid.UUID
	FreelancerID *uuid.UUID
}
