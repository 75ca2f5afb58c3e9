package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role string

const (
	RoleClient     Role = "client"
	RoleFreelancer Role = "freelancer"
	RoleAdmin      Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleFreelancer, RoleAdmin:
		return true
	}
	return false
}

const DefaultProfilePicture = "https://cdn.pixabay.com/photo/2015/10/05/22/37/blank-profile-picture-973460_1280.png"

type PortfolioItem struct {
	Title       string `json:"title" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
	Link        string `json:"link" validate:"omitempty,url"`
}

// internal/models/user.go
type User struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ExternalID string    `gorm:"column:uid;type:varchar(128);uniqueIndex;not null" json:"-"`
	Username   string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Email      string    `gorm:"uniqueIndex;not null" json:"email"`
	Role       Role      `gorm:"type:varchar(20);not null;index" json:"role"`

	ProfilePicture string `gorm:"type:text" json:"profilePicture"`

	// freelancer-only fields
	Skills      datatypes.JSONSlice[string]        `json:"skills"`
	Description string                             `gorm:"type:text" json:"description"`
	Portfolio   datatypes.JSONSlice[PortfolioItem] `json:"portfolio"`
	UPIID       string                             `gorm:"column:upi_id;type:varchar(100)" json:"upiId"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}

// PublicProfile is what other users see of an account.
type PublicProfile struct {
	ID             uuid.UUID       `json:"id"`
	Username       string          `json:"username"`
	Role           Role            `json:"role"`
	ProfilePicture string          `json:"profilePicture"`
	Skills         []string        `json:"skills"`
	Description    string          `json:"description"`
	Portfolio      []PortfolioItem `json:"portfolio"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:             u.ID,
		Username:       u.Username,
		Role:           u.Role,
		ProfilePicture: u.ProfilePicture,
		Skills:         u.Skills,
		Description:    u.Description,
		Portfolio:      u.Portfolio,
		CreatedAt:      u.CreatedAt,
	}
}

// Party is the public view of a user preloaded onto gigs, proposals, reviews
// and messages. It reads from the users table but never carries contact or
// payout details.
type Party struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username       string    `json:"username"`
	ProfilePicture string    `json:"profilePicture"`

	// UPIID is filled in by the admin payout listing only.
	UPIID string `gorm:"-" json:"upiId,omitempty"`
}

func (Party) TableName() string { return "users" }

// PartyColumns limits relation preloads to the Party fields.
var PartyColumns = []string{"id", "username", "profile_picture"}

func (u *User) Party() *Party {
	return &Party{ID: u.ID, Username: u.Username, ProfilePicture: u.ProfilePicture}
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

func (a Actor) Is(role Role) bool { return a.Role == role }
