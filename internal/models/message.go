package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is one entry of a gig's append-only conversation log.
type Message struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	GigID       uuid.UUID `gorm:"type:uuid;not null;index:idx_messages_gig_sent,priority:1" json:"gigId"`
	SenderID    uuid.UUID `gorm:"type:uuid;not null;index" json:"senderId"`
	RecipientID uuid.UUID `gorm:"type:uuid;not null;index" json:"recipientId"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	SentAt      time.Time `gorm:"index:idx_messages_gig_sent,priority:2" json:"sentAt"`

	// Preloaded relations
	Sender    *Party `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Recipient *Party `gorm:"foreignKey:RecipientID" json:"recipient,omitempty"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.SentAt.IsZero() {
		m.SentAt = time.Now()
	}
	return
}
