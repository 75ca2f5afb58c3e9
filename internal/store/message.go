package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/Jaguar1-alt/Gigconnect/internal/models"
)

func (s *Store) CreateMessage(ctx context.Context, m *models.Message) error {
	db := s.db.WithContext(ctx)
	if err := db.Create(m).Error; err != nil {
		return translate(err, "message")
	}
	err := preloadParty(preloadParty(db, "Sender"), "Recipient").First(m, "id = ?", m.ID).Error
	return translate(err, "message")
}

func (s *Store) ListMessages(ctx context.Context, gigID uuid.UUID) ([]models.Message, error) {
	var out []models.Message
	err := preloadParty(preloadParty(s.db.WithContext(ctx), "Sender"), "Recipient").
		Where("gig_id = ?", gigID).
		Order("sent_at ASC").
		Find(&out).Error
	return out, translate(err, "messages")
}
