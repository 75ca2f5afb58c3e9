package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/Jaguar1-alt/Gigconnect/internal/models"
)

func (s *Store) CreateMessage(ctx context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.SentAt.IsZero() {
		m.SentAt = s.tick()
	}
	stored := *m
	stored.Sender, stored.Recipient = nil, nil
	s.messages = append(s.messages, stored)
	m.Sender = s.userRef(m.SenderID)
	m.Recipient = s.userRef(m.RecipientID)
	return nil
}

func (s *Store) ListMessages(ctx context.Context, gigID uuid.UUID) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Message{}
	for _, m := range s.messages {
		if m.GigID != gigID {
			continue
		}
		m.Sender = s.userRef(m.SenderID)
		m.Recipient = s.userRef(m.RecipientID)
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.Before(out[j].SentAt) })
	return out, nil
}
