// Package store persists the marketplace through GORM.
package store

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
	"github.com/Jaguar1-alt/Gigconnect/internal/models"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB { return s.db }

// translate maps driver level failures onto the apperr sentinels.
func translate(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFoundError{Resource: resource}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.DuplicateError{Resource: resource}
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return apperr.Wrap(apperr.KindValidation, resource+" violates a storage constraint", err)
	}
	return pkgerrors.Wrap(err, resource)
}

// preloadParty loads a user relation with the public columns only.
func preloadParty(q *gorm.DB, relation string) *gorm.DB {
	return q.Preload(relation, func(db *gorm.DB) *gorm.DB {
		return db.Select(models.PartyColumns)
	})
}

var forUpdate = clause.Locking{Strength: "UPDATE"}

func (s *Store) lockGig(ctx context.Context, tx *gorm.DB, id any) (*models.Gig, error) {
	var gig models.Gig
	if err := lockedGig(tx.WithContext(ctx), &gig, id).Error; err != nil {
		return nil, translate(err, "gig")
	}
	return &gig, nil
}

func lockedGig(tx *gorm.DB, dest *models.Gig, id any) *gorm.DB {
	return tx.Clauses(forUpdate).First(dest, "id = ?", id)
}
