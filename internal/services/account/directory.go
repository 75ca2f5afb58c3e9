// Package account holds user profiles keyed by internal id.
package account

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
	"github.com/Jaguar1-alt/Gigconnect/internal/models"
	"github.com/Jaguar1-alt/Gigconnect/internal/utils"
)

var tracer = otel.Tracer("account")

type Store interface {
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	CountUsers(ctx context.Context) (int64, error)
}

type Directory struct {
	store Store
}

func NewDirectory(store Store) *Directory {
	return &Directory{store: store}
}

func notFound(err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Wrap(apperr.KindNotFound, "User not found.", err)
	}
	return err
}

// Profile returns the caller's own account.
func (d *Directory) Profile(ctx context.Context, actor models.Actor) (*models.User, error) {
	u, err := d.store.UserByID(ctx, actor.ID)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// Account returns the full record of any user, payout details included.
func (d *Directory) Account(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := d.store.UserByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (d *Directory) PublicProfile(ctx context.Context, id uuid.UUID) (*models.PublicProfile, error) {
	u, err := d.store.UserByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	p := u.Public()
	return &p, nil
}

type UpdateProfileInput struct {
	Username       *string                 `json:"username" validate:"omitempty,min=1,max=64"`
	Email          *string                 `json:"email" validate:"omitempty,email"`
	ProfilePicture *string                 `json:"profilePicture" validate:"omitempty,url"`
	Skills         *[]string               `json:"skills" validate:"omitempty,max=50,dive,min=1,max=64"`
	Description    *string                 `json:"description" validate:"omitempty,max=5000"`
	Portfolio      *[]models.PortfolioItem `json:"portfolio" validate:"omitempty,max=50,dive"`
	UPIID          *string                 `json:"upiId" validate:"omitempty,max=100"`
}

// UpdateProfile applies the common fields for everyone and the freelancer
// fields only for freelancers. Absent or empty fields keep their value.
func (d *Directory) UpdateProfile(ctx context.Context, actor models.Actor, in UpdateProfileInput) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "Account.Directory.UpdateProfile")
	defer span.End()

	if err := utils.ValidateStruct(in); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	u, err := d.store.UserByID(ctx, actor.ID)
	if err != nil {
		return nil, notFound(err)
	}

	if v := trimmed(in.Username); v != "" {
		u.Username = v
	}
	if v := trimmed(in.Email); v != "" {
		u.Email = strings.ToLower(v)
	}
	if v := trimmed(in.ProfilePicture); v != "" {
		u.ProfilePicture = v
	}

	if u.Role == models.RoleFreelancer {
		if in.Skills != nil {
			skills := make([]string, 0, len(*in.Skills))
			for _, s := range *in.Skills {
				if s = strings.TrimSpace(s); s != "" {
					skills = append(skills, s)
				}
			}
			u.Skills = skills
		}
		if in.Description != nil {
			u.Description = *in.Description
		}
		if in.Portfolio != nil {
			u.Portfolio = *in.Portfolio
		}
		if in.UPIID != nil {
			u.UPIID = strings.TrimSpace(*in.UPIID)
		}
	}

	if err := d.store.UpdateUser(ctx, u); err != nil {
		if errors.Is(err, apperr.ErrDuplicate) {
			return nil, apperr.Wrap(apperr.KindConflict, "Username or email already in use.", err)
		}
		span.RecordError(err)
		return nil, err
	}
	return u, nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func (d *Directory) List(ctx context.Context) ([]models.User, error) {
	return d.store.ListUsers(ctx)
}

func (d *Directory) Delete(ctx context.Context, id uuid.UUID) error {
	if err := d.store.DeleteUser(ctx, id); err != nil {
		return notFound(err)
	}
	return nil
}

func (d *Directory) Count(ctx context.Context) (int64, error) {
	return d.store.CountUsers(ctx)
}
