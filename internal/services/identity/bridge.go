// Package identity maps external identity provider tokens onto accounts and
// issues the short lived session tokens the API authenticates with.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
	"github.com/Jaguar1-alt/Gigconnect/internal/models"
	"github.com/Jaguar1-alt/Gigconnect/internal/utils"
)

var tracer = otel.Tracer("identity")

type Verifier interface {
	Verify(ctx context.Context, idToken string) (*ExternalIdentity, error)
}

type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByExternalID(ctx context.Context, uid string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
}

type Options struct {
	Secret     string
	SessionTTL time.Duration
	// IsAdmin reports whether an external id may hold the admin role.
	IsAdmin func(uid string) bool
}

type Bridge struct {
	store    Store
	verifier Verifier
	opts     Options
}

func NewBridge(store Store, verifier Verifier, opts Options) *Bridge {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = time.Hour
	}
	if opts.IsAdmin == nil {
		opts.IsAdmin = func(string) bool { return false }
	}
	return &Bridge{store: store, verifier: verifier, opts: opts}
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"required,oneof=client freelancer admin"`
	UID      string `json:"uid" validate:"required,max=128"`
	// IDToken, when sent, must belong to UID.
	IDToken string `json:"idToken,omitempty"`
}

type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

func (b *Bridge) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	ctx, span := tracer.Start(ctx, "Identity.Bridge.Register")
	defer span.End()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if err := utils.ValidateStruct(in); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	role := models.Role(in.Role)
	if role == models.RoleAdmin && !b.opts.IsAdmin(in.UID) {
		return nil, apperr.Forbidden("Admin accounts cannot be self-registered.")
	}

	if in.IDToken != "" {
		id, err := b.verifier.Verify(ctx, in.IDToken)
		if err != nil {
			return nil, verificationError(err)
		}
		if id.UID != in.UID {
			return nil, apperr.Forbidden("Token does not match the registered identity.")
		}
	}

	user := &models.User{
		ExternalID:     in.UID,
		Username:       in.Username,
		Email:          in.Email,
		Role:           role,
		ProfilePicture: models.DefaultProfilePicture,
	}
	if err := b.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperr.ErrDuplicate) {
			return nil, apperr.Wrap(apperr.KindConflict, "User already exists.", err)
		}
		span.RecordError(err)
		return nil, err
	}

	utils.LogEvent(ctx, "user_registered", map[string]interface{}{
		"user_id": user.ID.String(),
		"role":    string(user.Role),
	})
	return user, nil
}

// Login exchanges an external ID token for a session.
func (b *Bridge) Login(ctx context.Context, idToken string) (*Session, error) {
	ctx, span := tracer.Start(ctx, "Identity.Bridge.Login")
	defer span.End()

	if strings.TrimSpace(idToken) == "" {
		return nil, apperr.Validation("idToken is required")
	}

	id, err := b.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, verificationError(err)
	}
	if !id.EmailVerified {
		return nil, apperr.Unauthenticated("Please verify your email.")
	}

	user, err := b.store.UserByExternalID(ctx, id.UID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Validation("User not found in database.")
		}
		span.RecordError(err)
		return nil, err
	}
	return b.issue(user)
}

// LoginVerifiedEmail signs in an existing account whose email a trusted
// provider has already verified.
func (b *Bridge) LoginVerifiedEmail(ctx context.Context, email string) (*Session, error) {
	ctx, span := tracer.Start(ctx, "Identity.Bridge.LoginVerifiedEmail")
	defer span.End()

	user, err := b.store.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Validation("User not found in database.")
		}
		return nil, err
	}
	return b.issue(user)
}

func (b *Bridge) issue(user *models.User) (*Session, error) {
	token, exp, err := utils.SignJWT(b.opts.Secret, user.ID.String(), string(user.Role), b.opts.SessionTTL)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, User: user}, nil
}

// Authenticate validates a session token and returns the caller.
func (b *Bridge) Authenticate(token string) (models.Actor, error) {
	return ParseSession(b.opts.Secret, token)
}

func ParseSession(secret, token string) (models.Actor, error) {
	claims, err := utils.ParseJWT(secret, token)
	if err != nil {
		if errors.Is(err, utils.ErrSessionExpired) {
			return models.Actor{}, apperr.Unauthenticated("Session expired.")
		}
		return models.Actor{}, apperr.Unauthenticated("Invalid token.")
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return models.Actor{}, apperr.Unauthenticated("Invalid token.")
	}
	return models.Actor{ID: id, Role: models.Role(claims.Role)}, nil
}

func verificationError(err error) error {
	if errors.Is(err, ErrTokenExpired) {
		return apperr.Wrap(apperr.KindUnauthenticated, "Session expired.", err)
	}
	return apperr.Wrap(apperr.KindUnauthenticated, "Invalid token.", err)
}
