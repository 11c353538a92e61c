package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"go-content-dashboard/internal/event"
	"go-content-dashboard/internal/model"
	"go-content-dashboard/internal/repository"
	"go-content-dashboard/pkg/apierror"
)

// bcrypt only looks at the first 72 bytes.
const maxPasswordBytes = 72

type AuthService struct {
	users      repository.UserStore
	tokens     *TokenService
	bus        event.Bus
	bcryptCost int
	// dummyHash is compared against on unknown emails so both login
	// failures cost one bcrypt run.
	dummyHash []byte
	now       func() time.Time
}

func NewAuthService(users repository.UserStore, tokens *TokenService, bcryptCost int, bus event.Bus) (*AuthService, error) {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("prepare password hashing: %w", err)
	}

	return &AuthService{
		users:      users,
		tokens:     tokens,
		bus:        bus,
		bcryptCost: bcryptCost,
		dummyHash:  dummy,
		now:        time.Now,
	}, nil
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.AuthResult, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	switch {
	case name == "":
		return model.AuthResult{}, apierror.Validation("name is required", "name")
	case email == "":
		return model.AuthResult{}, apierror.Validation("email is required", "email")
	case !strings.Contains(email, "@"):
		return model.AuthResult{}, apierror.Validation("email is invalid", "email")
	case req.Password == "":
		return model.AuthResult{}, apierror.Validation("password is required", "password")
	case len(req.Password) > maxPasswordBytes:
		return model.AuthResult{}, apierror.Validation("password must be at most 72 bytes", "password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return model.AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return model.AuthResult{}, apierror.Conflict(err, "User already exists", email)
		}
		return model.AuthResult{}, err
	}

	result, err := s.issue(user)
	if err != nil {
		return model.AuthResult{}, err
	}

	publish(s.bus, event.Event{
		Type:     event.TypeUserRegistered,
		Resource: user.ID,
		ActorID:  user.ID,
		Audience: user.ID,
	})
	return result, nil
}

func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return model.AuthResult{}, invalidCredentials()
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, model.ErrUserNotFound) {
			return model.AuthResult{}, err
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		return model.AuthResult{}, invalidCredentials()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return model.AuthResult{}, invalidCredentials()
	}

	result, err := s.issue(user)
	if err != nil {
		return model.AuthResult{}, err
	}

	publish(s.bus, event.Event{
		Type:     event.TypeUserLoggedIn,
		Resource: user.ID,
		ActorID:  user.ID,
		Audience: user.ID,
	})
	return result, nil
}

func (s *AuthService) Me(ctx context.Context, identity model.Identity) (model.PublicUser, error) {
	user, err := s.users.FindByID(ctx, identity.UserID)
	if err != nil {
		return model.PublicUser{}, notFound(err, model.ErrUserNotFound, "User not found", identity.UserID)
	}
	return user.Public(), nil
}

// Logout revokes the caller's token when a denylist is configured.
func (s *AuthService) Logout(ctx context.Context, identity model.Identity) (model.LogoutResponse, error) {
	revoked, err := s.tokens.Revoke(ctx, identity)
	if err != nil {
		return model.LogoutResponse{}, fmt.Errorf("revoke token: %w", err)
	}
	return model.LogoutResponse{Revoked: revoked}, nil
}

func (s *AuthService) issue(user model.User) (model.AuthResult, error) {
	token, _, err := s.tokens.Issue(user.ID)
	if err != nil {
		return model.AuthResult{}, err
	}
	return model.AuthResult{Token: token, User: user.Public()}, nil
}

func invalidCredentials() error {
	return apierror.Wrap(model.ErrInvalidCredentials, apierror.CodeUnauthorized, "invalid credentials", "", http.StatusUnauthorized)
}
