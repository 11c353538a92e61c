package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-content-dashboard/internal/event"
	"go-content-dashboard/internal/model"
	"go-content-dashboard/internal/repository"
	"go-content-dashboard/pkg/apierror"
)

func newAuthFixture(t *testing.T) (*AuthService, *TokenService, repository.Set) {
	t.Helper()

	stores := repository.NewMemory()
	tokens, err := NewTokenService("test-secret", time.Hour, nil)
	require.NoError(t, err)
	auth, err := NewAuthService(stores.Users, tokens, bcrypt.MinCost, nil)
	require.NoError(t, err)
	return auth, tokens, stores
}

func TestAuthService_RegisterLoginMe(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	auth, tokens, _ := newAuthFixture(t)

	registered, err := auth.Register(ctx, model.RegisterRequest{Name: " Ann ", Email: "Ann@Example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "Ann", registered.User.Name)
	assert.Equal(t, "ann@example.com", registered.User.Email)
	assert.NotEmpty(t, registered.Token)

	loggedIn, err := auth.Login(ctx, model.LoginRequest{Email: "ann@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, registered.User, loggedIn.User)

	identity, err := tokens.Verify(ctx, loggedIn.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, identity.UserID)

	me, err := auth.Me(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, model.PublicUser{ID: registered.User.ID, Name: "Ann", Email: "ann@example.com"}, me)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	t.Parallel()

	auth, _, _ := newAuthFixture(t)
	long := make([]byte, 73)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name  string
		req   model.RegisterRequest
		field string
	}{
		{name: "missing name", req: model.RegisterRequest{Email: "a@x.com", Password: "pw"}, field: "name"},
		{name: "missing email", req: model.RegisterRequest{Name: "A", Password: "pw"}, field: "email"},
		{name: "email without at", req: model.RegisterRequest{Name: "A", Email: "ax.com", Password: "pw"}, field: "email"},
		{name: "missing password", req: model.RegisterRequest{Name: "A", Email: "a@x.com"}, field: "password"},
		{name: "password too long", req: model.RegisterRequest{Name: "A", Email: "a@x.com", Password: string(long)}, field: "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Register(context.Background(), tt.req)
			var apiErr *apierror.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, apierror.CodeValidation, apiErr.Code)
			assert.Equal(t, 400, apiErr.HTTPStatus)
			assert.Equal(t, tt.field, apiErr.Details)
		})
	}
}

func TestAuthService_DuplicateEmail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	auth, _, _ := newAuthFixture(t)

	_, err := auth.Register(ctx, model.RegisterRequest{Name: "Ann", Email: "ann@x.com", Password: "pw"})
	require.NoError(t, err)

	_, err = auth.Register(ctx, model.RegisterRequest{Name: "Ann again", Email: "ANN@x.com", Password: "pw2"})
	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierror.CodeConflict, apiErr.Code)
	assert.ErrorIs(t, err, model.ErrEmailTaken)
}

func TestAuthService_LoginFailuresAreUniform(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	auth, _, _ := newAuthFixture(t)
	_, err := auth.Register(ctx, model.RegisterRequest{Name: "Ann", Email: "ann@x.com", Password: "pw"})
	require.NoError(t, err)

	_, wrongPassword := auth.Login(ctx, model.LoginRequest{Email: "ann@x.com", Password: "nope"})
	_, unknownEmail := auth.Login(ctx, model.LoginRequest{Email: "bob@x.com", Password: "pw"})

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	assert.ErrorIs(t, wrongPassword, model.ErrInvalidCredentials)

	var apiErr *apierror.APIError
	require.ErrorAs(t, unknownEmail, &apiErr)
	assert.Equal(t, 401, apiErr.HTTPStatus)
}

func TestAuthService_MeForDeletedUser(t *testing.T) {
	t.Parallel()

	auth, _, _ := newAuthFixture(t)
	_, err := auth.Me(context.Background(), model.Identity{UserID: "gone"})

	var apiErr *apierror.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.HTTPStatus)
}

func TestAuthService_PublishesUserEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bus := event.NewBus()
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	tokens, err := NewTokenService("test-secret", time.Hour, nil)
	require.NoError(t, err)
	auth, err := NewAuthService(repository.NewMemory().Users, tokens, bcrypt.MinCost, bus)
	require.NoError(t, err)

	result, err := auth.Register(ctx, model.RegisterRequest{Name: "Ann", Email: "ann@x.com", Password: "pw"})
	require.NoError(t, err)

	e := <-events
	assert.Equal(t, event.TypeUserRegistered, e.Type)
	assert.Equal(t, result.User.ID, e.ActorID)
	assert.True(t, e.VisibleTo(result.User.ID))
	assert.False(t, e.VisibleTo("someone-else"))
}
