package authservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zanzhit/voicetribe/internal/domain/errs"
	"github.com/zanzhit/voicetribe/internal/domain/models"
	jwtmid "github.com/zanzhit/voicetribe/internal/lib/jwt"
	"github.com/zanzhit/voicetribe/internal/lib/sl"
	"golang.org/x/crypto/bcrypt"
)

const secret = "test-secret"

type fakeUsers struct {
	byEmail map[string]models.User
	saveErr error
}

func (f *fakeUsers) SaveUser(_ context.Context, id, email string, passHash []byte) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	if _, ok := f.byEmail[email]; ok {
		return "", errs.ErrUserExists
	}
	f.byEmail[email] = models.User{ID: id, Email: email, PassHash: passHash}
	return id, nil
}

func (f *fakeUsers) User(_ context.Context, email string) (models.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return models.User{}, errs.ErrUserNotFound
	}
	return u, nil
}

type fakeResolver struct {
	email, userID string
	err           error
}

func (f *fakeResolver) ResolvePending(_ context.Context, email, userID string) (int64, error) {
	f.email, f.userID = email, userID
	return 1, f.err
}

func newService(users *fakeUsers, resolver *fakeResolver) *AuthService {
	return New(sl.NewDiscardLogger(), users, users, resolver, time.Hour, secret)
}

func TestRegisterNewUser_ResolvesPendingShares(t *testing.T) {
	users := &fakeUsers{byEmail: map[string]models.User{}}
	resolver := &fakeResolver{}

	id, err := newService(users, resolver).RegisterNewUser(context.Background(), " Bob@Example.com ", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	assert.Equal(t, "bob@example.com", resolver.email)
	assert.Equal(t, id, resolver.userID)

	saved := users.byEmail["bob@example.com"]
	require.NoError(t, bcrypt.CompareHashAndPassword(saved.PassHash, []byte("password1")))
}

func TestRegisterNewUser_ResolveFailureIsNotFatal(t *testing.T) {
	users := &fakeUsers{byEmail: map[string]models.User{}}

	id, err := newService(users, &fakeResolver{err: errors.New("db down")}).
		RegisterNewUser(context.Background(), "bob@example.com", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestRegisterNewUser_Exists(t *testing.T) {
	users := &fakeUsers{byEmail: map[string]models.User{"bob@example.com": {ID: "u"}}}
	resolver := &fakeResolver{}

	_, err := newService(users, resolver).RegisterNewUser(context.Background(), "bob@example.com", "password1")
	require.ErrorIs(t, err, errs.ErrUserExists)
	assert.Empty(t, resolver.userID)
}

func TestLogin(t *testing.T) {
	users := &fakeUsers{byEmail: map[string]models.User{}}
	svc := newService(users, &fakeResolver{})

	id, err := svc.RegisterNewUser(context.Background(), "al@example.com", "password1")
	require.NoError(t, err)

	token, err := svc.Login(context.Background(), "AL@example.com", "password1")
	require.NoError(t, err)

	claims, err := jwtmid.ParseToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "al@example.com", claims.Email)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	users := &fakeUsers{byEmail: map[string]models.User{}}
	svc := newService(users, &fakeResolver{})

	_, err := svc.RegisterNewUser(context.Background(), "al@example.com", "password1")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "al@example.com", "wrong")
	require.ErrorIs(t, err, errs.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "ghost@example.com", "password1")
	require.ErrorIs(t, err, errs.ErrInvalidCredentials)
}
