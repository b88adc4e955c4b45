package authservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zanzhit/voicetribe/internal/domain/errs"
	"github.com/zanzhit/voicetribe/internal/domain/models"
	jwtmid "github.com/zanzhit/voicetribe/internal/lib/jwt"
	"github.com/zanzhit/voicetribe/internal/lib/sl"

	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	secret          string
	tokenTTL        time.Duration
	log             *slog.Logger
	userSaver       UserSaver
	userProvider    UserProvider
	pendingResolver PendingResolver
}

type UserSaver interface {
	SaveUser(ctx context.Context, id, email string, passHash []byte) (string, error)
}

type UserProvider interface {
	User(ctx context.Context, email string) (models.User, error)
}

// PendingResolver grants a freshly registered user the shares that were
// waiting for their email address.
type PendingResolver interface {
	ResolvePending(ctx context.Context, email, userID string) (int64, error)
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	pendingResolver PendingResolver,
	tokenTTL time.Duration,
	secret string,
) *AuthService {
	return &AuthService{
		secret:          secret,
		tokenTTL:        tokenTTL,
		log:             log,
		userSaver:       userSaver,
		userProvider:    userProvider,
		pendingResolver: pendingResolver,
	}
}

func (s *AuthService) RegisterNewUser(ctx context.Context, email, password string) (string, error) {
	const op = "service.auth.Register"

	email = normalizeEmail(email)

	log := s.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	log.Info("registering user")

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to hash password", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	id, err := s.userSaver.SaveUser(ctx, uuid.NewString(), email, passHash)
	if err != nil {
		if errors.Is(err, errs.ErrUserExists) {
			log.Warn("user already exists", sl.Err(err))

			return "", fmt.Errorf("%s: %w", op, errs.ErrUserExists)
		}

		log.Error("failed to save user", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	resolved, err := s.pendingResolver.ResolvePending(ctx, email, id)
	if err != nil {
		// the account exists either way; shares stay pending until the next attempt
		log.Error("failed to resolve pending shares", sl.Err(err))
	} else if resolved > 0 {
		log.Info("resolved pending shares", slog.Int64("count", resolved))
	}

	return id, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	const op = "service.auth.Login"

	email = normalizeEmail(email)

	log := s.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)

	log.Info("attempting to login user")

	user, err := s.userProvider.User(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrUserNotFound) {
			log.Warn("user not found", sl.Err(err))

			return "", fmt.Errorf("%s: %w", op, errs.ErrInvalidCredentials)
		}

		log.Error("failed to get user", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Info("invalid credentials", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, errs.ErrInvalidCredentials)
	}

	log.Info("user logged in successfully")

	token, err := jwtmid.NewToken(user, s.tokenTTL, s.secret)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
