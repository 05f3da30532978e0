package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/auth"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/db"
	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/repository"
)

// General handles accounts: registration, login and token checks.
type General struct {
	store  *repository.Store
	tokens *auth.TokenManager
	logger *zap.SugaredLogger
}

func NewGeneral(store *repository.Store, tokens *auth.TokenManager, l *zap.SugaredLogger) *General {
	return &General{
		store:  store,
		tokens: tokens,
		logger: l,
	}
}

func (s *General) Register(ctx context.Context, email, pass string) (string, error) {
	email = normalizeEmail(email)
	if email == "" || pass == "" {
		return "", invalid("email and password are required")
	}

	hash, err := auth.HashPassword(pass)
	if err != nil {
		return "", err
	}
	user := &db.User{Email: email, Password: hash}
	err = s.store.UnitOfWork(ctx).Transaction(func(uow *repository.UnitOfWork) error {
		_, err := uow.Users().FindByEmail(email)
		switch {
		case err == nil:
			return errors.Wrapf(ErrDuplicate, "user %s already exists", email)
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}
		uow.Users().Add(user)
		return nil
	})
	if err != nil {
		return "", saveErr(err, "user")
	}

	s.logger.Infow("user registered", "userID", user.ID)
	return s.tokens.Issue(user.ID)
}

func (s *General) Login(ctx context.Context, email, pass string) (string, error) {
	user, err := s.store.UnitOfWork(ctx).Users().FindByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrLoginUserNotFound
		}
		return "", err
	}

	if err := auth.VerifyPassword(user.Password, pass); err != nil {
		return "", ErrLoginPasswordDoesNotMatch
	}

	return s.tokens.Issue(user.ID)
}

// Authenticate resolves a bearer token to its user id.
func (s *General) Authenticate(token string) (uuid.UUID, error) {
	userID, err := s.tokens.Validate(token)
	if err != nil {
		return uuid.Nil, errors.Wrap(ErrUnauthorized, err.Error())
	}
	return userID, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
