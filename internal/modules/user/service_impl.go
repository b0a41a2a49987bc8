package user

import (
	"context"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/georgemunganga/printa-pos/internal/modules/localcache"
)

type service struct {
	repo  Repository
	cache localcache.Cache
	log   log.FieldLogger
}

// NewService creates a new user service. The setup flag lives in cache.
func NewService(repo Repository, cache localcache.Cache, logger log.FieldLogger) Service {
	return &service{repo: repo, cache: cache, log: logger}
}

// NormalizeEmail lower-cases and trims an address so lookups match registration.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) RegisterUser(ctx context.Context, req RegisterRequest) (*User, error) {
	email := NormalizeEmail(req.Email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, ErrInvalidEmail
	}
	if len(req.Password) < minPasswordLen {
		return nil, ErrWeakPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	user := &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.log.WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *service) MarkSetupDone(ctx context.Context, id uuid.UUID) error {
	return s.cache.Set(ctx, localcache.SetupDoneKey(id), true)
}

func (s *service) SetupDone(ctx context.Context, id uuid.UUID) (bool, error) {
	var done bool
	err := s.cache.Get(ctx, localcache.SetupDoneKey(id), &done)
	if errors.Is(err, localcache.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return done, nil
}
