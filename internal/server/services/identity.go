// Package services contains server-side business logic: the identity
// service that owns credentials and the session manager that turns a
// verified identity into a token pair and keeps the refresh record current.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/users"
	"golang.org/x/crypto/bcrypt"
)

// IdentityService registers users and checks their passwords.
type IdentityService struct {
	repo      users.Repository
	cost      int
	dummyHash []byte
}

type IdentityOption func(*IdentityService)

// WithBcryptCost overrides bcrypt.DefaultCost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) IdentityOption {
	return func(s *IdentityService) {
		s.cost = cost
	}
}

func NewIdentityService(repo users.Repository, opts ...IdentityOption) (*IdentityService, error) {
	s := &IdentityService{repo: repo, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}

	// compared against when the email is unknown, so both paths cost one bcrypt run
	h, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost)
	if err != nil {
		return nil, fmt.Errorf("error preparing password hasher: %w", err)
	}
	s.dummyHash = h
	return s, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a customer identity. An email that is already taken
// yields common.ErrDuplicateIdentity.
func (s *IdentityService) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	pw := []byte(password)
	defer common.WipeByteArray(pw)

	hash, err := bcrypt.GenerateFromPassword(pw, s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password too long", common.ErrorValidation)
		}
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	u, err := s.repo.Create(ctx, &models.User{
		Email:        normalizeEmail(email),
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         common.RoleCustomer,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// Authenticate returns the identity for a matching email/password pair and
// common.ErrCredentialMismatch otherwise. Unknown email and wrong password
// are indistinguishable to the caller.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	pw := []byte(password)
	defer common.WipeByteArray(pw)

	u, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, pw)
			return nil, common.ErrCredentialMismatch
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, pw); err != nil {
		return nil, common.ErrCredentialMismatch
	}
	return u, nil
}

// FindByID returns common.ErrIdentityNotFound for a deleted or unknown user.
func (s *IdentityService) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	return u, nil
}
