// Package accounts owns users and creates/deletes their portfolios alongside them.
package accounts

import (
	"context"
	"errors"
	"strings"
	"unicode"

	policies "stockfolio-backend/internal/application/policies/user"
	"stockfolio-backend/internal/domain"
	"stockfolio-backend/internal/pkg/constants"
	"stockfolio-backend/internal/pkg/validation"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const bcryptCost = 10

var (
	ErrInvalidUsername    = errors.New("Username must be 3-32 letters, digits, dots, dashes or underscores")
	ErrInvalidEmail       = errors.New("Invalid email format")
	ErrInvalidPassword    = errors.New("Invalid password format")
	ErrNameRequired       = errors.New("Name is required and must be a non-empty string")
	ErrInvalidName        = errors.New("Name contains invalid characters (only letters, spaces, hyphens, and apostrophes allowed)")
	ErrEmailTaken         = errors.New("Email already registered")
	ErrUsernameTaken      = errors.New("Username already registered")
	ErrUserNotFound       = policies.ErrTargetUserNotFound
	ErrInvalidCredentials = errors.New("Invalid username or password")
)

// Service holds the DB for account operations.
type Service struct {
	DB *gorm.DB
}

// CreateUserInput is a registration request.
type CreateUserInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// CreateUser registers a user with the "user" role and an empty portfolio in one transaction.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	return s.create(ctx, in, []string{constants.RoleUser})
}

func (s *Service) create(ctx context.Context, in CreateUserInput, roles []string) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	if !validation.IsValidUsername(username) {
		return nil, ErrInvalidUsername
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !validation.IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !validation.IsValidPassword(in.Password) {
		return nil, ErrInvalidPassword
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if !validation.IsValidFullname(name) {
		return nil, ErrInvalidName
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		Username:     username,
		Email:        email,
		Name:         titleCaseAndNormalize(name),
		PasswordHash: string(hash),
		Roles:        roles,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.User
		if err := tx.Where("email = ?", email).First(&existing).Error; err == nil {
			return ErrEmailTaken
		}
		if err := tx.Where("username = ?", username).First(&existing).Error; err == nil {
			return ErrUsernameTaken
		}
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		return tx.Create(&domain.Portfolio{Username: username}).Error
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("username", username).Strs("roles", roles).Msg("user created")
	return u, nil
}

func (s *Service) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Authenticate checks a username/password pair. Unknown users and wrong passwords
// return the same error.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	u, err := s.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// ListUsers returns every account ordered by username.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	var list []domain.User
	if err := s.DB.WithContext(ctx).Order("username ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// UpdateRoles replaces target's role tags after the governance policy passes.
func (s *Service) UpdateRoles(ctx context.Context, actor *domain.User, target string, roles []string) (*domain.User, error) {
	u, normalized, err := policies.ValidateRoleAssignment(ctx, s.DB, policies.ValidateRoleAssignmentParams{
		Actor:          actor,
		TargetUsername: target,
		Roles:          roles,
	})
	if err != nil {
		return nil, err
	}
	u.Roles = normalized
	if err := s.DB.WithContext(ctx).Save(u).Error; err != nil {
		return nil, err
	}
	log.Info().Str("actor", actor.Username).Str("target", target).Strs("roles", normalized).Msg("roles updated")
	return u, nil
}

// DeleteUser removes target together with its portfolio and trade journal.
func (s *Service) DeleteUser(ctx context.Context, actor *domain.User, target string) error {
	u, err := policies.ValidateDeletion(ctx, s.DB, actor, target)
	if err != nil {
		return err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("username = ?", u.Username).Delete(&domain.Trade{}).Error; err != nil {
			return err
		}
		if err := tx.Where("username = ?", u.Username).Delete(&domain.Portfolio{}).Error; err != nil {
			return err
		}
		return tx.Delete(u).Error
	})
	if err != nil {
		return err
	}
	log.Info().Str("actor", actor.Username).Str("target", target).Msg("user deleted")
	return nil
}

// EnsureAdmin makes sure username exists and carries the admin tag. It is safe to call
// on every startup; an existing account keeps its password.
func (s *Service) EnsureAdmin(ctx context.Context, username, password, email string) (*domain.User, error) {
	u, err := s.FindByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		if email == "" {
			email = username + "@localhost.localdomain"
		}
		return s.create(ctx, CreateUserInput{
			Username: username,
			Email:    email,
			Name:     "Administrator",
			Password: password,
		}, []string{constants.RoleAdmin, constants.RoleUser})
	}
	if err != nil {
		return nil, err
	}
	if u.HasRole(constants.RoleAdmin) {
		return u, nil
	}
	u.Roles = policies.NormalizeRoles(append(u.Roles, constants.RoleAdmin, constants.RoleUser))
	if err := s.DB.WithContext(ctx).Save(u).Error; err != nil {
		return nil, err
	}
	log.Info().Str("username", username).Msg("admin role granted at startup")
	return u, nil
}

func titleCaseAndNormalize(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	var b strings.Builder
	capitalize := true
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !capitalize {
				b.WriteRune(' ')
				capitalize = true
			}
			continue
		}
		if capitalize {
			b.WriteRune(unicode.ToUpper(r))
			capitalize = false
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
