package policies

import (
	"context"
	"errors"
	"sort"
	"strings"

	"stockfolio-backend/internal/domain"
	"stockfolio-backend/internal/pkg/constants"

	"gorm.io/gorm"
)

var (
	ErrTargetUserNotFound           = errors.New("User not found")
	ErrOnlyAdminsCanManageUsers     = errors.New("Only admins can manage users")
	ErrRolesRequired                = errors.New("At least one role is required")
	ErrUnknownRole                  = errors.New("Unknown role")
	ErrRolesMustIncludeUser         = errors.New("Roles must include \"user\"")
	ErrAdminsCannotDropOwnAdmin     = errors.New("Admins cannot remove their own admin role")
	ErrMustHaveAtLeastOneAdmin      = errors.New("There must be at least one admin")
	ErrAdminsCannotDeleteThemselves = errors.New("Admins cannot delete their own account")
)

// ValidateRoleAssignmentParams describes a role change requested by Actor.
type ValidateRoleAssignmentParams struct {
	Actor          *domain.User
	TargetUsername string
	Roles          []string
}

// NormalizeRoles lowercases, dedupes and sorts role tags.
func NormalizeRoles(roles []string) []string {
	seen := make(map[string]bool, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// ValidateRoleAssignment returns the target user and the normalized role set, or the
// policy violation. Rules:
// - only admins change roles
// - roles are known tags and always include "user"
// - an admin cannot drop their own admin tag
// - the last admin cannot be demoted
func ValidateRoleAssignment(ctx context.Context, db *gorm.DB, params ValidateRoleAssignmentParams) (*domain.User, []string, error) {
	if params.Actor == nil || !params.Actor.HasRole(constants.RoleAdmin) {
		return nil, nil, ErrOnlyAdminsCanManageUsers
	}
	roles := NormalizeRoles(params.Roles)
	if len(roles) == 0 {
		return nil, nil, ErrRolesRequired
	}
	hasUser, hasAdmin := false, false
	for _, r := range roles {
		if !constants.IsValidRole(r) {
			return nil, nil, ErrUnknownRole
		}
		hasUser = hasUser || r == constants.RoleUser
		hasAdmin = hasAdmin || r == constants.RoleAdmin
	}
	if !hasUser {
		return nil, nil, ErrRolesMustIncludeUser
	}

	target, err := findTarget(ctx, db, params.TargetUsername)
	if err != nil {
		return nil, nil, err
	}
	if target.HasRole(constants.RoleAdmin) && !hasAdmin {
		if target.Username == params.Actor.Username {
			return nil, nil, ErrAdminsCannotDropOwnAdmin
		}
		n, err := CountAdmins(ctx, db)
		if err != nil {
			return nil, nil, err
		}
		if n <= 1 {
			return nil, nil, ErrMustHaveAtLeastOneAdmin
		}
	}
	return target, roles, nil
}

// ValidateDeletion checks that actor may delete targetUsername and returns the target.
func ValidateDeletion(ctx context.Context, db *gorm.DB, actor *domain.User, targetUsername string) (*domain.User, error) {
	if actor == nil || !actor.HasRole(constants.RoleAdmin) {
		return nil, ErrOnlyAdminsCanManageUsers
	}
	if actor.Username == targetUsername {
		return nil, ErrAdminsCannotDeleteThemselves
	}
	return findTarget(ctx, db, targetUsername)
}

// CountAdmins counts users carrying the admin tag. Roles live in a JSON column,
// so the filter runs in Go rather than in dialect-specific SQL.
func CountAdmins(ctx context.Context, db *gorm.DB) (int, error) {
	var users []domain.User
	if err := db.WithContext(ctx).Select("user_id", "roles").Find(&users).Error; err != nil {
		return 0, err
	}
	n := 0
	for i := range users {
		if users[i].HasRole(constants.RoleAdmin) {
			n++
		}
	}
	return n, nil
}

func findTarget(ctx context.Context, db *gorm.DB, username string) (*domain.User, error) {
	var target domain.User
	if err := db.WithContext(ctx).Where("username = ?", username).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTargetUserNotFound
		}
		return nil, err
	}
	return &target, nil
}
