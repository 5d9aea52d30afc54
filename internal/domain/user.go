package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is an account. Username is the identity key used by every other table.
type User struct {
	UserID       uuid.UUID                   `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Username     string                      `gorm:"column:username;type:varchar(32);not null;uniqueIndex" json:"username"`
	Email        string                      `gorm:"column:email;not null;uniqueIndex" json:"email"`
	Name         string                      `gorm:"column:name;not null" json:"name"`
	PasswordHash string                      `gorm:"column:password_hash;not null" json:"-"`
	Roles        datatypes.JSONSlice[string] `gorm:"column:roles;not null" json:"roles"`
	CreatedAt    time.Time                   `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt    time.Time                   `gorm:"column:updatedAt" json:"updatedAt"`
}

func (User) TableName() string {
	return "Users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserID == uuid.Nil {
		u.UserID = uuid.New()
	}
	return nil
}

// HasRole reports whether the user carries the given role tag.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
