package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base contains common columns for all tables
type Base struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	IsDeleted bool      `gorm:"not null;default:false" json:"isDeleted"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *Base) BeforeCreate(tx *gorm.DB) error {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
	return nil
}

type UserRole string

const (
	UserRoleSuperAdmin UserRole = "superadmin"
	UserRoleRegular    UserRole = "user"
)

func (r UserRole) Valid() bool {
	return r == UserRoleSuperAdmin || r == UserRoleRegular
}

// Action is a page level capability checked by the resolver.
type Action string

const (
	ActionView   Action = "view"
	ActionEdit   Action = "edit"
	ActionCreate Action = "create"
	ActionDelete Action = "delete"
)

func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionEdit, ActionCreate, ActionDelete:
		return true
	}
	return false
}
