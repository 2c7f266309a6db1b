package models

import (
	"pageguard/internal/events"

	"gorm.io/gorm"
)

func (u *User) AfterCreate(tx *gorm.DB) error {
	events.Emit(events.UserCreated, u.ID)
	return nil
}

func (c *Comment) AfterCreate(tx *gorm.DB) error {
	events.Emit(events.CommentCreated, c.ID)
	return nil
}
