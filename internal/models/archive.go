package models

import (
	"gorm.io/datatypes"
)

// UserArchive is the tombstone written when a user is deleted. Snapshot holds
// the comments and history chains removed by the cascade.
type UserArchive struct {
	Base
	UserID       string         `gorm:"type:uuid;not null;index" json:"userId"`
	Email        string         `gorm:"not null" json:"email"`
	CommentCount int            `json:"commentCount"`
	HistoryCount int            `json:"historyCount"`
	Snapshot     datatypes.JSON `json:"snapshot"`
	Signature    string         `gorm:"not null" json:"signature"`
	ObjectKey    string         `json:"objectKey,omitempty"`
}
