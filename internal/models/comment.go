package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Comment struct {
	Base
	UserID       string           `gorm:"type:uuid;not null;index" json:"userId"`
	User         *User            `json:"user,omitempty"`
	PageID       string           `gorm:"type:uuid;not null;index" json:"pageId"`
	PageName     string           `gorm:"not null;index" json:"pageName"`
	Content      string           `gorm:"type:text;not null" json:"content"`
	ModifiedByID *string          `gorm:"type:uuid" json:"modifiedById,omitempty"`
	ModifiedBy   *User            `gorm:"foreignKey:ModifiedByID;constraint:OnDelete:SET NULL" json:"modifiedBy,omitempty"`
	Version      int              `gorm:"not null;default:1" json:"version"`
	History      []CommentHistory `gorm:"foreignKey:CommentID" json:"history,omitempty"`
}

type HistoryAction string

const (
	HistoryCreate HistoryAction = "CREATE"
	HistoryEdit   HistoryAction = "EDIT"
	HistoryDelete HistoryAction = "DELETE"
)

// CommentHistory is append-only. Rows are never updated except for clearing
// ActorID when the actor is removed.
type CommentHistory struct {
	ID         string        `gorm:"type:uuid;primary_key" json:"id"`
	CommentID  string        `gorm:"type:uuid;not null;uniqueIndex:idx_comment_history_seq" json:"commentId"`
	Seq        int           `gorm:"not null;uniqueIndex:idx_comment_history_seq" json:"seq"`
	ActorID    *string       `gorm:"type:uuid;index" json:"actorId"`
	Actor      *User         `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Action     HistoryAction `gorm:"not null" json:"action"`
	OldContent *string       `gorm:"type:text" json:"oldContent"`
	NewContent *string       `gorm:"type:text" json:"newContent"`
	Timestamp  time.Time     `gorm:"not null" json:"timestamp"`
}

func (h *CommentHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.Timestamp.IsZero() {
		h.Timestamp = time.Now()
	}
	return nil
}
