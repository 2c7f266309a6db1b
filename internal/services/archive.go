package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"pageguard/internal/events"
	"pageguard/internal/models"
	"pageguard/internal/utils"
	"pageguard/internal/utils/crypto"
	"pageguard/internal/utils/logger"
)

// ObjectUploader stores archive payloads outside the database.
type ObjectUploader interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
}

// Archiver snapshots what a user deletion is about to remove. It runs inside
// the deletion transaction; an error aborts the deletion.
type Archiver interface {
	Archive(ctx context.Context, tx *gorm.DB, user *models.User) (*models.UserArchive, error)
}

// ArchiveSnapshot is the signed payload of a UserArchive.
type ArchiveSnapshot struct {
	UserID     string            `json:"userId"`
	Email      string            `json:"email"`
	Username   string            `json:"username"`
	Role       models.UserRole   `json:"role"`
	ArchivedAt time.Time         `json:"archivedAt"`
	Comments   []ArchivedComment `json:"comments"`
}

type ArchivedComment struct {
	ID        string                  `json:"id"`
	PageName  string                  `json:"pageName"`
	Content   string                  `json:"content"`
	IsDeleted bool                    `json:"isDeleted"`
	Version   int                     `json:"version"`
	CreatedAt time.Time               `json:"createdAt"`
	History   []models.CommentHistory `json:"history"`
}

// HistoryArchiver writes signed UserArchive rows and optionally offloads the
// snapshot to object storage.
type HistoryArchiver struct {
	signingKey string
	uploader   ObjectUploader
	log        *logger.Logger
}

// NewHistoryArchiver builds an archiver. uploader may be nil.
func NewHistoryArchiver(signingKey string, uploader ObjectUploader) *HistoryArchiver {
	return &HistoryArchiver{signingKey: signingKey, uploader: uploader, log: logger.New("ARCHIVE")}
}

func (a *HistoryArchiver) Archive(ctx context.Context, tx *gorm.DB, user *models.User) (*models.UserArchive, error) {
	var comments []models.Comment
	err := tx.WithContext(ctx).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("user_id = ?", user.ID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load comments of %s: %w", user.ID, err)
	}

	snapshot := ArchiveSnapshot{
		UserID:     user.ID,
		Email:      user.Email,
		Username:   user.Username,
		Role:       user.Role,
		ArchivedAt: time.Now().UTC(),
		Comments:   make([]ArchivedComment, 0, len(comments)),
	}
	historyCount := 0
	for _, c := range comments {
		historyCount += len(c.History)
		snapshot.Comments = append(snapshot.Comments, ArchivedComment{
			ID:        c.ID,
			PageName:  c.PageName,
			Content:   c.Content,
			IsDeleted: c.IsDeleted,
			Version:   c.Version,
			CreatedAt: c.CreatedAt,
			History:   c.History,
		})
	}

	payload, err := utils.ToJSON(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode archive of %s: %w", user.ID, err)
	}
	signature, err := crypto.Sign(payload, a.signingKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign archive of %s: %w", user.ID, err)
	}

	archive := &models.UserArchive{
		UserID:       user.ID,
		Email:        user.Email,
		CommentCount: len(comments),
		HistoryCount: historyCount,
		Snapshot:     payload,
		Signature:    signature,
	}

	if a.uploader != nil {
		key := fmt.Sprintf("archives/users/%s/%d.json", user.ID, snapshot.ArchivedAt.UnixNano())
		if err := a.uploader.PutObject(ctx, key, payload, "application/json"); err != nil {
			return nil, fmt.Errorf("failed to offload archive of %s: %w", user.ID, err)
		}
		archive.ObjectKey = key
	}

	if err := tx.WithContext(ctx).Create(archive).Error; err != nil {
		return nil, fmt.Errorf("failed to store archive of %s: %w", user.ID, err)
	}

	events.Emit(events.ArchiveRecorded, archive)
	a.log.Info("Archived %d comments and %d history entries of %s", len(comments), historyCount, user.Email)
	return archive, nil
}

// Verify reports whether the stored snapshot still matches its signature.
func (a *HistoryArchiver) Verify(archive *models.UserArchive) bool {
	return crypto.Verify(archive.Snapshot, a.signingKey, archive.Signature)
}
