// Package ledger stores comments together with their append-only history.
// It does not check permissions; callers gate every call through the resolver.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pageguard/internal/common"
	"pageguard/internal/events"
	"pageguard/internal/metrics"
	"pageguard/internal/models"
	"pageguard/internal/utils/logger"
)

const maxAttempts = 3

var errVersionConflict = errors.New("comment version changed concurrently")

type Ledger struct {
	db  *gorm.DB
	log *logger.Logger
}

func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db, log: logger.New("LEDGER")}
}

// Create stores a new comment and its CREATE entry in one transaction.
func (l *Ledger) Create(ctx context.Context, actor *models.User, page *models.Page, content string) (*models.Comment, error) {
	comment := &models.Comment{
		UserID:   actor.ID,
		PageID:   page.ID,
		PageName: page.Name,
		Content:  content,
		Version:  1,
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return appendHistory(tx, comment.ID, actor.ID, models.HistoryCreate, nil, &content)
	})
	if err != nil {
		return nil, l.log.Error("Failed to create comment on %s", err, page.Name)
	}

	metrics.CommentMutations.WithLabelValues(string(models.HistoryCreate)).Inc()
	return comment, nil
}

// Edit replaces the content of a live comment and records an EDIT entry holding
// the content before and after. Soft-deleted or missing comments are NOT_FOUND.
func (l *Ledger) Edit(ctx context.Context, actor *models.User, commentID, newContent string) (*models.Comment, error) {
	comment, err := l.mutate(ctx, actor, commentID, models.HistoryEdit, func(c *models.Comment) (map[string]interface{}, *string, *string) {
		old := c.Content
		return map[string]interface{}{"content": newContent}, &old, &newContent
	})
	if err != nil {
		return nil, err
	}
	events.Emit(events.CommentEdited, comment.ID)
	return comment, nil
}

// SoftDelete hides a live comment. The content is kept and recorded as the
// old content of the DELETE entry.
func (l *Ledger) SoftDelete(ctx context.Context, actor *models.User, commentID string) error {
	comment, err := l.mutate(ctx, actor, commentID, models.HistoryDelete, func(c *models.Comment) (map[string]interface{}, *string, *string) {
		old := c.Content
		return map[string]interface{}{"is_deleted": true}, &old, nil
	})
	if err != nil {
		return err
	}
	events.Emit(events.CommentDeleted, comment.ID)
	return nil
}

type mutation func(c *models.Comment) (updates map[string]interface{}, oldContent, newContent *string)

// mutate locks the comment row, applies the change guarded by the version column
// and appends exactly one history entry, all in one transaction.
func (l *Ledger) mutate(ctx context.Context, actor *models.User, commentID string, action models.HistoryAction, fn mutation) (*models.Comment, error) {
	if !validID(commentID) {
		return nil, common.NotFound("comment")
	}
	var result *models.Comment

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var c models.Comment
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ? AND is_deleted = ?", commentID, false).
				First(&c).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.NotFound("comment")
			}
			if err != nil {
				return err
			}

			updates, oldContent, newContent := fn(&c)
			updates["version"] = c.Version + 1
			updates["modified_by_id"] = actor.ID
			updates["updated_at"] = time.Now().UTC()

			res := tx.Model(&models.Comment{}).
				Where("id = ? AND version = ?", c.ID, c.Version).
				Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errVersionConflict
			}

			if err := appendHistory(tx, c.ID, actor.ID, action, oldContent, newContent); err != nil {
				return err
			}

			var updated models.Comment
			if err := tx.First(&updated, "id = ?", c.ID).Error; err != nil {
				return err
			}
			result = &updated
			return nil
		})

		if errors.Is(err, errVersionConflict) {
			l.log.Warn("Version conflict on comment %s (attempt %d/%d)", commentID, attempt, maxAttempts)
			continue
		}
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil, err
			}
			return nil, l.log.Error("Failed to %s comment %s", err, action, commentID)
		}

		metrics.CommentMutations.WithLabelValues(string(action)).Inc()
		return result, nil
	}
	return nil, common.Internal(errVersionConflict)
}

func appendHistory(tx *gorm.DB, commentID, actorID string, action models.HistoryAction, oldContent, newContent *string) error {
	var last int
	if err := tx.Model(&models.CommentHistory{}).
		Where("comment_id = ?", commentID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&last).Error; err != nil {
		return err
	}

	actor := actorID
	entry := &models.CommentHistory{
		CommentID:  commentID,
		Seq:        last + 1,
		ActorID:    &actor,
		Action:     action,
		OldContent: oldContent,
		NewContent: newContent,
	}
	return tx.Create(entry).Error
}

// Get returns a comment in any state.
func (l *Ledger) Get(ctx context.Context, commentID string) (*models.Comment, error) {
	if !validID(commentID) {
		return nil, common.NotFound("comment")
	}
	var c models.Comment
	err := l.db.WithContext(ctx).Preload("User").First(&c, "id = ?", commentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFound("comment")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// History returns every entry of a comment newest first, whether or not the comment is deleted.
func (l *Ledger) History(ctx context.Context, commentID string) ([]models.CommentHistory, error) {
	if _, err := l.Get(ctx, commentID); err != nil {
		return nil, err
	}

	var entries []models.CommentHistory
	err := l.db.WithContext(ctx).
		Preload("Actor").
		Where("comment_id = ?", commentID).
		Order("seq DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ListForPage returns the live comments of a page newest first.
func (l *Ledger) ListForPage(ctx context.Context, pageName string) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := l.db.WithContext(ctx).
		Preload("User").
		Preload("ModifiedBy").
		Where("page_name = ? AND is_deleted = ?", pageName, false).
		Order("created_at DESC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// validID keeps malformed ids away from uuid columns.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
