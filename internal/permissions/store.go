// Package permissions is the durable (user, page) -> flags mapping.
package permissions

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pageguard/internal/common"
	"pageguard/internal/models"
)

// Store persists page permission grants. At most one row exists per (user, page).
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx returns a store whose queries run inside tx.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

// UpsertGrant creates the grant when absent and otherwise overwrites all four flags.
// Superadmin access is role derived, so granting to a superadmin is a policy violation.
func (s *Store) UpsertGrant(ctx context.Context, user *models.User, page *models.Page, flags models.Flags) (*models.PagePermission, error) {
	if user.IsSuperAdmin() {
		return nil, common.PolicyViolation("Super admin permissions cannot be modified")
	}

	grant := &models.PagePermission{UserID: user.ID, PageID: page.ID}
	grant.SetFlags(flags)

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "page_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"can_view":   flags.CanView,
			"can_edit":   flags.CanEdit,
			"can_create": flags.CanCreate,
			"can_delete": flags.CanDelete,
			"updated_at": time.Now().UTC(),
		}),
	}).Create(grant).Error
	if err != nil {
		return nil, err
	}

	// The insert may have lost to an existing row; read back the stored grant.
	return s.GetGrant(ctx, user.ID, page.ID)
}

// GetGrant returns the grant for (userID, pageID) or a NOT_FOUND error.
func (s *Store) GetGrant(ctx context.Context, userID, pageID string) (*models.PagePermission, error) {
	var grant models.PagePermission
	err := s.db.WithContext(ctx).Preload("Page").
		Where("user_id = ? AND page_id = ?", userID, pageID).
		First(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFound("permission")
	}
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// ListGrants returns every grant held by userID on a live page, ordered by page name.
func (s *Store) ListGrants(ctx context.Context, userID string) ([]models.PagePermission, error) {
	var grants []models.PagePermission
	err := s.db.WithContext(ctx).
		Preload("Page").
		Joins("JOIN pages ON pages.id = page_permissions.page_id").
		Where("page_permissions.user_id = ? AND pages.is_deleted = ?", userID, false).
		Order("pages.name ASC").
		Find(&grants).Error
	if err != nil {
		return nil, err
	}
	return grants, nil
}

// DeleteAllGrants removes every grant held by userID. Only the user deletion cascade calls it.
func (s *Store) DeleteAllGrants(ctx context.Context, userID string) (int64, error) {
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PagePermission{})
	return res.RowsAffected, res.Error
}
