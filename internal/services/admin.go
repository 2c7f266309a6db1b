package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pageguard/internal/common"
	"pageguard/internal/events"
	"pageguard/internal/models"
	"pageguard/internal/permissions"
	"pageguard/internal/resolver"
	"pageguard/internal/utils"
	"pageguard/internal/utils/logger"
)

// GeneratedPasswordLength is the length of passwords generated for new users and resets.
const GeneratedPasswordLength = 12

// AdminService manages users, pages and grants. Every grant change invalidates
// the permission cache of its user before returning.
type AdminService struct {
	db       *gorm.DB
	store    *permissions.Store
	resolver *resolver.Resolver
	archiver Archiver
	users    ReadService[models.User]
	log      *logger.Logger
}

func NewAdminService(db *gorm.DB, store *permissions.Store, r *resolver.Resolver, archiver Archiver) (*AdminService, error) {
	users, err := NewReadService(db, models.User{})
	if err != nil {
		return nil, err
	}
	return &AdminService{
		db:       db,
		store:    store,
		resolver: r,
		archiver: archiver,
		users:    users,
		log:      logger.New("ADMIN"),
	}, nil
}

type CreateUserInput struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Phone     string
	Role      models.UserRole
	// Password is generated when empty.
	Password string
}

// CreateUser stores a new active user. The returned password is the plain text
// password, shown to the administrator once.
func (s *AdminService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, "", common.Validation("email", "email is required")
	}
	if in.Role == "" {
		in.Role = models.UserRoleRegular
	}
	if !in.Role.Valid() {
		return nil, "", common.Validation("role", "role must be user or superadmin")
	}
	if in.Username == "" {
		in.Username = strings.Split(email, "@")[0]
	}

	password := in.Password
	if password == "" {
		generated, err := utils.GenerateStrongPassword(GeneratedPasswordLength)
		if err != nil {
			return nil, "", common.Internal(err)
		}
		password = generated
	} else if len(password) < 8 {
		return nil, "", common.Validation("password", "password must be at least 8 characters")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", common.Internal(err)
	}

	user := &models.User{
		Email:     email,
		Username:  in.Username,
		Password:  hash,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
		Role:      in.Role,
		IsActive:  true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return common.Validation("email", "a user with this email already exists")
		}
		if err := tx.Model(&models.User{}).Where("username = ?", in.Username).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return common.Validation("username", "a user with this username already exists")
		}
		return tx.Create(user).Error
	})
	if err != nil {
		var typed *common.Error
		if errors.As(err, &typed) {
			return nil, "", err
		}
		return nil, "", s.log.Error("Failed to create user %s", err, email)
	}

	s.log.Success("Created %s user %s", user.Role, user.Email)
	return user, password, nil
}

type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
	IsActive  *bool
	Role      *models.UserRole
}

// UpdateUser applies a partial update. A superadmin cannot be demoted or deactivated.
// Promotion to superadmin drops the user's grants in the same transaction.
func (s *AdminService) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*models.User, error) {
	if !validID(id) {
		return nil, common.NotFound("User")
	}

	var roleChanged, activeChanged bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, id)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if in.FirstName != nil {
			updates["first_name"] = *in.FirstName
		}
		if in.LastName != nil {
			updates["last_name"] = *in.LastName
		}
		if in.Phone != nil {
			updates["phone"] = *in.Phone
		}
		if in.Role != nil && *in.Role != user.Role {
			if !in.Role.Valid() {
				return common.Validation("role", "role must be user or superadmin")
			}
			if user.IsSuperAdmin() {
				return common.PolicyViolation("Super admin role cannot be changed")
			}
			updates["role"] = *in.Role
			roleChanged = true
		}
		if in.IsActive != nil && *in.IsActive != user.IsActive {
			if user.IsSuperAdmin() && !*in.IsActive {
				return common.PolicyViolation("Super admin cannot be deactivated")
			}
			updates["is_active"] = *in.IsActive
			activeChanged = true
		}
		if len(updates) == 0 {
			return nil
		}

		if err := tx.Model(user).Updates(updates).Error; err != nil {
			return err
		}
		if roleChanged && *in.Role == models.UserRoleSuperAdmin {
			dropped, err := s.store.WithTx(tx).DeleteAllGrants(ctx, id)
			if err != nil {
				return err
			}
			if dropped > 0 {
				s.log.Info("Dropped %d grants of %s on promotion to super admin", dropped, user.Email)
			}
		}
		return nil
	})
	if err != nil {
		var typed *common.Error
		if errors.As(err, &typed) {
			return nil, err
		}
		return nil, common.Internal(s.log.Error("Failed to update user %s", err, id))
	}

	if roleChanged || activeChanged {
		if err := s.resolver.Invalidate(ctx, id); err != nil {
			return nil, common.Internal(err)
		}
	}
	return s.GetUser(ctx, id)
}

// ResetPassword replaces the password of a user with a generated one and revokes their sessions.
func (s *AdminService) ResetPassword(ctx context.Context, id string) (string, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return "", err
	}
	password, err := utils.GenerateStrongPassword(GeneratedPasswordLength)
	if err != nil {
		return "", common.Internal(err)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return "", common.Internal(err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Update("password", hash).Error; err != nil {
			return err
		}
		return revokeSessions(tx, user.ID)
	})
	if err != nil {
		return "", s.log.Error("Failed to reset password of %s", err, id)
	}
	return password, nil
}

// DeletionReport counts what a user deletion removed.
type DeletionReport struct {
	UserID          string `json:"userId"`
	Email           string `json:"email"`
	ArchiveID       string `json:"archiveId"`
	Grants          int64  `json:"grants"`
	Comments        int64  `json:"comments"`
	History         int64  `json:"history"`
	DetachedHistory int64  `json:"detachedHistory"`
	Sessions        int64  `json:"sessions"`
}

// DeleteUser removes a non-superadmin user and everything that references them
// in one transaction. The user's comments and their history are archived first.
// History the user wrote on other users' comments is kept with the actor cleared.
func (s *AdminService) DeleteUser(ctx context.Context, id string) (*DeletionReport, error) {
	if !validID(id) {
		return nil, common.NotFound("User")
	}
	report := &DeletionReport{UserID: id}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, id)
		if err != nil {
			return err
		}
		if user.IsSuperAdmin() {
			return common.PolicyViolation("Cannot delete super admin user")
		}
		report.Email = user.Email

		archive, err := s.archiver.Archive(ctx, tx, user)
		if err != nil {
			return err
		}
		report.ArchiveID = archive.ID

		if report.Grants, err = s.store.WithTx(tx).DeleteAllGrants(ctx, user.ID); err != nil {
			return err
		}

		var commentIDs []string
		if err := tx.Model(&models.Comment{}).Where("user_id = ?", user.ID).Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		if len(commentIDs) > 0 {
			res := tx.Where("comment_id IN ?", commentIDs).Delete(&models.CommentHistory{})
			if res.Error != nil {
				return res.Error
			}
			report.History = res.RowsAffected
		}

		res := tx.Model(&models.CommentHistory{}).Where("actor_id = ?", user.ID).UpdateColumn("actor_id", nil)
		if res.Error != nil {
			return res.Error
		}
		report.DetachedHistory = res.RowsAffected

		if err := tx.Model(&models.Comment{}).Where("modified_by_id = ?", user.ID).UpdateColumn("modified_by_id", nil).Error; err != nil {
			return err
		}

		res = tx.Where("user_id = ?", user.ID).Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		report.Comments = res.RowsAffected

		res = tx.Where("user_id = ?", user.ID).Delete(&models.AuthSession{})
		if res.Error != nil {
			return res.Error
		}
		report.Sessions = res.RowsAffected

		if err := tx.Where("user_id = ?", user.ID).Delete(&models.PasswordReset{}).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		var typed *common.Error
		if errors.As(err, &typed) {
			return nil, err
		}
		return nil, common.Internal(s.log.Error("Failed to delete user %s", err, id))
	}

	if err := s.resolver.Invalidate(ctx, id); err != nil {
		s.log.Warn("User %s deleted but cache invalidation failed: %v", id, err)
	}
	events.Emit(events.UserDeleted, report)
	s.log.Success("Deleted user %s (%d comments, %d history entries)", report.Email, report.Comments, report.History)
	return report, nil
}

// UpsertPermission sets the four flags of (user, page). Superadmin grants are refused.
// The user row stays locked until the grant is written.
func (s *AdminService) UpsertPermission(ctx context.Context, userID, pageID string, flags models.Flags) (*models.PagePermission, error) {
	if !validID(userID) {
		return nil, common.NotFound("User")
	}
	page, err := s.getPage(ctx, pageID)
	if err != nil {
		return nil, err
	}

	var grant *models.PagePermission
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		grant, err = s.store.WithTx(tx).UpsertGrant(ctx, user, page, flags)
		return err
	})
	if err != nil {
		var typed *common.Error
		if errors.As(err, &typed) {
			return nil, err
		}
		return nil, s.log.Error("Failed to update permissions of %s on %s", err, userID, page.Name)
	}

	if err := s.resolver.Invalidate(ctx, userID); err != nil {
		return nil, common.Internal(err)
	}
	events.Emit(events.GrantUpdated, grant)
	return grant, nil
}

// UserPermissions returns the stored flags of a user keyed by page id.
func (s *AdminService) UserPermissions(ctx context.Context, userID string) (map[string]models.Flags, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	grants, err := s.store.ListGrants(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Flags, len(grants))
	for _, g := range grants {
		out[g.PageID] = g.Flags()
	}
	return out, nil
}

func (s *AdminService) GetUser(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, common.NotFound("User")
	}
	return s.users.Get(ctx, id)
}

func (s *AdminService) ListUsers(ctx context.Context, q ListQuery) ([]models.User, int64, error) {
	return s.users.List(ctx, q)
}

// ListPages returns the page catalog ordered by name.
func (s *AdminService) ListPages(ctx context.Context) ([]models.Page, error) {
	pages := []models.Page{}
	if err := s.db.WithContext(ctx).Where("is_deleted = ?", false).Order("name ASC").Find(&pages).Error; err != nil {
		return nil, err
	}
	return pages, nil
}

// EnsurePages provisions any missing catalog page and reports how many were created.
func (s *AdminService) EnsurePages(ctx context.Context) (int, error) {
	return models.EnsurePages(s.db.WithContext(ctx))
}

// lockUser reads a live user with a row lock held until tx ends.
func lockUser(tx *gorm.DB, id string) (*models.User, error) {
	var user models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFound("User")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AdminService) getPage(ctx context.Context, id string) (*models.Page, error) {
	if !validID(id) {
		return nil, common.NotFound("Page")
	}
	var page models.Page
	err := s.db.WithContext(ctx).Where("id = ? AND is_deleted = ?", id, false).First(&page).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFound("Page")
	}
	if err != nil {
		return nil, err
	}
	return &page, nil
}
