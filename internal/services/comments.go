package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"pageguard/internal/common"
	"pageguard/internal/ledger"
	"pageguard/internal/models"
	"pageguard/internal/resolver"
)

// MaxCommentLength is the longest accepted comment, in characters.
const MaxCommentLength = 5000

// CommentService puts the resolver in front of every ledger call.
type CommentService struct {
	db       *gorm.DB
	resolver *resolver.Resolver
	ledger   *ledger.Ledger
}

func NewCommentService(db *gorm.DB, r *resolver.Resolver, l *ledger.Ledger) *CommentService {
	return &CommentService{db: db, resolver: r, ledger: l}
}

// PageDetail is a page with its live comments and what the caller may do on it.
type PageDetail struct {
	Page        *models.Page     `json:"page"`
	Comments    []models.Comment `json:"comments"`
	Permissions models.Flags     `json:"permissions"`
}

func (s *CommentService) authorize(ctx context.Context, principal *models.User, pageName string, action models.Action) error {
	allowed, err := s.resolver.CanPerform(ctx, principal, pageName, action)
	if err != nil {
		return err
	}
	if !allowed {
		return common.ErrForbidden.WithMessage(resolver.DenyMessage(action))
	}
	return nil
}

// List returns the live comments of a page, newest first. Requires view.
func (s *CommentService) List(ctx context.Context, principal *models.User, pageName string) ([]models.Comment, error) {
	if err := s.authorize(ctx, principal, pageName, models.ActionView); err != nil {
		return nil, err
	}
	return s.ledger.ListForPage(ctx, pageName)
}

// Post adds a comment to a page. Requires create.
func (s *CommentService) Post(ctx context.Context, principal *models.User, pageName, content string) (*models.Comment, error) {
	if err := s.authorize(ctx, principal, pageName, models.ActionCreate); err != nil {
		return nil, err
	}
	if err := ValidateContent(content); err != nil {
		return nil, err
	}

	page, err := models.GetPageByName(pageName, s.db.WithContext(ctx))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFound("page")
	}
	if err != nil {
		return nil, err
	}
	return s.ledger.Create(ctx, principal, page, content)
}

// Edit replaces the content of a live comment. Requires edit on the comment's page.
func (s *CommentService) Edit(ctx context.Context, principal *models.User, commentID, content string) (*models.Comment, error) {
	comment, err := s.liveComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, principal, comment.PageName, models.ActionEdit); err != nil {
		return nil, err
	}
	if err := ValidateContent(content); err != nil {
		return nil, err
	}
	return s.ledger.Edit(ctx, principal, commentID, content)
}

// Delete soft-deletes a live comment. Requires delete on the comment's page.
func (s *CommentService) Delete(ctx context.Context, principal *models.User, commentID string) error {
	comment, err := s.liveComment(ctx, commentID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, principal, comment.PageName, models.ActionDelete); err != nil {
		return err
	}
	return s.ledger.SoftDelete(ctx, principal, commentID)
}

// History returns the audit trail of a comment, deleted or not, newest first.
// Superadmins and principals who can view the comment's page may read it.
func (s *CommentService) History(ctx context.Context, principal *models.User, commentID string) ([]models.CommentHistory, error) {
	if principal == nil {
		return nil, common.ErrUnauthorized
	}
	comment, err := s.ledger.Get(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if !principal.IsSuperAdmin() {
		allowed, err := s.resolver.CanPerform(ctx, principal, comment.PageName, models.ActionView)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, common.ErrForbidden.WithMessage("You do not have permission to view this comment's history")
		}
	}
	return s.ledger.History(ctx, commentID)
}

// PageDetail returns a page with its comments and the caller's effective flags. Requires view.
func (s *CommentService) PageDetail(ctx context.Context, principal *models.User, pageName string) (*PageDetail, error) {
	if err := s.authorize(ctx, principal, pageName, models.ActionView); err != nil {
		return nil, err
	}

	page, err := models.GetPageByName(pageName, s.db.WithContext(ctx))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFound("page")
	}
	if err != nil {
		return nil, err
	}

	flags, err := s.PagePermissions(ctx, principal, pageName)
	if err != nil {
		return nil, err
	}
	comments, err := s.ledger.ListForPage(ctx, pageName)
	if err != nil {
		return nil, err
	}
	return &PageDetail{Page: page, Comments: comments, Permissions: flags}, nil
}

// PagePermissions returns what principal may do on pageName after applying the hierarchy.
func (s *CommentService) PagePermissions(ctx context.Context, principal *models.User, pageName string) (models.Flags, error) {
	flags, err := s.resolver.Flags(ctx, principal, pageName)
	if err != nil {
		return models.Flags{}, err
	}
	return resolver.Effective(flags), nil
}

func (s *CommentService) liveComment(ctx context.Context, commentID string) (*models.Comment, error) {
	comment, err := s.ledger.Get(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.IsDeleted {
		return nil, common.NotFound("comment")
	}
	return comment, nil
}

// ValidateContent rejects blank comments and comments over MaxCommentLength characters.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return common.Validation("content", "content is required")
	}
	if n := utf8.RuneCountInString(content); n > MaxCommentLength {
		return common.Validation("content", fmt.Sprintf("content must be at most %d characters, got %d", MaxCommentLength, n))
	}
	return nil
}
