package handlers

import (
	"context"

	"pageguard/internal/models"
	"pageguard/internal/resolver"
	"pageguard/internal/services"
)

// AuthService is the session and password reset surface used by AuthHandler.
type AuthService interface {
	Login(ctx context.Context, email, password string, mode services.LoginMode, client services.ClientInfo) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string, client services.ClientInfo) (*services.LoginResult, error)
	Logout(ctx context.Context, refreshToken string) error
	UpdateProfile(ctx context.Context, user *models.User, in services.ProfileInput) (*models.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) error
	ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error
}

// CommentService is the gated comment surface used by CommentHandler and PageHandler.
type CommentService interface {
	List(ctx context.Context, principal *models.User, pageName string) ([]models.Comment, error)
	Post(ctx context.Context, principal *models.User, pageName, content string) (*models.Comment, error)
	Edit(ctx context.Context, principal *models.User, commentID, content string) (*models.Comment, error)
	Delete(ctx context.Context, principal *models.User, commentID string) error
	History(ctx context.Context, principal *models.User, commentID string) ([]models.CommentHistory, error)
	PageDetail(ctx context.Context, principal *models.User, pageName string) (*services.PageDetail, error)
	PagePermissions(ctx context.Context, principal *models.User, pageName string) (models.Flags, error)
}

// AdminService is the superadmin surface used by AdminHandler and PageHandler.
type AdminService interface {
	CreateUser(ctx context.Context, in services.CreateUserInput) (*models.User, string, error)
	UpdateUser(ctx context.Context, id string, in services.UpdateUserInput) (*models.User, error)
	DeleteUser(ctx context.Context, id string) (*services.DeletionReport, error)
	ResetPassword(ctx context.Context, id string) (string, error)
	UpsertPermission(ctx context.Context, userID, pageID string, flags models.Flags) (*models.PagePermission, error)
	UserPermissions(ctx context.Context, userID string) (map[string]models.Flags, error)
	ListPages(ctx context.Context) ([]models.Page, error)
}

// PageLister lists the pages a principal can reach.
type PageLister interface {
	EffectivePages(ctx context.Context, principal *models.User) ([]resolver.PageAccess, error)
}

var (
	_ AuthService    = (*services.AuthService)(nil)
	_ CommentService = (*services.CommentService)(nil)
	_ AdminService   = (*services.AdminService)(nil)
	_ PageLister     = (*resolver.Resolver)(nil)
)
