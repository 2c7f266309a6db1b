package models

import (
	"time"
)

type User struct {
	Base
	Email       string           `gorm:"uniqueIndex;not null" json:"email"`
	Username    string           `gorm:"uniqueIndex;not null" json:"username"`
	Password    string           `gorm:"not null" json:"-"`
	FirstName   string           `json:"firstName"`
	LastName    string           `json:"lastName"`
	Phone       string           `json:"phone,omitempty"`
	Role        UserRole         `gorm:"not null;index" json:"role"`
	IsActive    bool             `gorm:"not null" json:"isActive"`
	LastLoginAt *time.Time       `json:"lastLoginAt,omitempty"`
	Permissions []PagePermission `gorm:"foreignKey:UserID" json:"permissions,omitempty"`
}

func (u *User) IsSuperAdmin() bool {
	return u.Role == UserRoleSuperAdmin
}

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// PasswordReset holds a one-time code for the password recovery flow.
type PasswordReset struct {
	Base
	User      *User     `json:"user,omitempty"`
	UserID    string    `gorm:"type:uuid;not null;index" json:"userId"`
	Code      string    `gorm:"not null" json:"-"`
	Verified  bool      `gorm:"not null;default:false" json:"verified"`
	Used      bool      `gorm:"not null;default:false" json:"used"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expiresAt"`
}

// AuthSession records an issued token pair. Revoking it blacklists both tokens.
type AuthSession struct {
	Base
	UserID    string     `gorm:"type:uuid;not null;index" json:"userId"`
	User      *User      `json:"user,omitempty"`
	Token     string     `gorm:"not null;index" json:"-"`
	Refresh   string     `gorm:"not null;index" json:"-"`
	IPAddress string     `json:"ipAddress"`
	UserAgent string     `json:"userAgent"`
	ExpiresAt time.Time  `gorm:"not null;index" json:"expiresAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}

func (s *AuthSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
