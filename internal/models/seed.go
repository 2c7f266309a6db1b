package models

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pageguard/internal/config"
	console "pageguard/internal/utils/logger"
)

var log = console.New("SEEDER")

// EnsurePages creates every catalog page that is missing. Existing rows are left untouched.
func EnsurePages(db *gorm.DB) (int, error) {
	created := 0
	for _, page := range DefaultPages {
		p := page
		res := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&p)
		if res.Error != nil {
			return created, fmt.Errorf("failed to provision page %s: %w", p.Name, res.Error)
		}
		if res.RowsAffected > 0 {
			created++
		}
	}
	if created > 0 {
		log.Info("Provisioned %d catalog pages", created)
	}
	return created, nil
}

// CreateSuperAdminFromEnv bootstraps the first superadmin when none exists.
func CreateSuperAdminFromEnv(db *gorm.DB, cfg *config.Config) error {
	var count int64
	if err := db.Model(&User{}).Where("role = ?", UserRoleSuperAdmin).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count super admins: %w", err)
	}
	log.Info("Super admin count: %d", count)
	if count > 0 {
		return nil
	}

	sa := cfg.SuperAdmin
	if sa.Email == "" {
		return fmt.Errorf("SUPERADMIN_EMAIL not set")
	}
	if sa.Password == "" {
		return fmt.Errorf("SUPERADMIN_PASSWORD not set")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(sa.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	name := sa.Name
	if name == "" {
		name = "Super Admin"
	}

	user := User{
		Email:     sa.Email,
		Username:  strings.Split(sa.Email, "@")[0],
		FirstName: name,
		Role:      UserRoleSuperAdmin,
		IsActive:  true,
		Password:  string(hashedPassword),
	}

	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("failed to create superadmin user: %w", err)
	}

	return nil
}
