package models

import (
	"gorm.io/gorm"
)

// GetPageByName retrieves a page from the database by its name
func GetPageByName(name string, db *gorm.DB) (*Page, error) {
	page := &Page{}
	if err := db.Where("name = ? AND is_deleted = ?", name, false).First(page).Error; err != nil {
		return nil, err
	}
	return page, nil
}

func GetUserByID(id string, db *gorm.DB) (*User, error) {
	user := &User{}
	if err := db.Where("id = ? AND is_deleted = ?", id, false).First(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func GetUserByEmail(email string, db *gorm.DB) (*User, error) {
	user := &User{}
	if err := db.Where("email = ? AND is_deleted = ?", email, false).First(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}
