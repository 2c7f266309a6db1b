// Package testutil builds throwaway databases, redis servers and fixtures for package tests.
package testutil

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"pageguard/internal/db"
	"pageguard/internal/models"
)

// Password is the plain text password of every user created by CreateUser.
const Password = "Sup3r$ecret!"

var passwordHash []byte

func init() {
	h, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	passwordHash = h
}

// NewDB opens a migrated SQLite database in a temp dir with the page catalog provisioned.
// A single connection serialises transactions the way row locks do on postgres.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pageguard.db")
	gdb, err := gorm.Open(sqlite.Open(path), db.GormConfig("silent"))
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	_, err = models.EnsurePages(gdb)
	require.NoError(t, err)
	return gdb
}

// CreateUser inserts an active user with the given role.
func CreateUser(t testing.TB, gdb *gorm.DB, email string, role models.UserRole) *models.User {
	t.Helper()

	user := &models.User{
		Email:     email,
		Username:  strings.Split(email, "@")[0],
		Password:  string(passwordHash),
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
		IsActive:  true,
	}
	require.NoError(t, gdb.Create(user).Error)
	return user
}

// Page returns the catalog page with the given name.
func Page(t testing.TB, gdb *gorm.DB, name string) *models.Page {
	t.Helper()

	page, err := models.GetPageByName(name, gdb)
	require.NoError(t, err)
	return page
}

// NewRedis starts a miniredis server and returns a client connected to it.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}
