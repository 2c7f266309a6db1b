package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pageguard/internal/common"
	"pageguard/internal/models"
	"pageguard/internal/resolver"
	"pageguard/internal/testutil"
	"pageguard/internal/utils"
)

func count(t *testing.T, db *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func TestCreateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, password, err := f.admin.CreateUser(ctx, CreateUserInput{Email: " Ann@Example.com ", FirstName: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.Equal(t, "ann", user.Username)
	assert.Equal(t, models.UserRoleRegular, user.Role)
	assert.True(t, user.IsActive)
	assert.Len(t, password, GeneratedPasswordLength)
	assert.True(t, CheckPassword(user.Password, password))

	_, _, err = f.admin.CreateUser(ctx, CreateUserInput{Email: "ann@example.com"})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, _, err = f.admin.CreateUser(ctx, CreateUserInput{Email: "bob@example.com", Password: "short"})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, _, err = f.admin.CreateUser(ctx, CreateUserInput{Email: "bob@example.com", Role: "owner"})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, password, err = f.admin.CreateUser(ctx, CreateUserInput{Email: "bob@example.com", Password: "longenough"})
	require.NoError(t, err)
	assert.Equal(t, "longenough", password)
}

func TestUpsertPermissionInvalidatesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "ann@example.com", models.UserRoleRegular)
	page := testutil.Page(t, f.db, "clients")

	allowed, err := f.resolver.CanPerform(ctx, user, "clients", models.ActionView)
	require.NoError(t, err)
	assert.False(t, allowed)

	_, err = f.admin.UpsertPermission(ctx, user.ID, page.ID, models.Flags{CanView: true})
	require.NoError(t, err)

	allowed, err = f.resolver.CanPerform(ctx, user, "clients", models.ActionView)
	require.NoError(t, err)
	assert.True(t, allowed)

	_, err = f.admin.UpsertPermission(ctx, user.ID, page.ID, models.Flags{})
	require.NoError(t, err)

	allowed, err = f.resolver.CanPerform(ctx, user, "clients", models.ActionView)
	require.NoError(t, err)
	assert.False(t, allowed)

	perms, err := f.admin.UserPermissions(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]models.Flags{page.ID: {}}, perms)
}

func TestUpsertPermissionErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "ann@example.com", models.UserRoleRegular)
	root := testutil.CreateUser(t, f.db, "root@example.com", models.UserRoleSuperAdmin)
	page := testutil.Page(t, f.db, "clients")

	_, err := f.admin.UpsertPermission(ctx, root.ID, page.ID, models.AllFlags)
	assert.ErrorIs(t, err, common.ErrPolicyViolation)

	_, err = f.admin.UpsertPermission(ctx, user.ID, "00000000-0000-0000-0000-000000000000", models.AllFlags)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = f.admin.UpsertPermission(ctx, "missing", page.ID, models.AllFlags)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateUserProtectsSuperAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := testutil.CreateUser(t, f.db, "root@example.com", models.UserRoleSuperAdmin)

	regular := models.UserRoleRegular
	_, err := f.admin.UpdateUser(ctx, root.ID, UpdateUserInput{Role: &regular})
	assert.ErrorIs(t, err, common.ErrPolicyViolation)

	inactive := false
	_, err = f.admin.UpdateUser(ctx, root.ID, UpdateUserInput{IsActive: &inactive})
	assert.ErrorIs(t, err, common.ErrPolicyViolation)

	name := "Rooty"
	updated, err := f.admin.UpdateUser(ctx, root.ID, UpdateUserInput{FirstName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Rooty", updated.FirstName)
}

func TestPromotionTakesEffectImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "ann@example.com", models.UserRoleRegular)

	allowed, err := f.resolver.CanPerform(ctx, user, "finance_accounting", models.ActionDelete)
	require.NoError(t, err)
	assert.False(t, allowed)

	role := models.UserRoleSuperAdmin
	promoted, err := f.admin.UpdateUser(ctx, user.ID, UpdateUserInput{Role: &role})
	require.NoError(t, err)

	allowed, err = f.resolver.CanPerform(ctx, promoted, "finance_accounting", models.ActionDelete)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestPromotionDropsGrants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "ann@example.com", models.UserRoleRegular)
	f.grant(t, user, "clients", models.Flags{CanView: true})
	f.grant(t, user, "suppliers", models.AllFlags)

	// Warm the cache with the regular user's grants.
	_, err := f.resolver.CanPerform(ctx, user, "clients", models.ActionView)
	require.NoError(t, err)

	role := models.UserRoleSuperAdmin
	promoted, err := f.admin.UpdateUser(ctx, user.ID, UpdateUserInput{Role: &role})
	require.NoError(t, err)
	assert.True(t, promoted.IsSuperAdmin())

	assert.Equal(t, int64(0), count(t, f.db, &models.PagePermission{}, "user_id = ?", user.ID))
	perms, err := f.admin.UserPermissions(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, perms)

	_, err = f.admin.UpsertPermission(ctx, user.ID, testutil.Page(t, f.db, "clients").ID, models.AllFlags)
	assert.ErrorIs(t, err, common.ErrPolicyViolation)
}

func TestUpdateUserKeepsGrantsWithoutPromotion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "ann@example.com", models.UserRoleRegular)
	f.grant(t, user, "clients", models.Flags{CanView: true})

	name := "Annie"
	_, err := f.admin.UpdateUser(ctx, user.ID, UpdateUserInput{FirstName: &name})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count(t, f.db, &models.PagePermission{}, "user_id = ?", user.ID))
}

func TestConcurrentGrantAndPromotion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pages := []*models.Page{testutil.Page(t, f.db, "clients"), testutil.Page(t, f.db, "suppliers")}
	role := models.UserRoleSuperAdmin

	for i := 0; i < 10; i++ {
		user := testutil.CreateUser(t, f.db, fmt.Sprintf("user%d@example.com", i), models.UserRoleRegular)

		var wg sync.WaitGroup
		errs := make(chan error, len(pages)+1)
		for _, page := range pages {
			wg.Add(1)
			go func(pageID string) {
				defer wg.Done()
				_, err := f.admin.UpsertPermission(ctx, user.ID, pageID, models.AllFlags)
				if err != nil && !errors.Is(err, common.ErrPolicyViolation) {
					errs <- err
				}
			}(page.ID)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.admin.UpdateUser(ctx, user.ID, UpdateUserInput{Role: &role}); err != nil {
				errs <- err
			}
		}()
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		assert.Equal(t, int64(0), count(t, f.db, &models.PagePermission{}, "user_id = ?", user.ID),
			"super admin %s holds grants", user.Email)
	}
}

func TestResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "ann@example.com", models.UserRoleRegular)

	auth := newAuthService(f.db, nil, &fakeDispatcher{})
	login, err := auth.Login(ctx, user.Email, testutil.Password, LoginAny, ClientInfo{})
	require.NoError(t, err)

	password, err := f.admin.ResetPassword(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, password, GeneratedPasswordLength)

	_, err = auth.Authenticate(ctx, login.Tokens.Access)
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = auth.Login(ctx, user.Email, testutil.Password, LoginAny, ClientInfo{})
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	_, err = auth.Login(ctx, user.Email, password, LoginAny, ClientInfo{})
	assert.NoError(t, err)
}

// seedActivity gives victim a grant, two comments with history and an edit on
// a comment owned by other.
func seedActivity(t *testing.T, f *fixture, victim, other *models.User) (own, foreign *models.Comment) {
	t.Helper()
	ctx := context.Background()

	f.grant(t, victim, "clients", models.AllFlags)
	f.grant(t, victim, "suppliers", models.Flags{CanView: true})
	f.grant(t, other, "clients", models.AllFlags)

	own, err := f.comments.Post(ctx, victim, "clients", "mine")
	require.NoError(t, err)
	_, err = f.comments.Edit(ctx, victim, own.ID, "mine, edited")
	require.NoError(t, err)
	second, err := f.comments.Post(ctx, victim, "clients", "also mine")
	require.NoError(t, err)
	require.NoError(t, f.comments.Delete(ctx, victim, second.ID))

	foreign, err = f.comments.Post(ctx, other, "clients", "theirs")
	require.NoError(t, err)
	_, err = f.comments.Edit(ctx, victim, foreign.ID, "theirs, fixed")
	require.NoError(t, err)
	return own, foreign
}

func TestDeleteUserCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	victim := testutil.CreateUser(t, f.db, "victim@example.com", models.UserRoleRegular)
	other := testutil.CreateUser(t, f.db, "other@example.com", models.UserRoleRegular)
	_, foreign := seedActivity(t, f, victim, other)

	auth := newAuthService(f.db, nil, &fakeDispatcher{})
	_, err := auth.Login(ctx, victim.Email, testutil.Password, LoginAny, ClientInfo{})
	require.NoError(t, err)

	report, err := f.admin.DeleteUser(ctx, victim.ID)
	require.NoError(t, err)
	assert.Equal(t, victim.Email, report.Email)
	assert.EqualValues(t, 2, report.Grants)
	assert.EqualValues(t, 2, report.Comments)
	assert.EqualValues(t, 4, report.History)
	assert.EqualValues(t, 1, report.DetachedHistory)
	assert.EqualValues(t, 1, report.Sessions)

	assert.Zero(t, count(t, f.db, &models.User{}, "id = ?", victim.ID))
	assert.Zero(t, count(t, f.db, &models.PagePermission{}, "user_id = ?", victim.ID))
	assert.Zero(t, count(t, f.db, &models.Comment{}, "user_id = ?", victim.ID))
	assert.Zero(t, count(t, f.db, &models.CommentHistory{}, "actor_id = ?", victim.ID))
	assert.Zero(t, count(t, f.db, &models.AuthSession{}, "user_id = ?", victim.ID))

	// The other user's comment keeps its full chain with the actor cleared.
	history, err := f.ledger.History(ctx, foreign.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Nil(t, history[0].ActorID)
	assert.Equal(t, "theirs, fixed", *history[0].NewContent)
	require.NotNil(t, history[1].ActorID)
	assert.Equal(t, other.ID, *history[1].ActorID)

	stored, err := f.ledger.Get(ctx, foreign.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ModifiedByID)

	var archive models.UserArchive
	require.NoError(t, f.db.First(&archive, "id = ?", report.ArchiveID).Error)
	assert.Equal(t, 2, archive.CommentCount)
	assert.Equal(t, 4, archive.HistoryCount)
	assert.True(t, f.archiver.Verify(&archive))

	var snapshot ArchiveSnapshot
	require.NoError(t, utils.FromJSON(archive.Snapshot, &snapshot))
	assert.Equal(t, victim.ID, snapshot.UserID)
	require.Len(t, snapshot.Comments, 2)
	assert.Equal(t, "mine, edited", snapshot.Comments[0].Content)
	assert.True(t, snapshot.Comments[1].IsDeleted)

	archive.Snapshot[len(archive.Snapshot)-2] = ' '
	assert.False(t, f.archiver.Verify(&archive))

	_, err = f.admin.DeleteUser(ctx, victim.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteUserRefusesSuperAdmin(t *testing.T) {
	f := newFixture(t)
	root := testutil.CreateUser(t, f.db, "root@example.com", models.UserRoleSuperAdmin)

	_, err := f.admin.DeleteUser(context.Background(), root.ID)
	require.ErrorIs(t, err, common.ErrPolicyViolation)
	assert.Equal(t, "Cannot delete super admin user", err.(*common.Error).Message)
	assert.EqualValues(t, 1, count(t, f.db, &models.User{}, "id = ?", root.ID))
}

type failingArchiver struct{}

func (failingArchiver) Archive(context.Context, *gorm.DB, *models.User) (*models.UserArchive, error) {
	return nil, errors.New("archive store unavailable")
}

func TestDeleteUserRollsBack(t *testing.T) {
	assertUntouched := func(t *testing.T, f *fixture, victim *models.User) {
		t.Helper()
		assert.EqualValues(t, 1, count(t, f.db, &models.User{}, "id = ?", victim.ID))
		assert.EqualValues(t, 2, count(t, f.db, &models.PagePermission{}, "user_id = ?", victim.ID))
		assert.EqualValues(t, 2, count(t, f.db, &models.Comment{}, "user_id = ?", victim.ID))
		assert.EqualValues(t, 5, count(t, f.db, &models.CommentHistory{}, "actor_id = ?", victim.ID))
		assert.Zero(t, count(t, f.db, &models.UserArchive{}, "user_id = ?", victim.ID))

		allowed, err := f.resolver.CanPerform(context.Background(), victim, "clients", models.ActionDelete)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	t.Run("archive failure", func(t *testing.T) {
		f := newFixture(t)
		victim := testutil.CreateUser(t, f.db, "victim@example.com", models.UserRoleRegular)
		other := testutil.CreateUser(t, f.db, "other@example.com", models.UserRoleRegular)
		seedActivity(t, f, victim, other)

		admin, err := NewAdminService(f.db, f.store, f.resolver, failingArchiver{})
		require.NoError(t, err)

		_, err = admin.DeleteUser(context.Background(), victim.ID)
		require.ErrorIs(t, err, common.ErrInternal)
		assertUntouched(t, f, victim)
	})

	t.Run("failure after the archive", func(t *testing.T) {
		f := newFixture(t)
		victim := testutil.CreateUser(t, f.db, "victim@example.com", models.UserRoleRegular)
		other := testutil.CreateUser(t, f.db, "other@example.com", models.UserRoleRegular)
		seedActivity(t, f, victim, other)

		err := f.db.Callback().Delete().Before("gorm:delete").Register("test:fail_comment_delete", func(tx *gorm.DB) {
			if tx.Statement.Schema != nil && tx.Statement.Schema.Table == "comments" {
				_ = tx.AddError(errors.New("disk full"))
			}
		})
		require.NoError(t, err)

		_, err = f.admin.DeleteUser(context.Background(), victim.ID)
		require.ErrorIs(t, err, common.ErrInternal)
		assertUntouched(t, f, victim)
	})
}

func TestEffectivePagesAfterGrants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "ann@example.com", models.UserRoleRegular)
	f.grant(t, user, "suppliers", models.Flags{CanEdit: true})
	f.grant(t, user, "clients", models.Flags{CanCreate: true})
	f.grant(t, user, "order_list", models.Flags{})

	pages, err := f.resolver.EffectivePages(ctx, user)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "clients", pages[0].Name)
	assert.Equal(t, models.Flags{CanView: true, CanCreate: true}, pages[0].Permissions)
	assert.Equal(t, "suppliers", pages[1].Name)
	assert.Equal(t, resolver.Effective(models.Flags{CanEdit: true}), pages[1].Permissions)

	all, err := f.admin.ListPages(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(models.DefaultPages))
}
