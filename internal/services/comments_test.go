package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pageguard/internal/common"
	"pageguard/internal/models"
	"pageguard/internal/testutil"
)

func TestCommentGating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	viewer := testutil.CreateUser(t, f.db, "viewer@example.com", models.UserRoleRegular)
	author := testutil.CreateUser(t, f.db, "author@example.com", models.UserRoleRegular)
	editor := testutil.CreateUser(t, f.db, "editor@example.com", models.UserRoleRegular)
	admin := testutil.CreateUser(t, f.db, "root@example.com", models.UserRoleSuperAdmin)

	f.grant(t, viewer, "clients", models.Flags{CanView: true})
	f.grant(t, author, "clients", models.Flags{CanCreate: true})
	f.grant(t, editor, "clients", models.Flags{CanDelete: true})

	comment, err := f.comments.Post(ctx, author, "clients", "first")
	require.NoError(t, err)

	t.Run("view only cannot post", func(t *testing.T) {
		_, err := f.comments.Post(ctx, viewer, "clients", "hello")
		require.ErrorIs(t, err, common.ErrForbidden)
		assert.Equal(t, "You do not have permission to create comments on this page", err.(*common.Error).Message)
	})

	t.Run("any flag grants view", func(t *testing.T) {
		for _, u := range []*models.User{viewer, author, editor, admin} {
			comments, err := f.comments.List(ctx, u, "clients")
			require.NoError(t, err, u.Email)
			assert.Len(t, comments, 1)
		}
	})

	t.Run("no grant cannot view", func(t *testing.T) {
		_, err := f.comments.List(ctx, viewer, "suppliers")
		assert.ErrorIs(t, err, common.ErrForbidden)
	})

	t.Run("create does not imply edit", func(t *testing.T) {
		_, err := f.comments.Edit(ctx, author, comment.ID, "changed")
		assert.ErrorIs(t, err, common.ErrForbidden)
	})

	t.Run("delete implies edit", func(t *testing.T) {
		edited, err := f.comments.Edit(ctx, editor, comment.ID, "changed")
		require.NoError(t, err)
		assert.Equal(t, "changed", edited.Content)
		require.NotNil(t, edited.ModifiedByID)
		assert.Equal(t, editor.ID, *edited.ModifiedByID)
	})

	t.Run("unknown page", func(t *testing.T) {
		_, err := f.comments.List(ctx, viewer, "nope")
		assert.ErrorIs(t, err, common.ErrNotFound)
		_, err = f.comments.Post(ctx, admin, "nope", "hello")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("missing comment is not found before the gate", func(t *testing.T) {
		_, err := f.comments.Edit(ctx, viewer, "00000000-0000-0000-0000-000000000000", "x")
		assert.ErrorIs(t, err, common.ErrNotFound)
		err = f.comments.Delete(ctx, viewer, "not-a-uuid")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("delete then not found", func(t *testing.T) {
		require.NoError(t, f.comments.Delete(ctx, editor, comment.ID))

		err := f.comments.Delete(ctx, editor, comment.ID)
		assert.ErrorIs(t, err, common.ErrNotFound)
		_, err = f.comments.Edit(ctx, editor, comment.ID, "again")
		assert.ErrorIs(t, err, common.ErrNotFound)

		comments, err := f.comments.List(ctx, viewer, "clients")
		require.NoError(t, err)
		assert.Empty(t, comments)
	})

	t.Run("history survives deletion", func(t *testing.T) {
		history, err := f.comments.History(ctx, viewer, comment.ID)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, models.HistoryDelete, history[0].Action)
		assert.Equal(t, models.HistoryEdit, history[1].Action)
		assert.Equal(t, models.HistoryCreate, history[2].Action)
	})

	t.Run("history requires view", func(t *testing.T) {
		outsider := testutil.CreateUser(t, f.db, "outsider@example.com", models.UserRoleRegular)
		_, err := f.comments.History(ctx, outsider, comment.ID)
		assert.ErrorIs(t, err, common.ErrForbidden)

		_, err = f.comments.History(ctx, nil, comment.ID)
		assert.ErrorIs(t, err, common.ErrUnauthorized)
	})
}

func TestInactiveUserIsDenied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := testutil.CreateUser(t, f.db, "ann@example.com", models.UserRoleRegular)
	f.grant(t, user, "clients", models.AllFlags)

	inactive := false
	updated, err := f.admin.UpdateUser(ctx, user.ID, UpdateUserInput{IsActive: &inactive})
	require.NoError(t, err)

	_, err = f.comments.List(ctx, updated, "clients")
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestPostValidatesContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "ann@example.com", models.UserRoleRegular)
	f.grant(t, user, "clients", models.Flags{CanCreate: true})

	_, err := f.comments.Post(ctx, user, "clients", "   ")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.comments.Post(ctx, user, "clients", strings.Repeat("é", MaxCommentLength+1))
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = f.comments.Post(ctx, user, "clients", strings.Repeat("é", MaxCommentLength))
	assert.NoError(t, err)
}

func TestPageDetail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "ann@example.com", models.UserRoleRegular)
	f.grant(t, user, "clients", models.Flags{CanDelete: true})

	_, err := f.comments.Post(ctx, testutil.CreateUser(t, f.db, "root@example.com", models.UserRoleSuperAdmin), "clients", "welcome")
	require.NoError(t, err)

	detail, err := f.comments.PageDetail(ctx, user, "clients")
	require.NoError(t, err)
	assert.Equal(t, "clients", detail.Page.Name)
	assert.Len(t, detail.Comments, 1)
	assert.Equal(t, models.Flags{CanView: true, CanEdit: true, CanDelete: true}, detail.Permissions)
}
