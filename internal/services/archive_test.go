package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pageguard/internal/models"
	"pageguard/internal/testutil"
)

type memoryUploader struct {
	objects map[string][]byte
	err     error
}

func (u *memoryUploader) PutObject(_ context.Context, key string, body []byte, contentType string) error {
	if u.err != nil {
		return u.err
	}
	if u.objects == nil {
		u.objects = map[string][]byte{}
	}
	u.objects[key] = body
	return nil
}

func TestArchiveOffload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "ann@example.com", models.UserRoleRegular)
	f.grant(t, user, "clients", models.Flags{CanCreate: true})
	_, err := f.comments.Post(ctx, user, "clients", "hello")
	require.NoError(t, err)

	uploader := &memoryUploader{}
	archiver := NewHistoryArchiver(signingKey, uploader)

	var archive *models.UserArchive
	err = f.db.Transaction(func(tx *gorm.DB) error {
		var err error
		archive, err = archiver.Archive(ctx, tx, user)
		return err
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(archive.ObjectKey, "archives/users/"+user.ID+"/"))
	assert.Equal(t, []byte(archive.Snapshot), uploader.objects[archive.ObjectKey])
	assert.Equal(t, 1, archive.CommentCount)
	assert.Equal(t, 1, archive.HistoryCount)
	assert.True(t, archiver.Verify(archive))
	assert.False(t, NewHistoryArchiver("other-key", nil).Verify(archive))
}

func TestArchiveUploadFailureAborts(t *testing.T) {
	f := newFixture(t)
	user := testutil.CreateUser(t, f.db, "ann@example.com", models.UserRoleRegular)

	archiver := NewHistoryArchiver(signingKey, &memoryUploader{err: errors.New("bucket gone")})
	err := f.db.Transaction(func(tx *gorm.DB) error {
		_, err := archiver.Archive(context.Background(), tx, user)
		return err
	})
	require.Error(t, err)
	assert.Zero(t, count(t, f.db, &models.UserArchive{}, "user_id = ?", user.ID))
}
