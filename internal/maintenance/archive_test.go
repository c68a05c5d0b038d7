package maintenance

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/anoixa/image-admin/database/dbtest"
	"github.com/anoixa/image-admin/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupRestore(t *testing.T) {
	ctx := context.Background()
	source := dbtest.Open(t)

	user := dbtest.CreateUser(t, source, "staff@example.com", "s3cret-pass", dbtest.Staff)
	dbtest.Grant(t, source, user, "view_image")
	img := dbtest.CreateImage(t, source, "a.png", "/a.png")
	dbtest.Attach(t, source, img, dbtest.CreateLabel(t, source, "cats"))
	deleted := dbtest.CreateImage(t, source, "b.png", "/b.png")
	require.NoError(t, source.Model(deleted).UpdateColumn("deleted_at", time.Now()).Error)

	var archive bytes.Buffer
	meta, err := Backup(ctx, source, &archive, nil)
	require.NoError(t, err)
	assert.Equal(t, ArchiveTables(), meta.Tables)
	assert.EqualValues(t, 2, meta.RecordCount["images"])
	assert.EqualValues(t, 1, meta.RecordCount["user_permissions"])

	target := openTarget(t)
	require.NoError(t, migrateAll(target))

	stats, err := Restore(ctx, target, bytes.NewReader(archive.Bytes()), RestoreOptions{DryRun: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Restored["users"])
	var n int64
	require.NoError(t, target.Model(&models.User{}).Count(&n).Error)
	assert.Zero(t, n, "dry run writes nothing")

	stats, err = Restore(ctx, target, bytes.NewReader(archive.Bytes()), RestoreOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Restored["images"])
	assert.EqualValues(t, 1, stats.Restored["labeled_images"])

	var restored models.User
	require.NoError(t, target.Preload("UserPermissions").First(&restored, user.ID).Error)
	assert.True(t, restored.CheckPassword("s3cret-pass"))
	assert.Equal(t, user.UUID, restored.UUID)
	require.Len(t, restored.UserPermissions, 1)
	assert.Equal(t, "view_image", restored.UserPermissions[0].Codename)

	var gone models.Image
	require.NoError(t, target.Unscoped().First(&gone, deleted.ID).Error)
	assert.True(t, gone.IsDeleted())

	// 已存在的行默认跳过
	stats, err = Restore(ctx, target, bytes.NewReader(archive.Bytes()), RestoreOptions{})
	require.NoError(t, err)
	assert.Zero(t, stats.Restored["users"])

	stats, err = Restore(ctx, target, bytes.NewReader(archive.Bytes()), RestoreOptions{Tables: []string{"labels"}, Truncate: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Restored["labels"])
	assert.Zero(t, stats.Restored["images"])
}

func TestRestoreRejects(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Open(t)

	_, err := Restore(ctx, db, bytes.NewReader([]byte("not an archive")), RestoreOptions{})
	assert.ErrorIs(t, err, ErrInvalidArchive)

	_, err = Restore(ctx, db, bytes.NewReader(nil), RestoreOptions{Tables: []string{"albums"}})
	assert.ErrorContains(t, err, "unknown table")

	_, err = Restore(ctx, db, bytes.NewReader(nil), RestoreOptions{OnConflict: "merge"})
	assert.ErrorContains(t, err, "invalid on-conflict strategy")

	var archive bytes.Buffer
	_, err = Backup(ctx, db, &archive, []string{"devices"})
	assert.Error(t, err)
}
