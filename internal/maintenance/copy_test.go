package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/anoixa/image-admin/database"
	"github.com/anoixa/image-admin/database/dbtest"
	"github.com/anoixa/image-admin/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTarget(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:copy_target_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func migrateAll(db *gorm.DB) error {
	return db.AutoMigrate(database.Models()...)
}

func TestCopier_Run(t *testing.T) {
	ctx := context.Background()
	source := dbtest.Open(t)
	target := openTarget(t)

	perm := models.Permission{Codename: "view_image", Name: "Can view image", ModelName: "image"}
	require.NoError(t, source.Create(&perm).Error)
	grp := models.Group{Name: "editors"}
	require.NoError(t, source.Create(&grp).Error)
	require.NoError(t, source.Model(&grp).Association("Permissions").Append(&perm))

	user := dbtest.CreateUser(t, source, "staff@example.com", "pw", dbtest.Staff)
	require.NoError(t, source.Model(user).Association("Groups").Append(&grp))
	img := dbtest.CreateImage(t, source, "a.png", "/a.png")
	label := dbtest.CreateLabel(t, source, "cats")
	dbtest.Attach(t, source, img, label)
	deleted := dbtest.CreateImage(t, source, "b.png", "/b.png")
	require.NoError(t, source.Model(deleted).UpdateColumn("deleted_at", time.Now()).Error)

	_, err := NewCopier(source, target, 0, "replace")
	assert.Error(t, err)

	c, err := NewCopier(source, target, 1, ConflictSkip)
	require.NoError(t, err)
	stats, err := c.Run(ctx, migrateAll)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Rows["images"], "soft deleted rows are copied too")
	assert.EqualValues(t, 1, stats.Rows["users"])
	assert.EqualValues(t, 1, stats.Rows["user_groups"])
	assert.EqualValues(t, 1, stats.Rows["group_permissions"])

	var copied models.User
	require.NoError(t, target.Preload("Groups").First(&copied, user.ID).Error)
	assert.Equal(t, user.UUID, copied.UUID)
	assert.Equal(t, user.Password, copied.Password)
	require.Len(t, copied.Groups, 1)

	var gone models.Image
	require.NoError(t, target.Unscoped().First(&gone, deleted.ID).Error)
	assert.True(t, gone.DeletedAt.Valid)

	// 再次执行时跳过已存在的行
	stats, err = c.Run(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.Rows["images"])

	// 覆盖模式以源数据为准
	require.NoError(t, source.Model(img).UpdateColumn("filename", "renamed.png").Error)
	c, err = NewCopier(source, target, 10, ConflictOverwrite)
	require.NoError(t, err)
	_, err = c.Run(ctx, nil)
	require.NoError(t, err)
	var updated models.Image
	require.NoError(t, target.First(&updated, img.ID).Error)
	assert.Equal(t, "renamed.png", updated.Filename)

	c, err = NewCopier(source, target, 10, ConflictError)
	require.NoError(t, err)
	_, err = c.Run(ctx, nil)
	assert.Error(t, err)
}
