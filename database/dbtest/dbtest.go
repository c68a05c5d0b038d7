// Package dbtest 测试用的内存数据库与数据构造
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/anoixa/image-admin/database"
	"github.com/anoixa/image-admin/database/models"
	cryptopackage "github.com/anoixa/image-admin/utils/crypto"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fastParams 测试环境使用低成本哈希参数
var fastParams = cryptopackage.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

// Open 为当前测试创建独立的内存数据库并完成迁移
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	cryptopackage.SetParams(fastParams)

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxIdleConns(4)

	require.NoError(t, db.AutoMigrate(database.Models()...))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// Provider 包装为数据库提供者
func Provider(t testing.TB) database.Provider {
	return database.NewGormProviderFromDB(Open(t), "sqlite")
}

// UserOption 修改待创建用户
type UserOption func(u *models.User)

// Staff 设为员工
func Staff(u *models.User) { u.IsStaff = true }

// Superuser 设为超级用户
func Superuser(u *models.User) { u.IsStaff, u.IsSuperuser = true, true }

// Inactive 设为停用
func Inactive(u *models.User) { u.IsActive = false }

// CreateUser 创建启用状态的用户
func CreateUser(t testing.TB, db *gorm.DB, email, password string, opts ...UserOption) *models.User {
	t.Helper()
	u := &models.User{Email: email, IsActive: true}
	for _, opt := range opts {
		opt(u)
	}
	if password != "" {
		require.NoError(t, u.SetPassword(password))
	} else {
		require.NoError(t, u.SetUnusablePassword())
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// Grant 为用户直接授予权限，权限不存在时创建
func Grant(t testing.TB, db *gorm.DB, u *models.User, codenames ...string) {
	t.Helper()
	for _, code := range codenames {
		perm := models.Permission{}
		require.NoError(t, db.Where(models.Permission{Codename: code}).
			Attrs(models.Permission{Name: code, ModelName: code[strings.Index(code, "_")+1:]}).
			FirstOrCreate(&perm).Error)
		require.NoError(t, db.Model(u).Association("UserPermissions").Append(&perm))
	}
}

// CreateImage 创建图片
func CreateImage(t testing.TB, db *gorm.DB, filename, uri string) *models.Image {
	t.Helper()
	img := &models.Image{Filename: filename, URI: uri, IsActive: true}
	require.NoError(t, db.Create(img).Error)
	return img
}

// CreateLabel 创建标签
func CreateLabel(t testing.TB, db *gorm.DB, slug string) *models.Label {
	t.Helper()
	label := &models.Label{Slug: slug}
	require.NoError(t, db.Create(label).Error)
	return label
}

// Attach 关联图片与标签
func Attach(t testing.TB, db *gorm.DB, img *models.Image, label *models.Label) *models.LabeledImage {
	t.Helper()
	li := &models.LabeledImage{ImageID: img.ID, LabelID: label.ID}
	require.NoError(t, db.Create(li).Error)
	return li
}
