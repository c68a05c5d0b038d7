// Package coreadmin 注册用户、图片、标签与标签关联的后台
package coreadmin

import (
	"context"
	"fmt"
	"strings"

	"github.com/anoixa/image-admin/cache"
	"github.com/anoixa/image-admin/database"
	"github.com/anoixa/image-admin/database/models"
	"github.com/anoixa/image-admin/internal/admin"
	"github.com/anoixa/image-admin/internal/auth/password"
	"github.com/anoixa/image-admin/internal/worker"
	"github.com/anoixa/image-admin/storage"
	"github.com/anoixa/image-admin/utils"
)

// 注册名称
const (
	UserModel         = "user"
	ImageModel        = "image"
	LabeledImageModel = "labeledimage"
	LabelModel        = "label"
)

// Deps 后台注册依赖，Cache 与 Storage 可为空
type Deps struct {
	DB            database.Provider
	Policy        *password.Policy
	Cache         *cache.Helper
	Storage       storage.Provider
	PublicBaseURL string
	// Submit 提交后台任务，默认使用全局 worker 池
	Submit func(task func()) bool
}

func (d Deps) submit(task func()) {
	submit := d.Submit
	if submit == nil {
		submit = worker.Submit
	}
	if !submit(task) {
		utils.LogIfDev("[Admin] background task dropped, queue is full")
	}
}

// Register 向站点注册全部模型，并在标签变更时清理过滤器缓存
func Register(site *admin.Site, deps Deps) error {
	if deps.Policy == nil {
		deps.Policy = password.DefaultPolicy()
	}

	regs := []admin.Registration{
		UserAdmin(deps),
		ImageAdmin(deps),
		LabeledImageAdmin(),
		LabelAdmin(),
	}
	for _, r := range regs {
		if err := site.Register(r); err != nil {
			return err
		}
	}

	if deps.Cache != nil {
		site.OnChange(func(ctx context.Context, model string) {
			if model != LabelModel {
				return
			}
			if err := deps.Cache.DeleteCachedFilterChoices(ctx, ImageModel, labelsSlugFilter); err != nil {
				utils.LogIfDevf("[Admin] failed to invalidate filter choices: %v", err)
			}
		})
	}
	return nil
}

// Permissions 全部注册模型的标准权限，供迁移时写入
func Permissions() []models.Permission {
	var out []models.Permission
	out = append(out, models.DefaultPermissions(UserModel, "user")...)
	out = append(out, models.DefaultPermissions(ImageModel, "image")...)
	out = append(out, models.DefaultPermissions(LabeledImageModel, "labeled image")...)
	out = append(out, models.DefaultPermissions(LabelModel, "label")...)
	return out
}

// withBase 图片、标签与关联共用的配置：时间戳只读，id 与 short_uuid 为详情链接
func withBase[T any](m *admin.ModelAdmin[T]) *admin.ModelAdmin[T] {
	for _, name := range []string{"created_at", "modified_at"} {
		if !contains(m.ReadonlyFields, name) {
			m.ReadonlyFields = append(m.ReadonlyFields, name)
		}
	}
	m.ListDisplayLinks = []string{"id", "short_uuid"}
	return m
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func idColumn[T any](table string, base func(*T) *models.Base) admin.Column[T] {
	return admin.Column[T]{Name: "id", Label: "ID", OrderBy: table + ".id",
		Value: func(o *T) interface{} { return base(o).ID }}
}

func shortUUIDColumn[T any](base func(*T) *models.Base) admin.Column[T] {
	return admin.Column[T]{Name: "short_uuid", Label: "Short UUID",
		Value: func(o *T) interface{} { return base(o).ShortUUID() }}
}

func createdAtColumn[T any](table string, base func(*T) *models.Base) admin.Column[T] {
	return admin.Column[T]{Name: "created_at", Label: "Created at", OrderBy: table + ".created_at",
		Value: func(o *T) interface{} { return base(o).CreatedAt }}
}

func timestampFields[T any](base func(*T) *models.Base, withDeleted bool) []admin.Field[T] {
	fields := []admin.Field[T]{
		{Name: "created_at", Label: "Created at", Value: func(o *T) interface{} { return base(o).CreatedAt }},
		{Name: "modified_at", Label: "Modified at", Value: func(o *T) interface{} { return base(o).ModifiedAt }},
	}
	if withDeleted {
		fields = append(fields, admin.Field[T]{Name: "deleted_at", Label: "Deleted at", Value: func(o *T) interface{} {
			if d := base(o).DeletedAt; d.Valid {
				return d.Time
			}
			return nil
		}})
	}
	return fields
}

// passwordSummary 只读展示密码哈希的算法与参数，不暴露哈希本身
func passwordSummary(u *models.User) string {
	if !u.HasUsablePassword() {
		return "No password set."
	}
	// $argon2id$v=19$m=...,t=...,p=...$salt$hash
	parts := strings.Split(u.Password, "$")
	if len(parts) != 6 {
		return "Invalid password format or unknown hashing algorithm."
	}
	return fmt.Sprintf("algorithm: %s %s %s salt: %s hash: %s", parts[1], parts[2], parts[3], mask(parts[4]), mask(parts[5]))
}

func mask(s string) string {
	if len(s) <= 6 {
		return strings.Repeat("*", len(s))
	}
	return s[:6] + strings.Repeat("*", len(s)-6)
}
