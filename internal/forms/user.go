package forms

import (
	"context"
	"fmt"
	"time"

	"github.com/anoixa/image-admin/database/models"
	"github.com/anoixa/image-admin/internal/auth/password"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserCreationInput 新建用户表单字段
type UserCreationInput struct {
	Email       string `form:"email" validate:"required,email,max=254"`
	Password1   string `form:"password1"`
	Password2   string `form:"password2"`
	IsSuperuser bool   `form:"is_superuser"`
	IsStaff     bool   `form:"is_staff"`
	IsActive    *bool  `form:"is_active"`
}

// UserCreationForm 新建用户，两个密码字段均可留空
type UserCreationForm struct {
	db       *gorm.DB
	policy   *password.Policy
	Input    UserCreationInput
	instance *models.User
}

// NewUserCreationForm 创建新建用户表单
func NewUserCreationForm(db *gorm.DB, policy *password.Policy) *UserCreationForm {
	if policy == nil {
		policy = password.DefaultPolicy()
	}
	return &UserCreationForm{db: db, policy: policy}
}

// Bind 解码并校验输入，失败时返回 Errors
func (f *UserCreationForm) Bind(ctx context.Context, data map[string]interface{}) error {
	if err := Decode(data, &f.Input); err != nil {
		return err
	}
	f.Input.Email = models.NormalizeEmail(f.Input.Email)

	errs := Validate(&f.Input)
	if !errs.Has("email") {
		if err := checkEmailUnique(ctx, f.db, f.Input.Email, 0, errs); err != nil {
			return err
		}
	}

	f.cleanPassword2(errs)

	f.instance = &models.User{
		Email:       f.Input.Email,
		IsSuperuser: f.Input.IsSuperuser,
		IsStaff:     f.Input.IsStaff,
		IsActive:    boolOr(f.Input.IsActive, true),
	}

	// 填充实例后再按策略校验，相似度检查需要用户属性
	if f.Input.Password2 != "" && !errs.Has("password2") {
		for _, v := range f.policy.Validate(f.Input.Password2, f.instance) {
			errs.Add("password2", v.Code, v.Message, v.Params)
		}
	}

	return errs.Err()
}

// cleanPassword2 两个都填且不一致，或只填了其中一个时报错。
// 只填 password1 时同样报 password_mismatch，不会忽略 password1 去创建不可用密码的用户，
// 也不会跳过策略校验直接用 password1 建号
func (f *UserCreationForm) cleanPassword2(errs Errors) {
	p1, p2 := f.Input.Password1, f.Input.Password2
	if p1 == "" && p2 == "" {
		return
	}
	if p1 != p2 {
		errs.Add("password2", CodePasswordMismatch, "The two password fields didn't match.", nil)
	}
}

// Save 设置密码，commit 为 true 时写入数据库
func (f *UserCreationForm) Save(ctx context.Context, commit bool) (*models.User, error) {
	if f.instance == nil {
		return nil, fmt.Errorf("form must be bound before save")
	}
	user := f.instance

	if f.Input.Password1 != "" {
		if err := user.SetPassword(f.Input.Password1); err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	} else if err := user.SetUnusablePassword(); err != nil {
		return nil, err
	}

	if commit {
		if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	}
	return user, nil
}

// UserEditInput 编辑用户的全部字段，密码哈希只读
type UserEditInput struct {
	Email           string     `form:"email" validate:"required,email,max=254"`
	IsActive        bool       `form:"is_active"`
	IsStaff         bool       `form:"is_staff"`
	IsSuperuser     bool       `form:"is_superuser"`
	ImportedAt      *time.Time `form:"imported_at"`
	Groups          []uint     `form:"groups"`
	UserPermissions []uint     `form:"user_permissions"`
}

// UserEditForm 编辑用户
type UserEditForm struct {
	db       *gorm.DB
	instance *models.User
	Input    UserEditInput

	groups      []*models.Group
	permissions []*models.Permission
	hasGroups   bool
	hasPerms    bool
}

// NewUserEditForm 以现有用户初始化
func NewUserEditForm(db *gorm.DB, user *models.User) *UserEditForm {
	f := &UserEditForm{db: db, instance: user}
	f.Input = UserEditInput{
		Email:       user.Email,
		IsActive:    user.IsActive,
		IsStaff:     user.IsStaff,
		IsSuperuser: user.IsSuperuser,
		ImportedAt:  user.ImportedAt,
	}
	for _, g := range user.Groups {
		f.Input.Groups = append(f.Input.Groups, g.ID)
	}
	for _, p := range user.UserPermissions {
		f.Input.UserPermissions = append(f.Input.UserPermissions, p.ID)
	}
	return f
}

// Bind 解码并校验
func (f *UserEditForm) Bind(ctx context.Context, data map[string]interface{}) error {
	_, f.hasGroups = data["groups"]
	_, f.hasPerms = data["user_permissions"]
	if f.hasGroups {
		f.Input.Groups = nil
	}
	if f.hasPerms {
		f.Input.UserPermissions = nil
	}

	if err := Decode(data, &f.Input); err != nil {
		return err
	}
	f.Input.Email = models.NormalizeEmail(f.Input.Email)
	f.Input.ImportedAt = normalizeTime(f.Input.ImportedAt)

	errs := Validate(&f.Input)
	if !errs.Has("email") {
		if err := checkEmailUnique(ctx, f.db, f.Input.Email, f.instance.ID, errs); err != nil {
			return err
		}
	}

	if f.hasGroups {
		if err := loadChoices(ctx, f.db, f.Input.Groups, &f.groups, "groups", errs); err != nil {
			return err
		}
	}
	if f.hasPerms {
		if err := loadChoices(ctx, f.db, f.Input.UserPermissions, &f.permissions, "user_permissions", errs); err != nil {
			return err
		}
	}

	return errs.Err()
}

// Save 更新用户及其多对多关系
func (f *UserEditForm) Save(ctx context.Context, commit bool) (*models.User, error) {
	user := f.instance
	user.Email = f.Input.Email
	user.IsActive = f.Input.IsActive
	user.IsStaff = f.Input.IsStaff
	user.IsSuperuser = f.Input.IsSuperuser
	user.ImportedAt = f.Input.ImportedAt
	if f.hasGroups {
		user.Groups = f.groups
	}
	if f.hasPerms {
		user.UserPermissions = f.permissions
	}

	if !commit {
		return user, nil
	}

	db := f.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Save(user).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if f.hasGroups {
		if err := replaceAssociation(db, user, "Groups", f.groups); err != nil {
			return nil, fmt.Errorf("failed to update groups: %w", err)
		}
	}
	if f.hasPerms {
		if err := replaceAssociation(db, user, "UserPermissions", f.permissions); err != nil {
			return nil, fmt.Errorf("failed to update permissions: %w", err)
		}
	}
	return user, nil
}

// SetPasswordInput 管理员重设密码
type SetPasswordInput struct {
	Password1 string `form:"password1" validate:"required"`
	Password2 string `form:"password2" validate:"required"`
}

// SetPasswordForm 管理员为用户设置新密码
type SetPasswordForm struct {
	db     *gorm.DB
	policy *password.Policy
	user   *models.User
	Input  SetPasswordInput
}

// NewSetPasswordForm 创建重设密码表单
func NewSetPasswordForm(db *gorm.DB, policy *password.Policy, user *models.User) *SetPasswordForm {
	if policy == nil {
		policy = password.DefaultPolicy()
	}
	return &SetPasswordForm{db: db, policy: policy, user: user}
}

// Bind 解码并校验
func (f *SetPasswordForm) Bind(_ context.Context, data map[string]interface{}) error {
	if err := Decode(data, &f.Input); err != nil {
		return err
	}
	errs := Validate(&f.Input)
	if errs.Has("password1") || errs.Has("password2") {
		return errs.Err()
	}
	if f.Input.Password1 != f.Input.Password2 {
		errs.Add("password2", CodePasswordMismatch, "The two password fields didn't match.", nil)
		return errs.Err()
	}
	for _, v := range f.policy.Validate(f.Input.Password2, f.user) {
		errs.Add("password2", v.Code, v.Message, v.Params)
	}
	return errs.Err()
}

// Save 写入新密码
func (f *SetPasswordForm) Save(ctx context.Context, commit bool) (*models.User, error) {
	if err := f.user.SetPassword(f.Input.Password1); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if commit {
		err := f.db.WithContext(ctx).Model(f.user).UpdateColumn("password", f.user.Password).Error
		if err != nil {
			return nil, fmt.Errorf("failed to save password: %w", err)
		}
	}
	return f.user, nil
}

func replaceAssociation[T any](db *gorm.DB, user *models.User, name string, values []*T) error {
	if len(values) == 0 {
		return db.Model(user).Association(name).Clear()
	}
	return db.Model(user).Association(name).Replace(values)
}

// checkEmailUnique 邮箱唯一，包括已软删除的行
func checkEmailUnique(ctx context.Context, db *gorm.DB, email string, exclude uint, errs Errors) error {
	var count int64
	q := db.WithContext(ctx).Unscoped().Model(&models.User{}).Where("LOWER(email) = LOWER(?)", email)
	if exclude != 0 {
		q = q.Where("id <> ?", exclude)
	}
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	if count > 0 {
		errs.Add("email", CodeUnique, "User with this Email already exists.",
			map[string]interface{}{"Model": "User", "Field": "Email"})
	}
	return nil
}

// loadChoices 加载多选项，不存在的 ID 报 invalid_choice
func loadChoices[T any](ctx context.Context, db *gorm.DB, ids []uint, out *[]*T, field string, errs Errors) error {
	*out = nil
	if len(ids) == 0 {
		return nil
	}
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(out).Error; err != nil {
		return fmt.Errorf("failed to load %s: %w", field, err)
	}
	found := make(map[uint]bool, len(*out))
	for _, item := range *out {
		found[idOf(item)] = true
	}
	for _, id := range ids {
		if !found[id] {
			errs.Add(field, CodeInvalidChoice,
				fmt.Sprintf("Select a valid choice. %d is not one of the available choices.", id),
				map[string]interface{}{"Value": id})
		}
	}
	return nil
}

func idOf(v interface{}) uint {
	switch m := v.(type) {
	case *models.Group:
		return m.ID
	case *models.Permission:
		return m.ID
	case *models.Label:
		return m.ID
	case *models.Image:
		return m.ID
	}
	return 0
}
