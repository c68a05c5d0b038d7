package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/anoixa/image-admin/database/models"
	"gorm.io/gorm"
)

// ModelAdmin 一个模型的声明式后台配置
type ModelAdmin[T any] struct {
	Name              string
	VerboseName       string
	VerboseNamePlural string
	// Table 主表名，用于限定列名
	Table string
	// Preload 列表与详情预加载的关联
	Preload []string
	// Scope 额外的基础查询条件，列表、详情与批量操作共用
	Scope func(db *gorm.DB) *gorm.DB
	// String 对象的展示文本
	String func(obj *T) string
	// ID 读取主键
	ID func(obj *T) uint

	ListDisplay      []Column[T]
	ListDisplayLinks []string
	ListFilter       []Filter
	SearchFields     []Lookup
	Ordering         []string
	ListPerPage      int

	Fields         []Field[T]
	Fieldsets      []Fieldset
	AddFieldsets   []Fieldset
	ReadonlyFields []string
	Inlines        []Inline[T]

	Actions []Action[T]
	// DisableDeleteSelected 关闭默认的批量删除
	DisableDeleteSelected bool
	// ReadOnly 只允许查看
	ReadOnly bool

	AddForm    func(db *gorm.DB) Form[T]
	ChangeForm func(db *gorm.DB, obj *T) Form[T]

	site *Site
}

func (m *ModelAdmin[T]) bind(s *Site) {
	m.site = s
}

// Meta 注册信息
func (m *ModelAdmin[T]) Meta() Meta {
	plural := m.VerboseNamePlural
	if plural == "" {
		plural = m.VerboseName + "s"
	}
	return Meta{Name: m.Name, VerboseName: m.VerboseName, VerboseNamePlural: plural, ReadOnly: m.ReadOnly}
}

// Permissions 操作员在该模型上的权限
func (m *ModelAdmin[T]) Permissions(ctx context.Context, user *models.User) (Perms, error) {
	var p Perms
	has, err := m.site.permissionSet(ctx, user)
	if err != nil {
		return p, err
	}

	p.Change = has(models.PermChange, m.Name) && m.ChangeForm != nil && !m.ReadOnly
	// 有修改权限即可查看
	p.View = has(models.PermView, m.Name) || has(models.PermChange, m.Name)
	if !m.ReadOnly {
		p.Add = m.AddForm != nil && has(models.PermAdd, m.Name)
		p.Delete = has(models.PermDelete, m.Name)
	}
	return p, nil
}

func (m *ModelAdmin[T]) require(ctx context.Context, user *models.User, check func(Perms) bool) (Perms, error) {
	perms, err := m.Permissions(ctx, user)
	if err != nil {
		return perms, err
	}
	if !check(perms) {
		return perms, ErrPermissionDenied
	}
	return perms, nil
}

func (m *ModelAdmin[T]) str(obj *T) string {
	if m.String != nil {
		return m.String(obj)
	}
	return fmt.Sprintf("%s object (%d)", m.VerboseName, m.ID(obj))
}

func (m *ModelAdmin[T]) column(name string) string {
	return m.Table + "." + name
}

// base 模型查询，默认作用域排除软删除
func (m *ModelAdmin[T]) base(ctx context.Context, db *gorm.DB) *gorm.DB {
	return m.scoped(db.WithContext(ctx).Model(new(T)))
}

func (m *ModelAdmin[T]) scoped(q *gorm.DB) *gorm.DB {
	if m.Scope != nil {
		return q.Scopes(m.Scope)
	}
	return q
}

func (m *ModelAdmin[T]) withPreload(q *gorm.DB) *gorm.DB {
	for _, p := range m.Preload {
		q = q.Preload(p)
	}
	return q
}

// load 按主键加载对象
func (m *ModelAdmin[T]) load(ctx context.Context, db *gorm.DB, id uint) (*T, error) {
	obj := new(T)
	err := m.withPreload(m.scoped(db.WithContext(ctx))).Where(m.column("id")+" = ?", id).First(obj).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s %d", ErrNotFound, m.Name, id)
		}
		return nil, err
	}
	return obj, nil
}

func (m *ModelAdmin[T]) isReadonly(name string) bool {
	for _, f := range m.ReadonlyFields {
		if f == name {
			return true
		}
	}
	return false
}

func (m *ModelAdmin[T]) field(name string) (Field[T], bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field[T]{}, false
}
