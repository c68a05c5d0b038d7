package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/anoixa/image-admin/database/models"
	"github.com/anoixa/image-admin/internal/forms"
	"gorm.io/gorm"
)

// FieldView 表单页中的一个字段
type FieldView struct {
	Name     string      `json:"name"`
	Label    string      `json:"label"`
	HelpText string      `json:"help_text,omitempty"`
	Value    interface{} `json:"value"`
	ReadOnly bool        `json:"read_only"`
	HTML     bool        `json:"html,omitempty"`
}

// FieldsetView 字段分组
type FieldsetView struct {
	Name   string      `json:"name,omitempty"`
	Fields []FieldView `json:"fields"`
}

// InlineView 内联表格
type InlineView struct {
	Name              string                   `json:"name"`
	VerboseName       string                   `json:"verbose_name"`
	VerboseNamePlural string                   `json:"verbose_name_plural"`
	Fields            []string                 `json:"fields"`
	ReadonlyFields    []string                 `json:"readonly_fields"`
	Extra             int                      `json:"extra"`
	Rows              []map[string]interface{} `json:"rows"`
	CanEdit           bool                     `json:"can_edit"`
}

// FormView 新建页或修改页
type FormView struct {
	Model     string         `json:"model"`
	ID        uint           `json:"id,omitempty"`
	Object    string         `json:"object,omitempty"`
	Fieldsets []FieldsetView `json:"fieldsets"`
	Inlines   []InlineView   `json:"inlines"`
	Perms     Perms          `json:"perms"`
}

// Result 写操作的结果
type Result struct {
	ID       uint      `json:"id,omitempty"`
	Object   string    `json:"object,omitempty"`
	Count    int       `json:"count,omitempty"`
	Messages []Message `json:"messages"`
}

func (m *ModelAdmin[T]) fieldsets(add bool) []Fieldset {
	if add && len(m.AddFieldsets) > 0 {
		return m.AddFieldsets
	}
	if len(m.Fieldsets) > 0 {
		return m.Fieldsets
	}
	names := make([]string, 0, len(m.Fields))
	for _, f := range m.Fields {
		names = append(names, f.Name)
	}
	return []Fieldset{{Fields: names}}
}

// buildView 组装表单页，obj 为 nil 表示新建页
func (m *ModelAdmin[T]) buildView(ctx context.Context, db *gorm.DB, obj *T, perms Perms) (*FormView, error) {
	add := obj == nil
	view := &FormView{Model: m.Name, Perms: perms}
	if !add {
		view.ID = m.ID(obj)
		view.Object = m.str(obj)
	}

	editable := perms.Change
	if add {
		editable = perms.Add
	}

	for _, fs := range m.fieldsets(add) {
		fsv := FieldsetView{Name: fs.Name, Fields: make([]FieldView, 0, len(fs.Fields))}
		for _, name := range fs.Fields {
			f, ok := m.field(name)
			if !ok {
				return nil, fmt.Errorf("%s: unknown field %q in fieldset", m.Name, name)
			}
			fv := FieldView{
				Name:     f.Name,
				Label:    f.Label,
				HelpText: f.HelpText,
				HTML:     f.HTML,
				ReadOnly: f.ReadOnly || m.isReadonly(f.Name) || !editable,
			}
			if add {
				fv.Value = f.Initial
			} else if f.Value != nil {
				fv.Value = f.Value(obj)
			}
			fsv.Fields = append(fsv.Fields, fv)
		}
		view.Fieldsets = append(view.Fieldsets, fsv)
	}

	view.Inlines = make([]InlineView, 0, len(m.Inlines))
	for _, in := range m.Inlines {
		iv := InlineView{
			Name:              in.Name,
			VerboseName:       in.VerboseName,
			VerboseNamePlural: in.VerboseNamePlural,
			Fields:            in.Fields,
			ReadonlyFields:    in.ReadonlyFields,
			Extra:             in.Extra,
			Rows:              []map[string]interface{}{},
			CanEdit:           editable && in.Formset != nil,
		}
		if iv.VerboseNamePlural == "" {
			iv.VerboseNamePlural = iv.VerboseName + "s"
		}
		if !add && in.Rows != nil {
			rows, err := in.Rows(ctx, db, obj)
			if err != nil {
				return nil, fmt.Errorf("failed to load inline %s: %w", in.Name, err)
			}
			iv.Rows = rows
		}
		view.Inlines = append(view.Inlines, iv)
	}
	return view, nil
}

// AddView 新建页布局
func (m *ModelAdmin[T]) AddView(ctx context.Context, user *models.User) (*FormView, error) {
	perms, err := m.require(ctx, user, func(p Perms) bool { return p.Add })
	if err != nil {
		return nil, err
	}
	return m.buildView(ctx, m.site.db.DB(), nil, perms)
}

// Detail 修改页（无修改权限时为只读查看）
func (m *ModelAdmin[T]) Detail(ctx context.Context, user *models.User, id uint) (*FormView, error) {
	perms, err := m.require(ctx, user, func(p Perms) bool { return p.View })
	if err != nil {
		return nil, err
	}
	db := m.site.db.DB()
	obj, err := m.load(ctx, db, id)
	if err != nil {
		return nil, err
	}
	return m.buildView(ctx, db, obj, perms)
}

// inlineData 取出请求中的内联数据
func inlineData(data map[string]interface{}, name string) ([]interface{}, bool) {
	raw, ok := data["inlines"].(map[string]interface{})
	if !ok {
		return nil, false
	}
	rows, ok := raw[name].([]interface{})
	return rows, ok
}

// bindInlines 校验并保存提交了数据的内联表格
func (m *ModelAdmin[T]) bindInlines(ctx context.Context, tx *gorm.DB, parent *T, data map[string]interface{}, errs forms.Errors, save bool) error {
	for _, in := range m.Inlines {
		if in.Formset == nil {
			continue
		}
		rows, ok := inlineData(data, in.Name)
		if !ok {
			continue
		}
		fs := in.Formset(tx, parent)
		if err := fs.Bind(ctx, rows); err != nil {
			if fe, ok := forms.AsErrors(err); ok {
				errs.Merge("", fe)
				continue
			}
			return err
		}
		if save && len(errs) == 0 {
			if err := fs.Save(ctx); err != nil {
				return fmt.Errorf("failed to save inline %s: %w", in.Name, err)
			}
		}
	}
	return nil
}

// errValidation 回滚事务用的内部哨兵
var errValidation = errors.New("validation failed")

// save 在一个事务内绑定表单与内联表格
func (m *ModelAdmin[T]) save(ctx context.Context, newForm func(tx *gorm.DB) Form[T], data map[string]interface{}) (*T, error) {
	errs := forms.Errors{}
	var saved *T

	err := m.site.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		form := newForm(tx)
		if err := form.Bind(ctx, data); err != nil {
			fe, ok := forms.AsErrors(err)
			if !ok {
				return err
			}
			errs.Merge("", fe)
			// 父对象无效时仍校验内联表格，以便一次返回全部错误
			if err := m.bindInlines(ctx, tx, new(T), data, errs, false); err != nil {
				return err
			}
			return errValidation
		}

		obj, err := form.Save(ctx, true)
		if err != nil {
			return err
		}
		if err := m.bindInlines(ctx, tx, obj, data, errs, true); err != nil {
			return err
		}
		if len(errs) > 0 {
			return errValidation
		}
		saved = obj
		return nil
	})
	if errors.Is(err, errValidation) {
		return nil, errs
	}
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// Create 新建对象
func (m *ModelAdmin[T]) Create(ctx context.Context, user *models.User, data map[string]interface{}) (*Result, error) {
	if _, err := m.require(ctx, user, func(p Perms) bool { return p.Add }); err != nil {
		return nil, err
	}

	obj, err := m.save(ctx, func(tx *gorm.DB) Form[T] { return m.AddForm(tx) }, data)
	if err != nil {
		return nil, err
	}

	res := m.result(obj)
	var msgs Messages
	msgs.Add(LevelSuccess, "admin.added", "The {{.Model}} “{{.Object}}” was added successfully.",
		map[string]interface{}{"Model": m.VerboseName, "Object": res.Object})
	res.Messages = msgs.Items()

	m.site.notifyChange(ctx, m.Name)
	return res, nil
}

// Update 修改对象及其内联表格
func (m *ModelAdmin[T]) Update(ctx context.Context, user *models.User, id uint, data map[string]interface{}) (*Result, error) {
	if _, err := m.require(ctx, user, func(p Perms) bool { return p.Change }); err != nil {
		return nil, err
	}
	if _, err := m.load(ctx, m.site.db.DB(), id); err != nil {
		return nil, err
	}

	obj, err := m.save(ctx, func(tx *gorm.DB) Form[T] {
		current, err := m.load(ctx, tx, id)
		if err != nil {
			return errorForm[T]{err: err}
		}
		return m.ChangeForm(tx, current)
	}, data)
	if err != nil {
		return nil, err
	}

	res := m.result(obj)
	var msgs Messages
	msgs.Add(LevelSuccess, "admin.changed", "The {{.Model}} “{{.Object}}” was changed successfully.",
		map[string]interface{}{"Model": m.VerboseName, "Object": res.Object})
	res.Messages = msgs.Items()

	m.site.notifyChange(ctx, m.Name)
	return res, nil
}

// Delete 软删除对象
func (m *ModelAdmin[T]) Delete(ctx context.Context, user *models.User, id uint) (*Result, error) {
	if _, err := m.require(ctx, user, func(p Perms) bool { return p.Delete }); err != nil {
		return nil, err
	}
	db := m.site.db.DB()
	obj, err := m.load(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Delete(obj).Error; err != nil {
		return nil, fmt.Errorf("failed to delete %s %d: %w", m.Name, id, err)
	}

	res := m.result(obj)
	var msgs Messages
	msgs.Add(LevelSuccess, "admin.deleted", "The {{.Model}} “{{.Object}}” was deleted successfully.",
		map[string]interface{}{"Model": m.VerboseName, "Object": res.Object})
	res.Messages = msgs.Items()

	m.site.notifyChange(ctx, m.Name)
	return res, nil
}

func (m *ModelAdmin[T]) result(obj *T) *Result {
	return &Result{ID: m.ID(obj), Object: m.str(obj), Count: 1}
}

// errorForm 在事务内加载失败时返回错误
type errorForm[T any] struct {
	err error
}

func (f errorForm[T]) Bind(context.Context, map[string]interface{}) error { return f.err }

func (f errorForm[T]) Save(context.Context, bool) (*T, error) { return nil, f.err }
