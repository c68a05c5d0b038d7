package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/anoixa/image-admin/database/models"
	"gorm.io/gorm"
)

// DeleteSelected 默认的批量删除操作名
const DeleteSelected = "delete_selected"

func (m *ModelAdmin[T]) deleteSelected() Action[T] {
	return Action[T]{
		Name:          DeleteSelected,
		Description:   "Delete selected " + m.Meta().VerboseNamePlural,
		DescriptionID: "admin.action.delete_selected",
		Permission:    models.PermDelete,
		Handler: func(ctx context.Context, req *ActionRequest[T]) error {
			res := req.Tx.Where(m.column("id")+" IN ?", req.IDs).Delete(new(T))
			if res.Error != nil {
				return fmt.Errorf("failed to delete selected %s: %w", m.Name, res.Error)
			}
			req.MessageUser(LevelSuccess, "admin.deleted_selected", "Successfully deleted {{.Count}} {{.Model}}.",
				map[string]interface{}{"Count": res.RowsAffected, "Model": m.Meta().VerboseNamePlural})
			return nil
		},
	}
}

// actions 全部已配置的操作
func (m *ModelAdmin[T]) actions() []Action[T] {
	var out []Action[T]
	if !m.DisableDeleteSelected && !m.ReadOnly {
		out = append(out, m.deleteSelected())
	}
	return append(out, m.Actions...)
}

func allowed(perms Perms, permission string) bool {
	switch permission {
	case "":
		return true
	case models.PermView:
		return perms.View
	case models.PermAdd:
		return perms.Add
	case models.PermChange:
		return perms.Change
	case models.PermDelete:
		return perms.Delete
	}
	return false
}

func (m *ModelAdmin[T]) availableActions(perms Perms) []ActionSpec {
	out := []ActionSpec{}
	for _, a := range m.actions() {
		if !allowed(perms, a.Permission) {
			continue
		}
		out = append(out, ActionSpec{Name: a.Name, Description: a.Description, DescriptionID: a.DescriptionID})
	}
	return out
}

func (m *ModelAdmin[T]) action(name string) (Action[T], bool) {
	for _, a := range m.actions() {
		if a.Name == name {
			return a, true
		}
	}
	return Action[T]{}, false
}

// selectedIDs 解析选择，select_across 时取整个过滤后的列表
func (m *ModelAdmin[T]) selectedIDs(ctx context.Context, db *gorm.DB, sel Selection) ([]uint, error) {
	q, _, err := m.filtered(ctx, db, sel.Params)
	if err != nil {
		return nil, err
	}
	if !sel.SelectAcross {
		if len(sel.IDs) == 0 {
			return nil, nil
		}
		q = q.Where(m.column("id")+" IN ?", sel.IDs)
	}
	var ids []uint
	if err := q.Order(m.column("id")).Pluck(m.column("id"), &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve selection: %w", err)
	}
	return ids, nil
}

// RunAction 对选中的对象执行批量操作
func (m *ModelAdmin[T]) RunAction(ctx context.Context, user *models.User, name string, sel Selection) (*Result, error) {
	perms, err := m.require(ctx, user, func(p Perms) bool { return p.View })
	if err != nil {
		return nil, err
	}
	act, ok := m.action(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	if !allowed(perms, act.Permission) {
		return nil, ErrPermissionDenied
	}

	messages := &Messages{}
	ids, err := m.selectedIDs(ctx, m.site.db.DB(), sel)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		messages.Add(LevelWarning, "admin.no_selection",
			"Items must be selected in order to perform actions on them. No items have been changed.", nil)
		return &Result{Messages: messages.Items()}, nil
	}

	req := &ActionRequest[T]{Admin: m, User: user, IDs: ids, messages: messages}
	err = m.site.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		req.Tx = tx
		return act.Handler(ctx, req)
	})
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			return nil, err
		}
		return nil, fmt.Errorf("action %s failed: %w", name, err)
	}

	for _, fn := range req.onCommit {
		fn()
	}
	m.site.notifyChange(ctx, m.Name)
	return &Result{Count: len(ids), Messages: messages.Items()}, nil
}
