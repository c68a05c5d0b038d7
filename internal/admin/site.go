// Package admin 通用的模型后台引擎
package admin

import (
	"context"
	"fmt"
	"sync"

	"github.com/anoixa/image-admin/database"
	"github.com/anoixa/image-admin/database/models"
)

// PermissionChecker 查询用户拥有的权限代码（直接授予与组授予的并集）
type PermissionChecker interface {
	UserPermissions(ctx context.Context, user *models.User) (map[string]bool, error)
}

// ChangeListener 模型数据变更回调
type ChangeListener func(ctx context.Context, model string)

// Meta 模型注册信息
type Meta struct {
	Name              string `json:"name"`
	VerboseName       string `json:"verbose_name"`
	VerboseNamePlural string `json:"verbose_name_plural"`
	ReadOnly          bool   `json:"read_only"`
}

// Perms 操作员对某个模型的权限
type Perms struct {
	View   bool `json:"view"`
	Add    bool `json:"add"`
	Change bool `json:"change"`
	Delete bool `json:"delete"`
}

// Any 至少拥有一个权限
func (p Perms) Any() bool {
	return p.View || p.Add || p.Change || p.Delete
}

// Registration 已注册的模型后台，屏蔽泛型参数
type Registration interface {
	Meta() Meta
	Permissions(ctx context.Context, user *models.User) (Perms, error)
	Changelist(ctx context.Context, user *models.User, params Params) (*ChangeList, error)
	AddView(ctx context.Context, user *models.User) (*FormView, error)
	Detail(ctx context.Context, user *models.User, id uint) (*FormView, error)
	Create(ctx context.Context, user *models.User, data map[string]interface{}) (*Result, error)
	Update(ctx context.Context, user *models.User, id uint, data map[string]interface{}) (*Result, error)
	Delete(ctx context.Context, user *models.User, id uint) (*Result, error)
	RunAction(ctx context.Context, user *models.User, name string, sel Selection) (*Result, error)

	bind(s *Site)
}

// SiteOptions 站点级配置
type SiteOptions struct {
	ListPerPage    int
	ListMaxShowAll int
}

// Site 后台站点，持有全部模型注册
type Site struct {
	db      database.Provider
	perms   PermissionChecker
	options SiteOptions

	mu        sync.RWMutex
	registry  map[string]Registration
	order     []string
	listeners []ChangeListener
}

// NewSite 创建后台站点
func NewSite(db database.Provider, perms PermissionChecker, opts SiteOptions) *Site {
	if opts.ListPerPage <= 0 {
		opts.ListPerPage = 100
	}
	if opts.ListMaxShowAll <= 0 {
		opts.ListMaxShowAll = 200
	}
	return &Site{
		db:       db,
		perms:    perms,
		options:  opts,
		registry: make(map[string]Registration),
	}
}

// Register 注册模型后台
func (s *Site) Register(r Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := r.Meta().Name
	if _, ok := s.registry[name]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	r.bind(s)
	s.registry[name] = r
	s.order = append(s.order, name)
	return nil
}

// Get 按名称获取注册
func (s *Site) Get(name string) (Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	return r, nil
}

// Registrations 按注册顺序返回
func (s *Site) Registrations() []Registration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Registration, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.registry[name])
	}
	return out
}

// OnChange 注册变更监听
func (s *Site) OnChange(fn ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Changed 通知监听者模型数据已在后台之外被修改
func (s *Site) Changed(ctx context.Context, model string) {
	s.notifyChange(ctx, model)
}

func (s *Site) notifyChange(ctx context.Context, model string) {
	s.mu.RLock()
	listeners := append([]ChangeListener(nil), s.listeners...)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(ctx, model)
	}
}

// IndexEntry 首页的一个模型
type IndexEntry struct {
	Meta
	Perms Perms `json:"perms"`
}

// Index 操作员可见的模型及其权限
func (s *Site) Index(ctx context.Context, user *models.User) ([]IndexEntry, error) {
	if !user.CanAccessAdmin() {
		return nil, ErrPermissionDenied
	}

	var out []IndexEntry
	for _, r := range s.Registrations() {
		perms, err := r.Permissions(ctx, user)
		if err != nil {
			return nil, err
		}
		if !perms.Any() {
			continue
		}
		out = append(out, IndexEntry{Meta: r.Meta(), Perms: perms})
	}
	return out, nil
}

// HasPermission 超级用户拥有全部权限，停用或非员工用户没有任何权限
func (s *Site) HasPermission(ctx context.Context, user *models.User, action, model string) (bool, error) {
	has, err := s.permissionSet(ctx, user)
	if err != nil {
		return false, err
	}
	return has(action, model), nil
}

// permissionSet 一次加载用户权限，返回判定函数
func (s *Site) permissionSet(ctx context.Context, user *models.User) (func(action, model string) bool, error) {
	if !user.CanAccessAdmin() {
		return func(string, string) bool { return false }, nil
	}
	if user.IsSuperuser {
		return func(string, string) bool { return true }, nil
	}
	if s.perms == nil {
		return func(string, string) bool { return false }, nil
	}
	codes, err := s.perms.UserPermissions(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}
	return func(action, model string) bool {
		return codes[models.Codename(action, model)]
	}, nil
}

// DB 站点使用的数据库
func (s *Site) DB() database.Provider {
	return s.db
}

// Options 站点配置
func (s *Site) Options() SiteOptions {
	return s.options
}
