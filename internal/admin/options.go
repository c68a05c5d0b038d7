package admin

import (
	"context"

	"github.com/anoixa/image-admin/database/models"
	"gorm.io/gorm"
)

// Column 列表页的一列
type Column[T any] struct {
	Name  string
	Label string
	Value func(obj *T) interface{}
	// OrderBy 排序用的 SQL 列，空表示不可排序
	OrderBy string
	// HTML 值为已转义的 HTML 片段
	HTML    bool
	Boolean bool
}

// Field 详情与表单中的字段
type Field[T any] struct {
	Name     string
	Label    string
	HelpText string
	// Value 读取当前值，新建页面传入 nil
	Value func(obj *T) interface{}
	// Initial 新建页面的初始值
	Initial interface{}
	// ReadOnly 字段本身不可编辑，例如密码哈希
	ReadOnly bool
	HTML     bool
}

// Fieldset 字段分组
type Fieldset struct {
	Name   string
	Fields []string
}

// Choice 过滤器选项
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Filter 列表页侧栏过滤器，请求参数为 Name + "__exact"
type Filter struct {
	Name  string
	Title string
	// Column 比较的 SQL 列
	Column string
	// Through 关联过滤的条件模板，%s 处替换为列比较条件
	Through string
	Boolean bool
	Choices func(ctx context.Context, db *gorm.DB) ([]Choice, error)
}

// Lookup 搜索字段
type Lookup struct {
	Name    string
	Column  string
	Through string
}

// InlineFormset 内联表格的表单集
type InlineFormset interface {
	Bind(ctx context.Context, rows []interface{}) error
	Save(ctx context.Context) error
}

// Inline 父对象页面中的关联表格
type Inline[T any] struct {
	Name              string
	VerboseName       string
	VerboseNamePlural string
	Extra             int
	Fields            []string
	ReadonlyFields    []string
	Rows              func(ctx context.Context, db *gorm.DB, parent *T) ([]map[string]interface{}, error)
	Formset           func(db *gorm.DB, parent *T) InlineFormset
}

// Form 后台表单
type Form[T any] interface {
	Bind(ctx context.Context, data map[string]interface{}) error
	Save(ctx context.Context, commit bool) (*T, error)
}

// ActionRequest 批量操作的上下文
type ActionRequest[T any] struct {
	Admin *ModelAdmin[T]
	User  *models.User
	Tx    *gorm.DB
	IDs   []uint

	messages *Messages
	onCommit []func()
}

// MessageUser 向操作员发送提示
func (r *ActionRequest[T]) MessageUser(level Level, id, text string, data map[string]interface{}) {
	r.messages.Add(level, id, text, data)
}

// OnCommit 事务提交后执行
func (r *ActionRequest[T]) OnCommit(fn func()) {
	r.onCommit = append(r.onCommit, fn)
}

// Action 批量操作
type Action[T any] struct {
	Name        string
	Description string
	// DescriptionID 描述的本地化 ID
	DescriptionID string
	// Permission 需要的权限动作，如 delete
	Permission string
	Handler    func(ctx context.Context, req *ActionRequest[T]) error
}
