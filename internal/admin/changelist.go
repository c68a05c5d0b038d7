package admin

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/anoixa/image-admin/database/models"
	"gorm.io/gorm"
)

// likeEscaper 转义 LIKE 通配符，配合 ESCAPE '!'
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

var plainColumn = regexp.MustCompile(`^[a-z_]+$`)

// Params 列表页请求参数
type Params struct {
	Query    string
	Page     int
	Limit    int
	ShowAll  bool
	Ordering string
	// Filters 过滤参数，键形如 is_staff__exact
	Filters map[string]string
}

// Selection 批量操作的选择
type Selection struct {
	IDs          []uint
	SelectAcross bool
	Params       Params
}

// Cell 单元格
type Cell struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
	Link  bool        `json:"link,omitempty"`
	HTML  bool        `json:"html,omitempty"`
}

// Row 列表行
type Row struct {
	ID    uint   `json:"id"`
	Cells []Cell `json:"cells"`
}

// ColumnHeader 列头
type ColumnHeader struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Sortable bool   `json:"sortable"`
	// Sorted asc / desc，未排序为空
	Sorted  string `json:"sorted,omitempty"`
	Boolean bool   `json:"boolean,omitempty"`
}

// FilterChoice 过滤器选项及选中状态
type FilterChoice struct {
	Choice
	Selected bool `json:"selected"`
}

// FilterSpec 过滤器展示
type FilterSpec struct {
	Name    string         `json:"name"`
	Title   string         `json:"title"`
	Param   string         `json:"param"`
	Choices []FilterChoice `json:"choices"`
}

// ActionSpec 可用的批量操作
type ActionSpec struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	DescriptionID string `json:"-"`
}

// ChangeList 列表页数据
type ChangeList struct {
	Model        string         `json:"model"`
	Columns      []ColumnHeader `json:"columns"`
	Rows         []Row          `json:"rows"`
	Filters      []FilterSpec   `json:"filters"`
	Actions      []ActionSpec   `json:"actions"`
	SearchFields []string       `json:"search_fields"`
	Query        string         `json:"query"`
	Ordering     []string       `json:"ordering"`
	Page         int            `json:"page"`
	PerPage      int            `json:"per_page"`
	Pages        int            `json:"pages"`
	ResultCount  int64          `json:"result_count"`
	FullCount    int64          `json:"full_count"`
	Perms        Perms          `json:"perms"`
}

// SplitTerms 按空白拆分搜索词，双引号内视为一个词
func SplitTerms(q string) []string {
	var terms []string
	var sb strings.Builder
	inQuote := false
	flush := func() {
		if sb.Len() > 0 {
			terms = append(terms, sb.String())
			sb.Reset()
		}
	}
	for _, r := range q {
		switch {
		case r == '"':
			inQuote = !inQuote
			if !inQuote {
				flush()
			}
		case !inQuote && (r == ' ' || r == '\t' || r == '\n'):
			flush()
		default:
			sb.WriteRune(r)
		}
	}
	flush()
	return terms
}

// applySearch 每个词至少匹配一个搜索字段，词之间为 AND
func (m *ModelAdmin[T]) applySearch(q *gorm.DB, query string) *gorm.DB {
	if len(m.SearchFields) == 0 {
		return q
	}
	for _, term := range SplitTerms(query) {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
		conds := make([]string, 0, len(m.SearchFields))
		args := make([]interface{}, 0, len(m.SearchFields))
		for _, f := range m.SearchFields {
			cond := fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '!'", f.Column)
			if f.Through != "" {
				cond = fmt.Sprintf(f.Through, cond)
			}
			conds = append(conds, cond)
			args = append(args, pattern)
		}
		q = q.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
	return q
}

func parseBool(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true, true
	case "0", "false", "no":
		return false, true
	}
	return false, false
}

// applyFilters 应用过滤参数并生成过滤器展示
func (m *ModelAdmin[T]) applyFilters(ctx context.Context, db *gorm.DB, q *gorm.DB, params Params) (*gorm.DB, []FilterSpec, error) {
	specs := make([]FilterSpec, 0, len(m.ListFilter))
	for _, f := range m.ListFilter {
		param := f.Name + "__exact"
		value, active := params.Filters[param]

		spec := FilterSpec{Name: f.Name, Title: f.Title, Param: param}
		var choices []Choice
		if f.Boolean {
			choices = []Choice{{Value: "1", Label: "Yes"}, {Value: "0", Label: "No"}}
		} else if f.Choices != nil {
			var err error
			if choices, err = f.Choices(ctx, db); err != nil {
				return nil, nil, fmt.Errorf("failed to load choices for %s: %w", f.Name, err)
			}
		}

		if active {
			var arg interface{} = value
			if f.Boolean {
				b, ok := parseBool(value)
				if !ok {
					// 非法取值忽略
					active = false
				}
				arg = b
			}
			if active {
				cond := fmt.Sprintf("%s = ?", f.Column)
				if f.Through != "" {
					cond = fmt.Sprintf(f.Through, cond)
				}
				q = q.Where(cond, arg)
			}
		}

		spec.Choices = append(spec.Choices, FilterChoice{Choice: Choice{Value: "", Label: "All"}, Selected: !active})
		for _, c := range choices {
			selected := active && c.Value == value
			if active && f.Boolean {
				want, _ := parseBool(value)
				got, _ := parseBool(c.Value)
				selected = want == got
			}
			spec.Choices = append(spec.Choices, FilterChoice{Choice: c, Selected: selected})
		}
		specs = append(specs, spec)
	}
	return q, specs, nil
}

// orderColumn 将字段名映射为 SQL 列
func (m *ModelAdmin[T]) orderColumn(name string) (string, bool) {
	for _, c := range m.ListDisplay {
		if c.Name == name && c.OrderBy != "" {
			return c.OrderBy, true
		}
	}
	if plainColumn.MatchString(name) {
		return m.column(name), true
	}
	return "", false
}

// resolveOrdering 请求参数优先于默认排序，始终以 id 兜底
func (m *ModelAdmin[T]) resolveOrdering(requested string) ([]string, []string) {
	fields := m.Ordering
	if requested != "" {
		var valid []string
		for _, f := range strings.Split(requested, ",") {
			name := strings.TrimPrefix(strings.TrimSpace(f), "-")
			for _, c := range m.ListDisplay {
				if c.Name == name && c.OrderBy != "" {
					valid = append(valid, strings.TrimSpace(f))
				}
			}
		}
		if len(valid) > 0 {
			fields = valid
		}
	}

	var clauses []string
	hasID := false
	for _, f := range fields {
		desc := strings.HasPrefix(f, "-")
		name := strings.TrimPrefix(f, "-")
		col, ok := m.orderColumn(name)
		if !ok {
			continue
		}
		if name == "id" {
			hasID = true
		}
		if desc {
			clauses = append(clauses, col+" DESC")
		} else {
			clauses = append(clauses, col+" ASC")
		}
	}
	if !hasID {
		clauses = append(clauses, m.column("id")+" ASC")
	}
	return fields, clauses
}

// filtered 应用过滤与搜索后的查询
func (m *ModelAdmin[T]) filtered(ctx context.Context, db *gorm.DB, params Params) (*gorm.DB, []FilterSpec, error) {
	q := m.base(ctx, db)
	q, specs, err := m.applyFilters(ctx, db, q, params)
	if err != nil {
		return nil, nil, err
	}
	q = m.applySearch(q, params.Query)
	return q.Session(&gorm.Session{}), specs, nil
}

// Changelist 列表页
func (m *ModelAdmin[T]) Changelist(ctx context.Context, user *models.User, params Params) (*ChangeList, error) {
	perms, err := m.require(ctx, user, func(p Perms) bool { return p.View })
	if err != nil {
		return nil, err
	}
	db := m.site.db.DB()

	q, specs, err := m.filtered(ctx, db, params)
	if err != nil {
		return nil, err
	}

	var resultCount, fullCount int64
	if err := q.Count(&resultCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", m.Name, err)
	}
	if err := m.base(ctx, db).Count(&fullCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", m.Name, err)
	}

	perPage := m.ListPerPage
	if perPage <= 0 {
		perPage = m.site.options.ListPerPage
	}
	if params.Limit > 0 && params.Limit <= m.site.options.ListMaxShowAll {
		perPage = params.Limit
	}
	if params.ShowAll && resultCount <= int64(m.site.options.ListMaxShowAll) && resultCount > 0 {
		perPage = int(resultCount)
	}
	pages := int((resultCount + int64(perPage) - 1) / int64(perPage))
	if pages == 0 {
		pages = 1
	}
	page := params.Page
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	ordering, clauses := m.resolveOrdering(params.Ordering)
	find := m.withPreload(q)
	for _, c := range clauses {
		find = find.Order(c)
	}

	var objs []*T
	if err := find.Offset((page - 1) * perPage).Limit(perPage).Find(&objs).Error; err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", m.Name, err)
	}

	cl := &ChangeList{
		Model:       m.Name,
		Filters:     specs,
		Query:       params.Query,
		Ordering:    ordering,
		Page:        page,
		PerPage:     perPage,
		Pages:       pages,
		ResultCount: resultCount,
		FullCount:   fullCount,
		Perms:       perms,
		Rows:        make([]Row, 0, len(objs)),
	}
	for _, f := range m.SearchFields {
		cl.SearchFields = append(cl.SearchFields, f.Name)
	}

	sorted := map[string]string{}
	for _, f := range ordering {
		if strings.HasPrefix(f, "-") {
			sorted[f[1:]] = "desc"
		} else {
			sorted[f] = "asc"
		}
	}
	for _, c := range m.ListDisplay {
		cl.Columns = append(cl.Columns, ColumnHeader{
			Name:     c.Name,
			Label:    c.Label,
			Sortable: c.OrderBy != "",
			Sorted:   sorted[c.Name],
			Boolean:  c.Boolean,
		})
	}

	links := m.ListDisplayLinks
	if len(links) == 0 && len(m.ListDisplay) > 0 {
		links = []string{m.ListDisplay[0].Name}
	}
	isLink := make(map[string]bool, len(links))
	for _, l := range links {
		isLink[l] = true
	}

	for _, obj := range objs {
		row := Row{ID: m.ID(obj), Cells: make([]Cell, 0, len(m.ListDisplay))}
		for _, c := range m.ListDisplay {
			row.Cells = append(row.Cells, Cell{Name: c.Name, Value: c.Value(obj), Link: isLink[c.Name], HTML: c.HTML})
		}
		cl.Rows = append(cl.Rows, row)
	}

	cl.Actions = m.availableActions(perms)
	return cl, nil
}
