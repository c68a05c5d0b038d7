package maintenance

import (
	"context"
	"fmt"
	"log"

	"github.com/anoixa/image-admin/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 冲突处理策略
const (
	ConflictSkip      = "skip"
	ConflictOverwrite = "overwrite"
	ConflictError     = "error"
)

// joinTables 多对多关联表，按行原样复制
var joinTables = []string{"group_permissions", "user_groups", "user_permissions"}

// CopyStats 复制统计
type CopyStats struct {
	Rows   map[string]int64
	Errors []string
}

// Copier 在两个数据库之间复制全部后台数据，包括软删除的行
type Copier struct {
	source     *gorm.DB
	target     *gorm.DB
	batchSize  int
	onConflict string
}

func checkStrategy(onConflict string) error {
	switch onConflict {
	case ConflictSkip, ConflictOverwrite, ConflictError:
		return nil
	}
	return fmt.Errorf("invalid on-conflict strategy: %s (must be skip, overwrite, or error)", onConflict)
}

// NewCopier 创建复制器
func NewCopier(source, target *gorm.DB, batchSize int, onConflict string) (*Copier, error) {
	if err := checkStrategy(onConflict); err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Copier{source: source, target: target, batchSize: batchSize, onConflict: onConflict}, nil
}

func conflictClause(onConflict string) clause.Expression {
	switch onConflict {
	case ConflictSkip:
		return clause.OnConflict{DoNothing: true}
	case ConflictOverwrite:
		return clause.OnConflict{UpdateAll: true}
	}
	return nil
}

func withConflict(db *gorm.DB, onConflict string) *gorm.DB {
	if expr := conflictClause(onConflict); expr != nil {
		db = db.Clauses(expr)
	}
	return db
}

// copyModel 分批复制一个模型，主键保持不变
func copyModel[T any](ctx context.Context, c *Copier, name string, stats *CopyStats) error {
	var batch []*T
	res := c.source.WithContext(ctx).Unscoped().FindInBatches(&batch, c.batchSize, func(tx *gorm.DB, _ int) error {
		created := withConflict(c.target.WithContext(ctx), c.onConflict).Omit(clause.Associations).Create(&batch)
		if created.Error != nil {
			return fmt.Errorf("failed to copy %s: %w", name, created.Error)
		}
		stats.Rows[name] += created.RowsAffected
		return nil
	})
	return res.Error
}

// copyJoinTable 复制关联表
func (c *Copier) copyJoinTable(ctx context.Context, table string, stats *CopyStats) error {
	var rows []map[string]interface{}
	if err := c.source.WithContext(ctx).Table(table).Find(&rows).Error; err != nil {
		return fmt.Errorf("failed to read %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil
	}
	db := c.target.WithContext(ctx).Table(table)
	if c.onConflict != ConflictError {
		// 关联表没有可更新的列，覆盖与跳过等价
		db = db.Clauses(clause.OnConflict{DoNothing: true})
	}
	res := db.CreateInBatches(rows, c.batchSize)
	if res.Error != nil {
		return fmt.Errorf("failed to copy %s: %w", table, res.Error)
	}
	stats.Rows[table] += res.RowsAffected
	return nil
}

// resetSequences PostgreSQL 显式写入主键后需要推进序列
func resetSequences(ctx context.Context, db *gorm.DB, tables []string) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	for _, table := range tables {
		sql := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)", table, table)
		if err := db.WithContext(ctx).Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to reset sequence of %s: %w", table, err)
		}
	}
	return nil
}

// Run 迁移目标库结构后按依赖顺序复制数据
func (c *Copier) Run(ctx context.Context, migrate func(db *gorm.DB) error) (*CopyStats, error) {
	stats := &CopyStats{Rows: map[string]int64{}}

	if migrate != nil {
		log.Println("[Copy] Migrating target schema...")
		if err := migrate(c.target); err != nil {
			return stats, fmt.Errorf("failed to migrate target schema: %w", err)
		}
	}

	steps := []struct {
		table string
		fn    func() error
	}{
		{"permissions", func() error { return copyModel[models.Permission](ctx, c, "permissions", stats) }},
		{"groups", func() error { return copyModel[models.Group](ctx, c, "groups", stats) }},
		{"users", func() error { return copyModel[models.User](ctx, c, "users", stats) }},
		{"images", func() error { return copyModel[models.Image](ctx, c, "images", stats) }},
		{"labels", func() error { return copyModel[models.Label](ctx, c, "labels", stats) }},
		{"labeled_images", func() error { return copyModel[models.LabeledImage](ctx, c, "labeled_images", stats) }},
	}

	var tables []string
	for _, step := range steps {
		log.Printf("[Copy] Copying %s...", step.table)
		if err := step.fn(); err != nil {
			stats.Errors = append(stats.Errors, err.Error())
			if c.onConflict == ConflictError {
				return stats, err
			}
			continue
		}
		tables = append(tables, step.table)
	}
	for _, table := range joinTables {
		log.Printf("[Copy] Copying %s...", table)
		if err := c.copyJoinTable(ctx, table, stats); err != nil {
			stats.Errors = append(stats.Errors, err.Error())
			if c.onConflict == ConflictError {
				return stats, err
			}
		}
	}

	if err := resetSequences(ctx, c.target, tables); err != nil {
		stats.Errors = append(stats.Errors, err.Error())
	}
	if len(stats.Errors) > 0 {
		return stats, fmt.Errorf("copy completed with %d errors", len(stats.Errors))
	}
	return stats, nil
}
