// Package base 提供通用的 Repository 基类
package base

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Repository 通用仓库基类
type Repository[T any] struct {
	db *gorm.DB
}

// NewRepository 创建新的通用仓库
func NewRepository[T any](db *gorm.DB) *Repository[T] {
	return &Repository[T]{db: db}
}

// DB 返回底层数据库连接
func (r *Repository[T]) DB() *gorm.DB {
	return r.db
}

// Create 创建记录
func (r *Repository[T]) Create(ctx context.Context, entity *T) error {
	return r.db.WithContext(ctx).Create(entity).Error
}

// GetByID 通过 ID 获取记录，不存在时返回 nil, nil
func (r *Repository[T]) GetByID(ctx context.Context, id uint) (*T, error) {
	var entity T
	err := r.db.WithContext(ctx).First(&entity, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

// FindByIDsUnscoped 按 ID 查询，包含已软删除的记录
func (r *Repository[T]) FindByIDsUnscoped(ctx context.Context, ids []uint) ([]*T, error) {
	var entities []*T
	if len(ids) == 0 {
		return entities, nil
	}
	err := r.db.WithContext(ctx).Unscoped().Where("id IN ?", ids).Order("id").Find(&entities).Error
	return entities, err
}

// Delete 软删除记录
func (r *Repository[T]) Delete(ctx context.Context, id uint) error {
	var entity T
	return r.db.WithContext(ctx).Delete(&entity, id).Error
}

// ForceDeleteByIDs 物理删除记录（含已软删除的）
func (r *Repository[T]) ForceDeleteByIDs(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var entity T
	res := r.db.WithContext(ctx).Unscoped().Where("id IN ?", ids).Delete(&entity)
	return res.RowsAffected, res.Error
}

// DeletedBefore 软删除时间早于 before 的记录 ID
func (r *Repository[T]) DeletedBefore(ctx context.Context, before time.Time) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Unscoped().Model(new(T)).
		Where("deleted_at IS NOT NULL AND deleted_at < ?", before).
		Order("id").Pluck("id", &ids).Error
	return ids, err
}

// Count 获取记录总数
func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).Count(&count).Error
	return count, err
}

// Exists 检查记录是否存在
func (r *Repository[T]) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// FirstByCondition 根据条件查询第一条记录
func (r *Repository[T]) FirstByCondition(ctx context.Context, condition string, args ...interface{}) (*T, error) {
	var entity T
	err := r.db.WithContext(ctx).Where(condition, args...).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

// Transaction 执行事务
func (r *Repository[T]) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
