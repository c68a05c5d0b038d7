// Package images 图片、标签及其关联的数据访问
package images

import (
	"context"
	"errors"
	"fmt"

	"github.com/anoixa/image-admin/database"
	"github.com/anoixa/image-admin/database/models"
	"github.com/anoixa/image-admin/database/repo/base"
	"gorm.io/gorm"
)

// Repository 图片仓库 - 封装所有图片相关的数据库操作
type Repository struct {
	*base.Repository[models.Image]
	db database.Provider
}

// NewRepository 创建新的图片仓库
func NewRepository(db database.Provider) *Repository {
	return &Repository{Repository: base.NewRepository[models.Image](db.DB()), db: db}
}

// GetImageByID 通过ID获取图片，不存在或已软删除时返回 gorm.ErrRecordNotFound
func (r *Repository) GetImageByID(ctx context.Context, id uint) (*models.Image, error) {
	var image models.Image
	if err := r.db.WithContext(ctx).First(&image, id).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

// ForceDeleteWithTx 在事务中物理删除图片及其标签关联，返回被删除的图片
func (r *Repository) ForceDeleteWithTx(tx *gorm.DB, ids []uint) ([]*models.Image, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var images []*models.Image
	if err := tx.Unscoped().Where("id IN ?", ids).Order("id").Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to load images: %w", err)
	}
	if err := tx.Unscoped().Where("image_id IN ?", ids).Delete(&models.LabeledImage{}).Error; err != nil {
		return nil, fmt.Errorf("failed to delete labeled images: %w", err)
	}
	if err := tx.Unscoped().Where("id IN ?", ids).Delete(&models.Image{}).Error; err != nil {
		return nil, fmt.Errorf("failed to delete images: %w", err)
	}
	return images, nil
}

// ReferencedURIs 返回 deleted 中仍被其他图片行（含软删除）引用的 URI，这些存储对象不能删除
func ReferencedURIs(tx *gorm.DB, deleted []*models.Image) (map[string]bool, error) {
	uris := make([]string, 0, len(deleted))
	seen := make(map[string]bool, len(deleted))
	for _, img := range deleted {
		if img.URI == "" || seen[img.URI] {
			continue
		}
		seen[img.URI] = true
		uris = append(uris, img.URI)
	}
	if len(uris) == 0 {
		return map[string]bool{}, nil
	}

	var still []string
	if err := tx.Unscoped().Model(&models.Image{}).Where("uri IN ?", uris).Distinct().Pluck("uri", &still).Error; err != nil {
		return nil, fmt.Errorf("failed to check shared uris: %w", err)
	}
	referenced := make(map[string]bool, len(still))
	for _, uri := range still {
		referenced[uri] = true
	}
	return referenced, nil
}

// ForceDelete 物理删除图片
func (r *Repository) ForceDelete(ctx context.Context, ids []uint) ([]*models.Image, error) {
	var deleted []*models.Image
	err := r.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		var err error
		deleted, err = r.ForceDeleteWithTx(tx, ids)
		return err
	})
	return deleted, err
}

// DB 返回底层 *gorm.DB 实例
func (r *Repository) DB() *gorm.DB {
	return r.db.DB()
}

// LabelRepository 标签仓库
type LabelRepository struct {
	*base.Repository[models.Label]
	db database.Provider
}

// NewLabelRepository 创建标签仓库
func NewLabelRepository(db database.Provider) *LabelRepository {
	return &LabelRepository{Repository: base.NewRepository[models.Label](db.DB()), db: db}
}

// GetLabelBySlug 通过 slug 获取标签，不存在时返回 nil, nil
func (r *LabelRepository) GetLabelBySlug(ctx context.Context, slug string) (*models.Label, error) {
	var label models.Label
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&label).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &label, nil
}

// ListSlugs 全部未删除标签的 slug，按字母序
func (r *LabelRepository) ListSlugs(ctx context.Context) ([]string, error) {
	var slugs []string
	err := r.db.WithContext(ctx).Model(&models.Label{}).Order("slug").Pluck("slug", &slugs).Error
	return slugs, err
}

// ForceDeleteWithTx 在事务中物理删除标签及其关联
func (r *LabelRepository) ForceDeleteWithTx(tx *gorm.DB, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if err := tx.Unscoped().Where("label_id IN ?", ids).Delete(&models.LabeledImage{}).Error; err != nil {
		return 0, fmt.Errorf("failed to delete labeled images: %w", err)
	}
	res := tx.Unscoped().Where("id IN ?", ids).Delete(&models.Label{})
	return res.RowsAffected, res.Error
}

// LabeledImageRepository 图片标签关联仓库
type LabeledImageRepository struct {
	*base.Repository[models.LabeledImage]
	db database.Provider
}

// NewLabeledImageRepository 创建关联仓库
func NewLabeledImageRepository(db database.Provider) *LabeledImageRepository {
	return &LabeledImageRepository{Repository: base.NewRepository[models.LabeledImage](db.DB()), db: db}
}

// LiveLinks 排除图片或标签已删除的关联行
func LiveLinks(db *gorm.DB) *gorm.DB {
	return db.
		Where("EXISTS (SELECT 1 FROM images i WHERE i.id = labeled_images.image_id AND i.deleted_at IS NULL)").
		Where("EXISTS (SELECT 1 FROM labels l WHERE l.id = labeled_images.label_id AND l.deleted_at IS NULL)")
}

// joined 关联行及两侧对象，排除已删除的图片或标签
func joined(db *gorm.DB) *gorm.DB {
	return db.Model(&models.LabeledImage{}).
		Joins("JOIN labels ON labels.id = labeled_images.label_id AND labels.deleted_at IS NULL").
		Joins("JOIN images ON images.id = labeled_images.image_id AND images.deleted_at IS NULL").
		Preload("Image").Preload("Label")
}

// ForImage 图片的标签关联，按标签 slug 排序
func ForImage(ctx context.Context, db *gorm.DB, imageID uint) ([]*models.LabeledImage, error) {
	var rows []*models.LabeledImage
	err := joined(db.WithContext(ctx)).
		Where("labeled_images.image_id = ?", imageID).
		Order("labels.slug").Order("labeled_images.id").
		Find(&rows).Error
	return rows, err
}

// ForLabel 标签的图片关联
func ForLabel(ctx context.Context, db *gorm.DB, labelID uint) ([]*models.LabeledImage, error) {
	var rows []*models.LabeledImage
	err := joined(db.WithContext(ctx)).
		Where("labeled_images.label_id = ?", labelID).
		Order("labels.slug").Order("labeled_images.id").
		Find(&rows).Error
	return rows, err
}

// ForImage 图片的标签关联
func (r *LabeledImageRepository) ForImage(ctx context.Context, imageID uint) ([]*models.LabeledImage, error) {
	return ForImage(ctx, r.db.DB(), imageID)
}

// ForLabel 标签的图片关联
func (r *LabeledImageRepository) ForLabel(ctx context.Context, labelID uint) ([]*models.LabeledImage, error) {
	return ForLabel(ctx, r.db.DB(), labelID)
}
