package forms

import (
	"context"
	"fmt"

	"github.com/anoixa/image-admin/database/models"
	"github.com/anoixa/image-admin/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ImageInput 图片表单字段
type ImageInput struct {
	Filename    string `form:"filename" validate:"required,max=255"`
	URI         string `form:"uri" validate:"required,max=2048"`
	Description string `form:"description"`
	IsActive    *bool  `form:"is_active"`
}

// ImageForm 新建或编辑图片
type ImageForm struct {
	db       *gorm.DB
	instance *models.Image
	Input    ImageInput
}

// NewImageForm instance 为 nil 时为新建
func NewImageForm(db *gorm.DB, instance *models.Image) *ImageForm {
	f := &ImageForm{db: db, instance: instance}
	if instance != nil {
		active := instance.IsActive
		f.Input = ImageInput{
			Filename:    instance.Filename,
			URI:         instance.URI,
			Description: instance.Description,
			IsActive:    &active,
		}
	}
	return f
}

// Bind 解码并校验，描述去除 HTML
func (f *ImageForm) Bind(_ context.Context, data map[string]interface{}) error {
	if err := Decode(data, &f.Input); err != nil {
		return err
	}
	f.Input.Description = utils.StripHTML(f.Input.Description)
	return Validate(&f.Input).Err()
}

// Save 写入图片
func (f *ImageForm) Save(ctx context.Context, commit bool) (*models.Image, error) {
	img := f.instance
	if img == nil {
		img = &models.Image{}
	}
	img.Filename = f.Input.Filename
	img.URI = f.Input.URI
	img.Description = f.Input.Description
	img.IsActive = boolOr(f.Input.IsActive, true)

	if !commit {
		return img, nil
	}
	if err := f.db.WithContext(ctx).Omit(clause.Associations).Save(img).Error; err != nil {
		return nil, fmt.Errorf("failed to save image: %w", err)
	}
	return img, nil
}

// LabelInput 标签表单字段
type LabelInput struct {
	Slug string `form:"slug" validate:"required,max=50,slug"`
}

// LabelForm 新建或编辑标签
type LabelForm struct {
	db       *gorm.DB
	instance *models.Label
	Input    LabelInput
}

// NewLabelForm instance 为 nil 时为新建
func NewLabelForm(db *gorm.DB, instance *models.Label) *LabelForm {
	f := &LabelForm{db: db, instance: instance}
	if instance != nil {
		f.Input.Slug = instance.Slug
	}
	return f
}

// Bind 解码并校验，slug 全局唯一
func (f *LabelForm) Bind(ctx context.Context, data map[string]interface{}) error {
	if err := Decode(data, &f.Input); err != nil {
		return err
	}
	errs := Validate(&f.Input)
	if errs.Has("slug") {
		return errs.Err()
	}

	var count int64
	q := f.db.WithContext(ctx).Unscoped().Model(&models.Label{}).Where("slug = ?", f.Input.Slug)
	if f.instance != nil {
		q = q.Where("id <> ?", f.instance.ID)
	}
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check slug uniqueness: %w", err)
	}
	if count > 0 {
		errs.Add("slug", CodeUnique, "Label with this Slug already exists.",
			map[string]interface{}{"Model": "Label", "Field": "Slug"})
	}
	return errs.Err()
}

// Save 写入标签
func (f *LabelForm) Save(ctx context.Context, commit bool) (*models.Label, error) {
	label := f.instance
	if label == nil {
		label = &models.Label{}
	}
	label.Slug = f.Input.Slug

	if !commit {
		return label, nil
	}
	if err := f.db.WithContext(ctx).Omit(clause.Associations).Save(label).Error; err != nil {
		return nil, fmt.Errorf("failed to save label: %w", err)
	}
	return label, nil
}
