package forms

import (
	"context"
	"fmt"
	"strconv"

	"github.com/anoixa/image-admin/database/models"
	"gorm.io/gorm"
)

// InlineRowInput 内联表格的一行
type InlineRowInput struct {
	ID      uint `form:"id"`
	ImageID uint `form:"image_id"`
	LabelID uint `form:"label_id"`
	Delete  bool `form:"delete"`
}

// LabeledImageFormset 以图片或标签为父对象编辑关联行
type LabeledImageFormset struct {
	db     *gorm.DB
	prefix string
	// fromImage 为 true 时父对象是图片，行内选择标签
	fromImage bool
	parentID  uint

	rows []InlineRowInput
}

// NewImageLabelsFormset 图片页面的标签内联
func NewImageLabelsFormset(db *gorm.DB, prefix string, imageID uint) *LabeledImageFormset {
	return &LabeledImageFormset{db: db, prefix: prefix, fromImage: true, parentID: imageID}
}

// NewLabelImagesFormset 标签页面的图片内联
func NewLabelImagesFormset(db *gorm.DB, prefix string, labelID uint) *LabeledImageFormset {
	return &LabeledImageFormset{db: db, prefix: prefix, fromImage: false, parentID: labelID}
}

func (fs *LabeledImageFormset) otherField() string {
	if fs.fromImage {
		return "label_id"
	}
	return "image_id"
}

func (fs *LabeledImageFormset) other(row InlineRowInput) uint {
	if fs.fromImage {
		return row.LabelID
	}
	return row.ImageID
}

func (fs *LabeledImageFormset) key(i int, field string) string {
	return fs.prefix + "-" + strconv.Itoa(i) + "-" + field
}

func (fs *LabeledImageFormset) parentColumn() string {
	if fs.fromImage {
		return "image_id"
	}
	return "label_id"
}

// Bind 解码并校验全部行；结果集合中同一对象只能出现一次
func (fs *LabeledImageFormset) Bind(ctx context.Context, raw []interface{}) error {
	errs := Errors{}
	fs.rows = make([]InlineRowInput, len(raw))
	for i, item := range raw {
		data, ok := item.(map[string]interface{})
		if !ok {
			errs.Add(fs.key(i, NonFieldErrors), CodeInvalid, "Enter a valid value.", nil)
			continue
		}
		if err := Decode(data, &fs.rows[i]); err != nil {
			if fe, ok := AsErrors(err); ok {
				errs.Merge(fs.prefix+"-"+strconv.Itoa(i), fe)
				continue
			}
			return err
		}
	}
	if len(errs) > 0 {
		return errs
	}

	var existing []models.LabeledImage
	if err := fs.db.WithContext(ctx).Where(fs.parentColumn()+" = ?", fs.parentID).Find(&existing).Error; err != nil {
		return fmt.Errorf("failed to load inline rows: %w", err)
	}
	current := make(map[uint]uint, len(existing))
	for _, li := range existing {
		if fs.fromImage {
			current[li.ID] = li.LabelID
		} else {
			current[li.ID] = li.ImageID
		}
	}

	var wanted []uint
	for i, row := range fs.rows {
		if row.ID != 0 {
			if _, ok := current[row.ID]; !ok {
				errs.Add(fs.key(i, "id"), CodeInvalidChoice,
					fmt.Sprintf("Select a valid choice. %d is not one of the available choices.", row.ID),
					map[string]interface{}{"Value": row.ID})
				continue
			}
			if row.Delete {
				delete(current, row.ID)
				continue
			}
		} else if row.Delete {
			continue
		}
		if fs.other(row) == 0 {
			errs.Add(fs.key(i, fs.otherField()), CodeRequired, "This field is required.", nil)
			continue
		}
		wanted = append(wanted, fs.other(row))
		if row.ID != 0 {
			current[row.ID] = fs.other(row)
		}
	}
	if len(errs) > 0 {
		return errs
	}

	if err := fs.checkTargets(ctx, wanted, errs); err != nil {
		return err
	}

	// 修改后的集合不得重复
	seen := map[uint]bool{}
	for _, v := range current {
		seen[v] = true
	}
	newSeen := map[uint]bool{}
	for i, row := range fs.rows {
		if row.ID != 0 || row.Delete {
			continue
		}
		v := fs.other(row)
		if seen[v] || newSeen[v] {
			errs.Add(fs.key(i, fs.otherField()), CodeDuplicate,
				fmt.Sprintf("Please correct the duplicate data for %s.", fs.otherField()),
				map[string]interface{}{"Field": fs.otherField()})
		}
		newSeen[v] = true
	}
	if dup := duplicatedValues(current); len(dup) > 0 {
		errs.Add(fs.prefix+"-"+NonFieldErrors, CodeDuplicate,
			fmt.Sprintf("Please correct the duplicate data for %s.", fs.otherField()),
			map[string]interface{}{"Field": fs.otherField()})
	}
	return errs.Err()
}

// checkTargets 关联对象必须存在且未删除
func (fs *LabeledImageFormset) checkTargets(ctx context.Context, ids []uint, errs Errors) error {
	if len(ids) == 0 {
		return nil
	}
	var found []uint
	var model interface{} = &models.Label{}
	if !fs.fromImage {
		model = &models.Image{}
	}
	if err := fs.db.WithContext(ctx).Model(model).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return fmt.Errorf("failed to check inline targets: %w", err)
	}
	ok := make(map[uint]bool, len(found))
	for _, id := range found {
		ok[id] = true
	}
	for i, row := range fs.rows {
		if row.Delete {
			continue
		}
		if v := fs.other(row); v != 0 && !ok[v] {
			errs.Add(fs.key(i, fs.otherField()), CodeInvalidChoice,
				fmt.Sprintf("Select a valid choice. %d is not one of the available choices.", v),
				map[string]interface{}{"Value": v})
		}
	}
	return nil
}

func duplicatedValues(m map[uint]uint) []uint {
	seen := map[uint]bool{}
	var dup []uint
	for _, v := range m {
		if seen[v] {
			dup = append(dup, v)
		}
		seen[v] = true
	}
	return dup
}

// Save 依次应用删除、修改与新增；关联行直接物理删除，避免唯一索引冲突
func (fs *LabeledImageFormset) Save(ctx context.Context) error {
	db := fs.db.WithContext(ctx)
	for _, row := range fs.rows {
		if row.ID == 0 || !row.Delete {
			continue
		}
		if err := db.Unscoped().Where(fs.parentColumn()+" = ?", fs.parentID).
			Delete(&models.LabeledImage{}, row.ID).Error; err != nil {
			return fmt.Errorf("failed to delete inline row: %w", err)
		}
	}
	for _, row := range fs.rows {
		if row.ID == 0 || row.Delete {
			continue
		}
		if err := db.Model(&models.LabeledImage{}).
			Where("id = ? AND "+fs.parentColumn()+" = ?", row.ID, fs.parentID).
			Update(fs.otherField(), fs.other(row)).Error; err != nil {
			return fmt.Errorf("failed to update inline row: %w", err)
		}
	}
	for _, row := range fs.rows {
		if row.ID != 0 || row.Delete {
			continue
		}
		li := &models.LabeledImage{}
		if fs.fromImage {
			li.ImageID, li.LabelID = fs.parentID, row.LabelID
		} else {
			li.ImageID, li.LabelID = row.ImageID, fs.parentID
		}
		if err := db.Create(li).Error; err != nil {
			return fmt.Errorf("failed to create inline row: %w", err)
		}
	}
	return nil
}
