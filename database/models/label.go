package models

import (
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// IsValidSlug 检查 slug 格式
func IsValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

type Label struct {
	Base
	Slug string `gorm:"type:varchar(50);uniqueIndex;not null" json:"slug"`

	LabeledImages []*LabeledImage `gorm:"foreignKey:LabelID" json:"labeled_images,omitempty"`
}

// LabeledImage 图片与标签的关联
type LabeledImage struct {
	Base
	ImageID uint   `gorm:"not null;uniqueIndex:idx_labeled_image_pair,priority:1" json:"image_id"`
	LabelID uint   `gorm:"not null;uniqueIndex:idx_labeled_image_pair,priority:2;index" json:"label_id"`
	Image   *Image `gorm:"foreignKey:ImageID" json:"image,omitempty"`
	Label   *Label `gorm:"foreignKey:LabelID" json:"label,omitempty"`
}

// Filename 关联图片的文件名
func (li *LabeledImage) Filename() string {
	if li.Image == nil {
		return ""
	}
	return li.Image.Filename
}

// Slug 关联标签的 slug
func (li *LabeledImage) Slug() string {
	if li.Label == nil {
		return ""
	}
	return li.Label.Slug
}

// Title 由文件名推导的展示标题，例如 "red_fox-01.jpg" -> "Red Fox 01"
func (li *LabeledImage) Title() string {
	return TitleFromFilename(li.Filename())
}

// ImageTag 关联图片的预览标签
func (li *LabeledImage) ImageTag() string {
	if li.Image == nil {
		return ""
	}
	return li.Image.ImageTag()
}

// TitleFromFilename 去掉扩展名，分隔符转空格并首字母大写
func TitleFromFilename(filename string) string {
	base := strings.TrimSuffix(filename, path.Ext(filename))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	return cases.Title(language.English).String(base)
}
