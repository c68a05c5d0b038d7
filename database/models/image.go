package models

import (
	"fmt"
	"html"
)

// PreviewSize 后台缩略图边长
const PreviewSize = 150

type Image struct {
	Base
	Filename    string `gorm:"type:varchar(255);not null;index" json:"filename"`
	URI         string `gorm:"type:varchar(2048);not null" json:"uri"`
	Description string `gorm:"type:text" json:"description"`
	IsActive    bool   `gorm:"not null" json:"is_active"`

	LabeledImages []*LabeledImage `gorm:"foreignKey:ImageID" json:"labeled_images,omitempty"`
}

// ImageTag 渲染后台预览标签
func (i *Image) ImageTag() string {
	return fmt.Sprintf(`<img src="%s" width="%d" height="%d" />`, html.EscapeString(i.URI), PreviewSize, PreviewSize)
}
