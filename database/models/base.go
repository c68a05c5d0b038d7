package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
	"gorm.io/gorm"
)

// Base 所有后台模型共用的字段
type Base struct {
	ID         uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID       string         `gorm:"type:varchar(36);uniqueIndex;not null" json:"uuid"`
	CreatedAt  time.Time      `json:"created_at"`
	ModifiedAt time.Time      `gorm:"autoUpdateTime" json:"modified_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// BeforeCreate 分配随机 UUID
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.UUID == "" {
		b.UUID = uuid.NewString()
	}
	return nil
}

// ShortUUID 返回 base57 编码的短 UUID，UUID 非法时返回空串
func (b *Base) ShortUUID() string {
	u, err := uuid.Parse(b.UUID)
	if err != nil {
		return ""
	}
	return shortuuid.DefaultEncoder.Encode(u)
}

// IsDeleted 是否已软删除
func (b *Base) IsDeleted() bool {
	return b.DeletedAt.Valid
}
