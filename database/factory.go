package database

import (
	"context"
	"fmt"
	"log"

	"github.com/anoixa/image-admin/config"
	"github.com/anoixa/image-admin/database/models"
)

// Factory 数据库工厂 - 负责创建和管理数据库提供者
type Factory struct {
	provider Provider
}

// NewFactory 创建新的数据库工厂
func NewFactory(cfg *config.Config) (*Factory, error) {
	log.Println("[Database] Initializing database provider...")

	provider, err := NewGormProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database provider: %w", err)
	}

	log.Printf("[Database] Provider '%s' initialized successfully", provider.Name())

	return &Factory{provider: provider}, nil
}

// NewFactoryWithProvider 使用现有提供者创建工厂
func NewFactoryWithProvider(provider Provider) *Factory {
	return &Factory{provider: provider}
}

// GetProvider 获取数据库提供者
func (f *Factory) GetProvider() Provider {
	return f.provider
}

// Close 关闭数据库连接
func (f *Factory) Close() error {
	if f.provider != nil {
		return f.provider.Close()
	}
	return nil
}

// Models 需要迁移的全部模型
func Models() []interface{} {
	return []interface{}{
		&models.Permission{},
		&models.Group{},
		&models.User{},
		&models.Image{},
		&models.Label{},
		&models.LabeledImage{},
	}
}

// AutoMigrate 自动迁移数据库结构
func (f *Factory) AutoMigrate() error {
	if f.provider == nil {
		return fmt.Errorf("database provider not initialized")
	}

	log.Println("[Database] Running auto migration...")
	if err := f.provider.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to auto migrate database: %w", err)
	}
	log.Println("[Database] Auto migration completed.")
	return nil
}

// TransactionWithContext 带上下文的事务执行
func (f *Factory) TransactionWithContext(ctx context.Context, fn TxFunc) error {
	if f.provider == nil {
		return fmt.Errorf("database provider not initialized")
	}
	return f.provider.TransactionWithContext(ctx, fn)
}

// Ping 检查数据库连接
func (f *Factory) Ping() error {
	if f.provider == nil {
		return fmt.Errorf("database provider not initialized")
	}
	return f.provider.Ping()
}
