package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/studio-b12/gowebdav"
)

// WebDAVConfig WebDAV 配置结构
type WebDAVConfig struct {
	URL      string
	Username string
	Password string
	RootPath string
}

// WebDAVStorage WebDAV 存储实现
type WebDAVStorage struct {
	client   *gowebdav.Client
	baseURL  string
	rootPath string
}

// normalizeRoot 统一为 "/a/b" 或空
func normalizeRoot(rootPath string) string {
	rootPath = strings.Trim(rootPath, "/")
	if rootPath == "" {
		return ""
	}
	return "/" + rootPath
}

// NewWebDAVStorage 创建 WebDAV 存储提供者
func NewWebDAVStorage(cfg WebDAVConfig) (*WebDAVStorage, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webdav URL is required")
	}

	s := &WebDAVStorage{
		client:   gowebdav.NewClient(cfg.URL, cfg.Username, cfg.Password),
		rootPath: normalizeRoot(cfg.RootPath),
		baseURL:  strings.TrimRight(cfg.URL, "/"),
	}

	ctx, cancel := contextWithDefaultTimeout()
	defer cancel()
	if err := s.Health(ctx); err != nil {
		return nil, fmt.Errorf("webdav connection test failed: %w", err)
	}
	return s, nil
}

// fullPath 生成完整的 WebDAV 路径
func (s *WebDAVStorage) fullPath(key string) string {
	key = strings.TrimLeft(key, "/")
	if s.rootPath != "" {
		return s.rootPath + "/" + key
	}
	return "/" + key
}

// run 在 goroutine 中执行阻塞调用，ctx 取消时提前返回
func run(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// ensureParentDir 递归创建父目录
func (s *WebDAVStorage) ensureParentDir(ctx context.Context, fullPath string) error {
	parentDir := path.Dir(fullPath)
	if parentDir == "/" || parentDir == "." {
		return nil
	}
	return run(ctx, func() error {
		return s.client.MkdirAll(parentDir, os.FileMode(0755))
	})
}

// SaveWithContext 保存文件到 WebDAV
func (s *WebDAVStorage) SaveWithContext(ctx context.Context, key string, file io.Reader) error {
	fullPath := s.fullPath(key)
	if err := s.ensureParentDir(ctx, fullPath); err != nil {
		return fmt.Errorf("failed to ensure parent directory for %s: %w", key, err)
	}

	err := run(ctx, func() error {
		return s.client.WriteStream(fullPath, file, 0644)
	})
	if err != nil {
		return fmt.Errorf("failed to write file %s: %w", key, err)
	}
	return nil
}

// GetWithContext 从 WebDAV 获取文件
func (s *WebDAVStorage) GetWithContext(ctx context.Context, key string) (io.ReadSeeker, error) {
	var data []byte
	err := run(ctx, func() error {
		var err error
		data, err = s.client.Read(s.fullPath(key))
		return err
	})
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to read file %s: %w", key, err)
	}
	return bytes.NewReader(data), nil
}

// DeleteWithContext 从 WebDAV 删除文件
func (s *WebDAVStorage) DeleteWithContext(ctx context.Context, key string) error {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return run(ctx, func() error {
		return s.client.Remove(s.fullPath(key))
	})
}

// Exists 检查文件是否存在
func (s *WebDAVStorage) Exists(ctx context.Context, key string) (bool, error) {
	exists := false
	err := run(ctx, func() error {
		_, err := s.client.Stat(s.fullPath(key))
		if err == nil {
			exists = true
			return nil
		}
		if gowebdav.IsErrNotFound(err) {
			return nil
		}
		return err
	})
	return exists, err
}

// Health 检查存储健康状态
func (s *WebDAVStorage) Health(ctx context.Context) error {
	return run(ctx, func() error {
		_, err := s.client.ReadDir(s.rootPath + "/")
		return err
	})
}

// Name 返回存储名称
func (s *WebDAVStorage) Name() string {
	if s.baseURL == "" {
		return "webdav"
	}
	return fmt.Sprintf("webdav:%s%s", s.baseURL, s.rootPath)
}
