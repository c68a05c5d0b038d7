// Package preview 为后台生成图片缩略图
package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"runtime"
	"strconv"

	"github.com/anoixa/image-admin/cache"
	"github.com/anoixa/image-admin/database/repo/images"
	"github.com/anoixa/image-admin/storage"
	"github.com/anoixa/image-admin/utils"
	"github.com/anoixa/image-admin/utils/validator"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrExternal 图片不在本服务的存储中
	ErrExternal = errors.New("image is not stored by this service")
	// ErrUnsupported 无法解码的格式
	ErrUnsupported = errors.New("unsupported image format")
)

// ContentType 缩略图统一编码为 PNG
const ContentType = "image/png"

// Service 缩略图服务
type Service struct {
	images        *images.Repository
	storage       storage.Provider
	cache         *cache.Helper
	publicBaseURL string
	size          int

	// 解码占用内存较多，限制并发
	sem   *semaphore.Weighted
	group singleflight.Group
}

// NewService 创建缩略图服务，cacheHelper 可为空
func NewService(repo *images.Repository, store storage.Provider, cacheHelper *cache.Helper, publicBaseURL string, size int) *Service {
	if size <= 0 {
		size = 150
	}
	return &Service{
		images:        repo,
		storage:       store,
		cache:         cacheHelper,
		publicBaseURL: publicBaseURL,
		size:          size,
		sem:           semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
}

// Thumbnail 返回图片的 PNG 缩略图，图片不存在时返回 gorm.ErrRecordNotFound
func (s *Service) Thumbnail(ctx context.Context, imageID uint) ([]byte, error) {
	if s.cache != nil {
		if data, err := s.cache.GetCachedPreview(ctx, imageID); err == nil {
			return data, nil
		}
	}

	v, err, _ := s.group.Do(strconv.FormatUint(uint64(imageID), 10), func() (interface{}, error) {
		return s.generate(ctx, imageID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (s *Service) generate(ctx context.Context, imageID uint) ([]byte, error) {
	img, err := s.images.GetImageByID(ctx, imageID)
	if err != nil {
		return nil, err
	}
	key, managed := storage.KeyFromURI(img.URI, s.publicBaseURL)
	if !managed {
		return nil, ErrExternal
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	file, err := s.storage.GetWithContext(ctx, key)
	if err != nil {
		return nil, err
	}
	if closer, ok := file.(io.Closer); ok {
		defer closer.Close()
	}

	data, err := Render(file, s.size)
	if err != nil {
		return nil, fmt.Errorf("image %d: %w", imageID, err)
	}

	if s.cache != nil {
		if err := s.cache.CachePreview(ctx, imageID, data); err != nil {
			utils.LogIfDevf("[Preview] failed to cache preview for image %d: %v", imageID, err)
		}
	}
	return data, nil
}

// Render 将图片等比缩放到 size 以内并编码为 PNG，小图不放大
func Render(r io.ReadSeeker, size int) ([]byte, error) {
	if ok, _, err := validator.IsImage(r); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrUnsupported
	}

	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	w, h := fit(src.Bounds().Dx(), src.Bounds().Dy(), size)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fit(w, h, size int) (int, int) {
	if w <= size && h <= size {
		return w, h
	}
	if w >= h {
		nh := h * size / w
		if nh < 1 {
			nh = 1
		}
		return size, nh
	}
	nw := w * size / h
	if nw < 1 {
		nw = 1
	}
	return nw, size
}
