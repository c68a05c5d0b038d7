package worker

import (
	"context"
	"errors"
	"time"

	"github.com/anoixa/image-admin/cache"
	"github.com/anoixa/image-admin/storage"
	"github.com/anoixa/image-admin/utils"
)

// ImagePurgeTask 强制删除图片后清理存储对象与缩略图缓存
type ImagePurgeTask struct {
	ImageID       uint
	URI           string
	PublicBaseURL string
	Storage       storage.Provider
	Cache         *cache.Helper
	// KeepObject 存储对象仍被其他图片引用，只清理缓存
	KeepObject bool
}

// PurgeResult 清理结果
type PurgeResult struct {
	Key            string
	ObjectDeleted  bool
	PreviewDeleted bool
	Err            error
}

// Execute 执行任务
func (t *ImagePurgeTask) Execute() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	res := t.Run(ctx)
	if res.Err != nil {
		utils.LogIfDevf("[PurgeTask] image %d (%s): %v", t.ImageID, utils.SanitizeLogMessage(t.URI), res.Err)
		return
	}
	utils.LogIfDevf("[PurgeTask] image %d purged, object_deleted=%v", t.ImageID, res.ObjectDeleted)
}

// Run 同步执行清理，外部地址只清理缓存
func (t *ImagePurgeTask) Run(ctx context.Context) PurgeResult {
	var res PurgeResult

	if t.Cache != nil {
		if err := t.Cache.DeleteCachedPreview(ctx, t.ImageID); err == nil {
			res.PreviewDeleted = true
		}
	}

	key, managed := storage.KeyFromURI(t.URI, t.PublicBaseURL)
	if !managed || t.Storage == nil || t.KeepObject {
		return res
	}
	res.Key = key

	if err := t.Storage.DeleteWithContext(ctx, key); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			res.Err = err
		}
		return res
	}
	res.ObjectDeleted = true
	return res
}
