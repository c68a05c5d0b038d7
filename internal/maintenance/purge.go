// Package maintenance 清理超过保留期的软删除数据
package maintenance

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anoixa/image-admin/cache"
	"github.com/anoixa/image-admin/database"
	"github.com/anoixa/image-admin/database/models"
	"github.com/anoixa/image-admin/database/repo/accounts"
	"github.com/anoixa/image-admin/database/repo/base"
	"github.com/anoixa/image-admin/database/repo/images"
	"github.com/anoixa/image-admin/internal/worker"
	"github.com/anoixa/image-admin/storage"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// storageConcurrency 同时删除的存储对象数
const storageConcurrency = 8

// PurgeStats 清理统计
type PurgeStats struct {
	LabeledImages int
	Images        int
	Labels        int
	Users         int
	Objects       int
	Errors        []string
}

// Purger 物理删除软删除时间早于保留期的记录
type Purger struct {
	db            database.Provider
	accounts      *accounts.Repository
	images        *images.Repository
	labels        *images.LabelRepository
	labeledImages *images.LabeledImageRepository
	storage       storage.Provider
	cache         *cache.Helper
	publicBaseURL string
}

// NewPurger 创建清理器，store 与 cacheHelper 可为空
func NewPurger(db database.Provider, store storage.Provider, cacheHelper *cache.Helper, publicBaseURL string) *Purger {
	return &Purger{
		db:            db,
		accounts:      accounts.NewRepository(db),
		images:        images.NewRepository(db),
		labels:        images.NewLabelRepository(db),
		labeledImages: images.NewLabeledImageRepository(db),
		storage:       store,
		cache:         cacheHelper,
		publicBaseURL: publicBaseURL,
	}
}

type candidates struct {
	labeledImages, images, labels, users []uint
}

func (p *Purger) collect(ctx context.Context, before time.Time) (*candidates, error) {
	c := &candidates{}
	var err error
	if c.labeledImages, err = p.labeledImages.DeletedBefore(ctx, before); err != nil {
		return nil, fmt.Errorf("failed to list labeled images: %w", err)
	}
	if c.images, err = p.images.DeletedBefore(ctx, before); err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	if c.labels, err = p.labels.DeletedBefore(ctx, before); err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	if c.users, err = p.accounts.DeletedBefore(ctx, before); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return c, nil
}

// Run 清理 olderThan 之前软删除的数据，dryRun 只统计
func (p *Purger) Run(ctx context.Context, olderThan time.Duration, dryRun bool) (*PurgeStats, error) {
	before := time.Now().Add(-olderThan)
	c, err := p.collect(ctx, before)
	if err != nil {
		return nil, err
	}

	stats := &PurgeStats{
		LabeledImages: len(c.labeledImages),
		Images:        len(c.images),
		Labels:        len(c.labels),
		Users:         len(c.users),
	}
	if dryRun {
		return stats, nil
	}

	var deleted []*models.Image
	var shared map[string]bool
	err = p.db.TransactionWithContext(ctx, func(tx *gorm.DB) error {
		if _, err := base.NewRepository[models.LabeledImage](tx).ForceDeleteByIDs(ctx, c.labeledImages); err != nil {
			return fmt.Errorf("failed to purge labeled images: %w", err)
		}
		var err error
		if deleted, err = p.images.ForceDeleteWithTx(tx, c.images); err != nil {
			return err
		}
		if shared, err = images.ReferencedURIs(tx, deleted); err != nil {
			return err
		}
		if _, err := p.labels.ForceDeleteWithTx(tx, c.labels); err != nil {
			return fmt.Errorf("failed to purge labels: %w", err)
		}
		if _, err := p.accounts.ForceDeleteWithTx(tx, c.users); err != nil {
			return fmt.Errorf("failed to purge users: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.purgeObjects(ctx, deleted, shared, stats)
	if len(c.labels) > 0 && p.cache != nil {
		_ = p.cache.DeleteCachedFilterChoices(ctx, "image", "labels__slug")
	}
	return stats, nil
}

// purgeObjects 并发删除存储对象与缩略图缓存，单个失败只记录
func (p *Purger) purgeObjects(ctx context.Context, deleted []*models.Image, shared map[string]bool, stats *PurgeStats) {
	results := make([]worker.PurgeResult, len(deleted))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(storageConcurrency)
	for i, img := range deleted {
		task := &worker.ImagePurgeTask{
			ImageID:       img.ID,
			URI:           img.URI,
			PublicBaseURL: p.publicBaseURL,
			Storage:       p.storage,
			Cache:         p.cache,
			KeepObject:    shared[img.URI],
		}
		g.Go(func() error {
			results[i] = task.Run(gctx)
			return nil
		})
	}
	_ = g.Wait()

	for i, res := range results {
		if res.Err != nil {
			msg := fmt.Sprintf("image %d (%s): %v", deleted[i].ID, res.Key, res.Err)
			stats.Errors = append(stats.Errors, msg)
			log.Printf("[Purge] %s", msg)
			continue
		}
		if res.ObjectDeleted {
			stats.Objects++
		}
	}
}
