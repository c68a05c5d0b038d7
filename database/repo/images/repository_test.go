package images

import (
	"context"
	"testing"
	"time"

	"github.com/anoixa/image-admin/database/dbtest"
	"github.com/anoixa/image-admin/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForceDelete(t *testing.T) {
	provider := dbtest.Provider(t)
	db := provider.DB()
	repo := NewRepository(provider)
	ctx := context.Background()

	img := dbtest.CreateImage(t, db, "a.jpg", "/m/a.jpg")
	keep := dbtest.CreateImage(t, db, "b.jpg", "/m/b.jpg")
	cats := dbtest.CreateLabel(t, db, "cats")
	dbtest.Attach(t, db, img, cats)
	dbtest.Attach(t, db, keep, cats)
	require.NoError(t, db.Delete(img).Error)

	deleted, err := repo.ForceDelete(ctx, []uint{img.ID})
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, "/m/a.jpg", deleted[0].URI)

	var count int64
	require.NoError(t, db.Unscoped().Model(&models.Image{}).Where("id = ?", img.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Unscoped().Model(&models.LabeledImage{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDeletedBefore(t *testing.T) {
	provider := dbtest.Provider(t)
	db := provider.DB()
	repo := NewRepository(provider)
	ctx := context.Background()

	old := dbtest.CreateImage(t, db, "old.jpg", "/m/old.jpg")
	recent := dbtest.CreateImage(t, db, "recent.jpg", "/m/recent.jpg")
	dbtest.CreateImage(t, db, "live.jpg", "/m/live.jpg")
	require.NoError(t, db.Model(old).UpdateColumn("deleted_at", time.Now().Add(-48*time.Hour)).Error)
	require.NoError(t, db.Delete(recent).Error)

	ids, err := repo.DeletedBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []uint{old.ID}, ids)
}

func TestLabeledImageQueries(t *testing.T) {
	provider := dbtest.Provider(t)
	db := provider.DB()
	ctx := context.Background()
	labels := NewLabelRepository(provider)
	links := NewLabeledImageRepository(provider)

	img := dbtest.CreateImage(t, db, "red_fox.jpg", "/m/fox.jpg")
	zebra := dbtest.CreateLabel(t, db, "zebra")
	ants := dbtest.CreateLabel(t, db, "ants")
	gone := dbtest.CreateLabel(t, db, "gone")
	dbtest.Attach(t, db, img, zebra)
	dbtest.Attach(t, db, img, ants)
	dbtest.Attach(t, db, img, gone)
	require.NoError(t, db.Delete(gone).Error)

	rows, err := links.ForImage(ctx, img.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ants", rows[0].Slug())
	assert.Equal(t, "zebra", rows[1].Slug())
	assert.Equal(t, "Red Fox", rows[0].Title())

	rows, err = links.ForLabel(ctx, ants.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "red_fox.jpg", rows[0].Filename())

	slugs, err := labels.ListSlugs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ants", "zebra"}, slugs)

	got, err := labels.GetLabelBySlug(ctx, "zebra")
	require.NoError(t, err)
	assert.Equal(t, zebra.ID, got.ID)

	n, err := labels.ForceDeleteWithTx(db, []uint{zebra.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	rows, err = links.ForImage(ctx, img.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
