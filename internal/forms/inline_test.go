package forms

import (
	"context"
	"testing"

	"github.com/anoixa/image-admin/database/dbtest"
	"github.com/anoixa/image-admin/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slugsOf(t *testing.T, fs *LabeledImageFormset, imageID uint) []string {
	t.Helper()
	var rows []models.LabeledImage
	require.NoError(t, fs.db.Preload("Label").Where("image_id = ?", imageID).Find(&rows).Error)
	var out []string
	for _, r := range rows {
		out = append(out, r.Slug())
	}
	return out
}

func TestImageLabelsFormset(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	img := dbtest.CreateImage(t, db, "fox.jpg", "/m/fox.jpg")
	cats := dbtest.CreateLabel(t, db, "cats")
	dogs := dbtest.CreateLabel(t, db, "dogs")
	foxes := dbtest.CreateLabel(t, db, "foxes")
	existing := dbtest.Attach(t, db, img, cats)

	t.Run("duplicate of existing row", func(t *testing.T) {
		fs := NewImageLabelsFormset(db, "labels", img.ID)
		err := fs.Bind(ctx, []interface{}{map[string]interface{}{"label_id": float64(cats.ID)}})
		assert.Equal(t, []string{CodeDuplicate}, errorCodes(t, err, "labels-0-label_id"))
	})

	t.Run("duplicate between new rows", func(t *testing.T) {
		fs := NewImageLabelsFormset(db, "labels", img.ID)
		err := fs.Bind(ctx, []interface{}{
			map[string]interface{}{"label_id": float64(dogs.ID)},
			map[string]interface{}{"label_id": float64(dogs.ID)},
		})
		assert.Equal(t, []string{CodeDuplicate}, errorCodes(t, err, "labels-1-label_id"))
	})

	t.Run("unknown label and missing label", func(t *testing.T) {
		fs := NewImageLabelsFormset(db, "labels", img.ID)
		err := fs.Bind(ctx, []interface{}{
			map[string]interface{}{"label_id": float64(999)},
		})
		assert.Equal(t, []string{CodeInvalidChoice}, errorCodes(t, err, "labels-0-label_id"))

		fs = NewImageLabelsFormset(db, "labels", img.ID)
		err = fs.Bind(ctx, []interface{}{map[string]interface{}{}})
		assert.Equal(t, []string{CodeRequired}, errorCodes(t, err, "labels-0-label_id"))
	})

	t.Run("row of another parent rejected", func(t *testing.T) {
		other := dbtest.CreateImage(t, db, "owl.jpg", "/m/owl.jpg")
		foreign := dbtest.Attach(t, db, other, cats)
		fs := NewImageLabelsFormset(db, "labels", img.ID)
		err := fs.Bind(ctx, []interface{}{map[string]interface{}{"id": float64(foreign.ID), "delete": true}})
		assert.Equal(t, []string{CodeInvalidChoice}, errorCodes(t, err, "labels-0-id"))
	})

	t.Run("delete swap and add", func(t *testing.T) {
		fs := NewImageLabelsFormset(db, "labels", img.ID)
		require.NoError(t, fs.Bind(ctx, []interface{}{
			map[string]interface{}{"id": float64(existing.ID), "delete": true},
			map[string]interface{}{"label_id": float64(cats.ID)},
			map[string]interface{}{"label_id": float64(foxes.ID)},
		}))
		require.NoError(t, fs.Save(ctx))
		assert.ElementsMatch(t, []string{"cats", "foxes"}, slugsOf(t, fs, img.ID))

		var count int64
		db.Unscoped().Model(&models.LabeledImage{}).Where("id = ?", existing.ID).Count(&count)
		assert.Zero(t, count, "inline deletes are physical")
	})
}

func TestLabelImagesFormset(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	label := dbtest.CreateLabel(t, db, "cats")
	a := dbtest.CreateImage(t, db, "a.jpg", "/m/a.jpg")
	b := dbtest.CreateImage(t, db, "b.jpg", "/m/b.jpg")
	row := dbtest.Attach(t, db, a, label)

	fs := NewLabelImagesFormset(db, "images", label.ID)
	require.NoError(t, fs.Bind(ctx, []interface{}{
		map[string]interface{}{"id": float64(row.ID), "image_id": float64(b.ID)},
	}))
	require.NoError(t, fs.Save(ctx))

	var stored models.LabeledImage
	require.NoError(t, db.First(&stored, row.ID).Error)
	assert.Equal(t, b.ID, stored.ImageID)
}
