package forms

import (
	"context"
	"testing"

	"github.com/anoixa/image-admin/database/dbtest"
	"github.com/anoixa/image-admin/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageForm_CreateAndUpdate(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	form := NewImageForm(db, nil)
	err := form.Bind(ctx, map[string]interface{}{"uri": "/m/a.jpg"})
	assert.Equal(t, []string{CodeRequired}, errorCodes(t, err, "filename"))

	form = NewImageForm(db, nil)
	require.NoError(t, form.Bind(ctx, map[string]interface{}{
		"filename":    "fox.jpg",
		"uri":         "/m/fox.jpg",
		"description": "<script>x()</script>A <b>red</b> fox",
	}))
	img, err := form.Save(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, "A red fox", img.Description)
	assert.True(t, img.IsActive)

	edit := NewImageForm(db, img)
	require.NoError(t, edit.Bind(ctx, map[string]interface{}{"is_active": false}))
	_, err = edit.Save(ctx, true)
	require.NoError(t, err)

	var stored models.Image
	require.NoError(t, db.First(&stored, img.ID).Error)
	assert.False(t, stored.IsActive)
	assert.Equal(t, "fox.jpg", stored.Filename, "missing keys keep their value")
}

func TestImageForm_MaxLength(t *testing.T) {
	db := dbtest.Open(t)
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	form := NewImageForm(db, nil)
	err := form.Bind(context.Background(), map[string]interface{}{"filename": string(long), "uri": "/x"})
	assert.Equal(t, []string{CodeMaxLength}, errorCodes(t, err, "filename"))
}

func TestLabelForm(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	existing := dbtest.CreateLabel(t, db, "cats")

	tests := []struct {
		name  string
		slug  interface{}
		codes []string
	}{
		{"required", "", []string{CodeRequired}},
		{"bad format", "Big Cats", []string{CodeInvalidSlug}},
		{"duplicate", "cats", []string{CodeUnique}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := NewLabelForm(db, nil)
			err := form.Bind(ctx, map[string]interface{}{"slug": tt.slug})
			assert.Equal(t, tt.codes, errorCodes(t, err, "slug"))
		})
	}

	// 编辑自身时不视为重复
	form := NewLabelForm(db, existing)
	require.NoError(t, form.Bind(ctx, map[string]interface{}{"slug": "cats"}))

	form = NewLabelForm(db, nil)
	require.NoError(t, form.Bind(ctx, map[string]interface{}{"slug": "dogs"}))
	label, err := form.Save(ctx, true)
	require.NoError(t, err)
	assert.NotZero(t, label.ID)
}

func TestDecode_TypeErrors(t *testing.T) {
	var in ImageInput
	err := Decode(map[string]interface{}{"is_active": []interface{}{1}}, &in)
	fe, ok := AsErrors(err)
	require.True(t, ok)
	assert.True(t, fe.Has(NonFieldErrors))
}

func TestErrors_MergeAndMessage(t *testing.T) {
	errs := Errors{}
	assert.NoError(t, errs.Err())

	inner := Errors{}
	inner.Add("slug", CodeRequired, "This field is required.", nil)
	errs.Merge("labels-0", inner)
	errs.Add(NonFieldErrors, CodeInvalid, "bad", nil)

	assert.True(t, errs.Has("labels-0-slug"))
	assert.Equal(t, "validation failed: __all__: bad; labels-0-slug: This field is required.", errs.Error())
}
