package models_test

import (
	"strings"
	"testing"

	"github.com/anoixa/image-admin/database/dbtest"
	"github.com/anoixa/image-admin/database/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase_UUIDAndShortUUID(t *testing.T) {
	db := dbtest.Open(t)
	img := dbtest.CreateImage(t, db, "fox.jpg", "/media/fox.jpg")

	_, err := uuid.Parse(img.UUID)
	require.NoError(t, err)

	short := img.ShortUUID()
	assert.NotEmpty(t, short)
	assert.LessOrEqual(t, len(short), 22)
	assert.Equal(t, short, img.ShortUUID(), "short uuid must be stable")

	other := dbtest.CreateImage(t, db, "owl.jpg", "/media/owl.jpg")
	assert.NotEqual(t, short, other.ShortUUID())

	assert.Empty(t, (&models.Base{UUID: "not-a-uuid"}).ShortUUID())
}

func TestBase_Timestamps(t *testing.T) {
	db := dbtest.Open(t)
	label := dbtest.CreateLabel(t, db, "cats")

	assert.False(t, label.CreatedAt.IsZero())
	assert.False(t, label.ModifiedAt.IsZero())
	assert.False(t, label.IsDeleted())
}

func TestSoftDelete_ExcludedFromDefaultQueries(t *testing.T) {
	db := dbtest.Open(t)
	img := dbtest.CreateImage(t, db, "fox.jpg", "/media/fox.jpg")

	require.NoError(t, db.Delete(&models.Image{}, img.ID).Error)

	var count int64
	require.NoError(t, db.Model(&models.Image{}).Count(&count).Error)
	assert.Zero(t, count)

	require.NoError(t, db.Unscoped().Model(&models.Image{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var deleted models.Image
	require.NoError(t, db.Unscoped().First(&deleted, img.ID).Error)
	assert.True(t, deleted.IsDeleted())
}

func TestImage_ImageTag(t *testing.T) {
	img := &models.Image{URI: `https://cdn.example.com/a.jpg?x=1&y="2"`}
	assert.Equal(t,
		`<img src="https://cdn.example.com/a.jpg?x=1&amp;y=&#34;2&#34;" width="150" height="150" />`,
		img.ImageTag())
}

func TestLabeledImage_DerivedAttributes(t *testing.T) {
	li := &models.LabeledImage{
		Image: &models.Image{Filename: "red_fox-in-snow.jpeg", URI: "/m/fox.jpeg"},
		Label: &models.Label{Slug: "foxes"},
	}
	assert.Equal(t, "red_fox-in-snow.jpeg", li.Filename())
	assert.Equal(t, "foxes", li.Slug())
	assert.Equal(t, "Red Fox In Snow", li.Title())
	assert.True(t, strings.HasPrefix(li.ImageTag(), `<img src="/m/fox.jpeg"`))

	empty := &models.LabeledImage{}
	assert.Empty(t, empty.Filename())
	assert.Empty(t, empty.Slug())
	assert.Empty(t, empty.Title())
	assert.Empty(t, empty.ImageTag())
}

func TestTitleFromFilename(t *testing.T) {
	tests := map[string]string{
		"cat.png":             "Cat",
		"UPPER_case.gif":      "Upper Case",
		"my__holiday--01.JPG": "My Holiday 01",
		"noext":               "Noext",
		"":                    "",
	}
	for in, want := range tests {
		assert.Equal(t, want, models.TitleFromFilename(in), in)
	}
}

func TestIsValidSlug(t *testing.T) {
	assert.True(t, models.IsValidSlug("cats"))
	assert.True(t, models.IsValidSlug("big_cats-2"))
	assert.False(t, models.IsValidSlug("Cats"))
	assert.False(t, models.IsValidSlug("with space"))
	assert.False(t, models.IsValidSlug(""))
}

func TestUser_Passwords(t *testing.T) {
	dbtest.Open(t)
	u := &models.User{Email: "a@example.com"}

	assert.False(t, u.HasUsablePassword())
	assert.False(t, u.CheckPassword(""))

	require.NoError(t, u.SetPassword("Xk9#mQ2$vL7!"))
	assert.True(t, u.HasUsablePassword())
	assert.True(t, u.CheckPassword("Xk9#mQ2$vL7!"))
	assert.False(t, u.CheckPassword("wrong"))

	require.NoError(t, u.SetUnusablePassword())
	assert.True(t, strings.HasPrefix(u.Password, models.UnusablePasswordPrefix))
	assert.False(t, u.HasUsablePassword())
	assert.False(t, u.CheckPassword("Xk9#mQ2$vL7!"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "Bob@example.com", models.NormalizeEmail("  Bob@EXAMPLE.com "))
	assert.Equal(t, "plain", models.NormalizeEmail("plain"))
}

func TestDefaultPermissions(t *testing.T) {
	perms := models.DefaultPermissions("image", "image")
	require.Len(t, perms, 4)
	assert.Equal(t, "add_image", perms[0].Codename)
	assert.Equal(t, "Can view image", perms[3].Name)
}
