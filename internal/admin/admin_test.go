package admin_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/anoixa/image-admin/database/dbtest"
	"github.com/anoixa/image-admin/database/models"
	"github.com/anoixa/image-admin/internal/admin"
	"github.com/anoixa/image-admin/internal/forms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type staticPerms map[uint]map[string]bool

func (s staticPerms) UserPermissions(_ context.Context, u *models.User) (map[string]bool, error) {
	return s[u.ID], nil
}

const labelsThrough = `EXISTS (SELECT 1 FROM labeled_images li JOIN labels l ON l.id = li.label_id AND l.deleted_at IS NULL ` +
	`WHERE li.image_id = images.id AND li.deleted_at IS NULL AND %s)`

func imageAdmin() *admin.ModelAdmin[models.Image] {
	return &admin.ModelAdmin[models.Image]{
		Name:        "image",
		VerboseName: "image",
		Table:       "images",
		ID:          func(i *models.Image) uint { return i.ID },
		String:      func(i *models.Image) string { return i.Filename },
		ListDisplay: []admin.Column[models.Image]{
			{Name: "id", Label: "ID", OrderBy: "images.id", Value: func(i *models.Image) interface{} { return i.ID }},
			{Name: "filename", Label: "Filename", OrderBy: "images.filename", Value: func(i *models.Image) interface{} { return i.Filename }},
			{Name: "is_active", Label: "Active", Boolean: true, Value: func(i *models.Image) interface{} { return i.IsActive }},
		},
		ListFilter: []admin.Filter{
			{Name: "is_active", Title: "active", Column: "images.is_active", Boolean: true},
			{Name: "labels__slug", Title: "labels", Column: "l.slug", Through: labelsThrough,
				Choices: func(ctx context.Context, db *gorm.DB) ([]admin.Choice, error) {
					var slugs []string
					err := db.WithContext(ctx).Model(&models.Label{}).Order("slug").Pluck("slug", &slugs).Error
					out := make([]admin.Choice, 0, len(slugs))
					for _, s := range slugs {
						out = append(out, admin.Choice{Value: s, Label: s})
					}
					return out, err
				}},
		},
		SearchFields: []admin.Lookup{{Name: "filename", Column: "images.filename"}},
		Ordering:     []string{"id"},
		Fields: []admin.Field[models.Image]{
			{Name: "filename", Label: "Filename", Value: func(i *models.Image) interface{} { return i.Filename }},
			{Name: "uri", Label: "URI", Value: func(i *models.Image) interface{} { return i.URI }},
			{Name: "is_active", Label: "Active", Initial: true, Value: func(i *models.Image) interface{} { return i.IsActive }},
			{Name: "created_at", Label: "Created", Value: func(i *models.Image) interface{} { return i.CreatedAt }},
		},
		ReadonlyFields: []string{"created_at"},
		Inlines: []admin.Inline[models.Image]{{
			Name:        "labels",
			VerboseName: "labeled image",
			Fields:      []string{"label_id"},
			Rows: func(ctx context.Context, db *gorm.DB, parent *models.Image) ([]map[string]interface{}, error) {
				var rows []models.LabeledImage
				err := db.WithContext(ctx).Where("image_id = ?", parent.ID).Order("id").Find(&rows).Error
				out := make([]map[string]interface{}, 0, len(rows))
				for _, r := range rows {
					out = append(out, map[string]interface{}{"id": r.ID, "label_id": r.LabelID})
				}
				return out, err
			},
			Formset: func(db *gorm.DB, parent *models.Image) admin.InlineFormset {
				return forms.NewImageLabelsFormset(db, "labels", parent.ID)
			},
		}},
		AddForm: func(db *gorm.DB) admin.Form[models.Image] { return forms.NewImageForm(db, nil) },
		ChangeForm: func(db *gorm.DB, obj *models.Image) admin.Form[models.Image] {
			return forms.NewImageForm(db, obj)
		},
	}
}

type fixture struct {
	db    *gorm.DB
	site  *admin.Site
	perms staticPerms
	root  *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	provider := dbtest.Provider(t)
	perms := staticPerms{}
	site := admin.NewSite(provider, perms, admin.SiteOptions{ListPerPage: 2})
	require.NoError(t, site.Register(imageAdmin()))
	return &fixture{
		db:    provider.DB(),
		site:  site,
		perms: perms,
		root:  dbtest.CreateUser(t, provider.DB(), "root@example.com", "", dbtest.Superuser),
	}
}

func (f *fixture) reg(t *testing.T) admin.Registration {
	r, err := f.site.Get("image")
	require.NoError(t, err)
	return r
}

func (f *fixture) staff(t *testing.T, email string, codes ...string) *models.User {
	u := dbtest.CreateUser(t, f.db, email, "", dbtest.Staff)
	f.perms[u.ID] = map[string]bool{}
	for _, c := range codes {
		f.perms[u.ID][c] = true
	}
	return u
}

func TestSite_RegisterAndIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.site.Register(imageAdmin())
	assert.ErrorIs(t, err, admin.ErrAlreadyRegistered)
	_, err = f.site.Get("nope")
	assert.ErrorIs(t, err, admin.ErrUnknownModel)

	index, err := f.site.Index(ctx, f.root)
	require.NoError(t, err)
	require.Len(t, index, 1)
	assert.Equal(t, "images", index[0].VerboseNamePlural)
	assert.Equal(t, admin.Perms{View: true, Add: true, Change: true, Delete: true}, index[0].Perms)

	viewer := f.staff(t, "viewer@example.com", "view_image")
	index, err = f.site.Index(ctx, viewer)
	require.NoError(t, err)
	require.Len(t, index, 1)
	assert.Equal(t, admin.Perms{View: true}, index[0].Perms)

	nobody := f.staff(t, "nobody@example.com")
	index, err = f.site.Index(ctx, nobody)
	require.NoError(t, err)
	assert.Empty(t, index)

	plain := dbtest.CreateUser(t, f.db, "plain@example.com", "")
	_, err = f.site.Index(ctx, plain)
	assert.ErrorIs(t, err, admin.ErrPermissionDenied)

	inactive := dbtest.CreateUser(t, f.db, "gone@example.com", "", dbtest.Superuser, dbtest.Inactive)
	_, err = f.site.Index(ctx, inactive)
	assert.ErrorIs(t, err, admin.ErrPermissionDenied)
}

func TestSplitTerms(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"fox", []string{"fox"}},
		{"  red   fox ", []string{"red", "fox"}},
		{`"red fox" jpg`, []string{"red fox", "jpg"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, admin.SplitTerms(tt.in))
		})
	}
}

func TestChangelist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.reg(t)

	fox := dbtest.CreateImage(t, f.db, "red_fox.jpg", "/m/fox.jpg")
	dbtest.CreateImage(t, f.db, "blue 100%.png", "/m/blue.png")
	owl := dbtest.CreateImage(t, f.db, "owl.gif", "/m/owl.gif")
	require.NoError(t, f.db.Model(owl).Update("is_active", false).Error)
	gone := dbtest.CreateImage(t, f.db, "gone_fox.jpg", "/m/gone.jpg")
	require.NoError(t, f.db.Delete(gone).Error)
	cats := dbtest.CreateLabel(t, f.db, "cats")
	dbtest.Attach(t, f.db, fox, cats)

	t.Run("pagination and counts", func(t *testing.T) {
		cl, err := r.Changelist(ctx, f.root, admin.Params{})
		require.NoError(t, err)
		assert.EqualValues(t, 3, cl.ResultCount)
		assert.EqualValues(t, 3, cl.FullCount)
		assert.Equal(t, 2, cl.Pages)
		require.Len(t, cl.Rows, 2)
		assert.Equal(t, fox.ID, cl.Rows[0].ID)
		assert.True(t, cl.Rows[0].Cells[0].Link)
		assert.False(t, cl.Rows[0].Cells[1].Link)

		cl, err = r.Changelist(ctx, f.root, admin.Params{Page: 9})
		require.NoError(t, err)
		assert.Equal(t, 2, cl.Page)
		require.Len(t, cl.Rows, 1)
		assert.Equal(t, owl.ID, cl.Rows[0].ID)

		cl, err = r.Changelist(ctx, f.root, admin.Params{ShowAll: true})
		require.NoError(t, err)
		assert.Len(t, cl.Rows, 3)
	})

	t.Run("search", func(t *testing.T) {
		tests := []struct {
			query string
			want  int64
		}{
			{"FOX", 1},
			{"fox jpg", 1},
			{"fox png", 0},
			{"100%", 1},
			{"_", 1},
			{`"blue 100"`, 1},
		}
		for _, tt := range tests {
			cl, err := r.Changelist(ctx, f.root, admin.Params{Query: tt.query})
			require.NoError(t, err)
			assert.Equal(t, tt.want, cl.ResultCount, tt.query)
			assert.EqualValues(t, 3, cl.FullCount)
		}
	})

	t.Run("filters", func(t *testing.T) {
		cl, err := r.Changelist(ctx, f.root, admin.Params{Filters: map[string]string{"is_active__exact": "0"}})
		require.NoError(t, err)
		require.Len(t, cl.Rows, 1)
		assert.Equal(t, owl.ID, cl.Rows[0].ID)

		active := cl.Filters[0]
		assert.Equal(t, "is_active__exact", active.Param)
		require.Len(t, active.Choices, 3)
		assert.False(t, active.Choices[0].Selected)
		assert.True(t, active.Choices[2].Selected)

		cl, err = r.Changelist(ctx, f.root, admin.Params{Filters: map[string]string{"labels__slug__exact": "cats"}})
		require.NoError(t, err)
		require.Len(t, cl.Rows, 1)
		assert.Equal(t, fox.ID, cl.Rows[0].ID)
		labels := cl.Filters[1]
		require.Len(t, labels.Choices, 2)
		assert.Equal(t, "cats", labels.Choices[1].Value)
		assert.True(t, labels.Choices[1].Selected)
	})

	t.Run("ordering", func(t *testing.T) {
		cl, err := r.Changelist(ctx, f.root, admin.Params{Ordering: "-filename", ShowAll: true})
		require.NoError(t, err)
		require.Len(t, cl.Rows, 3)
		assert.Equal(t, fox.ID, cl.Rows[0].ID)
		assert.Equal(t, owl.ID, cl.Rows[1].ID)
		assert.Equal(t, "desc", cl.Columns[1].Sorted)

		// 未知字段回落到默认排序
		cl, err = r.Changelist(ctx, f.root, admin.Params{Ordering: "password"})
		require.NoError(t, err)
		assert.Equal(t, []string{"id"}, cl.Ordering)
	})

	t.Run("permissions", func(t *testing.T) {
		nobody := f.staff(t, "nobody@example.com", "add_image")
		_, err := r.Changelist(ctx, nobody, admin.Params{})
		assert.ErrorIs(t, err, admin.ErrPermissionDenied)

		viewer := f.staff(t, "viewer@example.com", "view_image")
		cl, err := r.Changelist(ctx, viewer, admin.Params{})
		require.NoError(t, err)
		assert.Empty(t, cl.Actions)
	})
}

func TestCreateAndDetail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.reg(t)
	cats := dbtest.CreateLabel(t, f.db, "cats")

	view, err := r.AddView(ctx, f.root)
	require.NoError(t, err)
	require.Len(t, view.Fieldsets, 1)
	assert.Equal(t, true, view.Fieldsets[0].Fields[2].Value)

	_, err = r.Create(ctx, f.root, map[string]interface{}{
		"uri":     "/m/x.jpg",
		"inlines": map[string]interface{}{"labels": []interface{}{map[string]interface{}{"label_id": 999}}},
	})
	fe, ok := forms.AsErrors(err)
	require.True(t, ok)
	assert.True(t, fe.Has("filename"))
	assert.True(t, fe.Has("labels-0-label_id"))

	res, err := r.Create(ctx, f.root, map[string]interface{}{
		"filename": "cat.jpg",
		"uri":      "/m/cat.jpg",
		"inlines": map[string]interface{}{"labels": []interface{}{
			map[string]interface{}{"label_id": float64(cats.ID)},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "cat.jpg", res.Object)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, admin.LevelSuccess, res.Messages[0].Level)
	assert.Equal(t, "admin.added", res.Messages[0].ID)

	detail, err := r.Detail(ctx, f.root, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "cat.jpg", detail.Object)
	fields := detail.Fieldsets[0].Fields
	assert.Equal(t, "cat.jpg", fields[0].Value)
	assert.False(t, fields[0].ReadOnly)
	assert.True(t, fields[3].ReadOnly, "created_at is read-only")
	require.Len(t, detail.Inlines, 1)
	require.Len(t, detail.Inlines[0].Rows, 1)
	assert.Equal(t, cats.ID, detail.Inlines[0].Rows[0]["label_id"])
	assert.True(t, detail.Inlines[0].CanEdit)

	viewer := f.staff(t, "viewer@example.com", "view_image")
	detail, err = r.Detail(ctx, viewer, res.ID)
	require.NoError(t, err)
	assert.True(t, detail.Fieldsets[0].Fields[0].ReadOnly)
	assert.False(t, detail.Inlines[0].CanEdit)
	_, err = r.AddView(ctx, viewer)
	assert.ErrorIs(t, err, admin.ErrPermissionDenied)
	_, err = r.Create(ctx, viewer, map[string]interface{}{"filename": "x", "uri": "/x"})
	assert.ErrorIs(t, err, admin.ErrPermissionDenied)

	_, err = r.Detail(ctx, f.root, 4242)
	assert.ErrorIs(t, err, admin.ErrNotFound)
}

func TestUpdateRollsBackOnInlineErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.reg(t)
	img := dbtest.CreateImage(t, f.db, "a.jpg", "/m/a.jpg")
	cats := dbtest.CreateLabel(t, f.db, "cats")
	dogs := dbtest.CreateLabel(t, f.db, "dogs")
	dbtest.Attach(t, f.db, img, cats)

	_, err := r.Update(ctx, f.root, img.ID, map[string]interface{}{
		"filename": "b.jpg",
		"inlines": map[string]interface{}{"labels": []interface{}{
			map[string]interface{}{"label_id": cats.ID},
		}},
	})
	_, ok := forms.AsErrors(err)
	require.True(t, ok, "duplicate label must be rejected: %v", err)

	var stored models.Image
	require.NoError(t, f.db.First(&stored, img.ID).Error)
	assert.Equal(t, "a.jpg", stored.Filename)

	changed := 0
	f.site.OnChange(func(_ context.Context, model string) {
		assert.Equal(t, "image", model)
		changed++
	})
	res, err := r.Update(ctx, f.root, img.ID, map[string]interface{}{
		"filename": "b.jpg",
		"inlines": map[string]interface{}{"labels": []interface{}{
			map[string]interface{}{"label_id": dogs.ID},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "admin.changed", res.Messages[0].ID)
	assert.Equal(t, 1, changed)

	require.NoError(t, f.db.First(&stored, img.ID).Error)
	assert.Equal(t, "b.jpg", stored.Filename)
	var count int64
	require.NoError(t, f.db.Model(&models.LabeledImage{}).Where("image_id = ?", img.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	_, err = r.Update(ctx, f.root, 999, map[string]interface{}{"filename": "x"})
	assert.ErrorIs(t, err, admin.ErrNotFound)
}

func TestDeleteIsSoft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.reg(t)
	img := dbtest.CreateImage(t, f.db, "a.jpg", "/m/a.jpg")

	res, err := r.Delete(ctx, f.root, img.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin.deleted", res.Messages[0].ID)

	_, err = r.Detail(ctx, f.root, img.ID)
	assert.ErrorIs(t, err, admin.ErrNotFound)

	var stored models.Image
	require.NoError(t, f.db.Unscoped().First(&stored, img.ID).Error)
	assert.True(t, stored.IsDeleted())
}

func TestRunAction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.reg(t)

	var ids []uint
	for i := 0; i < 3; i++ {
		ids = append(ids, dbtest.CreateImage(t, f.db, fmt.Sprintf("img%d.jpg", i), "/m/x").ID)
	}

	res, err := r.RunAction(ctx, f.root, admin.DeleteSelected, admin.Selection{})
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, admin.LevelWarning, res.Messages[0].Level)

	_, err = r.RunAction(ctx, f.root, "explode", admin.Selection{IDs: ids})
	assert.ErrorIs(t, err, admin.ErrUnknownAction)

	viewer := f.staff(t, "viewer@example.com", "view_image")
	_, err = r.RunAction(ctx, viewer, admin.DeleteSelected, admin.Selection{IDs: ids})
	assert.ErrorIs(t, err, admin.ErrPermissionDenied)

	res, err = r.RunAction(ctx, f.root, admin.DeleteSelected, admin.Selection{IDs: ids[:1]})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, "admin.deleted_selected", res.Messages[0].ID)
	assert.EqualValues(t, 1, res.Messages[0].Data["Count"])

	res, err = r.RunAction(ctx, f.root, admin.DeleteSelected, admin.Selection{
		SelectAcross: true,
		Params:       admin.Params{Query: "img2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count)

	var left []uint
	require.NoError(t, f.db.Model(&models.Image{}).Order("id").Pluck("id", &left).Error)
	assert.Equal(t, []uint{ids[1]}, left)
}

func TestCustomActionOnCommit(t *testing.T) {
	provider := dbtest.Provider(t)
	ma := imageAdmin()
	var committed []uint
	ma.DisableDeleteSelected = true
	ma.Actions = []admin.Action[models.Image]{{
		Name:        "deactivate",
		Description: "Deactivate",
		Permission:  models.PermChange,
		Handler: func(ctx context.Context, req *admin.ActionRequest[models.Image]) error {
			if err := req.Tx.Model(&models.Image{}).Where("id IN ?", req.IDs).Update("is_active", false).Error; err != nil {
				return err
			}
			req.OnCommit(func() { committed = append(committed, req.IDs...) })
			req.MessageUser(admin.LevelInfo, "", "done", nil)
			return nil
		},
	}}
	site := admin.NewSite(provider, nil, admin.SiteOptions{})
	require.NoError(t, site.Register(ma))
	root := dbtest.CreateUser(t, provider.DB(), "root@example.com", "", dbtest.Superuser)
	img := dbtest.CreateImage(t, provider.DB(), "a.jpg", "/m/a.jpg")

	cl, err := ma.Changelist(context.Background(), root, admin.Params{})
	require.NoError(t, err)
	require.Len(t, cl.Actions, 1)
	assert.Equal(t, "deactivate", cl.Actions[0].Name)

	res, err := ma.RunAction(context.Background(), root, "deactivate", admin.Selection{IDs: []uint{img.ID}})
	require.NoError(t, err)
	assert.Equal(t, []uint{img.ID}, committed)
	assert.Equal(t, "done", res.Messages[0].Text)

	var stored models.Image
	require.NoError(t, provider.DB().First(&stored, img.ID).Error)
	assert.False(t, stored.IsActive)

}
