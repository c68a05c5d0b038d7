package coreadmin

import (
	"context"

	"github.com/anoixa/image-admin/database/models"
	"github.com/anoixa/image-admin/database/repo/images"
	"github.com/anoixa/image-admin/internal/admin"
	"github.com/anoixa/image-admin/internal/forms"
	"gorm.io/gorm"
)

func labelBase(l *models.Label) *models.Base                { return &l.Base }
func labeledImageBase(li *models.LabeledImage) *models.Base { return &li.Base }

// LabeledImageAdmin 图片标签关联，只读
func LabeledImageAdmin() *admin.ModelAdmin[models.LabeledImage] {
	m := &admin.ModelAdmin[models.LabeledImage]{
		Name:        LabeledImageModel,
		VerboseName: "labeled image",
		Table:       "labeled_images",
		Preload:     []string{"Image", "Label"},
		Scope:       images.LiveLinks,
		ID:          func(li *models.LabeledImage) uint { return li.ID },
		String: func(li *models.LabeledImage) string {
			return li.Slug() + " / " + li.Filename()
		},
		ReadOnly: true,

		ListDisplay: []admin.Column[models.LabeledImage]{
			idColumn("labeled_images", labeledImageBase),
			shortUUIDColumn(labeledImageBase),
			{Name: "image_tag", Label: "Image", HTML: true,
				Value: func(li *models.LabeledImage) interface{} { return li.ImageTag() }},
			{Name: "slug", Label: "Slug", Value: func(li *models.LabeledImage) interface{} { return li.Slug() }},
			{Name: "filename", Label: "Filename", Value: func(li *models.LabeledImage) interface{} { return li.Filename() }},
			{Name: "title", Label: "Title", Value: func(li *models.LabeledImage) interface{} { return li.Title() }},
			createdAtColumn("labeled_images", labeledImageBase),
		},
		SearchFields: []admin.Lookup{
			{Name: "label__slug", Column: "l.slug",
				Through: "EXISTS (SELECT 1 FROM labels l WHERE l.id = labeled_images.label_id AND %s)"},
			{Name: "image__filename", Column: "i.filename",
				Through: "EXISTS (SELECT 1 FROM images i WHERE i.id = labeled_images.image_id AND %s)"},
		},
		Ordering: []string{"-id"},

		Fields: append([]admin.Field[models.LabeledImage]{
			{Name: "image", Label: "Image", Value: func(li *models.LabeledImage) interface{} { return li.ImageID }},
			{Name: "label", Label: "Label", Value: func(li *models.LabeledImage) interface{} { return li.LabelID }},
		}, timestampFields(labeledImageBase, false)...),
	}
	return withBase(m)
}

// LabelAdmin 标签后台
func LabelAdmin() *admin.ModelAdmin[models.Label] {
	m := &admin.ModelAdmin[models.Label]{
		Name:        LabelModel,
		VerboseName: "label",
		Table:       "labels",
		ID:          func(l *models.Label) uint { return l.ID },
		String:      func(l *models.Label) string { return l.Slug },

		ListDisplay: []admin.Column[models.Label]{
			idColumn("labels", labelBase),
			shortUUIDColumn(labelBase),
			{Name: "slug", Label: "Slug", OrderBy: "labels.slug",
				Value: func(l *models.Label) interface{} { return l.Slug }},
			createdAtColumn("labels", labelBase),
		},
		SearchFields: []admin.Lookup{{Name: "slug", Column: "labels.slug"}},
		Ordering:     []string{"-id"},

		Fields: append([]admin.Field[models.Label]{
			{Name: "slug", Label: "Slug", Value: func(l *models.Label) interface{} { return l.Slug }},
		}, timestampFields(labelBase, false)...),
		Inlines: []admin.Inline[models.Label]{{
			Name:              "labeled_images",
			VerboseName:       "Labeled Image",
			VerboseNamePlural: "Labeled Images",
			Fields:            []string{"image_id", "image_tag"},
			ReadonlyFields:    []string{"image_tag"},
			Rows: func(ctx context.Context, db *gorm.DB, parent *models.Label) ([]map[string]interface{}, error) {
				rows, err := images.ForLabel(ctx, db, parent.ID)
				if err != nil {
					return nil, err
				}
				out := make([]map[string]interface{}, 0, len(rows))
				for _, r := range rows {
					out = append(out, map[string]interface{}{"id": r.ID, "image_id": r.ImageID, "image_tag": r.ImageTag()})
				}
				return out, nil
			},
			Formset: func(db *gorm.DB, parent *models.Label) admin.InlineFormset {
				return forms.NewLabelImagesFormset(db, "labeled_images", parent.ID)
			},
		}},

		AddForm: func(db *gorm.DB) admin.Form[models.Label] { return forms.NewLabelForm(db, nil) },
		ChangeForm: func(db *gorm.DB, obj *models.Label) admin.Form[models.Label] {
			return forms.NewLabelForm(db, obj)
		},
	}
	return withBase(m)
}
