package coreadmin

import (
	"context"

	"github.com/anoixa/image-admin/cache"
	"github.com/anoixa/image-admin/database/models"
	"github.com/anoixa/image-admin/database/repo/images"
	"github.com/anoixa/image-admin/internal/admin"
	"github.com/anoixa/image-admin/internal/forms"
	"github.com/anoixa/image-admin/internal/worker"
	"gorm.io/gorm"
)

// ForceDelete 物理删除图片的批量操作
const ForceDelete = "force_delete"

const labelsSlugFilter = "labels__slug"

// labelsThrough 图片按关联标签过滤
const labelsThrough = `EXISTS (SELECT 1 FROM labeled_images li ` +
	`JOIN labels l ON l.id = li.label_id AND l.deleted_at IS NULL ` +
	`WHERE li.image_id = images.id AND li.deleted_at IS NULL AND %s)`

func imageBase(i *models.Image) *models.Base { return &i.Base }

// labelChoices 全部标签 slug，可选使用缓存
func labelChoices(helper *cache.Helper) func(ctx context.Context, db *gorm.DB) ([]admin.Choice, error) {
	return func(ctx context.Context, db *gorm.DB) ([]admin.Choice, error) {
		var choices []admin.Choice
		if helper != nil {
			err := helper.GetCachedFilterChoices(ctx, ImageModel, labelsSlugFilter, &choices)
			if err == nil {
				return choices, nil
			}
		}

		var slugs []string
		if err := db.WithContext(ctx).Model(&models.Label{}).Order("slug").Pluck("slug", &slugs).Error; err != nil {
			return nil, err
		}
		choices = make([]admin.Choice, 0, len(slugs))
		for _, s := range slugs {
			choices = append(choices, admin.Choice{Value: s, Label: s})
		}

		if helper != nil {
			_ = helper.CacheFilterChoices(ctx, ImageModel, labelsSlugFilter, choices)
		}
		return choices, nil
	}
}

// ImageAdmin 图片后台
func ImageAdmin(deps Deps) *admin.ModelAdmin[models.Image] {
	repo := images.NewRepository(deps.DB)

	fields := []admin.Field[models.Image]{
		{Name: "filename", Label: "Filename", Value: func(i *models.Image) interface{} { return i.Filename }},
		{Name: "uri", Label: "URI", Value: func(i *models.Image) interface{} { return i.URI }},
		{Name: "description", Label: "Description", Value: func(i *models.Image) interface{} { return i.Description }},
		{Name: "is_active", Label: "Active", Initial: true, Value: func(i *models.Image) interface{} { return i.IsActive }},
	}
	fields = append(fields, timestampFields(imageBase, true)...)

	m := &admin.ModelAdmin[models.Image]{
		Name:        ImageModel,
		VerboseName: "image",
		Table:       "images",
		ID:          func(i *models.Image) uint { return i.ID },
		String:      func(i *models.Image) string { return i.Filename },

		ListDisplay: []admin.Column[models.Image]{
			idColumn("images", imageBase),
			shortUUIDColumn(imageBase),
			{Name: "is_active", Label: "Active", OrderBy: "images.is_active", Boolean: true,
				Value: func(i *models.Image) interface{} { return i.IsActive }},
			{Name: "filename", Label: "Filename", OrderBy: "images.filename",
				Value: func(i *models.Image) interface{} { return i.Filename }},
			{Name: "uri", Label: "URI", OrderBy: "images.uri",
				Value: func(i *models.Image) interface{} { return i.URI }},
			{Name: "image_tag", Label: "Image", HTML: true,
				Value: func(i *models.Image) interface{} { return i.ImageTag() }},
			createdAtColumn("images", imageBase),
		},
		ListFilter: []admin.Filter{
			{Name: labelsSlugFilter, Title: "labels", Column: "l.slug", Through: labelsThrough,
				Choices: labelChoices(deps.Cache)},
		},
		SearchFields: []admin.Lookup{{Name: "filename", Column: "images.filename"}},
		Ordering:     []string{"-id"},

		Fields: fields,
		Fieldsets: []admin.Fieldset{{Fields: []string{
			"filename", "uri", "description", "created_at", "modified_at", "deleted_at", "is_active",
		}}},
		ReadonlyFields: []string{"created_at", "modified_at", "deleted_at"},
		Inlines: []admin.Inline[models.Image]{{
			Name:              "labels",
			VerboseName:       "Label",
			VerboseNamePlural: "Labels",
			Fields:            []string{"label_id", "slug"},
			ReadonlyFields:    []string{"slug"},
			Rows: func(ctx context.Context, db *gorm.DB, parent *models.Image) ([]map[string]interface{}, error) {
				rows, err := images.ForImage(ctx, db, parent.ID)
				if err != nil {
					return nil, err
				}
				out := make([]map[string]interface{}, 0, len(rows))
				for _, r := range rows {
					out = append(out, map[string]interface{}{"id": r.ID, "label_id": r.LabelID, "slug": r.Slug()})
				}
				return out, nil
			},
			Formset: func(db *gorm.DB, parent *models.Image) admin.InlineFormset {
				return forms.NewImageLabelsFormset(db, "labels", parent.ID)
			},
		}},

		Actions: []admin.Action[models.Image]{{
			Name:          ForceDelete,
			Description:   "!!! FORCE DELETE SELECTED !!!",
			DescriptionID: "admin.action.force_delete",
			Permission:    models.PermDelete,
			Handler: func(ctx context.Context, req *admin.ActionRequest[models.Image]) error {
				deleted, err := repo.ForceDeleteWithTx(req.Tx, req.IDs)
				if err != nil {
					return err
				}
				shared, err := images.ReferencedURIs(req.Tx, deleted)
				if err != nil {
					return err
				}
				req.OnCommit(func() {
					for _, img := range deleted {
						task := &worker.ImagePurgeTask{
							ImageID:       img.ID,
							URI:           img.URI,
							PublicBaseURL: deps.PublicBaseURL,
							Storage:       deps.Storage,
							Cache:         deps.Cache,
							KeepObject:    shared[img.URI],
						}
						deps.submit(task.Execute)
					}
				})
				req.MessageUser(admin.LevelSuccess, "admin.force_deleted", "Force deleted {{.Count}} {{.Model}}.",
					map[string]interface{}{"Count": len(deleted), "Model": req.Admin.Meta().VerboseNamePlural})
				return nil
			},
		}},

		AddForm: func(db *gorm.DB) admin.Form[models.Image] { return forms.NewImageForm(db, nil) },
		ChangeForm: func(db *gorm.DB, obj *models.Image) admin.Form[models.Image] {
			return forms.NewImageForm(db, obj)
		},
	}
	return withBase(m)
}
