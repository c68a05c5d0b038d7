package coreadmin

import (
	"strings"

	"github.com/anoixa/image-admin/database/models"
	"github.com/anoixa/image-admin/internal/admin"
	"github.com/anoixa/image-admin/internal/forms"
	"gorm.io/gorm"
)

func userBase(u *models.User) *models.Base { return &u.Base }

// UserAdmin 用户后台
func UserAdmin(deps Deps) *admin.ModelAdmin[models.User] {
	policy := deps.Policy

	boolColumn := func(name, label string, get func(*models.User) bool) admin.Column[models.User] {
		return admin.Column[models.User]{Name: name, Label: label, OrderBy: "users." + name, Boolean: true,
			Value: func(u *models.User) interface{} { return get(u) }}
	}

	fields := []admin.Field[models.User]{
		{Name: "email", Label: "Email address", Value: func(u *models.User) interface{} { return u.Email }},
		{Name: "password", Label: "Password", ReadOnly: true,
			HelpText: "Raw passwords are not stored, so there is no way to see this user’s password.",
			Value:    func(u *models.User) interface{} { return passwordSummary(u) }},
		{Name: "password1", Label: "Password", HelpText: strings.Join(policy.HelpTexts(), " ")},
		{Name: "password2", Label: "Password confirmation", HelpText: "Enter the same password as before, for verification."},
		{Name: "is_staff", Label: "Staff status", Initial: false,
			HelpText: "Designates whether the user can log into this admin site.",
			Value:    func(u *models.User) interface{} { return u.IsStaff }},
		{Name: "is_superuser", Label: "Superuser status", Initial: false,
			HelpText: "Designates that this user has all permissions without explicitly assigning them.",
			Value:    func(u *models.User) interface{} { return u.IsSuperuser }},
		{Name: "groups", Label: "Groups", Value: func(u *models.User) interface{} {
			ids := make([]uint, 0, len(u.Groups))
			for _, g := range u.Groups {
				ids = append(ids, g.ID)
			}
			return ids
		}},
		{Name: "user_permissions", Label: "User permissions", Value: func(u *models.User) interface{} {
			ids := make([]uint, 0, len(u.UserPermissions))
			for _, p := range u.UserPermissions {
				ids = append(ids, p.ID)
			}
			return ids
		}},
		{Name: "is_active", Label: "Active", Initial: true,
			HelpText: "Designates whether this user should be treated as active. Unselect this instead of deleting accounts.",
			Value:    func(u *models.User) interface{} { return u.IsActive }},
		{Name: "imported_at", Label: "Imported at", Value: func(u *models.User) interface{} { return u.ImportedAt }},
	}
	fields = append(fields, timestampFields(userBase, true)...)

	return &admin.ModelAdmin[models.User]{
		Name:        UserModel,
		VerboseName: "user",
		Table:       "users",
		Preload:     []string{"Groups", "UserPermissions"},
		ID:          func(u *models.User) uint { return u.ID },
		String:      func(u *models.User) string { return u.Email },

		ListDisplay: []admin.Column[models.User]{
			idColumn("users", userBase),
			boolColumn("is_active", "Active", func(u *models.User) bool { return u.IsActive }),
			boolColumn("is_staff", "Staff status", func(u *models.User) bool { return u.IsStaff }),
			boolColumn("is_superuser", "Superuser status", func(u *models.User) bool { return u.IsSuperuser }),
			{Name: "email", Label: "Email address", OrderBy: "users.email",
				Value: func(u *models.User) interface{} { return u.Email }},
		},
		ListDisplayLinks: []string{"id", "email"},
		ListFilter: []admin.Filter{
			{Name: "is_staff", Title: "staff status", Column: "users.is_staff", Boolean: true},
			{Name: "is_superuser", Title: "superuser status", Column: "users.is_superuser", Boolean: true},
			{Name: "is_active", Title: "active", Column: "users.is_active", Boolean: true},
		},
		SearchFields: []admin.Lookup{{Name: "email", Column: "users.email"}},
		Ordering:     []string{"id"},

		Fields: fields,
		AddFieldsets: []admin.Fieldset{{Fields: []string{
			"email", "password1", "password2", "is_superuser", "is_staff", "is_active",
		}}},
		Fieldsets: []admin.Fieldset{
			{Fields: []string{"email", "password"}},
			{Name: "Permissions", Fields: []string{"is_staff", "is_superuser", "groups", "user_permissions"}},
			{Name: "Important", Fields: []string{"is_active", "imported_at", "created_at", "modified_at", "deleted_at"}},
		},
		ReadonlyFields: []string{"created_at", "deleted_at", "modified_at"},

		AddForm: func(db *gorm.DB) admin.Form[models.User] {
			return forms.NewUserCreationForm(db, policy)
		},
		ChangeForm: func(db *gorm.DB, u *models.User) admin.Form[models.User] {
			return forms.NewUserEditForm(db, u)
		},
	}
}
