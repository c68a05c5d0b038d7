package forms

import (
	"context"
	"testing"

	"github.com/anoixa/image-admin/database/dbtest"
	"github.com/anoixa/image-admin/database/models"
	"github.com/anoixa/image-admin/internal/auth/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func errorCodes(t *testing.T, err error, field string) []string {
	t.Helper()
	fe, ok := AsErrors(err)
	require.True(t, ok, "expected form errors, got %v", err)
	var out []string
	for _, e := range fe[field] {
		out = append(out, e.Code)
	}
	return out
}

func TestUserCreationForm_Validation(t *testing.T) {
	const strong = "Xk9#mQ2$vL7!"

	tests := []struct {
		name  string
		data  map[string]interface{}
		field string
		codes []string
	}{
		{"missing email", map[string]interface{}{}, "email", []string{CodeRequired}},
		{"bad email", map[string]interface{}{"email": "nope"}, "email", []string{CodeInvalidEmail}},
		{"mismatch", map[string]interface{}{"email": "a@example.com", "password1": strong, "password2": strong + "x"}, "password2", []string{CodePasswordMismatch}},
		{"only first filled", map[string]interface{}{"email": "a@example.com", "password1": strong}, "password2", []string{CodePasswordMismatch}},
		{"only second filled", map[string]interface{}{"email": "a@example.com", "password2": strong}, "password2", []string{CodePasswordMismatch}},
		{"policy failure", map[string]interface{}{"email": "a@example.com", "password1": "1234", "password2": "1234"}, "password2",
			[]string{password.CodeTooShort, password.CodeTooCommon, password.CodeEntirelyNumeric}},
		{"common password", map[string]interface{}{"email": "a@example.com", "password1": "bigdaddy", "password2": "bigdaddy"}, "password2",
			[]string{password.CodeTooCommon}},
		{"similar to email", map[string]interface{}{"email": "jonathan.smith@example.com", "password1": "jonathansmith", "password2": "jonathansmith"}, "password2",
			[]string{password.CodeTooSimilar}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := dbtest.Open(t)
			form := NewUserCreationForm(db, password.DefaultPolicy())
			err := form.Bind(context.Background(), tt.data)
			assert.Equal(t, tt.codes, errorCodes(t, err, tt.field))
		})
	}
}

func TestUserCreationForm_SaveWithPassword(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	form := NewUserCreationForm(db, nil)
	require.NoError(t, form.Bind(ctx, map[string]interface{}{
		"email":     "Staff@EXAMPLE.com",
		"password1": "Xk9#mQ2$vL7!",
		"password2": "Xk9#mQ2$vL7!",
		"is_staff":  true,
	}))

	user, err := form.Save(ctx, true)
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "Staff@example.com", user.Email)
	assert.True(t, user.IsActive, "new users default to active")
	assert.True(t, user.IsStaff)
	assert.False(t, user.IsSuperuser)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.True(t, stored.CheckPassword("Xk9#mQ2$vL7!"))
}

func TestUserCreationForm_BlankPasswordsGiveUnusablePassword(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	form := NewUserCreationForm(db, nil)
	require.NoError(t, form.Bind(ctx, map[string]interface{}{"email": "x@example.com", "is_active": "0"}))

	user, err := form.Save(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, user.ID, "commit=false must not persist")
	assert.False(t, user.HasUsablePassword())
	assert.False(t, user.IsActive)

	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Zero(t, count)
}

func TestUserCreationForm_EmailUniqueCaseInsensitive(t *testing.T) {
	db := dbtest.Open(t)
	dbtest.CreateUser(t, db, "taken@example.com", "")

	form := NewUserCreationForm(db, nil)
	err := form.Bind(context.Background(), map[string]interface{}{"email": "TAKEN@example.com"})
	assert.Equal(t, []string{CodeUnique}, errorCodes(t, err, "email"))
}

func TestUserEditForm(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	user := dbtest.CreateUser(t, db, "edit@example.com", "Xk9#mQ2$vL7!")
	other := dbtest.CreateUser(t, db, "other@example.com", "")
	group := &models.Group{Name: "editors"}
	require.NoError(t, db.Create(group).Error)
	hash := user.Password

	t.Run("duplicate email rejected", func(t *testing.T) {
		form := NewUserEditForm(db, user)
		err := form.Bind(ctx, map[string]interface{}{"email": other.Email})
		assert.Equal(t, []string{CodeUnique}, errorCodes(t, err, "email"))
	})

	t.Run("unknown group rejected", func(t *testing.T) {
		form := NewUserEditForm(db, user)
		err := form.Bind(ctx, map[string]interface{}{"groups": []interface{}{float64(999)}})
		assert.Equal(t, []string{CodeInvalidChoice}, errorCodes(t, err, "groups"))
	})

	t.Run("update keeps password and sets groups", func(t *testing.T) {
		form := NewUserEditForm(db, user)
		require.NoError(t, form.Bind(ctx, map[string]interface{}{
			"email":       "edit@example.com",
			"is_staff":    "true",
			"groups":      []interface{}{float64(group.ID)},
			"imported_at": "2024-05-01T10:00:00Z",
		}))
		_, err := form.Save(ctx, true)
		require.NoError(t, err)

		var stored models.User
		require.NoError(t, db.Preload("Groups").First(&stored, user.ID).Error)
		assert.True(t, stored.IsStaff)
		assert.Equal(t, hash, stored.Password)
		require.Len(t, stored.Groups, 1)
		assert.Equal(t, "editors", stored.Groups[0].Name)
		require.NotNil(t, stored.ImportedAt)
		assert.Equal(t, 2024, stored.ImportedAt.Year())
	})

	t.Run("empty imported_at clears the value", func(t *testing.T) {
		var stored models.User
		require.NoError(t, db.Preload("Groups").First(&stored, user.ID).Error)
		form := NewUserEditForm(db, &stored)
		require.NoError(t, form.Bind(ctx, map[string]interface{}{"imported_at": "", "groups": []interface{}{}}))
		_, err := form.Save(ctx, true)
		require.NoError(t, err)

		var reloaded models.User
		require.NoError(t, db.Preload("Groups").First(&reloaded, user.ID).Error)
		assert.Nil(t, reloaded.ImportedAt)
		assert.Empty(t, reloaded.Groups)
	})
}

func TestSetPasswordForm(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	user := dbtest.CreateUser(t, db, "pw@example.com", "")

	form := NewSetPasswordForm(db, nil, user)
	err := form.Bind(ctx, map[string]interface{}{"password1": "a"})
	assert.Equal(t, []string{CodeRequired}, errorCodes(t, err, "password2"))

	form = NewSetPasswordForm(db, nil, user)
	err = form.Bind(ctx, map[string]interface{}{"password1": "Xk9#mQ2$vL7!", "password2": "Xk9#mQ2$vL7?"})
	assert.Equal(t, []string{CodePasswordMismatch}, errorCodes(t, err, "password2"))

	form = NewSetPasswordForm(db, nil, user)
	require.NoError(t, form.Bind(ctx, map[string]interface{}{"password1": "Xk9#mQ2$vL7!", "password2": "Xk9#mQ2$vL7!"}))
	_, err = form.Save(ctx, true)
	require.NoError(t, err)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.True(t, stored.CheckPassword("Xk9#mQ2$vL7!"))
}
