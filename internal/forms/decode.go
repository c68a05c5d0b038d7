package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/anoixa/image-admin/database/models"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return models.IsValidSlug(fl.Field().String())
	})
	return v
}

// emptyTimeHook 空字符串解码为零值时间，随后由表单转成 nil
func emptyTimeHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != reflect.TypeOf(time.Time{}) || from.Kind() != reflect.String {
		return data, nil
	}
	if data.(string) == "" {
		return time.Time{}, nil
	}
	return data, nil
}

// Decode 将原始输入解码到表单结构体，缺失的键保留原值
func Decode(data map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "form",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			emptyTimeHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(data); err != nil {
		errs := Errors{}
		var merr *mapstructure.Error
		if errors.As(err, &merr) {
			for _, msg := range merr.Errors {
				errs.Add(NonFieldErrors, CodeInvalid, msg, nil)
			}
		} else {
			errs.Add(NonFieldErrors, CodeInvalid, err.Error(), nil)
		}
		return errs
	}
	return nil
}

// Validate 执行结构体标签校验，转换为表单错误
func Validate(s interface{}) Errors {
	errs := Errors{}
	err := validate.Struct(s)
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add(NonFieldErrors, CodeInvalid, err.Error(), nil)
		return errs
	}

	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			errs.Add(field, CodeRequired, "This field is required.", nil)
		case "email":
			errs.Add(field, CodeInvalidEmail, "Enter a valid email address.", nil)
		case "slug":
			errs.Add(field, CodeInvalidSlug, "Enter a valid “slug” consisting of lowercase letters, numbers, underscores or hyphens.", nil)
		case "max":
			errs.Add(field, CodeMaxLength,
				fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param()),
				map[string]interface{}{"Max": fe.Param()})
		default:
			errs.Add(field, CodeInvalid, "Enter a valid value.", nil)
		}
	}
	return errs
}

// boolOr 可选布尔字段的默认值
func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// normalizeTime 零值时间视为未设置
func normalizeTime(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	return t
}
