// Package validation runs struct-tag validation with English messages keyed
// by JSON field path.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/prepwise/prepwise-api/internal/notifications"
)

// PushTokenTag validates an Expo push token.
const PushTokenTag = "pushtoken"

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report JSON field names instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(PushTokenTag, func(fl validator.FieldLevel) bool {
		return notifications.ValidateToken(fl.Field().String())
	})
	_ = validate.RegisterTranslation(PushTokenTag, translator,
		func(ut.Translator) error { return nil },
		func(ut.Translator, validator.FieldError) string { return "Invalid Expo push token format" },
	)
}

// Struct validates v. Rule violations come back as a field map; err is set
// only when v cannot be validated at all.
func Struct(v any) (fields map[string]string, err error) {
	err = validate.Struct(v)
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}
	fields = make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = fe.Translate(translator)
	}
	return fields, nil
}

// fieldPath drops the top-level struct name from the error namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
