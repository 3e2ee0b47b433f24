package handlers

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/sekolah-hub/attendance-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// custom validation tags
const (
	notBlankTag = "notblank"
	dateTag     = "date"
	monthTag    = "month"
)

// Validator checks request DTOs and reports failures keyed by JSON field name.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// NewValidator creates a Validator with English messages.
func NewValidator() *Validator {
	v := validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	// Use JSON (or form) tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("json")
		if tag == "" {
			tag = fld.Tag.Get("form")
		}
		name := strings.SplitN(tag, ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, notBlank)
	_ = v.RegisterValidation(dateTag, layout("2006-01-02"))
	_ = v.RegisterValidation(monthTag, layout("2006-01"))

	noop := func(ut.Translator) error { return nil }
	for _, tag := range []string{notBlankTag, dateTag, monthTag} {
		_ = v.RegisterTranslation(tag, trans, noop, translateCustom)
	}

	return &Validator{validate: v, translator: trans}
}

// Struct validates s. Failures come back as a validation DomainError
// wrapping shared.FieldErrors.
func (v *Validator) Struct(domain, op string, s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return shared.WrapError(domain, op, shared.ErrValidation, "The given data was invalid.", err)
	}
	fields := shared.FieldErrors{}
	for _, fe := range verrs {
		fields.Add(fieldName(fe), fe.Translate(v.translator))
	}
	return fields.Err(domain, op)
}

// fieldName is the namespace without the root struct, e.g. "images.0".
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	ns = strings.NewReplacer("[", ".", "]", "").Replace(ns)
	if ns == "" {
		return fe.Field()
	}
	return ns
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return fe.Field() + " cannot be blank"
	case dateTag:
		return fe.Field() + " must be a date in the format YYYY-MM-DD"
	case monthTag:
		return fe.Field() + " must be a month in the format YYYY-MM"
	default:
		return fe.Error()
	}
}

// Custom Validators

func notBlank(fl validator.FieldLevel) bool {
	switch f := fl.Field(); f.Kind() {
	case reflect.String:
		return strings.TrimSpace(f.String()) != ""
	default:
		return !f.IsZero()
	}
}

func layout(l string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		_, err := time.Parse(l, s)
		return err == nil
	}
}
