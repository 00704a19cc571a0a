package users

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	ierrors "github.com/lemussistemas/salsa-hn-frontend/internal/errors"
	"github.com/pkg/errors"
)

const (
	// MinPasswordLength mirrors the backend's password policy.
	MinPasswordLength = 8

	mismatchText  = "passwords do not match"
	minLengthText = "password must contain at least 8 characters"
)

var (
	validate   *validator.Validate
	translator ut.Translator
	initOnce   sync.Once
)

func initValidator() {
	initOnce.Do(func() {
		validate = validator.New()
		english := en.New()
		translator, _ = ut.New(english, english).GetTranslator("en")
		_ = en_translations.RegisterDefaultTranslations(validate, translator)

		// Use JSON tag names for errors instead of Go struct names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		registerTranslation("eqfield", mismatchText)
		registerPasswordMinTranslation()
	})
}

func registerTranslation(tag, text string) {
	_ = validate.RegisterTranslation(tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// registerPasswordMinTranslation keeps the generic min message for other
// fields and uses the password policy text for password fields.
func registerPasswordMinTranslation() {
	_ = validate.RegisterTranslation("min", translator,
		func(t ut.Translator) error { return t.Add("pwdmin", minLengthText, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			if strings.Contains(fe.Field(), "password") {
				s, _ := t.T("pwdmin")
				return s
			}
			return fe.Field() + " must be at least " + fe.Param() + " characters in length"
		},
	)
}

// ValidateRegistration runs the local pre-flight checks that must pass
// before POST /auth/register/ is attempted.
func ValidateRegistration(r Registration) error {
	return validateStruct(r)
}

func ValidatePasswordChange(p PasswordChange) error {
	return validateStruct(p)
}

func ValidateProfileUpdate(p ProfileUpdate) error {
	return validateStruct(p)
}

func validateStruct(s any) error {
	initValidator()
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "[users.validateStruct]")
	}
	fields := make([]ierrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, ierrors.FieldError{Field: fe.Field(), Message: fe.Translate(translator)})
	}
	return ierrors.NewValidationError(ierrors.ErrValidation, fields...)
}
