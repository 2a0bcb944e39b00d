package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/dmitrijs2005/useradmin/internal/common"
)

const (
	maxBodyBytes     = 1 << 20
	passwordSpecials = "@$!%*?&"
	// bcrypt input limit
	maxPasswordBytes = 72
)

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

// ValidationError lists every failed rule of a request body, already
// rendered in English.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Unwrap() error { return common.ErrorBadRequest }

// Validator checks request DTOs against their `validate` tags.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

func NewValidator() (*Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	english := en.New()
	trans, _ := ut.New(english, english).GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, fmt.Errorf("register translations: %w", err)
	}

	custom := []struct {
		tag     string
		fn      validator.Func
		message string
	}{
		{"password", validPassword, "{0} must contain at least one lowercase letter, one uppercase letter, one number and one special character (" + passwordSpecials + ")"},
		{"pwbytes", validPasswordBytes, "{0} must be at most " + strconv.Itoa(maxPasswordBytes) + " bytes long"},
		{"phone", validPhone, "{0} must be a valid phone number"},
	}
	for _, c := range custom {
		if err := v.RegisterValidation(c.tag, c.fn); err != nil {
			return nil, fmt.Errorf("register %s rule: %w", c.tag, err)
		}
		if err := v.RegisterTranslation(c.tag, trans, addTranslation(c.tag, c.message), translate(c.tag)); err != nil {
			return nil, fmt.Errorf("register %s translation: %w", c.tag, err)
		}
	}

	return &Validator{validate: v, trans: trans}, nil
}

func addTranslation(tag, message string) validator.RegisterTranslationsFunc {
	return func(t ut.Translator) error {
		return t.Add(tag, message, true)
	}
}

func translate(tag string) validator.TranslationFunc {
	return func(t ut.Translator, fe validator.FieldError) string {
		msg, err := t.T(tag, fe.Field())
		if err != nil {
			return fe.Error()
		}
		return msg
	}
}

// Struct validates s and returns a *ValidationError listing every failure.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Translate(v.trans))
	}
	return &ValidationError{Messages: msgs}
}

// decode reads a JSON body into dst and validates it. Unknown fields are
// rejected.
func (v *Validator) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return common.BadRequest("request body is required")
		}
		return common.BadRequest("malformed request body: %s", err.Error())
	}
	return v.Struct(dst)
}

func validPassword(fl validator.FieldLevel) bool {
	var lower, upper, digit, special bool
	for _, c := range fl.Field().String() {
		switch {
		case unicode.IsLower(c):
			lower = true
		case unicode.IsUpper(c):
			upper = true
		case unicode.IsDigit(c):
			digit = true
		case strings.ContainsRune(passwordSpecials, c):
			special = true
		}
	}
	return lower && upper && digit && special
}

func validPasswordBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= maxPasswordBytes
}

func validPhone(fl validator.FieldLevel) bool {
	return phonePattern.MatchString(fl.Field().String())
}
