package validator

import (
	"errors"
	"fmt"
	"mime"
	"reflect"
	"strings"

	apperrors "edrs-docstore/pkg/errors"

	playground "github.com/go-playground/validator/v10"
)

const (
	maxContentTypeLen = 255

	tagContentType = "contenttype"

	errContentTypeMaxLengthFmt = "content type must not exceed %d characters"
	errContentTypeInvalidFmt   = "invalid content type"
	errFieldFmt                = "%s failed on '%s'"
	errRequestInvalid          = "invalid request"
)

// Validator checks request DTOs tagged with `validate:"..."`.
type Validator struct {
	v *playground.Validate
}

func New() *Validator {
	v := playground.New(playground.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query", "form", "param"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	_ = v.RegisterValidation(tagContentType, func(fl playground.FieldLevel) bool {
		return checkContentType(fl.Field().String()) == nil
	})
	return &Validator{v: v}
}

// Validate satisfies echo.Validator. Failures come back as a single Validation error
// naming each offending field.
func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.Validation(errRequestInvalid)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf(errFieldFmt, fe.Field(), fe.Tag()))
	}
	return apperrors.Validation(strings.Join(msgs, "; "))
}

// checkContentType accepts an empty value or a parseable media type.
func checkContentType(contentType string) error {
	if contentType == "" {
		return nil
	}

	if len(contentType) > maxContentTypeLen {
		return fmt.Errorf(errContentTypeMaxLengthFmt, maxContentTypeLen)
	}

	if _, _, err := mime.ParseMediaType(contentType); err != nil {
		return fmt.Errorf(errContentTypeInvalidFmt)
	}

	return nil
}

// NormalizeContentType lowercases the media type and drops parameters. Invalid input
// yields "".
func NormalizeContentType(contentType string) string {
	if checkContentType(contentType) != nil || contentType == "" {
		return ""
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	return strings.ToLower(mediaType)
}
