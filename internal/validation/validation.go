// Package validation wraps go-playground/validator with the project's custom
// tags and converts failures into field-level application errors.
package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	apperrors "github.com/gocomet/parcel-pickup/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// phonePattern accepts mainland China mobile numbers
var phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

var (
	once     sync.Once
	instance *validator.Validate
	ginOnce  sync.Once
)

// Engine returns the shared validator with custom tags registered
func Engine() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		register(instance)
	})
	return instance
}

// RegisterGin installs the custom tags and json field naming on gin's binding validator
func RegisterGin() {
	ginOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			register(v)
		}
	})
}

func register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	// bcrypt only accepts 72 bytes; max counts runes
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	_ = v.RegisterValidation("cents", func(fl validator.FieldLevel) bool {
		cents := fl.Field().Float() * 100
		return math.Abs(cents-math.Round(cents)) < 1e-6
	})
}

// Struct validates s and returns an *apperrors.AppError listing every bad field
func Struct(s interface{}) error {
	err := Engine().Struct(s)
	if err == nil {
		return nil
	}
	return FromError(err)
}

// FromError converts validator errors into a validation AppError.
// Other errors are reported as a single body-level failure.
func FromError(err error) *apperrors.AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Validation([]apperrors.FieldError{{Field: "body", Message: err.Error()}})
	}

	details := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, apperrors.FieldError{
			Field:   fe.Field(),
			Message: describe(fe),
		})
	}
	return apperrors.Validation(details)
}

// Field returns a single-field validation error
func Field(field, message string) *apperrors.AppError {
	return apperrors.Validation([]apperrors.FieldError{{Field: field, Message: message}})
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "phone":
		return "must be a valid mobile phone number"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "maxbytes":
		return fmt.Sprintf("must be at most %s bytes", fe.Param())
	case "cents":
		return "must have at most two decimal places"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}
