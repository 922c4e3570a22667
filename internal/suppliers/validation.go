package suppliers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

func (s *Service) validate(sup Supplier) error {
	fields := make(map[string]string)
	if err := s.validator.Struct(sup); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			switch fe.Tag() {
			case "required":
				fields[fe.Field()] = "is required"
			case "email":
				fields[fe.Field()] = "must be a valid email address"
			default:
				fields[fe.Field()] = "is too long"
			}
		}
	}
	if strings.TrimSpace(sup.Name) == "" {
		fields["name"] = "is required"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
