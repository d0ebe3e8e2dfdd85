package api

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names so messages match the request body.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateConnectionInput checks that all required connection fields are
// present. Surrounding whitespace does not count as a value. It returns an
// invalid_request error naming the first missing field.
func ValidateConnectionInput(in ConnectionInput) *APIError {
	in.Name = strings.TrimSpace(in.Name)
	in.DBPath = strings.TrimSpace(in.DBPath)
	in.CollectionName = strings.TrimSpace(in.CollectionName)
	in.EmbeddingModel = strings.TrimSpace(in.EmbeddingModel)

	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := verrs[0].Field()
		return NewInvalidRequestError(field, field+" is required")
	}
	return NewInvalidRequestError("", err.Error())
}
