package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/foodshare/pickup-api/internal/apperror"
)

// maxBodyBytes caps request bodies; the largest legitimate body is a
// pickup with a few paragraphs of text.
const maxBodyBytes = 64 << 10

// validate is safe for concurrent use and caches struct metadata, so one
// instance serves every handler.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so the client can match them to
	// form inputs.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads the request body into dst without validating it.
// Unknown fields are ignored: the web client sends extras such as
// confirmPassword on some forms.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperror.ValidationFailed("", "Request body too large")
		}
		return apperror.ValidationFailed("", "Invalid JSON body")
	}
	return nil
}

// decodeAndValidate decodes the body and runs the struct's validate tags,
// reporting every failing field at once.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := decodeJSON(w, r, dst); err != nil {
		return err
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("handler: validating request: %w", err)
		}
		details := make([]apperror.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, apperror.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
		}
		return apperror.Invalid("Validation error", details)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "Required"
	case "email":
		return "Please enter a valid email"
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("Must be %s characters or less", fe.Param())
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "eqfield":
		return "Passwords don't match"
	case "gtefield":
		return "Must not be before " + lowerFirst(fe.Param())
	case "gt":
		return "Must be greater than " + fe.Param()
	case "url":
		return "Must be a valid URL"
	}
	return "Invalid value"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
