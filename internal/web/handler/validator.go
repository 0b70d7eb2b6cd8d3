package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals

type (
	// FieldError describes a single failed validation rule.
	FieldError struct {
		Field string `json:"field"`
		Tag   string `json:"tag"`
		Param string `json:"param,omitempty"`
	}

	// ValidationError is returned for request bodies that fail validation.
	ValidationError struct {
		Message string       `json:"error"`
		Fields  []FieldError `json:"fields"`
	}
)

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}

	return "validation failed: " + strings.Join(names, ", ")
}

// Validate checks data against its validate tags.
func Validate(data any) error {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err //nolint:wrapcheck
	}

	out := &ValidationError{Message: "validation failed"}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()})
	}

	return out
}

// Bind parses the request body into out and validates it.
func Bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return ErrBadRequest
	}

	return Validate(out)
}
