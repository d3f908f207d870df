// Package handler implements the HTTP endpoints of the auth service.
// Handlers are thin: validate the request shape, call the provider,
// translate the response, and map failures onto the error taxonomy.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/deltacron/authgate/internal/util"
)

// errorBody is the uniform error response shape.
type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// respondError writes the taxonomy-mapped error response.
func respondError(c *gin.Context, err error) {
	status, kind := util.HTTPStatus(err)

	body := errorBody{
		Error:   kind,
		Message: err.Error(),
	}

	var validationErr *util.ValidationError
	if errors.As(err, &validationErr) && len(validationErr.Fields) > 0 {
		body.Fields = validationErr.Fields
	}

	c.JSON(status, body)
}

// bindJSON decodes and validates the request body. Malformed JSON gets a
// 400, failed field validation a 422.
func bindJSON(c *gin.Context, out interface{}) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			fields := make(map[string]string, len(validationErrs))
			for _, fe := range validationErrs {
				fields[strings.ToLower(fe.Field())] = validationReason(fe)
			}
			respondError(c, util.NewValidationErrorWithFields("request validation failed", fields))
			return false
		}

		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &syntaxErr), errors.As(err, &typeErr),
			errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			c.JSON(http.StatusBadRequest, errorBody{
				Error:   "bad_request",
				Message: "malformed request body",
			})
		default:
			respondError(c, util.NewValidationError(err.Error()))
		}
		return false
	}
	return true
}

func validationReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "value is too short"
	case "max":
		return "value is too long"
	default:
		return "invalid value"
	}
}
