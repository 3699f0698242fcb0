package api

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gitlab.com/yelinaung/finance-concierge/internal/apperr"
	"gitlab.com/yelinaung/finance-concierge/internal/logger"
)

const unexpectedError = "An unexpected error occurred. Please try again later."

// Envelope is the body of every API response.
type Envelope struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message,omitempty"`
	Data       any               `json:"data,omitempty"`
	Error      string            `json:"error,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	Path       string            `json:"path"`
	StatusCode int               `json:"statusCode"`
}

func ok(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{
		Success:    true,
		Message:    message,
		Data:       data,
		Timestamp:  time.Now().UTC(),
		Path:       c.Request.URL.Path,
		StatusCode: status,
	})
}

// fail writes err as an error envelope and aborts the chain.
func fail(c *gin.Context, err error) {
	env := Envelope{
		Timestamp: time.Now().UTC(),
		Path:      c.Request.URL.Path,
	}

	var verrs validator.ValidationErrors
	switch e, isApp := apperr.As(err); {
	case isApp:
		env.StatusCode = e.HTTPStatus()
		env.Error = e.Label()
		env.Message = e.Message
		env.Errors = e.Fields
		if e.Kind == apperr.KindInternal || e.Kind == apperr.KindChat {
			logger.Log.Error().Err(err).Str("path", env.Path).Msg("Request failed")
		}
	case errors.As(err, &verrs):
		env.StatusCode = http.StatusBadRequest
		env.Error = "Validation Failed"
		env.Message = "Validation failed"
		env.Errors = fieldErrors(verrs)
	default:
		logger.Log.Error().Err(err).Str("path", env.Path).Msg("Unhandled error")
		env.StatusCode = http.StatusInternalServerError
		env.Error = "Internal Server Error"
		env.Message = unexpectedError
	}

	c.AbortWithStatusJSON(env.StatusCode, env)
}

// bindFailed reports a request body that could not be decoded or validated.
func bindFailed(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fail(c, err)
		return
	}
	fail(c, apperr.BadRequest("Malformed request body"))
}

// fieldErrors maps each failed field (by json name) to a readable problem.
func fieldErrors(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "hexcolor":
		return "must be a hex color like #AABBCC"
	case "datetime":
		return "must be a date in " + fe.Param() + " format"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return "is invalid"
}

// jsonTagName makes validator report fields by their json name.
func jsonTagName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}
