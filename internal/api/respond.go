package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "raccoon/internal/errors"
	"raccoon/internal/logger"
	"raccoon/internal/utils"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// clock accepts HH:MM and HH:MM:SS.
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return utils.ValidClock(fl.Field().String())
	})
	return v
}

// validateStruct runs the struct tags and converts failures to a field map.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = fieldMessage(fe)
	}
	return &apperrors.ValidationError{Fields: fields}
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "clock":
		return "must be a time in HH:MM format"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.ErrorLogger.WithError(err).Error("Failed to encode response")
	}
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeError maps err onto a status code and a client-safe body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.StatusFor(err)
	body := errorResponse{Error: err.Error()}

	var (
		httpErr *apperrors.HTTPError
		verr    *apperrors.ValidationError
	)
	switch {
	case errors.As(err, &httpErr):
		body.Error = httpErr.Message
	case errors.As(err, &verr):
		body = errorResponse{Error: "validation failed", Fields: verr.Fields}
	case errors.Is(err, apperrors.ErrEmptyUpdate):
		body.Error = apperrors.ErrEmptyUpdate.Error()
	case errors.Is(err, apperrors.ErrInvalidToken):
		body.Error = "Invalid or expired token"
	case errors.Is(err, apperrors.ErrNotFound):
		body.Error = "Reservation not found"
	case apperrors.IsPersistence(err):
		body.Error = "Database error"
	case errors.Is(err, apperrors.ErrInvalidQuery):
	default:
		body.Error = "Internal server error"
	}

	if status >= http.StatusInternalServerError {
		requestLogger(r).WithError(err).Error("Request failed")
	}
	writeJSON(w, status, body)
}
