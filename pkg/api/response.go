package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/drive"
)

// Response is the envelope of every JSON reply.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Data    any    `json:"data,omitempty"`
}

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func sendJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Debug("API: failed to encode response: %v", err)
	}
}

func sendError(w http.ResponseWriter, statusCode int, message string, kind drive.Kind) {
	sendJSON(w, statusCode, Response{Success: false, Message: message, Kind: string(kind)})
}

func sendSuccess(w http.ResponseWriter, statusCode int, message string, data any) {
	sendJSON(w, statusCode, Response{Success: true, Message: message, Data: data})
}

// sendDriveError maps a drive error to its status code.
func sendDriveError(w http.ResponseWriter, err error) {
	kind := drive.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		logger.Error("API: %v", err)
	}
	sendError(w, status, err.Error(), kind)
}

func statusFor(kind drive.Kind) int {
	switch kind {
	case drive.KindInvalidArgument:
		return http.StatusBadRequest
	case drive.KindNotFound:
		return http.StatusNotFound
	case drive.KindConflict:
		return http.StatusConflict
	case drive.KindQuotaExceeded:
		return http.StatusInsufficientStorage
	case drive.KindObjectStore:
		return http.StatusBadGateway
	case drive.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes and validates a JSON request body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, http.StatusRequestEntityTooLarge, "request body too large", drive.KindInvalidArgument)
			return false
		}
		sendError(w, http.StatusBadRequest, "invalid request body", drive.KindInvalidArgument)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		sendError(w, http.StatusBadRequest, formatValidationError(err), drive.KindInvalidArgument)
		return false
	}
	return true
}

func formatValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		fields = append(fields, fmt.Sprintf("%s is %s", e.Field(), e.Tag()))
	}
	return strings.Join(fields, ", ")
}

