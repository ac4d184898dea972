package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"task-manager/internal/logging"
	"task-manager/internal/model"
)

const codeInternal = "SYS-5000"

// errorResponse is the body of every failed request. Detail is the human
// readable reason clients display.
type errorResponse struct {
	Detail    string `json:"detail"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.FromContext(r.Context()).Error("failed to encode response", "error", err)
	}
}

// writeError maps err to a status through its domain code. Errors without
// a code are logged and reported as an opaque 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *model.DomainError
	if !errors.As(err, &de) {
		logging.FromContext(r.Context()).Error("internal error", "error", err)
		w.Header().Set("X-Error-Code", codeInternal)
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{
			Detail:    "internal server error",
			Code:      codeInternal,
			RequestID: requestIDFrom(r.Context()),
		})
		return
	}

	detail := de.Message
	if de.Details != "" {
		detail = de.Message + ": " + de.Details
	}
	status := errorCodeToHTTPStatus(de.Code)
	if status == http.StatusUnauthorized && de.Code == model.ErrInvalidToken.Code {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	w.Header().Set("X-Error-Code", de.Code)
	writeJSON(w, r, status, errorResponse{
		Detail:    detail,
		Code:      de.Code,
		RequestID: requestIDFrom(r.Context()),
	})
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4090"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-4010"), strings.HasSuffix(code, "-4011"):
		return http.StatusUnauthorized
	case strings.HasSuffix(code, "-4030"):
		return http.StatusForbidden
	case strings.HasSuffix(code, "-4000"), strings.HasSuffix(code, "-4001"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON body into v. Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return model.ErrValidation.WithDetails("request body is empty")
		}
		return model.ErrValidation.WithDetails("invalid JSON body: %v", err)
	}
	return nil
}

// isForm reports whether the body is url-encoded or multipart form data.
func isForm(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data"
}

func pathID(r *http.Request, name string) (uint, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil || id == 0 {
		return 0, model.ErrValidation.WithDetails("%s must be a positive integer, got %q", name, raw)
	}
	return uint(id), nil
}

func requireSelf(r *http.Request, id uint) error {
	if user := userFrom(r.Context()); user == nil || user.ID != id {
		return model.ErrForbidden.WithDetails("user %d", id)
	}
	return nil
}
