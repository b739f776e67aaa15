package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DRSN-tech/image-catalog/pkg/e"
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

func ToHTTPResponse(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrMissingQuery):
		return http.StatusBadRequest, e.ErrMissingQuery.Error()
	case errors.Is(err, e.ErrMalformedEvent):
		return http.StatusBadRequest, e.ErrMalformedEvent.Error()
	case errors.Is(err, e.ErrMissingBucket):
		return http.StatusBadRequest, e.ErrMissingBucket.Error()
	case errors.Is(err, e.ErrMissingObjectKey):
		return http.StatusBadRequest, e.ErrMissingObjectKey.Error()
	case errors.Is(err, e.ErrBadRequest):
		return http.StatusBadRequest, e.ErrBadRequest.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	WriteSuccess(w, code, NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeJSON читает тело запроса не больше maxBytes. Ошибка разбора - ErrBadRequest.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return e.Wrap(err.Error(), e.ErrBadRequest)
	}
	return nil
}
