package util

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
)

// maxBodyBytes bounds request bodies read by DecodeJSONBody.
const maxBodyBytes = 1 << 20

func DecodeJSONBody[T any](r *http.Request) (T, error) {
	var zero T
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return zero, errors.WithMessage(err, "read body error")
	}

	var data T
	if len(body) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return zero, errors.WithMessage(err, "json unmarshal error")
	}
	return data, nil
}

func DecodeJSONBodyResponse[T any](r *http.Response) (T, error) {
	var zero T
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return zero, errors.WithMessage(err, "read body error")
	}

	var data T
	if err := json.Unmarshal(body, &data); err != nil {
		return zero, errors.WithMessage(err, "json unmarshal error")
	}
	return data, nil
}

func WriteJSONResponse[T any](w http.ResponseWriter, status int, data T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSONResponse(w, status, ErrorResponse{Error: message})
}

// PathInt64 parses the named path value as an id.
func PathInt64(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	if raw == "" {
		return 0, errors.Errorf("%s is required", name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Errorf("%s is an integer", name)
	}
	return id, nil
}

// QueryInt returns the integer query parameter, or def when missing or invalid.
func QueryInt(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
