package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/templatehash/platform/internal/apperr"
)

// errorResponse is the uniform failure payload.
type errorResponse struct {
	Success bool        `json:"success"`
	Code    apperr.Code `json:"code"`
	Error   string      `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var msg string
	var appErr *apperr.AppError
	if e, ok := err.(*apperr.AppError); ok {
		appErr = e
		msg = e.Message
	} else {
		msg = err.Error()
	}

	status := apperr.HTTPStatusOf(err)
	if status >= 500 {
		slog.Error("request failed", "error", err)
	}
	code := apperr.CodeOf(err)
	if appErr != nil {
		code = appErr.Code
	}
	writeJSON(w, status, errorResponse{Success: false, Code: code, Error: msg})
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		return 0, apperr.Newf(apperr.CodeInvalidArgument, "invalid template id %q", r.PathValue("id"))
	}
	return id, nil
}

// formInt parses an optional integer form field, returning def when absent.
func formInt(r *http.Request, key string, def int) (int, error) {
	v := r.FormValue(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Newf(apperr.CodeInvalidArgument, "%s must be an integer, got %q", key, v)
	}
	return i, nil
}

// optionalCropRect extracts the crop_x..crop_h form fields. All four must be
// present together; a partial set is rejected rather than stored incomplete.
func optionalCropRect(r *http.Request) (x, y, w, h int, ok bool, err error) {
	fields := []string{"crop_x", "crop_y", "crop_w", "crop_h"}
	present := 0
	for _, f := range fields {
		if r.FormValue(f) != "" {
			present++
		}
	}
	if present == 0 {
		return 0, 0, 0, 0, false, nil
	}
	if present != len(fields) {
		return 0, 0, 0, 0, false, apperr.New(apperr.CodeInvalidArgument,
			"crop_x, crop_y, crop_w and crop_h must be provided together")
	}

	vals := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(r.FormValue(f))
		if err != nil || v < 0 {
			return 0, 0, 0, 0, false, apperr.Newf(apperr.CodeInvalidArgument,
				"%s must be a non-negative integer, got %q", f, r.FormValue(f))
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], vals[3], true, nil
}
