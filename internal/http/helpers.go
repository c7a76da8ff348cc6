package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"bolso/internal/core"
	"bolso/internal/parser"
	"bolso/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Sum   *int   `json:"sum,omitempty"` // actual total for allocation-sum rejections
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps domain errors onto HTTP statuses. Validation
// failures are 422, missing records 404, anything else 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var sumErr *core.InvalidSumError
	switch {
	case errors.As(err, &sumErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: sumErr.Error(), Sum: &sumErr.Sum})
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrUnknownCategory),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidMonthKey),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, parser.ErrParseFailure):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, parser.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// centsToDecimal renders cents as a dot-decimal string ("45.90"), the
// wire form for amounts leaving the API.
func centsToDecimal(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10) + "."
	if rem := cents % 100; rem < 10 {
		s += "0" + strconv.FormatInt(rem, 10)
	} else {
		s += strconv.FormatInt(rem, 10)
	}
	if neg {
		return "-" + s
	}
	return s
}
