package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"financas/internal/core"
	"financas/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps store and validation errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "record not found")
	case isValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidationError(err error) bool {
	validation := []error{
		core.ErrInvalidAmount,
		core.ErrInvalidKind,
		core.ErrInvalidCategory,
		core.ErrInvalidStatus,
		core.ErrInvalidWeek,
		core.ErrInvalidTarget,
		core.ErrNegativeCurrent,
		core.ErrEmptyDescription,
		core.ErrEmptyName,
	}
	for _, v := range validation {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// parseMonth returns the requested YYYY-MM month key, defaulting to the
// current month.
func parseMonth(r *http.Request) (string, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return time.Now().Format("2006-01"), nil
	}
	if _, err := time.Parse("2006-01", v); err != nil {
		return "", fmt.Errorf("invalid month %q: want YYYY-MM", v)
	}
	return v, nil
}

// parseNonNegativeCents parses amounts where zero is meaningful, such
// as goal progress. Empty input counts as zero.
func parseNonNegativeCents(s string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, nil
	}
	return core.ParseNonNegativeDecimalToCents(trimmed)
}

// parseDate parses a date string in YYYY-MM-DD format.
func parseDate(dateStr string) (core.Date, error) {
	parsedTime, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return core.Date{}, err
	}
	return core.Date{Time: parsedTime}, nil
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
