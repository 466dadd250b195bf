package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/skladops/sklad/internal/storage"
)

func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeDetail emits the error envelope the admin panel client expects.
func writeDetail(w http.ResponseWriter, msg string, statusCode int) {
	writeJSON(w, map[string]any{"detail": msg}, statusCode)
}

func writeErr(w http.ResponseWriter, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeDetail(w, notFoundMsg, http.StatusNotFound)
	case errors.Is(err, storage.ErrDuplicateNumber):
		writeDetail(w, err.Error(), http.StatusBadRequest)
	default:
		writeDetail(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
	}
}
