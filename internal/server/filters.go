package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/skladops/sklad/internal/storage"
)

func (s *Server) handleListFilters(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()

	items, err := s.repo.ListFilters(ctx)
	if err != nil {
		s.log.Error("list filters", "error", err)
		writeErr(w, err, "Фильтр не найден")
		return
	}
	writeJSON(w, filtersToWire(items), http.StatusOK)
}

func (s *Server) handleCreateFilter(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name       string `json:"name"`
		FilterData string `json:"filter_data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, "Некорректный JSON", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		writeDetail(w, "Не указано название фильтра", http.StatusBadRequest)
		return
	}
	if in.FilterData == "" {
		in.FilterData = "{}"
	} else if !json.Valid([]byte(in.FilterData)) {
		writeDetail(w, "Некорректные данные фильтра", http.StatusBadRequest)
		return
	}

	ctx, cancel := s.ctx(r)
	defer cancel()

	created, err := s.repo.CreateFilter(ctx, storage.UserFilter{
		Name:        strings.TrimSpace(in.Name),
		FilterData:  in.FilterData,
		CreatedDate: s.now(),
	})
	if err != nil {
		s.log.Error("create filter", "error", err)
		writeErr(w, err, "Фильтр не найден")
		return
	}
	writeJSON(w, filterToWire(created), http.StatusCreated)
}

func (s *Server) handleDeleteFilter(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeDetail(w, "Некорректный ID фильтра", http.StatusBadRequest)
		return
	}

	ctx, cancel := s.ctx(r)
	defer cancel()

	if err := s.repo.DeleteFilter(ctx, id); err != nil {
		writeErr(w, err, "Фильтр не найден")
		return
	}
	writeJSON(w, map[string]any{"message": "Фильтр удален"}, http.StatusOK)
}
