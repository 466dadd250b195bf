package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/skladops/sklad/internal/model"
	"github.com/skladops/sklad/internal/storage"
)

func (s *Server) handleListReceptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.ReceptionFilter{Search: q.Get("search")}
	if v := q.Get("status"); v != "" {
		if !model.ReceptionStatus(v).IsValid() {
			writeDetail(w, "Некорректный статус приемки", http.StatusBadRequest)
			return
		}
		filter.Status = v
	}

	ctx, cancel := s.ctx(r)
	defer cancel()

	items, err := s.repo.ListReceptions(ctx, filter)
	if err != nil {
		s.log.Error("list receptions", "error", err)
		writeErr(w, err, "Записи не найдены")
		return
	}
	writeJSON(w, receptionsToWire(items), http.StatusOK)
}

func (s *Server) handleCreateReception(w http.ResponseWriter, r *http.Request) {
	var in model.ReceptionDraft
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, "Некорректный JSON", http.StatusBadRequest)
		return
	}
	if err := in.Validate(); err != nil {
		writeDetail(w, "Заполнены не все обязательные поля", http.StatusBadRequest)
		return
	}
	if in.Status == "" {
		in.Status = model.ReceptionAccepted
	}

	ctx, cancel := s.ctx(r)
	defer cancel()

	now := s.now()
	created, err := s.repo.CreateReception(ctx, storage.Reception{
		Date:            now,
		OrderNumber:     strings.TrimSpace(in.OrderNumber),
		Designation:     strings.TrimSpace(in.Designation),
		Name:            strings.TrimSpace(in.Name),
		Quantity:        strings.TrimSpace(in.Quantity),
		RouteCardNumber: strings.TrimSpace(in.RouteCardNumber),
		Status:          string(in.Status),
		CreatedDate:     now,
	})
	if err != nil {
		s.log.Error("create reception", "error", err)
		writeErr(w, err, "Записи не найдены")
		return
	}
	writeJSON(w, receptionToWire(created), http.StatusCreated)
}
