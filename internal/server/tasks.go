package server

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/skladops/sklad/internal/model"
	"github.com/skladops/sklad/internal/storage"
)

const detailTaskNotFound = "Задание не найдено"

// fieldLabels translate wire field names for history details.
var fieldLabels = map[string]string{
	"name":        "наименование",
	"description": "описание",
	"status":      "статус",
	"priority":    "приоритет",
	"responsible": "ответственный",
	"due_date":    "срок выполнения",
}

func (s *Server) ctx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}

func parseID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.TaskFilter{
		Search:      q.Get("search"),
		Responsible: q.Get("responsible"),
		SortBy:      q.Get("sort_by"),
		SortOrder:   q.Get("sort_order"),
		Now:         s.now(),
	}
	if v := q.Get("archived"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeDetail(w, "Некорректное значение archived", http.StatusBadRequest)
			return
		}
		filter.Archived = b
	}
	if v := q.Get("overdue"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeDetail(w, "Некорректное значение overdue", http.StatusBadRequest)
			return
		}
		filter.Overdue = b
	}
	if v := q.Get("status"); v != "" {
		if !model.Status(v).IsValid() {
			writeDetail(w, "Некорректный статус", http.StatusBadRequest)
			return
		}
		filter.Status = v
	}
	if v := q.Get("priority"); v != "" {
		if !model.Priority(v).IsValid() {
			writeDetail(w, "Некорректный приоритет", http.StatusBadRequest)
			return
		}
		filter.Priority = v
	}

	ctx, cancel := s.ctx(r)
	defer cancel()

	tasks, err := s.repo.ListTasks(ctx, filter)
	if err != nil {
		s.log.Error("list tasks", "error", err)
		writeErr(w, err, detailTaskNotFound)
		return
	}
	writeJSON(w, tasksToWire(tasks), http.StatusOK)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeDetail(w, "Некорректный ID задания", http.StatusBadRequest)
		return
	}

	ctx, cancel := s.ctx(r)
	defer cancel()

	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		writeErr(w, err, detailTaskNotFound)
		return
	}
	writeJSON(w, taskToWire(task), http.StatusOK)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in model.TaskDraft
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, "Некорректный JSON", http.StatusBadRequest)
		return
	}

	ctx, cancel := s.ctx(r)
	defer cancel()

	task, detail, status := s.createFromDraft(ctx, in)
	if detail != "" {
		writeDetail(w, detail, status)
		return
	}
	writeJSON(w, taskToWire(task), http.StatusCreated)
}

// createFromDraft validates and persists a draft, returning a Russian detail
// message on failure. Shared by the create handler and the importer.
func (s *Server) createFromDraft(ctx context.Context, in model.TaskDraft) (storage.Task, string, int) {
	if strings.TrimSpace(in.Number) == "" {
		return storage.Task{}, "Номер задания обязателен", http.StatusBadRequest
	}
	if strings.TrimSpace(in.Name) == "" {
		return storage.Task{}, "Наименование задания обязательно", http.StatusBadRequest
	}
	if in.Status == "" {
		in.Status = model.StatusDevelopment
	} else if !in.Status.IsValid() {
		return storage.Task{}, "Некорректный статус", http.StatusBadRequest
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	} else if !in.Priority.IsValid() {
		return storage.Task{}, "Некорректный приоритет", http.StatusBadRequest
	}

	now := s.now()
	record := storage.Task{
		Number:      strings.TrimSpace(in.Number),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Status:      string(in.Status),
		Priority:    string(in.Priority),
		Responsible: in.Responsible,
		DueDate:     in.DueDate,
		CreatedDate: now,
		UpdatedDate: now,
	}
	if in.Status == model.StatusDone {
		record.CompletedDate = &now
	}

	created, err := s.repo.CreateTask(ctx, record)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateNumber) {
			return storage.Task{}, fmt.Sprintf("Задание с номером '%s' уже существует", record.Number), http.StatusBadRequest
		}
		s.log.Error("create task", "error", err)
		return storage.Task{}, "Внутренняя ошибка сервера", http.StatusInternalServerError
	}

	if err := s.repo.AddHistory(ctx, storage.HistoryEntry{
		TaskID:    created.ID,
		Action:    "создание",
		Details:   "Задание создано",
		Timestamp: now,
	}); err != nil {
		s.log.Error("log task creation", "error", err)
	}
	return created, "", 0
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeDetail(w, "Некорректный ID задания", http.StatusBadRequest)
		return
	}
	var in model.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, "Некорректный JSON", http.StatusBadRequest)
		return
	}
	if in.IsEmpty() {
		writeDetail(w, "Не указаны поля для обновления", http.StatusBadRequest)
		return
	}
	if in.Status != nil && !in.Status.IsValid() {
		writeDetail(w, "Некорректный статус", http.StatusBadRequest)
		return
	}
	if in.Priority != nil && !in.Priority.IsValid() {
		writeDetail(w, "Некорректный приоритет", http.StatusBadRequest)
		return
	}

	ctx, cancel := s.ctx(r)
	defer cancel()

	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		writeErr(w, err, detailTaskNotFound)
		return
	}

	now := s.now()
	changes := applyPatch(&task, in, now)
	if len(changes) == 0 {
		// Every field already had the requested value.
		writeJSON(w, taskToWire(task), http.StatusOK)
		return
	}
	task.UpdatedDate = now

	if err := s.repo.UpdateTask(ctx, task); err != nil {
		s.log.Error("update task", "error", err)
		writeErr(w, err, detailTaskNotFound)
		return
	}
	for _, ch := range changes {
		ch.TaskID = task.ID
		ch.Timestamp = now
		if err := s.repo.AddHistory(ctx, ch); err != nil {
			s.log.Error("log task change", "error", err)
		}
	}
	writeJSON(w, taskToWire(task), http.StatusOK)
}

// applyPatch mutates the stored task and returns one history entry per field
// that actually changed.
func applyPatch(task *storage.Task, in model.TaskPatch, now time.Time) []storage.HistoryEntry {
	changes := make([]storage.HistoryEntry, 0, 6)
	record := func(field, oldVal, newVal string) {
		changes = append(changes, storage.HistoryEntry{
			Action:    "изменение",
			Details:   fmt.Sprintf("%s: %s → %s", fieldLabels[field], displayValue(oldVal), displayValue(newVal)),
			FieldName: field,
			OldValue:  oldVal,
			NewValue:  newVal,
			CanRevert: true,
		})
	}

	if in.Name != nil && *in.Name != task.Name {
		record("name", task.Name, *in.Name)
		task.Name = *in.Name
	}
	if in.Description != nil && *in.Description != task.Description {
		record("description", task.Description, *in.Description)
		task.Description = *in.Description
	}
	if in.Status != nil && string(*in.Status) != task.Status {
		record("status", task.Status, string(*in.Status))
		applyStatusChange(task, string(*in.Status), now)
	}
	if in.Priority != nil && string(*in.Priority) != task.Priority {
		record("priority", task.Priority, string(*in.Priority))
		task.Priority = string(*in.Priority)
	}
	if in.Responsible != nil && *in.Responsible != task.Responsible {
		record("responsible", task.Responsible, *in.Responsible)
		task.Responsible = *in.Responsible
	}
	if in.DueDate != nil && !equalTimePtr(task.DueDate, in.DueDate) {
		record("due_date", timeValue(task.DueDate), timeValue(in.DueDate))
		due := *in.DueDate
		task.DueDate = &due
	}
	return changes
}

// applyStatusChange keeps the completion timestamp in lockstep with the
// status: entering the done state stamps it, leaving clears it.
func applyStatusChange(task *storage.Task, newStatus string, now time.Time) {
	old := task.Status
	task.Status = newStatus
	if newStatus == string(model.StatusDone) {
		task.CompletedDate = &now
		return
	}
	if old == string(model.StatusDone) {
		task.CompletedDate = nil
	}
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func timeValue(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}

func displayValue(v string) string {
	if v == "" {
		return "—"
	}
	return v
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeDetail(w, "Некорректный ID задания", http.StatusBadRequest)
		return
	}

	ctx, cancel := s.ctx(r)
	defer cancel()

	if err := s.repo.DeleteTask(ctx, id); err != nil {
		writeErr(w, err, detailTaskNotFound)
		return
	}
	writeJSON(w, map[string]any{"message": "Задание удалено"}, http.StatusOK)
}

func (s *Server) handleTaskHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeDetail(w, "Некорректный ID задания", http.StatusBadRequest)
		return
	}

	ctx, cancel := s.ctx(r)
	defer cancel()

	if _, err := s.repo.GetTask(ctx, id); err != nil {
		writeErr(w, err, detailTaskNotFound)
		return
	}
	entries, err := s.repo.ListHistory(ctx, id)
	if err != nil {
		s.log.Error("list history", "error", err)
		writeErr(w, err, detailTaskNotFound)
		return
	}
	writeJSON(w, historiesToWire(entries), http.StatusOK)
}

func (s *Server) handleRevert(w http.ResponseWriter, r *http.Request) {
	taskID, ok := parseID(r, "id")
	if !ok {
		writeDetail(w, "Некорректный ID задания", http.StatusBadRequest)
		return
	}
	historyID, ok := parseID(r, "historyID")
	if !ok {
		writeDetail(w, "Некорректный ID записи истории", http.StatusBadRequest)
		return
	}

	ctx, cancel := s.ctx(r)
	defer cancel()

	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		writeErr(w, err, detailTaskNotFound)
		return
	}
	entry, err := s.repo.GetHistory(ctx, historyID)
	if err != nil || entry.TaskID != taskID {
		writeDetail(w, "Запись истории не найдена", http.StatusNotFound)
		return
	}
	if !entry.CanRevert {
		writeDetail(w, "Это изменение нельзя отменить", http.StatusBadRequest)
		return
	}

	now := s.now()
	current, err := revertField(&task, entry, now)
	if err != nil {
		writeDetail(w, "Это изменение нельзя отменить", http.StatusBadRequest)
		return
	}
	task.UpdatedDate = now

	if err := s.repo.UpdateTask(ctx, task); err != nil {
		s.log.Error("revert task", "error", err)
		writeErr(w, err, detailTaskNotFound)
		return
	}
	if err := s.repo.AddHistory(ctx, storage.HistoryEntry{
		TaskID:    taskID,
		Action:    "откат",
		Details:   fmt.Sprintf("откат изменения: %s: %s → %s", fieldLabels[entry.FieldName], displayValue(current), displayValue(entry.OldValue)),
		Timestamp: now,
		FieldName: entry.FieldName,
		OldValue:  current,
		NewValue:  entry.OldValue,
		CanRevert: true,
	}); err != nil {
		s.log.Error("log revert", "error", err)
	}
	writeJSON(w, map[string]any{"message": "Изменение отменено"}, http.StatusOK)
}

// revertField writes the entry's old value back onto the task and returns
// the value that was current before the revert.
func revertField(task *storage.Task, entry storage.HistoryEntry, now time.Time) (string, error) {
	switch entry.FieldName {
	case "name":
		current := task.Name
		task.Name = entry.OldValue
		return current, nil
	case "description":
		current := task.Description
		task.Description = entry.OldValue
		return current, nil
	case "status":
		if !model.Status(entry.OldValue).IsValid() {
			return "", fmt.Errorf("invalid status %q", entry.OldValue)
		}
		current := task.Status
		applyStatusChange(task, entry.OldValue, now)
		return current, nil
	case "priority":
		if !model.Priority(entry.OldValue).IsValid() {
			return "", fmt.Errorf("invalid priority %q", entry.OldValue)
		}
		current := task.Priority
		task.Priority = entry.OldValue
		return current, nil
	case "responsible":
		current := task.Responsible
		task.Responsible = entry.OldValue
		return current, nil
	case "due_date":
		current := timeValue(task.DueDate)
		if entry.OldValue == "" {
			task.DueDate = nil
			return current, nil
		}
		tm, err := time.Parse(time.RFC3339, entry.OldValue)
		if err != nil {
			return "", err
		}
		task.DueDate = &tm
		return current, nil
	default:
		return "", fmt.Errorf("field %q is not revertible", entry.FieldName)
	}
}

type bulkUpdateIn struct {
	TaskIDs  []int64 `json:"task_ids"`
	Status   string  `json:"status"`
	Priority string  `json:"priority"`
}

func (s *Server) handleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	var in bulkUpdateIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeDetail(w, "Некорректный JSON", http.StatusBadRequest)
		return
	}
	if len(in.TaskIDs) == 0 {
		writeDetail(w, "Не указаны ID заданий для обновления", http.StatusBadRequest)
		return
	}
	if in.Status == "" && in.Priority == "" {
		writeDetail(w, "Не указаны поля для обновления", http.StatusBadRequest)
		return
	}
	if in.Status != "" && !model.Status(in.Status).IsValid() {
		writeDetail(w, "Некорректный статус", http.StatusBadRequest)
		return
	}
	if in.Priority != "" && !model.Priority(in.Priority).IsValid() {
		writeDetail(w, "Некорректный приоритет", http.StatusBadRequest)
		return
	}

	ctx, cancel := s.ctx(r)
	defer cancel()

	tasks, err := s.repo.TasksByIDs(ctx, in.TaskIDs)
	if err != nil {
		s.log.Error("bulk update lookup", "error", err)
		writeErr(w, err, detailTaskNotFound)
		return
	}
	if len(tasks) == 0 {
		writeDetail(w, "Задания не найдены", http.StatusNotFound)
		return
	}

	now := s.now()
	updated := 0
	for _, task := range tasks {
		patch := model.TaskPatch{}
		if in.Status != "" {
			status := model.Status(in.Status)
			patch.Status = &status
		}
		if in.Priority != "" {
			priority := model.Priority(in.Priority)
			patch.Priority = &priority
		}
		changes := applyPatch(&task, patch, now)
		if len(changes) == 0 {
			continue
		}
		task.UpdatedDate = now
		if err := s.repo.UpdateTask(ctx, task); err != nil {
			s.log.Error("bulk update task", "id", task.ID, "error", err)
			continue
		}
		for _, ch := range changes {
			ch.TaskID = task.ID
			ch.Timestamp = now
			if err := s.repo.AddHistory(ctx, ch); err != nil {
				s.log.Error("log bulk change", "error", err)
			}
		}
		updated++
	}
	writeJSON(w, map[string]any{"message": fmt.Sprintf("Обновлено заданий: %d", updated)}, http.StatusOK)
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var ids []int64
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		writeDetail(w, "Некорректный JSON", http.StatusBadRequest)
		return
	}
	if len(ids) == 0 {
		writeDetail(w, "Не указаны ID заданий для удаления", http.StatusBadRequest)
		return
	}

	ctx, cancel := s.ctx(r)
	defer cancel()

	n, err := s.repo.DeleteTasks(ctx, ids)
	if err != nil {
		s.log.Error("bulk delete", "error", err)
		writeErr(w, err, detailTaskNotFound)
		return
	}
	if n == 0 {
		writeDetail(w, "Задания не найдены", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{"message": fmt.Sprintf("Удалено заданий: %d", n)}, http.StatusOK)
}

func (s *Server) handleArchiveSweep(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()

	cutoff := s.now().Add(-s.retention)
	n, err := s.repo.ArchiveDone(ctx, cutoff)
	if err != nil {
		s.log.Error("archive sweep", "error", err)
		writeErr(w, err, detailTaskNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"message":        fmt.Sprintf("Архивировано заданий: %d", n),
		"archived_count": n,
	}, http.StatusOK)
}

func (s *Server) handleTaskStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.ctx(r)
	defer cancel()

	stats, err := s.repo.TaskStats(ctx, s.now())
	if err != nil {
		s.log.Error("task stats", "error", err)
		writeErr(w, err, detailTaskNotFound)
		return
	}
	writeJSON(w, model.TaskStats{
		TotalTasks:    stats.Total,
		OverdueCount:  stats.Overdue,
		StatusStats:   stats.ByStatus,
		PriorityStats: stats.ByPriority,
	}, http.StatusOK)
}

// importColumns maps CSV header names to draft fields.
var importColumns = map[string]string{
	"номер":         "number",
	"наименование":  "name",
	"описание":      "description",
	"статус":        "status",
	"приоритет":     "priority",
	"ответственный": "responsible",
}

func (s *Server) handleImportTasks(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, "Файл не передан", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ctx, cancel := s.ctx(r)
	defer cancel()

	result, detail := s.importCSV(ctx, file)
	if detail != "" {
		writeDetail(w, detail, http.StatusBadRequest)
		return
	}
	writeJSON(w, result, http.StatusOK)
}

func (s *Server) importCSV(ctx context.Context, file io.Reader) (model.ImportResult, string) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return model.ImportResult{}, "Не удалось прочитать файл"
	}
	fields := make(map[int]string, len(header))
	for i, name := range header {
		if field, ok := importColumns[strings.ToLower(strings.TrimSpace(name))]; ok {
			fields[i] = field
		}
	}
	hasNumber := false
	hasName := false
	for _, f := range fields {
		if f == "number" {
			hasNumber = true
		}
		if f == "name" {
			hasName = true
		}
	}
	if !hasNumber || !hasName {
		return model.ImportResult{}, "Файл не содержит обязательных колонок 'номер' и 'наименование'"
	}

	result := model.ImportResult{Errors: []string{}}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Строка %d: некорректный формат строки", line))
			continue
		}

		var draft model.TaskDraft
		for i, value := range record {
			value = strings.TrimSpace(value)
			switch fields[i] {
			case "number":
				draft.Number = value
			case "name":
				draft.Name = value
			case "description":
				draft.Description = value
			case "status":
				draft.Status = model.Status(value)
			case "priority":
				draft.Priority = model.Priority(value)
			case "responsible":
				draft.Responsible = value
			}
		}

		if _, detail, _ := s.createFromDraft(ctx, draft); detail != "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Строка %d: %s", line, detail))
			continue
		}
		result.Created++
	}
	result.Message = fmt.Sprintf("Импортировано заданий: %d", result.Created)
	return result, ""
}
