package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/skladops/sklad/internal/model"
	"github.com/skladops/sklad/internal/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, *Server) {
	t.Helper()
	repo, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "server-test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	if err := storage.MigrateUp(repo.DB()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer(log, repo, Config{
		HTTP:             HTTPConfig{Timeout: 5 * time.Second},
		ArchiveRetention: 7 * 24 * time.Hour,
	})
	mux := http.NewServeMux()
	srv.Register(mux)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, srv
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func detail(t *testing.T, payload map[string]any) string {
	t.Helper()
	d, _ := payload["detail"].(string)
	return d
}

func TestTaskLifecycle(t *testing.T) {
	ts, _ := newTestServer(t)

	var created model.Task
	code := doJSON(t, http.MethodPost, ts.URL+"/api/tasks", model.TaskDraft{
		Number: "2023/001",
		Name:   "Корпус насоса",
	}, &created)
	if code != http.StatusCreated {
		t.Fatalf("create status = %d", code)
	}
	if created.Status != model.StatusDevelopment || created.Priority != model.PriorityMedium {
		t.Fatalf("defaults not applied: %+v", created)
	}

	// Duplicate number is rejected with the exact detail text.
	var dupErr map[string]any
	code = doJSON(t, http.MethodPost, ts.URL+"/api/tasks", model.TaskDraft{
		Number: "2023/001",
		Name:   "Копия",
	}, &dupErr)
	if code != http.StatusBadRequest {
		t.Fatalf("duplicate status = %d", code)
	}
	if detail(t, dupErr) != "Задание с номером '2023/001' уже существует" {
		t.Fatalf("unexpected detail: %q", detail(t, dupErr))
	}

	// Moving to the done status stamps the completion date.
	done := model.StatusDone
	var updated model.Task
	code = doJSON(t, http.MethodPut, ts.URL+"/api/tasks/"+itoa(created.ID), model.TaskPatch{Status: &done}, &updated)
	if code != http.StatusOK {
		t.Fatalf("update status = %d", code)
	}
	if updated.Status != model.StatusDone || updated.CompletedDate == nil {
		t.Fatalf("completion not stamped: %+v", updated)
	}

	// Leaving the done status clears it again. Decode into a fresh value:
	// completed_date is omitted from the response once cleared, and a reused
	// target would keep the stale timestamp.
	inProgress := model.StatusInProgress
	var reverted model.Task
	code = doJSON(t, http.MethodPut, ts.URL+"/api/tasks/"+itoa(created.ID), model.TaskPatch{Status: &inProgress}, &reverted)
	if code != http.StatusOK {
		t.Fatalf("update status = %d", code)
	}
	if reverted.CompletedDate != nil {
		t.Fatalf("completion must clear when leaving done: %+v", reverted)
	}

	var history []model.HistoryEntry
	code = doJSON(t, http.MethodGet, ts.URL+"/api/tasks/"+itoa(created.ID)+"/history", nil, &history)
	if code != http.StatusOK {
		t.Fatalf("history status = %d", code)
	}
	// Creation plus two status changes, newest first.
	if len(history) != 3 || history[2].Action != "создание" {
		t.Fatalf("unexpected history: %+v", history)
	}
	if history[0].FieldName != "status" || !history[0].CanRevert {
		t.Fatalf("status change must be revertible: %+v", history[0])
	}

	var missing map[string]any
	code = doJSON(t, http.MethodGet, ts.URL+"/api/tasks/99999", nil, &missing)
	if code != http.StatusNotFound || detail(t, missing) != "Задание не найдено" {
		t.Fatalf("unexpected not-found response: %d %v", code, missing)
	}
}

func TestRevertChange(t *testing.T) {
	ts, _ := newTestServer(t)

	var created model.Task
	doJSON(t, http.MethodPost, ts.URL+"/api/tasks", model.TaskDraft{Number: "r-1", Name: "Вал"}, &created)

	done := model.StatusDone
	doJSON(t, http.MethodPut, ts.URL+"/api/tasks/"+itoa(created.ID), model.TaskPatch{Status: &done}, nil)

	var history []model.HistoryEntry
	doJSON(t, http.MethodGet, ts.URL+"/api/tasks/"+itoa(created.ID)+"/history", nil, &history)
	change := history[0]
	if change.FieldName != "status" {
		t.Fatalf("expected status change on top: %+v", change)
	}

	var res map[string]any
	code := doJSON(t, http.MethodPost, ts.URL+"/api/tasks/"+itoa(created.ID)+"/revert/"+itoa(change.ID), nil, &res)
	if code != http.StatusOK {
		t.Fatalf("revert status = %d: %v", code, res)
	}

	var got model.Task
	doJSON(t, http.MethodGet, ts.URL+"/api/tasks/"+itoa(created.ID), nil, &got)
	if got.Status != model.StatusDevelopment {
		t.Fatalf("status not reverted: %+v", got)
	}
	if got.CompletedDate != nil {
		t.Fatalf("completion must clear on revert out of done: %+v", got)
	}

	// Reverting a creation entry is rejected.
	doJSON(t, http.MethodGet, ts.URL+"/api/tasks/"+itoa(created.ID)+"/history", nil, &history)
	creationID := history[len(history)-1].ID
	var errRes map[string]any
	code = doJSON(t, http.MethodPost, ts.URL+"/api/tasks/"+itoa(created.ID)+"/revert/"+itoa(creationID), nil, &errRes)
	if code != http.StatusBadRequest || detail(t, errRes) != "Это изменение нельзя отменить" {
		t.Fatalf("unexpected response: %d %v", code, errRes)
	}
}

func TestBulkUpdateAndDelete(t *testing.T) {
	ts, _ := newTestServer(t)

	var ids []int64
	for _, num := range []string{"b-1", "b-2", "b-3"} {
		var created model.Task
		doJSON(t, http.MethodPost, ts.URL+"/api/tasks", model.TaskDraft{Number: num, Name: "Деталь " + num}, &created)
		ids = append(ids, created.ID)
	}

	var res map[string]any
	code := doJSON(t, http.MethodPut, ts.URL+"/api/tasks/bulk-update", map[string]any{
		"task_ids": ids[:2],
		"status":   "выполняется",
	}, &res)
	if code != http.StatusOK || res["message"] != "Обновлено заданий: 2" {
		t.Fatalf("unexpected bulk update response: %d %v", code, res)
	}

	// Missing fields and missing ids produce their own details.
	var errRes map[string]any
	code = doJSON(t, http.MethodPut, ts.URL+"/api/tasks/bulk-update", map[string]any{"task_ids": ids[:1]}, &errRes)
	if code != http.StatusBadRequest || detail(t, errRes) != "Не указаны поля для обновления" {
		t.Fatalf("unexpected response: %d %v", code, errRes)
	}
	code = doJSON(t, http.MethodPut, ts.URL+"/api/tasks/bulk-update", map[string]any{"status": "готово"}, &errRes)
	if code != http.StatusBadRequest || detail(t, errRes) != "Не указаны ID заданий для обновления" {
		t.Fatalf("unexpected response: %d %v", code, errRes)
	}

	code = doJSON(t, http.MethodDelete, ts.URL+"/api/tasks/bulk-delete", ids, &res)
	if code != http.StatusOK || res["message"] != "Удалено заданий: 3" {
		t.Fatalf("unexpected bulk delete response: %d %v", code, res)
	}

	code = doJSON(t, http.MethodDelete, ts.URL+"/api/tasks/bulk-delete", ids, &errRes)
	if code != http.StatusNotFound || detail(t, errRes) != "Задания не найдены" {
		t.Fatalf("deleting already-deleted ids: %d %v", code, errRes)
	}
}

func TestStatsPathDoesNotCollideWithTaskID(t *testing.T) {
	ts, srv := newTestServer(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	srv.now = func() time.Time { return now }

	past := now.Add(-24 * time.Hour)
	doJSON(t, http.MethodPost, ts.URL+"/api/tasks", model.TaskDraft{
		Number: "s-1", Name: "Просроченное", Status: model.StatusInProgress, Priority: model.PriorityUrgent, DueDate: &past,
	}, nil)
	doJSON(t, http.MethodPost, ts.URL+"/api/tasks", model.TaskDraft{Number: "s-2", Name: "Обычное"}, nil)

	var stats model.TaskStats
	code := doJSON(t, http.MethodGet, ts.URL+"/api/tasks/stats", nil, &stats)
	if code != http.StatusOK {
		t.Fatalf("stats status = %d", code)
	}
	if stats.TotalTasks != 2 || stats.OverdueCount != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.PriorityStats["срочный"] != 1 || stats.StatusStats["в разработке"] != 1 {
		t.Fatalf("unexpected breakdown: %+v", stats)
	}
}

func TestArchiveSweepEndpoint(t *testing.T) {
	ts, srv := newTestServer(t)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	srv.now = func() time.Time { return now }

	var created model.Task
	doJSON(t, http.MethodPost, ts.URL+"/api/tasks", model.TaskDraft{Number: "a-1", Name: "Старое"}, &created)

	// Finish the task, then age the completion past retention.
	done := model.StatusDone
	doJSON(t, http.MethodPut, ts.URL+"/api/tasks/"+itoa(created.ID), model.TaskPatch{Status: &done}, nil)
	srv.now = func() time.Time { return now.Add(8 * 24 * time.Hour) }

	var res map[string]any
	code := doJSON(t, http.MethodPost, ts.URL+"/api/tasks/archive", nil, &res)
	if code != http.StatusOK || res["message"] != "Архивировано заданий: 1" {
		t.Fatalf("unexpected sweep response: %d %v", code, res)
	}

	var active []model.Task
	doJSON(t, http.MethodGet, ts.URL+"/api/tasks?archived=false", nil, &active)
	if len(active) != 0 {
		t.Fatalf("task must leave the active list: %+v", active)
	}
	var archived []model.Task
	doJSON(t, http.MethodGet, ts.URL+"/api/tasks?archived=true", nil, &archived)
	if len(archived) != 1 || !archived[0].Archived {
		t.Fatalf("task must appear in the archive: %+v", archived)
	}
}

func TestImportCSV(t *testing.T) {
	ts, _ := newTestServer(t)

	doJSON(t, http.MethodPost, ts.URL+"/api/tasks", model.TaskDraft{Number: "2023/001", Name: "Существующее"}, nil)

	csvBody := "номер,наименование,статус\n" +
		"2023/010,Вал,выполняется\n" +
		"2023/001,Дубликат,\n" +
		",Без номера,\n"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "tasks.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := io.Copy(fw, strings.NewReader(csvBody)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	_ = mw.Close()

	resp, err := http.Post(ts.URL+"/api/tasks/import", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("post import: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import status = %d", resp.StatusCode)
	}

	var result model.ImportResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Created != 1 {
		t.Fatalf("expected 1 created, got %+v", result)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("expected 2 row errors, got %+v", result.Errors)
	}
	if result.Errors[0] != "Строка 3: Задание с номером '2023/001' уже существует" {
		t.Fatalf("unexpected first error: %q", result.Errors[0])
	}
	if result.Errors[1] != "Строка 4: Номер задания обязателен" {
		t.Fatalf("unexpected second error: %q", result.Errors[1])
	}
}

func TestReceptionEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	var created model.Reception
	code := doJSON(t, http.MethodPost, ts.URL+"/api/receptions", model.ReceptionDraft{
		OrderNumber:     "2023/101",
		Designation:     "НЗ.КШ.040.20.001",
		Name:            "Шестерня",
		Quantity:        "25 шт.",
		RouteCardNumber: "1001",
	}, &created)
	if code != http.StatusCreated {
		t.Fatalf("create reception status = %d", code)
	}
	if created.Status != model.ReceptionAccepted {
		t.Fatalf("default status not applied: %+v", created)
	}
	if created.Quantity != "25 шт." {
		t.Fatalf("quantity must stay literal: %+v", created)
	}

	var errRes map[string]any
	code = doJSON(t, http.MethodPost, ts.URL+"/api/receptions", model.ReceptionDraft{Name: "Без полей"}, &errRes)
	if code != http.StatusBadRequest {
		t.Fatalf("incomplete reception status = %d", code)
	}

	var list []model.Reception
	code = doJSON(t, http.MethodGet, ts.URL+"/api/receptions?search=шестерня", nil, &list)
	if code != http.StatusOK || len(list) != 1 {
		t.Fatalf("unexpected search result: %d %+v", code, list)
	}
}

func TestFilterEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	var created model.SavedFilter
	code := doJSON(t, http.MethodPost, ts.URL+"/api/filters", map[string]string{
		"name":        "срочные",
		"filter_data": `{"priority":"срочный"}`,
	}, &created)
	if code != http.StatusCreated || created.ID == 0 {
		t.Fatalf("create filter: %d %+v", code, created)
	}

	var errRes map[string]any
	code = doJSON(t, http.MethodPost, ts.URL+"/api/filters", map[string]string{"filter_data": "{}"}, &errRes)
	if code != http.StatusBadRequest || detail(t, errRes) != "Не указано название фильтра" {
		t.Fatalf("unexpected response: %d %v", code, errRes)
	}

	var list []model.SavedFilter
	doJSON(t, http.MethodGet, ts.URL+"/api/filters", nil, &list)
	if len(list) != 1 {
		t.Fatalf("unexpected filters: %+v", list)
	}

	code = doJSON(t, http.MethodDelete, ts.URL+"/api/filters/"+itoa(created.ID), nil, nil)
	if code != http.StatusOK {
		t.Fatalf("delete filter status = %d", code)
	}
	code = doJSON(t, http.MethodDelete, ts.URL+"/api/filters/"+itoa(created.ID), nil, &errRes)
	if code != http.StatusNotFound || detail(t, errRes) != "Фильтр не найден" {
		t.Fatalf("unexpected response: %d %v", code, errRes)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	_, srv := newTestServer(t)
	ctx := context.Background()

	if err := Seed(ctx, srv.repo); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	first, err := srv.repo.ListTasks(ctx, storage.TaskFilter{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(first) == 0 {
		t.Fatal("seed must create demo tasks")
	}

	if err := Seed(ctx, srv.repo); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	second, err := srv.repo.ListTasks(ctx, storage.TaskFilter{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("seed must not duplicate rows: %d vs %d", len(second), len(first))
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
