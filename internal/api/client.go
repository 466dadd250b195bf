package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skladops/sklad/internal/model"
)

// Error is a failure reported by the server. Message carries the server's
// "detail" text when present so it can be surfaced to the user verbatim.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server returned status %d", e.StatusCode)
}

func (e *Error) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Client issues fire-once requests against the warehouse API. There is no
// retry logic: a failed call is reported and the caller decides what to do.
type Client struct {
	baseURL string
	httpc   *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

// TaskQuery describes the server-side list constraints. Filtering and
// sorting always happen on the server, never in the client.
type TaskQuery struct {
	Archived    bool
	Search      string
	Status      string
	Priority    string
	Responsible string
	Overdue     bool
	SortBy      string
	SortOrder   string
}

func (q TaskQuery) values() url.Values {
	v := url.Values{}
	v.Set("archived", strconv.FormatBool(q.Archived))
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", s)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Priority != "" {
		v.Set("priority", q.Priority)
	}
	if q.Responsible != "" {
		v.Set("responsible", q.Responsible)
	}
	if q.Overdue {
		v.Set("overdue", "true")
	}
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = "created_date"
	}
	sortOrder := q.SortOrder
	if sortOrder == "" {
		sortOrder = "desc"
	}
	v.Set("sort_by", sortBy)
	v.Set("sort_order", sortOrder)
	return v
}

func (c *Client) ListTasks(ctx context.Context, q TaskQuery) ([]model.Task, error) {
	var out []model.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks?"+q.values().Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTask(ctx context.Context, id int64) (model.Task, error) {
	var out model.Task
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/tasks/%d", id), nil, &out)
	return out, err
}

func (c *Client) CreateTask(ctx context.Context, draft model.TaskDraft) (model.Task, error) {
	var out model.Task
	err := c.do(ctx, http.MethodPost, "/api/tasks", draft, &out)
	return out, err
}

// UpdateTask sends a partial update. The task number is immutable and by
// construction never part of the patch payload.
func (c *Client) UpdateTask(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, error) {
	var out model.Task
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/tasks/%d", id), patch, &out)
	return out, err
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", id), nil, nil)
}

func (c *Client) TaskHistory(ctx context.Context, id int64) ([]model.HistoryEntry, error) {
	var out []model.HistoryEntry
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/tasks/%d/history", id), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RevertChange(ctx context.Context, taskID, historyID int64) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/tasks/%d/revert/%d", taskID, historyID), nil, &out)
	return out.Message, err
}

type bulkUpdatePayload struct {
	TaskIDs  []int64 `json:"task_ids"`
	Status   string  `json:"status,omitempty"`
	Priority string  `json:"priority,omitempty"`
}

// BulkUpdate applies one change to many tasks in a single request.
func (c *Client) BulkUpdate(ctx context.Context, ids []int64, status, priority string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	payload := bulkUpdatePayload{TaskIDs: ids, Status: status, Priority: priority}
	err := c.do(ctx, http.MethodPut, "/api/tasks/bulk-update", payload, &out)
	return out.Message, err
}

// BulkDelete issues one batched request carrying every selected id. The body
// is a bare JSON array, matching the backend contract.
func (c *Client) BulkDelete(ctx context.Context, ids []int64) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, http.MethodDelete, "/api/tasks/bulk-delete", ids, &out)
	return out.Message, err
}

// ArchiveDueTasks asks the server to sweep done tasks past retention into
// the archive. The operation is idempotent and safe to repeat.
func (c *Client) ArchiveDueTasks(ctx context.Context) (int, error) {
	var out struct {
		ArchivedCount int `json:"archived_count"`
	}
	err := c.do(ctx, http.MethodPost, "/api/tasks/archive", nil, &out)
	return out.ArchivedCount, err
}

func (c *Client) Stats(ctx context.Context) (model.TaskStats, error) {
	var out model.TaskStats
	err := c.do(ctx, http.MethodGet, "/api/tasks/stats", nil, &out)
	return out, err
}

func (c *Client) ListReceptions(ctx context.Context, search, status string) ([]model.Reception, error) {
	v := url.Values{}
	if s := strings.TrimSpace(search); s != "" {
		v.Set("search", s)
	}
	if status != "" {
		v.Set("status", status)
	}
	path := "/api/receptions"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	var out []model.Reception
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateReception(ctx context.Context, draft model.ReceptionDraft) (model.Reception, error) {
	var out model.Reception
	err := c.do(ctx, http.MethodPost, "/api/receptions", draft, &out)
	return out, err
}

func (c *Client) ListFilters(ctx context.Context) ([]model.SavedFilter, error) {
	var out []model.SavedFilter
	if err := c.do(ctx, http.MethodGet, "/api/filters", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SaveFilter(ctx context.Context, name string, criteria map[string]string) (model.SavedFilter, error) {
	payload := struct {
		Name       string `json:"name"`
		FilterData string `json:"filter_data"`
	}{Name: name, FilterData: model.EncodeCriteria(criteria)}
	var out model.SavedFilter
	err := c.do(ctx, http.MethodPost, "/api/filters", payload, &out)
	return out, err
}

func (c *Client) DeleteFilter(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/filters/%d", id), nil, nil)
}

// ImportTasks uploads a file as multipart form data. Parsing happens on the
// server; the result carries a created count plus per-row error strings.
func (c *Client) ImportTasks(ctx context.Context, filename string, r io.Reader) (model.ImportResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return model.ImportResult{}, fmt.Errorf("api: build upload: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return model.ImportResult{}, fmt.Errorf("api: read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return model.ImportResult{}, fmt.Errorf("api: build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/tasks/import", &buf)
	if err != nil {
		return model.ImportResult{}, fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out model.ImportResult
	if err := c.send(req, &out); err != nil {
		return model.ImportResult{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	req.Header.Set("X-Request-ID", uuid.NewString())
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("api: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(data, &payload)
	return &Error{StatusCode: resp.StatusCode, Message: strings.TrimSpace(payload.Detail)}
}
