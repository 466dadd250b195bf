package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// Stored timestamps use second precision so the TEXT columns compare
// lexicographically in chronological order.
const sqliteTimeLayout = time.RFC3339

// doneStatus gates archiving: only finished tasks are swept.
const doneStatus = "готово"

// driverName carries a connect hook registering ulower: SQLite's built-in
// lower() folds ASCII only, which breaks search over the Cyrillic columns.
const driverName = "sqlite3_sklad"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("ulower", strings.ToLower, true)
		},
	})
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// DB exposes the underlying handle for migrations.
func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

func (r *SQLiteRepository) CreateTask(ctx context.Context, in Task) (Task, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (number, name, description, status, priority, responsible, due_date, created_date, updated_date, completed_date, archived)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Number, in.Name, in.Description, in.Status, in.Priority, in.Responsible,
		nullTime(in.DueDate), mustTime(in.CreatedDate), mustTime(in.UpdatedDate), nullTime(in.CompletedDate), boolInt(in.Archived),
	)
	if err != nil {
		if isUniqueNumberViolation(err) {
			return Task{}, ErrDuplicateNumber
		}
		return Task{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Task{}, err
	}
	in.ID = id
	return in, nil
}

const taskColumns = `id, number, name, description, status, priority, responsible, due_date, created_date, updated_date, completed_date, archived`

func (r *SQLiteRepository) GetTask(ctx context.Context, id int64) (Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanStoredTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}
	return task, nil
}

// UpdateTask rewrites every mutable column; the number stays immutable.
func (r *SQLiteRepository) UpdateTask(ctx context.Context, in Task) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET name = ?, description = ?, status = ?, priority = ?, responsible = ?, due_date = ?, updated_date = ?, completed_date = ?, archived = ?
		WHERE id = ?`,
		in.Name, in.Description, in.Status, in.Priority, in.Responsible,
		nullTime(in.DueDate), mustTime(in.UpdatedDate), nullTime(in.CompletedDate), boolInt(in.Archived), in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteTasks(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `DELETE FROM tasks WHERE id IN (` + placeholders(len(ids)) + `)`
	res, err := r.db.ExecContext(ctx, query, idArgs(ids)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var taskSortColumns = map[string]string{
	"number":         "number",
	"name":           "name",
	"status":         "status",
	"priority":       "priority",
	"responsible":    "responsible",
	"due_date":       "due_date",
	"created_date":   "created_date",
	"updated_date":   "updated_date",
	"completed_date": "completed_date",
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	clauses := []string{"archived = ?"}
	args := []any{boolInt(filter.Archived)}

	if s := strings.TrimSpace(filter.Search); s != "" {
		clauses = append(clauses, "(ulower(number) LIKE ? OR ulower(name) LIKE ? OR ulower(description) LIKE ? OR ulower(responsible) LIKE ?)")
		like := "%" + strings.ToLower(s) + "%"
		args = append(args, like, like, like, like)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Priority != "" {
		clauses = append(clauses, "priority = ?")
		args = append(args, filter.Priority)
	}
	if filter.Responsible != "" {
		clauses = append(clauses, "responsible = ?")
		args = append(args, filter.Responsible)
	}
	if filter.Overdue {
		clauses = append(clauses, "due_date IS NOT NULL AND due_date < ? AND status != ?")
		args = append(args, mustTime(filter.Now), doneStatus)
	}
	query += " WHERE " + strings.Join(clauses, " AND ")

	column, ok := taskSortColumns[filter.SortBy]
	if !ok {
		column = "created_date"
	}
	direction := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		direction = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s, id %s", column, direction, direction)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Task, 0)
	for rows.Next() {
		task, scanErr := scanStoredTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) TasksByIDs(ctx context.Context, ids []int64) ([]Task, error) {
	if len(ids) == 0 {
		return []Task{}, nil
	}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := r.db.QueryContext(ctx, query, idArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Task, 0, len(ids))
	for rows.Next() {
		task, scanErr := scanStoredTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) TaskNumberExists(ctx context.Context, number string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE number = ?`, number).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ArchiveDone sweeps finished tasks whose completion predates cutoff into
// the archive. Repeating the sweep is a no-op.
func (r *SQLiteRepository) ArchiveDone(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET archived = 1, updated_date = ?
		WHERE archived = 0 AND status = ? AND completed_date IS NOT NULL AND completed_date < ?`,
		mustTime(time.Now().UTC()), doneStatus, mustTime(cutoff),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) TaskStats(ctx context.Context, now time.Time) (Stats, error) {
	stats := Stats{ByStatus: make(map[string]int), ByPriority: make(map[string]int)}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE archived = 0`).Scan(&stats.Total); err != nil {
		return Stats{}, err
	}
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tasks
		WHERE archived = 0 AND due_date IS NOT NULL AND due_date < ? AND status != ?`,
		mustTime(now), doneStatus,
	).Scan(&stats.Overdue); err != nil {
		return Stats{}, err
	}

	if err := r.groupCount(ctx, `SELECT status, COUNT(*) FROM tasks WHERE archived = 0 GROUP BY status`, stats.ByStatus); err != nil {
		return Stats{}, err
	}
	if err := r.groupCount(ctx, `SELECT priority, COUNT(*) FROM tasks WHERE archived = 0 GROUP BY priority`, stats.ByPriority); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

func (r *SQLiteRepository) groupCount(ctx context.Context, query string, into map[string]int) error {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		into[key] = n
	}
	return rows.Err()
}

func (r *SQLiteRepository) AddHistory(ctx context.Context, in HistoryEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO task_history (task_id, action, details, user, timestamp, field_name, old_value, new_value, can_revert)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.TaskID, in.Action, in.Details, in.User, mustTime(in.Timestamp),
		in.FieldName, in.OldValue, in.NewValue, boolInt(in.CanRevert),
	)
	return err
}

const historyColumns = `id, task_id, action, details, user, timestamp, field_name, old_value, new_value, can_revert`

func (r *SQLiteRepository) ListHistory(ctx context.Context, taskID int64) ([]HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+historyColumns+` FROM task_history WHERE task_id = ? ORDER BY timestamp DESC, id DESC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]HistoryEntry, 0)
	for rows.Next() {
		entry, scanErr := scanHistory(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetHistory(ctx context.Context, id int64) (HistoryEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+historyColumns+` FROM task_history WHERE id = ?`, id)
	entry, err := scanHistory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return HistoryEntry{}, ErrNotFound
		}
		return HistoryEntry{}, err
	}
	return entry, nil
}

func (r *SQLiteRepository) CreateReception(ctx context.Context, in Reception) (Reception, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO receptions (date, order_number, designation, name, quantity, route_card_number, status, created_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		mustTime(in.Date), in.OrderNumber, in.Designation, in.Name, in.Quantity, in.RouteCardNumber, in.Status, mustTime(in.CreatedDate),
	)
	if err != nil {
		return Reception{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Reception{}, err
	}
	in.ID = id
	return in, nil
}

func (r *SQLiteRepository) ListReceptions(ctx context.Context, filter ReceptionFilter) ([]Reception, error) {
	query := `SELECT id, date, order_number, designation, name, quantity, route_card_number, status, created_date FROM receptions`
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 5)
	if s := strings.TrimSpace(filter.Search); s != "" {
		clauses = append(clauses, "(ulower(order_number) LIKE ? OR ulower(designation) LIKE ? OR ulower(name) LIKE ? OR ulower(route_card_number) LIKE ?)")
		like := "%" + strings.ToLower(s) + "%"
		args = append(args, like, like, like, like)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY date DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Reception, 0)
	for rows.Next() {
		item, scanErr := scanReception(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateFilter(ctx context.Context, in UserFilter) (UserFilter, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO user_filters (name, filter_data, created_date)
		VALUES (?, ?, ?)`,
		in.Name, in.FilterData, mustTime(in.CreatedDate),
	)
	if err != nil {
		return UserFilter{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return UserFilter{}, err
	}
	in.ID = id
	return in, nil
}

func (r *SQLiteRepository) ListFilters(ctx context.Context) ([]UserFilter, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, filter_data, created_date FROM user_filters ORDER BY created_date DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]UserFilter, 0)
	for rows.Next() {
		var item UserFilter
		var created string
		if err := rows.Scan(&item.ID, &item.Name, &item.FilterData, &created); err != nil {
			return nil, err
		}
		createdDate, err := parseRequiredTime(created)
		if err != nil {
			return nil, err
		}
		item.CreatedDate = createdDate
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) DeleteFilter(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_filters WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func isUniqueNumberViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: tasks.number")
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(sqliteTimeLayout)
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func idArgs(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStoredTask(s scanner) (Task, error) {
	var out Task
	var due sql.NullString
	var created, updated string
	var completed sql.NullString
	var archived int
	if err := s.Scan(&out.ID, &out.Number, &out.Name, &out.Description, &out.Status, &out.Priority, &out.Responsible, &due, &created, &updated, &completed, &archived); err != nil {
		return Task{}, err
	}
	createdDate, err := parseRequiredTime(created)
	if err != nil {
		return Task{}, err
	}
	updatedDate, err := parseRequiredTime(updated)
	if err != nil {
		return Task{}, err
	}
	dueDate, err := parseNullableTime(due)
	if err != nil {
		return Task{}, err
	}
	completedDate, err := parseNullableTime(completed)
	if err != nil {
		return Task{}, err
	}
	out.CreatedDate = createdDate
	out.UpdatedDate = updatedDate
	out.DueDate = dueDate
	out.CompletedDate = completedDate
	out.Archived = archived == 1
	return out, nil
}

func scanHistory(s scanner) (HistoryEntry, error) {
	var out HistoryEntry
	var ts string
	var canRevert int
	if err := s.Scan(&out.ID, &out.TaskID, &out.Action, &out.Details, &out.User, &ts, &out.FieldName, &out.OldValue, &out.NewValue, &canRevert); err != nil {
		return HistoryEntry{}, err
	}
	timestamp, err := parseRequiredTime(ts)
	if err != nil {
		return HistoryEntry{}, err
	}
	out.Timestamp = timestamp
	out.CanRevert = canRevert == 1
	return out, nil
}

func scanReception(s scanner) (Reception, error) {
	var out Reception
	var date, created string
	if err := s.Scan(&out.ID, &date, &out.OrderNumber, &out.Designation, &out.Name, &out.Quantity, &out.RouteCardNumber, &out.Status, &created); err != nil {
		return Reception{}, err
	}
	d, err := parseRequiredTime(date)
	if err != nil {
		return Reception{}, err
	}
	createdDate, err := parseRequiredTime(created)
	if err != nil {
		return Reception{}, err
	}
	out.Date = d
	out.CreatedDate = createdDate
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
