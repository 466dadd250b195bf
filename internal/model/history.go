package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// HistoryEntry is an append-only audit record belonging to one task. Entries
// carrying a field snapshot (FieldName/OldValue) can be reverted server-side.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
	FieldName string    `json:"field_name,omitempty"`
	OldValue  string    `json:"old_value,omitempty"`
	NewValue  string    `json:"new_value,omitempty"`
	CanRevert bool      `json:"can_revert"`
}

// SavedFilter is a named, server-persisted snapshot of filter criteria.
// FilterData is a JSON object string mapping filter field to value.
type SavedFilter struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	FilterData  string    `json:"filter_data"`
	CreatedDate time.Time `json:"created_date"`
}

func (f SavedFilter) Criteria() (map[string]string, error) {
	if f.FilterData == "" {
		return map[string]string{}, nil
	}
	out := make(map[string]string)
	if err := json.Unmarshal([]byte(f.FilterData), &out); err != nil {
		return nil, fmt.Errorf("model: decode filter %q: %w", f.Name, err)
	}
	return out, nil
}

func EncodeCriteria(criteria map[string]string) string {
	if len(criteria) == 0 {
		return "{}"
	}
	data, err := json.Marshal(criteria)
	if err != nil {
		return "{}"
	}
	return string(data)
}

type TaskStats struct {
	TotalTasks    int            `json:"total_tasks"`
	OverdueCount  int            `json:"overdue_count"`
	StatusStats   map[string]int `json:"status_stats"`
	PriorityStats map[string]int `json:"priority_stats"`
}

type ImportResult struct {
	Message string   `json:"message"`
	Created int      `json:"created"`
	Errors  []string `json:"errors"`
}
