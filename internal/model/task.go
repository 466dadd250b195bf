package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidStatus   = errors.New("model: invalid task status")
	ErrInvalidPriority = errors.New("model: invalid task priority")
)

// Status values are wire literals shared with the backend and must not be
// translated or normalized.
type Status string

const (
	StatusDevelopment Status = "в разработке"
	StatusPrepared    Status = "подготовлено"
	StatusSent        Status = "отправлено"
	StatusInProgress  Status = "выполняется"
	StatusStopped     Status = "остановлено"
	StatusDone        Status = "готово"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusDevelopment, StatusPrepared, StatusSent, StatusInProgress, StatusStopped, StatusDone:
		return true
	default:
		return false
	}
}

func Statuses() []Status {
	return []Status{StatusDevelopment, StatusPrepared, StatusSent, StatusInProgress, StatusStopped, StatusDone}
}

type Priority string

const (
	PriorityLow    Priority = "низкий"
	PriorityMedium Priority = "средний"
	PriorityHigh   Priority = "высокий"
	PriorityUrgent Priority = "срочный"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
}

type Task struct {
	ID            int64      `json:"id"`
	Number        string     `json:"number"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Status        Status     `json:"status"`
	Priority      Priority   `json:"priority,omitempty"`
	Responsible   string     `json:"responsible,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	CreatedDate   time.Time  `json:"created_date"`
	UpdatedDate   time.Time  `json:"updated_date"`
	CompletedDate *time.Time `json:"completed_date,omitempty"`
	Archived      bool       `json:"archived"`
}

// Overdue reports whether the task is past its due date and not yet done.
func (t Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != StatusDone
}

// TaskDraft is the create payload. Number is set once here and never again.
type TaskDraft struct {
	Number      string     `json:"number"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	Responsible string     `json:"responsible,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

func (d TaskDraft) Validate() error {
	if strings.TrimSpace(d.Number) == "" {
		return errors.New("model: task number is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("model: task name is required")
	}
	if d.Status != "" && !d.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, d.Status)
	}
	if d.Priority != "" && !d.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, d.Priority)
	}
	return nil
}

// TaskPatch is the update payload. Nil fields are left untouched by the
// server; the number deliberately has no slot here.
type TaskPatch struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *Status    `json:"status,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	Responsible *string    `json:"responsible,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

func (p TaskPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Status == nil &&
		p.Priority == nil && p.Responsible == nil && p.DueDate == nil
}

// DuplicateDraft derives a create draft from an archived task: a fresh
// unique number, status reset to the initial one, id and completion stripped.
func DuplicateDraft(src Task, now time.Time) TaskDraft {
	return TaskDraft{
		Number:      fmt.Sprintf("%s-копия-%d", src.Number, now.UnixMilli()),
		Name:        src.Name,
		Description: src.Description,
		Status:      StatusDevelopment,
		Priority:    src.Priority,
		Responsible: src.Responsible,
		DueDate:     src.DueDate,
	}
}
