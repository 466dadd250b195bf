package model

import (
	"strings"
	"testing"
	"time"
)

func TestStatusIsValid(t *testing.T) {
	for _, s := range Statuses() {
		if !s.IsValid() {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	if Status("done").IsValid() {
		t.Fatal("expected translated status to be invalid")
	}
	if Status("").IsValid() {
		t.Fatal("expected empty status to be invalid")
	}
}

func TestPriorityIsValid(t *testing.T) {
	for _, p := range Priorities() {
		if !p.IsValid() {
			t.Fatalf("expected %q to be valid", p)
		}
	}
	if Priority("high").IsValid() {
		t.Fatal("expected translated priority to be invalid")
	}
}

func TestTaskDraftValidate(t *testing.T) {
	draft := TaskDraft{Number: "2023/001", Name: "Корпус"}
	if err := draft.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	if err := (TaskDraft{Name: "Корпус"}).Validate(); err == nil {
		t.Fatal("expected error for missing number")
	}
	if err := (TaskDraft{Number: "2023/001", Name: "  "}).Validate(); err == nil {
		t.Fatal("expected error for blank name")
	}
	if err := (TaskDraft{Number: "1", Name: "x", Status: "bogus"}).Validate(); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestTaskOverdue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)

	task := Task{Status: StatusInProgress, DueDate: &yesterday}
	if !task.Overdue(now) {
		t.Fatal("expected past-due in-progress task to be overdue")
	}

	task.Status = StatusDone
	if task.Overdue(now) {
		t.Fatal("done task must never be overdue")
	}

	task = Task{Status: StatusInProgress}
	if task.Overdue(now) {
		t.Fatal("task without due date must not be overdue")
	}
}

func TestDuplicateDraft(t *testing.T) {
	completed := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	src := Task{
		ID:            42,
		Number:        "ЗК-001",
		Name:          "Фланец",
		Description:   "из архива",
		Status:        StatusDone,
		Priority:      PriorityHigh,
		Responsible:   "Иванов",
		CompletedDate: &completed,
		Archived:      true,
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	draft := DuplicateDraft(src, now)
	if draft.Number == src.Number {
		t.Fatalf("duplicate must get a distinct number, got %q", draft.Number)
	}
	if !strings.HasPrefix(draft.Number, "ЗК-001-копия-") {
		t.Fatalf("unexpected duplicate number format: %q", draft.Number)
	}
	if draft.Status != StatusDevelopment {
		t.Fatalf("expected status reset to %q, got %q", StatusDevelopment, draft.Status)
	}
	if draft.Name != src.Name || draft.Description != src.Description {
		t.Fatalf("expected name/description carried over, got %+v", draft)
	}
	if draft.Priority != PriorityHigh || draft.Responsible != "Иванов" {
		t.Fatalf("expected priority/responsible carried over, got %+v", draft)
	}
}

func TestTaskPatchIsEmpty(t *testing.T) {
	if !(TaskPatch{}).IsEmpty() {
		t.Fatal("zero patch should be empty")
	}
	name := "Вал"
	if (TaskPatch{Name: &name}).IsEmpty() {
		t.Fatal("patch with a field should not be empty")
	}
}
