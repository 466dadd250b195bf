package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestReceptionDraftValidate(t *testing.T) {
	draft := ReceptionDraft{
		OrderNumber:     "2023/101",
		Designation:     "НЗ.КШ.040.20.001",
		Name:            "Шестерня",
		Quantity:        "25 шт.",
		RouteCardNumber: "1001",
	}
	if err := draft.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	missing := draft
	missing.Quantity = " "
	if err := missing.Validate(); err == nil {
		t.Fatal("expected error for blank quantity")
	}

	bad := draft
	bad.Status = "accepted"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestReceptionQuantityStaysLiteral(t *testing.T) {
	draft := ReceptionDraft{
		OrderNumber:     "2023/102",
		Designation:     "НЗ.КШ.040.20.002",
		Name:            "Втулка",
		Quantity:        "20 шт.",
		RouteCardNumber: "1002",
	}
	data, err := json.Marshal(draft)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"quantity":"20 шт."`) {
		t.Fatalf("quantity must round-trip as the literal string, got %s", data)
	}
}

func TestSavedFilterCriteriaRoundTrip(t *testing.T) {
	criteria := map[string]string{"status": string(StatusDone), "priority": string(PriorityUrgent)}
	f := SavedFilter{Name: "готовые срочные", FilterData: EncodeCriteria(criteria)}

	decoded, err := f.Criteria()
	if err != nil {
		t.Fatalf("decode criteria: %v", err)
	}
	if decoded["status"] != string(StatusDone) || decoded["priority"] != string(PriorityUrgent) {
		t.Fatalf("unexpected criteria: %#v", decoded)
	}

	empty := SavedFilter{Name: "пустой"}
	decoded, err = empty.Criteria()
	if err != nil || len(decoded) != 0 {
		t.Fatalf("expected empty criteria, got %#v err=%v", decoded, err)
	}
}
