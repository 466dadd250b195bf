package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidReceptionStatus = errors.New("model: invalid reception status")

type ReceptionStatus string

const (
	ReceptionAccepted   ReceptionStatus = "принят"
	ReceptionHasRemarks ReceptionStatus = "есть замечания"
	ReceptionProcessed  ReceptionStatus = "проведен в НП"
)

func (s ReceptionStatus) IsValid() bool {
	switch s {
	case ReceptionAccepted, ReceptionHasRemarks, ReceptionProcessed:
		return true
	default:
		return false
	}
}

func ReceptionStatuses() []ReceptionStatus {
	return []ReceptionStatus{ReceptionAccepted, ReceptionHasRemarks, ReceptionProcessed}
}

// Reception is immutable once created; there is no update operation.
// Quantity is free-form text ("25 шт.") and must never be coerced to a number.
type Reception struct {
	ID              int64           `json:"id"`
	Date            time.Time       `json:"date"`
	OrderNumber     string          `json:"order_number"`
	Designation     string          `json:"designation"`
	Name            string          `json:"name"`
	Quantity        string          `json:"quantity"`
	RouteCardNumber string          `json:"route_card_number"`
	Status          ReceptionStatus `json:"status"`
	CreatedDate     time.Time       `json:"created_date"`
}

type ReceptionDraft struct {
	OrderNumber     string          `json:"order_number"`
	Designation     string          `json:"designation"`
	Name            string          `json:"name"`
	Quantity        string          `json:"quantity"`
	RouteCardNumber string          `json:"route_card_number"`
	Status          ReceptionStatus `json:"status,omitempty"`
}

func (d ReceptionDraft) Validate() error {
	for _, field := range []struct {
		name  string
		value string
	}{
		{"order_number", d.OrderNumber},
		{"designation", d.Designation},
		{"name", d.Name},
		{"quantity", d.Quantity},
		{"route_card_number", d.RouteCardNumber},
	} {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("model: reception %s is required", field.name)
		}
	}
	if d.Status != "" && !d.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidReceptionStatus, d.Status)
	}
	return nil
}
