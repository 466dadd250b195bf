package server

import (
	"github.com/skladops/sklad/internal/model"
	"github.com/skladops/sklad/internal/storage"
)

func taskToWire(in storage.Task) model.Task {
	return model.Task{
		ID:            in.ID,
		Number:        in.Number,
		Name:          in.Name,
		Description:   in.Description,
		Status:        model.Status(in.Status),
		Priority:      model.Priority(in.Priority),
		Responsible:   in.Responsible,
		DueDate:       in.DueDate,
		CreatedDate:   in.CreatedDate,
		UpdatedDate:   in.UpdatedDate,
		CompletedDate: in.CompletedDate,
		Archived:      in.Archived,
	}
}

func tasksToWire(in []storage.Task) []model.Task {
	out := make([]model.Task, 0, len(in))
	for _, t := range in {
		out = append(out, taskToWire(t))
	}
	return out
}

func receptionToWire(in storage.Reception) model.Reception {
	return model.Reception{
		ID:              in.ID,
		Date:            in.Date,
		OrderNumber:     in.OrderNumber,
		Designation:     in.Designation,
		Name:            in.Name,
		Quantity:        in.Quantity,
		RouteCardNumber: in.RouteCardNumber,
		Status:          model.ReceptionStatus(in.Status),
		CreatedDate:     in.CreatedDate,
	}
}

func receptionsToWire(in []storage.Reception) []model.Reception {
	out := make([]model.Reception, 0, len(in))
	for _, r := range in {
		out = append(out, receptionToWire(r))
	}
	return out
}

func historyToWire(in storage.HistoryEntry) model.HistoryEntry {
	return model.HistoryEntry{
		ID:        in.ID,
		TaskID:    in.TaskID,
		Action:    in.Action,
		Details:   in.Details,
		User:      in.User,
		Timestamp: in.Timestamp,
		FieldName: in.FieldName,
		OldValue:  in.OldValue,
		NewValue:  in.NewValue,
		CanRevert: in.CanRevert,
	}
}

func historiesToWire(in []storage.HistoryEntry) []model.HistoryEntry {
	out := make([]model.HistoryEntry, 0, len(in))
	for _, h := range in {
		out = append(out, historyToWire(h))
	}
	return out
}

func filterToWire(in storage.UserFilter) model.SavedFilter {
	return model.SavedFilter{
		ID:          in.ID,
		Name:        in.Name,
		FilterData:  in.FilterData,
		CreatedDate: in.CreatedDate,
	}
}

func filtersToWire(in []storage.UserFilter) []model.SavedFilter {
	out := make([]model.SavedFilter, 0, len(in))
	for _, f := range in {
		out = append(out, filterToWire(f))
	}
	return out
}
