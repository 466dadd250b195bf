package server

import (
	"context"
	"time"

	"github.com/skladops/sklad/internal/storage"
)

// Seed fills an empty database with a handful of demo rows. Existing data is
// left untouched.
func Seed(ctx context.Context, repo storage.Repository) error {
	existing, err := repo.ListTasks(ctx, storage.TaskFilter{})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	now := time.Now().UTC()
	due := now.Add(14 * 24 * time.Hour)
	past := now.Add(-2 * 24 * time.Hour)

	tasks := []storage.Task{
		{
			Number: "2023/001", Name: "Корпус насоса", Description: "Механическая обработка",
			Status: "выполняется", Priority: "высокий", Responsible: "Иванов",
			DueDate: &due, CreatedDate: now, UpdatedDate: now,
		},
		{
			Number: "2023/002", Name: "Вал приводной", Description: "",
			Status: "в разработке", Priority: "средний", Responsible: "Петров",
			CreatedDate: now, UpdatedDate: now,
		},
		{
			Number: "2023/003", Name: "Фланец", Description: "Срочный заказ",
			Status: "выполняется", Priority: "срочный", Responsible: "Сидоров",
			DueDate: &past, CreatedDate: now, UpdatedDate: now,
		},
	}
	for _, in := range tasks {
		created, err := repo.CreateTask(ctx, in)
		if err != nil {
			return err
		}
		if err := repo.AddHistory(ctx, storage.HistoryEntry{
			TaskID:    created.ID,
			Action:    "создание",
			Details:   "Задание создано",
			Timestamp: now,
		}); err != nil {
			return err
		}
	}

	_, err = repo.CreateReception(ctx, storage.Reception{
		Date:            now,
		OrderNumber:     "2023/101",
		Designation:     "НЗ.КШ.040.20.001",
		Name:            "Шестерня",
		Quantity:        "25 шт.",
		RouteCardNumber: "1001",
		Status:          "принят",
		CreatedDate:     now,
	})
	return err
}
