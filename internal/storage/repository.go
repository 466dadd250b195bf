package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("storage: not found")
	ErrDuplicateNumber = errors.New("storage: duplicate task number")
)

type Repository interface {
	CreateTask(ctx context.Context, in Task) (Task, error)
	GetTask(ctx context.Context, id int64) (Task, error)
	UpdateTask(ctx context.Context, in Task) error
	DeleteTask(ctx context.Context, id int64) error
	DeleteTasks(ctx context.Context, ids []int64) (int64, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error)
	TasksByIDs(ctx context.Context, ids []int64) ([]Task, error)
	TaskNumberExists(ctx context.Context, number string) (bool, error)
	ArchiveDone(ctx context.Context, cutoff time.Time) (int64, error)
	TaskStats(ctx context.Context, now time.Time) (Stats, error)

	AddHistory(ctx context.Context, in HistoryEntry) error
	ListHistory(ctx context.Context, taskID int64) ([]HistoryEntry, error)
	GetHistory(ctx context.Context, id int64) (HistoryEntry, error)

	CreateReception(ctx context.Context, in Reception) (Reception, error)
	ListReceptions(ctx context.Context, filter ReceptionFilter) ([]Reception, error)

	CreateFilter(ctx context.Context, in UserFilter) (UserFilter, error)
	ListFilters(ctx context.Context) ([]UserFilter, error)
	DeleteFilter(ctx context.Context, id int64) error
}
