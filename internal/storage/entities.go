package storage

import "time"

type Task struct {
	ID            int64
	Number        string
	Name          string
	Description   string
	Status        string
	Priority      string
	Responsible   string
	DueDate       *time.Time
	CreatedDate   time.Time
	UpdatedDate   time.Time
	CompletedDate *time.Time
	Archived      bool
}

type Reception struct {
	ID              int64
	Date            time.Time
	OrderNumber     string
	Designation     string
	Name            string
	Quantity        string
	RouteCardNumber string
	Status          string
	CreatedDate     time.Time
}

type HistoryEntry struct {
	ID        int64
	TaskID    int64
	Action    string
	Details   string
	User      string
	Timestamp time.Time
	FieldName string
	OldValue  string
	NewValue  string
	CanRevert bool
}

type UserFilter struct {
	ID          int64
	Name        string
	FilterData  string
	CreatedDate time.Time
}

// TaskFilter narrows and orders a task listing. Now anchors the overdue
// comparison so queries stay deterministic under test.
type TaskFilter struct {
	Archived    bool
	Search      string
	Status      string
	Priority    string
	Responsible string
	Overdue     bool
	Now         time.Time
	SortBy      string
	SortOrder   string
}

type ReceptionFilter struct {
	Search string
	Status string
}

// Stats is an aggregate snapshot over non-archived tasks.
type Stats struct {
	Total      int
	Overdue    int
	ByStatus   map[string]int
	ByPriority map[string]int
}
