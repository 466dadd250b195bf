package update

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/skladops/sklad/internal/api"
	"github.com/skladops/sklad/internal/model"
	"github.com/skladops/sklad/internal/scheduler"
	"github.com/skladops/sklad/internal/state"
)

// Gateway is the slice of the remote API the TUI uses. *api.Client satisfies
// it; tests plug in a fake.
type Gateway interface {
	ListTasks(ctx context.Context, q api.TaskQuery) ([]model.Task, error)
	GetTask(ctx context.Context, id int64) (model.Task, error)
	CreateTask(ctx context.Context, draft model.TaskDraft) (model.Task, error)
	UpdateTask(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, error)
	BulkUpdate(ctx context.Context, ids []int64, status, priority string) (string, error)
	BulkDelete(ctx context.Context, ids []int64) (string, error)
	TaskHistory(ctx context.Context, id int64) ([]model.HistoryEntry, error)
	RevertChange(ctx context.Context, taskID, historyID int64) (string, error)
	ArchiveDueTasks(ctx context.Context) (int, error)
	Stats(ctx context.Context) (model.TaskStats, error)
	ListReceptions(ctx context.Context, search, status string) ([]model.Reception, error)
	CreateReception(ctx context.Context, draft model.ReceptionDraft) (model.Reception, error)
	ListFilters(ctx context.Context) ([]model.SavedFilter, error)
	SaveFilter(ctx context.Context, name string, criteria map[string]string) (model.SavedFilter, error)
	DeleteFilter(ctx context.Context, id int64) error
	ImportTasks(ctx context.Context, filename string, r io.Reader) (model.ImportResult, error)
}

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	ActiveTasks string
	Receptions  string
	Archive     string
	Help        string
	Quit        string
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type formKind int

const (
	formTask formKind = iota
	formReception
)

// FormState is the create/edit modal. TaskID zero means create.
type FormState struct {
	Kind   formKind
	TaskID int64
	Inputs []textinput.Model
	Labels []string
	Focus  int
	Err    string
	Saving bool
}

type ConfirmState struct {
	Prompt string
	IDs    []int64
}

// BulkState is the bulk-change panel: cycle a status and/or priority to
// apply to every selected task. Index zero means "leave unchanged".
type BulkState struct {
	StatusIdx   int
	PriorityIdx int

	// Saving disables the panel while the bulk request is in flight so a
	// second enter cannot submit the same change twice.
	Saving bool
}

func (b BulkState) Status() string {
	if b.StatusIdx == 0 {
		return ""
	}
	return string(model.Statuses()[b.StatusIdx-1])
}

func (b BulkState) Priority() string {
	if b.PriorityIdx == 0 {
		return ""
	}
	return string(model.Priorities()[b.PriorityIdx-1])
}

type HistoryState struct {
	TaskID int64
	Label  string
	Items  []model.HistoryEntry
	Cursor int
}

type FiltersPanelState struct {
	Cursor int
}

type Model struct {
	Store     *state.Store
	Gateway   Gateway
	Scheduler *scheduler.Engine
	Cfg       RuntimeConfig

	Status  StatusBar
	Keys    GlobalKeyMap
	Palette CommandPaletteState

	Form         *FormState
	Confirm      *ConfirmState
	Bulk         *BulkState
	History      *HistoryState
	FiltersPanel *FiltersPanelState

	HelpVisible bool
	Quitting    bool
	LastError   error

	// Notification holds the last import report until dismissed.
	Notification model.ImportResult

	// Bubble components used for rich TUI controls
	activeTable    table.Model
	archiveTable   table.Model
	receptionTable table.Model
	searchInput    textinput.Model
	commandInput   textinput.Model
	loadSpinner    spinner.Model
	helpModel      help.Model
	helpKeys       helpKeys
	historyView    viewport.Model
	searching      bool

	now func() time.Time
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

type tasksLoadedMsg struct {
	Tab   state.Tab
	Token uint64
	Items []model.Task
}

type receptionsLoadedMsg struct {
	Token uint64
	Items []model.Reception
}

type loadFailedMsg struct {
	Tab   state.Tab
	Token uint64
	Err   error
}

type taskFetchedMsg struct {
	Task model.Task
}

type fetchFailedMsg struct {
	Err error
}

type taskSavedMsg struct {
	Task    model.Task
	Created bool
}

type receptionSavedMsg struct {
	Reception model.Reception
}

type saveFailedMsg struct {
	Err error
}

type bulkDoneMsg struct {
	Message string
}

type historyLoadedMsg struct {
	TaskID int64
	Label  string
	Items  []model.HistoryEntry
}

type revertDoneMsg struct {
	TaskID  int64
	Message string
}

type statsLoadedMsg struct {
	Stats model.TaskStats
}

type filtersLoadedMsg struct {
	Items []model.SavedFilter
}

type filterSavedMsg struct {
	Filter model.SavedFilter
}

type filterDeletedMsg struct{}

type archiveSweepDoneMsg struct {
	Count int
}

type importDoneMsg struct {
	Result model.ImportResult
}

// opFailedMsg covers background operations that only need an error banner.
type opFailedMsg struct {
	Err error
}

type intentMsg struct {
	Intent scheduler.Intent
}

func NewModel(gw Gateway) Model {
	return NewModelWithConfig(gw, nil, DefaultRuntimeConfig())
}

func NewModelWithConfig(gw Gateway, engine *scheduler.Engine, cfg RuntimeConfig) Model {
	m := Model{
		Store:     state.NewStore(),
		Gateway:   gw,
		Scheduler: engine,
		Cfg:       cfg,
		Keys: GlobalKeyMap{
			ActiveTasks: "1",
			Receptions:  "2",
			Archive:     "3",
			Help:        "?",
			Quit:        "q",
		},
		now: func() time.Time { return time.Now().UTC() },
	}
	m.initBubbleComponents()
	m.syncBubbleData()
	return m
}

func (m *Model) initBubbleComponents() {
	taskCols := []table.Column{
		{Title: "Номер", Width: 14},
		{Title: "Наименование", Width: 28},
		{Title: "Статус", Width: 14},
		{Title: "Приоритет", Width: 10},
		{Title: "Ответственный", Width: 14},
		{Title: "Срок", Width: 10},
		{Title: "", Width: 2},
	}
	m.activeTable = table.New(table.WithColumns(taskCols), table.WithRows([]table.Row{}), table.WithFocused(true), table.WithHeight(12))
	m.archiveTable = table.New(table.WithColumns(taskCols), table.WithRows([]table.Row{}), table.WithFocused(true), table.WithHeight(12))

	receptionCols := []table.Column{
		{Title: "Дата", Width: 10},
		{Title: "Заказ", Width: 10},
		{Title: "Обозначение", Width: 20},
		{Title: "Наименование", Width: 20},
		{Title: "Кол-во", Width: 8},
		{Title: "МК", Width: 8},
		{Title: "Статус", Width: 14},
	}
	m.receptionTable = table.New(table.WithColumns(receptionCols), table.WithRows([]table.Row{}), table.WithFocused(true), table.WithHeight(12))

	m.searchInput = textinput.New()
	m.searchInput.Prompt = "поиск> "
	m.searchInput.CharLimit = 128
	m.searchInput.Width = 42

	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 48

	m.loadSpinner = spinner.New()
	m.loadSpinner.Spinner = spinner.Dot

	m.helpModel = help.New()
	m.helpKeys = defaultHelpKeys()
	m.historyView = viewport.New(80, 14)
}
